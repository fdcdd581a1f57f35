// Entry-filename normalisation and the module-loader path guard (spec.md
// §6): before a denied prefix reaches the exact walk below, a cuckoo-filter
// pre-check lets the loader skip the string work on the hot repeated-miss
// path.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"fmt"
	"path"
	"strings"

	"github.com/ajsrt/jsrt/cmn/prob"
)

// NormalizeEntryFilename implements spec.md §6's rules exactly:
//   - undefined/empty -> "/index.js"
//   - bare name -> prefixed with "/"
//   - "./..." -> absolute from root
//   - absolute -> left alone
//   - trailing "/" -> index.js appended
//   - "../" at the start, or any path resolving above root, fails
func NormalizeEntryFilename(in string) (string, error) {
	if in == "" {
		return "/index.js", nil
	}
	switch {
	case strings.HasPrefix(in, "../"), in == "..":
		return "", fmt.Errorf("entry filename %q escapes the module root", in)
	case strings.HasPrefix(in, "./"):
		in = "/" + in[2:]
	case strings.HasPrefix(in, "/"):
		// already absolute
	default:
		in = "/" + in
	}
	if strings.HasSuffix(in, "/") {
		in += "index.js"
	}
	clean := path.Clean(in)
	if clean != "/" && !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if strings.HasPrefix(clean, "/..") || strings.Contains(clean, "/../") {
		return "", fmt.Errorf("entry filename %q resolves above the module root", in)
	}
	return clean, nil
}

// PathGuard is a fast probabilistic pre-check ahead of an exact denylist:
// a filter miss on the exact filename lets the loader skip the prefix walk
// entirely on the hot path of repeated disallowed lookups.
type PathGuard struct {
	filter    *prob.Filter
	denylist  []string
}

func NewPathGuard(denyPrefixes ...string) *PathGuard {
	g := &PathGuard{filter: prob.New(uint(len(denyPrefixes)*4 + 16)), denylist: append([]string{}, denyPrefixes...)}
	for _, p := range denyPrefixes {
		g.filter.Add([]byte(p))
	}
	return g
}

// Denied reports whether filename starts with any denied prefix. The
// filter was seeded with the denied prefixes themselves, so checking each
// leading substring of filename against it tells us, with no false
// negatives, whether any prefix of filename could possibly be a denylist
// entry; only on a hit does Denied fall through to the exact
// strings.HasPrefix walk over the (small) denylist slice.
func (g *PathGuard) Denied(filename string) bool {
	maybe := false
	for i := 1; i <= len(filename); i++ {
		if g.filter.Lookup([]byte(filename[:i])) {
			maybe = true
			break
		}
	}
	if !maybe {
		return false
	}
	for _, p := range g.denylist {
		if strings.HasPrefix(filename, p) {
			return true
		}
	}
	return false
}
