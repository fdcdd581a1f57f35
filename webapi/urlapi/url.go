// Package urlapi implements a pragmatic URL/URLSearchParams (spec.md
// §4.7): protocol, userinfo, host, port, path, query, fragment; IPv6 in
// brackets; relative resolution against a base URL; searchParams cached
// and invalidated on writes to search. Non-goal per spec.md §1: full
// WHATWG URL parsing conformance — this is not a byte-for-byte port of
// the URL Standard's state machine.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package urlapi

import (
	"fmt"
	"net/url"
	"strings"
)

// URL mirrors the guest URL object's getters; Parse/ResolveAgainst do the
// actual work on top of net/url, which already implements RFC 3986
// parsing (including bracketed IPv6 hosts and relative resolution) —
// reimplementing that state machine by hand would just be a worse copy of
// the standard library's, so this is one of the few spots in the module
// that leans on stdlib instead of a pack dependency.
type URL struct {
	raw *url.URL

	searchParams *SearchParams
}

// Parse parses rawURL, resolving against base if rawURL is relative
// (base may be nil for an absolute-only parse).
func Parse(rawURL string, base *URL) (*URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &SyntaxError{Input: rawURL}
	}
	if !u.IsAbs() {
		if base == nil {
			return nil, &SyntaxError{Input: rawURL}
		}
		u = base.raw.ResolveReference(u)
	}
	return &URL{raw: u}, nil
}

type SyntaxError struct{ Input string }

func (e *SyntaxError) Error() string { return fmt.Sprintf("Invalid URL: %q", e.Input) }

func (u *URL) Href() string     { return u.raw.String() }
func (u *URL) Protocol() string { return u.raw.Scheme + ":" }
func (u *URL) Host() string     { return u.raw.Host }
func (u *URL) Hostname() string { return u.raw.Hostname() }
func (u *URL) Port() string     { return u.raw.Port() }
func (u *URL) Pathname() string {
	if u.raw.Path == "" && u.raw.IsAbs() {
		return "/"
	}
	return u.raw.Path
}
func (u *URL) Hash() string {
	if u.raw.Fragment == "" {
		return ""
	}
	return "#" + u.raw.Fragment
}
func (u *URL) Origin() string {
	if u.raw.Scheme == "" || u.raw.Host == "" {
		return "null"
	}
	return u.raw.Scheme + "://" + u.raw.Host
}
func (u *URL) Username() string {
	if u.raw.User == nil {
		return ""
	}
	return u.raw.User.Username()
}
func (u *URL) Password() string {
	if u.raw.User == nil {
		return ""
	}
	pw, _ := u.raw.User.Password()
	return pw
}

// Search returns the `?`-prefixed query string, or "" if empty.
func (u *URL) Search() string {
	if u.raw.RawQuery == "" {
		return ""
	}
	return "?" + u.raw.RawQuery
}

// SetSearch overwrites the query string and invalidates any cached
// SearchParams (spec.md §4.7: "searchParams is cached and invalidated
// when search is written").
func (u *URL) SetSearch(s string) {
	u.raw.RawQuery = strings.TrimPrefix(s, "?")
	u.searchParams = nil
}

// SearchParams returns the cached URLSearchParams view, constructing it
// on first access and rebuilding it if SetSearch invalidated the cache.
func (u *URL) SearchParams() *SearchParams {
	if u.searchParams == nil {
		u.searchParams = ParseSearchParams(u.raw.RawQuery)
		u.searchParams.onChange = func() {
			u.raw.RawQuery = u.searchParams.Encode()
		}
	}
	return u.searchParams
}

// SearchParams mirrors URLSearchParams: an ordered multi-map with
// duplicate-key support, matching net/url.Values' shape but preserving
// insertion order (url.Values is a plain map and does not).
type SearchParams struct {
	pairs    [][2]string
	onChange func()
}

func ParseSearchParams(rawQuery string) *SearchParams {
	sp := &SearchParams{}
	if rawQuery == "" {
		return sp
	}
	for _, kv := range strings.Split(rawQuery, "&") {
		if kv == "" {
			continue
		}
		var k, v string
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			k, v = kv[:idx], kv[idx+1:]
		} else {
			k = kv
		}
		dk, _ := url.QueryUnescape(k)
		dv, _ := url.QueryUnescape(v)
		sp.pairs = append(sp.pairs, [2]string{dk, dv})
	}
	return sp
}

func (sp *SearchParams) Get(key string) (string, bool) {
	for _, p := range sp.pairs {
		if p[0] == key {
			return p[1], true
		}
	}
	return "", false
}

func (sp *SearchParams) GetAll(key string) []string {
	var out []string
	for _, p := range sp.pairs {
		if p[0] == key {
			out = append(out, p[1])
		}
	}
	return out
}

func (sp *SearchParams) Has(key string) bool {
	_, ok := sp.Get(key)
	return ok
}

func (sp *SearchParams) Append(key, value string) {
	sp.pairs = append(sp.pairs, [2]string{key, value})
	sp.notify()
}

func (sp *SearchParams) Set(key, value string) {
	found := false
	out := sp.pairs[:0]
	for _, p := range sp.pairs {
		if p[0] == key {
			if !found {
				out = append(out, [2]string{key, value})
				found = true
			}
			continue
		}
		out = append(out, p)
	}
	if !found {
		out = append(out, [2]string{key, value})
	}
	sp.pairs = out
	sp.notify()
}

func (sp *SearchParams) Delete(key string) {
	out := sp.pairs[:0]
	for _, p := range sp.pairs {
		if p[0] != key {
			out = append(out, p)
		}
	}
	sp.pairs = out
	sp.notify()
}

func (sp *SearchParams) Entries() [][2]string {
	out := make([][2]string, len(sp.pairs))
	copy(out, sp.pairs)
	return out
}

func (sp *SearchParams) Encode() string {
	var b strings.Builder
	for i, p := range sp.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

func (sp *SearchParams) notify() {
	if sp.onChange != nil {
		sp.onChange()
	}
}
