// Package registry implements the Instance-State Registry (spec.md §3,
// §4.5): a per-context map from integer instance ID to host-side state for
// every guest object the Class Builder constructs. State never crosses to
// the guest side directly — only the ID does.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package registry

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/ajsrt/jsrt/cmn/cos"
)

// State is the tagged-union contract every registry entry satisfies.
// Concrete state types (BlobState, FileState, or a caller-defined class
// state) just need to report their kind for diagnostics.
type State interface {
	Kind() string
}

// BlobState backs the host side of a guest Blob (spec.md §3): an ordered
// sequence of byte parts, a lowercased MIME type, and the total size
// invariant size == Σ parts[i].len.
type BlobState struct {
	Parts [][]byte
	Type  string

	digestOnce sync.Once
	digest     uint64
}

func (*BlobState) Kind() string { return "Blob" }

// Digest returns the xxhash64 of the blob's flattened content, computed
// once and cached — the dedup key webapi/blob's Store uses to collapse
// identical Blob constructions to the same instance id.
func (b *BlobState) Digest() uint64 {
	b.digestOnce.Do(func() {
		b.digest = xxhash.Sum64(b.Bytes())
	})
	return b.digest
}

func NewBlobState(parts [][]byte, typ string) *BlobState {
	return &BlobState{Parts: parts, Type: strings.ToLower(typ)}
}

func (b *BlobState) Size() int64 {
	var n int64
	for _, p := range b.Parts {
		n += int64(len(p))
	}
	return n
}

// Bytes flattens Parts into one contiguous buffer; used by slice()/stream().
func (b *BlobState) Bytes() []byte {
	out := make([]byte, 0, b.Size())
	for _, p := range b.Parts {
		out = append(out, p...)
	}
	return out
}

// Slice normalizes start/end against size the way Blob.slice does
// (spec.md §4.7) and returns a new BlobState owning a single copied part.
func (b *BlobState) Slice(start, end int64, contentType string) *BlobState {
	size := b.Size()
	start = clampIndex(start, size)
	end = clampIndex(end, size)
	if end < start {
		end = start
	}
	data := b.Bytes()
	part := make([]byte, end-start)
	copy(part, data[start:end])
	typ := b.Type
	if contentType != "" {
		typ = strings.ToLower(contentType)
	}
	return NewBlobState([][]byte{part}, typ)
}

func clampIndex(i, size int64) int64 {
	if i < 0 {
		i += size
		if i < 0 {
			i = 0
		}
	}
	if i > size {
		i = size
	}
	return i
}

// FileState extends BlobState with File's two extra fields (spec.md §3).
type FileState struct {
	BlobState
	Name         string
	LastModified int64 // epoch milliseconds
}

func (*FileState) Kind() string { return "File" }

func NewFileState(parts [][]byte, typ, name string, lastModified int64) *FileState {
	return &FileState{BlobState: *NewBlobState(parts, typ), Name: name, LastModified: lastModified}
}

// Registry is one context's { id -> State } map plus its monotonic ID
// counter (spec.md §3: "state.id is unique per context for life of
// context"). Safe for concurrent use since a context's affinity thread is
// a logical, not enforced, guarantee — callback responses can race host
// timers touching the same context.
type Registry struct {
	mu      sync.RWMutex
	states  map[int64]State
	counter int64
}

func New() *Registry {
	return &Registry{states: make(map[int64]State)}
}

// Alloc reserves a fresh ID and stores s under it.
func (r *Registry) Alloc(s State) int64 {
	id := atomic.AddInt64(&r.counter, 1)
	r.mu.Lock()
	r.states[id] = s
	r.mu.Unlock()
	return id
}

// Get returns the state for id, or ErrIsolateNotFound-shaped error if
// absent — spec.md §4.5: "absent state yields a synthetic Instance <id>
// not found error."
func (r *Registry) Get(id int64) (State, error) {
	r.mu.RLock()
	s, ok := r.states[id]
	r.mu.RUnlock()
	if !ok {
		return nil, &cos.ErrInstanceNotFound{ID: id}
	}
	return s, nil
}

// Set overwrites the state for an already-allocated id (used when an
// in-place mutation, e.g. Blob.slice's copy-on-write part list, replaces
// the stored value instead of allocating a new ID).
func (r *Registry) Set(id int64, s State) {
	r.mu.Lock()
	r.states[id] = s
	r.mu.Unlock()
}

// Release drops an entry; releasing an unknown id is a no-op, mirroring
// the scope manager's "release failures on already-dead handles are
// swallowed" rule (spec.md §4.4) extended to registry entries disposed
// twice.
func (r *Registry) Release(id int64) {
	r.mu.Lock()
	delete(r.states, id)
	r.mu.Unlock()
}

// Len reports live entries, for diagnostics/tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// Reset clears every entry and resets the ID counter, used when a context
// is returned to the namespace pool rather than disposed outright.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.states = make(map[int64]State)
	r.counter = 0
	r.mu.Unlock()
}
