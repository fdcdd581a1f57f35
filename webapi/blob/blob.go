// Package blob implements the host side of Blob and File (spec.md
// §4.7): "Blob and File are backed by host state. The guest class holds
// only its instance ID in a WeakMap-keyed slot; all reads dispatch to
// the host." This package owns that host state and the operations a
// class-builder trampoline calls into — the guest-visible Blob/File
// classes themselves are wired in dispatch/ via classbuilder.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package blob

import (
	"sync"
	"time"

	"github.com/ajsrt/jsrt/registry"
	"github.com/ajsrt/jsrt/streams"
)

// Store wraps a context's registry with Blob/File-specific operations.
// One Store is shared between every Blob- and File-originating call
// within a context (core.Install constructs a single instance) so the
// dedup index below actually catches cross-class repeats.
type Store struct {
	reg *registry.Registry

	mu    sync.Mutex
	dedup map[dedupKey]int64
}

// dedupKey identifies Blob content for interning: same bytes, same MIME
// type. File is deliberately excluded — two File constructions are
// distinct upload events (name/lastModified differ) even when their
// bytes happen to match, so only NewBlob/Slice consult this index.
type dedupKey struct {
	digest uint64
	typ    string
}

func New(reg *registry.Registry) *Store {
	return &Store{reg: reg, dedup: make(map[dedupKey]int64)}
}

// NewBlob allocates a BlobState from parts and a MIME type, returning
// its instance ID. Identical content+type reuses a prior instance id
// instead of allocating a new one, provided that prior instance is
// still live in the registry.
func (s *Store) NewBlob(parts [][]byte, contentType string) int64 {
	return s.intern(registry.NewBlobState(parts, contentType))
}

// intern dedupes st against the index by content digest, allocating a
// fresh instance only on a miss (or a stale hit whose id was released).
func (s *Store) intern(st *registry.BlobState) int64 {
	key := dedupKey{digest: st.Digest(), typ: st.Type}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.dedup[key]; ok {
		if _, err := s.reg.Get(id); err == nil {
			return id
		}
		delete(s.dedup, key)
	}
	id := s.reg.Alloc(st)
	s.dedup[key] = id
	return id
}

// NewFile allocates a FileState; lastModified defaults to the current
// host time at construction when zero, per spec.md §4.7.
func (s *Store) NewFile(parts [][]byte, contentType, name string, lastModified int64) int64 {
	if lastModified == 0 {
		lastModified = time.Now().UnixMilli()
	}
	return s.reg.Alloc(registry.NewFileState(parts, contentType, name, lastModified))
}

func (s *Store) blobState(id int64) (*registry.BlobState, error) {
	st, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}
	switch v := st.(type) {
	case *registry.BlobState:
		return v, nil
	case *registry.FileState:
		return &v.BlobState, nil
	default:
		return nil, &notABlobError{id: id}
	}
}

// Size returns the blob's byte length.
func (s *Store) Size(id int64) (int64, error) {
	st, err := s.blobState(id)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Type returns the blob's lowercased MIME type.
func (s *Store) Type(id int64) (string, error) {
	st, err := s.blobState(id)
	if err != nil {
		return "", err
	}
	return st.Type, nil
}

// Name/LastModified only apply to a FileState; they fail with
// notABlobError (mapped to a TypeError by the class builder) for a
// plain Blob ID.
func (s *Store) Name(id int64) (string, error) {
	st, err := s.reg.Get(id)
	if err != nil {
		return "", err
	}
	f, ok := st.(*registry.FileState)
	if !ok {
		return "", &notABlobError{id: id}
	}
	return f.Name, nil
}

func (s *Store) LastModified(id int64) (int64, error) {
	st, err := s.reg.Get(id)
	if err != nil {
		return 0, err
	}
	f, ok := st.(*registry.FileState)
	if !ok {
		return 0, &notABlobError{id: id}
	}
	return f.LastModified, nil
}

// Slice implements Blob.slice(start, end, contentType?): normalizes
// indices against size and allocates a new Blob owning a copy of the
// selected range (spec.md §4.7).
func (s *Store) Slice(id int64, start, end int64, contentType string) (int64, error) {
	st, err := s.blobState(id)
	if err != nil {
		return 0, err
	}
	sliced := st.Slice(start, end, contentType)
	return s.intern(sliced), nil
}

// Digest returns the xxhash64 of a Blob/File's content, for callers
// (e.g. codec marshalling) that need the dedup key itself rather than
// the interning behavior.
func (s *Store) Digest(id int64) (uint64, error) {
	st, err := s.blobState(id)
	if err != nil {
		return 0, err
	}
	return st.Digest(), nil
}

// Stream implements Blob.stream(): a ReadableStream whose source
// enqueues the entire byte buffer as one chunk and closes (spec.md
// §4.7; backpressure policy for a chunked variant is an open question
// this package does not attempt to resolve).
func (s *Store) Stream(id int64) (*streams.ReadableStream, error) {
	st, err := s.blobState(id)
	if err != nil {
		return nil, err
	}
	data := st.Bytes()
	return streams.NewReadableStream(streams.UnderlyingSource{
		Start: func(c *streams.ReadableController) error {
			c.Enqueue(data)
			c.Close()
			return nil
		},
	}, streams.ByteLengthQueuingStrategy{HighWaterMark: float64(len(data))}), nil
}

// Bytes returns the blob's full contents, for host code (e.g. the
// marshaller's body-reading path) that needs the raw buffer directly
// rather than a ReadableStream.
func (s *Store) Bytes(id int64) ([]byte, error) {
	st, err := s.blobState(id)
	if err != nil {
		return nil, err
	}
	return st.Bytes(), nil
}

type notABlobError struct{ id int64 }

func (e *notABlobError) Error() string { return "instance is not a Blob or File" }

// Name reports this as a TypeError crossing the wire (classbuilder's
// wrapConstructError honors it), matching how a JS engine raises
// TypeError for a method/property called on the wrong receiver type.
func (e *notABlobError) Name() string { return "TypeError" }
