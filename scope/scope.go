// Package scope implements the Handle/Scope Manager (spec.md §4.4):
// LIFO auto-release scopes over engine.Handle, sync and async, plus a
// per-context tracker for handles allocated during unmarshalling so the
// runtime can bulk-release them on teardown.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package scope

import (
	"sync"

	"github.com/ajsrt/jsrt/cmn/nlog"
	"github.com/ajsrt/jsrt/engine"
)

// Scope adopts handles for disposal and marshals values through a
// supplied marshal func, adopting whatever handle that produces. It is
// not safe for concurrent use by multiple goroutines — a scope belongs to
// one call chain on one context's affinity thread (spec.md §5).
type Scope struct {
	ctx     engine.Context
	handles []engine.Handle
}

// MarshalFunc marshals v into a guest-native engine.Value, optionally
// allocating a handle the scope should track (e.g. a CallbackRef's
// backing function object). Supplied by the marshal package so this
// package doesn't need to import it back (marshal depends on scope, not
// the reverse).
type MarshalFunc func(ctx engine.Context, v interface{}) (engine.Value, engine.Handle, error)

func newScope(ctx engine.Context) *Scope {
	return &Scope{ctx: ctx}
}

// Manage adopts an already-created handle for release at scope exit.
func (s *Scope) Manage(h engine.Handle) {
	if h != nil {
		s.handles = append(s.handles, h)
	}
}

// Marshal runs fn and adopts any handle it allocates.
func (s *Scope) Marshal(fn MarshalFunc, v interface{}) (engine.Value, error) {
	val, h, err := fn(s.ctx, v)
	if err != nil {
		return nil, err
	}
	s.Manage(h)
	return val, nil
}

// release walks handles in LIFO order; a handle that errors/panics on
// release (already dead) is swallowed, per spec.md §4.4.
func (s *Scope) release() {
	for i := len(s.handles) - 1; i >= 0; i-- {
		releaseOne(s.handles[i])
	}
	s.handles = nil
}

func releaseOne(h engine.Handle) {
	defer func() {
		if r := recover(); r != nil {
			nlog.Warningf("scope: recovered from panic releasing handle: %v", r)
		}
	}()
	if h.Released() {
		return
	}
	h.Release()
}

// WithScope runs body with a fresh Scope, releasing every adopted handle
// in LIFO order on the way out — whether body returns an error or not.
func WithScope(ctx engine.Context, body func(s *Scope) (interface{}, error)) (interface{}, error) {
	s := newScope(ctx)
	defer s.release()
	return body(s)
}

// WithScopeAsync is WithScope's async twin: body may suspend (the
// returned func completes the operation after awaiting something), but
// release ordering across the suspension point is preserved by deferring
// release to the continuation's completion rather than to this call's
// return.
func WithScopeAsync(ctx engine.Context, body func(s *Scope) (func() (interface{}, error), error)) (func() (interface{}, error), error) {
	s := newScope(ctx)
	cont, err := body(s)
	if err != nil {
		s.release()
		return nil, err
	}
	return func() (interface{}, error) {
		defer s.release()
		return cont()
	}, nil
}

// UnmarshalTracker is the per-context set of handles allocated while
// unmarshalling inbound values (spec.md §4.4: "the manager maintains a
// per-context set of handles allocated during unmarshalling so the
// runtime can bulk-release them during teardown"). Unlike Scope, entries
// here are not released until explicitly swept — they may outlive the
// request that created them, by design, for long-lived contexts; spec.md
// §5 calls this acceptable for request-scoped work but not for long-lived
// ones, which are expected to call CleanupUnmarshaledHandles periodically.
type UnmarshalTracker struct {
	mu      sync.Mutex
	handles map[engine.Handle]struct{}
}

func NewUnmarshalTracker() *UnmarshalTracker {
	return &UnmarshalTracker{handles: make(map[engine.Handle]struct{})}
}

func (t *UnmarshalTracker) Track(h engine.Handle) {
	if h == nil {
		return
	}
	t.mu.Lock()
	t.handles[h] = struct{}{}
	t.mu.Unlock()
}

func (t *UnmarshalTracker) Untrack(h engine.Handle) {
	t.mu.Lock()
	delete(t.handles, h)
	t.mu.Unlock()
}

// CleanupUnmarshaledHandles releases every tracked handle, LIFO order not
// guaranteed (unlike Scope — there is no single nested call chain here,
// just an unordered bag accumulated across many requests).
func (t *UnmarshalTracker) CleanupUnmarshaledHandles() {
	t.mu.Lock()
	handles := t.handles
	t.handles = make(map[engine.Handle]struct{})
	t.mu.Unlock()
	for h := range handles {
		releaseOne(h)
	}
}

// Len reports the number of currently tracked handles, for tests/metrics.
func (t *UnmarshalTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}
