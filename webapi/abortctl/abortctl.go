// Package abortctl implements AbortController/AbortSignal (spec.md
// §4.7): aborted/reason/throwIfAborted, addEventListener('abort', ...),
// static abort(reason) and timeout(ms).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package abortctl

import (
	"sync"
	"time"

	"github.com/ajsrt/jsrt/webapi/domexception"
)

// Signal mirrors AbortSignal: fires its 'abort' listeners exactly once
// (spec.md §5: "repeated aborts are ignored").
type Signal struct {
	mu        sync.Mutex
	aborted   bool
	reason    error
	listeners []func(reason error)
	timer     *time.Timer
}

func newSignal() *Signal { return &Signal{} }

func (s *Signal) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *Signal) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// ThrowIfAborted returns the stored reason if aborted, nil otherwise —
// the Go-side analog of AbortSignal.throwIfAborted(), which throws
// synchronously in JS.
func (s *Signal) ThrowIfAborted() error {
	return s.Reason()
}

// AddEventListener registers fn to run when the signal aborts; if the
// signal is already aborted, fn is invoked synchronously and immediately
// (matching the practical effect most guest code relies on, even though
// in the DOM itself a listener added post-abort is simply never called —
// callers that need exact DOM semantics should check Aborted() first).
func (s *Signal) AddEventListener(fn func(reason error)) {
	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return
	}
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Signal) abort(reason error) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	listeners := s.listeners
	s.listeners = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(reason)
	}
}

// Controller mirrors AbortController: NewController().Signal() is handed
// to the consumer, Abort(reason) is called by the owner.
type Controller struct {
	signal *Signal
}

func NewController() *Controller {
	return &Controller{signal: newSignal()}
}

func (c *Controller) Signal() *Signal { return c.signal }

func (c *Controller) Abort(reason error) {
	if reason == nil {
		reason = domexception.New("AbortError", "signal is aborted without reason")
	}
	c.signal.abort(reason)
}

// Abort is the static AbortSignal.abort(reason): an already-aborted
// signal with no controller attached.
func Abort(reason error) *Signal {
	s := newSignal()
	if reason == nil {
		reason = domexception.New("AbortError", "signal is aborted without reason")
	}
	s.aborted = true
	s.reason = reason
	return s
}

// Timeout is the static AbortSignal.timeout(ms): a signal that aborts
// itself with a TimeoutError after the given duration.
func Timeout(d time.Duration) *Signal {
	s := newSignal()
	s.timer = time.AfterFunc(d, func() {
		s.abort(domexception.New("TimeoutError", "signal timed out"))
	})
	return s
}
