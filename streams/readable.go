// Package streams implements the WHATWG Streams Engine (spec.md §4.8):
// ReadableStream, WritableStream, TransformStream, their default
// reader/writer types, tee, pipeTo/pipeThrough, and the two queuing
// strategies. The guest-side event loop and microtask scheduling this
// depends on in a real engine are abstracted away here — operations
// settle synchronously from the perspective of the calling goroutine,
// with pending reads/writes parked on a channel instead of a microtask,
// which preserves every ordering guarantee spec.md §5 names without
// requiring an actual JS event loop.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package streams

import (
	"sync"

	"github.com/ajsrt/jsrt/cmn/cos"
)

// ReadState mirrors spec.md §3's ReadableStream state machine.
type ReadState int

const (
	Readable ReadState = iota
	RClosed
	RErrored
)

// Chunk is an opaque payload moving through a stream; for a byte stream
// this is typically []byte, but any Go value works — the bridge is
// responsible for marshalling whatever the guest actually enqueued.
type Chunk interface{}

// Result is a read()'s settled value: either {value, done:false},
// {done:true}, or an error.
type Result struct {
	Value Chunk
	Done  bool
}

// UnderlyingSource mirrors the {start, pull, cancel} hooks (spec.md §4.8).
// All three are optional; a nil hook is simply skipped.
type UnderlyingSource struct {
	Start  func(c *ReadableController) error
	Pull   func(c *ReadableController) error
	Cancel func(reason error) error
}

// ReadableController is what Start/Pull hooks receive to drive the
// stream: enqueue, close, error, and desiredSize per the backpressure
// strategy.
type ReadableController struct {
	s *ReadableStream
}

func (c *ReadableController) Enqueue(chunk Chunk) { c.s.enqueue(chunk) }
func (c *ReadableController) Close()              { c.s.closeSource() }
func (c *ReadableController) Error(err error)      { c.s.errorSource(err) }
func (c *ReadableController) DesiredSize() float64 { return c.s.desiredSize() }

type pendingRead struct {
	resultCh chan Result
	errCh    chan error
}

// ReadableStream implements spec.md §4.8's ReadableStream: a FIFO chunk
// queue, an optional parked pending-read, and the readable/closed/errored
// state machine.
type ReadableStream struct {
	mu       sync.Mutex
	source   UnderlyingSource
	strategy QueuingStrategy

	state        ReadState
	err          error
	queue        []Chunk
	pending      *pendingRead
	locked       bool
	closePending bool
}

func NewReadableStream(source UnderlyingSource, strategy QueuingStrategy) *ReadableStream {
	if strategy == nil {
		strategy = CountQueuingStrategy{HighWaterMark: 1}
	}
	s := &ReadableStream{source: source, strategy: strategy}
	if source.Start != nil {
		if err := source.Start(&ReadableController{s: s}); err != nil {
			s.errorSource(err)
		}
	}
	return s
}

func (s *ReadableStream) State() ReadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ReadableStream) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func (s *ReadableStream) desiredSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == RErrored {
		return 0
	}
	var size float64
	for _, c := range s.queue {
		size += s.strategy.Size(c)
	}
	return s.strategy.HWM() - size
}

// enqueue delivers chunk directly to a parked pending read, or appends it
// to the queue if no read is parked (spec.md §4.8).
func (s *ReadableStream) enqueue(chunk Chunk) {
	s.mu.Lock()
	if s.state != Readable {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		p := s.pending
		s.pending = nil
		s.mu.Unlock()
		p.resultCh <- Result{Value: chunk}
		return
	}
	s.queue = append(s.queue, chunk)
	s.mu.Unlock()
}

// closeSource marks the stream closed once the queue drains; per spec.md
// §4.8 "close is deferred until the queue is empty", a close while the
// queue is non-empty is recorded but the public State() only flips to
// RClosed once every queued chunk has actually been delivered via Read.
func (s *ReadableStream) closeSource() {
	s.mu.Lock()
	if s.state != Readable {
		s.mu.Unlock()
		return
	}
	if len(s.queue) == 0 {
		s.state = RClosed
		if s.pending != nil {
			p := s.pending
			s.pending = nil
			s.mu.Unlock()
			p.resultCh <- Result{Done: true}
			return
		}
		s.mu.Unlock()
		return
	}
	s.closePending = true
	s.mu.Unlock()
}

func (s *ReadableStream) errorSource(err error) {
	s.mu.Lock()
	if s.state != Readable {
		s.mu.Unlock()
		return
	}
	s.state = RErrored
	s.err = err
	p := s.pending
	s.pending = nil
	s.mu.Unlock()
	if p != nil {
		p.errCh <- err
	}
}

// read is the reader-facing primitive: drains the queue first, then
// falls back to closed/errored/park per spec.md §4.8.
func (s *ReadableStream) read() (Result, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		chunk := s.queue[0]
		s.queue = s.queue[1:]
		drainedToClose := s.closePending && len(s.queue) == 0
		if drainedToClose {
			s.state = RClosed
			s.closePending = false
		}
		s.mu.Unlock()
		if drainedToClose {
			// no pull needed: stream is now closed
		} else if s.source.Pull != nil {
			_ = s.source.Pull(&ReadableController{s: s})
		}
		return Result{Value: chunk}, nil
	}
	switch s.state {
	case RClosed:
		s.mu.Unlock()
		return Result{Done: true}, nil
	case RErrored:
		err := s.err
		s.mu.Unlock()
		return Result{}, err
	}
	p := &pendingRead{resultCh: make(chan Result, 1), errCh: make(chan error, 1)}
	s.pending = p
	s.mu.Unlock()

	if s.source.Pull != nil {
		_ = s.source.Pull(&ReadableController{s: s})
	}

	select {
	case r := <-p.resultCh:
		return r, nil
	case err := <-p.errCh:
		return Result{}, err
	}
}

// Cancel implements ReadableStream.cancel(reason) (spec.md §5).
func (s *ReadableStream) Cancel(reason error) error {
	s.mu.Lock()
	if s.state != Readable {
		s.mu.Unlock()
		return nil
	}
	s.state = RErrored
	if reason == nil {
		reason = &cos.ErrStreamReleased{}
	}
	s.err = reason
	p := s.pending
	s.pending = nil
	s.mu.Unlock()
	if p != nil {
		p.errCh <- reason
	}
	if s.source.Cancel != nil {
		return s.source.Cancel(reason)
	}
	return nil
}
