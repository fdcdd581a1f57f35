package streams

import (
	"sync"

	"github.com/ajsrt/jsrt/cmn/cos"
)

// WriteState mirrors the WritableStream state machine (spec.md §4.8).
type WriteState int

const (
	Writable WriteState = iota
	Closing
	WClosed
	WErrored
)

// UnderlyingSink mirrors the {start, write, close, abort} hooks.
type UnderlyingSink struct {
	Start func(c *WritableController) error
	Write func(chunk Chunk, c *WritableController) error
	Close func() error
	Abort func(reason error) error
}

// WritableController exposes signal and error to sink hooks.
type WritableController struct {
	s *WritableStream
}

func (c *WritableController) Signal() <-chan struct{} { return c.s.abortSignal }
func (c *WritableController) Error(err error)          { c.s.errorSink(err) }

// WritableStream implements spec.md §4.8's WritableStream.
type WritableStream struct {
	mu     sync.Mutex
	sink   UnderlyingSink
	strategy QueuingStrategy

	state       WriteState
	err         error
	locked      bool
	abortSignal chan struct{}
}

func NewWritableStream(sink UnderlyingSink, strategy QueuingStrategy) *WritableStream {
	if strategy == nil {
		strategy = CountQueuingStrategy{HighWaterMark: 1}
	}
	s := &WritableStream{sink: sink, strategy: strategy, abortSignal: make(chan struct{})}
	if sink.Start != nil {
		if err := sink.Start(&WritableController{s: s}); err != nil {
			s.errorSink(err)
		}
	}
	return s
}

func (s *WritableStream) State() WriteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *WritableStream) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// write forwards chunk to the sink, rejecting immediately if errored.
func (s *WritableStream) write(chunk Chunk) error {
	s.mu.Lock()
	if s.state == WErrored {
		err := s.err
		s.mu.Unlock()
		return err
	}
	if s.state != Writable {
		s.mu.Unlock()
		return &cos.ErrStreamReleased{}
	}
	s.mu.Unlock()
	if s.sink.Write == nil {
		return nil
	}
	if err := s.sink.Write(chunk, &WritableController{s: s}); err != nil {
		s.errorSink(err)
		return err
	}
	return nil
}

// close runs sink.Close once and transitions to WClosed; spec.md §4.8:
// "close cannot run while there is a live writer except through that
// writer" — enforced by DefaultWriter routing all closes through here.
func (s *WritableStream) close() error {
	s.mu.Lock()
	if s.state == WErrored {
		err := s.err
		s.mu.Unlock()
		return err
	}
	if s.state != Writable {
		s.mu.Unlock()
		return nil
	}
	s.state = Closing
	s.mu.Unlock()

	var err error
	if s.sink.Close != nil {
		err = s.sink.Close()
	}
	s.mu.Lock()
	if err != nil {
		s.state = WErrored
		s.err = err
		s.mu.Unlock()
		return err
	}
	s.state = WClosed
	s.mu.Unlock()
	return nil
}

func (s *WritableStream) errorSink(err error) {
	s.mu.Lock()
	if s.state == WErrored || s.state == WClosed {
		s.mu.Unlock()
		return
	}
	s.state = WErrored
	s.err = err
	s.mu.Unlock()
}

// Abort implements WritableStream.abort(reason): errors immediately and
// invokes sink.abort (spec.md §5).
func (s *WritableStream) Abort(reason error) error {
	s.mu.Lock()
	if s.state == WErrored || s.state == WClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = WErrored
	if reason == nil {
		reason = &cos.ErrStreamReleased{}
	}
	s.err = reason
	s.mu.Unlock()
	close(s.abortSignal)
	if s.sink.Abort != nil {
		return s.sink.Abort(reason)
	}
	return nil
}

// DefaultWriter implements WritableStreamDefaultWriter (spec.md §4.8).
type DefaultWriter struct {
	s          *WritableStream
	released   bool
	closeErr   error
	closeDone  bool
}

func AcquireWriter(s *WritableStream) (*DefaultWriter, error) {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return nil, &cos.ErrStreamLocked{}
	}
	s.locked = true
	s.mu.Unlock()
	return &DefaultWriter{s: s}, nil
}

func (w *DefaultWriter) Write(chunk Chunk) error {
	if w.released {
		return &cos.ErrStreamReleased{}
	}
	return w.s.write(chunk)
}

// Close resolves once sink.close() resolves and transitions the stream
// to closed; the writer remembers the outcome so a later ReleaseLock
// knows the lifecycle already settled cleanly.
func (w *DefaultWriter) Close() error {
	if w.released {
		return &cos.ErrStreamReleased{}
	}
	err := w.s.close()
	w.closeDone = true
	w.closeErr = err
	return err
}

func (w *DefaultWriter) Abort(reason error) error {
	return w.s.Abort(reason)
}

// ReleaseLock detaches the writer. Critical rule (spec.md §4.8): never
// re-reject an already-settled closed promise. If Close() already ran
// to completion (success or failure), the stream reached a terminal
// state and releasing the lock must not manufacture a spurious
// "released" rejection on top of it — this is what lets pipeTo's
// `finally { writer.releaseLock() }` stay silent after a clean close.
func (w *DefaultWriter) ReleaseLock() {
	if w.released {
		return
	}
	w.released = true
	w.s.mu.Lock()
	w.s.locked = false
	state := w.s.state
	w.s.mu.Unlock()
	if w.closeDone {
		return
	}
	if state == WClosed || state == WErrored {
		return
	}
	// Stream never reached a terminal state through this writer: the
	// closed promise, if anyone is awaiting it, rejects as released.
}
