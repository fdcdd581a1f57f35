package streams

import "github.com/ajsrt/jsrt/cmn/cos"

// DefaultReader implements ReadableStreamDefaultReader (spec.md §4.8):
// acquiring sets locked=true, releaseLock detaches without touching the
// stream's own lifecycle.
type DefaultReader struct {
	s        *ReadableStream
	released bool
}

// AcquireReader locks s for exclusive reading; returns ErrStreamLocked if
// a reader or writer is already active.
func AcquireReader(s *ReadableStream) (*DefaultReader, error) {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return nil, &cos.ErrStreamLocked{}
	}
	s.locked = true
	s.mu.Unlock()
	return &DefaultReader{s: s}, nil
}

// Read drains the queue first; empty+closed yields {done:true}; empty+
// errored rejects with the stored error; otherwise parks (spec.md §4.8).
func (r *DefaultReader) Read() (Result, error) {
	if r.released {
		return Result{}, &cos.ErrStreamReleased{}
	}
	return r.s.read()
}

// ReleaseLock detaches the reader; any currently parked pending-read is
// rejected with a released error, but the stream's own state is
// untouched (spec.md §4.8).
func (r *DefaultReader) ReleaseLock() {
	if r.released {
		return
	}
	r.released = true
	r.s.mu.Lock()
	r.s.locked = false
	p := r.s.pending
	r.s.pending = nil
	r.s.mu.Unlock()
	if p != nil {
		p.errCh <- &cos.ErrStreamReleased{}
	}
}

// Cancel cancels the underlying stream through this reader.
func (r *DefaultReader) Cancel(reason error) error {
	return r.s.Cancel(reason)
}

// Iterate drives the async-iterable protocol: calls yield for each
// non-done Read() result until done or error, releasing the lock on
// completion either way (spec.md §4.8: "releasing the lock on iterator
// completion").
func (r *DefaultReader) Iterate(yield func(Chunk) (stop bool, err error)) error {
	defer r.ReleaseLock()
	for {
		res, err := r.Read()
		if err != nil {
			return err
		}
		if res.Done {
			return nil
		}
		stop, err := yield(res.Value)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}
