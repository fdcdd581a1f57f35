// Per-connection correlation tables (spec.md §4.9): requestId -> pending
// response resolver, callbackId -> callable (split engine-visible vs host
// callbacks), streamId -> stream sink or source. Spec.md §5: "the daemon's
// per-connection state (requestId->resolver, streamId->stream) is mutated
// only by the connection's I/O task" — these tables are still guarded by a
// mutex since callback responses/stream cancels can arrive concurrently
// with the read loop draining them.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/ajsrt/jsrt/wire"
)

// Response is what a pending request resolves to: either a single OK
// value, an error, or the start of a stream whose chunks arrive on a
// separate channel.
type Response struct {
	Value interface{}
	Err   error

	StreamID int64 // nonzero if this was a RESPONSE_STREAM_START
}

// Callback is a registered host-reachable callable: console.log's onEntry,
// a fetch handler, an fs method, the module loader, a custom function, or
// a Playwright handler. Host is true for callbacks the dispatcher itself
// invokes (e.g. internal bookkeeping) rather than ones the guest marshalled
// in as a CallbackRef.
type Callback struct {
	Invoke func(args interface{}) (interface{}, error)
	Host   bool
}

// StreamSink receives chunks for an outbound (host-to-guest) stream frame
// sequence; StreamSource is the inverse, feeding a guest ReadableStream
// from host-originated data.
type StreamSink interface {
	Chunk(data []byte) error
	Close() error
	Error(err error)
}

type StreamSource interface {
	Cancel(reason error) error
}

// Tables is one connection's full correlation state.
type Tables struct {
	nextRequestID  int64
	nextCallbackID int64
	nextStreamID   int64

	mu        sync.Mutex
	pending   map[int64]chan Response
	callbacks map[int64]Callback
	sinks     map[int64]StreamSink
	sources   map[int64]StreamSource
}

func NewTables() *Tables {
	return &Tables{
		pending:   make(map[int64]chan Response),
		callbacks: make(map[int64]Callback),
		sinks:     make(map[int64]StreamSink),
		sources:   make(map[int64]StreamSource),
	}
}

func (t *Tables) NextRequestID() int64  { return atomic.AddInt64(&t.nextRequestID, 1) }
func (t *Tables) NextCallbackID() int64 { return atomic.AddInt64(&t.nextCallbackID, 1) }
func (t *Tables) NextStreamID() int64   { return atomic.AddInt64(&t.nextStreamID, 1) }

// AwaitResponse registers requestID and returns the channel its eventual
// Response lands on; the caller blocks receiving from it.
func (t *Tables) AwaitResponse(requestID int64) chan Response {
	ch := make(chan Response, 1)
	t.mu.Lock()
	t.pending[requestID] = ch
	t.mu.Unlock()
	return ch
}

// Resolve delivers resp to requestID's waiter, if still pending (a
// response for an already-resolved/abandoned request — e.g. after the
// connection was torn down — is silently dropped).
func (t *Tables) Resolve(requestID int64, resp Response) {
	t.mu.Lock()
	ch, ok := t.pending[requestID]
	if ok {
		delete(t.pending, requestID)
	}
	t.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// FailAll rejects every still-pending request with err — used on liveness
// timeout or connection loss (spec.md §5: "the client closes or times
// out, and the dispatcher rejects every still-pending request tied to
// that connection").
func (t *Tables) FailAll(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[int64]chan Response)
	t.mu.Unlock()
	for _, ch := range pending {
		ch <- Response{Err: err}
	}
}

func (t *Tables) RegisterCallback(id int64, cb Callback) {
	t.mu.Lock()
	t.callbacks[id] = cb
	t.mu.Unlock()
}

func (t *Tables) Callback(id int64) (Callback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cb, ok := t.callbacks[id]
	return cb, ok
}

func (t *Tables) UnregisterCallback(id int64) {
	t.mu.Lock()
	delete(t.callbacks, id)
	t.mu.Unlock()
}

func (t *Tables) RegisterSink(id int64, s StreamSink) {
	t.mu.Lock()
	t.sinks[id] = s
	t.mu.Unlock()
}

func (t *Tables) Sink(id int64) (StreamSink, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sinks[id]
	return s, ok
}

func (t *Tables) RegisterSource(id int64, s StreamSource) {
	t.mu.Lock()
	t.sources[id] = s
	t.mu.Unlock()
}

func (t *Tables) Source(id int64) (StreamSource, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sources[id]
	return s, ok
}

func (t *Tables) ReleaseStream(id int64) {
	t.mu.Lock()
	delete(t.sinks, id)
	delete(t.sources, id)
	t.mu.Unlock()
}

// responseFrameType maps a Response to the wire frame type its caller
// should build, given whether it carries a stream start.
func responseFrameType(resp Response) wire.Type {
	switch {
	case resp.Err != nil:
		return wire.TypeResponseError
	case resp.StreamID != 0:
		return wire.TypeResponseStreamStart
	default:
		return wire.TypeResponseOK
	}
}
