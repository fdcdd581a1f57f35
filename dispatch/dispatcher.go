// Package dispatch implements the daemon dispatcher (spec.md §4.9): the
// frame router sitting on top of the wire protocol, the instance-state
// registry, and the Class/Function builders. One Dispatcher owns one
// engine.Engine and serves many Connections; one Connection owns one
// socket, its own Tables, and a set of live Isolates.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ajsrt/jsrt/cmn/config"
	"github.com/ajsrt/jsrt/cmn/cos"
	"github.com/ajsrt/jsrt/cmn/nlog"
	"github.com/ajsrt/jsrt/codec"
	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/hk"
	"github.com/ajsrt/jsrt/wire"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Dispatcher owns the one engine.Engine a daemon process embeds and the
// policy (timeouts, auth, namespace reuse) every Connection enforces.
type Dispatcher struct {
	Eng     engine.Engine
	Cfg     *config.Config
	Auth    *Authenticator
	Metrics *Metrics
	Pool    *NamespacePool
	HK      *hk.Housekeeper
}

// NewDispatcher wires a Dispatcher from its config. Pass a non-nil metrics
// registerer to get prometheus collectors; nil disables metrics entirely.
func NewDispatcher(eng engine.Engine, cfg *config.Config, mreg prometheus.Registerer) (*Dispatcher, error) {
	d := &Dispatcher{Eng: eng, Cfg: cfg, HK: hk.DefaultHK}
	if cfg.Auth.Enabled {
		d.Auth = NewAuthenticator(cfg.Auth.SecretKey)
	}
	if mreg != nil {
		d.Metrics = NewMetrics(mreg)
	}
	if cfg.Namespace.Enabled {
		pool, err := NewNamespacePool(cfg.Namespace.TTL)
		if err != nil {
			return nil, err
		}
		d.Pool = pool
		d.HK.Register("namespace-pool-sweep", cfg.Namespace.TTL/2, func() time.Duration {
			if n := pool.Sweep(); n > 0 {
				nlog.Infof("namespace pool: reaped %d expired entries", n)
			}
			return 0
		})
	}
	return d, nil
}

// Serve drives one connection to completion: reads frames until rw
// returns an error or the liveness monitor declares the peer dead, and
// writes every response/callback-invoke frame it produces. It returns
// once the connection is fully torn down (all isolates disposed).
func (d *Dispatcher) Serve(ctx context.Context, rw io.ReadWriter) error {
	c := newConnection(d, rw)
	nlog.Infof("dispatch[%s]: connection opened", c.id)
	defer func() {
		c.teardown()
		nlog.Infof("dispatch[%s]: connection closed", c.id)
	}()

	grp, gctx := errgroup.WithContext(ctx)
	// readLoop's own exit (clean EOF or a read error) must end the
	// connection even though it isn't necessarily an errgroup-cancelling
	// error — so it gets its own cancel, not just errgroup's.
	loopCtx, cancel := context.WithCancel(gctx)
	defer cancel()
	grp.Go(func() error {
		defer cancel()
		return c.readLoop(loopCtx)
	})
	grp.Go(func() error { return c.heartbeat(loopCtx) })
	return grp.Wait()
}

// Connection is one socket's worth of dispatcher state: its own isolates,
// its own request/callback/stream correlation tables, its own liveness
// clock. Nothing here is shared across connections except the Dispatcher
// itself (engine, auth, metrics, namespace pool).
type Connection struct {
	d      *Dispatcher
	rw     io.ReadWriter
	wmu    sync.Mutex
	parser *wire.Parser
	tables *Tables

	id string

	isoMu    sync.Mutex
	isolates map[string]*Isolate

	pongMu   sync.Mutex
	lastPong time.Time
}

func newConnection(d *Dispatcher, rw io.ReadWriter) *Connection {
	maxFrame := uint32(wire.DefaultMaxFrameSize)
	if d.Cfg != nil && d.Cfg.Wire.MaxFrameSize > 0 {
		maxFrame = uint32(d.Cfg.Wire.MaxFrameSize)
	}
	return &Connection{
		d:        d,
		rw:       rw,
		parser:   wire.NewParser(maxFrame),
		tables:   NewTables(),
		id:       cos.GenUUID(),
		isolates: make(map[string]*Isolate),
		lastPong: time.Now(),
	}
}

func (c *Connection) teardown() {
	c.isoMu.Lock()
	for id, iso := range c.isolates {
		iso.Dispose()
		delete(c.isolates, id)
	}
	c.isoMu.Unlock()
	c.tables.FailAll(&cos.ErrConnectionLost{Reason: "connection closed"})
}

// readLoop pulls bytes off rw, feeds the frame parser, and dispatches
// every complete frame. Request frames are handled in their own goroutine
// so one slow request (e.g. one blocked on a nested callback round trip)
// never stalls unrelated frames on the same connection; response/callback/
// PONG frames resolve fast so they run inline.
func (c *Connection) readLoop(ctx context.Context) error {
	var grp sync.WaitGroup
	defer grp.Wait()

	buf := make([]byte, 32*1024)
	for {
		n, err := c.rw.Read(buf)
		if n > 0 {
			raws, perr := c.parser.Feed(buf[:n])
			if perr != nil {
				return perr
			}
			for _, raw := range raws {
				c.d.Metrics.incFramesIn()
				raw := raw
				switch raw.Type {
				case wire.TypePong:
					c.onPong()
				case wire.TypeResponseOK, wire.TypeResponseError, wire.TypeResponseStreamStart,
					wire.TypeCallbackResponse:
					c.resolveFrame(raw)
				default:
					grp.Add(1)
					go func() {
						defer grp.Done()
						c.handleFrame(ctx, raw)
					}()
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// heartbeat sends PING on the configured period and fails every in-flight
// request with *connection lost* once the peer misses LivenessTimeout's
// worth of PONGs (spec.md §4.9, §5).
func (c *Connection) heartbeat(ctx context.Context) error {
	period := 10 * time.Second
	timeout := 30 * time.Second
	if c.d.Cfg != nil {
		if c.d.Cfg.Dispatcher.HeartbeatPeriod > 0 {
			period = c.d.Cfg.Dispatcher.HeartbeatPeriod
		}
		if c.d.Cfg.Dispatcher.LivenessTimeout > 0 {
			timeout = c.d.Cfg.Dispatcher.LivenessTimeout
		}
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	// Closing rw on the way out unblocks readLoop's blocking Read once the
	// liveness monitor (or the parent context) ends the connection —
	// otherwise errgroup.Wait would hang on a goroutine with no way to
	// notice ctx cancellation mid-syscall.
	defer c.closeRW()
	for {
		select {
		case <-ctx.Done():
			return nil // readLoop already ended the connection cleanly
		case <-ticker.C:
			if time.Since(c.lastPongAt()) > timeout {
				err := &cos.ErrConnectionLost{Reason: "liveness timeout"}
				c.tables.FailAll(err)
				return err
			}
			_ = c.writeRaw(wire.TypePing, nil)
		}
	}
}

func (c *Connection) closeRW() {
	if closer, ok := c.rw.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (c *Connection) onPong() {
	c.pongMu.Lock()
	c.lastPong = time.Now()
	c.pongMu.Unlock()
}

func (c *Connection) lastPongAt() time.Time {
	c.pongMu.Lock()
	defer c.pongMu.Unlock()
	return c.lastPong
}

// resolveFrame handles a frame that correlates to something this
// connection is already waiting on: a top-level request's response, or a
// nested CALLBACK_RESPONSE for a callback invoked mid-request.
func (c *Connection) resolveFrame(raw wire.Raw) {
	payload, err := decodePayload(raw.Payload)
	if err != nil {
		nlog.Warningf("dispatch: malformed %v frame: %v", raw.Type, err)
		return
	}
	requestID, _ := payload["requestId"].(int64)
	resp := Response{}
	switch raw.Type {
	case wire.TypeResponseError, wire.TypeCallbackResponse:
		if m, ok := payload["error"]; ok && m != nil {
			resp.Err = &cos.ErrCallback{Reason: toString(m)}
		} else {
			resp.Value = payload["value"]
		}
	default:
		resp.Value = payload["value"]
	}
	c.tables.Resolve(requestID, resp)
}

// handleFrame routes a request frame to its handler and writes back
// exactly one of RESPONSE_OK / RESPONSE_ERROR (streaming responses write
// RESPONSE_STREAM_START followed by chunk/end frames from the stream
// sink's own goroutine, registered via Tables).
func (c *Connection) handleFrame(ctx context.Context, raw wire.Raw) {
	if raw.Type == wire.TypePing {
		_ = c.writeRaw(wire.TypePong, nil)
		return
	}

	c.d.Metrics.requestStarted()
	defer c.d.Metrics.requestFinished()

	payload, err := decodePayload(raw.Payload)
	if err != nil {
		c.writeError(0, &cos.ErrUnmarshalable{Reason: err.Error()})
		return
	}
	requestID, _ := payload["requestId"].(int64)

	if raw.Type == wire.TypeHandleStreamBlob {
		c.handleStreamBlob(requestID, payload)
		return
	}

	var (
		value interface{}
		rerr  error
	)
	switch raw.Type {
	case wire.TypeCreateRuntime:
		value, rerr = c.handleCreateRuntime(payload)
	case wire.TypeDisposeRuntime:
		value, rerr = c.handleDisposeRuntime(payload)
	case wire.TypeRuntimeInfo:
		value, rerr = c.handleRuntimeInfo(payload)
	case wire.TypeRuntimeReset:
		value, rerr = c.handleRuntimeReset(payload)
	case wire.TypeHandleEvaluate:
		value, rerr = c.handleEvaluate(ctx, requestID, payload)
	default:
		rerr = &cos.ErrUnmarshalable{Reason: "unrecognized request frame type"}
	}

	resp := Response{Value: value, Err: rerr}
	switch responseFrameType(resp) {
	case wire.TypeResponseError:
		c.d.Metrics.observeError(codeOf(rerr))
		c.writeError(requestID, rerr)
	default:
		_ = c.writeFrame(wire.TypeResponseOK, map[string]interface{}{
			"requestId": requestID,
			"value":     value,
		})
	}
}

func (c *Connection) handleCreateRuntime(payload map[string]interface{}) (interface{}, error) {
	if c.d.Auth != nil {
		token, _ := payload["authToken"].(string)
		if _, err := c.d.Auth.Verify(token); err != nil {
			return nil, err
		}
	}
	namespaceID, _ := payload["namespaceId"].(string)
	memLimitMB, _ := payload["memoryLimitMB"].(int64)

	if namespaceID != "" && c.d.Pool != nil {
		if iso, ok := c.d.Pool.Take(namespaceID); ok {
			if err := iso.Reset(); err != nil {
				return nil, err
			}
			c.isoMu.Lock()
			c.isolates[iso.ID] = iso
			c.isoMu.Unlock()
			return map[string]interface{}{"isolateId": iso.ID, "reused": true}, nil
		}
	}

	isoID := cos.GenUUID()
	if namespaceID == "" {
		namespaceID = isoID
	}
	ectx, err := c.d.Eng.NewContext(isoID)
	if err != nil {
		return nil, err
	}
	iso, err := NewIsolate(isoID, namespaceID, ectx, memLimitMB)
	if err != nil {
		return nil, err
	}
	c.isoMu.Lock()
	c.isolates[isoID] = iso
	c.isoMu.Unlock()
	return map[string]interface{}{"isolateId": isoID, "reused": false}, nil
}

func (c *Connection) handleDisposeRuntime(payload map[string]interface{}) (interface{}, error) {
	isoID, _ := payload["isolateId"].(string)
	iso, err := c.lookupIsolate(isoID)
	if err != nil {
		return nil, err
	}
	c.isoMu.Lock()
	delete(c.isolates, isoID)
	c.isoMu.Unlock()

	if c.d.Pool != nil {
		if err := c.d.Pool.Put(iso.NamespaceID, iso); err == nil {
			return map[string]interface{}{"pooled": true}, nil
		}
	}
	iso.Dispose()
	return map[string]interface{}{"pooled": false}, nil
}

func (c *Connection) handleRuntimeInfo(payload map[string]interface{}) (interface{}, error) {
	isoID, _ := payload["isolateId"].(string)
	iso, err := c.lookupIsolate(isoID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"isolateId":   iso.ID,
		"namespaceId": iso.NamespaceID,
		"createdAt":   iso.CreatedAt.UnixMilli(),
	}, nil
}

func (c *Connection) handleRuntimeReset(payload map[string]interface{}) (interface{}, error) {
	isoID, _ := payload["isolateId"].(string)
	iso, err := c.lookupIsolate(isoID)
	if err != nil {
		return nil, err
	}
	if err := iso.Reset(); err != nil {
		return nil, err
	}
	return map[string]interface{}{"isolateId": iso.ID}, nil
}

// handleEvaluate runs guest source in the named isolate and marshals the
// result back out. A guest call that reaches into host territory (fetch,
// console, fs) does so through a DefineFunction trampoline registered
// elsewhere; this handler only owns the eval→marshal round trip itself.
func (c *Connection) handleEvaluate(_ context.Context, _ int64, payload map[string]interface{}) (interface{}, error) {
	isoID, _ := payload["isolateId"].(string)
	source, _ := payload["source"].(string)
	filename, _ := payload["filename"].(string)

	iso, err := c.lookupIsolate(isoID)
	if err != nil {
		return nil, err
	}
	filename, err = NormalizeEntryFilename(filename)
	if err != nil {
		return nil, err
	}
	result, err := iso.Ctx.Eval(source, filename)
	if err != nil {
		return nil, &cos.ErrCallback{Reason: err.Error()}
	}
	return toMarshalInput(result, nil)
}

func (c *Connection) lookupIsolate(id string) (*Isolate, error) {
	c.isoMu.Lock()
	defer c.isoMu.Unlock()
	iso, ok := c.isolates[id]
	if !ok {
		return nil, &cos.ErrIsolateNotFound{ID: id}
	}
	return iso, nil
}

// InvokeCallback sends CALLBACK_INVOKE and blocks until the matching
// CALLBACK_RESPONSE(requestId) arrives, reusing the same requestId a
// top-level request is already suspended under (spec.md §4.9: "suspend
// that request until the matching CALLBACK_RESPONSE(requestId) arrives").
func (c *Connection) InvokeCallback(requestID, callbackID int64, args interface{}) (interface{}, error) {
	ch := c.tables.AwaitResponse(requestID)
	if err := c.writeFrame(wire.TypeCallbackInvoke, map[string]interface{}{
		"requestId":  requestID,
		"callbackId": callbackID,
		"args":       args,
	}); err != nil {
		c.tables.Resolve(requestID, Response{Err: err})
		return nil, err
	}
	resp := <-ch
	return resp.Value, resp.Err
}

func (c *Connection) writeError(requestID int64, err error) {
	_ = c.writeFrame(wire.TypeResponseError, map[string]interface{}{
		"requestId": requestID,
		"code":      codeOf(err),
		"message":   err.Error(),
	})
}

// writeRaw writes a frame with no msgpack-encoded body (PING/PONG carry no
// payload on the wire).
func (c *Connection) writeRaw(t wire.Type, payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.rw.Write(wire.Build(t, payload))
	c.d.Metrics.incFramesOut()
	return err
}

func (c *Connection) writeFrame(t wire.Type, payload interface{}) error {
	b, err := codec.Marshal(payload)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.rw.Write(wire.Build(t, b))
	c.d.Metrics.incFramesOut()
	return err
}

func decodePayload(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return map[string]interface{}{}, nil
	}
	v, err := codec.Unmarshal(b)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, &cos.ErrUnmarshalable{Reason: "frame payload is not a map"}
	}
	return m, nil
}

func codeOf(err error) int {
	if coded, ok := err.(cos.Coded); ok {
		return coded.Code()
	}
	return cos.CodeProtocolMalformed
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
