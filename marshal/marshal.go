// Package marshal implements the Value Marshaller (spec.md §4.3): walks a
// host value graph to a configurable maximum depth, substituting codec
// Refs for non-serializable or identity-bearing constructs, with cycle
// detection and a sync/async split over constructs that must read a body.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package marshal

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ajsrt/jsrt/cmn/cos"
	"github.com/ajsrt/jsrt/codec"
	"github.com/ajsrt/jsrt/registry"
)

const DefaultMaxDepth = 100

// CallbackRegistrar records a guest function so later CallbackRef
// invocations can find it again; implemented by the dispatcher's
// callback table (spec.md §4.9). Kept as an interface here so marshal
// doesn't import dispatch.
type CallbackRegistrar interface {
	RegisterCallback(fn interface{}) (scopeID, slot int64)
}

// BodyReader is implemented by host-side Request/Response/Blob/File/
// FormData stand-ins whose body must be read before they can cross the
// wire — the reason a sync marshal variant refuses them (spec.md §4.3:
// "A sync variant refuses Request/Response/File/Blob/FormData... and
// demands the caller use the async entrypoint").
type BodyReader interface {
	ReadBody(ctx context.Context) ([]byte, error)
}

// Blob is the minimal shape the marshaller needs from a host Blob/File
// value; registry.BlobState and registry.FileState both satisfy it once
// wrapped (see webapi/blob).
type Blob interface {
	MimeType() string
	BlobBytes() []byte
	BlobID() string     // registry key, "" if not yet registered
	BlobDigest() uint64 // xxhash64 of BlobBytes(), for BlobRef.Digest
}

type File interface {
	Blob
	FileName() string
	FileLastModified() int64
}

// Options configures a single marshal call.
type Options struct {
	MaxDepth   int
	Registrar  CallbackRegistrar
	RegisterFn RegisterFunc // used to allocate IDs for Promises/AsyncIterators/Streams
}

// RegisterFunc allocates a host-side correlation ID for values whose
// identity (not just data) must survive the round trip — Promises,
// AsyncIterables, Streams. The dispatcher supplies the concrete
// implementation (its requestId/streamId tables).
type RegisterFunc func(kind string, v interface{}) int64

func (o Options) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

// seen tracks object identity for cycle detection; keyed by pointer
// identity via reflect.Value.Pointer() for maps/slices/pointers, which is
// the closest Go analog to JS object identity for this purpose.
type seen map[uintptr]bool

// Marshal walks v and returns a wire-ready value tree (primitives, Refs,
// map[string]interface{}, []interface{}) per spec.md §4.3's table. It
// refuses (returns cos.ErrUnmarshalable) any value requiring a body read —
// use MarshalAsync for those.
func Marshal(v interface{}, opt Options) (interface{}, error) {
	return walk(v, opt, make(seen), 0, false)
}

// MarshalAsync is Marshal's async twin: it additionally accepts
// BodyReader-backed values (Request/Response/Blob/File/FormData),
// reading their bodies via ctx.
func MarshalAsync(ctx context.Context, v interface{}, opt Options) (interface{}, error) {
	return walkCtx(ctx, v, opt, make(seen), 0, true)
}

func walk(v interface{}, opt Options, s seen, depth int, async bool) (interface{}, error) {
	return walkCtx(context.Background(), v, opt, s, depth, async)
}

func walkCtx(ctx context.Context, v interface{}, opt Options, s seen, depth int, async bool) (interface{}, error) {
	if depth > opt.maxDepth() {
		return nil, &cos.ErrUnmarshalable{Reason: "maximum depth exceeded"}
	}

	switch tv := v.(type) {
	case nil:
		return nil, nil
	case bool, string, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return tv, nil
	case Undefined:
		return &codec.UndefinedRef{}, nil
	case BigInt:
		return &codec.BigIntRef{Decimal: string(tv)}, nil
	case Date:
		return &codec.DateRef{EpochMillis: float64(tv)}, nil
	case RegExp:
		return &codec.RegExpRef{Source: tv.Source, Flags: tv.Flags}, nil
	case URL:
		return &codec.URLRef{
			Href: tv.Href, Protocol: tv.Protocol, Host: tv.Host,
			Pathname: tv.Pathname, Search: tv.Search, Hash: tv.Hash,
		}, nil
	case Headers:
		return &codec.HeadersRef{Pairs: tv.Pairs}, nil
	case []byte:
		return &codec.Uint8ArrayRef{Data: tv}, nil
	case Func:
		if opt.Registrar == nil {
			return nil, &cos.ErrUnmarshalable{Reason: "function value with no callback registrar configured"}
		}
		scopeID, slot := opt.Registrar.RegisterCallback(tv.Fn)
		return &codec.CallbackRef{ScopeID: scopeID, Slot: slot}, nil
	case PromiseLike:
		if opt.RegisterFn == nil {
			return nil, &cos.ErrUnmarshalable{Reason: "promise value with no id registrar configured"}
		}
		return &codec.PromiseRef{PromiseID: opt.RegisterFn("promise", tv)}, nil
	case AsyncIterable:
		if opt.RegisterFn == nil {
			return nil, &cos.ErrUnmarshalable{Reason: "async-iterable value with no id registrar configured"}
		}
		return &codec.AsyncIteratorRef{IteratorID: opt.RegisterFn("asyncIterator", tv)}, nil
	case File:
		if !async {
			return nil, &cos.ErrUnmarshalable{Reason: "File requires the async marshal entrypoint"}
		}
		return &codec.FileRef{
			BlobRef: codec.BlobRef{
				BlobID: tv.BlobID(), Size: int64(len(tv.BlobBytes())), Type: tv.MimeType(),
				Digest: tv.BlobDigest(),
			},
			Name: tv.FileName(), LastModified: tv.FileLastModified(),
		}, nil
	case Blob:
		if !async {
			return nil, &cos.ErrUnmarshalable{Reason: "Blob requires the async marshal entrypoint"}
		}
		return &codec.BlobRef{
			BlobID: tv.BlobID(), Size: int64(len(tv.BlobBytes())), Type: tv.MimeType(),
			Digest: tv.BlobDigest(),
		}, nil
	case Request:
		if !async {
			return nil, &cos.ErrUnmarshalable{Reason: "Request requires the async marshal entrypoint"}
		}
		bodyID, err := registerBody(ctx, tv.Body, opt)
		if err != nil {
			return nil, err
		}
		return &codec.RequestRef{Method: tv.Method, URL: tv.URL, Headers: codec.HeadersRef{Pairs: tv.Headers.Pairs}, BodyID: bodyID}, nil
	case Response:
		if !async {
			return nil, &cos.ErrUnmarshalable{Reason: "Response requires the async marshal entrypoint"}
		}
		bodyID, err := registerBody(ctx, tv.Body, opt)
		if err != nil {
			return nil, err
		}
		return &codec.ResponseRef{Status: int64(tv.Status), StatusText: tv.StatusText, Headers: codec.HeadersRef{Pairs: tv.Headers.Pairs}, BodyID: bodyID}, nil
	case FormData:
		if !async {
			return nil, &cos.ErrUnmarshalable{Reason: "FormData requires the async marshal entrypoint"}
		}
		return marshalFormData(tv), nil
	case map[string]interface{}:
		return walkMap(ctx, tv, opt, s, depth, async)
	case []interface{}:
		return walkSlice(ctx, tv, opt, s, depth, async)
	case Symbol:
		return nil, &cos.ErrUnmarshalable{Reason: "symbol"}
	case ClassInstance:
		return nil, &cos.ErrUnmarshalable{Reason: fmt.Sprintf("class instance %q not in allowlist", tv.ClassName)}
	default:
		return nil, &cos.ErrUnmarshalable{Reason: reflect.TypeOf(v).String()}
	}
}

func registerBody(ctx context.Context, b BodyReader, opt Options) (int64, error) {
	if b == nil || opt.RegisterFn == nil {
		return 0, nil
	}
	data, err := b.ReadBody(ctx)
	if err != nil {
		return 0, err
	}
	return opt.RegisterFn("body", data), nil
}

func walkMap(ctx context.Context, m map[string]interface{}, opt Options, s seen, depth int, async bool) (interface{}, error) {
	ptr := reflect.ValueOf(m).Pointer()
	if s[ptr] {
		return nil, &cos.ErrCircular{}
	}
	s[ptr] = true
	defer delete(s, ptr)

	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		mv, err := walkCtx(ctx, v, opt, s, depth+1, async)
		if err != nil {
			return nil, err
		}
		out[k] = mv
	}
	return out, nil
}

func walkSlice(ctx context.Context, arr []interface{}, opt Options, s seen, depth int, async bool) (interface{}, error) {
	var ptr uintptr
	if len(arr) > 0 {
		ptr = reflect.ValueOf(arr).Pointer()
		if s[ptr] {
			return nil, &cos.ErrCircular{}
		}
		s[ptr] = true
		defer delete(s, ptr)
	}

	out := make([]interface{}, len(arr))
	for i, v := range arr {
		mv, err := walkCtx(ctx, v, opt, s, depth+1, async)
		if err != nil {
			return nil, err
		}
		out[i] = mv
	}
	return out, nil
}

func marshalFormData(fd FormData) *codec.FormDataRef {
	fields := make([]codec.FormField, len(fd.Fields))
	for i, f := range fd.Fields {
		ff := codec.FormField{Name: f.Name}
		if f.File != nil {
			ff.IsFile = true
			ff.FileID = f.File.BlobID()
		} else {
			ff.Value = f.Value
		}
		fields[i] = ff
	}
	return &codec.FormDataRef{Fields: fields}
}

// registry.State values (BlobState/FileState) adapt to the Blob/File
// interfaces above via these thin wrappers, so webapi/blob can hand the
// marshaller its registry-backed state directly.
type RegistryBlob struct {
	ID    string
	State *registry.BlobState
}

func (b RegistryBlob) MimeType() string    { return b.State.Type }
func (b RegistryBlob) BlobBytes() []byte   { return b.State.Bytes() }
func (b RegistryBlob) BlobID() string      { return b.ID }
func (b RegistryBlob) BlobDigest() uint64  { return b.State.Digest() }

type RegistryFile struct {
	ID    string
	State *registry.FileState
}

func (f RegistryFile) MimeType() string        { return f.State.Type }
func (f RegistryFile) BlobBytes() []byte       { return f.State.Bytes() }
func (f RegistryFile) BlobID() string          { return f.ID }
func (f RegistryFile) BlobDigest() uint64      { return f.State.Digest() }
func (f RegistryFile) FileName() string        { return f.State.Name }
func (f RegistryFile) FileLastModified() int64 { return f.State.LastModified }
