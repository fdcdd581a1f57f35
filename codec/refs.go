// Package codec implements the wire payload encoding: the 17-entry
// extension-type registry (spec.md §6) layered on top of
// github.com/tinylib/msgp's runtime (not its codegen — these types are
// hand-rolled msgp.Extension implementations, since the Ref shapes are
// small, fixed, and change independently of any Go struct we'd otherwise
// generate from).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package codec

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Extension type codes, spec.md §6's fixed 17-entry table. Values are
// arbitrary but must stay stable across releases since they appear on the
// wire.
const (
	ExtIsolate int8 = iota
	ExtCallback
	ExtStream
	ExtPromise
	ExtAsyncIterator
	ExtBlob
	ExtDate
	ExtRegExp
	ExtBigInt
	ExtUndefined
	ExtRequest
	ExtResponse
	ExtHeaders
	ExtFile
	ExtFormData
	ExtURL
	ExtUint8Array
)

func init() {
	msgp.RegisterExtension(ExtIsolate, func() msgp.Extension { return new(IsolateRef) })
	msgp.RegisterExtension(ExtCallback, func() msgp.Extension { return new(CallbackRef) })
	msgp.RegisterExtension(ExtStream, func() msgp.Extension { return new(StreamRef) })
	msgp.RegisterExtension(ExtPromise, func() msgp.Extension { return new(PromiseRef) })
	msgp.RegisterExtension(ExtAsyncIterator, func() msgp.Extension { return new(AsyncIteratorRef) })
	msgp.RegisterExtension(ExtBlob, func() msgp.Extension { return new(BlobRef) })
	msgp.RegisterExtension(ExtDate, func() msgp.Extension { return new(DateRef) })
	msgp.RegisterExtension(ExtRegExp, func() msgp.Extension { return new(RegExpRef) })
	msgp.RegisterExtension(ExtBigInt, func() msgp.Extension { return new(BigIntRef) })
	msgp.RegisterExtension(ExtUndefined, func() msgp.Extension { return new(UndefinedRef) })
	msgp.RegisterExtension(ExtRequest, func() msgp.Extension { return new(RequestRef) })
	msgp.RegisterExtension(ExtResponse, func() msgp.Extension { return new(ResponseRef) })
	msgp.RegisterExtension(ExtHeaders, func() msgp.Extension { return new(HeadersRef) })
	msgp.RegisterExtension(ExtFile, func() msgp.Extension { return new(FileRef) })
	msgp.RegisterExtension(ExtFormData, func() msgp.Extension { return new(FormDataRef) })
	msgp.RegisterExtension(ExtURL, func() msgp.Extension { return new(URLRef) })
	msgp.RegisterExtension(ExtUint8Array, func() msgp.Extension { return new(Uint8ArrayRef) })
}

// Every Ref's Len/MarshalBinaryTo are derived from one encode() []byte so
// field layout lives in exactly one place per type, at the cost of
// encoding twice for a fresh Len() call (accepted: these payloads are
// small — handle IDs and scalars, never bulk data, which travels as a
// 0xA0-class stream chunk instead).

// IsolateRef identifies a live guest isolate/context by its opaque string ID.
type IsolateRef struct{ ID string }

func (v *IsolateRef) ExtensionType() int8 { return ExtIsolate }
func (v *IsolateRef) Len() int            { return msgp.StringPrefixSize + len(v.ID) }
func (v *IsolateRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendString(nil, v.ID))
	return err
}
func (v *IsolateRef) UnmarshalBinary(b []byte) error {
	s, _, err := msgp.ReadStringBytes(b)
	v.ID = s
	return err
}

// CallbackRef identifies a host-side function handle reachable from the
// guest: the scope it was allocated in, plus its slot index within that
// scope (spec.md §4.4).
type CallbackRef struct {
	ScopeID int64
	Slot    int64
}

func (v *CallbackRef) ExtensionType() int8 { return ExtCallback }
func (v *CallbackRef) Len() int            { return len(v.encode()) }
func (v *CallbackRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *CallbackRef) encode() []byte {
	out := msgp.AppendInt64(nil, v.ScopeID)
	out = msgp.AppendInt64(out, v.Slot)
	return out
}
func (v *CallbackRef) UnmarshalBinary(b []byte) error {
	scopeID, b, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return err
	}
	slot, _, err := msgp.ReadInt64Bytes(b)
	v.ScopeID, v.Slot = scopeID, slot
	return err
}

// StreamRef identifies a chunked-transfer stream (request/response body,
// WebSocket message stream, or a bridged ReadableStream) by correlation ID.
type StreamRef struct{ StreamID int64 }

func (v *StreamRef) ExtensionType() int8 { return ExtStream }
func (v *StreamRef) Len() int            { return msgp.Int64Size }
func (v *StreamRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendInt64(nil, v.StreamID))
	return err
}
func (v *StreamRef) UnmarshalBinary(b []byte) error {
	id, _, err := msgp.ReadInt64Bytes(b)
	v.StreamID = id
	return err
}

// PromiseRef identifies a guest promise whose settlement the host observes
// asynchronously via CALLBACK_RESPONSE-shaped frames.
type PromiseRef struct{ PromiseID int64 }

func (v *PromiseRef) ExtensionType() int8 { return ExtPromise }
func (v *PromiseRef) Len() int            { return msgp.Int64Size }
func (v *PromiseRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendInt64(nil, v.PromiseID))
	return err
}
func (v *PromiseRef) UnmarshalBinary(b []byte) error {
	id, _, err := msgp.ReadInt64Bytes(b)
	v.PromiseID = id
	return err
}

// AsyncIteratorRef identifies a guest async iterable/iterator bridged to
// the host (spec.md's async iteration support for ReadableStream and
// general for-await-of targets).
type AsyncIteratorRef struct{ IteratorID int64 }

func (v *AsyncIteratorRef) ExtensionType() int8 { return ExtAsyncIterator }
func (v *AsyncIteratorRef) Len() int            { return msgp.Int64Size }
func (v *AsyncIteratorRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendInt64(nil, v.IteratorID))
	return err
}
func (v *AsyncIteratorRef) UnmarshalBinary(b []byte) error {
	id, _, err := msgp.ReadInt64Bytes(b)
	v.IteratorID = id
	return err
}

// BlobRef is an opaque handle into the Instance-State Registry for an
// immutable byte sequence (spec.md §4.5's BlobState), carrying enough
// metadata (size, MIME type, content hash) that the guest doesn't need a
// round trip just to read Blob.size/Blob.type.
type BlobRef struct {
	BlobID string
	Size   int64
	Type   string
	Digest uint64 // xxhash64 of content, for dedup; 0 if not yet computed
}

func (v *BlobRef) ExtensionType() int8 { return ExtBlob }
func (v *BlobRef) Len() int            { return len(v.encode()) }
func (v *BlobRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *BlobRef) encode() []byte {
	out := msgp.AppendString(nil, v.BlobID)
	out = msgp.AppendInt64(out, v.Size)
	out = msgp.AppendString(out, v.Type)
	out = msgp.AppendUint64(out, v.Digest)
	return out
}
func (v *BlobRef) UnmarshalBinary(b []byte) error {
	id, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	size, b, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return err
	}
	typ, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	digest, _, err := msgp.ReadUint64Bytes(b)
	v.BlobID, v.Size, v.Type, v.Digest = id, size, typ, digest
	return err
}

// FileRef extends BlobRef with the two extra File fields (name, last
// modified); kept as a distinct extension type rather than a BlobRef flag
// so unmarshal doesn't need to guess which guest class to construct.
type FileRef struct {
	BlobRef
	Name         string
	LastModified int64 // epoch milliseconds
}

func (v *FileRef) ExtensionType() int8 { return ExtFile }
func (v *FileRef) Len() int            { return len(v.encode()) }
func (v *FileRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *FileRef) encode() []byte {
	out := v.BlobRef.encode()
	out = msgp.AppendString(out, v.Name)
	out = msgp.AppendInt64(out, v.LastModified)
	return out
}
func (v *FileRef) UnmarshalBinary(b []byte) error {
	id, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	size, b, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return err
	}
	typ, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	digest, b, err := msgp.ReadUint64Bytes(b)
	if err != nil {
		return err
	}
	name, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	lastMod, _, err := msgp.ReadInt64Bytes(b)
	v.BlobID, v.Size, v.Type, v.Digest = id, size, typ, digest
	v.Name, v.LastModified = name, lastMod
	return err
}

// DateRef carries a JS Date's underlying epoch-millisecond value; kept
// distinct from a plain number so the marshaller can round-trip it back to
// a guest Date instance instead of a guest number (spec.md §4.3 table).
type DateRef struct{ EpochMillis float64 }

func (v *DateRef) ExtensionType() int8 { return ExtDate }
func (v *DateRef) Len() int            { return msgp.Float64Size }
func (v *DateRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendFloat64(nil, v.EpochMillis))
	return err
}
func (v *DateRef) UnmarshalBinary(b []byte) error {
	f, _, err := msgp.ReadFloat64Bytes(b)
	v.EpochMillis = f
	return err
}

// RegExpRef carries a JS RegExp's source and flags.
type RegExpRef struct {
	Source string
	Flags  string
}

func (v *RegExpRef) ExtensionType() int8 { return ExtRegExp }
func (v *RegExpRef) Len() int            { return len(v.encode()) }
func (v *RegExpRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *RegExpRef) encode() []byte {
	out := msgp.AppendString(nil, v.Source)
	out = msgp.AppendString(out, v.Flags)
	return out
}
func (v *RegExpRef) UnmarshalBinary(b []byte) error {
	src, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	flags, _, err := msgp.ReadStringBytes(b)
	v.Source, v.Flags = src, flags
	return err
}

// BigIntRef carries a JS BigInt's decimal string form; msgpack has no
// native arbitrary-precision integer type, and routing through float64
// would silently lose precision above 2^53 (spec.md §4.3, edge case).
type BigIntRef struct{ Decimal string }

func (v *BigIntRef) ExtensionType() int8 { return ExtBigInt }
func (v *BigIntRef) Len() int            { return msgp.StringPrefixSize + len(v.Decimal) }
func (v *BigIntRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendString(nil, v.Decimal))
	return err
}
func (v *BigIntRef) UnmarshalBinary(b []byte) error {
	s, _, err := msgp.ReadStringBytes(b)
	v.Decimal = s
	return err
}

// UndefinedRef has no payload: its mere presence on the wire distinguishes
// JS `undefined` from msgpack nil, which this protocol reserves for JS
// `null` (spec.md §4.3).
type UndefinedRef struct{}

func (v *UndefinedRef) ExtensionType() int8           { return ExtUndefined }
func (v *UndefinedRef) Len() int                      { return 0 }
func (v *UndefinedRef) MarshalBinaryTo(b []byte) error { return nil }
func (v *UndefinedRef) UnmarshalBinary(b []byte) error { return nil }

// HeadersRef carries a Fetch Headers list as ordered key/value pairs
// (order and duplicate handling matter for the Fetch-adjacent Non-goals
// carve-out: spec.md keeps this representation faithful even though full
// fetch() semantics are out of scope).
type HeadersRef struct{ Pairs [][2]string }

func (v *HeadersRef) ExtensionType() int8 { return ExtHeaders }
func (v *HeadersRef) Len() int            { return len(v.encode()) }
func (v *HeadersRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *HeadersRef) encode() []byte {
	out := msgp.AppendArrayHeader(nil, uint32(len(v.Pairs)))
	for _, p := range v.Pairs {
		out = msgp.AppendString(out, p[0])
		out = msgp.AppendString(out, p[1])
	}
	return out
}
func (v *HeadersRef) UnmarshalBinary(b []byte) error {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return err
	}
	pairs := make([][2]string, n)
	for i := uint32(0); i < n; i++ {
		var k, val string
		k, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		val, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		pairs[i] = [2]string{k, val}
	}
	v.Pairs = pairs
	return nil
}

// RequestRef/ResponseRef hold the minimal identifying fields the bridge
// needs to round-trip a host-constructed Request/Response shim back to the
// guest class built by classbuilder (spec.md §4.5); body content travels
// separately as a StreamRef.
type RequestRef struct {
	Method  string
	URL     string
	Headers HeadersRef
	BodyID  int64 // 0 if no body
}

func (v *RequestRef) ExtensionType() int8 { return ExtRequest }
func (v *RequestRef) Len() int            { return len(v.encode()) }
func (v *RequestRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *RequestRef) encode() []byte {
	out := msgp.AppendString(nil, v.Method)
	out = msgp.AppendString(out, v.URL)
	out = append(out, v.Headers.encode()...)
	out = msgp.AppendInt64(out, v.BodyID)
	return out
}
func (v *RequestRef) UnmarshalBinary(b []byte) error {
	method, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	url, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return err
	}
	pairs := make([][2]string, n)
	for i := uint32(0); i < n; i++ {
		var k, val string
		k, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		val, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		pairs[i] = [2]string{k, val}
	}
	bodyID, _, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return err
	}
	v.Method, v.URL, v.Headers, v.BodyID = method, url, HeadersRef{Pairs: pairs}, bodyID
	return nil
}

type ResponseRef struct {
	Status     int64
	StatusText string
	Headers    HeadersRef
	BodyID     int64
}

func (v *ResponseRef) ExtensionType() int8 { return ExtResponse }
func (v *ResponseRef) Len() int            { return len(v.encode()) }
func (v *ResponseRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *ResponseRef) encode() []byte {
	out := msgp.AppendInt64(nil, v.Status)
	out = msgp.AppendString(out, v.StatusText)
	out = append(out, v.Headers.encode()...)
	out = msgp.AppendInt64(out, v.BodyID)
	return out
}
func (v *ResponseRef) UnmarshalBinary(b []byte) error {
	status, b, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return err
	}
	statusText, b, err := msgp.ReadStringBytes(b)
	if err != nil {
		return err
	}
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return err
	}
	pairs := make([][2]string, n)
	for i := uint32(0); i < n; i++ {
		var k, val string
		k, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		val, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		pairs[i] = [2]string{k, val}
	}
	bodyID, _, err := msgp.ReadInt64Bytes(b)
	if err != nil {
		return err
	}
	v.Status, v.StatusText, v.Headers, v.BodyID = status, statusText, HeadersRef{Pairs: pairs}, bodyID
	return nil
}

// FormDataRef carries a multipart form's fields; file-valued entries
// reference a BlobRef/FileRef by ID rather than embedding content.
type FormDataRef struct {
	Fields []FormField
}

type FormField struct {
	Name   string
	Value  string // empty when IsFile
	IsFile bool
	FileID string // BlobRef/FileRef.BlobID, set when IsFile
}

func (v *FormDataRef) ExtensionType() int8 { return ExtFormData }
func (v *FormDataRef) Len() int            { return len(v.encode()) }
func (v *FormDataRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *FormDataRef) encode() []byte {
	out := msgp.AppendArrayHeader(nil, uint32(len(v.Fields)))
	for _, f := range v.Fields {
		out = msgp.AppendString(out, f.Name)
		out = msgp.AppendBool(out, f.IsFile)
		if f.IsFile {
			out = msgp.AppendString(out, f.FileID)
		} else {
			out = msgp.AppendString(out, f.Value)
		}
	}
	return out
}
func (v *FormDataRef) UnmarshalBinary(b []byte) error {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return err
	}
	fields := make([]FormField, n)
	for i := uint32(0); i < n; i++ {
		var name string
		name, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		var isFile bool
		isFile, b, err = msgp.ReadBoolBytes(b)
		if err != nil {
			return err
		}
		var s string
		s, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
		f := FormField{Name: name, IsFile: isFile}
		if isFile {
			f.FileID = s
		} else {
			f.Value = s
		}
		fields[i] = f
	}
	v.Fields = fields
	return nil
}

// URLRef carries a parsed URL's serialization plus the precomputed parts
// urlapi.URL exposes as getters, so the guest doesn't need a host round
// trip for every `.hostname`/`.pathname` access.
type URLRef struct {
	Href     string
	Protocol string
	Host     string
	Pathname string
	Search   string
	Hash     string
}

func (v *URLRef) ExtensionType() int8 { return ExtURL }
func (v *URLRef) Len() int            { return len(v.encode()) }
func (v *URLRef) MarshalBinaryTo(b []byte) error {
	copy(b, v.encode())
	return nil
}
func (v *URLRef) encode() []byte {
	out := msgp.AppendString(nil, v.Href)
	out = msgp.AppendString(out, v.Protocol)
	out = msgp.AppendString(out, v.Host)
	out = msgp.AppendString(out, v.Pathname)
	out = msgp.AppendString(out, v.Search)
	out = msgp.AppendString(out, v.Hash)
	return out
}
func (v *URLRef) UnmarshalBinary(b []byte) error {
	fields := make([]string, 6)
	var err error
	for i := range fields {
		fields[i], b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return err
		}
	}
	v.Href, v.Protocol, v.Host, v.Pathname, v.Search, v.Hash =
		fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	return nil
}

// Uint8ArrayRef carries raw bytes for a guest Uint8Array/ArrayBuffer view
// too small to be worth the stream-chunk machinery (spec.md's "inline
// binary" fast path; large binary payloads instead go through StreamRef).
type Uint8ArrayRef struct{ Data []byte }

func (v *Uint8ArrayRef) ExtensionType() int8 { return ExtUint8Array }
func (v *Uint8ArrayRef) Len() int            { return msgp.BytesPrefixSize + len(v.Data) }
func (v *Uint8ArrayRef) MarshalBinaryTo(b []byte) error {
	_, err := appendTo(b, msgp.AppendBytes(nil, v.Data))
	return err
}
func (v *Uint8ArrayRef) UnmarshalBinary(b []byte) error {
	data, _, err := msgp.ReadBytesBytes(b, nil)
	v.Data = data
	return err
}

func appendTo(dst, src []byte) ([]byte, error) {
	if len(dst) < len(src) {
		return nil, fmt.Errorf("codec: destination buffer too small: have %d, need %d", len(dst), len(src))
	}
	copy(dst, src)
	return dst, nil
}
