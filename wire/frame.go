// Package wire implements the length-prefixed frame protocol: a stateless
// builder and an incremental parser over `[u32 len BE | u8 type | payload]`
// frames (spec.md §4.1, §6).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"encoding/binary"

	"github.com/ajsrt/jsrt/cmn/cos"
)

// Type is the frame's message-type byte. The ranges below mirror spec.md
// §6's fixed table.
type Type byte

const (
	TypeCreateRuntime  Type = 0x01
	TypeDisposeRuntime Type = 0x02
	TypeRuntimeInfo    Type = 0x03
	TypeRuntimeReset   Type = 0x04

	TypeWSOpen  Type = 0x10
	TypeWSSend  Type = 0x11
	TypeWSClose Type = 0x12

	TypeHandleRelease    Type = 0x13
	TypeHandleInspect    Type = 0x14
	TypeHandleStreamBlob Type = 0x15 // pumps a Blob/File's stream() over RESPONSE_STREAM_*
	TypeHandleEvaluate   Type = 0x1B

	TypeTestEnvStart  Type = 0x21
	TypeTestEnvResult Type = 0x22
	TypeTestEnvLog    Type = 0x23
	TypeTestEnvEnd    Type = 0x24

	TypeResponseOK          Type = 0x80
	TypeResponseError       Type = 0x81
	TypeResponseStreamStart Type = 0x82
	TypeResponseStreamChunk Type = 0x83
	TypeResponseStreamEnd   Type = 0x84

	TypeCallbackInvoke       Type = 0x90
	TypeCallbackResponse     Type = 0x91
	TypeCallbackStreamStart  Type = 0x92
	TypeCallbackStreamChunk  Type = 0x93
	TypeCallbackStreamEnd    Type = 0x94
	TypeCallbackStreamCancel Type = 0x95

	TypeStreamChunk Type = 0xA0
	TypeStreamClose Type = 0xA1
	TypeStreamError Type = 0xA2
	TypeStreamAck   Type = 0xA3

	TypeEventNotify Type = 0xC0
	TypeEventError  Type = 0xC1

	TypePing Type = 0xF0
	TypePong Type = 0xF1
)

const (
	hdrLen = 4 + 1 // u32 length + u8 type
	// DefaultMaxFrameSize is comfortably below the spec's "well below 100 MiB" ceiling.
	DefaultMaxFrameSize = 64 * 1024 * 1024
)

// Raw is a decoded-but-not-yet-unmarshalled frame: the type byte and the
// payload bytes, handed to the codec by the caller.
type Raw struct {
	Type    Type
	Payload []byte
}

// Build encodes a single frame: length-prefix (payload length only, not
// including the type byte or the length field itself... spec.md §3: "len
// equals payload length in bytes") followed by the type byte and payload.
func Build(t Type, payload []byte) []byte {
	out := make([]byte, hdrLen+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(payload)))
	out[4] = byte(t)
	copy(out[5:], payload)
	return out
}

// Parser is a stateful, incremental frame decoder: feed it bytes as they
// arrive (however chunked) and it yields every complete frame, buffering
// whatever is partial. It never drops bytes across many small feeds
// (spec.md §4.1's property test).
type Parser struct {
	maxFrameSize uint32
	buf          []byte // reassembly buffer: bytes not yet forming a complete frame
}

func NewParser(maxFrameSize uint32) *Parser {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Parser{maxFrameSize: maxFrameSize}
}

// Feed appends b to the internal reassembly buffer and returns every
// complete frame now available. A frame whose declared length exceeds the
// configured maximum is a fatal protocol error — the caller must close the
// connection; the parser does not attempt to resynchronize.
func (p *Parser) Feed(b []byte) ([]Raw, error) {
	if len(b) > 0 {
		p.buf = append(p.buf, b...)
	}
	var out []Raw
	for {
		if len(p.buf) < hdrLen {
			return out, nil
		}
		plen := binary.BigEndian.Uint32(p.buf[0:4])
		if plen > p.maxFrameSize {
			return out, &cos.ErrFrameTooLarge{Len: plen, Max: p.maxFrameSize}
		}
		total := hdrLen + int(plen)
		if len(p.buf) < total {
			return out, nil // wait for more bytes
		}
		typ := Type(p.buf[4])
		payload := make([]byte, plen)
		copy(payload, p.buf[hdrLen:total])
		out = append(out, Raw{Type: typ, Payload: payload})

		// shift the reassembly buffer down; avoid unbounded growth by
		// reslicing once the consumed prefix dominates the backing array.
		rest := len(p.buf) - total
		if rest == 0 {
			p.buf = p.buf[:0]
		} else {
			copy(p.buf, p.buf[total:])
			p.buf = p.buf[:rest]
		}
	}
}

// Pending returns the number of buffered-but-incomplete bytes, for tests
// and metrics.
func (p *Parser) Pending() int { return len(p.buf) }
