package dispatch

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/ajsrt/jsrt/classbuilder"
	"github.com/ajsrt/jsrt/engine/enginetest"
	"github.com/ajsrt/jsrt/registry"
	"github.com/ajsrt/jsrt/wire"
)

// streamTestConn wires a Connection directly over a net.Pipe, bypassing
// CREATE_RUNTIME so the test can seed the isolate's registry with a known
// BlobState before asking for it to be streamed.
func streamTestConn(t *testing.T) (*Connection, *clientConn, func()) {
	t.Helper()
	d := testDispatcher(t)
	serverConn, clientSide := net.Pipe()

	c := newConnection(d, serverConn)
	ectx, err := enginetest.Engine{}.NewContext("iso-1")
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	reg := registry.New()
	c.isolates["iso-1"] = &Isolate{
		ID:       "iso-1",
		Ctx:      ectx,
		Registry: reg,
		Classes:  classbuilder.New(ectx, reg),
	}

	go c.readLoop(context.Background())

	return c, newClientConn(clientSide), func() { clientSide.Close() }
}

func TestStreamBlobSendsUncompressedChunkUnderThreshold(t *testing.T) {
	c, cl, closeFn := streamTestConn(t)
	defer closeFn()

	blobID := c.isolates["iso-1"].Registry.Alloc(registry.NewBlobState([][]byte{[]byte("hello stream")}, "text/plain"))

	if err := cl.send(wire.TypeHandleStreamBlob, map[string]interface{}{
		"requestId": int64(1), "isolateId": "iso-1", "blobId": blobID,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	typ, payload := cl.recvPayload(t)
	if typ != wire.TypeResponseStreamStart {
		t.Fatalf("expected RESPONSE_STREAM_START, got %v: %+v", typ, payload)
	}

	typ, payload = cl.recvPayload(t)
	if typ != wire.TypeResponseStreamChunk {
		t.Fatalf("expected RESPONSE_STREAM_CHUNK, got %v: %+v", typ, payload)
	}
	if compressed, _ := payload["compressed"].(bool); compressed {
		t.Fatal("expected an uncompressed chunk below lz4ChunkThreshold")
	}
	data, ok := payload["data"].([]byte)
	if !ok || string(data) != "hello stream" {
		t.Fatalf("unexpected chunk data: %#v", payload["data"])
	}

	typ, _ = cl.recvPayload(t)
	if typ != wire.TypeResponseStreamEnd {
		t.Fatalf("expected RESPONSE_STREAM_END, got %v", typ)
	}
}

func TestStreamBlobCompressesLargeHighlyCompressibleChunk(t *testing.T) {
	c, cl, closeFn := streamTestConn(t)
	defer closeFn()

	big := bytes.Repeat([]byte("a"), lz4ChunkThreshold*2)
	blobID := c.isolates["iso-1"].Registry.Alloc(registry.NewBlobState([][]byte{big}, "text/plain"))

	if err := cl.send(wire.TypeHandleStreamBlob, map[string]interface{}{
		"requestId": int64(2), "isolateId": "iso-1", "blobId": blobID,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	typ, _ := cl.recvPayload(t)
	if typ != wire.TypeResponseStreamStart {
		t.Fatalf("expected RESPONSE_STREAM_START, got %v", typ)
	}

	typ, payload := cl.recvPayload(t)
	if typ != wire.TypeResponseStreamChunk {
		t.Fatalf("expected RESPONSE_STREAM_CHUNK, got %v: %+v", typ, payload)
	}
	compressed, _ := payload["compressed"].(bool)
	if !compressed {
		t.Fatal("expected a highly compressible chunk to be sent lz4-compressed")
	}
	raw, ok := payload["data"].([]byte)
	if !ok {
		t.Fatalf("unexpected chunk data shape: %#v", payload["data"])
	}
	decoded, err := lz4Decompress(raw)
	if err != nil {
		t.Fatalf("lz4Decompress: %v", err)
	}
	if !bytes.Equal(decoded, big) {
		t.Fatal("decompressed chunk does not match original bytes")
	}
}
