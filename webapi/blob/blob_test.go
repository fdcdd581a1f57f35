package blob

import (
	"testing"

	"github.com/ajsrt/jsrt/registry"
	"github.com/ajsrt/jsrt/streams"
)

func TestBlobSizeAndType(t *testing.T) {
	s := New(registry.New())
	id := s.NewBlob([][]byte{[]byte("hello"), []byte(" world")}, "Text/Plain")
	size, err := s.Size(id)
	if err != nil || size != 11 {
		t.Fatalf("size: %v %v", size, err)
	}
	typ, err := s.Type(id)
	if err != nil || typ != "text/plain" {
		t.Fatalf("type: %q %v", typ, err)
	}
}

func TestFileNameAndLastModified(t *testing.T) {
	s := New(registry.New())
	id := s.NewFile([][]byte{[]byte("data")}, "text/plain", "a.txt", 12345)
	name, err := s.Name(id)
	if err != nil || name != "a.txt" {
		t.Fatalf("name: %q %v", name, err)
	}
	lm, err := s.LastModified(id)
	if err != nil || lm != 12345 {
		t.Fatalf("lastModified: %v %v", lm, err)
	}
}

func TestFileDefaultsLastModifiedToNow(t *testing.T) {
	s := New(registry.New())
	id := s.NewFile([][]byte{[]byte("data")}, "text/plain", "a.txt", 0)
	lm, err := s.LastModified(id)
	if err != nil || lm == 0 {
		t.Fatalf("expected nonzero default lastModified, got %v %v", lm, err)
	}
}

func TestBlobNameFailsOnPlainBlob(t *testing.T) {
	s := New(registry.New())
	id := s.NewBlob([][]byte{[]byte("x")}, "text/plain")
	if _, err := s.Name(id); err == nil {
		t.Fatal("expected error calling Name on a plain Blob")
	}
}

func TestSliceNormalizesNegativeIndices(t *testing.T) {
	s := New(registry.New())
	id := s.NewBlob([][]byte{[]byte("hello world")}, "text/plain")
	sliced, err := s.Slice(id, -5, -1, "")
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	data, err := s.Bytes(sliced)
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if string(data) != "worl" {
		t.Fatalf("expected %q, got %q", "worl", data)
	}
}

func TestSliceOverridesContentType(t *testing.T) {
	s := New(registry.New())
	id := s.NewBlob([][]byte{[]byte("hello")}, "text/plain")
	sliced, err := s.Slice(id, 0, 5, "Application/JSON")
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	typ, _ := s.Type(sliced)
	if typ != "application/json" {
		t.Fatalf("expected overridden lowercased type, got %q", typ)
	}
}

func TestStreamEnqueuesWholeBufferThenCloses(t *testing.T) {
	s := New(registry.New())
	id := s.NewBlob([][]byte{[]byte("payload")}, "text/plain")
	rs, err := s.Stream(id)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	r, err := streams.AcquireReader(rs)
	if err != nil {
		t.Fatalf("acquire reader: %v", err)
	}
	res, err := r.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data, ok := res.Value.([]byte)
	if !ok || string(data) != "payload" {
		t.Fatalf("unexpected first chunk: %+v", res.Value)
	}
	res, err = r.Read()
	if err != nil || !res.Done {
		t.Fatalf("expected done after single chunk, got %+v %v", res, err)
	}
}

func TestUnknownIDFails(t *testing.T) {
	s := New(registry.New())
	if _, err := s.Size(999); err == nil {
		t.Fatal("expected error for unknown instance id")
	}
}
