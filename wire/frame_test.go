package wire

import (
	"math/rand"
	"testing"

	"github.com/ajsrt/jsrt/cmn/cos"
)

func TestBuildParseRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	frame := Build(TypeCreateRuntime, payload)

	p := NewParser(0)
	frames, err := p.Feed(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Type != TypeCreateRuntime {
		t.Fatalf("type mismatch: got %x", frames[0].Type)
	}
	if string(frames[0].Payload) != string(payload) {
		t.Fatalf("payload mismatch: got %q", frames[0].Payload)
	}
	if p.Pending() != 0 {
		t.Fatalf("expected no pending bytes, got %d", p.Pending())
	}
}

// TestIncrementalFeed exercises spec.md's byte-at-a-time/arbitrary-chunking
// invariant: however a stream of frames is sliced before reaching Feed, the
// decoded sequence must be identical.
func TestIncrementalFeed(t *testing.T) {
	var want [][]byte
	var all []byte
	for i := 0; i < 50; i++ {
		n := rand.Intn(200)
		payload := make([]byte, n)
		rand.Read(payload)
		want = append(want, payload)
		all = append(all, Build(TypeResponseOK, payload)...)
	}

	p := NewParser(0)
	var got [][]byte
	for len(all) > 0 {
		n := 1 + rand.Intn(7)
		if n > len(all) {
			n = len(all)
		}
		chunk := all[:n]
		all = all[n:]
		frames, err := p.Feed(chunk)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, f := range frames {
			got = append(got, f.Payload)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Fatalf("frame %d mismatch", i)
		}
	}
}

func TestOversizeFrameRejected(t *testing.T) {
	p := NewParser(8)
	frame := Build(TypePing, make([]byte, 32))
	_, err := p.Feed(frame)
	if err == nil {
		t.Fatal("expected ErrFrameTooLarge")
	}
	var tooBig *cos.ErrFrameTooLarge
	if !cosErrAs(err, &tooBig) {
		t.Fatalf("expected *cos.ErrFrameTooLarge, got %T: %v", err, err)
	}
}

func cosErrAs(err error, target **cos.ErrFrameTooLarge) bool {
	e, ok := err.(*cos.ErrFrameTooLarge)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestEmptyPayloadFrame(t *testing.T) {
	p := NewParser(0)
	frames, err := p.Feed(Build(TypePong, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || len(frames[0].Payload) != 0 {
		t.Fatalf("expected one empty-payload frame, got %+v", frames)
	}
}
