package scope

import (
	"testing"

	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/engine/enginetest"
)

type recordingHandle struct {
	name     string
	released bool
	order    *[]string
}

func (h *recordingHandle) Release() {
	h.released = true
	*h.order = append(*h.order, h.name)
}
func (h *recordingHandle) Released() bool { return h.released }

func TestWithScopeReleasesLIFO(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	var order []string

	_, err := WithScope(ctx, func(s *Scope) (interface{}, error) {
		s.Manage(&recordingHandle{name: "a", order: &order})
		s.Manage(&recordingHandle{name: "b", order: &order})
		s.Manage(&recordingHandle{name: "c", order: &order})
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c", "b", "a"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("release order mismatch: got %v want %v", order, want)
		}
	}
}

func TestWithScopeReleasesOnError(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	var order []string
	h := &recordingHandle{name: "a", order: &order}

	_, err := WithScope(ctx, func(s *Scope) (interface{}, error) {
		s.Manage(h)
		return nil, assertErr
	})
	if err != assertErr {
		t.Fatalf("expected assertErr, got %v", err)
	}
	if !h.released {
		t.Fatal("expected handle released even on error")
	}
}

var assertErr = errFixture("boom")

type errFixture string

func (e errFixture) Error() string { return string(e) }

func TestAlreadyReleasedHandleSwallowed(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	h := &recordingHandle{name: "a", order: &[]string{}}
	h.released = true // already dead before scope exit

	_, err := WithScope(ctx, func(s *Scope) (interface{}, error) {
		s.Manage(h)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnmarshalTrackerBulkRelease(t *testing.T) {
	tr := NewUnmarshalTracker()
	var order []string
	for _, n := range []string{"x", "y", "z"} {
		tr.Track(&recordingHandle{name: n, order: &order})
	}
	if tr.Len() != 3 {
		t.Fatalf("expected 3 tracked, got %d", tr.Len())
	}
	tr.CleanupUnmarshaledHandles()
	if tr.Len() != 0 {
		t.Fatalf("expected 0 tracked after cleanup, got %d", tr.Len())
	}
	if len(order) != 3 {
		t.Fatalf("expected 3 released, got %d", len(order))
	}
}

var _ engine.Handle = (*recordingHandle)(nil)
