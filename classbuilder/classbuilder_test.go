package classbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/engine/enginetest"
	"github.com/ajsrt/jsrt/registry"
)

func TestEncodeDecodeErrorKnownName(t *testing.T) {
	wire := EncodeError("RangeError", "out of bounds")
	if wire != "[RangeError]out of bounds" {
		t.Fatalf("unexpected encoding: %q", wire)
	}
	name, msg, ok := DecodeError(wire)
	if !ok || name != "RangeError" || msg != "out of bounds" {
		t.Fatalf("decode mismatch: name=%q msg=%q ok=%v", name, msg, ok)
	}
}

func TestEncodeUnknownNameFallsBackToError(t *testing.T) {
	wire := EncodeError("CustomError", "boom")
	if wire != "[Error]boom" {
		t.Fatalf("unexpected encoding: %q", wire)
	}
}

func TestDecodeNoPrefix(t *testing.T) {
	name, msg, ok := DecodeError("plain failure")
	if ok || name != "" || msg != "plain failure" {
		t.Fatalf("expected no-prefix passthrough, got name=%q msg=%q ok=%v", name, msg, ok)
	}
}

func TestInstallAndConstruct(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	reg := registry.New()
	b := New(ctx, reg)

	err := b.Install(engine.ClassSpec{
		Name: "Widget",
		Construct: func(_ context.Context, args []engine.Value) (int64, error) {
			return reg.Alloc(registry.NewBlobState(nil, "text/plain")), nil
		},
		Methods: map[string]engine.MethodSpec{
			"size": {Fn: func(_ context.Context, id int64, _ []engine.Value) (engine.Value, error) {
				return enginetest.Number(0), nil
			}},
		},
		Properties: map[string]engine.PropertySpec{},
	})
	if err != nil {
		t.Fatalf("install: %v", err)
	}

	id, err := ctx.Construct(context.Background(), "Widget", nil)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero instance id")
	}

	v, err := ctx.CallMethod(context.Background(), "Widget", "size", id, nil)
	if err != nil {
		t.Fatalf("call method: %v", err)
	}
	if v.Float64() != 0 {
		t.Fatalf("unexpected return: %v", v)
	}
}

func TestMethodOnMissingInstanceFails(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	reg := registry.New()
	b := New(ctx, reg)

	_ = b.Install(engine.ClassSpec{
		Name: "Widget",
		Methods: map[string]engine.MethodSpec{
			"touch": {Fn: func(_ context.Context, id int64, _ []engine.Value) (engine.Value, error) {
				return enginetest.Undefined(), nil
			}},
		},
		Properties: map[string]engine.PropertySpec{},
	})

	_, err := ctx.CallMethod(context.Background(), "Widget", "touch", 999, nil)
	if err == nil {
		t.Fatal("expected instance-not-found error")
	}
}

func TestConstructErrorIsEncodable(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	reg := registry.New()
	b := New(ctx, reg)

	_ = b.Install(engine.ClassSpec{
		Name: "Widget",
		Construct: func(_ context.Context, _ []engine.Value) (int64, error) {
			return 0, errors.New("bad args")
		},
	})

	_, err := ctx.Construct(context.Background(), "Widget", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	he, ok := err.(*HostError)
	if !ok {
		t.Fatalf("expected *HostError, got %T", err)
	}
	if he.Encoded() != "[Error]bad args" && he.Encoded() != "[TypeError]bad args" {
		t.Fatalf("unexpected encoded form: %q", he.Encoded())
	}
}

type rangeError struct{ msg string }

func (e *rangeError) Error() string { return e.msg }
func (e *rangeError) Name() string  { return "RangeError" }

func TestConstructErrorPreservesNamedErrorType(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	reg := registry.New()
	b := New(ctx, reg)

	_ = b.Install(engine.ClassSpec{
		Name: "Widget",
		Construct: func(_ context.Context, _ []engine.Value) (int64, error) {
			return 0, &rangeError{msg: "out of bounds"}
		},
	})

	_, err := ctx.Construct(context.Background(), "Widget", nil)
	he, ok := err.(*HostError)
	if !ok {
		t.Fatalf("expected *HostError, got %T", err)
	}
	if he.Name != "RangeError" {
		t.Fatalf("expected RangeError preserved, got %q", he.Name)
	}
	if he.Encoded() != "[RangeError]out of bounds" {
		t.Fatalf("unexpected encoded form: %q", he.Encoded())
	}
}

func TestAncestryOf(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	reg := registry.New()
	b := New(ctx, reg)

	_ = b.Install(engine.ClassSpec{Name: "Base"})
	_ = b.Install(engine.ClassSpec{Name: "Mid", Extends: "Base"})
	_ = b.Install(engine.ClassSpec{Name: "Leaf", Extends: "Mid"})

	chain := b.AncestryOf("Leaf")
	if len(chain) != 2 || chain[0] != "Mid" || chain[1] != "Base" {
		t.Fatalf("unexpected ancestry: %v", chain)
	}
}
