package marshal

import (
	"testing"

	"github.com/ajsrt/jsrt/codec"
)

func TestPassthroughPrimitives(t *testing.T) {
	for _, v := range []interface{}{nil, true, "hi", float64(3.14), int64(7)} {
		out, err := Marshal(v, Options{})
		if err != nil {
			t.Fatalf("marshal %v: %v", v, err)
		}
		if out != v {
			t.Fatalf("expected passthrough, got %v (%T) for input %v (%T)", out, out, v, v)
		}
	}
}

func TestUndefinedBecomesRef(t *testing.T) {
	out, err := Marshal(Undefined{}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(*codec.UndefinedRef); !ok {
		t.Fatalf("expected *codec.UndefinedRef, got %T", out)
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	out, err := Marshal(BigInt("123456789012345678901234567890"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref, ok := out.(*codec.BigIntRef)
	if !ok {
		t.Fatalf("expected *codec.BigIntRef, got %T", out)
	}
	if ref.Decimal != "123456789012345678901234567890" {
		t.Fatalf("precision mismatch: %s", ref.Decimal)
	}
}

func TestPlainObjectRecurses(t *testing.T) {
	in := map[string]interface{}{
		"a": float64(1),
		"b": map[string]interface{}{"c": Undefined{}},
	}
	out, err := Marshal(in, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]interface{})
	inner := m["b"].(map[string]interface{})
	if _, ok := inner["c"].(*codec.UndefinedRef); !ok {
		t.Fatalf("expected nested UndefinedRef, got %T", inner["c"])
	}
}

func TestSymbolFails(t *testing.T) {
	_, err := Marshal(Symbol{Description: "x"}, Options{})
	if err == nil {
		t.Fatal("expected error for symbol")
	}
}

func TestUnknownClassInstanceFails(t *testing.T) {
	_, err := Marshal(ClassInstance{ClassName: "Weird"}, Options{})
	if err == nil {
		t.Fatal("expected error for unlisted class instance")
	}
}

func TestDepthExceeded(t *testing.T) {
	var deep interface{} = float64(1)
	for i := 0; i < 5; i++ {
		deep = map[string]interface{}{"next": deep}
	}
	_, err := Marshal(deep, Options{MaxDepth: 2})
	if err == nil {
		t.Fatal("expected depth-exceeded error")
	}
}

func TestCircularMapFails(t *testing.T) {
	m := map[string]interface{}{}
	m["self"] = m
	_, err := Marshal(m, Options{})
	if err == nil {
		t.Fatal("expected circular-reference error")
	}
}

func TestSyncRefusesBlob(t *testing.T) {
	b := RegistryBlob{ID: "b1"}
	_, err := Marshal(b, Options{})
	if err == nil {
		t.Fatal("expected sync marshal to refuse Blob")
	}
}

type fakeRegistrar struct{}

func (fakeRegistrar) RegisterCallback(fn interface{}) (int64, int64) { return 1, 2 }

func TestFunctionBecomesCallbackRef(t *testing.T) {
	out, err := Marshal(Func{Fn: "whatever"}, Options{Registrar: fakeRegistrar{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref, ok := out.(*codec.CallbackRef)
	if !ok {
		t.Fatalf("expected *codec.CallbackRef, got %T", out)
	}
	if ref.ScopeID != 1 || ref.Slot != 2 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestFunctionWithoutRegistrarFails(t *testing.T) {
	_, err := Marshal(Func{Fn: "whatever"}, Options{})
	if err == nil {
		t.Fatal("expected error with no registrar configured")
	}
}
