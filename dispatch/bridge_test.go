package dispatch

import (
	"testing"

	"github.com/ajsrt/jsrt/engine/enginetest"
	"github.com/ajsrt/jsrt/marshal"
)

func TestToMarshalInputPrimitives(t *testing.T) {
	cases := []struct {
		v    *enginetest.Value
		want interface{}
	}{
		{enginetest.Bool(true), true},
		{enginetest.Number(3.5), 3.5},
		{enginetest.String("hi"), "hi"},
	}
	for _, c := range cases {
		got, err := toMarshalInput(c.v, nil)
		if err != nil {
			t.Fatalf("toMarshalInput: %v", err)
		}
		if got != c.want {
			t.Errorf("got %v, want %v", got, c.want)
		}
	}
}

func TestToMarshalInputArray(t *testing.T) {
	arr := enginetest.Array(enginetest.Number(1), enginetest.Number(2))
	got, err := toMarshalInput(arr, nil)
	if err != nil {
		t.Fatalf("toMarshalInput: %v", err)
	}
	slice, ok := got.([]interface{})
	if !ok || len(slice) != 2 {
		t.Fatalf("unexpected array conversion: %+v", got)
	}
}

func TestToMarshalInputObject(t *testing.T) {
	obj := enginetest.Object()
	obj.Set("a", enginetest.Number(1))
	got, err := toMarshalInput(obj, nil)
	if err != nil {
		t.Fatalf("toMarshalInput: %v", err)
	}
	m, ok := got.(map[string]interface{})
	if !ok || m["a"] != 1.0 {
		t.Fatalf("unexpected object conversion: %+v", got)
	}
}

func TestToMarshalInputClassInstanceFails(t *testing.T) {
	inst := enginetest.ClassInstance("Widget", 1)
	got, err := toMarshalInput(inst, nil)
	if err != nil {
		t.Fatalf("toMarshalInput: %v", err)
	}
	if _, ok := got.(marshal.ClassInstance); !ok {
		t.Fatalf("expected marshal.ClassInstance wrapper, got %+v", got)
	}
	// marshal.Marshal itself must then reject it (spec.md §4.3).
	if _, err := marshal.Marshal(got, marshal.Options{}); err == nil {
		t.Fatal("expected marshal.Marshal to reject an unknown class instance")
	}
}
