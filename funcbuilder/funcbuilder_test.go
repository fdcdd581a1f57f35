package funcbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/engine/enginetest"
)

func TestDefineAndCall(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	err := Define(ctx, "greet", func(_ context.Context, _ engine.Context, _ engine.Value, args []engine.Value) (engine.Value, error) {
		return enginetest.String("hello " + args[0].String()), nil
	})
	if err != nil {
		t.Fatalf("define: %v", err)
	}

	v, err := ctx.CallFunction(context.Background(), "greet", nil, []engine.Value{enginetest.String("world")})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.String() != "hello world" {
		t.Fatalf("unexpected result: %q", v.String())
	}
}

func TestDefineAsyncAndApplySyncPromise(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	err := DefineAsync(ctx, "fetchish", func(_ context.Context, c engine.Context, _ engine.Value, args []engine.Value) (engine.Promise, error) {
		p := c.NewPromise()
		p.Resolve(enginetest.String("done"))
		return p, nil
	})
	if err != nil {
		t.Fatalf("define async: %v", err)
	}

	p, err := ctx.CallAsyncFunction(context.Background(), "fetchish", nil, nil)
	if err != nil {
		t.Fatalf("call async: %v", err)
	}
	fp := p.(*enginetest.Promise)
	if fp.State() != 1 {
		t.Fatalf("expected resolved promise, state=%d", fp.State())
	}
	if fp.Settled().String() != "done" {
		t.Fatalf("unexpected settled value: %v", fp.Settled())
	}
}

func TestApplySyncPromisePropagatesError(t *testing.T) {
	ctx := enginetest.NewContext("c1")
	fn := func(_ context.Context, _ engine.Context, _ engine.Value, _ []engine.Value) (engine.Promise, error) {
		return nil, errors.New("boom")
	}
	_, err := ApplySyncPromise(context.Background(), ctx, fn, nil, nil, func(p engine.Promise) (engine.Value, error) {
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
