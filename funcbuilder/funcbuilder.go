// Package funcbuilder implements the Function Builder (spec.md §4.6):
// defineFunction/defineAsyncFunction register a plain host callback as a
// named guest global. The async variant blocks the guest until the host
// Promise settles (applySyncPromise semantics) — modeled here as the
// caller awaiting the returned engine.Promise through whatever
// suspension mechanism the dispatcher uses for that context.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package funcbuilder

import (
	"context"

	"github.com/ajsrt/jsrt/engine"
)

// Define installs fn under name on ctx's global (spec.md §4.6).
func Define(ctx engine.Context, name string, fn engine.HostFunc) error {
	return ctx.DefineFunction(name, fn)
}

// DefineAsync installs fn under name on ctx's global as an
// async-returning host function.
func DefineAsync(ctx engine.Context, name string, fn engine.AsyncHostFunc) error {
	return ctx.DefineAsyncFunction(name, fn)
}

// ApplySyncPromise runs an AsyncHostFunc to completion synchronously from
// the host's perspective — it starts the call, then blocks on the
// returned Promise's settlement via the supplied await func. This is the
// host-side half of "blocks the guest until the host Promise settles";
// the guest-side suspension (yielding the engine's event loop while
// waiting) is the concrete engine's responsibility, out of this
// package's scope (spec.md §1's abstract-Engine carve-out).
func ApplySyncPromise(ctx context.Context, c engine.Context, fn engine.AsyncHostFunc, this engine.Value, args []engine.Value, await func(engine.Promise) (engine.Value, error)) (engine.Value, error) {
	p, err := fn(ctx, c, this, args)
	if err != nil {
		return nil, err
	}
	return await(p)
}
