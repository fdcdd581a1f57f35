package dispatch

import (
	"time"

	"github.com/ajsrt/jsrt/classbuilder"
	"github.com/ajsrt/jsrt/cmn/nlog"
	"github.com/ajsrt/jsrt/core"
	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/registry"
)

// Isolate is one Isolate Context (spec.md §3): the engine context itself,
// its instance-state registry, and the class builder installed on it. One
// Isolate exists per live or pooled CREATE_RUNTIME.
type Isolate struct {
	ID          string
	NamespaceID string // empty unless CREATE_RUNTIME carried one

	Ctx      engine.Context
	Registry *registry.Registry
	Classes  *classbuilder.Builder

	CreatedAt time.Time
	memLimitB int64
}

// NewIsolate wires a fresh engine.Context into a Registry and Builder, then
// runs the Core-API Injector (spec.md §4.7) over it: every class it
// installs (Blob, File, DOMException) routes its trampolines through this
// context's own registry and builder.
func NewIsolate(id, namespaceID string, ctx engine.Context, memLimitMB int64) (*Isolate, error) {
	reg := registry.New()
	classes := classbuilder.New(ctx, reg)
	if err := core.Install(ctx, reg, classes); err != nil {
		nlog.Warningf("dispatch: core-api injection failed for isolate %s: %v", id, err)
		return nil, err
	}
	return &Isolate{
		ID:          id,
		NamespaceID: namespaceID,
		Ctx:         ctx,
		Registry:    reg,
		Classes:     classes,
		CreatedAt:   time.Now(),
		memLimitB:   memLimitMB * 1024 * 1024,
	}, nil
}

// Reset clears instance state for warm reuse from the namespace pool
// (spec.md §4.9's ResetState path) without tearing down the engine
// context itself.
func (iso *Isolate) Reset() error {
	iso.Registry.Reset()
	return iso.Ctx.ResetState()
}

// Dispose releases every handle the context owns and tears down its
// registry (spec.md §4.4/§4.5): used for DISPOSE_RUNTIME without a
// namespaceId, or final eviction from the pool.
func (iso *Isolate) Dispose() {
	iso.Ctx.Dispose()
	iso.Registry.Reset()
}
