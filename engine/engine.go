// Package engine defines the abstract JS-engine capability the bridge is
// built against. Spec scope: "the concrete JS engine (treated as an
// abstract Engine capability: evaluate source, create callable
// host-callbacks, marshal a handful of native primitives, release
// handles)" is an external collaborator — this package is the contract,
// not an embedding of V8/QuickJS/etc.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package engine

import "context"

// Kind tags a Value's native JS type, the minimum vocabulary the bridge
// needs to decide how to marshal something (spec.md §4.3's table).
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindBigInt
	KindString
	KindSymbol
	KindObject
	KindArray
	KindFunction
	KindPromise
	KindDate
	KindRegExp
	KindTypedArray
	KindAsyncIterable
)

// Value is a handle to a guest-side value, opaque except for the
// inspection methods an Engine implementation must provide. Implementations
// are expected to be thin wrappers around whatever representation the
// concrete engine uses internally (e.g. a V8 Local<Value> or a goja.Value).
type Value interface {
	Kind() Kind

	Bool() bool
	Float64() float64
	String() string
	BigIntDecimal() string // decimal string form, for BigIntRef

	// Bytes returns the backing bytes of a TypedArray/ArrayBuffer/DataView.
	Bytes() []byte

	// Keys/Get/Set let the bridge walk a plain object or array without
	// knowing the engine's native representation.
	Keys() []string
	Get(key string) (Value, error)
	Set(key string, v Value) error
	Index(i int) (Value, error)
	Len() int // array length, or -1 if not array-like

	// IsClassInstance reports whether this value is an instance of a
	// guest class the Class Builder installed, and if so its registered
	// instance ID (spec.md §4.5).
	IsClassInstance() (id int64, className string, ok bool)
}

// HostFunc is a host-implemented callback reachable from guest code,
// installed via the Function Builder or as a Class Builder trampoline
// target. args have already been unmarshalled into engine Values native to
// the calling Context; the return Value (or error) is marshalled back.
type HostFunc func(ctx context.Context, c Context, this Value, args []Value) (Value, error)

// AsyncHostFunc is the async twin: it returns a Promise handle immediately
// and settles it later, used by defineAsyncFunction and by callback
// invocations that must suspend the guest (spec.md §4.6).
type AsyncHostFunc func(ctx context.Context, c Context, this Value, args []Value) (Promise, error)

// Promise is the engine-side promise the bridge resolves or rejects from
// host code once an awaited host operation completes.
type Promise interface {
	Resolve(v Value) error
	Reject(err error) error
	Value() Value // the Promise object itself, for returning to guest code
}

// Handle is a disposable reference into the engine's internal handle
// table — what the Handle/Scope Manager (spec.md §4.4) adopts and releases
// in LIFO order. Most Values obtained from a Context are also Handles;
// kept as a distinct, narrower interface so scope bookkeeping doesn't need
// to know about Kind/Get/Set.
type Handle interface {
	Release()
	Released() bool
}

// Context is one guest execution context ("Isolate Context" in spec.md
// §3): a global scope, a handle table, and the entrypoints used to
// install host-backed classes/functions and evaluate guest source.
type Context interface {
	ID() string

	Eval(source, filename string) (Value, error)

	Global() Value

	// NewHandle wraps v so the scope manager can track and release it;
	// implementations that already hand out release-able Values may
	// return a Handle backed by the same underlying reference.
	NewHandle(v Value) Handle

	// DefineFunction/DefineAsyncFunction install a host callback as a
	// named guest global (spec.md §4.6).
	DefineFunction(name string, fn HostFunc) error
	DefineAsyncFunction(name string, fn AsyncHostFunc) error

	// DefineClass installs a guest class shim per a ClassSpec (spec.md §4.5).
	DefineClass(spec ClassSpec) error

	// NewUndefined/NewNull/NewString/... construct guest-native Values
	// from host primitives; the marshaller uses these for the passthrough
	// and Ref-reconstruction directions.
	NewUndefined() Value
	NewNull() Value
	NewBool(b bool) Value
	NewNumber(f float64) Value
	NewString(s string) Value
	NewBigInt(decimal string) (Value, error)
	NewObject() Value
	NewArray(items []Value) Value
	NewTypedArray(b []byte) Value
	NewDate(epochMillis float64) Value
	NewRegExp(source, flags string) (Value, error)
	NewPromise() Promise
	NewError(name, message string) Value

	// Dispose releases every handle the context still owns and tears
	// down its instance-state registry; called on DISPOSE_RUNTIME or
	// when returning the context to the namespace pool (if the pool
	// instead resets it, ResetState is used in place of Dispose).
	Dispose()
	ResetState() error
}

// ClassSpec is the declarative description the Class Builder consumes
// (spec.md §4.5): name, optional constructor/methods/properties/statics,
// optional parent class name.
type ClassSpec struct {
	Name    string
	Extends string

	// Construct allocates fresh instance state and returns its ID; a nil
	// Construct means the class cannot be directly instantiated from
	// guest code (only returned by other host operations).
	Construct func(ctx context.Context, args []Value) (id int64, err error)

	Methods          map[string]MethodSpec
	Properties       map[string]PropertySpec
	StaticMethods    map[string]HostFunc
	StaticProperties map[string]Value
}

type MethodSpec struct {
	Fn    func(ctx context.Context, id int64, args []Value) (Value, error)
	Async bool
}

type PropertySpec struct {
	Get func(ctx context.Context, id int64) (Value, error)
	Set func(ctx context.Context, id int64, v Value) error // nil if read-only
}

// Engine creates and tears down Contexts; the daemon dispatcher holds
// exactly one Engine and multiplexes CREATE_RUNTIME/DISPOSE_RUNTIME
// requests against it.
type Engine interface {
	NewContext(id string) (Context, error)
}
