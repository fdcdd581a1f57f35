// Package enginetest provides a minimal, pure-Go engine.Engine
// implementation used only by this module's own test suites — it is not
// the concrete JS engine (that remains an external collaborator per
// spec.md §1), just enough of the contract to exercise marshal/, scope/,
// registry/, classbuilder/, funcbuilder/ and streams/ without embedding a
// real interpreter.
package enginetest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ajsrt/jsrt/engine"
)

type Value struct {
	kind    engine.Kind
	b       bool
	f       float64
	s       string
	bytes   []byte
	obj     map[string]*Value
	arr     []*Value
	classID int64
	cls     string
}

func (v *Value) Kind() engine.Kind      { return v.kind }
func (v *Value) Bool() bool             { return v.b }
func (v *Value) Float64() float64       { return v.f }
func (v *Value) String() string         { return v.s }
func (v *Value) BigIntDecimal() string  { return v.s }
func (v *Value) Bytes() []byte          { return v.bytes }
func (v *Value) Len() int {
	if v.kind != engine.KindArray {
		return -1
	}
	return len(v.arr)
}
func (v *Value) Keys() []string {
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	return keys
}
func (v *Value) Get(key string) (engine.Value, error) {
	if child, ok := v.obj[key]; ok {
		return child, nil
	}
	return Undefined(), nil
}
func (v *Value) Set(key string, val engine.Value) error {
	if v.obj == nil {
		v.obj = map[string]*Value{}
	}
	v.obj[key] = asFake(val)
	return nil
}
func (v *Value) Index(i int) (engine.Value, error) {
	if i < 0 || i >= len(v.arr) {
		return nil, fmt.Errorf("enginetest: index %d out of range", i)
	}
	return v.arr[i], nil
}
func (v *Value) IsClassInstance() (int64, string, bool) {
	if v.kind == engine.KindObject && v.cls != "" {
		return v.classID, v.cls, true
	}
	return 0, "", false
}

func asFake(v engine.Value) *Value {
	if fv, ok := v.(*Value); ok {
		return fv
	}
	// adapt a foreign engine.Value by snapshotting through its Kind.
	out := &Value{kind: v.Kind(), b: v.Bool(), f: v.Float64(), s: v.String(), bytes: v.Bytes()}
	return out
}

func Undefined() *Value                    { return &Value{kind: engine.KindUndefined} }
func Null() *Value                         { return &Value{kind: engine.KindNull} }
func Bool(b bool) *Value                   { return &Value{kind: engine.KindBoolean, b: b} }
func Number(f float64) *Value              { return &Value{kind: engine.KindNumber, f: f} }
func String(s string) *Value               { return &Value{kind: engine.KindString, s: s} }
func BigInt(decimal string) *Value         { return &Value{kind: engine.KindBigInt, s: decimal} }
func Bytes(b []byte) *Value                { return &Value{kind: engine.KindTypedArray, bytes: b} }
func Object() *Value                       { return &Value{kind: engine.KindObject, obj: map[string]*Value{}} }
func Array(items ...*Value) *Value         { return &Value{kind: engine.KindArray, arr: items} }
func ClassInstance(cls string, id int64) *Value {
	return &Value{kind: engine.KindObject, cls: cls, classID: id, obj: map[string]*Value{}}
}

type handle struct {
	v        *Value
	released bool
}

func (h *handle) Release()        { h.released = true }
func (h *handle) Released() bool  { return h.released }

type Promise struct {
	state   int // 0 pending, 1 resolved, 2 rejected
	value   *Value
	err     error
}

func (p *Promise) Resolve(v engine.Value) error { p.state = 1; p.value = asFake(v); return nil }
func (p *Promise) Reject(err error) error       { p.state = 2; p.err = err; return nil }
func (p *Promise) Value() engine.Value          { return &Value{kind: engine.KindPromise} }
func (p *Promise) State() int                   { return p.state }
func (p *Promise) Err() error                   { return p.err }
func (p *Promise) Settled() *Value              { return p.value }

// Context is a bare-bones stand-in context: globals are a flat map,
// DefineFunction/DefineClass just record the spec for later invocation by
// tests, and Eval is not implemented (no source language to interpret).
type Context struct {
	id        string
	globals   map[string]*Value
	funcs     map[string]engine.HostFunc
	asyncFns  map[string]engine.AsyncHostFunc
	classes   map[string]engine.ClassSpec
	nextID    int64
	instances map[int64]bool
}

func NewContext(id string) *Context {
	return &Context{
		id:        id,
		globals:   map[string]*Value{},
		funcs:     map[string]engine.HostFunc{},
		asyncFns:  map[string]engine.AsyncHostFunc{},
		classes:   map[string]engine.ClassSpec{},
		instances: map[int64]bool{},
	}
}

func (c *Context) ID() string { return c.id }

func (c *Context) Eval(source, filename string) (engine.Value, error) {
	return nil, fmt.Errorf("enginetest: Eval not supported by the fake context")
}

func (c *Context) Global() engine.Value {
	g := Object()
	for k, v := range c.globals {
		g.obj[k] = v
	}
	return g
}

func (c *Context) NewHandle(v engine.Value) engine.Handle { return &handle{v: asFake(v)} }

func (c *Context) DefineFunction(name string, fn engine.HostFunc) error {
	c.funcs[name] = fn
	return nil
}
func (c *Context) DefineAsyncFunction(name string, fn engine.AsyncHostFunc) error {
	c.asyncFns[name] = fn
	return nil
}

// CallFunction/CallAsyncFunction let tests drive a previously-defined
// host function the way a guest trampoline would.
func (c *Context) CallFunction(ctx context.Context, name string, this engine.Value, args []engine.Value) (engine.Value, error) {
	fn, ok := c.funcs[name]
	if !ok {
		return nil, fmt.Errorf("enginetest: function %q not defined", name)
	}
	return fn(ctx, c, this, args)
}
func (c *Context) CallAsyncFunction(ctx context.Context, name string, this engine.Value, args []engine.Value) (engine.Promise, error) {
	fn, ok := c.asyncFns[name]
	if !ok {
		return nil, fmt.Errorf("enginetest: async function %q not defined", name)
	}
	return fn(ctx, c, this, args)
}

func (c *Context) DefineClass(spec engine.ClassSpec) error {
	c.classes[spec.Name] = spec
	return nil
}

// Construct drives a registered class's constructor the way a guest `new`
// expression would.
func (c *Context) Construct(ctx context.Context, className string, args []engine.Value) (int64, error) {
	spec, ok := c.classes[className]
	if !ok {
		return 0, fmt.Errorf("enginetest: class %q not defined", className)
	}
	if spec.Construct == nil {
		return 0, fmt.Errorf("enginetest: class %q has no constructor", className)
	}
	return spec.Construct(ctx, args)
}

func (c *Context) CallMethod(ctx context.Context, className, method string, id int64, args []engine.Value) (engine.Value, error) {
	spec, ok := c.classes[className]
	if !ok {
		return nil, fmt.Errorf("enginetest: class %q not defined", className)
	}
	m, ok := spec.Methods[method]
	if !ok {
		return nil, fmt.Errorf("enginetest: method %q not defined on %q", method, className)
	}
	return m.Fn(ctx, id, args)
}

// CallGetter drives a previously-installed property's Get trampoline the
// way a guest `obj.prop` read would.
func (c *Context) CallGetter(ctx context.Context, className, prop string, id int64) (engine.Value, error) {
	spec, ok := c.classes[className]
	if !ok {
		return nil, fmt.Errorf("enginetest: class %q not defined", className)
	}
	p, ok := spec.Properties[prop]
	if !ok || p.Get == nil {
		return nil, fmt.Errorf("enginetest: property %q has no getter on %q", prop, className)
	}
	return p.Get(ctx, id)
}

func (c *Context) NewUndefined() engine.Value { return Undefined() }
func (c *Context) NewNull() engine.Value      { return Null() }
func (c *Context) NewBool(b bool) engine.Value { return Bool(b) }
func (c *Context) NewNumber(f float64) engine.Value { return Number(f) }
func (c *Context) NewString(s string) engine.Value { return String(s) }
func (c *Context) NewBigInt(decimal string) (engine.Value, error) {
	if _, err := strconv.ParseFloat(decimal, 64); err != nil {
		// still accept: BigInt can exceed float64 range; this is a loose fake
	}
	return BigInt(decimal), nil
}
func (c *Context) NewObject() engine.Value { return Object() }
func (c *Context) NewArray(items []engine.Value) engine.Value {
	fs := make([]*Value, len(items))
	for i, it := range items {
		fs[i] = asFake(it)
	}
	return &Value{kind: engine.KindArray, arr: fs}
}
func (c *Context) NewTypedArray(b []byte) engine.Value { return Bytes(b) }
func (c *Context) NewDate(epochMillis float64) engine.Value {
	return &Value{kind: engine.KindDate, f: epochMillis}
}
func (c *Context) NewRegExp(source, flags string) (engine.Value, error) {
	return &Value{kind: engine.KindRegExp, s: source + "\x00" + flags}, nil
}
func (c *Context) NewPromise() engine.Promise { return &Promise{} }
func (c *Context) NewError(name, message string) engine.Value {
	e := Object()
	e.obj["name"] = String(name)
	e.obj["message"] = String(message)
	return e
}

func (c *Context) Dispose()            {}
func (c *Context) ResetState() error   { c.instances = map[int64]bool{}; return nil }

// NextInstanceID hands out a fresh monotonic ID, mirroring the registry's
// per-context counter (spec.md §3).
func (c *Context) NextInstanceID() int64 {
	c.nextID++
	return c.nextID
}

type Engine struct{}

func (Engine) NewContext(id string) (engine.Context, error) { return NewContext(id), nil }
