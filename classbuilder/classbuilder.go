// Package classbuilder implements the Class Builder (spec.md §4.5): given
// a declarative class description, installs host callbacks for each
// method/property/static member and wires a guest class shim that
// trampolines to them by instance ID, preserving standard Error subclasses
// across the boundary.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package classbuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajsrt/jsrt/cmn/cos"
	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/registry"
)

// knownErrorNames is the fixed set of Error names eligible for in-band
// type-prefix preservation (spec.md §4.5).
var knownErrorNames = map[string]bool{
	"Error": true, "TypeError": true, "RangeError": true,
	"SyntaxError": true, "ReferenceError": true, "URIError": true, "EvalError": true,
}

// EncodeError wraps message with the "[<Name>]" prefix the guest
// trampoline decodes to rethrow the matching constructor. Unknown names
// fall back to plain Error (spec.md §4.5's closing rule).
func EncodeError(name, message string) string {
	if !knownErrorNames[name] {
		name = "Error"
	}
	return fmt.Sprintf("[%s]%s", name, message)
}

// DecodeError reverses EncodeError; ok is false if msg carries no
// recognized prefix, in which case the caller should treat it as a plain
// Error with the original text.
func DecodeError(msg string) (name, message string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", msg, false
	}
	end := strings.IndexByte(msg, ']')
	if end < 0 {
		return "", msg, false
	}
	candidate := msg[1:end]
	if !knownErrorNames[candidate] {
		return "", msg, false
	}
	return candidate, msg[end+1:], true
}

// Builder installs ClassSpecs against one Context and keeps the registry
// each installed class's instances live in.
type Builder struct {
	ctx      engine.Context
	registry *registry.Registry
	parents  map[string]string // child class name -> parent class name
}

func New(ctx engine.Context, reg *registry.Registry) *Builder {
	return &Builder{ctx: ctx, registry: reg, parents: map[string]string{}}
}

// Install wires spec onto the Context: a Construct trampoline that
// allocates registry state and returns its ID, method/property trampolines
// keyed by `__<Name>_<op>` per spec.md §4.5, and extends-chain bookkeeping.
func (b *Builder) Install(spec engine.ClassSpec) error {
	if spec.Extends != "" {
		if _, ok := b.parents[spec.Extends]; spec.Extends != "" && !ok {
			// parent need not have been installed by this Builder (it may
			// already exist as a guest-native class like Error); record the
			// edge regardless so AncestryOf can walk it if it was.
		}
		b.parents[spec.Name] = spec.Extends
	}

	wrapped := spec
	if spec.Construct != nil {
		inner := spec.Construct
		wrapped.Construct = func(ctx context.Context, args []engine.Value) (int64, error) {
			id, err := inner(ctx, args)
			if err != nil {
				return 0, wrapConstructError(spec.Name, err)
			}
			return id, nil
		}
	}

	for name, m := range spec.Methods {
		wrapped.Methods[name] = b.wrapMethod(spec.Name, m)
	}
	for name, p := range spec.Properties {
		wrapped.Properties[name] = b.wrapProperty(spec.Name, p)
	}

	return b.ctx.DefineClass(wrapped)
}

// wrapMethod installs the "absent state yields Instance <id> not found"
// rule and error-prefix encoding around the user's method function
// (spec.md §4.5).
func (b *Builder) wrapMethod(className string, m engine.MethodSpec) engine.MethodSpec {
	inner := m.Fn
	m.Fn = func(ctx context.Context, id int64, args []engine.Value) (engine.Value, error) {
		if _, err := b.registry.Get(id); err != nil {
			return nil, &cos.ErrInstanceNotFound{ID: id}
		}
		v, err := inner(ctx, id, args)
		if err != nil {
			return nil, wrapConstructError(className, err)
		}
		return v, nil
	}
	return m
}

func (b *Builder) wrapProperty(className string, p engine.PropertySpec) engine.PropertySpec {
	if p.Get != nil {
		inner := p.Get
		p.Get = func(ctx context.Context, id int64) (engine.Value, error) {
			if _, err := b.registry.Get(id); err != nil {
				return nil, &cos.ErrInstanceNotFound{ID: id}
			}
			v, err := inner(ctx, id)
			if err != nil {
				return nil, wrapConstructError(className, err)
			}
			return v, nil
		}
	}
	if p.Set != nil {
		inner := p.Set
		p.Set = func(ctx context.Context, id int64, v engine.Value) error {
			if _, err := b.registry.Get(id); err != nil {
				return &cos.ErrInstanceNotFound{ID: id}
			}
			if err := inner(ctx, id, v); err != nil {
				return wrapConstructError(className, err)
			}
			return nil
		}
	}
	return p
}

// named is implemented by errors that know their own JS error-constructor
// name (e.g. RangeError, SyntaxError) rather than collapsing to the
// TypeError/Error default — webapi/encoding's jsError and this package's
// own HostError both satisfy it.
type named interface{ Name() string }

// wrapConstructError applies EncodeError to any error the host raises
// from inside a trampoline. An error that already carries a specific
// name (HostError, or anything implementing named) keeps it; otherwise
// TypeError is the default for a Coded execution error, consistent with
// how a JS engine raises TypeError for most host-exception surfaces.
func wrapConstructError(className string, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := err.(*HostError); ok {
		return he
	}
	name := "Error"
	switch {
	case isNamed(err):
		name = err.(named).Name()
	case isExecutionThrew(err):
		name = "TypeError"
	}
	return &HostError{Name: name, Message: err.Error(), className: className}
}

func isNamed(err error) bool {
	_, ok := err.(named)
	return ok
}

func isExecutionThrew(err error) bool {
	coded, ok := err.(cos.Coded)
	return ok && coded.Code() == cos.CodeExecutionThrew
}

// HostError is the Go-side representation of an encoded host exception;
// classbuilder callers marshal it back across the wire using its Encoded
// form, and the guest trampoline (outside this module's scope — it is
// guest-side generated code) decodes the prefix.
type HostError struct {
	Name      string
	Message   string
	className string
}

func (e *HostError) Error() string { return e.Message }

// Encoded returns the "[<Name>]<message>" wire form (spec.md §4.5).
func (e *HostError) Encoded() string { return EncodeError(e.Name, e.Message) }

// AncestryOf walks the extends chain recorded at Install time, innermost
// class first, for diagnostics and for deciding which trampolines a
// generated guest class needs to shadow.
func (b *Builder) AncestryOf(className string) []string {
	var chain []string
	cur := className
	for {
		parent, ok := b.parents[cur]
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}
