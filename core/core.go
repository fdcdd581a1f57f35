// Package core implements the Core-API Injector (spec.md §4.7): the glue
// that installs Blob/File and DOMException onto a fresh Isolate Context as
// guest-visible classes, backed by host state in that context's registry.
// TextEncoder/Decoder, URL/URLSearchParams, and AbortController/AbortSignal
// are pure-guest implementations per spec.md §4.7 and are generated
// guest-side from the webapi/encoding, webapi/urlapi, and webapi/abortctl
// packages rather than installed here as host classes.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package core

import (
	"context"

	"github.com/ajsrt/jsrt/classbuilder"
	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/registry"
	"github.com/ajsrt/jsrt/scope"
	"github.com/ajsrt/jsrt/webapi/blob"
	"github.com/ajsrt/jsrt/webapi/domexception"
)

// Install wires every host-backed Core-API class onto ctx via b, using reg
// as their shared instance-state registry. Called once per fresh Isolate
// Context (dispatch.NewIsolate), before any guest source runs.
func Install(ctx engine.Context, reg *registry.Registry, b *classbuilder.Builder) error {
	// Blob and File share one Store so Blob's content-dedup index (spec.md
	// §4.7/§11) catches repeats across both constructors, not just within
	// one class.
	store := blob.New(reg)
	if err := installBlob(ctx, store, b); err != nil {
		return err
	}
	if err := installFile(ctx, store, b); err != nil {
		return err
	}
	return installDOMException(ctx, reg, b)
}

func installBlob(ctx engine.Context, store *blob.Store, b *classbuilder.Builder) error {
	return b.Install(engine.ClassSpec{
		Name: "Blob",
		Construct: func(_ context.Context, args []engine.Value) (int64, error) {
			parts, contentType, err := blobCtorArgs(args)
			if err != nil {
				return 0, err
			}
			return store.NewBlob(parts, contentType), nil
		},
		// stream() is not installed here: it returns a *streams.ReadableStream,
		// not an engine.Value, so it crosses the bridge through marshal's own
		// stream-aware path (dispatch calls store.Stream directly) rather than
		// a class-method trampoline.
		Methods: map[string]engine.MethodSpec{
			"slice": {Fn: func(gctx context.Context, id int64, args []engine.Value) (engine.Value, error) {
				return scopedBlobResult(ctx, gctx, id, args, store)
			}},
		},
		Properties: map[string]engine.PropertySpec{
			"size": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				n, err := store.Size(id)
				if err != nil {
					return nil, err
				}
				return ctx.NewNumber(float64(n)), nil
			}},
			"type": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				t, err := store.Type(id)
				if err != nil {
					return nil, err
				}
				return ctx.NewString(t), nil
			}},
		},
	})
}

func installFile(ctx engine.Context, store *blob.Store, b *classbuilder.Builder) error {
	return b.Install(engine.ClassSpec{
		Name:    "File",
		Extends: "Blob",
		// File's constructor shape is (fileBits, fileName, options?), one slot
		// further out than Blob's (fileBits, options?) — fileName sits where
		// Blob expects its options object, so this doesn't reuse blobCtorArgs.
		Construct: func(_ context.Context, args []engine.Value) (int64, error) {
			var parts [][]byte
			if len(args) > 0 && args[0].Kind() == engine.KindArray {
				n := args[0].Len()
				parts = make([][]byte, 0, n)
				for i := 0; i < n; i++ {
					el, err := args[0].Index(i)
					if err != nil {
						return 0, err
					}
					parts = append(parts, partBytes(el))
				}
			}
			name := ""
			if len(args) > 1 {
				name = args[1].String()
			}
			contentType := ""
			var lastModified int64
			if len(args) > 2 && args[2].Kind() == engine.KindObject {
				if v, err := args[2].Get("type"); err == nil && v.Kind() == engine.KindString {
					contentType = v.String()
				}
				if v, err := args[2].Get("lastModified"); err == nil && v.Kind() == engine.KindNumber {
					lastModified = int64(v.Float64())
				}
			}
			return store.NewFile(parts, contentType, name, lastModified), nil
		},
		Properties: map[string]engine.PropertySpec{
			"name": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				n, err := store.Name(id)
				if err != nil {
					return nil, err
				}
				return ctx.NewString(n), nil
			}},
			"lastModified": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				ms, err := store.LastModified(id)
				if err != nil {
					return nil, err
				}
				return ctx.NewNumber(float64(ms)), nil
			}},
		},
	})
}

// scopedBlobResult runs Blob.slice through a Scope so the TypedArray handle
// the resulting Blob's backing bytes would otherwise leak is tracked for
// release alongside every other handle this call allocates (spec.md §4.4).
// slice() itself only needs the new instance ID, but going through
// WithScope keeps this trampoline consistent with every other entry point
// that marshals a Value out of a host call.
func scopedBlobResult(ctx engine.Context, _ context.Context, id int64, args []engine.Value, store *blob.Store) (engine.Value, error) {
	var start, end int64 = 0, -1
	if len(args) > 0 {
		start = int64(args[0].Float64())
	}
	if len(args) > 1 {
		end = int64(args[1].Float64())
	}
	contentType := ""
	if len(args) > 2 {
		contentType = args[2].String()
	}
	result, err := scope.WithScope(ctx, func(s *scope.Scope) (interface{}, error) {
		newID, err := store.Slice(id, start, end, contentType)
		if err != nil {
			return nil, err
		}
		return newID, nil
	})
	if err != nil {
		return nil, err
	}
	return ctx.NewNumber(float64(result.(int64))), nil
}

func blobCtorArgs(args []engine.Value) (parts [][]byte, contentType string, err error) {
	if len(args) > 0 && args[0].Kind() == engine.KindArray {
		n := args[0].Len()
		parts = make([][]byte, 0, n)
		for i := 0; i < n; i++ {
			el, gerr := args[0].Index(i)
			if gerr != nil {
				return nil, "", gerr
			}
			parts = append(parts, partBytes(el))
		}
	}
	if len(args) > 1 && args[1].Kind() == engine.KindObject {
		if v, gerr := args[1].Get("type"); gerr == nil && v.Kind() == engine.KindString {
			contentType = v.String()
		}
	}
	return parts, contentType, nil
}

func partBytes(v engine.Value) []byte {
	if v.Kind() == engine.KindTypedArray {
		return v.Bytes()
	}
	return []byte(v.String())
}

// installDOMException installs the DOMException shim. Unlike the standard
// Error subclasses (classbuilder's EncodeError prefix), DOMException
// crosses the wire as a plain {name, message, code} object the guest shim
// reconstructs — so this exposes a constructor-only class with no methods
// of its own.
func installDOMException(ctx engine.Context, reg *registry.Registry, b *classbuilder.Builder) error {
	return b.Install(engine.ClassSpec{
		Name: "DOMException",
		Construct: func(_ context.Context, args []engine.Value) (int64, error) {
			message, name := "", "Error"
			if len(args) > 0 {
				message = args[0].String()
			}
			if len(args) > 1 {
				name = args[1].String()
			}
			exc := domexception.New(name, message)
			return reg.Alloc(domExceptionState{exc}), nil
		},
		Properties: map[string]engine.PropertySpec{
			"name": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				exc, err := domExceptionOf(reg, id)
				if err != nil {
					return nil, err
				}
				return ctx.NewString(exc.Name), nil
			}},
			"message": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				exc, err := domExceptionOf(reg, id)
				if err != nil {
					return nil, err
				}
				return ctx.NewString(exc.Message), nil
			}},
			"code": {Get: func(_ context.Context, id int64) (engine.Value, error) {
				exc, err := domExceptionOf(reg, id)
				if err != nil {
					return nil, err
				}
				return ctx.NewNumber(float64(exc.Code)), nil
			}},
		},
	})
}

type domExceptionState struct{ *domexception.DOMException }

func (domExceptionState) Kind() string { return "DOMException" }

func domExceptionOf(reg *registry.Registry, id int64) (*domexception.DOMException, error) {
	st, err := reg.Get(id)
	if err != nil {
		return nil, err
	}
	d, ok := st.(domExceptionState)
	if !ok {
		return nil, &notADOMExceptionError{id: id}
	}
	return d.DOMException, nil
}

type notADOMExceptionError struct{ id int64 }

func (e *notADOMExceptionError) Error() string { return "instance is not a DOMException" }

// Name reports this as a TypeError crossing the wire, for the same
// reason webapi/blob's notABlobError does.
func (e *notADOMExceptionError) Name() string { return "TypeError" }
