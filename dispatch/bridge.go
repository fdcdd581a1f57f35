// Converts an engine.Value (a live guest-side value) into the plain Go
// representation marshal.Marshal/MarshalAsync expect as input — the
// direction spec.md §4.3 calls "serialise" on the way out to the wire.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"github.com/ajsrt/jsrt/engine"
	"github.com/ajsrt/jsrt/marshal"
)

// toMarshalInput walks v per its Kind and builds the corresponding
// marshal.* wrapper or native Go value, recursing into objects/arrays.
// registrar is passed through for Function/Promise kinds exactly as
// marshal.Options expects.
func toMarshalInput(v engine.Value, registrar marshal.CallbackRegistrar) (interface{}, error) {
	switch v.Kind() {
	case engine.KindUndefined:
		return marshal.Undefined{}, nil
	case engine.KindNull:
		return nil, nil
	case engine.KindBoolean:
		return v.Bool(), nil
	case engine.KindNumber:
		return v.Float64(), nil
	case engine.KindBigInt:
		return marshal.BigInt(v.BigIntDecimal()), nil
	case engine.KindString:
		return v.String(), nil
	case engine.KindSymbol:
		return marshal.Symbol{Description: v.String()}, nil
	case engine.KindDate:
		return marshal.Date(v.Float64()), nil
	case engine.KindTypedArray:
		return v.Bytes(), nil
	case engine.KindFunction:
		return marshal.Func{Fn: v}, nil
	case engine.KindPromise:
		return marshal.PromiseLike{Value: v}, nil
	case engine.KindAsyncIterable:
		return marshal.AsyncIterable{Value: v}, nil
	case engine.KindArray:
		return arrayToMarshalInput(v, registrar)
	case engine.KindObject:
		if _, className, ok := v.IsClassInstance(); ok {
			return marshal.ClassInstance{ClassName: className}, nil
		}
		return objectToMarshalInput(v, registrar)
	default:
		return nil, &unknownKindError{kind: v.Kind()}
	}
}

func arrayToMarshalInput(v engine.Value, registrar marshal.CallbackRegistrar) (interface{}, error) {
	n := v.Len()
	out := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		el, err := v.Index(i)
		if err != nil {
			return nil, err
		}
		converted, err := toMarshalInput(el, registrar)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func objectToMarshalInput(v engine.Value, registrar marshal.CallbackRegistrar) (interface{}, error) {
	out := make(map[string]interface{})
	for _, k := range v.Keys() {
		fv, err := v.Get(k)
		if err != nil {
			return nil, err
		}
		converted, err := toMarshalInput(fv, registrar)
		if err != nil {
			return nil, err
		}
		out[k] = converted
	}
	return out, nil
}

type unknownKindError struct{ kind engine.Kind }

func (e *unknownKindError) Error() string { return "bridge: unrecognized engine.Kind" }
