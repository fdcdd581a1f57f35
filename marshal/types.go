package marshal

// These wrapper types give the marshaller's type switch something
// concrete to match without depending on engine.Value directly — callers
// bridging from a real engine.Value (see webapi/, classbuilder/) convert
// to these before calling Marshal/MarshalAsync. Plain Go primitives,
// map[string]interface{} and []interface{} pass straight through per
// spec.md §4.3's table.

type Undefined struct{}

type BigInt string // decimal string form

type Date float64 // epoch milliseconds

type RegExp struct {
	Source string
	Flags  string
}

type URL struct {
	Href, Protocol, Host, Pathname, Search, Hash string
}

type Headers struct {
	Pairs [][2]string
}

type Symbol struct{ Description string }

// Func wraps a guest function value; Fn is whatever opaque representation
// the engine + CallbackRegistrar pair expects (typically an engine.Value).
type Func struct{ Fn interface{} }

// PromiseLike wraps a guest Promise value with the same registrar
// contract as Func.
type PromiseLike struct{ Value interface{} }

// AsyncIterable wraps a guest async-iterable value.
type AsyncIterable struct{ Value interface{} }

type Request struct {
	Method, URL string
	Headers     Headers
	Body        BodyReader
}

type Response struct {
	Status     int
	StatusText string
	Headers    Headers
	Body       BodyReader
}

type FormField struct {
	Name  string
	Value string
	File  Blob // nil unless this field is a file entry
}

type FormData struct {
	Fields []FormField
}

// ClassInstance marks a guest class instance that isn't one of the
// allowlisted native-analog types above — the marshaller always fails on
// these (spec.md §4.3: "class instance not in allowlist: FAILS").
type ClassInstance struct{ ClassName string }
