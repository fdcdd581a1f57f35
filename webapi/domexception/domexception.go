// Package domexception implements DOMException with the full W3C
// error-code table (spec.md §4.7).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package domexception

// Legacy numeric codes, per the W3C DOM exception-code table. Most modern
// DOMException names carry code 0 (no legacy numeric code assigned); only
// the historical subset below has a nonzero value.
const (
	IndexSizeErr              = 1
	DOMStringSizeErr          = 2
	HierarchyRequestErr       = 3
	WrongDocumentErr          = 4
	InvalidCharacterErr       = 5
	NoDataAllowedErr          = 6
	NoModificationAllowedErr  = 7
	NotFoundErr               = 8
	NotSupportedErr           = 9
	InUseAttributeErr         = 10
	InvalidStateErr           = 11
	SyntaxErr                 = 12
	InvalidModificationErr    = 13
	NamespaceErr              = 14
	InvalidAccessErr          = 15
	ValidationErr             = 16
	TypeMismatchErr           = 17
	SecurityErr               = 18
	NetworkErr                = 19
	AbortErr                  = 20
	URLMismatchErr            = 21
	QuotaExceededErr          = 22
	TimeoutErr                = 23
	InvalidNodeTypeErr        = 24
	DataCloneErr              = 25
)

// legacyCodes maps each W3C-named DOMException to its legacy numeric
// code; names absent here carry code 0.
var legacyCodes = map[string]int{
	"IndexSizeError":             IndexSizeErr,
	"HierarchyRequestError":      HierarchyRequestErr,
	"WrongDocumentError":         WrongDocumentErr,
	"InvalidCharacterError":      InvalidCharacterErr,
	"NoModificationAllowedError": NoModificationAllowedErr,
	"NotFoundError":              NotFoundErr,
	"NotSupportedError":          NotSupportedErr,
	"InUseAttributeError":        InUseAttributeErr,
	"InvalidStateError":          InvalidStateErr,
	"SyntaxError":                SyntaxErr,
	"InvalidModificationError":   InvalidModificationErr,
	"NamespaceError":             NamespaceErr,
	"InvalidAccessError":         InvalidAccessErr,
	"TypeMismatchError":          TypeMismatchErr,
	"SecurityError":              SecurityErr,
	"NetworkError":               NetworkErr,
	"AbortError":                 AbortErr,
	"URLMismatchError":           URLMismatchErr,
	"QuotaExceededError":         QuotaExceededErr,
	"TimeoutError":               TimeoutErr,
	"InvalidNodeTypeError":       InvalidNodeTypeErr,
	"DataCloneError":             DataCloneErr,
	// modern, code-0 names still worth recognizing by name
	"EncodingError":       0,
	"NotReadableError":    0,
	"OperationError":      0,
	"ConstraintError":     0,
}

// DOMException is the host-side representation of a guest DOMException;
// classbuilder's error-prefix encoding does not apply here since
// DOMException is not one of the seven standard Error subclasses — it
// crosses the wire as a DOMExceptionRef-shaped plain object instead
// (name, message, code), decoded by the guest shim into `new
// DOMException(message, name)`.
type DOMException struct {
	Name    string
	Message string
	Code    int
}

func New(name, message string) *DOMException {
	return &DOMException{Name: name, Message: message, Code: legacyCodes[name]}
}

func (e *DOMException) Error() string { return e.Name + ": " + e.Message }
