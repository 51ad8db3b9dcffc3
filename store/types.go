// Package store implements the typed, debuggable data store (§3/§4.2): a
// contiguous byte buffer addressed through a directory of named variables
// and function slots, plus the type-erased DebugVariant view over them.
package store

import "fmt"

// Type is the one-byte type tag carried by every slot (§3). The upper bit
// is the function flag; the lower bits select one of the base kinds.
type Type uint8

// FunctionFlag marks a Type as addressing a function slot rather than a
// buffer range. It is combined with a base Type via bitwise or.
const FunctionFlag Type = 0x80

// Base kinds, §3. Numeric/bool/pointer kinds have a fixed wire size; Blob
// and String carry an explicit length alongside the type tag.
const (
	Int8 Type = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float
	Double
	Bool
	Pointer32
	Pointer64
	Blob
	String
	Invalid
)

var typeNames = [...]string{
	Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64",
	Uint8: "uint8", Uint16: "uint16", Uint32: "uint32", Uint64: "uint64",
	Float: "float", Double: "double", Bool: "bool",
	Pointer32: "ptr32", Pointer64: "ptr64",
	Blob: "blob", String: "string", Invalid: "invalid",
}

// IsFunction reports whether t addresses a function slot.
func (t Type) IsFunction() bool { return t&FunctionFlag != 0 }

// Base strips the function flag, returning the underlying value kind.
func (t Type) Base() Type { return t &^ FunctionFlag }

// AsFunction returns t with the function flag set.
func (t Type) AsFunction() Type { return t | FunctionFlag }

// String renders the type as a readable name for diagnostics; the "l"
// (list) command reports the raw tag in hex instead.
func (t Type) String() string {
	base := t.Base()
	name := "<invalid>"
	if int(base) < len(typeNames) {
		name = typeNames[base]
	}
	if t.IsFunction() {
		return name + "()"
	}
	return name
}

// FixedSize returns the wire size of t's base kind and whether it is fixed.
// Blob and String are not fixed: their length is carried alongside the
// directory entry (for variables) or is simply whatever the caller passes
// (for function slots).
func (t Type) FixedSize() (int, bool) {
	switch t.Base() {
	case Int8, Uint8, Bool:
		return 1, true
	case Int16, Uint16:
		return 2, true
	case Int32, Uint32, Float, Pointer32:
		return 4, true
	case Int64, Uint64, Double, Pointer64:
		return 8, true
	default:
		return 0, false
	}
}

// Valid reports whether t is a recognized, non-Invalid base kind.
func (t Type) Valid() bool {
	base := t.Base()
	return base < Invalid
}

// errInvalidType describes a tag byte that does not decode to a known
// type. Nothing in this package returns it.
var errInvalidType = fmt.Errorf("invalid type tag")
