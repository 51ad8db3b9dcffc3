package store

// DebugVariant is a type-erased, non-owning view over a slot (§3/§4.2): a
// byte range inside a store's buffer, or a function index dispatched
// through the store's callback table. It is the Go analogue of the
// teacher's machine.Value: callers type-switch on Type()/Kind() the way
// machine code type-switches on a Value's concrete type.
type DebugVariant struct {
	store  *Store
	typ    Type
	kind   SlotKind
	offset int // buffer offset (Variable) or function index (Function)
	length int
}

// SlotKind distinguishes the two ways a DebugVariant can be backed.
type SlotKind uint8

const (
	// SlotVariable addresses a byte range inside the store's buffer.
	SlotVariable SlotKind = iota
	// SlotFunction addresses a callback in the store's function table.
	SlotFunction
)

// Valid reports whether v was produced by a successful directory lookup.
func (v DebugVariant) Valid() bool { return v.store != nil }

// Type returns the slot's type tag.
func (v DebugVariant) Type() Type { return v.typ }

// Kind reports whether v is a variable or a function slot.
func (v DebugVariant) Kind() SlotKind { return v.kind }

// Len returns the slot's size in bytes: the fixed wire size for numeric/
// bool/pointer kinds, or the explicit length for Blob/String.
func (v DebugVariant) Len() int { return v.length }

// Offset returns the buffer byte offset for a variable slot. It panics if
// v does not address a variable; callers should check Kind() first.
func (v DebugVariant) Offset() int {
	if v.kind != SlotVariable {
		panic("store: Offset called on a function DebugVariant")
	}
	return v.offset
}

// FunctionIndex returns the function table index for a function slot. It
// panics if v does not address a function.
func (v DebugVariant) FunctionIndex() int {
	if v.kind != SlotFunction {
		panic("store: FunctionIndex called on a variable DebugVariant")
	}
	return v.offset
}

// Get copies the slot's current value into dst, returning the number of
// bytes copied. dst must be at least Len() bytes for a variable slot; for
// a function slot, dst is passed through to the callback as its working
// buffer.
func (v DebugVariant) Get(dst []byte) (int, error) {
	return v.store.Get(v, dst)
}

// Set writes src into the slot, returning the number of bytes written.
func (v DebugVariant) Set(src []byte) (int, error) {
	return v.store.Set(v, src)
}
