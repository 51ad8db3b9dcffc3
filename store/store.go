package store

import (
	"sort"
	"sync"

	"github.com/dolthub/swiss"

	"github.com/gostored/libstored/directory"
	"github.com/gostored/libstored/storederr"
)

// Store owns one contiguous byte buffer, one borrowed directory blob, and
// one function table (§4.2). It is the only mutator of the buffer;
// DebugVariant handles are non-owning views (§3).
type Store struct {
	cfg       Config
	buf       []byte
	dir       []byte
	functions []Function

	hashOnce sync.Once
	hash     uint64

	offsetIndexOnce sync.Once
	offsetIndex     *swiss.Map[uint32, directory.Entry]
}

// New constructs a Store over buf (owned exclusively from this point on)
// and dir (a directory blob produced by directory.Build or an external
// code generator), dispatching function slots through functions by index.
func New(buf []byte, dir []byte, functions []Function, cfg Config) *Store {
	return &Store{cfg: cfg, buf: buf, dir: dir, functions: functions}
}

// sizeOf tells the directory package which base kinds carry an explicit
// length (Blob, String); see directory.SizeFunc.
func sizeOf(tag byte) bool {
	switch Type(tag).Base() {
	case Blob, String:
		return true
	default:
		return false
	}
}

// Find resolves name (possibly abbreviated, §4.1) to a DebugVariant. The
// zero DebugVariant (Valid() == false) is returned on any failure; §4.1
// distinguishes no failure reason ("no error is distinguished between
// 'not found' and 'bad input'").
func (s *Store) Find(name string) DebugVariant {
	e, ok := directory.Find(s.dir, name, sizeOf)
	if !ok {
		return DebugVariant{}
	}
	return s.variantFromEntry(e)
}

func (s *Store) variantFromEntry(e directory.Entry) DebugVariant {
	typ := Type(e.Type)
	length := e.Length
	if fixed, isFixed := typ.FixedSize(); isFixed {
		length = fixed
	}
	kind := SlotVariable
	if e.Kind == directory.Function {
		kind = SlotFunction
	}
	return DebugVariant{store: s, typ: typ, kind: kind, offset: e.Offset, length: length}
}

// WalkFunc is invoked once per object during List, carrying its full name.
type WalkFunc func(name string, v DebugVariant)

// List performs a pre-order traversal of the directory (§4.1).
func (s *Store) List(fn WalkFunc) {
	directory.List(s.dir, "", sizeOf, func(e directory.Entry) {
		fn(e.Name, s.variantFromEntry(e))
	})
}

// Get copies v's current value into dst, returning the number of bytes
// copied. For a function slot, it invokes the callback with isSet=false.
func (s *Store) Get(v DebugVariant, dst []byte) (int, error) {
	if !v.Valid() {
		return 0, storederr.New(storederr.NotFound, "invalid variant")
	}
	if s.cfg.capabilities()&CapRead == 0 {
		return 0, storederr.New(storederr.Bounds, "store is not readable")
	}
	hooks := s.cfg.hooks()

	if v.kind == SlotFunction {
		if s.cfg.capabilities()&CapFunction == 0 {
			return 0, storederr.New(storederr.Bounds, "function calls disabled")
		}
		return s.CallFunction(v.offset, false, dst)
	}

	if v.offset < 0 || v.offset+v.length > len(s.buf) {
		return 0, storederr.New(storederr.Bounds, "variable out of buffer range")
	}
	if len(dst) < v.length {
		return 0, storederr.New(storederr.TypeMismatch, "destination too small")
	}

	hooks.EntryRO(v.typ, v.offset, v.length)
	n := copy(dst, s.buf[v.offset:v.offset+v.length])
	hooks.ExitRO(v.typ, v.offset, v.length)
	return n, nil
}

// Set writes src into v, returning the number of bytes written. For a
// function slot, it invokes the callback with isSet=true.
func (s *Store) Set(v DebugVariant, src []byte) (int, error) {
	if !v.Valid() {
		return 0, storederr.New(storederr.NotFound, "invalid variant")
	}
	if s.cfg.capabilities()&CapWrite == 0 {
		return 0, storederr.New(storederr.Bounds, "store is not writable")
	}
	hooks := s.cfg.hooks()

	if v.kind == SlotFunction {
		if s.cfg.capabilities()&CapFunction == 0 {
			return 0, storederr.New(storederr.Bounds, "function calls disabled")
		}
		return s.CallFunction(v.offset, true, src)
	}

	if v.offset < 0 || v.offset+v.length > len(s.buf) {
		return 0, storederr.New(storederr.Bounds, "variable out of buffer range")
	}
	if len(src) != v.length {
		return 0, storederr.New(storederr.TypeMismatch, "source size does not match slot size")
	}

	hooks.EntryX(v.typ, v.offset, v.length)
	changed := string(s.buf[v.offset:v.offset+v.length]) != string(src)
	n := copy(s.buf[v.offset:v.offset+v.length], src)
	hooks.ExitX(v.typ, v.offset, v.length, changed)
	return n, nil
}

// CallFunction dispatches fidx directly, bypassing directory lookup. Get
// and Set use it for function slots once resolved to an index.
func (s *Store) CallFunction(fidx int, isSet bool, buf []byte) (int, error) {
	if fidx < 0 || fidx >= len(s.functions) || s.functions[fidx] == nil {
		return 0, storederr.New(storederr.Bounds, "function index out of range")
	}
	return s.functions[fidx](isSet, buf)
}

// BufferToKey returns the byte offset of a variable's slot as a stable
// identifier usable across replicas (§4.2). It never leaks a pointer
// (DESIGN NOTES): the key is just the buffer-relative offset.
func (s *Store) BufferToKey(v DebugVariant) (uint32, error) {
	if !v.Valid() || v.kind != SlotVariable {
		return 0, storederr.New(storederr.NotFound, "not a variable slot")
	}
	return uint32(v.offset), nil
}

// VariantAtKey is the inverse of BufferToKey: given an offset and the type
// recorded for it, it rebuilds a DebugVariant without a name lookup. The
// synchronizer applies Update messages through VariantForKey instead,
// which recovers the type from the directory.
func (s *Store) VariantAtKey(key uint32, typ Type) DebugVariant {
	length, isFixed := typ.FixedSize()
	if !isFixed {
		length = 0
	}
	return DebugVariant{store: s, typ: typ, kind: SlotVariable, offset: int(key), length: length}
}

// VariantForKey resolves a buffer offset produced by BufferToKey back to a
// DebugVariant, without requiring the caller to already know the slot's
// type (§4.5: an Update's key is "a fixed-width offset into the buffer",
// carrying no type alongside it — the receiving replica recovers the type
// from its own copy of the directory, which the schema-hash check in Hello
// guarantees is identical to the sender's). The lookup index is built once,
// lazily, the same way SchemaHash is.
func (s *Store) VariantForKey(key uint32) (DebugVariant, bool) {
	s.offsetIndexOnce.Do(func() {
		s.offsetIndex = swiss.NewMap[uint32, directory.Entry](16)
		directory.List(s.dir, "", sizeOf, func(e directory.Entry) {
			if e.Kind == directory.Variable {
				s.offsetIndex.Put(uint32(e.Offset), e)
			}
		})
	})
	e, ok := s.offsetIndex.Get(key)
	if !ok {
		return DebugVariant{}, false
	}
	return s.variantFromEntry(e), true
}

// Buffer returns the store's backing buffer. Writes through it bypass
// hooks; the debugger's `W` command writes into it directly, while the
// synchronizer applies full-buffer payloads (Welcome, and an Update with
// the all-ones key) through SetBuffer.
func (s *Store) Buffer() []byte { return s.buf }

// SetBuffer overwrites the whole buffer, used by the synchronizer to apply
// a Welcome message's full-buffer payload (§4.5). len(data) must equal the
// store's buffer size.
func (s *Store) SetBuffer(data []byte) error {
	if len(data) != len(s.buf) {
		return storederr.New(storederr.Bounds, "buffer size mismatch")
	}
	copy(s.buf, data)
	return nil
}

// Identification returns the string configured at construction, served by
// the debugger's "i" command.
func (s *Store) Identification() string { return s.cfg.Identification }

// AppVersion returns the application version string served by "v".
func (s *Store) AppVersion() string { return s.cfg.AppVersion }

// ProtocolVersion returns the protocol version string served by "v".
func (s *Store) ProtocolVersion() string { return s.cfg.ProtocolVersion }

// Config exposes the store's configuration (alias/macro/stream capacities,
// logger) to collaborating packages (debugger, replica).
func (s *Store) Config() Config { return s.cfg }

// SchemaHash computes the 64-bit schema identifier (§6): derived from the
// ordered tuple (type, size, full_name) of every variable in the store,
// stable across builds with an identical schema. It is computed once and
// cached.
func (s *Store) SchemaHash() uint64 {
	s.hashOnce.Do(func() {
		s.hash = computeSchemaHash(s)
	})
	return s.hash
}

type schemaEntry struct {
	name string
	typ  byte
	size int
}

func computeSchemaHash(s *Store) uint64 {
	var entries []schemaEntry
	s.List(func(name string, v DebugVariant) {
		if v.Kind() != SlotVariable {
			return
		}
		entries = append(entries, schemaEntry{name: name, typ: byte(v.Type()), size: v.Len()})
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	// FNV-1a over the concatenated (type, size, name) tuples: a simple,
	// dependency-free mixing function is appropriate here since the hash
	// only needs to be stable and well distributed, not cryptographic.
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	mix := func(b byte) { h ^= uint64(b); h *= prime64 }
	for _, e := range entries {
		mix(e.typ)
		mix(byte(e.size))
		mix(byte(e.size >> 8))
		mix(byte(e.size >> 16))
		mix(byte(e.size >> 24))
		for i := 0; i < len(e.name); i++ {
			mix(e.name[i])
		}
		mix(0) // separator
	}
	return h
}
