// Package directory implements the compact binary trie that maps
// hierarchical object names to typed storage slots or function indices
// (§3, §4.1 of the design). The package knows nothing about the store's
// type system beyond "is this base kind fixed-size or does it carry an
// explicit length" (SizeFunc) — everything else is opaque bytes, matching
// how the teacher's resolver package resolves names to Bindings without
// knowing anything about the machine's runtime Values.
package directory

// Node kind discriminators. Object-name bytes are restricted to the
// printable ASCII range 0x20..0x7e (§6), so control bytes outside of the
// Hierarchy marker are free for structural use; this implementation keeps
// every non-Var node strictly below 0x80 and marks a Var node with the
// single byte nodeVar (0x80) followed by a separate type-tag byte; any
// other byte above 0x7e is rejected as corrupt (see DESIGN.md for
// why this deviates from the single-byte "0x80|type" packing of §3's
// prose: the directory format here is internal and never required to be
// byte-compatible with the out-of-scope code-generation front end).
const (
	nodeEnd       = 0x00
	nodeHierarchy = 0x2f // '/'
	nodeVar       = 0x80
	// 0x01..0x1f: Skip n — n literal bytes follow, consumed verbatim.
	// 0x20..0x7e, except 0x2f: Char branch node.
)

const (
	skipMin = 0x01
	skipMax = 0x1f
)

// Kind distinguishes a found Entry's slot kind.
type Kind uint8

const (
	// Variable is a byte-range slot inside the store buffer.
	Variable Kind = iota
	// Function is a callback slot dispatched through a function index.
	Function
)

// Entry is what Find/List report for a successfully matched name.
type Entry struct {
	Type   byte   // raw type tag, including the function-flag bit (§3)
	Kind   Kind   // Variable or Function
	Offset int    // buffer byte offset (Variable) or function index (Function)
	Length int    // explicit length for variable-length base kinds, else 0
	Name   string // the full name this entry was reached under (List only)
}

// SizeFunc tells the walker whether a base type tag carries an explicit
// length in the directory (Blob/String, §3) or not (everything else, whose
// size is implied by the type alone and is the caller's business, not the
// directory's).
type SizeFunc func(tag byte) (isVariableLength bool)

// functionFlag mirrors store.FunctionFlag; duplicated here so this package
// has no dependency on the store package (see package doc).
const functionFlag = 0x80

// Find walks dir against name starting at the root (offset 0 in dir),
// honoring scope abbreviation: at each branch the shortest unambiguous
// prefix of name may stand in for the full branch character, and a `/` in
// name forces descent past the next hierarchy separator. It returns
// ok=false if name does not resolve to exactly one Var node.
func Find(dir []byte, name string, sizeOf SizeFunc) (e Entry, ok bool) {
	pos := 0
	idx := 0
	for {
		if pos >= len(dir) {
			return Entry{}, false
		}
		b := dir[pos]
		switch {
		case b == nodeEnd:
			return Entry{}, false

		case b >= skipMin && b <= skipMax:
			n := int(b)
			if pos+1+n > len(dir) {
				return Entry{}, false
			}
			lit := dir[pos+1 : pos+1+n]
			if idx+n > len(name) {
				return Entry{}, false
			}
			if string(lit) != name[idx:idx+n] {
				return Entry{}, false
			}
			idx += n
			pos += 1 + n

		case b == nodeHierarchy:
			rest := name[idx:]
			slash := indexByte(rest, '/')
			if slash < 0 {
				return Entry{}, false
			}
			idx += slash + 1
			pos++

		case b == nodeVar:
			if pos+1 >= len(dir) {
				return Entry{}, false
			}
			tag := dir[pos+1]
			p := pos + 2
			var length int
			if sizeOf != nil && sizeOf(tag) {
				l, n, ok2 := decodeVLQ(dir[p:])
				if !ok2 {
					return Entry{}, false
				}
				length = int(l)
				p += n
			}
			off, n, ok2 := decodeVLQ(dir[p:])
			if !ok2 {
				return Entry{}, false
			}
			p += n
			if idx != len(name) {
				return Entry{}, false
			}
			kind := Variable
			if tag&functionFlag != 0 {
				kind = Function
			}
			return Entry{Type: tag, Kind: kind, Offset: int(off), Length: length}, true

		case b < 0x20 || b > 0x7e:
			// corrupt directory: not a recognized node kind
			return Entry{}, false

		default: // Char branch node, 0x20..0x7e except nodeHierarchy
			c := b
			p := pos + 1
			loRaw, n1, ok1 := decodeVLQ(dir[p:])
			if !ok1 {
				return Entry{}, false
			}
			p += n1
			hiRaw, n2, ok2 := decodeVLQ(dir[p:])
			if !ok2 {
				return Entry{}, false
			}
			p += n2
			eqPos := p

			loTarget, hiTarget := -1, -1
			if loRaw != 0 {
				loTarget = int(loRaw) - 1
			}
			if hiRaw != 0 {
				hiTarget = int(hiRaw) - 1
			}

			if idx >= len(name) {
				// Abbreviation: name exhausted exactly at this branch. The
				// abbreviation is sound only if exactly one of the three
				// children is reachable (non-End).
				candidates := 0
				var next int
				if loTarget >= 0 && !isDeadEnd(dir, loTarget) {
					candidates++
					next = loTarget
				}
				if hiTarget >= 0 && !isDeadEnd(dir, hiTarget) {
					candidates++
					next = hiTarget
				}
				if !isDeadEnd(dir, eqPos) {
					candidates++
					next = eqPos
				}
				if candidates != 1 {
					return Entry{}, false
				}
				pos = next
				continue
			}

			ch := name[idx]
			switch {
			case ch < c:
				if loTarget < 0 {
					return Entry{}, false
				}
				pos = loTarget
			case ch > c:
				if hiTarget < 0 {
					return Entry{}, false
				}
				pos = hiTarget
			default:
				idx++
				pos = eqPos
			}
		}
	}
}

func isDeadEnd(dir []byte, pos int) bool {
	return pos < 0 || pos >= len(dir) || dir[pos] == nodeEnd
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

// WalkFunc is invoked once per matched name during List, in directory
// (pre-order, lexicographic-by-branch) order.
type WalkFunc func(Entry)

// List performs a pre-order traversal of dir, emitting the full name of
// every Var node reachable under prefix, in directory order (§4.1: "list
// builds names into a mutable buffer").
func List(dir []byte, prefix string, sizeOf SizeFunc, cb WalkFunc) {
	var buf []byte
	buf = append(buf, prefix...)
	walk(dir, 0, buf, sizeOf, cb)
}

func walk(dir []byte, pos int, name []byte, sizeOf SizeFunc, cb WalkFunc) {
	if pos >= len(dir) {
		return
	}
	b := dir[pos]
	switch {
	case b == nodeEnd:
		return

	case b >= skipMin && b <= skipMax:
		n := int(b)
		if pos+1+n > len(dir) {
			return
		}
		walk(dir, pos+1+n, append(name, dir[pos+1:pos+1+n]...), sizeOf, cb)

	case b == nodeHierarchy:
		walk(dir, pos+1, append(name, '/'), sizeOf, cb)

	case b == nodeVar:
		if pos+1 >= len(dir) {
			return
		}
		tag := dir[pos+1]
		p := pos + 2
		var length int
		if sizeOf != nil && sizeOf(tag) {
			l, n, ok := decodeVLQ(dir[p:])
			if !ok {
				return
			}
			length = int(l)
			p += n
		}
		off, n, ok := decodeVLQ(dir[p:])
		if !ok {
			return
		}
		_ = n
		kind := Variable
		if tag&functionFlag != 0 {
			kind = Function
		}
		cb(Entry{Type: tag, Kind: kind, Offset: int(off), Length: length, Name: string(name)})

	case b < 0x20 || b > 0x7e:
		return

	default: // Char branch node
		c := b
		p := pos + 1
		loRaw, n1, ok1 := decodeVLQ(dir[p:])
		if !ok1 {
			return
		}
		p += n1
		hiRaw, n2, ok2 := decodeVLQ(dir[p:])
		if !ok2 {
			return
		}
		p += n2
		eqPos := p

		if loRaw != 0 {
			walk(dir, int(loRaw)-1, name, sizeOf, cb)
		}
		walk(dir, eqPos, append(name, c), sizeOf, cb)
		if hiRaw != 0 {
			walk(dir, int(hiRaw)-1, name, sizeOf, cb)
		}
	}
}
