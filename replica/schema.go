// Package replica implements the Synchronizer (§4.5): a symmetric
// Hello/Welcome/Update/Bye protocol that keeps two stores of an identical
// schema in sync over a transport.Stack, the way the teacher's resolver
// keeps a package's exported symbol table in sync with its AST by walking
// a shared, order-stable representation rather than diffing ad hoc.
package replica

import "encoding/binary"

// Schema fixes the two per-pair constants the wire format needs but that
// spec.md leaves as "a store-schema constant": the width of a buffer-offset
// key, and the byte order used to encode it (§4.5: "Byte order for key/len
// fields is chosen per schema ... both peers must agree via the schema
// hash").
type Schema struct {
	KeyWidth int
	Order    binary.ByteOrder
}

// KeyWidth derives the fixed key width from a buffer size: the smallest
// power-of-two byte count that can address every offset in the buffer.
func KeyWidth(bufSize int) int {
	switch {
	case bufSize <= 0xff:
		return 1
	case bufSize <= 0xffff:
		return 2
	default:
		return 4
	}
}

// NewSchema builds a Schema for a store with the given buffer size and
// byte order.
func NewSchema(bufSize int, order binary.ByteOrder) Schema {
	return Schema{KeyWidth: KeyWidth(bufSize), Order: order}
}

// EncodeKey renders key in this schema's width and byte order.
func (s Schema) EncodeKey(key uint32) []byte {
	out := make([]byte, s.KeyWidth)
	switch s.KeyWidth {
	case 1:
		out[0] = byte(key)
	case 2:
		s.Order.PutUint16(out, uint16(key))
	default:
		s.Order.PutUint32(out, key)
	}
	return out
}

// DecodeKey is EncodeKey's inverse. ok is false if b is shorter than the
// schema's key width.
func (s Schema) DecodeKey(b []byte) (key uint32, rest []byte, ok bool) {
	if len(b) < s.KeyWidth {
		return 0, b, false
	}
	switch s.KeyWidth {
	case 1:
		key = uint32(b[0])
	case 2:
		key = uint32(s.Order.Uint16(b))
	default:
		key = s.Order.Uint32(b)
	}
	return key, b[s.KeyWidth:], true
}

// AllOnesKey returns the sentinel key meaning "buffer content follows"
// (§4.5), used when a full resync is pushed as an Update rather than a
// Welcome (e.g. a peer already Connected requests a resync without
// tearing the association down).
func (s Schema) AllOnesKey() []byte {
	out := make([]byte, s.KeyWidth)
	for i := range out {
		out[i] = 0xff
	}
	return out
}

// IsAllOnes reports whether key, encoded in this schema, equals the
// all-ones sentinel.
func (s Schema) IsAllOnes(key uint32) bool {
	switch s.KeyWidth {
	case 1:
		return key == 0xff
	case 2:
		return key == 0xffff
	default:
		return key == 0xffffffff
	}
}
