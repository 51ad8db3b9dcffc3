package debugger

import "encoding/binary"

// toWire converts a fixed-size slot's host-order bytes to the big-endian
// wire representation used by `r` (§4.2: "stored in host order
// internally but big-endian on the wire"). It converts by length alone:
// values of any size other than 2/4/8 pass through unchanged, and `r`
// and `w` skip the conversion for Blob/String slots, whose bytes are opaque.
func toWire(raw []byte) []byte {
	switch len(raw) {
	case 2:
		v := binary.NativeEndian.Uint16(raw)
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, v)
		return out
	case 4:
		v := binary.NativeEndian.Uint32(raw)
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, v)
		return out
	case 8:
		v := binary.NativeEndian.Uint64(raw)
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, v)
		return out
	default:
		return raw
	}
}

// fromWire is toWire's inverse, used by `w` to turn a parsed
// big-endian wire value back into host order before storing it.
func fromWire(wire []byte) []byte {
	switch len(wire) {
	case 2:
		v := binary.BigEndian.Uint16(wire)
		out := make([]byte, 2)
		binary.NativeEndian.PutUint16(out, v)
		return out
	case 4:
		v := binary.BigEndian.Uint32(wire)
		out := make([]byte, 4)
		binary.NativeEndian.PutUint32(out, v)
		return out
	case 8:
		v := binary.BigEndian.Uint64(wire)
		out := make([]byte, 8)
		binary.NativeEndian.PutUint64(out, v)
		return out
	default:
		return wire
	}
}
