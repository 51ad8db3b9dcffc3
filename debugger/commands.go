package debugger

import (
	"bytes"
	"strconv"

	"github.com/gostored/libstored/store"
)

func (d *Debugger) cmdRead(rest []byte) []byte {
	v := d.resolve(rest)
	if !v.Valid() {
		return []byte("?")
	}
	size := v.Len()
	if size == 0 {
		size = 256 // function/blob slots without a declared length: generous scratch
	}
	buf := make([]byte, size)
	n, err := v.Get(buf)
	if err != nil {
		return []byte("?")
	}
	out := buf[:n]
	if _, fixed := v.Type().FixedSize(); fixed {
		out = toWire(out)
	}
	return encodeHexElided(out)
}

// splitWriteArgs separates a `w` request's hex payload from its trailing
// name-or-alias token. Names are either a single alias character or a
// full hierarchical path beginning with '/'; see DESIGN.md for why the
// split is resolved this way rather than with an explicit delimiter.
func splitWriteArgs(rest []byte) (hex, name []byte) {
	if slash := bytes.IndexByte(rest, '/'); slash >= 0 {
		return rest[:slash], rest[slash:]
	}
	if len(rest) >= 1 {
		return rest[:len(rest)-1], rest[len(rest)-1:]
	}
	return rest, nil
}

func (d *Debugger) cmdWrite(rest []byte) []byte {
	hex, name := splitWriteArgs(rest)
	if name == nil {
		return []byte("?")
	}
	v := d.resolve(name)
	if !v.Valid() {
		return []byte("?")
	}
	size := v.Len()
	if size == 0 {
		size = len(hex) / 2
	}
	wire, ok := decodeHex(hex, size)
	if !ok {
		return []byte("?")
	}
	if _, fixed := v.Type().FixedSize(); fixed {
		wire = fromWire(wire)
	}
	if _, err := v.Set(wire); err != nil {
		return []byte("?")
	}
	return []byte("!")
}

func (d *Debugger) cmdList(rest []byte) []byte {
	var out []byte
	first := true
	d.store.List(func(name string, v store.DebugVariant) {
		if !first {
			out = append(out, '\n')
		}
		first = false
		out = append(out, encodeHex([]byte{byte(v.Type())})...)
		out = append(out, encodeHex([]byte{byte(v.Len())})...)
		out = append(out, ' ')
		out = append(out, name...)
	})
	return out
}

func (d *Debugger) cmdAlias(rest []byte) []byte {
	if len(rest) == 0 {
		return []byte("?")
	}
	ch := rest[0]
	name := rest[1:]
	if len(name) == 0 {
		d.aliases.Delete(ch)
		return []byte("!")
	}
	if _, exists := d.aliases.Get(ch); !exists {
		capacity := d.store.Config().AliasCapacity
		if capacity <= 0 {
			capacity = 95
		}
		if d.aliases.Count() >= uint32(capacity) {
			return []byte("?")
		}
	}
	d.aliases.Put(ch, string(name))
	return []byte("!")
}

func (d *Debugger) cmdMacro(rest []byte) []byte {
	if len(rest) < 1 {
		return []byte("?")
	}
	ch := rest[0]
	body := rest[1:]

	if len(body) == 0 {
		if old, ok := d.macros.Get(ch); ok {
			d.macroBytesUsed -= len(old)
			d.macros.Delete(ch)
		}
		return []byte("!")
	}

	budget := d.store.Config().MacroByteBudget
	if budget <= 0 {
		budget = 4096
	}
	prevLen := 0
	if old, ok := d.macros.Get(ch); ok {
		prevLen = len(old)
	}
	if d.macroBytesUsed-prevLen+len(body) > budget {
		return []byte("?")
	}

	stored := append([]byte(nil), body...)
	d.macroBytesUsed += len(stored) - prevLen
	d.macros.Put(ch, stored)
	return []byte("!")
}

// runMacro splits a macro body "<sep><cmd>[<sep><cmd>]*" on its separator
// (the body's first byte) and concatenates the responses of each
// contained command with no delimiter (§4.4: "users embed echoes to
// insert their own delimiters").
func (d *Debugger) runMacro(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	sep := body[0]
	parts := bytes.Split(body[1:], []byte{sep})
	var out []byte
	for _, p := range parts {
		out = append(out, d.Dispatch(p)...)
	}
	return out
}

func (d *Debugger) cmdReadMemory(rest []byte) []byte {
	head, tail := splitFirstSpace(rest)
	offset, ok := parseHexUint(head)
	if !ok {
		return []byte("?")
	}
	length := 1
	if len(tail) > 0 {
		n, err := strconv.ParseInt(string(tail), 16, 64)
		if err != nil || n <= 0 {
			return []byte("?")
		}
		length = int(n)
	}
	buf := d.store.Buffer()
	if offset+length > len(buf) {
		return []byte("?")
	}
	return encodeHex(buf[offset : offset+length])
}

func (d *Debugger) cmdWriteMemory(rest []byte) []byte {
	head, tail := splitFirstSpace(rest)
	offset, ok := parseHexUint(head)
	if !ok || len(tail) == 0 {
		return []byte("?")
	}
	data, ok := decodeHexBytes(tail)
	if !ok {
		return []byte("?")
	}
	buf := d.store.Buffer()
	if offset+len(data) > len(buf) {
		return []byte("?")
	}
	copy(buf[offset:offset+len(data)], data)
	return []byte("!")
}

// parseHexUint parses a hex pointer/offset token of any length (odd
// lengths are valid here, unlike decodeHexBytes, since this is a number
// rather than a byte string).
func parseHexUint(s []byte) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(string(s), 16, 63)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
