package directory

// Offsets and lengths inside a directory blob are unsigned VLQ: each byte
// carries 7 bits of the value, most-significant group first, with the
// continuation bit (0x80) set on every byte but the last (§3).

func appendVLQ(dst []byte, v uint64) []byte {
	var tmp [10]byte
	n := 0
	tmp[len(tmp)-1] = byte(v & 0x7f)
	n++
	v >>= 7
	for v > 0 {
		n++
		tmp[len(tmp)-n] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	return append(dst, tmp[len(tmp)-n:]...)
}

// appendVLQFixed4 encodes v as exactly 4 VLQ bytes (28 usable bits), used
// for the builder's branch-jump offsets: emitting a node's header before
// its lo/hi subtrees are laid out requires knowing their encoded width in
// advance, which a fixed width sidesteps entirely.
func appendVLQFixed4(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v>>21&0x7f)|0x80,
		byte(v>>14&0x7f)|0x80,
		byte(v>>7&0x7f)|0x80,
		byte(v&0x7f),
	)
}

// patchVLQFixed4 overwrites a previously-reserved 4-byte VLQ field in
// place once the jump target it points to is known.
func patchVLQFixed4(buf []byte, pos int, v uint64) {
	buf[pos+0] = byte(v>>21&0x7f) | 0x80
	buf[pos+1] = byte(v>>14&0x7f) | 0x80
	buf[pos+2] = byte(v>>7&0x7f) | 0x80
	buf[pos+3] = byte(v & 0x7f)
}

// decodeVLQ reads a VLQ value starting at buf[0]. It returns the decoded
// value, the number of bytes consumed, and false if buf ends before a
// terminal (high-bit-clear) byte is found.
func decodeVLQ(buf []byte) (v uint64, n int, ok bool) {
	for _, b := range buf {
		v = v<<7 | uint64(b&0x7f)
		n++
		if b&0x80 == 0 {
			return v, n, true
		}
	}
	return 0, 0, false
}
