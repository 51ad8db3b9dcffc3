package replica

import "encoding/binary"

// Message kind bytes (§4.5). Each wire frame is exactly one message.
const (
	kindHello   = 'h'
	kindWelcome = 'w'
	kindUpdate  = 'u'
	kindBye     = 'b'
)

// HelloMsg is "I have store of schema <hash>; my local id for it is <id>".
// Hash and ID are always big-endian on the wire: a schema is not yet
// agreed when a Hello is parsed, so this framing cannot depend on it.
type HelloMsg struct {
	Hash uint64
	ID   uint16
}

func encodeHello(m HelloMsg) []byte {
	out := make([]byte, 1+8+2)
	out[0] = kindHello
	binary.BigEndian.PutUint64(out[1:9], m.Hash)
	binary.BigEndian.PutUint16(out[9:11], m.ID)
	return out
}

func decodeHello(b []byte) (HelloMsg, bool) {
	if len(b) < 1+8+2 || b[0] != kindHello {
		return HelloMsg{}, false
	}
	return HelloMsg{
		Hash: binary.BigEndian.Uint64(b[1:9]),
		ID:   binary.BigEndian.Uint16(b[9:11]),
	}, true
}

// WelcomeMsg acknowledges a Hello and carries the full current buffer.
type WelcomeMsg struct {
	TheirID uint16
	MyID    uint16
	Buffer  []byte
}

func encodeWelcome(m WelcomeMsg) []byte {
	out := make([]byte, 1+2+2+len(m.Buffer))
	out[0] = kindWelcome
	binary.BigEndian.PutUint16(out[1:3], m.TheirID)
	binary.BigEndian.PutUint16(out[3:5], m.MyID)
	copy(out[5:], m.Buffer)
	return out
}

func decodeWelcome(b []byte) (WelcomeMsg, bool) {
	if len(b) < 1+2+2 || b[0] != kindWelcome {
		return WelcomeMsg{}, false
	}
	return WelcomeMsg{
		TheirID: binary.BigEndian.Uint16(b[1:3]),
		MyID:    binary.BigEndian.Uint16(b[3:5]),
		Buffer:  b[5:],
	}, true
}

// UpdateEntry is one (key, data) pair inside an Update.
type UpdateEntry struct {
	Key  uint32
	Data []byte
}

// UpdateMsg carries one or more variable updates for the store identified
// by ID.
type UpdateMsg struct {
	ID      uint16
	Entries []UpdateEntry
}

func encodeUpdate(schema Schema, m UpdateMsg) []byte {
	out := make([]byte, 0, 1+2+16*len(m.Entries))
	out = append(out, kindUpdate)
	out = binary.BigEndian.AppendUint16(out, m.ID)
	for _, e := range m.Entries {
		out = append(out, schema.EncodeKey(e.Key)...)
		out = append(out, e.Data...)
	}
	return out
}

// sizeForKey resolves how many data bytes follow a key inside an Update:
// the receiving store's directory gives the answer, since the schema hash
// check in Hello already guarantees both sides agree on it.
type sizeForKey func(key uint32) (size int, ok bool)

func decodeUpdate(schema Schema, b []byte, sizeFor sizeForKey) (UpdateMsg, bool) {
	if len(b) < 1+2 || b[0] != kindUpdate {
		return UpdateMsg{}, false
	}
	msg := UpdateMsg{ID: binary.BigEndian.Uint16(b[1:3])}
	rest := b[3:]
	for len(rest) > 0 {
		key, tail, ok := schema.DecodeKey(rest)
		if !ok {
			return UpdateMsg{}, false
		}
		if schema.IsAllOnes(key) {
			// Sentinel "buffer content follows": the remainder of the
			// frame is the full buffer (§4.5).
			msg.Entries = append(msg.Entries, UpdateEntry{Key: key, Data: tail})
			return msg, true
		}
		size, ok := sizeFor(key)
		if !ok || len(tail) < size {
			return UpdateMsg{}, false
		}
		msg.Entries = append(msg.Entries, UpdateEntry{Key: key, Data: tail[:size]})
		rest = tail[size:]
	}
	return msg, true
}

// ByeMsg tears down an association, optionally scoped to one local id or
// one schema hash; with neither set it is unscoped ("b" alone).
type ByeMsg struct {
	HasID   bool
	ID      uint16
	HasHash bool
	Hash    uint64
}

func encodeBye(m ByeMsg) []byte {
	switch {
	case m.HasID:
		out := make([]byte, 3)
		out[0] = kindBye
		binary.BigEndian.PutUint16(out[1:3], m.ID)
		return out
	case m.HasHash:
		out := make([]byte, 9)
		out[0] = kindBye
		binary.BigEndian.PutUint64(out[1:9], m.Hash)
		return out
	default:
		return []byte{kindBye}
	}
}

func decodeBye(b []byte) (ByeMsg, bool) {
	if len(b) == 0 || b[0] != kindBye {
		return ByeMsg{}, false
	}
	switch len(b) {
	case 1:
		return ByeMsg{}, true
	case 3:
		return ByeMsg{HasID: true, ID: binary.BigEndian.Uint16(b[1:3])}, true
	case 9:
		return ByeMsg{HasHash: true, Hash: binary.BigEndian.Uint64(b[1:9])}, true
	default:
		return ByeMsg{}, false
	}
}
