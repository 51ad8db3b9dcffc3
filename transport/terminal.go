package transport

// TerminalLayer implements the outermost framing stage (§4.3): a debug
// message is delimited by ESC '_' (APC) ... ESC '\\' (ST). Bytes outside
// an envelope are application data (stdout/stderr passthrough, §6) and are
// queued separately via DrainOOB rather than returned from Decode. Inside
// an envelope, an ESC followed by any byte other than '\\' is kept together
// with that byte and handed up, which is how EscapeLayer's ESC sequences
// reach it; an ESC followed by another ESC drops the first of the two.
//
// Decode tolerates the envelope markers arriving split across calls, since
// a real transport hands bytes up as they arrive off the wire.
type TerminalLayer struct {
	inEnvelope bool
	escPending bool
	buf        []byte
	oob        []byte
}

func NewTerminalLayer() *TerminalLayer { return &TerminalLayer{} }

func (t *TerminalLayer) Decode(p []byte) [][]byte {
	var out [][]byte
	for _, b := range p {
		if t.escPending {
			t.escPending = false
			if !t.inEnvelope {
				if b == '_' {
					t.inEnvelope = true
					continue
				}
				t.oob = append(t.oob, escByte, b)
				continue
			}
			if b == '\\' {
				out = append(out, t.buf)
				t.buf = nil
				t.inEnvelope = false
				continue
			}
			if b == escByte {
				t.escPending = true
				continue
			}
			t.buf = append(t.buf, escByte, b)
			continue
		}

		if b == escByte {
			t.escPending = true
			continue
		}
		if t.inEnvelope {
			t.buf = append(t.buf, b)
		} else {
			t.oob = append(t.oob, b)
		}
	}
	return out
}

// DrainOOB returns and clears bytes observed outside any envelope.
func (t *TerminalLayer) DrainOOB() []byte {
	o := t.oob
	t.oob = nil
	return o
}

func (t *TerminalLayer) Encode(dst, p []byte) []byte {
	dst = append(dst, escByte, '_')
	dst = append(dst, p...)
	dst = append(dst, escByte, '\\')
	return dst
}

func (t *TerminalLayer) Flush(dst []byte) []byte { return dst }

func (t *TerminalLayer) MTU() int { return 0 }
