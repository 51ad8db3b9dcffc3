package transport

// Stack composes the stages of §4.3 into the ordered pipeline described by
// the wire diagram in §6: Terminal is outermost (closest to the wire), ARQ
// innermost (closest to the payload), and the optional CRC trailer sits
// between ARQ and Segment. The
// optional Compress stage is not part of Stack: §4.3 scopes it to
// debugger stream output only, so it is applied directly by the debugger
// package around individual stream buffers.
type Stack struct {
	Terminal *TerminalLayer
	Escape   *EscapeLayer
	Segment  *SegmentLayer
	Arq      *ArqLayer
	CRC      *CRCLayer // nil disables CRC (§4.3: "optional")
}

// NewStack builds a Stack with all mandatory layers and CRC enabled, using
// mtu as the segmentation bound.
func NewStack(mtu int) *Stack {
	return &Stack{
		Terminal: NewTerminalLayer(),
		Escape:   NewEscapeLayer(),
		Segment:  NewSegmentLayer(mtu),
		Arq:      NewArqLayer(),
		CRC:      NewCRCLayer(),
	}
}

// MTU is the minimum MTU along the path (§4.3: "mtu() is the minimum MTU
// along the path"). Only Segment currently imposes one.
func (s *Stack) MTU() int { return s.Segment.MTU() }

// Encode wraps payload for transmission: ARQ header, CRC trailer, segment
// markers, ASCII escaping, and the terminal envelope, in that order.
func (s *Stack) Encode(payload []byte) []byte {
	armed := s.Arq.Encode(payload)
	framed := armed
	if s.CRC != nil {
		framed = s.CRC.Encode(nil, armed)
	}
	segmented := s.Segment.Encode(nil, framed)
	escaped := s.Escape.Encode(nil, segmented)
	return s.Terminal.Encode(nil, escaped)
}

// EncodeAck builds a bare acknowledgment frame carrying seq and no
// payload, run through the same CRC/segment/escape/terminal wrapping as a
// data frame.
func (s *Stack) EncodeAck(seq byte) []byte {
	frame := []byte{seq & arqSeqMask}
	if s.CRC != nil {
		frame = s.CRC.Encode(nil, frame)
	}
	segmented := s.Segment.Encode(nil, frame)
	escaped := s.Escape.Encode(nil, segmented)
	return s.Terminal.Encode(nil, escaped)
}

// DecodeResult is what Stack.Decode produces from one chunk of wire bytes:
// every fully reassembled, CRC-verified, ARQ-delivered message, and the
// acks to send back.
type DecodeResult struct {
	Messages [][]byte // in-order application payloads ready for the debugger
	Acks     [][]byte // ack frames the caller must write back to the peer
}

// Decode processes a chunk of bytes freshly read from the wire. OOB bytes
// (outside any terminal envelope) are available afterwards via DrainOOB.
func (s *Stack) Decode(p []byte) DecodeResult {
	var res DecodeResult
	for _, envelope := range s.Terminal.Decode(p) {
		escaped := s.Escape.Decode(envelope)[0]
		for _, fragment := range s.Segment.Decode(escaped) {
			armed := fragment
			if s.CRC != nil {
				out := s.CRC.Decode(fragment)
				if out == nil {
					continue // corrupt frame, dropped per §7
				}
				armed = out[0]
			}
			// A bare ack frame (EncodeAck) carries a header byte and no
			// payload; it must never be run through Decode's expected-seq
			// bookkeeping, or it silently consumes the receive-side seq
			// slot the next real data frame needs (§4.3's "ride-along ack
			// would suffice" implies the converse: an ack with no ride-
			// along payload is its own, separate thing).
			if len(armed) == 1 {
				s.Arq.HandleAck(armed[0])
				continue
			}
			result := s.Arq.Decode(armed)
			if result.Ack != nil {
				res.Acks = append(res.Acks, s.EncodeAck(result.Ack[0]))
			}
			if result.Payload != nil {
				res.Messages = append(res.Messages, result.Payload)
			}
		}
	}
	return res
}

// DrainOOB returns bytes observed outside any terminal envelope, passed
// through as application stdout/stderr (§6).
func (s *Stack) DrainOOB() []byte { return s.Terminal.DrainOOB() }

// Poll drives the ARQ retransmit timer; the caller invokes it periodically
// (the single-threaded cooperative core of §5 drives this from its poll
// loop, not from a background goroutine).
func (s *Stack) Poll() ([]byte, error) {
	frame, err := s.Arq.Poll()
	if frame == nil || err != nil {
		return nil, err
	}
	if s.CRC != nil {
		frame = s.CRC.Encode(nil, frame)
	}
	segmented := s.Segment.Encode(nil, frame)
	escaped := s.Escape.Encode(nil, segmented)
	return s.Terminal.Encode(nil, escaped), nil
}
