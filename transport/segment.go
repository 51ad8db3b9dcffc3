package transport

const (
	segContinue = 'C'
	segEnd      = 'E'
)

// SegmentLayer splits an encoded message into fragments no larger than
// mtu-1 bytes, appending a 'C' (more to come) or 'E' (final) marker byte
// to every fragment (§4.3). Decode reassembles fragments until an 'E'
// marker; an out-of-place marker resets the in-progress buffer. This
// implementation carries no position state, so every 'C'/'E' byte is
// treated as a marker regardless of where in a fragment it falls (see
// DESIGN.md's "Segmentation marker ambiguity" entry) — there is nothing
// to reset a position against.
type SegmentLayer struct {
	mtu int
	buf []byte
}

// NewSegmentLayer builds a SegmentLayer bounding fragments to mtu bytes
// including the trailing marker. mtu must be at least 2.
func NewSegmentLayer(mtu int) *SegmentLayer {
	return &SegmentLayer{mtu: mtu}
}

func (s *SegmentLayer) Decode(p []byte) [][]byte {
	var out [][]byte
	for _, b := range p {
		switch b {
		case segContinue:
			// fragment boundary, nothing to emit yet
		case segEnd:
			out = append(out, s.buf)
			s.buf = nil
		default:
			s.buf = append(s.buf, b)
		}
	}
	return out
}

func (s *SegmentLayer) Encode(dst, p []byte) []byte {
	chunk := s.mtu - 1
	if chunk <= 0 {
		chunk = len(p)
	}
	if len(p) == 0 {
		return append(dst, segEnd)
	}
	for off := 0; off < len(p); off += chunk {
		end := off + chunk
		if end > len(p) {
			end = len(p)
		}
		dst = append(dst, p[off:end]...)
		if end < len(p) {
			dst = append(dst, segContinue)
		} else {
			dst = append(dst, segEnd)
		}
	}
	return dst
}

func (s *SegmentLayer) Flush(dst []byte) []byte { return dst }

func (s *SegmentLayer) MTU() int { return s.mtu }
