package transport

import (
	"time"

	"github.com/gostored/libstored/storederr"
)

const (
	arqFlagReset   = 0x80
	arqFlagPrecise = 0x40
	arqSeqMask     = 0x3f
	arqSeqMod      = 64
)

// DefaultRetransmitInterval and DefaultMaxRetransmits are the stop-and-wait
// ARQ defaults (§4.3): a fixed backoff and bounded retry budget, chosen to
// be generous for a debug link rather than tuned for throughput.
const (
	DefaultRetransmitInterval = 200 * time.Millisecond
	DefaultMaxRetransmits     = 5
)

// ArqLayer implements the stop-and-wait ARQ stage (§4.3). Unlike the other
// stages it is not a pure Layer: retransmission needs a clock and it must
// be able to emit ack frames that were not requested by an Encode call, so
// it exposes its own Decode/Encode plus Poll for timer-driven retransmits.
type ArqLayer struct {
	now func() time.Time

	retxInterval time.Duration
	maxRetx      int

	started      bool // false until the first frame is ever sent
	lastSent     byte // seq of the frame currently outstanding
	outstanding  []byte
	sentAt       time.Time
	awaitingAck  bool
	retxCount    int

	expectedSeq byte
	haveRecv    bool // false until the first frame is received (for dup detection)
	sendReset   bool // next Encode carries the reset flag
}

// NewArqLayer builds an ArqLayer using wall-clock time. Tests may override
// the clock via WithClock.
func NewArqLayer() *ArqLayer {
	return &ArqLayer{
		now:          time.Now,
		retxInterval: DefaultRetransmitInterval,
		maxRetx:      DefaultMaxRetransmits,
	}
}

// WithClock overrides the time source, for deterministic tests.
func (a *ArqLayer) WithClock(now func() time.Time) *ArqLayer {
	a.now = now
	return a
}

// WithRetransmit overrides the retransmit interval and retry budget.
func (a *ArqLayer) WithRetransmit(interval time.Duration, max int) *ArqLayer {
	a.retxInterval = interval
	a.maxRetx = max
	return a
}

// Encode assigns the next sequence number to payload and arms the
// retransmit timer (IDLE → SENT, §4.3). Calling Encode again before the
// outstanding frame is acked replaces it (the caller is expected to
// enforce one-request-at-a-time ordering, per §5).
func (a *ArqLayer) Encode(payload []byte) []byte {
	var seq byte
	if a.started {
		seq = (a.lastSent + 1) & arqSeqMask
	}
	a.started = true
	header := seq & arqSeqMask
	if a.sendReset {
		header |= arqFlagReset
		a.sendReset = false
	}
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, header)
	frame = append(frame, payload...)

	a.lastSent = seq
	a.outstanding = frame
	a.sentAt = a.now()
	a.awaitingAck = true
	a.retxCount = 0
	return frame
}

// ArqResult is what Decode reports for one received fragment.
type ArqResult struct {
	Payload []byte // non-nil for a new, in-order data frame
	Ack     []byte // non-nil: an ack frame to send back to the peer
	Reset   bool   // the peer asked both sides to reset sequence state
}

// Decode processes one received ARQ-framed fragment (header byte +
// payload). It returns the payload exactly once per distinct seq,
// generates the ack to send back, and folds in resets.
func (a *ArqLayer) Decode(frame []byte) ArqResult {
	if len(frame) < 1 {
		return ArqResult{}
	}
	header := frame[0]
	payload := frame[1:]
	seq := header & arqSeqMask
	reset := header&arqFlagReset != 0

	if reset {
		a.expectedSeq = 0
		a.haveRecv = false
		a.lastSent = 0
		a.started = false
		a.awaitingAck = false
	}

	ack := []byte{seq}

	if a.haveRecv && seq == ((a.expectedSeq-1)&arqSeqMask) {
		// duplicate of the last delivered seq: re-ack, drop payload
		return ArqResult{Ack: ack, Reset: reset}
	}
	if seq != a.expectedSeq {
		// out of order: discarded, peer must retransmit
		return ArqResult{Reset: reset}
	}

	a.expectedSeq = (a.expectedSeq + 1) & arqSeqMask
	a.haveRecv = true
	return ArqResult{Payload: payload, Ack: ack, Reset: reset}
}

// HandleAck processes the seq byte of a bare ack frame received from the
// peer. It returns true if it matched the outstanding frame (SENT → IDLE).
func (a *ArqLayer) HandleAck(seq byte) bool {
	if !a.awaitingAck {
		return false
	}
	if seq&arqSeqMask != a.lastSent {
		return false
	}
	a.awaitingAck = false
	a.outstanding = nil
	return true
}

// Reset clears both local sequence state and arranges for the next
// Encode to carry the reset flag, telling the peer to do the same
// (§4.3: "Reset flag: clear both sides to {expected=0, last_sent=0}").
func (a *ArqLayer) Reset() {
	a.expectedSeq = 0
	a.haveRecv = false
	a.lastSent = 0
	a.started = false
	a.awaitingAck = false
	a.sendReset = true
}

// Poll checks the retransmit timer. It returns the frame to resend if the
// outstanding frame is due for retransmission, (nil, nil) if nothing is
// due, or a storederr.ArqLost error if the retry budget is exhausted.
func (a *ArqLayer) Poll() ([]byte, error) {
	if !a.awaitingAck {
		return nil, nil
	}
	if a.now().Sub(a.sentAt) < a.retxInterval {
		return nil, nil
	}
	if a.retxCount >= a.maxRetx {
		a.awaitingAck = false
		return nil, storederr.New(storederr.ArqLost, "arq: retransmit budget exhausted")
	}
	a.retxCount++
	a.sentAt = a.now()
	return a.outstanding, nil
}
