package transport

import (
	"io"

	"github.com/gostored/libstored/storederr"
)

// Pipe binds a Stack to an io.ReadWriter, matching §5's cooperative,
// single-threaded driver model: Poll/Send never block internally on
// I/O themselves beyond what the underlying ReadWriter does, and the
// caller is responsible for driving Poll on its own schedule.
type Pipe struct {
	stack *Stack
	rw    io.ReadWriter
	rbuf  []byte
}

// NewPipe builds a Pipe over rw using stack, with a read scratch buffer of
// readBufSize bytes.
func NewPipe(rw io.ReadWriter, stack *Stack, readBufSize int) *Pipe {
	if readBufSize <= 0 {
		readBufSize = 4096
	}
	return &Pipe{stack: stack, rw: rw, rbuf: make([]byte, readBufSize)}
}

// Poll reads whatever is currently available and returns any fully
// decoded application messages, writing acks and any due retransmission
// back to the peer as a side effect. io.EOF from the underlying reader is reported as
// storederr.IoClosed; any other short-read error is storederr.IoAgain.
func (p *Pipe) Poll() ([][]byte, error) {
	n, err := p.rw.Read(p.rbuf)
	if n == 0 && err != nil {
		if err == io.EOF {
			return nil, storederr.Wrap(storederr.IoClosed, "transport: peer closed", err)
		}
		return nil, storederr.Wrap(storederr.IoAgain, "transport: read would block", err)
	}
	result := p.stack.Decode(p.rbuf[:n])
	for _, ack := range result.Acks {
		if _, werr := p.rw.Write(ack); werr != nil {
			return result.Messages, storederr.Wrap(storederr.IoClosed, "transport: ack write failed", werr)
		}
	}
	if retx, rerr := p.stack.Poll(); rerr != nil {
		return result.Messages, rerr
	} else if retx != nil {
		if _, werr := p.rw.Write(retx); werr != nil {
			return result.Messages, storederr.Wrap(storederr.IoClosed, "transport: retransmit write failed", werr)
		}
	}
	return result.Messages, nil
}

// Send encodes and writes one application message.
func (p *Pipe) Send(payload []byte) error {
	_, err := p.rw.Write(p.stack.Encode(payload))
	return err
}

// DrainOOB forwards to the underlying stack.
func (p *Pipe) DrainOOB() []byte { return p.stack.DrainOOB() }

// InMemoryPipe is a pair of connected in-memory byte queues implementing
// io.ReadWriter on each end, for tests that need a real Stack/Pipe
// round-trip without a real serial port or socket.
type InMemoryPipe struct {
	out *byteQueue
	in  *byteQueue
}

// NewInMemoryPipePair returns two ends of one in-memory channel: bytes
// written to a are readable from b, and vice versa.
func NewInMemoryPipePair() (a, b *InMemoryPipe) {
	ab := &byteQueue{}
	ba := &byteQueue{}
	return &InMemoryPipe{out: ab, in: ba}, &InMemoryPipe{out: ba, in: ab}
}

func (p *InMemoryPipe) Write(b []byte) (int, error) {
	p.out.push(b)
	return len(b), nil
}

func (p *InMemoryPipe) Read(b []byte) (int, error) {
	return p.in.pop(b), nil
}

type byteQueue struct {
	buf []byte
}

func (q *byteQueue) push(b []byte) {
	q.buf = append(q.buf, b...)
}

func (q *byteQueue) pop(dst []byte) int {
	n := copy(dst, q.buf)
	q.buf = q.buf[n:]
	return n
}
