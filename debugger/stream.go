package debugger

import (
	"sort"

	"github.com/gostored/libstored/transport"
)

// streamBuf is a bounded FIFO of bytes ever written to a debugger stream.
// On overflow the oldest bytes drop (§4.2: "on overflow, oldest bytes
// drop").
type streamBuf struct {
	buf []byte
	cap int
}

func newStreamBuf(capacity int) *streamBuf {
	return &streamBuf{cap: capacity}
}

func (s *streamBuf) append(p []byte) {
	s.buf = append(s.buf, p...)
	if over := len(s.buf) - s.cap; over > 0 {
		s.buf = s.buf[over:]
	}
}

func (s *streamBuf) drain() []byte {
	out := s.buf
	s.buf = nil
	return out
}

// cmdStream implements `s`: with no argument it lists chars with pending
// data; with a char argument it drains that stream's buffer, optionally
// heatshrink-compressed, appending any trailing suffix bytes verbatim.
func (d *Debugger) cmdStream(rest []byte) []byte {
	if len(rest) == 0 {
		var chars []byte
		d.streams.Iter(func(ch byte, buf *streamBuf) bool {
			if len(buf.buf) > 0 {
				chars = append(chars, ch)
			}
			return false
		})
		sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
		return chars
	}

	ch := rest[0]
	suffix := rest[1:]
	buf, ok := d.streams.Get(ch)
	if !ok {
		return []byte("?")
	}
	data := buf.drain()
	if d.compress {
		// A fresh Encoder per read, flushed immediately: there is no
		// encoder state carried between reads for cmdFlush to act on,
		// since each read's drained bytes are a self-contained
		// heatshrink stream rather than a continuation of the last one.
		enc := transport.NewEncoder()
		enc.Write(data)
		data = enc.Flush()
	}
	return append(data, suffix...)
}

// cmdFlush implements `f`: with a char argument, drains that stream's
// buffered bytes without returning them (there is no persistent per-
// stream compressor state to reset — see cmdStream); with no argument it
// drains every stream. Either way it always succeeds.
func (d *Debugger) cmdFlush(rest []byte) []byte {
	if len(rest) == 0 {
		d.streams.Iter(func(ch byte, buf *streamBuf) bool {
			buf.drain()
			return false
		})
		return []byte("!")
	}
	if buf, ok := d.streams.Get(rest[0]); ok {
		buf.drain()
	}
	return []byte("!")
}

// cmdTrace implements `t`: arms (or, with an empty argument, disarms) the
// trace hook. Only one configuration is live at a time; re-arming
// overwrites it (§4.4).
func (d *Debugger) cmdTrace(rest []byte) []byte {
	if len(rest) == 0 {
		d.trace = traceConfig{}
		return []byte("!")
	}
	if len(rest) < 2 {
		return []byte("?")
	}
	macro, stream := rest[0], rest[1]
	decimate := 1
	if len(rest) > 2 {
		v, ok := hexVal(rest[2])
		if !ok {
			return []byte("?")
		}
		decimate = int(v)
		if decimate <= 0 {
			decimate = 1
		}
	}
	d.trace = traceConfig{armed: true, macro: macro, stream: stream, decimate: decimate}
	return []byte("!")
}
