// Package debugger implements the Embedded Debugger application-layer
// protocol (§4.4): a single-byte command dispatcher over a store, with
// bounded alias/macro/stream tables and a decimated tracing hook. One
// complete request always produces exactly one response frame (§5); there
// is no reentrancy and no command is retried internally.
package debugger

import (
	"sort"

	"github.com/dolthub/swiss"

	"github.com/gostored/libstored/store"
)

// builtinCommands is the fixed set of single-byte commands (§4.4) the
// dispatcher handles; the capability string always reports all of them.
// '?' must always be present.
const builtinCommands = "?erwlamivRWsft"

// Debugger binds one store to the command tables that make it reachable
// over a transport.Stack: aliases, macros, streams, and the trace
// configuration. It has no transport knowledge of its own — a Session
// (session.go) feeds it request bytes from a Stack and writes the
// response back.
type Debugger struct {
	store *store.Store

	aliases *swiss.Map[byte, string]
	macros  *swiss.Map[byte, []byte] // raw "<sep><cmd><sep><cmd>..." body
	streams *swiss.Map[byte, *streamBuf]
	macroBytesUsed int

	compress bool // stream output is heatshrink-compressed when true

	trace traceConfig
}

type traceConfig struct {
	armed    bool
	macro    byte
	stream   byte
	decimate int
	counter  int
}

// New builds a Debugger over s. compress enables heatshrink encoding of
// stream contents (§4.3's Compress layer, scoped by §4.4 to streams only).
func New(s *store.Store, compress bool) *Debugger {
	cfg := s.Config()
	aliasCap := cfg.AliasCapacity
	if aliasCap <= 0 {
		aliasCap = 95
	}
	streamCap := cfg.StreamCapacity
	if streamCap <= 0 {
		streamCap = 4096
	}
	return &Debugger{
		store:    s,
		aliases:  swiss.NewMap[byte, string](uint32(aliasCap)),
		macros:   swiss.NewMap[byte, []byte](32),
		streams:  swiss.NewMap[byte, *streamBuf](16),
		compress: compress,
	}
}

// Capabilities returns the capability string reported by '?': the sorted
// set of supported command characters (§4.4 scenario c: "contains at
// least ?rwlaemivRWsft"). Sorting makes the response deterministic across
// runs, which the teacher's resolver package also does for its exported
// symbol listings (stable iteration over what would otherwise be
// unordered table contents).
func (d *Debugger) Capabilities() string {
	set := make(map[byte]struct{}, len(builtinCommands))
	for _, c := range []byte(builtinCommands) {
		set[c] = struct{}{}
	}
	chars := make([]byte, 0, len(set))
	for c := range set {
		chars = append(chars, c)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	return string(chars)
}

// Dispatch handles one complete request and returns its response. An
// empty request or an unrecognized command byte yields "?". Dispatch
// never panics on malformed input; every command handler validates its
// own arguments.
func (d *Debugger) Dispatch(req []byte) []byte {
	if len(req) == 0 {
		return []byte("?")
	}
	cmd, rest := req[0], req[1:]

	switch cmd {
	case '?':
		return []byte(d.Capabilities())
	case 'e':
		return append([]byte(nil), rest...)
	case 'r':
		return d.cmdRead(rest)
	case 'w':
		return d.cmdWrite(rest)
	case 'l':
		return d.cmdList(rest)
	case 'a':
		return d.cmdAlias(rest)
	case 'm':
		return d.cmdMacro(rest)
	case 'i':
		return []byte(d.store.Identification())
	case 'v':
		return d.cmdVersion()
	case 'R':
		return d.cmdReadMemory(rest)
	case 'W':
		return d.cmdWriteMemory(rest)
	case 's':
		return d.cmdStream(rest)
	case 'f':
		return d.cmdFlush(rest)
	case 't':
		return d.cmdTrace(rest)
	default:
		// A macro may claim any char that is not one of the builtins
		// above (§4.4: "a macro with a char that collides with a
		// built-in command does not shadow it").
		if macroBody, ok := d.macros.Get(cmd); ok {
			return d.runMacro(macroBody)
		}
		return []byte("?")
	}
}

// resolve turns a name-or-alias token into a DebugVariant: a single-byte
// token is looked up in the alias table first (§4.4: "name abbreviation/
// alias resolution is performed before dispatch"); anything else goes
// straight to the store's directory.
func (d *Debugger) resolve(token []byte) store.DebugVariant {
	if len(token) == 1 {
		if name, ok := d.aliases.Get(token[0]); ok {
			return d.store.Find(name)
		}
	}
	return d.store.Find(string(token))
}

func splitFirstSpace(b []byte) (head, tail []byte) {
	for i, c := range b {
		if c == ' ' {
			return b[:i], b[i+1:]
		}
	}
	return b, nil
}

func (d *Debugger) cmdVersion() []byte {
	out := []byte(d.store.ProtocolVersion())
	if app := d.store.AppVersion(); app != "" {
		out = append(out, ' ')
		out = append(out, app...)
	}
	return out
}

// Trace is called by the embedding application at points of interest
// (§4.4 "Tracing"). If a trace is armed and this call survives the 1-in-d
// decimation, it runs the configured macro and appends the output to the
// configured stream, dropping it silently on overflow.
func (d *Debugger) Trace() {
	if !d.trace.armed {
		return
	}
	d.trace.counter++
	if d.trace.counter < d.trace.decimate {
		return
	}
	d.trace.counter = 0

	macroBody, ok := d.macros.Get(d.trace.macro)
	if !ok {
		return
	}
	out := d.runMacro(macroBody)
	buf, ok := d.streams.Get(d.trace.stream)
	if !ok {
		buf = newStreamBuf(d.streamCapacity())
		d.streams.Put(d.trace.stream, buf)
	}
	buf.append(out)
}

func (d *Debugger) streamCapacity() int {
	if c := d.store.Config().StreamCapacity; c > 0 {
		return c
	}
	return 4096
}

// WriteStream appends data to stream ch, creating it on first use. This is
// the embedding application's side of a stream (e.g. log output), as
// distinct from the trace hook which writes via a macro instead.
func (d *Debugger) WriteStream(ch byte, data []byte) {
	buf, ok := d.streams.Get(ch)
	if !ok {
		buf = newStreamBuf(d.streamCapacity())
		d.streams.Put(ch, buf)
	}
	buf.append(data)
}
