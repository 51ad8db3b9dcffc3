package store

import "github.com/rs/zerolog"

// Capability is a bitmask of what a Store instance permits (§4.2: "store
// polymorphic over a capability set"). An embedding constructs a
// read-only or hook-free store cheaply by narrowing this set rather than
// by subclassing, mirroring the DESIGN NOTES' "replace CRTP base with an
// interface dispatched via table, not inheritance".
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapFunction
	CapHooks
)

// FullCapability grants every capability; it is the default for Config's
// zero value so a plain store.Config{} still behaves usefully.
const FullCapability = CapRead | CapWrite | CapFunction | CapHooks

// Config is passed by value at construction time (DESIGN NOTES: "pass a
// Config struct by value at store construction; no process-wide
// singletons"). Fields left at their zero value fall back to the defaults
// noted below.
type Config struct {
	// Logger is carried in the configuration for collaborating code; the
	// Store itself emits no log events through it. The zero value means
	// zerolog.Nop().
	Logger *zerolog.Logger

	// Capabilities narrows what the store permits; zero means
	// FullCapability.
	Capabilities Capability

	// Hooks receives entry/exit notifications around reads and writes.
	// Nil, or a Capabilities set without CapHooks, means noopHooks{}.
	Hooks Hooks

	// Identification is returned verbatim by the debugger's "i" command.
	Identification string `env:"LIBSTORED_IDENTIFICATION"`

	// ProtocolVersion and AppVersion make up the debugger's "v" response.
	ProtocolVersion string `env:"LIBSTORED_PROTOCOL_VERSION" envDefault:"1"`
	AppVersion      string `env:"LIBSTORED_APP_VERSION"`

	// AliasCapacity bounds the debugger's alias table (§3, default 0x5f).
	AliasCapacity int `env:"LIBSTORED_ALIAS_CAPACITY" envDefault:"95"`
	// MacroByteBudget bounds total bytes across all macro definitions.
	MacroByteBudget int `env:"LIBSTORED_MACRO_BUDGET" envDefault:"4096"`
	// StreamCapacity bounds each stream's FIFO, in bytes.
	StreamCapacity int `env:"LIBSTORED_STREAM_CAPACITY" envDefault:"4096"`
}

func (c Config) capabilities() Capability {
	if c.Capabilities == 0 {
		return FullCapability
	}
	return c.Capabilities
}

func (c Config) hooks() Hooks {
	if c.Hooks == nil || c.capabilities()&CapHooks == 0 {
		return noopHooks{}
	}
	return c.Hooks
}

func (c Config) logger() *zerolog.Logger {
	if c.Logger == nil {
		l := zerolog.Nop()
		return &l
	}
	return c.Logger
}
