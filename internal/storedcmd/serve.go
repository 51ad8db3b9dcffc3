package storedcmd

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
	"github.com/rs/zerolog"

	"github.com/gostored/libstored/debugger"
	"github.com/gostored/libstored/replica"
	"github.com/gostored/libstored/schema"
	"github.com/gostored/libstored/store"
	"github.com/gostored/libstored/storederr"
	"github.com/gostored/libstored/transport"
)

const defaultMTU = 256

// Serve loads the schema named by --schema, builds a store.Store from it
// with store.Config filled in from the environment (github.com/caarlos0/env,
// the same library mainer itself pulls in), and serves debugger sessions
// over --listen or --stdio until ctx is cancelled. With --sync-listen or
// --sync-dial, it additionally keeps the store synchronized with one peer.
func (c *Cmd) Serve(ctx context.Context, stdio mainer.Stdio, args []string) error {
	raw, err := os.ReadFile(c.Schema)
	if err != nil {
		return err
	}
	desc, err := schema.LoadYAML(raw)
	if err != nil {
		return err
	}

	var cfg store.Config
	if err := env.Parse(&cfg); err != nil {
		return err
	}
	logger := zerolog.New(stdio.Stderr).With().Timestamp().Logger()
	cfg.Logger = &logger

	var hub *replica.Hub
	if c.SyncListen != "" || c.SyncDial != "" {
		hub = replica.NewHub()
		cfg.Hooks = hub
	}

	s := store.New(make([]byte, desc.BufferSize), desc.Directory, unboundFunctions(desc, logger), cfg)

	if hub != nil {
		if err := c.serveSync(ctx, s, hub, logger); err != nil {
			return err
		}
	}

	mtu := c.MTU
	if mtu <= 0 {
		mtu = defaultMTU
	}

	if c.Stdio {
		return serveSession(ctx, s, mtu, c.Compress, stdioReadWriter{stdio}, logger)
	}
	return serveListener(ctx, s, c.Listen, mtu, c.Compress, logger)
}

// unboundFunctions gives every function slot named by the schema a
// placeholder callback, since a YAML descriptor declares function slots by
// name but cannot itself supply their Go implementation (§3: a function
// slot "dispatches through a store-provided callback" the embedding
// application registers, which storedebug has no way to do generically).
func unboundFunctions(desc schema.Descriptor, log zerolog.Logger) []store.Function {
	fns := make([]store.Function, len(desc.FunctionSlot))
	for i, name := range desc.FunctionSlot {
		name := name
		fns[i] = func(isSet bool, buf []byte) (int, error) {
			log.Warn().Str("name", name).Bool("set", isSet).Msg("storedebug: unbound function slot")
			for j := range buf {
				buf[j] = 0
			}
			return len(buf), nil
		}
	}
	return fns
}

type stdioReadWriter struct {
	stdio mainer.Stdio
}

func (s stdioReadWriter) Read(p []byte) (int, error)  { return s.stdio.Stdin.Read(p) }
func (s stdioReadWriter) Write(p []byte) (int, error) { return s.stdio.Stdout.Write(p) }

// serveSession drives one debugger.Session's cooperative poll loop (§5)
// until ctx is cancelled or the transport reports it is closed.
func serveSession(ctx context.Context, s *store.Store, mtu int, compress bool, rw io.ReadWriter, log zerolog.Logger) error {
	pipe := transport.NewPipe(rw, transport.NewStack(mtu), 4096)
	sess := debugger.NewSession(debugger.New(s, compress), pipe)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := sess.Poll(); err != nil {
			if storederr.Is(err, storederr.IoAgain) {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if storederr.Is(err, storederr.IoClosed) {
				return nil
			}
			return err
		}
	}
}

// serveListener accepts TCP debugger connections one at a time per client,
// each in its own goroutine, so that one slow or stalled client cannot
// block another's session.
func serveListener(ctx context.Context, s *store.Store, addr string, mtu int, compress bool, log zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("storedebug: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go func(conn net.Conn) {
			defer conn.Close()
			log.Info().Str("remote", conn.RemoteAddr().String()).Msg("storedebug: session opened")
			if err := serveSession(ctx, s, mtu, compress, conn, log); err != nil {
				log.Warn().Err(err).Msg("storedebug: session ended")
			}
		}(conn)
	}
}

// serveSync establishes the one replica.Peer this process keeps (dialing
// or accepting, per c.SyncListen/c.SyncDial) and drives its handshake and
// Update exchange from a background goroutine on a fixed tick, the
// simplest cooperative schedule that still keeps the main serve goroutine
// free to run the debugger listener.
func (c *Cmd) serveSync(ctx context.Context, s *store.Store, hub *replica.Hub, log zerolog.Logger) error {
	conn, err := c.syncConn()
	if err != nil {
		return err
	}

	wireSchema := replica.NewSchema(len(s.Buffer()), binary.BigEndian)
	pipe := transport.NewPipe(conn, transport.NewStack(defaultMTU), 4096)
	peer := replica.NewPeer(s, wireSchema, pipe, hub, uint16(c.ReplicaID), log)

	if c.SyncDial != "" {
		if err := peer.Open(); err != nil {
			conn.Close()
			return err
		}
	}

	go func() {
		defer conn.Close()
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				peer.Close()
				return
			case <-ticker.C:
				if err := peer.Poll(); err != nil {
					log.Warn().Err(err).Msg("storedebug: sync poll failed")
					return
				}
				if err := peer.Process(); err != nil {
					log.Warn().Err(err).Msg("storedebug: sync process failed")
					return
				}
			}
		}
	}()
	return nil
}

func (c *Cmd) syncConn() (net.Conn, error) {
	if c.SyncDial != "" {
		return net.Dial("tcp", c.SyncDial)
	}
	ln, err := net.Listen("tcp", c.SyncListen)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	return ln.Accept()
}
