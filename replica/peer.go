package replica

import (
	"github.com/rs/zerolog"

	"github.com/gostored/libstored/store"
	"github.com/gostored/libstored/storederr"
	"github.com/gostored/libstored/transport"
)

// State is a (local store, channel) pair's position in the §4.5 state
// machine.
type State uint8

const (
	Disconnected State = iota
	HelloSent
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case HelloSent:
		return "hello-sent"
	case Connected:
		return "connected"
	default:
		return "invalid"
	}
}

// Peer drives one side of one synchronized channel for one store: the
// §4.5 state machine, Hello/Welcome handshake, and periodic Update
// exchange. It is the replica.Hub's unit of fan-out and the journal's
// owner.
type Peer struct {
	store   *store.Store
	schema  Schema
	pipe    *transport.Pipe
	hub     *Hub
	log     zerolog.Logger
	localID uint16

	state   State
	peerID  uint16
	journal *Journal
}

// NewPeer builds a Peer for s over pipe, with localID as this side's
// 2-byte, non-zero identifier for s. hub must already be installed as s's
// store.Config.Hooks (via replica.NewHub) so that writes applied through s
// reach this Peer's journal.
func NewPeer(s *store.Store, schema Schema, pipe *transport.Pipe, hub *Hub, localID uint16, log zerolog.Logger) *Peer {
	p := &Peer{
		store:   s,
		schema:  schema,
		pipe:    pipe,
		hub:     hub,
		log:     log,
		localID: localID,
		journal: newJournal(),
	}
	hub.addPeer(p)
	return p
}

// State reports the peer's current connection state.
func (p *Peer) State() State { return p.state }

// Open sends this side's Hello and transitions Disconnected -> HelloSent.
func (p *Peer) Open() error {
	if p.state != Disconnected {
		return nil
	}
	hello := HelloMsg{Hash: p.store.SchemaHash(), ID: p.localID}
	if err := p.pipe.Send(encodeHello(hello)); err != nil {
		return err
	}
	p.state = HelloSent
	p.log.Debug().Uint16("id", p.localID).Msg("replica: sent hello")
	return nil
}

// Close sends Bye and resets to Disconnected.
func (p *Peer) Close() error {
	if p.state == Disconnected {
		return nil
	}
	err := p.pipe.Send(encodeBye(ByeMsg{HasID: true, ID: p.localID}))
	p.reset()
	return err
}

func (p *Peer) reset() {
	p.state = Disconnected
	p.peerID = 0
	p.journal = newJournal()
}

// Poll drains whatever the transport decoded this tick and advances the
// state machine for each message in order.
func (p *Peer) Poll() error {
	msgs, err := p.pipe.Poll()
	if err != nil && !storederr.Is(err, storederr.IoAgain) {
		return err
	}
	for _, raw := range msgs {
		if handleErr := p.handle(raw); handleErr != nil {
			p.log.Warn().Err(handleErr).Msg("replica: dropping malformed frame")
		}
	}
	return nil
}

func (p *Peer) handle(raw []byte) error {
	if len(raw) == 0 {
		return storederr.New(storederr.BadFrame, "empty replica frame")
	}
	switch raw[0] {
	case kindHello:
		return p.handleHello(raw)
	case kindWelcome:
		return p.handleWelcome(raw)
	case kindUpdate:
		return p.handleUpdate(raw)
	case kindBye:
		return p.handleBye(raw)
	default:
		return storederr.New(storederr.BadFrame, "unknown replica message kind")
	}
}

func (p *Peer) handleHello(raw []byte) error {
	hello, ok := decodeHello(raw)
	if !ok {
		return storederr.New(storederr.BadFrame, "malformed hello")
	}
	if hello.Hash != p.store.SchemaHash() {
		// Schema mismatch: no common ground to synchronize on.
		return p.pipe.Send(encodeBye(ByeMsg{HasHash: true, Hash: hello.Hash}))
	}
	if p.state == Connected {
		// Peer restarted; re-welcome it without tearing our side down.
	}
	p.peerID = hello.ID
	welcome := WelcomeMsg{TheirID: hello.ID, MyID: p.localID, Buffer: p.store.Buffer()}
	if err := p.pipe.Send(encodeWelcome(welcome)); err != nil {
		return err
	}
	p.state = Connected
	p.log.Debug().Uint16("peer_id", p.peerID).Msg("replica: welcomed peer")
	return nil
}

func (p *Peer) handleWelcome(raw []byte) error {
	welcome, ok := decodeWelcome(raw)
	if !ok {
		return storederr.New(storederr.BadFrame, "malformed welcome")
	}
	if p.state != HelloSent || welcome.TheirID != p.localID {
		// Not addressed to us, or arrived out of sequence; ignore.
		return nil
	}
	if err := p.store.SetBuffer(welcome.Buffer); err != nil {
		return err
	}
	p.peerID = welcome.MyID
	p.state = Connected
	p.log.Debug().Uint16("peer_id", p.peerID).Msg("replica: connected via welcome")
	return nil
}

func (p *Peer) handleUpdate(raw []byte) error {
	if p.state != Connected {
		return nil
	}
	update, ok := decodeUpdate(p.schema, raw, p.sizeForKey)
	if !ok {
		return storederr.New(storederr.BadFrame, "malformed update")
	}
	p.hub.applyingFrom = p
	defer func() { p.hub.applyingFrom = nil }()
	for _, e := range update.Entries {
		if p.schema.IsAllOnes(e.Key) {
			if err := p.store.SetBuffer(e.Data); err != nil {
				return err
			}
			continue
		}
		v, ok := p.store.VariantForKey(e.Key)
		if !ok {
			continue
		}
		if _, err := v.Set(e.Data); err != nil {
			return err
		}
	}
	return nil
}

// handleBye tears this association down if bye scopes to it. An id scopes
// to the peer that announced it via Hello (tracked as p.peerID), not to
// our own localID: "b<id>" says "the association you know me by <id> is
// over", the same id the sender put in its own Hello.
func (p *Peer) handleBye(raw []byte) error {
	bye, ok := decodeBye(raw)
	if !ok {
		return storederr.New(storederr.BadFrame, "malformed bye")
	}
	if bye.HasHash && bye.Hash != p.store.SchemaHash() {
		return nil
	}
	if bye.HasID && p.state != Disconnected && bye.ID != p.peerID {
		return nil
	}
	p.reset()
	return nil
}

func (p *Peer) sizeForKey(key uint32) (int, bool) {
	v, ok := p.store.VariantForKey(key)
	if !ok {
		return 0, false
	}
	return v.Len(), true
}

// Process emits an Update carrying every slot dirtied since the last call
// (§4.5: "Periodically (or on explicit process, ... emitted carrying all
// dirty slots since last send"). It is a no-op when not Connected or when
// nothing is dirty.
func (p *Peer) Process() error {
	if p.state != Connected {
		return nil
	}
	keys := p.journal.TakePending()
	if len(keys) == 0 {
		return nil
	}
	entries := make([]UpdateEntry, 0, len(keys))
	for _, key := range keys {
		v, ok := p.store.VariantForKey(key)
		if !ok {
			continue
		}
		buf := make([]byte, v.Len())
		if _, err := v.Get(buf); err != nil {
			continue
		}
		entries = append(entries, UpdateEntry{Key: key, Data: buf})
	}
	if len(entries) == 0 {
		return nil
	}
	return p.pipe.Send(encodeUpdate(p.schema, UpdateMsg{ID: p.localID, Entries: entries}))
}
