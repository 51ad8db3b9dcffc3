package replica

import "github.com/gostored/libstored/store"

// Hub fans a store's write notifications out to every Peer synchronizing
// it, implementing store.Hooks so it can be installed directly as a
// store.Config's Hooks. It also implements the echo-suppression rule
// (§4.5: "updates received from channel X are not re-sent back on X
// within the same journal cycle") by skipping whichever Peer is currently
// applying an incoming Update when it fans a change out.
//
// A store synchronized over a single channel still needs a Hub of one
// Peer: Hub is what turns a plain store.Set into "mark every other
// attached replica's journal dirty".
type Hub struct {
	peers        []*Peer
	applyingFrom *Peer
}

// NewHub builds an empty Hub. Attach it to a store via store.Config.Hooks
// before constructing any Peer over that store.
func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) addPeer(p *Peer) { h.peers = append(h.peers, p) }

func (h *Hub) EntryRO(store.Type, int, int) {}
func (h *Hub) ExitRO(store.Type, int, int)  {}
func (h *Hub) EntryX(store.Type, int, int)  {}

// ExitX marks offset dirty in every attached peer's journal except the one
// currently applying an incoming Update for that same offset.
func (h *Hub) ExitX(_ store.Type, offset, _ int, changed bool) {
	if !changed {
		return
	}
	key := uint32(offset)
	for _, p := range h.peers {
		if p == h.applyingFrom {
			continue
		}
		p.journal.MarkDirty(key)
	}
}
