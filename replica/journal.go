package replica

import (
	"sort"

	"github.com/dolthub/swiss"
)

// Journal is the per-channel dirty-key set (§4.5: "the store marks the
// slot dirty in a per-channel journal"). It is a swiss map rather than a
// Go builtin map for the same reason the teacher and the rest of this
// module use one for every other bounded, offset-keyed table (see
// DESIGN.md).
type Journal struct {
	dirty *swiss.Map[uint32, struct{}]
}

func newJournal() *Journal {
	return &Journal{dirty: swiss.NewMap[uint32, struct{}](16)}
}

// MarkDirty records that the slot at key changed and is owed to the peer
// on the next cycle.
func (j *Journal) MarkDirty(key uint32) {
	j.dirty.Put(key, struct{}{})
}

// TakePending drains the journal, returning every dirty key in ascending
// order (ascending so Update frames are deterministic, which keeps
// convergence tests reproducible) and clearing the set for the next cycle.
func (j *Journal) TakePending() []uint32 {
	if j.dirty.Count() == 0 {
		return nil
	}
	keys := make([]uint32, 0, j.dirty.Count())
	j.dirty.Iter(func(k uint32, _ struct{}) bool {
		keys = append(keys, k)
		return false
	})
	j.dirty = swiss.NewMap[uint32, struct{}](16)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Pending reports how many keys are currently dirty, without draining.
func (j *Journal) Pending() int {
	return int(j.dirty.Count())
}
