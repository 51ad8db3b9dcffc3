package directory

import (
	"fmt"
	"sort"
)

// BuildEntry is one object to place into a directory blob (Build).
type BuildEntry struct {
	Name           string
	Type           byte // full type tag, function-flag bit set for function slots
	VariableLength bool // Blob/String: an explicit length is recorded
	Length         int
	Offset         int // buffer byte offset, or function index
}

// Build compiles a flat list of objects into a directory blob that Find and
// List can walk. It is the counterpart the out-of-scope `.st` front end
// would otherwise provide (§1); libstored's own tests and
// schema.LoadYAML use it directly instead of generating Go source.
//
// Build always emits Char/Hierarchy/Var/End nodes; Skip is a decoder-only
// optimization this builder does not bother producing (a chain of
// single-child Char nodes is semantically identical, just a few bytes
// larger).
func Build(entries []BuildEntry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte{nodeEnd}, nil
	}
	sorted := append([]BuildEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	items := make([]buildItem, len(sorted))
	for i := range sorted {
		items[i] = buildItem{suffix: sorted[i].Name, e: &sorted[i]}
	}
	b := &builder{}
	if err := b.emitGroup(items); err != nil {
		return nil, err
	}
	return b.buf, nil
}

type buildItem struct {
	suffix string
	e      *BuildEntry
}

type builder struct {
	buf []byte
}

func (b *builder) emitGroup(items []buildItem) error {
	var terminal, continuing []buildItem
	for _, it := range items {
		if it.suffix == "" {
			terminal = append(terminal, it)
		} else {
			continuing = append(continuing, it)
		}
	}
	if len(terminal) > 1 {
		return fmt.Errorf("directory: duplicate object name %q", terminal[0].e.Name)
	}
	if len(terminal) == 1 {
		if len(continuing) > 0 {
			return fmt.Errorf("directory: object name %q is a prefix of another object", terminal[0].e.Name)
		}
		b.emitVar(terminal[0].e)
		return nil
	}

	groups := map[byte][]buildItem{}
	var chars []byte
	for _, it := range continuing {
		c := it.suffix[0]
		if _, ok := groups[c]; !ok {
			chars = append(chars, c)
		}
		groups[c] = append(groups[c], buildItem{suffix: it.suffix[1:], e: it.e})
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	return b.emitBranch(chars, groups)
}

func (b *builder) emitVar(e *BuildEntry) {
	b.buf = append(b.buf, nodeVar, e.Type)
	if e.VariableLength {
		b.buf = appendVLQ(b.buf, uint64(e.Length))
	}
	b.buf = appendVLQ(b.buf, uint64(e.Offset))
}

// emitBranch writes a balanced 3-way branch over chars, routing '/' to a
// Hierarchy node once it is isolated as the sole remaining candidate ('/'
// is never chosen as a branch pivot directly, since 0x2f is the Hierarchy
// node kind; see the node-kind constants in directory.go).
func (b *builder) emitBranch(chars []byte, groups map[byte][]buildItem) error {
	if len(chars) == 0 {
		b.buf = append(b.buf, nodeEnd)
		return nil
	}
	if len(chars) == 1 && chars[0] == '/' {
		b.buf = append(b.buf, nodeHierarchy)
		return b.emitGroup(groups['/'])
	}

	pivot := medianPivot(chars)
	var lo, hi []byte
	for _, c := range chars {
		switch {
		case c < pivot:
			lo = append(lo, c)
		case c > pivot:
			hi = append(hi, c)
		}
	}

	headerPos := len(b.buf)
	b.buf = append(b.buf, pivot)
	loPatch := len(b.buf)
	b.buf = appendVLQFixed4(b.buf, 0)
	hiPatch := len(b.buf)
	b.buf = appendVLQFixed4(b.buf, 0)
	_ = headerPos

	if err := b.emitGroup(groups[pivot]); err != nil {
		return err
	}

	if len(lo) > 0 {
		loStart := len(b.buf)
		if err := b.emitBranch(lo, groups); err != nil {
			return err
		}
		patchVLQFixed4(b.buf, loPatch, uint64(loStart+1))
	}
	if len(hi) > 0 {
		hiStart := len(b.buf)
		if err := b.emitBranch(hi, groups); err != nil {
			return err
		}
		patchVLQFixed4(b.buf, hiPatch, uint64(hiStart+1))
	}
	return nil
}

// medianPivot picks a branch character from chars (len>=1), never '/'
// unless chars is exactly ['/'].
func medianPivot(chars []byte) byte {
	if len(chars) == 1 {
		return chars[0]
	}
	nonSlash := make([]byte, 0, len(chars))
	for _, c := range chars {
		if c != '/' {
			nonSlash = append(nonSlash, c)
		}
	}
	return nonSlash[len(nonSlash)/2]
}
