package store

// Hooks lets an embedding application observe reads and writes (§4.2).
// All methods default to no-ops; a Store built without explicit Hooks uses
// noopHooks, matching the teacher's "no process-wide singleton config" rule
// (DESIGN NOTES) — hooks are supplied per-Store, never global.
type Hooks interface {
	// EntryRO/ExitRO bracket a read of a variable.
	EntryRO(t Type, offset, length int)
	ExitRO(t Type, offset, length int)

	// EntryX/ExitX bracket a write of a variable. changed reports whether
	// the post-image differs from the pre-image (ExitX only). Calls to
	// function slots are not bracketed by any hook.
	EntryX(t Type, offset, length int)
	ExitX(t Type, offset, length int, changed bool)
}

type noopHooks struct{}

func (noopHooks) EntryRO(Type, int, int)     {}
func (noopHooks) ExitRO(Type, int, int)      {}
func (noopHooks) EntryX(Type, int, int)      {}
func (noopHooks) ExitX(Type, int, int, bool) {}

// HookFuncs adapts four plain functions to Hooks, for embeddings that only
// care about one or two of the callbacks.
type HookFuncs struct {
	OnEntryRO func(t Type, offset, length int)
	OnExitRO  func(t Type, offset, length int)
	OnEntryX  func(t Type, offset, length int)
	OnExitX   func(t Type, offset, length int, changed bool)
}

func (h HookFuncs) EntryRO(t Type, offset, length int) {
	if h.OnEntryRO != nil {
		h.OnEntryRO(t, offset, length)
	}
}

func (h HookFuncs) ExitRO(t Type, offset, length int) {
	if h.OnExitRO != nil {
		h.OnExitRO(t, offset, length)
	}
}

func (h HookFuncs) EntryX(t Type, offset, length int) {
	if h.OnEntryX != nil {
		h.OnEntryX(t, offset, length)
	}
}

func (h HookFuncs) ExitX(t Type, offset, length int, changed bool) {
	if h.OnExitX != nil {
		h.OnExitX(t, offset, length, changed)
	}
}
