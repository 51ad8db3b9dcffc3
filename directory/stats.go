package directory

import "strings"

// Stats summarizes a compiled directory for diagnostics: how many objects
// it holds and how deep its hierarchy goes, mirroring the way the
// teacher's resolver pairs a name-resolution walk with a summary of what
// it found (locals/free vars) rather than just the resolved bindings.
type Stats struct {
	Entries  int // number of Var nodes reached (Variable + Function)
	MaxDepth int // longest name's hierarchy depth, in '/'-separated segments
}

// Analyze walks dir with List and summarizes it. It costs exactly one full
// walk, the same one a caller would otherwise do itself to enumerate
// entries.
func Analyze(dir []byte, sizeOf SizeFunc) Stats {
	var st Stats
	List(dir, "", sizeOf, func(e Entry) {
		st.Entries++
		depth := strings.Count(e.Name, "/")
		if depth > st.MaxDepth {
			st.MaxDepth = depth
		}
	})
	return st
}
