// Package analysis is the static analyzer oracle of §4.6's
// static-filtered breakpoint plan: "for each source statement S in F,
// S is retained iff S syntactically contains an assignment target, a
// post/pre-increment/decrement, a declaration-with-initializer, or a
// function call ... and the target (when determinable) is a tracked
// variable or storage potentially reachable from one".
//
// Grounded on original_source/src/analysis.c's handle_expr/handle_stmt,
// which drives the same decision from a full sparse AST walk. No
// sparse-equivalent C frontend exists anywhere in the retrieval pack
// (justified in DESIGN.md), so this package approximates the same
// decision with a line-oriented token scan: good enough for the
// single-statement-per-line C the target programs in practice use, and
// explicitly allowed to over-retain (never under-retain) when unsure,
// since §4.6's correctness condition only requires that *every* address
// where a monitored variable may change is included.
package analysis

import "regexp"

var (
	// reAssign matches `name = ` / `name += ` / `name[i] = ` / etc, but
	// not `==`, `!=`, `<=`, `>=`.
	reAssign = regexp.MustCompile(`(\w+)\s*(?:\[[^\]]*\]\s*)*(\+=|-=|\*=|/=|%=|&=|\|=|\^=|<<=|>>=|=)[^=]`)
	// reIncDec matches `name++`, `++name`, `name--`, `--name`, and the
	// postfix forms on a subscripted name (`name[i]++`).
	reIncDec = regexp.MustCompile(`(\+\+|--)\s*(\w+)|(\w+)\s*(?:\[[^\]]*\]\s*)*(\+\+|--)`)
	// reDecl matches a C declaration with an initializer: a leading
	// type-looking token followed by `name = `.
	reDecl = regexp.MustCompile(`^\s*(?:static\s+|const\s+|unsigned\s+|signed\s+)*(?:int|char|short|long|float|double|void\s*\*|struct\s+\w+|\w+_t)\s+\**(\w+)\s*(\[[^\]]*\])?\s*=`)
	// reCall matches a plausible function call: `name(`, excluding
	// control-flow keywords that use the same syntax.
	reCall  = regexp.MustCompile(`\b([A-Za-z_]\w*)\s*\(`)
	reWord  = regexp.MustCompile(`\w+`)
	keyword = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true,
		"return": true, "sizeof": true, "else": true,
	}
)

// Statement is one line of source the analyzer examines, paired with
// its breakpoint address from the line table.
type Statement struct {
	Addr uint64
	Line int
	Text string
}

// Keep runs the §4.6 analyzer over statements, returning the address
// set to retain. tracked reports whether a given identifier names a
// variable the run is monitoring (the descriptor set after
// only-locals/only-globals/name-filter has already been applied);
// when tracked is nil every identifier is treated as tracked, which is
// the conservative (over-retaining) default.
func Keep(statements []Statement, tracked func(name string) bool) map[uint64]bool {
	kept := make(map[uint64]bool)
	for _, s := range statements {
		if retain(s.Text, tracked) {
			kept[s.Addr] = true
		}
	}
	return kept
}

func retain(text string, tracked func(name string) bool) bool {
	if m := reAssign.FindStringSubmatch(text); m != nil {
		return referencesTracked(text, tracked)
	}
	if reIncDec.MatchString(text) {
		return referencesTracked(text, tracked)
	}
	if reDecl.MatchString(text) {
		return true // a fresh declaration-with-initializer always affects its own new storage
	}
	if containsCall(text) {
		// A call's callee may assign through a pointer argument or a
		// global; §4.6 says retain unconditionally rather than try to
		// prove it can't.
		return true
	}
	return false
}

func containsCall(text string) bool {
	for _, m := range reCall.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !keyword[name] {
			return true
		}
	}
	return false
}

// referencesTracked reports whether any identifier in text is one
// tracked recognizes, or tracked is nil (monitor everything).
func referencesTracked(text string, tracked func(name string) bool) bool {
	if tracked == nil {
		return true
	}
	for _, w := range reWord.FindAllString(text, -1) {
		if tracked(w) {
			return true
		}
	}
	return false
}
