package proc

import "sort"

// LineKind classifies a line record the debug-info oracle hands back,
// mirroring the DWARF line-table flags the pkg/dwarfutil oracle reads
// (is_stmt, end_sequence) plus LineBlock, which the oracle assigns to
// every other row (neither is_stmt nor end_sequence).
type LineKind int

const (
	LineStatementBegin LineKind = iota
	LineSequenceEnd
	LineBlock
)

// LineRecord is one row of the line-number program restricted to the
// rows the Planner cares about: an address, its source line, and kind.
type LineRecord struct {
	Addr uint64
	Line int
	Kind LineKind
}

// BreakpointPlan selects which addresses PlanBreakpoints returns.
type BreakpointPlan int

const (
	PlanAllStatements BreakpointPlan = iota
	PlanStaticFiltered
)

// PlanConfig is the Breakpoint Planner's configuration (§4.6, §3
// breakpoint_plan/ignore_equal_statements).
type PlanConfig struct {
	Plan                  BreakpointPlan
	IgnoreEqualStatements bool
}

// PlannedBreakpoint is one output of PlanBreakpoints: an address paired
// with the source line it corresponds to, printed by dump-all.
// Controller.Install uses only Addr; a BreakpointRecord's Line comes
// from RunConfig.LineOf.
type PlannedBreakpoint struct {
	Addr uint64
	Line int
}

// PlanBreakpoints implements §4.6. entryAddr is F's first instruction;
// lines is F's full statement-begin line table in address order;
// staticKeep, when non-nil, is the set of addresses the static
// analyzer oracle retained (PlanStaticFiltered only).
func PlanBreakpoints(cfg PlanConfig, entryAddr uint64, lines []LineRecord, staticKeep map[uint64]bool) []PlannedBreakpoint {
	lineOf := map[uint64]int{}
	var statementAddrs []uint64
	var finalAddr uint64
	finalLine := -1

	for _, l := range lines {
		if l.Kind != LineStatementBegin {
			continue
		}
		lineOf[l.Addr] = l.Line
		statementAddrs = append(statementAddrs, l.Addr)
		if l.Line > finalLine {
			finalLine = l.Line
			finalAddr = l.Addr
		}
	}

	kept := map[uint64]bool{entryAddr: true}
	if finalLine >= 0 {
		kept[finalAddr] = true
	}

	switch cfg.Plan {
	case PlanAllStatements:
		for _, a := range statementAddrs {
			kept[a] = true
		}
	case PlanStaticFiltered:
		for a := range staticKeep {
			kept[a] = true
		}
	}

	addrs := make([]uint64, 0, len(kept))
	for a := range kept {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	out := make([]PlannedBreakpoint, 0, len(addrs))
	if cfg.IgnoreEqualStatements {
		seenLine := map[int]bool{}
		for _, a := range addrs {
			line := lineOf[a]
			if line != 0 && seenLine[line] {
				continue
			}
			if line != 0 {
				seenLine[line] = true
			}
			out = append(out, PlannedBreakpoint{Addr: a, Line: line})
		}
		return out
	}

	for _, a := range addrs {
		out = append(out, PlannedBreakpoint{Addr: a, Line: lineOf[a]})
	}
	return out
}
