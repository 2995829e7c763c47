package dwarfutil

import (
	"debug/dwarf"
	"io"

	"github.com/gopbd/pbd/pkg/proc"
)

// Lines returns the line records whose addresses fall inside fn, in
// line-table order, each tagged with its kind; the Breakpoint Planner
// (§4.6) consumes them and keeps only the statement-begin rows. Grounded on
// original_source/src/dwarf.c's line-table walk, reimplemented over
// stdlib's dwarf.LineReader instead of hand-parsing the line-number
// program.
func (o *Oracle) Lines(fn *FunctionEntry) ([]proc.LineRecord, error) {
	lr, err := o.dwarf.LineReader(fn.CompUnit)
	if err != nil {
		return nil, err
	}
	if lr == nil {
		return nil, &proc.DebugInfoError{Function: fn.Name, Err: errNoLineTable}
	}

	var out []proc.LineRecord
	var entry dwarf.LineEntry
	for {
		err := lr.Next(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if entry.Address < fn.LowPC || entry.Address >= fn.HighPC {
			continue
		}
		kind := proc.LineBlock
		switch {
		case entry.EndSequence:
			kind = proc.LineSequenceEnd
		case entry.IsStmt:
			kind = proc.LineStatementBegin
		}
		out = append(out, proc.LineRecord{Addr: entry.Address, Line: entry.Line, Kind: kind})
	}
	return out, nil
}

// LineOf returns a lookup function over lines, used by
// BreakpointTable.InstallAll's lineOf callback (via RunConfig.LineOf).
func LineOf(lines []proc.LineRecord) func(addr uint64) int {
	byAddr := make(map[uint64]int, len(lines))
	for _, l := range lines {
		byAddr[l.Addr] = l.Line
	}
	return func(addr uint64) int { return byAddr[addr] }
}

type noLineTableError struct{}

func (noLineTableError) Error() string { return "compile unit has no line table" }

var errNoLineTable = noLineTableError{}
