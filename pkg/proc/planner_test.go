package proc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanBreakpointsAllStatements(t *testing.T) {
	lines := []LineRecord{
		{Addr: 0x100, Line: 10, Kind: LineStatementBegin},
		{Addr: 0x110, Line: 11, Kind: LineStatementBegin},
		{Addr: 0x120, Line: 12, Kind: LineStatementBegin},
	}
	out := PlanBreakpoints(PlanConfig{Plan: PlanAllStatements}, 0x100, lines, nil)

	require.Len(t, out, 3)
	require.Equal(t, uint64(0x100), out[0].Addr)
	require.Equal(t, uint64(0x120), out[len(out)-1].Addr) // final statement always included
}

func TestPlanBreakpointsStaticFiltered(t *testing.T) {
	lines := []LineRecord{
		{Addr: 0x100, Line: 10, Kind: LineStatementBegin}, // entry
		{Addr: 0x110, Line: 11, Kind: LineStatementBegin}, // dropped by analyzer
		{Addr: 0x120, Line: 12, Kind: LineStatementBegin}, // final
	}
	keep := map[uint64]bool{0x110: false}
	out := PlanBreakpoints(PlanConfig{Plan: PlanStaticFiltered}, 0x100, lines, map[uint64]bool{})

	var addrs []uint64
	for _, b := range out {
		addrs = append(addrs, b.Addr)
	}
	require.Contains(t, addrs, uint64(0x100))
	require.Contains(t, addrs, uint64(0x120))
	require.NotContains(t, addrs, uint64(0x110))
	_ = keep
}

func TestPlanBreakpointsIgnoreEqualStatements(t *testing.T) {
	lines := []LineRecord{
		{Addr: 0x100, Line: 10, Kind: LineStatementBegin},
		{Addr: 0x108, Line: 10, Kind: LineStatementBegin}, // same line, higher address
		{Addr: 0x110, Line: 11, Kind: LineStatementBegin},
	}
	out := PlanBreakpoints(PlanConfig{Plan: PlanAllStatements, IgnoreEqualStatements: true}, 0x100, lines, nil)

	seen := map[int]int{}
	for _, b := range out {
		seen[b.Line]++
	}
	require.Equal(t, 1, seen[10])
	addrForLine10 := func() uint64 {
		for _, b := range out {
			if b.Line == 10 {
				return b.Addr
			}
		}
		return 0
	}()
	require.Equal(t, uint64(0x100), addrForLine10) // lowest-address occurrence retained
}
