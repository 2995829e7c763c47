package proc

import "github.com/gopbd/pbd/internal/logflags"

// childTarget is the subset of Target's behavior the Breakpoint Table
// and Controller need, narrowed (like memReader) so the state machine
// is exercisable against a fake child without a real ptrace session.
type childTarget interface {
	memReader
	WriteMem(addr uint64, data []byte) error
	ReadPC() (uint64, error)
	SetPC(addr uint64) error
	ReadBP() (uint64, error)
	ReadReturnAddress() (uint64, error)
	Continue() error
	SingleStep() error
	Wait() (WaitStatus, error)
	Kill() error
}

// BreakpointRecord is the Breakpoint Record of §3: { address, original
// byte, optional source line number }. The invariant it upholds: while
// installed, the byte at Addr in the child's text is the trap opcode,
// and OriginalByte is the byte it replaced.
type BreakpointRecord struct {
	Addr         uint64
	OriginalByte []byte
	Line         int // 0 if unknown (e.g. a dynamically installed return breakpoint)
}

// BreakpointTable is the Breakpoint Table of §4.2: a map from
// instruction address to BreakpointRecord, giving O(1) lookups on trap.
// Adapted from original_source/src/breakpoint.c's bp_createlist/
// bp_insertbreakpoint/bp_findbreakpoint/bp_skipbreakpoint, generalized
// from a single global hashtable into a value owned by a Run (§9
// "Global mutable state").
type BreakpointTable struct {
	arch    *Arch
	records map[uint64]*BreakpointRecord
}

// NewBreakpointTable returns an empty table for the given architecture.
func NewBreakpointTable(arch *Arch) *BreakpointTable {
	return &BreakpointTable{arch: arch, records: make(map[uint64]*BreakpointRecord)}
}

// InstallAll installs a breakpoint at every address in addrs. lineOf
// may be nil; when non-nil it supplies the BreakpointRecord.Line field
// for diagnostics.
func (bt *BreakpointTable) InstallAll(t childTarget, addrs []uint64, lineOf func(uint64) int) error {
	for _, addr := range addrs {
		line := 0
		if lineOf != nil {
			line = lineOf(addr)
		}
		if err := bt.install(t, addr, line); err != nil {
			return err
		}
	}
	return nil
}

// InstallOne installs a breakpoint at addr, idempotently: if a record
// already exists there, it does nothing. Used for the dynamically
// discovered return-address breakpoint (§4.7 step 3), which may already
// coincide with a statement breakpoint or a prior frame's return
// address in recursive calls.
func (bt *BreakpointTable) InstallOne(t childTarget, addr uint64, line int) error {
	if _, ok := bt.records[addr]; ok {
		return nil
	}
	return bt.install(t, addr, line)
}

func (bt *BreakpointTable) install(t childTarget, addr uint64, line int) error {
	orig, err := t.ReadMem(addr, len(bt.arch.BreakpointInstruction))
	if err != nil {
		return err
	}
	if err := t.WriteMem(addr, bt.arch.BreakpointInstruction); err != nil {
		return err
	}
	bt.records[addr] = &BreakpointRecord{Addr: addr, OriginalByte: orig, Line: line}
	logflags.PTrace().WithField("addr", addr).WithField("line", line).Debug("installed breakpoint")
	return nil
}

// Find looks up the breakpoint record at addr.
func (bt *BreakpointTable) Find(addr uint64) (*BreakpointRecord, bool) {
	r, ok := bt.records[addr]
	return r, ok
}

// StepOver executes the step-over-and-rearm protocol of §4.7: restore
// the original byte, single-step past it, then reinstall the trap. This
// must run with the child stopped throughout (P7, "step-over
// idempotence").
func (bt *BreakpointTable) StepOver(t childTarget, rec *BreakpointRecord) error {
	if err := t.SetPC(rec.Addr); err != nil {
		return err
	}
	if err := t.WriteMem(rec.Addr, rec.OriginalByte); err != nil {
		return err
	}
	if err := t.SingleStep(); err != nil {
		return err
	}
	if _, err := t.Wait(); err != nil {
		return err
	}
	return t.WriteMem(rec.Addr, bt.arch.BreakpointInstruction)
}

// Teardown discards every record. It does not attempt to restore
// original bytes in the child's text — by the time teardown runs the
// child has already exited.
func (bt *BreakpointTable) Teardown() {
	bt.records = make(map[uint64]*BreakpointRecord)
}

// Len reports how many breakpoints are currently installed.
func (bt *BreakpointTable) Len() int { return len(bt.records) }
