//go:build linux && arm64

package proc

import "golang.org/x/sys/unix"

func (t *Target) readRaw() (unix.PtraceRegs, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.pid, &regs); err != nil {
		return regs, &TracingFatalError{Op: "ptrace_getregs", Err: err}
	}
	return regs, nil
}

func (t *Target) writeRaw(regs unix.PtraceRegs) error {
	if err := unix.PtraceSetRegs(t.pid, &regs); err != nil {
		return &TracingFatalError{Op: "ptrace_setregs", Err: err}
	}
	return nil
}

// On arm64, x29 is the frame pointer and x30 the link register; Pc and
// Sp are named fields on unix.PtraceRegs.
func pcFromRaw(r unix.PtraceRegs) uint64       { return r.Pc }
func bpFromRaw(r unix.PtraceRegs) uint64       { return r.Regs[29] }
func spFromRaw(r unix.PtraceRegs) uint64       { return r.Sp }
func setPCInRaw(r *unix.PtraceRegs, pc uint64) { r.Pc = pc }
