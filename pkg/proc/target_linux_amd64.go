//go:build linux && amd64

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

func pcFromRaw(r unix.PtraceRegs) uint64       { return r.Rip }
func bpFromRaw(r unix.PtraceRegs) uint64       { return r.Rbp }
func spFromRaw(r unix.PtraceRegs) uint64       { return r.Rsp }
func setPCInRaw(r *unix.PtraceRegs, pc uint64) { r.Rip = pc }
