package proc

import "fmt"

// Arch holds the architecture-specific facts the core needs to stay
// arch-agnostic everywhere else: the trap opcode (one byte on amd64,
// four on arm64) and the pointer size, which is also the size of the
// return-address word Target.ReadReturnAddress reads at function entry.
// The trap opcode is the only architecture fact that leaks past the
// Child Process Handle (§4.1).
//
// Adapted from the teacher's pkg/proc/arm64_arch.go ARM64Arch
// constructor shape: a small data-only struct built by a per-arch
// constructor function. Everything in the teacher's Arch that exists to
// unwind a Go goroutine stack (switchStack, fixFrameUnwindContext,
// inhibitStepInto, debugCallMinStackSize, argumentRegs...) has no
// counterpart here: the tracee is a plain C process with no goroutines,
// no runtime, and no stack-switching to reason about.
type Arch struct {
	Name string

	// PtrSize is the size, in bytes, of a pointer/register on this
	// architecture.
	PtrSize int

	// BreakpointInstruction is the trap opcode written over the
	// original byte(s) at a breakpoint address.
	BreakpointInstruction []byte
}

// ArchForGOARCH returns the Arch describing goarch, or an error if the
// architecture isn't one PBD can trace.
func ArchForGOARCH(goarch string) (*Arch, error) {
	switch goarch {
	case "amd64":
		return archAMD64(), nil
	case "arm64":
		return archARM64(), nil
	default:
		return nil, fmt.Errorf("proc: unsupported architecture %q", goarch)
	}
}
