package proc

// x86BreakInstruction is INT3, the one-byte x86_64 trap opcode. Grounded
// on original_source/src/breakpoint.c's BP_OPCODE and
// arch/x86_64/ptrace_amd64.c.
var x86BreakInstruction = []byte{0xCC}

// archAMD64 returns the Arch describing x86_64/amd64, PBD's primary
// supported architecture (the one original_source/src targeted).
func archAMD64() *Arch {
	return &Arch{
		Name:                  "amd64",
		PtrSize:               8,
		BreakpointInstruction: x86BreakInstruction,
	}
}
