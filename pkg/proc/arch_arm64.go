package proc

// arm64BreakInstruction is BRK #0, the arm64 trap opcode. Kept from the
// teacher's pkg/proc/arm64_arch.go arm64BreakInstruction; the Windows
// BRK #0xF000 variant from that file is dropped since PBD only targets
// Linux tracees (the spec's prerequisites never mention Windows
// binaries).
var arm64BreakInstruction = []byte{0x0, 0x0, 0x20, 0xd4}

// archARM64 returns the Arch describing arm64, carried as a secondary
// architecture the way the teacher carries ARM64Arch alongside its
// primary amd64 support.
func archARM64() *Arch {
	return &Arch{
		Name:                  "arm64",
		PtrSize:               8,
		BreakpointInstruction: arm64BreakInstruction,
	}
}
