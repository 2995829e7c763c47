package dwarfutil

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Disassemble decodes the single x86-64 instruction at the start of
// code and returns its GNU-syntax text and length (§11 domain stack:
// golang.org/x/arch/x86/x86asm). It decodes x86-64 only. Neither the
// `dump-all` output nor TracingFatalError calls it; dump-all prints
// addresses and line numbers only.
func Disassemble(code []byte, pc uint64) (string, int, error) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return "", 0, fmt.Errorf("decoding instruction at %#x: %w", pc, err)
	}
	return x86asm.GNUSyntax(inst, pc, nil), inst.Len, nil
}

// StatementAligned reports whether addr is the first byte of an
// instruction reachable by decoding forward from funcStart. Neither
// PlanBreakpoints nor the breakpoint table calls it, so planned
// addresses are not checked against instruction boundaries.
func StatementAligned(code []byte, funcStart, addr uint64) (bool, error) {
	pc := funcStart
	off := 0
	for pc < addr {
		if off >= len(code) {
			return false, fmt.Errorf("reached end of function code before %#x", addr)
		}
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			return false, fmt.Errorf("decoding instruction at %#x: %w", pc, err)
		}
		pc += uint64(inst.Len)
		off += inst.Len
	}
	return pc == addr, nil
}
