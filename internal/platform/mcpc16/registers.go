// Package mcpc16 is a concrete platform.Platform for a small
// register-machine target: eight general 16-bit registers (A-H), no
// dedicated flag register, JMPEZ/JMPNZ-style zero/nonzero branching.
// Grounded directly on the teacher's own target CPU, recovered from
// mscr/compiler/asm_generators.go's SETREG/STOR/SUB idiom (always
// routing arithmetic through a couple of fixed scratch registers) and
// asm_transformer.go's "JMPNZ .label D" shape (the branch's first
// operand names the register tested, not an implicit hardware flag).
// It exists for the CLI's default target and for package tests that
// need a real, if minimal, Platform rather than a mock.
package mcpc16

import (
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// registerNames is the machine's eight general-purpose registers, in
// declaration order. H doubles as the flag register ZeroFlag reports:
// every comparison and bare-condition test funnels its result through
// H before a conditional branch reads it, mirroring the teacher's own
// habit of reusing G/H as the two fixed scratch registers everything
// passes through.
var registerNames = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

const flagRegisterName = "H"

func u16Type() *typeck.Type {
	min, max := int128.Zero, int128.FromInt64(0xFFFF)
	return &typeck.Type{Kind: typeck.KindInteger, IntSize: 2, IntSigned: false, IntMin: min, IntMax: max, Name: "u16"}
}

func u24Type() *typeck.Type {
	min, max := int128.Zero, int128.FromInt64(0xFFFFFF)
	return &typeck.Type{Kind: typeck.KindInteger, IntSize: 3, IntSigned: false, IntMin: min, IntMax: max, Name: "u24"}
}

func buildRegisters() []*defs.BuiltinRegister {
	typ := u16Type()
	regs := make([]*defs.BuiltinRegister, 0, len(registerNames))
	for _, name := range registerNames {
		regs = append(regs, defs.NewBuiltinRegister(name, typ, name == flagRegisterName))
	}
	return regs
}

func registerIndex(name string) (byte, bool) {
	for i, n := range registerNames {
		if n == name {
			return byte(i), true
		}
	}
	return 0, false
}
