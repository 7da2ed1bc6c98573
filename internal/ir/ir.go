// Package ir defines the linear intermediate representation spec.md §3
// lowers statements into: PushRelocation, PopRelocation, Label, Code,
// and Var nodes, consumed by internal/codegen's two-pass assembler.
//
// Generalized from the teacher's flat asmCmd/asmParam model
// (mscr/compiler/asm_types.go) into the spec's explicit node-kind set.
package ir

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
)

// Node is the sealed sum type of IR node kinds.
type Node interface {
	isNode()
	Position() report.Position
}

type base struct {
	Pos report.Position
}

func (b base) Position() report.Position { return b.Pos }

// PushRelocation switches the current bank (and optionally seeks to an
// absolute address within it) for the statements that follow, until the
// matching PopRelocation (spec.md 4.4 "In BANK [at ADDR]").
type PushRelocation struct {
	base
	Bank    *defs.Bank
	Address opt.Value[int] // optional absolute seek target
}

func (*PushRelocation) isNode() {}

// PopRelocation restores the bank/cursor active before the matching
// PushRelocation.
type PopRelocation struct {
	base
}

func (*PopRelocation) isNode() {}

// Label marks a code position; its owning Func's Address is filled
// during codegen pass 5a (spec.md Invariant 3).
type Label struct {
	base
	Func *defs.Func
	Name string // for synthetic/anonymous labels not backed by a Func
}

func (*Label) isNode() {}

// OperandRoot pairs an (optional) source expression with the operand
// value the instruction selector matched against (spec.md 4.6).
type OperandRoot struct {
	SourceExpr ast.Expr // nil for purely synthetic operands
	Operand    interface{}
}

// Code is one selected-and-sized instruction awaiting encoding.
type Code struct {
	base
	Instruction  interface{} // the InstructionType tag (internal/platform.InstructionType)
	OperandRoots []OperandRoot

	// Mode is the mode-flag mask active where this node was lowered
	// (spec.md 4.10); instruction selection requires a candidate's
	// ModeFilter be a superset of it.
	Mode platform.ModeMask

	// Encoding is filled once instruction selection (4.6) has picked a
	// concrete platform.Instruction candidate.
	Encoding interface{} // *platform.Instruction
	Size     int         // bytes, set during pass 5a
}

func (*Code) isNode() {}

// Var reserves/writes storage for a variable at the current bank
// cursor. Address, when present, is Def.AddressExpr already reduced to
// a compile-time int at lowering time (the enclosing scope is only
// available to internal/cflow, not to internal/codegen).
type Var struct {
	base
	Def     *defs.Var
	Address opt.Value[int]
}

func (*Var) isNode() {}

// Sequence is a flat ordered list of IR nodes, the unit consumed by
// internal/codegen.
type Sequence struct {
	Nodes []Node
}

func (s *Sequence) Append(n Node) { s.Nodes = append(s.Nodes, n) }
func (s *Sequence) Len() int      { return len(s.Nodes) }
