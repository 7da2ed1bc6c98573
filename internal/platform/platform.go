// Package platform defines the trait the compiler core consumes
// (spec.md §6 "Platform interface"): pointer/far-pointer sized types,
// a placeholder sentinel, an optional zero-flag register, the
// instruction pattern table, and comparison lowering.
package platform

import (
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
)

// InstructionType tags a candidate instruction's operation: a
// binary/unary operator, a branch kind, or a named intrinsic (spec.md
// 4.6).
type InstructionType struct {
	// Kind is a short discriminant ("binop", "unop", "test", "branch",
	// "call", "eval"); Name further identifies it (operator symbol,
	// branch kind name, call form such as intrinsic/indirect).
	Kind string
	Name string
}

func (t InstructionType) String() string { return t.Kind + ":" + t.Name }

// OperandPattern matches one operand slot of a candidate instruction
// against a concrete operand root at selection time.
type OperandPattern interface {
	// Matches reports whether operand (an ir.OperandRoot.Operand value)
	// satisfies this pattern.
	Matches(operand interface{}) bool
	String() string
}

// Encoding produces the machine bytes for an instruction once every
// operand's link-time value is known, and can report how many bytes it
// will occupy given only placeholder values (pass 5a sizing).
type Encoding interface {
	// CalculateSize returns the byte length of the encoded instruction
	// given capture lists extracted from the matched operand roots. It
	// must be querent-stable: called with placeholder values during
	// pass 5a, it returns the same size the real values will produce in
	// pass 5b (fixed-width encodings satisfy this trivially; variable
	// width encodings must pick their final width during selection).
	CalculateSize(captures []interface{}) int
	// Encode produces the final bytes given the resolved captures.
	Encode(captures []interface{}) []byte
}

// Instruction is one candidate row of the platform's pattern table.
type Instruction struct {
	Type       InstructionType
	Signature  []OperandPattern
	ModeFilter ModeMask
	Encoding   Encoding
	// AffectedFlags names registers whose values this instruction
	// clobbers. mcpc16 leaves it empty, and neither instruction
	// selection nor the peephole pass reads it.
	AffectedFlags []string
}

// ModeMask is a bitmask of active mode-flag groups (spec.md GLOSSARY
// "Mode flag"); membership within a group is mutually exclusive.
type ModeMask uint64

// IsSupersetOf reports whether m contains every bit set in required —
// spec.md 4.6: "mode filter is a superset of the active mode".
func (m ModeMask) IsSupersetOf(required ModeMask) bool {
	return m&required == required
}

// FlagCondition is one (flag, expectedValue, successEdge) entry of a
// TestAndBranch (spec.md 4.7).
type FlagCondition struct {
	Flag          *defs.BuiltinRegister
	ExpectedValue bool
	// SuccessEdge, when true, means "branch to destination when the
	// flag equals ExpectedValue"; when false the condition instead
	// guards fallthrough (used internally by emitBranch's negation).
	SuccessEdge bool
}

// TestAndBranch is the platform-supplied lowering record for a
// comparison (spec.md GLOSSARY "TestAndBranch"): a test instruction
// type plus the flag branches that follow it.
type TestAndBranch struct {
	TestInstruction InstructionType
	Branches        []FlagCondition
}

// DistanceHint mirrors the parser-level hint on branch statements
// (near/far/unspecified), consulted by platform Goto/Call selection.
type DistanceHint int

const (
	DistanceUnspecified DistanceHint = iota
	DistanceNear
	DistanceFar
)

// Platform is spec.md §6's platform trait.
type Platform interface {
	Name() string

	// PointerSizedType and FarPointerSizedType return the builtin
	// integer type backing near/far pointers.
	PointerSizedType() *defs.BuiltinIntegerType
	FarPointerSizedType() *defs.BuiltinIntegerType

	// PlaceholderValue is the sentinel injected into operand trees
	// during pass 5a sizing to stand in for link-time-unknown addresses.
	PlaceholderValue() int128.Int

	// ZeroFlag returns the register that reflects "last result was
	// zero", or nil if the platform has none.
	ZeroFlag() *defs.BuiltinRegister

	// InstructionTable enumerates every candidate instruction.
	InstructionTable() []*Instruction

	// GetTestAndBranch produces the comparison lowering for `left op
	// right`, or nil if the platform has no direct support (the caller
	// retries with the operands commuted when the operator allows it,
	// and otherwise reports an error).
	GetTestAndBranch(commonType interface{}, op string, left, right interface{}, hint DistanceHint) *TestAndBranch

	// Registers returns every builtin register this platform exposes,
	// for Builtins to install into the root scope.
	Registers() []*defs.BuiltinRegister

	// ModeGroups returns the platform's mode-attribute table: each
	// entry names a mutually-exclusive group of attribute names and the
	// mask bits they set (spec.md 4.10).
	ModeGroups() []ModeGroup
}

// ModeGroup is one mutually-exclusive family of mode attributes (e.g.
// 8-bit/16-bit accumulator width).
type ModeGroup struct {
	Name    string
	Members map[string]ModeMask // attribute name -> mask bits it sets
	// GroupMask is the union of every member's bits, used to clear the
	// group before setting a new member.
	GroupMask ModeMask
}
