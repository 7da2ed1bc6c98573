package mcpc16

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/platform"
)

// maxCallArgs bounds how many argument slots the call/far-call rows
// are pre-generated for; a call with more arguments than this has no
// matching candidate and internal/instrsel reports it the same way it
// reports any other unmatched signature.
const maxCallArgs = 4

// Platform is the mcpc16 target.
type Platform struct {
	registers       []*defs.BuiltinRegister
	flag            *defs.BuiltinRegister
	pointerType     *defs.BuiltinIntegerType
	farPointerType  *defs.BuiltinIntegerType
	table           []*platform.Instruction
}

// New constructs the mcpc16 platform.
func New() *Platform {
	regs := buildRegisters()
	var flag *defs.BuiltinRegister
	for _, r := range regs {
		if r.IsZeroFlag {
			flag = r
		}
	}
	p := &Platform{
		registers:      regs,
		flag:           flag,
		pointerType:    defs.NewBuiltinIntegerType("u16", 2, false, int128.Zero, int128.FromInt64(0xffff)),
		farPointerType: defs.NewBuiltinIntegerType("u24", 3, false, int128.Zero, int128.FromInt64(0xffffff)),
	}
	p.table = p.buildInstructionTable()
	return p
}

func (p *Platform) Name() string                                { return "mcpc16" }
func (p *Platform) PointerSizedType() *defs.BuiltinIntegerType    { return p.pointerType }
func (p *Platform) FarPointerSizedType() *defs.BuiltinIntegerType { return p.farPointerType }
func (p *Platform) PlaceholderValue() int128.Int                 { return int128.FromInt64(0x5a5a) }
func (p *Platform) ZeroFlag() *defs.BuiltinRegister               { return p.flag }
func (p *Platform) Registers() []*defs.BuiltinRegister            { return p.registers }
func (p *Platform) InstructionTable() []*platform.Instruction     { return p.table }

// ModeGroups is empty: mcpc16 has no accumulator-width or
// near/far-pointer mode attributes to switch between (every register
// is a uniform 16 bits, and far addressing is selected by the AST's
// own far qualifiers, not a sticky mode flag).
func (p *Platform) ModeGroups() []platform.ModeGroup { return nil }

// GetTestAndBranch implements the only comparisons this machine can
// test directly: equality and inequality, by subtracting right from
// left into the flag register and reading it for zero/nonzero
// (grounded on asm_transformer.go's JMPEZ/JMPNZ shape, the only
// conditional branches the teacher's target exposes). Ordering
// comparisons (<, <=, >, >=) have no native support here and fall
// back to the caller's commuted-operand retry, then to an error —
// documented in DESIGN.md as a deliberate limitation of this minimal
// sample target rather than an oversight.
func (p *Platform) GetTestAndBranch(commonType interface{}, op string, left, right interface{}, hint platform.DistanceHint) *platform.TestAndBranch {
	switch op {
	case "==":
		return &platform.TestAndBranch{
			TestInstruction: platform.InstructionType{Kind: "test", Name: "cmp"},
			Branches:        []platform.FlagCondition{{Flag: p.flag, ExpectedValue: true, SuccessEdge: true}},
		}
	case "!=":
		return &platform.TestAndBranch{
			TestInstruction: platform.InstructionType{Kind: "test", Name: "cmp"},
			Branches:        []platform.FlagCondition{{Flag: p.flag, ExpectedValue: false, SuccessEdge: true}},
		}
	}
	return nil
}

func inst(typ platform.InstructionType, sig []platform.OperandPattern, enc platform.Encoding) *platform.Instruction {
	return &platform.Instruction{Type: typ, Signature: sig, Encoding: enc}
}

func (p *Platform) buildInstructionTable() []*platform.Instruction {
	var t []*platform.Instruction

	// Assignment and the register-producing binary operators all share
	// one shape: destination register, one value-shaped source.
	binops := []struct {
		name string
		op   byte
	}{
		{"=", opMov}, {"+", opAddReg}, {"-", opSubReg},
		{"&", opAndReg}, {"|", opOrReg}, {"^", opXorReg},
	}
	for _, b := range binops {
		op := b.op
		t = append(t, inst(
			platform.InstructionType{Kind: "binop", Name: b.name},
			[]platform.OperandPattern{registerOperand{}, valueOperand{}},
			fixedEncoding{size: 5, build: func(c []interface{}) []byte {
				return append([]byte{op, regByte(c[0])}, wordBytes(c[1])...)
			}},
		))
	}

	unops := []struct {
		name string
		op   byte
	}{
		{"-", opNeg}, {"~", opNot}, {"++", opInc}, {"--", opDec},
		{"*", opLoadInd}, {"<:", opLowByte}, {">:", opHighByte},
	}
	for _, u := range unops {
		op := u.op
		t = append(t, inst(
			platform.InstructionType{Kind: "unop", Name: u.name},
			[]platform.OperandPattern{registerOperand{}},
			fixedEncoding{size: 2, build: func(c []interface{}) []byte { return []byte{op, regByte(c[0])} }},
		))
	}

	t = append(t,
		inst(platform.InstructionType{Kind: "test", Name: "register"},
			[]platform.OperandPattern{valueOperand{}},
			fixedEncoding{size: 4, build: func(c []interface{}) []byte { return append([]byte{opTest}, wordBytes(c[0])...) }}),
		inst(platform.InstructionType{Kind: "test", Name: "cmp"},
			[]platform.OperandPattern{valueOperand{}, valueOperand{}},
			fixedEncoding{size: 7, build: func(c []interface{}) []byte {
				return append(append([]byte{opCmpSub}, wordBytes(c[0])...), wordBytes(c[1])...)
			}}),
		inst(platform.InstructionType{Kind: "eval", Name: "expr"},
			[]platform.OperandPattern{anyOperand{}},
			fixedEncoding{size: 0, build: func([]interface{}) []byte { return nil }}),
	)

	t = append(t, p.branchInstructions()...)
	t = append(t, p.intrinsicInstructions()...)
	return t
}

// branchInstructions builds the goto/call/return family, including
// the conditional three-operand (flag, expected, dest) form every
// comparison and bare-condition test funnels through.
func (p *Platform) branchInstructions() []*platform.Instruction {
	var t []*platform.Instruction

	// Conditional: flag register, expected boolean (chooses JMPEZ vs
	// JMPNZ at build time, a compile-time constant, not an encoded
	// byte), destination address.
	for _, name := range []string{"goto", "call"} {
		t = append(t, inst(
			platform.InstructionType{Kind: "branch", Name: name},
			[]platform.OperandPattern{registerOperand{}, boolOperand{}, addressOperand{}},
			fixedEncoding{size: 4, build: func(c []interface{}) []byte {
				op := opJmpNZ
				if c[1].(bool) {
					op = opJmpEZ
				}
				return append([]byte{op, regByte(c[0])}, le16(uint16(addressValue(c[2])))...)
			}},
		))
	}

	// Unconditional near/far goto, call/far call with 0..maxCallArgs
	// arguments, and the return family.
	for n := 0; n <= maxCallArgs; n++ {
		n := n
		sig := append([]platform.OperandPattern{addressOperand{}}, repeatPattern(valueOperand{}, n)...)
		t = append(t,
			inst(platform.InstructionType{Kind: "branch", Name: "call"}, sig, callEncoding(opCall, 2, n)),
			inst(platform.InstructionType{Kind: "branch", Name: "far call"}, sig, callEncoding(opCallFar, 3, n)),
		)
	}
	t = append(t,
		inst(platform.InstructionType{Kind: "branch", Name: "goto"},
			[]platform.OperandPattern{addressOperand{}},
			fixedEncoding{size: 3, build: func(c []interface{}) []byte {
				return append([]byte{opJmp}, le16(uint16(addressValue(c[0])))...)
			}}),
		inst(platform.InstructionType{Kind: "branch", Name: "far goto"},
			[]platform.OperandPattern{addressOperand{}},
			fixedEncoding{size: 4, build: func(c []interface{}) []byte {
				return append([]byte{opJmpFar}, le24(addressValue(c[0]))...)
			}}),
	)

	for _, pair := range []struct {
		name string
		op   byte
	}{{"return", opRet}, {"far return", opRetFar}} {
		op := pair.op
		t = append(t,
			inst(platform.InstructionType{Kind: "branch", Name: pair.name},
				[]platform.OperandPattern{emptyDestOperand{}},
				fixedEncoding{size: 1, build: func([]interface{}) []byte { return []byte{op} }}),
			inst(platform.InstructionType{Kind: "branch", Name: pair.name},
				[]platform.OperandPattern{emptyDestOperand{}, valueOperand{}},
				fixedEncoding{size: 4, build: func(c []interface{}) []byte {
					return append([]byte{opRetVal}, wordBytes(c[1])...)
				}}),
		)
	}
	return t
}

func repeatPattern(p platform.OperandPattern, n int) []platform.OperandPattern {
	out := make([]platform.OperandPattern, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// callEncoding builds a call's bytes: the opcode, each argument as a
// (kind, value) triple in source order, then the destination encoded
// at addrBytes width (2 for near, 3 for far).
func callEncoding(op byte, addrBytes, nargs int) fixedEncoding {
	size := 1 + 3*nargs + addrBytes
	return fixedEncoding{size: size, build: func(c []interface{}) []byte {
		out := []byte{op}
		for i := 1; i <= nargs; i++ {
			out = append(out, wordBytes(c[i])...)
		}
		dest := addressValue(c[0])
		if addrBytes == 3 {
			out = append(out, le24(dest)...)
		} else {
			out = append(out, le16(uint16(dest))...)
		}
		return out
	}}
}

// intrinsicOperand matches the resolved callee of a builtin
// load/void-intrinsic call (spec.md 4.10): an identifier whose
// definition is one of the builtin intrinsic kinds, never resolved
// away by internal/codegen since it carries no SourceExpr.
type intrinsicOperand struct{}

func (intrinsicOperand) Matches(v interface{}) bool {
	id, ok := v.(*ast.ResolvedIdentifier)
	if !ok {
		return false
	}
	switch id.Def.(type) {
	case *defs.BuiltinVoidIntrinsic, *defs.BuiltinLoadIntrinsic:
		return true
	}
	return false
}
func (intrinsicOperand) String() string { return "intrinsic" }

func intrinsicOpcode(v interface{}) byte {
	id, _ := v.(*ast.ResolvedIdentifier)
	switch id.Def.(*defs.BuiltinVoidIntrinsic).DeclName() {
	case "debugbreak":
		return opDebug
	case "swap":
		return opSwap
	}
	return opNop
}

func (p *Platform) intrinsicInstructions() []*platform.Instruction {
	return []*platform.Instruction{
		inst(platform.InstructionType{Kind: "call", Name: "intrinsic"},
			[]platform.OperandPattern{intrinsicOperand{}},
			fixedEncoding{size: 1, build: func(c []interface{}) []byte { return []byte{intrinsicOpcode(c[0])} }}),
		inst(platform.InstructionType{Kind: "call", Name: "intrinsic"},
			[]platform.OperandPattern{intrinsicOperand{}, valueOperand{}},
			fixedEncoding{size: 4, build: func(c []interface{}) []byte {
				id := c[0].(*ast.ResolvedIdentifier)
				op := opPeek
				if li, ok := id.Def.(*defs.BuiltinLoadIntrinsic); ok && li.DeclName() == "peekw" {
					op = opPeekW
				}
				return append([]byte{op}, wordBytes(c[1])...)
			}}),
		inst(platform.InstructionType{Kind: "call", Name: "indirect"},
			[]platform.OperandPattern{valueOperand{}},
			fixedEncoding{size: 4, build: func(c []interface{}) []byte { return append([]byte{opCallInd}, wordBytes(c[0])...) }}),
	}
}
