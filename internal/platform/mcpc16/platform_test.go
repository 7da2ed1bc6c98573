package mcpc16

import (
	"testing"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/platform"
)

func TestNewSetsFlagRegisterAndTypes(t *testing.T) {
	p := New()
	if p.Name() != "mcpc16" {
		t.Errorf("got name %q, want mcpc16", p.Name())
	}
	if p.ZeroFlag() == nil || p.ZeroFlag().DeclName() != flagRegisterName {
		t.Fatalf("got flag register %v, want %q", p.ZeroFlag(), flagRegisterName)
	}
	if len(p.Registers()) != len(registerNames) {
		t.Fatalf("got %d registers, want %d", len(p.Registers()), len(registerNames))
	}
	if p.PointerSizedType().Size != 2 {
		t.Errorf("got pointer size %d, want 2", p.PointerSizedType().Size)
	}
	if p.FarPointerSizedType().Size != 3 {
		t.Errorf("got far pointer size %d, want 3", p.FarPointerSizedType().Size)
	}
	if len(p.ModeGroups()) != 0 {
		t.Errorf("got %d mode groups, want 0", len(p.ModeGroups()))
	}
}

func TestGetTestAndBranchEqualityOnly(t *testing.T) {
	p := New()
	if tb := p.GetTestAndBranch(nil, "==", nil, nil, platform.DistanceUnspecified); tb == nil {
		t.Fatal("expected a TestAndBranch for ==")
	} else if len(tb.Branches) != 1 || !tb.Branches[0].ExpectedValue {
		t.Errorf("got %+v, want a single branch expecting flag true", tb.Branches)
	}
	if tb := p.GetTestAndBranch(nil, "!=", nil, nil, platform.DistanceUnspecified); tb == nil {
		t.Fatal("expected a TestAndBranch for !=")
	} else if len(tb.Branches) != 1 || tb.Branches[0].ExpectedValue {
		t.Errorf("got %+v, want a single branch expecting flag false", tb.Branches)
	}
	if tb := p.GetTestAndBranch(nil, "<", nil, nil, platform.DistanceUnspecified); tb != nil {
		t.Errorf("got %+v, want nil for an unsupported ordering comparison", tb)
	}
}

func TestRegisterIndexRoundTrip(t *testing.T) {
	for i, name := range registerNames {
		idx, ok := registerIndex(name)
		if !ok || int(idx) != i {
			t.Errorf("registerIndex(%q) = %d, %v; want %d, true", name, idx, ok, i)
		}
	}
	if _, ok := registerIndex("Z"); ok {
		t.Error("expected registerIndex to reject an unknown register name")
	}
}

func TestWordBytesEncodesRegisterImmediateAndAddress(t *testing.T) {
	regs := buildRegisters()
	var a *defs.BuiltinRegister
	for _, r := range regs {
		if r.DeclName() == "A" {
			a = r
		}
	}
	got := wordBytes(&ast.ResolvedIdentifier{Def: a})
	want := []byte{kindRegister, 0, 0}
	if !bytesEqual(got, want) {
		t.Errorf("register: got %v, want %v", got, want)
	}

	got = wordBytes(&ast.IntegerLiteral{Value: int128.FromInt64(0x1234)})
	want = []byte{kindImmediate, 0x34, 0x12}
	if !bytesEqual(got, want) {
		t.Errorf("immediate: got %v, want %v", got, want)
	}

	got = wordBytes(int128.FromInt64(0xABCD))
	want = []byte{kindAddress, 0xCD, 0xAB}
	if !bytesEqual(got, want) {
		t.Errorf("address: got %v, want %v", got, want)
	}
}

func TestLe16AndLe24(t *testing.T) {
	if got := le16(0x1234); !bytesEqual(got, []byte{0x34, 0x12}) {
		t.Errorf("le16: got %v", got)
	}
	if got := le24(0x123456); !bytesEqual(got, []byte{0x56, 0x34, 0x12}) {
		t.Errorf("le24: got %v", got)
	}
}

func TestValueOperandMatchesRegisterImmediateAddress(t *testing.T) {
	regs := buildRegisters()
	v := valueOperand{}
	if !v.Matches(&ast.ResolvedIdentifier{Def: regs[0]}) {
		t.Error("expected valueOperand to match a register")
	}
	if !v.Matches(&ast.IntegerLiteral{Value: int128.FromInt64(1)}) {
		t.Error("expected valueOperand to match an integer literal")
	}
	if !v.Matches(int128.FromInt64(1)) {
		t.Error("expected valueOperand to match a resolved address")
	}
	if v.Matches("nonsense") {
		t.Error("expected valueOperand to reject an unrecognized shape")
	}
}

func TestEmptyDestOperandOnlyMatchesEmptyString(t *testing.T) {
	e := emptyDestOperand{}
	if !e.Matches("") {
		t.Error("expected emptyDestOperand to match the empty string")
	}
	if e.Matches("label") {
		t.Error("expected emptyDestOperand to reject a non-empty label name")
	}
	if e.Matches(0) {
		t.Error("expected emptyDestOperand to reject a non-string value")
	}
}

func TestInstructionTableCoversBinopsUnopsAndBranches(t *testing.T) {
	p := New()
	table := p.InstructionTable()
	if len(table) == 0 {
		t.Fatal("expected a non-empty instruction table")
	}

	found := map[string]bool{}
	for _, in := range table {
		found[in.Type.Kind+"/"+in.Type.Name] = true
	}
	for _, want := range []string{
		"binop/=", "binop/+", "binop/-", "binop/&", "binop/|", "binop/^",
		"unop/-", "unop/~", "unop/++", "unop/--",
		"test/cmp", "test/register",
		"branch/goto", "branch/call", "branch/return",
		"call/intrinsic", "call/indirect",
	} {
		if !found[want] {
			t.Errorf("instruction table missing %q", want)
		}
	}
}

func TestReturnEncodingWithAndWithoutValue(t *testing.T) {
	p := New()
	var bare, withValue *platform.Instruction
	for _, in := range p.InstructionTable() {
		if in.Type.Kind != "branch" || in.Type.Name != "return" {
			continue
		}
		if len(in.Signature) == 1 {
			bare = in
		} else if len(in.Signature) == 2 {
			withValue = in
		}
	}
	if bare == nil || withValue == nil {
		t.Fatal("expected both a bare and value-carrying return row")
	}
	if got := bare.Encoding.Encode([]interface{}{""}); !bytesEqual(got, []byte{opRet}) {
		t.Errorf("bare return: got %v, want [opRet]", got)
	}
	got := withValue.Encoding.Encode([]interface{}{"", &ast.IntegerLiteral{Value: int128.FromInt64(7)}})
	want := []byte{opRetVal, kindImmediate, 7, 0}
	if !bytesEqual(got, want) {
		t.Errorf("return with value: got %v, want %v", got, want)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
