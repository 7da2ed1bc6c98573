package mcpc16

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
)

// registerOperand matches a direct register reference: either an
// ast.ResolvedIdentifier whose Def is a BuiltinRegister (the common
// case, an operand that started life as source text) or a raw
// *defs.BuiltinRegister (how internal/cflow.emitFlagBranch passes the
// flag register through, with no source expression behind it).
type registerOperand struct{}

func (registerOperand) Matches(v interface{}) bool {
	_, ok := asRegister(v)
	return ok
}
func (registerOperand) String() string { return "reg" }

func asRegister(v interface{}) (*defs.BuiltinRegister, bool) {
	switch n := v.(type) {
	case *defs.BuiltinRegister:
		return n, true
	case *ast.ResolvedIdentifier:
		if r, ok := n.Def.(*defs.BuiltinRegister); ok {
			return r, true
		}
	}
	return nil, false
}

// immediateOperand matches a compile-time literal that never resolved
// to an address: an integer or boolean literal straight off the
// expression tree.
type immediateOperand struct{}

func (immediateOperand) Matches(v interface{}) bool {
	switch v.(type) {
	case *ast.IntegerLiteral, *ast.BooleanLiteral:
		return true
	}
	return false
}
func (immediateOperand) String() string { return "imm" }

func asImmediate(v interface{}) (int128.Int, bool) {
	switch n := v.(type) {
	case *ast.IntegerLiteral:
		return n.Value, true
	case *ast.BooleanLiteral:
		if n.Value {
			return int128.FromInt64(1), true
		}
		return int128.Zero, true
	}
	return int128.Int{}, false
}

// addressOperand matches a resolved memory address: internal/codegen's
// resolveOperand substitutes a Var/Func identifier for its int128.Int
// address (or the platform's placeholder sentinel during pass 5a)
// before instruction selection ever runs.
type addressOperand struct{}

func (addressOperand) Matches(v interface{}) bool {
	_, ok := v.(int128.Int)
	return ok
}
func (addressOperand) String() string { return "addr" }

func asAddress(v interface{}) (int128.Int, bool) {
	n, ok := v.(int128.Int)
	return n, ok
}

// emptyDestOperand matches the unused "" destination internal/cflow
// hands a plain return/far-return branch (it carries no jump target;
// internal/codegen's resolveLabel passes an empty name through
// unresolved rather than treating it as a real label).
type emptyDestOperand struct{}

func (emptyDestOperand) Matches(v interface{}) bool { s, ok := v.(string); return ok && s == "" }
func (emptyDestOperand) String() string              { return "(none)" }

// valueOperand matches anything that carries a real, encodable value:
// a register, an immediate literal, or a resolved address. Used for
// slots (assignment sources, binop right-hand sides, return values)
// where the encoding dispatches on the concrete shape itself rather
// than needing the signature to split into parallel reg/imm rows.
type valueOperand struct{}

func (valueOperand) Matches(v interface{}) bool {
	if (registerOperand{}).Matches(v) {
		return true
	}
	if (immediateOperand{}).Matches(v) {
		return true
	}
	return addressOperand{}.Matches(v)
}
func (valueOperand) String() string { return "value" }

// boolOperand matches the literal expected-flag-value internal/cflow
// passes for a conditional branch (spec.md 4.7's FlagCondition).
type boolOperand struct{}

func (boolOperand) Matches(v interface{}) bool { _, ok := v.(bool); return ok }
func (boolOperand) String() string              { return "bool" }

// anyOperand matches anything; used for the rare slot whose shape
// doesn't affect encoding (e.g. an intrinsic call's resolved callee).
type anyOperand struct{}

func (anyOperand) Matches(interface{}) bool { return true }
func (anyOperand) String() string            { return "any" }

// operand kind tags, embedded in the encoded instruction stream ahead
// of a value so the (hypothetical) decoder knows how to interpret the
// two bytes that follow it.
const (
	kindRegister byte = 0
	kindImmediate byte = 1
	kindAddress   byte = 2
)

// encodeValue extracts a (kind, 16-bit value) pair from a register/
// immediate/address capture, panicking only on a shape Select should
// never have let through (an internal bug, not a user error).
func encodeValue(v interface{}) (byte, uint16) {
	if r, ok := asRegister(v); ok {
		idx, _ := registerIndex(r.DeclName())
		return kindRegister, uint16(idx)
	}
	if imm, ok := asImmediate(v); ok {
		u, _ := imm.Uint64()
		return kindImmediate, uint16(u)
	}
	if addr, ok := asAddress(v); ok {
		u, _ := addr.Uint64()
		return kindAddress, uint16(u)
	}
	panic(fmt.Sprintf("mcpc16: unexpected operand capture %#v", v))
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func le24(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16)} }

// addressValue extracts a branch/call destination's full 32-bit
// value (every destination, resolved address or placeholder sentinel
// alike, arrives as an int128.Int). Kept separate from encodeValue's
// 16-bit-wide word encoding so a far destination's bank byte never
// gets truncated away.
func addressValue(v interface{}) uint32 {
	addr, ok := asAddress(v)
	if !ok {
		panic(fmt.Sprintf("mcpc16: unexpected destination capture %#v", v))
	}
	u, _ := addr.Uint64()
	return uint32(u)
}

// wordBytes appends a (kind, value) triple for v: the uniform
// three-byte shape every non-register slot of an mcpc16 instruction
// uses, whether the value came from a register, a literal, or a
// resolved address.
func wordBytes(v interface{}) []byte {
	kind, val := encodeValue(v)
	return append([]byte{kind}, le16(val)...)
}
