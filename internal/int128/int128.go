// Package int128 provides the arbitrary-precision integer type used to
// carry compile-time integer values (the "iexpr" carrier of spec.md's
// data model) through the expression reducer before they are narrowed
// to a sized, storable integer type.
package int128

import (
	"fmt"
	"math/big"
)

// Int wraps math/big.Int. There is no third-party bignum package in the
// retrieval pack; krux02-golem's GetIntLitType(value *big.Int) is the
// pack's own precedent for representing integer-literal values this way.
type Int struct {
	v *big.Int
}

// Zero is the additive identity.
var Zero = FromInt64(0)

// FromInt64 builds an Int from a native int64.
func FromInt64(n int64) Int {
	return Int{v: big.NewInt(n)}
}

// FromString parses s in the given base (math/big rules: a 0x/0b/0o
// prefix is accepted only when base is 0).
func FromString(s string, base int) (Int, bool) {
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return Int{}, false
	}
	return Int{v: v}, true
}

// FromBig wraps an existing big.Int, cloning it so the caller's copy
// stays mutable independently of the wrapped value.
func FromBig(v *big.Int) Int {
	return Int{v: new(big.Int).Set(v)}
}

func (a Int) ensure() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// Big returns the underlying big.Int (a defensive copy).
func (a Int) Big() *big.Int {
	return new(big.Int).Set(a.ensure())
}

func (a Int) Add(b Int) Int { return Int{v: new(big.Int).Add(a.ensure(), b.ensure())} }
func (a Int) Sub(b Int) Int { return Int{v: new(big.Int).Sub(a.ensure(), b.ensure())} }
func (a Int) Mul(b Int) Int { return Int{v: new(big.Int).Mul(a.ensure(), b.ensure())} }

// Div performs truncating division. ok is false on divide-by-zero
// (spec.md §4.3, §7 CompileTimeEvaluation).
func (a Int) Div(b Int) (Int, bool) {
	if b.Sign() == 0 {
		return Int{}, false
	}
	return Int{v: new(big.Int).Quo(a.ensure(), b.ensure())}, true
}

// Rem performs truncating remainder.
func (a Int) Rem(b Int) (Int, bool) {
	if b.Sign() == 0 {
		return Int{}, false
	}
	return Int{v: new(big.Int).Rem(a.ensure(), b.ensure())}, true
}

func (a Int) And(b Int) Int { return Int{v: new(big.Int).And(a.ensure(), b.ensure())} }
func (a Int) Or(b Int) Int  { return Int{v: new(big.Int).Or(a.ensure(), b.ensure())} }
func (a Int) Xor(b Int) Int { return Int{v: new(big.Int).Xor(a.ensure(), b.ensure())} }
func (a Int) Neg() Int      { return Int{v: new(big.Int).Neg(a.ensure())} }

func (a Int) Shl(n uint) Int { return Int{v: new(big.Int).Lsh(a.ensure(), n)} }
func (a Int) Shr(n uint) Int { return Int{v: new(big.Int).Rsh(a.ensure(), n)} }

func (a Int) Cmp(b Int) int  { return a.ensure().Cmp(b.ensure()) }
func (a Int) Sign() int      { return a.ensure().Sign() }
func (a Int) IsZero() bool   { return a.Sign() == 0 }
func (a Int) String() string { return a.ensure().String() }

// Int64 returns the value as an int64 and true if it fits, or 0 and
// false if it does not.
func (a Int) Int64() (int64, bool) {
	if !a.ensure().IsInt64() {
		return 0, false
	}
	return a.ensure().Int64(), true
}

// Uint64 returns the value as a uint64 and true if it fits, or 0 and
// false if it does not.
func (a Int) Uint64() (uint64, bool) {
	if !a.ensure().IsUint64() {
		return 0, false
	}
	return a.ensure().Uint64(), true
}

// FitsRange reports whether a lies within [min, max] inclusive
// (spec.md §4.2 narrowing).
func (a Int) FitsRange(min, max Int) bool {
	return a.Cmp(min) >= 0 && a.Cmp(max) <= 0
}

// Mask returns a masked to the low `bits` bits, unsigned
// (spec.md §8 "Integer mask identity").
func (a Int) Mask(bits uint) Int {
	if bits == 0 {
		return Zero
	}
	m := new(big.Int).Lsh(big.NewInt(1), bits)
	m.Sub(m, big.NewInt(1))
	return Int{v: new(big.Int).And(a.ensure(), m)}
}

// Rotate performs a bit rotation of a `bits`-wide unsigned value by
// `amount` (positive = left), per spec.md 4.3 Rotate/LogicalRotate:
// "rotation amount modulo width".
func (a Int) Rotate(bits uint, amount int) Int {
	if bits == 0 {
		return a
	}
	amount = ((amount % int(bits)) + int(bits)) % int(bits)
	masked := a.Mask(bits)
	left := masked.Shl(uint(amount)).Mask(bits)
	right := masked.Shr(bits - uint(amount))
	if amount == 0 {
		return masked
	}
	return left.Or(right)
}

// Byte extracts the byte at the given little-endian offset, as used
// for the LowByte/HighByte/BankByte unary operators (spec.md 4.3).
func (a Int) Byte(offset uint) Int {
	return a.Shr(offset * 8).Mask(8)
}

func (a Int) GoString() string {
	return fmt.Sprintf("int128.Int(%s)", a.String())
}
