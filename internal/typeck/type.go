// Package typeck implements the TypeReducer (spec.md 4.2): canonicalizing
// declared type expressions into a resolved Type, computing storage
// size and type equivalence, and narrowing/conversion checks.
//
// Grounded on the teacher's flat asmType{name, size, builtin, members}
// model in mscr/compiler/asm_types.go, generalized into the spec's full
// type-expression tree.
package typeck

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
)

// TypeKind discriminates canonical Type variants.
type TypeKind int

const (
	KindBool TypeKind = iota
	KindInteger
	KindIntegerExpression // iexpr
	KindPointer
	KindFunction
	KindTuple
	KindArray
	KindStruct
	KindEnum
	KindDesignatedStorage
	KindRange
	KindVoid
	KindTypeOf   // unresolved placeholder, only transient
	KindBankType // the `rom`/`ram` element type of a bank's `[rom; capacity]`/`[ram; capacity]` TypeExpr
)

// Type is the canonical, reduced type representation. Every field not
// relevant to Kind is left zero.
type Type struct {
	Kind TypeKind

	// KindInteger
	IntSize   int // bytes
	IntSigned bool
	IntMin    int128.Int
	IntMax    int128.Int

	// KindPointer
	PointerElement TypeExprHandle
	PointerQuals   ast.PointerQualifiers
	PointerIsFar   bool

	// KindFunction
	FuncFar    bool
	FuncParams []TypeExprHandle
	FuncReturn TypeExprHandle // nil == void

	// KindTuple
	TupleElements []TypeExprHandle

	// KindArray
	ArrayElement TypeExprHandle
	ArrayLength  int
	ArrayHasLength bool

	// KindStruct / KindEnum: opaque definition handle (avoids cyclic
	// import on internal/defs, which itself depends on internal/typeck
	// only through opaque `interface{}` fields).
	Def interface{}

	// KindDesignatedStorage
	StorageElement TypeExprHandle
	StorageHolder  ast.Expr

	// KindBankType
	BankTypeKind defs.BankKind

	// Name is a debug label (builtin type name, struct/enum name).
	Name string
}

// TypeExprHandle is a pointer to a canonical Type. A distinct name (over
// a bare *Type) documents the field's role in the tree.
type TypeExprHandle = *Type

// StorageSize computes the storage size in bytes per spec.md 4.2
// "Storage size". ok is false when the type has no size (iexpr, typeof,
// DesignatedStorage, or an array whose length is unknown).
func (t *Type) StorageSize() (int, bool) {
	if t == nil {
		return 0, false
	}
	switch t.Kind {
	case KindBool:
		return 1, true
	case KindInteger:
		return t.IntSize, true
	case KindPointer:
		if t.PointerIsFar {
			return 3, true // far pointer: bank byte + 16-bit offset, platform-agnostic default
		}
		return 2, true
	case KindFunction:
		if t.FuncFar {
			return 3, true
		}
		return 2, true
	case KindTuple:
		sum := 0
		for _, e := range t.TupleElements {
			s, ok := e.StorageSize()
			if !ok {
				return 0, false
			}
			sum += s
		}
		return sum, true
	case KindStruct:
		return structSize(t)
	case KindEnum:
		return enumSize(t)
	case KindArray:
		if !t.ArrayHasLength {
			return 0, false
		}
		elemSize, ok := t.ArrayElement.StorageSize()
		if !ok {
			return 0, false
		}
		return elemSize * t.ArrayLength, true
	default:
		return 0, false
	}
}

// structSize and enumSize are set by internal/compiler once phase 2 has
// resolved struct/enum layouts; declared as function variables here to
// avoid a dependency from typeck on defs while still letting StorageSize
// dispatch through them.
var structSize = func(t *Type) (int, bool) { return 0, false }
var enumSize = func(t *Type) (int, bool) { return 0, false }

// SetStructSizeResolver lets internal/compiler wire struct-size lookups
// (structs live in internal/defs, which typeck cannot import).
func SetStructSizeResolver(f func(t *Type) (int, bool)) { structSize = f }

// SetEnumSizeResolver lets internal/compiler wire enum-size lookups.
func SetEnumSizeResolver(f func(t *Type) (int, bool)) { enumSize = f }

// Shared singleton instances for the handful of types with no
// parameters, so equality checks by Kind suffice without allocating a
// fresh *Type at every use site.
var (
	Bool  = &Type{Kind: KindBool, Name: "bool"}
	Void  = &Type{Kind: KindVoid, Name: "void"}
	IExpr = &Type{Kind: KindIntegerExpression, Name: "iexpr"}
	Range = &Type{Kind: KindRange, Name: "range"}
)

// PointerSize returns the storage size for a pointer of the given
// farness, per spec.md's near/far pointer distinction (§6 platform
// interface pointerSizedType/farPointerSizedType).
func PointerSize(far bool) int {
	if far {
		return 3
	}
	return 2
}
