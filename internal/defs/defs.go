// Package defs implements the Definition sum type from spec.md §3: the
// tagged union of every declared entity, created once in phase 1 with a
// stable handle used for the rest of compilation (spec.md Invariant 1).
//
// Modeled as a sealed interface with concrete per-kind structs, the
// shape krux02-golem/astnodes.go uses for its AstNode/Expr interfaces
// (an AbstractAstNode-style embedding for shared fields).
package defs

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/report"
)

// Kind discriminates concrete Definition variants.
type Kind int

const (
	KindVar Kind = iota
	KindFunc
	KindLet
	KindBank
	KindEnum
	KindEnumMember
	KindStruct
	KindStructMember
	KindNamespace
	KindTypeAlias
	KindBuiltinRegister
	KindBuiltinIntegerType
	KindBuiltinBoolType
	KindBuiltinIntegerExpressionType
	KindBuiltinBankType
	KindBuiltinRangeType
	KindBuiltinLoadIntrinsic
	KindBuiltinVoidIntrinsic
)

// Definition is the sealed sum type of every declared entity.
type Definition interface {
	isDefinition()
	Kind() Kind
	// DeclName is the identifier this definition was created under, for
	// diagnostics (ambiguity listings, redefinition errors).
	DeclName() string
	DeclPosition() report.Position
}

type base struct {
	Name string
	Pos  report.Position
}

func (b *base) DeclName() string             { return b.Name }
func (b *base) DeclPosition() report.Position { return b.Pos }

// New constructs the embeddable base with a name and declaration site.
func newBase(name string, pos report.Position) base { return base{Name: name, Pos: pos} }

// ---------------------------------------------------------------------
// Var
// ---------------------------------------------------------------------

// Address records where a Var/Label ultimately lives: a relative offset
// within a bank, an absolute address, and the owning bank handle
// (spec.md §3 Var.address).
type Address struct {
	Absolute opt.Value[int128.Int]
	Relative opt.Value[int128.Int]
	Bank     *Bank
}

// Var is spec.md §3's Var definition.
type Var struct {
	base

	Const     bool
	WriteOnly bool
	Extern    bool
	Far       bool
	LValue    bool

	EnclosingFunction *Func // nil at module scope

	TypeExpr     ast.TypeExpr  // as declared, pre-reduction
	AddressExpr  ast.Expr      // optional explicit @address
	ResolvedType interface{}   // *typeck.Type, non-nil invariant (spec.md Invariant 5)
	StorageSize  opt.Value[int]

	Address opt.Value[Address]

	InitializerExpr ast.Expr // optional

	// NestedConstants holds anonymous Vars created by the `@` operator
	// inside this Var's initializer (spec.md 4.3 AddressReserve).
	NestedConstants []*Var
}

func (*Var) isDefinition() {}
func (*Var) Kind() Kind    { return KindVar }

// NewVar constructs a Var definition (phase 1 reservation).
func NewVar(name string, pos report.Position) *Var {
	return &Var{base: newBase(name, pos), LValue: true}
}

// ---------------------------------------------------------------------
// Func
// ---------------------------------------------------------------------

// Func is spec.md §3's Func definition.
type Func struct {
	base

	Fallthrough bool
	Inlined     bool
	Far         bool
	ReturnKind  ast.BranchKind

	ReturnTypeExpr ast.TypeExpr // optional
	EnclosingScope interface{}  // *scope.Scope; opaque to avoid import cycle
	Body           []ast.Statement

	Parameters []*Var

	ResolvedSignature interface{} // *typeck.Type (Function variant)
	Address           opt.Value[Address]

	HasUnconditionalReturn bool

	// Attributes carried through from the AST, set by the
	// function-attribute table in internal/builtins (irq/nmi).
	IRQ  bool
	NMI  bool
}

func (*Func) isDefinition() {}
func (*Func) Kind() Kind    { return KindFunc }

func NewFunc(name string, pos report.Position) *Func {
	return &Func{base: newBase(name, pos)}
}

// ---------------------------------------------------------------------
// Let
// ---------------------------------------------------------------------

// Let is spec.md §3's Let definition: a parameterless or parameterized
// compile-time macro.
type Let struct {
	base
	Parameters []string
	BodyExpr   ast.Expr
}

func (*Let) isDefinition() {}
func (*Let) Kind() Kind    { return KindLet }

func NewLet(name string, params []string, body ast.Expr, pos report.Position) *Let {
	return &Let{base: newBase(name, pos), Parameters: params, BodyExpr: body}
}

// ---------------------------------------------------------------------
// Bank
// ---------------------------------------------------------------------

// BankKind distinguishes ROM-like (stored) banks from RAM-like
// (reservation-only) banks (spec.md GLOSSARY "Bank").
type BankKind int

const (
	BankKindRom BankKind = iota
	BankKindRam
)

// Bank is spec.md §3's Bank definition, paired 1:1 with a
// internal/bank.Bank runtime allocator instance once storage reservation
// begins.
type Bank struct {
	base

	AddressExpr ast.Expr
	TypeExpr    ast.TypeExpr
	ResolvedType interface{} // *typeck.Type

	BankKind BankKind

	// Handle is set once internal/bank.New has been constructed for
	// this definition (phase 3); opaque to avoid an import cycle.
	Handle interface{}
}

func (*Bank) isDefinition() {}
func (*Bank) Kind() Kind    { return KindBank }

func NewBank(name string, pos report.Position) *Bank {
	return &Bank{base: newBase(name, pos)}
}

// ---------------------------------------------------------------------
// Enum / EnumMember
// ---------------------------------------------------------------------

// Enum is spec.md §3's Enum definition.
type Enum struct {
	base
	UnderlyingTypeExpr  ast.TypeExpr // optional
	ResolvedUnderlying  interface{}  // *typeck.Type
	Members             []*EnumMember
	Env                 interface{} // *scope.Scope
}

func (*Enum) isDefinition() {}
func (*Enum) Kind() Kind    { return KindEnum }

func NewEnum(name string, pos report.Position) *Enum {
	return &Enum{base: newBase(name, pos)}
}

// EnumMember is spec.md §3's EnumMember definition.
type EnumMember struct {
	base
	Owner       *Enum
	BaseExpr    ast.Expr // optional explicit `= expr`
	Offset      int      // position within a same-base run (0 for the first, N for the Nth after)
	ReducedExpr ast.Expr // filled in phase 2 once the member's value is known
}

func (*EnumMember) isDefinition() {}
func (*EnumMember) Kind() Kind    { return KindEnumMember }

// NewEnumMember constructs an enum member definition. offset is its
// position within the same-base run its BaseExpr (if any) started.
func NewEnumMember(name string, pos report.Position, owner *Enum, baseExpr ast.Expr, offset int) *EnumMember {
	return &EnumMember{base: newBase(name, pos), Owner: owner, BaseExpr: baseExpr, Offset: offset}
}

// ---------------------------------------------------------------------
// Struct / StructMember
// ---------------------------------------------------------------------

// StructKind mirrors ast.StructKind.
type StructKind = ast.StructKind

// Struct is spec.md §3's Struct definition.
type Struct struct {
	base
	StructKind StructKind
	Members    []*StructMember
	Size       opt.Value[int]
	Env        interface{} // *scope.Scope
}

func (*Struct) isDefinition() {}
func (*Struct) Kind() Kind    { return KindStruct }

func NewStruct(name string, kind StructKind, pos report.Position) *Struct {
	return &Struct{base: newBase(name, pos), StructKind: kind}
}

// StructMember is spec.md §3's StructMember definition.
type StructMember struct {
	base
	Owner        *Struct
	TypeExpr     ast.TypeExpr
	ResolvedType interface{} // *typeck.Type
	Offset       opt.Value[int]
}

func (*StructMember) isDefinition() {}
func (*StructMember) Kind() Kind    { return KindStructMember }

// NewStructMember constructs a struct/union member definition.
func NewStructMember(name string, pos report.Position, owner *Struct, typeExpr ast.TypeExpr) *StructMember {
	return &StructMember{base: newBase(name, pos), Owner: owner, TypeExpr: typeExpr}
}

// ---------------------------------------------------------------------
// Namespace
// ---------------------------------------------------------------------

// Namespace is spec.md §3's Namespace definition.
type Namespace struct {
	base
	Env interface{} // *scope.Scope
}

func (*Namespace) isDefinition() {}
func (*Namespace) Kind() Kind    { return KindNamespace }

func NewNamespace(name string, pos report.Position) *Namespace {
	return &Namespace{base: newBase(name, pos)}
}

// ---------------------------------------------------------------------
// TypeAlias
// ---------------------------------------------------------------------

// TypeAlias is spec.md §3's TypeAlias definition.
type TypeAlias struct {
	base
	TypeExpr     ast.TypeExpr
	ResolvedType interface{} // *typeck.Type; nil until phase 2 resolves it
}

func (*TypeAlias) isDefinition() {}
func (*TypeAlias) Kind() Kind    { return KindTypeAlias }

func NewTypeAlias(name string, typeExpr ast.TypeExpr, pos report.Position) *TypeAlias {
	return &TypeAlias{base: newBase(name, pos), TypeExpr: typeExpr}
}

// ---------------------------------------------------------------------
// Builtins
// ---------------------------------------------------------------------

// BuiltinRegister is spec.md §3's BuiltinRegister definition: a named
// platform register with a fixed type.
type BuiltinRegister struct {
	base
	Type interface{} // *typeck.Type
	// IsZeroFlag marks the register a platform reports as its zero
	// flag (platform.Platform.ZeroFlag).
	IsZeroFlag bool
}

func (*BuiltinRegister) isDefinition() {}
func (*BuiltinRegister) Kind() Kind    { return KindBuiltinRegister }

// NewBuiltinRegister constructs a named platform register definition.
func NewBuiltinRegister(name string, typ interface{}, isZeroFlag bool) *BuiltinRegister {
	return &BuiltinRegister{base: newBase(name, report.Position{}), Type: typ, IsZeroFlag: isZeroFlag}
}

// BuiltinIntegerType is spec.md §3's BuiltinIntegerType definition.
type BuiltinIntegerType struct {
	base
	Size int // bytes
	Min  int128.Int
	Max  int128.Int
	Signed bool
}

func (*BuiltinIntegerType) isDefinition() {}
func (*BuiltinIntegerType) Kind() Kind    { return KindBuiltinIntegerType }

// NewBuiltinIntegerType constructs a fixed-width integer type definition.
func NewBuiltinIntegerType(name string, size int, signed bool, min, max int128.Int) *BuiltinIntegerType {
	return &BuiltinIntegerType{base: newBase(name, report.Position{}), Size: size, Signed: signed, Min: min, Max: max}
}

// BuiltinBoolType is spec.md §3's BuiltinBoolType definition.
type BuiltinBoolType struct{ base }

func (*BuiltinBoolType) isDefinition() {}
func (*BuiltinBoolType) Kind() Kind    { return KindBuiltinBoolType }

// NewBuiltinBoolType constructs the builtin `bool` type definition.
func NewBuiltinBoolType(name string) *BuiltinBoolType {
	return &BuiltinBoolType{base: newBase(name, report.Position{})}
}

// BuiltinIntegerExpressionType is the `iexpr` arbitrary-precision type
// (GLOSSARY): a compile-time-only carrier, never storable directly
// (spec.md Invariant 8).
type BuiltinIntegerExpressionType struct{ base }

func (*BuiltinIntegerExpressionType) isDefinition() {}
func (*BuiltinIntegerExpressionType) Kind() Kind    { return KindBuiltinIntegerExpressionType }

// NewBuiltinIntegerExpressionType constructs the builtin `iexpr` type definition.
func NewBuiltinIntegerExpressionType(name string) *BuiltinIntegerExpressionType {
	return &BuiltinIntegerExpressionType{base: newBase(name, report.Position{})}
}

// BuiltinBankType is spec.md §3's BuiltinBankType definition.
type BuiltinBankType struct {
	base
	BankKind BankKind
}

func (*BuiltinBankType) isDefinition() {}
func (*BuiltinBankType) Kind() Kind    { return KindBuiltinBankType }

// NewBuiltinBankType constructs the builtin `rom`/`ram` bank-kind type definition.
func NewBuiltinBankType(name string, kind BankKind) *BuiltinBankType {
	return &BuiltinBankType{base: newBase(name, report.Position{}), BankKind: kind}
}

// BuiltinRangeType is spec.md §3's BuiltinRangeType definition (the
// type of a RangeLiteral).
type BuiltinRangeType struct{ base }

func (*BuiltinRangeType) isDefinition() {}
func (*BuiltinRangeType) Kind() Kind    { return KindBuiltinRangeType }

// NewBuiltinRangeType constructs the builtin `range` type definition.
func NewBuiltinRangeType(name string) *BuiltinRangeType {
	return &BuiltinRangeType{base: newBase(name, report.Position{})}
}

// BuiltinLoadIntrinsic is spec.md §3's BuiltinLoadIntrinsic definition.
type BuiltinLoadIntrinsic struct {
	base
	Type interface{} // *typeck.Type
}

func (*BuiltinLoadIntrinsic) isDefinition() {}
func (*BuiltinLoadIntrinsic) Kind() Kind    { return KindBuiltinLoadIntrinsic }

// NewBuiltinLoadIntrinsic constructs a load intrinsic whose result type is
// fixed rather than inferred from arguments.
func NewBuiltinLoadIntrinsic(name string, typ interface{}) *BuiltinLoadIntrinsic {
	return &BuiltinLoadIntrinsic{base: newBase(name, report.Position{}), Type: typ}
}

// BuiltinVoidIntrinsic is spec.md §3's BuiltinVoidIntrinsic definition.
type BuiltinVoidIntrinsic struct{ base }

func (*BuiltinVoidIntrinsic) isDefinition() {}
func (*BuiltinVoidIntrinsic) Kind() Kind    { return KindBuiltinVoidIntrinsic }

// NewBuiltinVoidIntrinsic constructs a no-return-value intrinsic definition.
func NewBuiltinVoidIntrinsic(name string) *BuiltinVoidIntrinsic {
	return &BuiltinVoidIntrinsic{base: newBase(name, report.Position{})}
}
