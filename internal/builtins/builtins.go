// Package builtins implements the Builtins object from spec.md 4.10:
// the root scope's builtin registers/types/intrinsics, the compile-time
// define map fed by the CLI's `-D` flags, and the function-attribute
// table (`#[irq]`, `#[nmi]`, `#[fallthrough]`).
//
// Grounded on the teacher's builtin type table in
// mscr/compiler/asm_types.go, where every primitive width
// (`asmType{name: "u8", size: 1, builtin: true}` and so on) is
// registered into the same flat name table user types live in; here
// that becomes a set of defs.Builtin* definitions installed into the
// root scope ast.ResolvedIdentifier lookups already know how to find.
package builtins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// integerTypeSpec describes one builtin sized-integer type entry.
type integerTypeSpec struct {
	name   string
	size   int
	signed bool
}

// standardIntegerTypes is the fixed-width integer family every
// platform gets regardless of its instruction set, mirroring
// asm_types.go's u8/i8/u16/i16/u24/i24/u32/i32 rows (the widest,
// u32/i32, covers a 65816-style 24-bit far pointer packed into a
// 32-bit register plus headroom for arithmetic).
var standardIntegerTypes = []integerTypeSpec{
	{"u8", 1, false}, {"i8", 1, true},
	{"u16", 2, false}, {"i16", 2, true},
	{"u24", 3, false}, {"i24", 3, true},
	{"u32", 4, false}, {"i32", 4, true},
}

func integerBounds(size int, signed bool) (int128.Int, int128.Int) {
	bits := uint(size) * 8
	if !signed {
		max := int128.FromInt64(1).Shl(bits).Sub(int128.FromInt64(1))
		return int128.Zero, max
	}
	max := int128.FromInt64(1).Shl(bits - 1).Sub(int128.FromInt64(1))
	min := max.Add(int128.FromInt64(1)).Neg()
	return min, max
}

func bind(sc *scope.Scope, r *report.Report, name string, d defs.Definition) {
	if err := sc.CreateDefinition(name, d); err != nil {
		r.InternalError(report.Position{}, "builtins: %s", err)
	}
}

// PopulateRootScope installs every builtin definition spec.md 4.10
// names into sc: sized integer types, bool, iexpr, range, the
// platform's registers, ROM/RAM bank types, and the load/void
// intrinsic table. sc should have no parent — every module scope
// chains up to it.
func PopulateRootScope(sc *scope.Scope, r *report.Report, p platform.Platform) {
	for _, spec := range standardIntegerTypes {
		min, max := integerBounds(spec.size, spec.signed)
		bind(sc, r, spec.name, defs.NewBuiltinIntegerType(spec.name, spec.size, spec.signed, min, max))
	}
	bind(sc, r, "bool", defs.NewBuiltinBoolType("bool"))
	bind(sc, r, "iexpr", defs.NewBuiltinIntegerExpressionType("iexpr"))
	bind(sc, r, "range", defs.NewBuiltinRangeType("range"))

	bind(sc, r, "rom", defs.NewBuiltinBankType("rom", defs.BankKindRom))
	bind(sc, r, "ram", defs.NewBuiltinBankType("ram", defs.BankKindRam))

	for _, reg := range p.Registers() {
		bind(sc, r, reg.DeclName(), reg)
	}

	for _, name := range voidIntrinsicNames {
		bind(sc, r, name, defs.NewBuiltinVoidIntrinsic(name))
	}
	for name, typ := range loadIntrinsicTypes() {
		bind(sc, r, name, defs.NewBuiltinLoadIntrinsic(name, typ))
	}
}

// voidIntrinsicNames are calls that produce no value: pure side
// effects the platform's instruction table matches by name alone
// (spec.md 4.6's InstructionType{Kind:"call", Name:"intrinsic"}).
var voidIntrinsicNames = []string{"nop", "debugbreak", "swap"}

// loadIntrinsicTypes are calls whose result type is fixed by the
// intrinsic itself rather than inferred from arguments (spec.md
// "callee is a builtin load/void intrinsic: pass arguments through;
// type is determined by the intrinsic"). "peek" reads one byte from an
// address operand; "peekw" reads a 16-bit word.
func loadIntrinsicTypes() map[string]interface{} {
	u8min, u8max := integerBounds(1, false)
	u16min, u16max := integerBounds(2, false)
	return map[string]interface{}{
		"peek":  &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, IntMin: u8min, IntMax: u8max, Name: "u8"},
		"peekw": &typeck.Type{Kind: typeck.KindInteger, IntSize: 2, IntMin: u16min, IntMax: u16max, Name: "u16"},
	}
}

// ---------------------------------------------------------------------
// Function attribute table
// ---------------------------------------------------------------------

// functionAttributeNames are the no-argument attributes spec.md 4.10
// recognizes on `func` (as opposed to mode attributes, which the
// platform's ModeGroups supply, or compile_if, handled directly by
// internal/cflow).
var functionAttributeNames = map[string]bool{"irq": true, "nmi": true, "fallthrough": true}

// IsFunctionAttribute reports whether name is one of irq/nmi/fallthrough.
func IsFunctionAttribute(name string) bool { return functionAttributeNames[name] }

// ApplyFunctionAttributes records irq/nmi/fallthrough attributes onto f
// during phase 1 reservation (spec.md §3 Func.irq/nmi/fallthrough).
// Attributes this function doesn't recognize are left for the caller —
// mode attributes and compile_if are handled elsewhere in the pipeline
// (internal/cflow.applyAttributes at lowering time).
func ApplyFunctionAttributes(f *defs.Func, attrs []*ast.Attribute, r *report.Report) {
	for _, a := range attrs {
		if !IsFunctionAttribute(a.Name) {
			continue
		}
		if len(a.Args) != 0 {
			r.Error(a.Pos, "attribute '%s' takes no arguments", a.Name)
			continue
		}
		switch a.Name {
		case "irq":
			f.IRQ = true
		case "nmi":
			f.NMI = true
		case "fallthrough":
			f.Fallthrough = true
		}
	}
}

// ---------------------------------------------------------------------
// Define map
// ---------------------------------------------------------------------

// Defines implements exprred.DefineMap over the CLI's repeated `-D`
// flags (spec.md §6 "Define map").
type Defines struct {
	values map[string]ast.Expr
}

// Lookup implements exprred.DefineMap.
func (d *Defines) Lookup(name string) (ast.Expr, bool) {
	if d == nil {
		return nil, false
	}
	e, ok := d.values[name]
	return e, ok
}

// ParseDefines builds a Defines from `-D name` / `-D name=value` CLI
// arguments. A bare name defines a true boolean (matching hasdef's most
// common use, "was this flag passed at all"); `name=value` parses value
// as a base-10 or 0x-prefixed integer literal, then as a boolean
// (strconv.ParseBool), falling back to a raw string literal when it is
// neither.
func ParseDefines(pairs []string) (*Defines, error) {
	d := &Defines{values: map[string]ast.Expr{}}
	for _, raw := range pairs {
		name, valueText, hasValue := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid -D flag %q: missing name", raw)
		}
		if !hasValue {
			d.values[name] = &ast.BooleanLiteral{Value: true}
			continue
		}
		d.values[name] = parseDefineValue(valueText)
	}
	return d, nil
}

func parseDefineValue(text string) ast.Expr {
	base := 10
	digits := text
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		base, digits = 16, text[2:]
	}
	if v, ok := int128.FromString(digits, base); ok {
		return &ast.IntegerLiteral{Value: v}
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return &ast.BooleanLiteral{Value: b}
	}
	return &ast.StringLiteral{Value: []byte(text)}
}
