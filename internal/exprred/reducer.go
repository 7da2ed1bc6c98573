// Package exprred implements the ExpressionReducer from spec.md 4.3 —
// the single largest component of the compiler (22% of the budget). It
// recursively reduces an Expression tree into another Expression tree
// whose every node carries a fully populated ExpressionInfo, folding
// what it can at compile time and leaving the rest as link-time or
// run-time nodes per spec.md §1's three evaluation contexts.
//
// Grounded on the teacher's asm_calc_resolver.go/asm_shunting_yard.go
// expression pipeline (including its spew.Dump-on-unexpected-shape
// idiom for InternalError paths), but the mechanism is replaced: MSCR
// shells out to an external "yard" binary to shunting-yard-parse
// already-tokenized infix text, whereas Wiz expressions arrive as a
// real parsed tree, so this reducer is a direct recursive evaluator —
// closer in spirit to krux02-golem/eval.go's typed-AST evaluation.
package exprred

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/mileusna/conditional"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// maxLetRecursion bounds nested `let` expansion (spec.md §8 "Let
// recursion bound"): programs recursing deeper are rejected with
// LetStackOverflow; shallower ones succeed when otherwise valid.
const maxLetRecursion = 1024

// ImportManager is the narrow interface exprred needs for `embed`
// (spec.md §1's "Import manager / reader" collaborator).
type ImportManager interface {
	ReadEmbed(path string) ([]byte, string, error) // bytes, canonical path, error
}

// DefineMap is the compile-time name->expression map supplied by the
// CLI's -D flags (spec.md §6 "Define map"), consulted by hasdef/getdef.
type DefineMap interface {
	Lookup(name string) (ast.Expr, bool)
}

// reserveGate gates the `@` address-reserve operator (spec.md 4.3:
// "only legal inside a var initializer"). It stays closed unless
// SetAllowReservedConstants opens it; no caller in this repository
// opens it, so every `@` is reported as an error.
type reserveGate struct {
	allowed bool
	owner   *defs.Var
}

// Reducer implements spec.md 4.3.
type Reducer struct {
	Report  *report.Report
	Types   *typeck.Reducer
	Imports ImportManager
	Defines DefineMap

	letStack    []letFrame
	reserveGate reserveGate

	// embedCache memoizes embed() results by canonical path (spec.md 4.3
	// "caches by canonical path").
	embedCache map[string][]byte

	// Verbose, when set, spew.Dumps unexpected expression shapes before
	// raising an InternalError, the teacher's asm_calc_resolver.go idiom.
	Verbose bool
}

type letFrame struct {
	def  *defs.Let
	pos  report.Position
}

// New constructs a Reducer. Types is required (typeck.Reducer.Expr must
// be wired back to this Reducer by the caller to complete the mutual
// reference — see internal/compiler's wiring).
func New(r *report.Report, types *typeck.Reducer, imports ImportManager, defines DefineMap) *Reducer {
	return &Reducer{Report: r, Types: types, Imports: imports, Defines: defines, embedCache: map[string][]byte{}}
}

// SetAllowReservedConstants gates the `@` operator; owner receives any
// anonymous Vars the operator creates as NestedConstants.
func (red *Reducer) SetAllowReservedConstants(allowed bool, owner *defs.Var) {
	red.reserveGate = reserveGate{allowed: allowed, owner: owner}
}

// ReduceCompileTimeInt satisfies typeck.ExprReducer: reduces e and
// requires the result to be a compile-time integer literal.
func (red *Reducer) ReduceCompileTimeInt(e ast.Expr, sc *scope.Scope) (int, bool) {
	reduced := red.Reduce(e, sc, ast.CompileTime)
	if reduced == nil {
		return 0, false
	}
	lit, ok := reduced.(*ast.IntegerLiteral)
	if !ok {
		return 0, false
	}
	v, ok := lit.Value.Int64()
	return int(v), ok
}

// ReduceForTypeCheck satisfies typeck.ExprReducer: reduces e enough to
// populate its ExpressionInfo.Type, in the run-time context (the most
// permissive — used from typeck for typeof/designated-storage holder
// checks where the expression need not be compile-time).
func (red *Reducer) ReduceForTypeCheck(e ast.Expr, sc *scope.Scope) ast.Expr {
	return red.Reduce(e, sc, ast.RunTime)
}

func (red *Reducer) info(ctx ast.EvalContext, t *typeck.Type, quals ast.ExprQualifiers) *ast.ExpressionInfo {
	return &ast.ExpressionInfo{Context: ctx, Type: t, Qualifiers: quals}
}

func (red *Reducer) typeOf(e ast.Expr) *typeck.Type {
	if e == nil || e.ExprInfo() == nil {
		return nil
	}
	t, _ := e.ExprInfo().Type.(*typeck.Type)
	return t
}

func (red *Reducer) dumpUnexpected(where string, node ast.Expr) {
	if red.Verbose {
		fmt.Println("unexpected expression shape in " + where + ":")
		spew.Dump(node)
	}
}

// Reduce is the entry point: reduce e under scope sc, requesting at
// least minContext (the caller's own context — an expression can never
// resolve to a "less known" context than what its use site demands is
// wrong to assume, so minContext only affects fold-vs-defer choices for
// things like AddressOf where the caller intends RunTime use).
func (red *Reducer) Reduce(e ast.Expr, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		n.SetExprInfo(red.info(ast.CompileTime, typeck.IExpr, ast.ExprQualifiers{}))
		return n
	case *ast.BooleanLiteral:
		n.SetExprInfo(red.info(ast.CompileTime, typeck.Bool, ast.ExprQualifiers{}))
		return n
	case *ast.StringLiteral:
		arr := &typeck.Type{Kind: typeck.KindArray, ArrayElement: &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}, ArrayHasLength: true, ArrayLength: len(n.Value)}
		n.SetExprInfo(red.info(ast.CompileTime, arr, ast.ExprQualifiers{}))
		return n
	case *ast.Identifier:
		return red.reduceIdentifier(n, sc)
	case *ast.ResolvedIdentifier:
		return red.reduceResolvedIdentifier(n, sc)
	case *ast.BinaryOperator:
		return red.reduceBinary(n, sc, minContext)
	case *ast.UnaryOperator:
		return red.reduceUnary(n, sc, minContext)
	case *ast.Call:
		return red.reduceCall(n, sc, minContext)
	case *ast.Cast:
		return red.reduceCast(n, sc)
	case *ast.Embed:
		return red.reduceEmbed(n)
	case *ast.FieldAccess:
		return red.reduceFieldAccess(n, sc)
	case *ast.ArrayLiteral:
		return red.reduceArrayLiteral(n, sc)
	case *ast.ArrayPadLiteral:
		return red.reduceArrayPad(n, sc)
	case *ast.ArrayComprehension:
		return red.reduceArrayComprehension(n, sc)
	case *ast.StructLiteral:
		return red.reduceStructLiteral(n, sc)
	case *ast.TupleLiteral:
		return red.reduceTupleLiteral(n, sc)
	case *ast.RangeLiteral:
		return red.reduceRangeLiteral(n, sc)
	case *ast.OffsetOf:
		return red.reduceOffsetOf(n, sc)
	case *ast.TypeOf:
		return red.reduceTypeOf(n, sc)
	case *ast.TypeQuery:
		return red.reduceTypeQuery(n, sc)
	case *ast.SideEffect:
		n.Result = red.Reduce(n.Result, sc, minContext)
		n.SetExprInfo(n.Result.ExprInfo())
		return n
	default:
		red.dumpUnexpected("Reduce", e)
		red.Report.InternalError(e.Position(), "unhandled expression node %T", e)
		return nil
	}
}

func (red *Reducer) reduceIdentifier(n *ast.Identifier, sc *scope.Scope) ast.Expr {
	result := sc.ResolveDotted(n.Pieces)
	if result.Ambiguous {
		red.Report.Error(n.Pos, "ambiguous name '%s'", joinPieces(n.Pieces))
		for _, c := range result.Candidates {
			red.Report.Continued("candidate declared at %s", c.DeclPosition())
		}
		return nil
	}
	if result.Def == nil {
		red.Report.Error(n.Pos, "unresolved identifier '%s'", joinPieces(n.Pieces))
		return nil
	}
	resolved := &ast.ResolvedIdentifier{Def: result.Def, Pieces: n.Pieces}
	resolved.Pos = n.Pos
	return red.reduceResolvedIdentifier(resolved, sc)
}

func joinPieces(pieces []string) string {
	out := ""
	for i, p := range pieces {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func (red *Reducer) reduceResolvedIdentifier(n *ast.ResolvedIdentifier, sc *scope.Scope) ast.Expr {
	switch d := n.Def.(type) {
	case *defs.Var:
		if d.ResolvedType == nil {
			red.Report.Error(n.Pos, "'%s' used before its type is known", d.DeclName())
			return nil
		}
		t := d.ResolvedType.(*typeck.Type)
		ctx := ast.RunTime
		if d.Const {
			if lit, ok := constVarLiteral(d); ok {
				n.SetExprInfo(red.info(ast.CompileTime, t, ast.ExprQualifiers{Const: true}))
				_ = lit
			}
		}
		quals := ast.ExprQualifiers{LValue: !d.Const, Const: d.Const, WriteOnly: d.WriteOnly}
		n.SetExprInfo(red.info(ctx, t, quals))
		return n
	case *defs.Func:
		var t *typeck.Type
		if d.ResolvedSignature != nil {
			t = d.ResolvedSignature.(*typeck.Type)
		}
		n.SetExprInfo(red.info(ast.RunTime, t, ast.ExprQualifiers{}))
		return n
	case *defs.EnumMember:
		if d.ReducedExpr == nil {
			red.Report.Error(n.Pos, "enum member '%s' used before its value is known", d.DeclName())
			return nil
		}
		var t *typeck.Type
		if d.Owner.ResolvedUnderlying != nil {
			t = d.Owner.ResolvedUnderlying.(*typeck.Type)
		}
		n.SetExprInfo(red.info(ast.CompileTime, t, ast.ExprQualifiers{Const: true}))
		return n
	case *defs.BuiltinRegister:
		var t *typeck.Type
		if d.Type != nil {
			t = d.Type.(*typeck.Type)
		}
		n.SetExprInfo(red.info(ast.RunTime, t, ast.ExprQualifiers{LValue: true}))
		return n
	case *defs.Let:
		red.Report.Error(n.Pos, "'%s' is a let-expression and must be called", d.DeclName())
		return nil
	case *defs.Namespace, *defs.Struct, *defs.Enum, *defs.TypeAlias, *defs.Bank:
		red.Report.Error(n.Pos, "'%s' cannot be used as a value", d.(defs.Definition).DeclName())
		return nil
	default:
		red.Report.InternalError(n.Pos, "unexpected definition kind in expression position: %T", d)
		return nil
	}
}

// constVarLiteral reports whether v's initializer has already reduced
// to a compile-time value. reduceResolvedIdentifier consults it for
// `const` vars, but the reference it returns always carries the RunTime
// context: named constants are not folded.
func constVarLiteral(v *defs.Var) (ast.Expr, bool) {
	if v.InitializerExpr == nil {
		return nil, false
	}
	if v.InitializerExpr.ExprInfo() == nil {
		return nil, false
	}
	if v.InitializerExpr.ExprInfo().Context != ast.CompileTime {
		return nil, false
	}
	return v.InitializerExpr, true
}

// conditionalPointerSize picks near/far pointer width, mirroring the
// teacher's conditional.Int(cond, a, b) ternary idiom from
// asm_resolver.go/asm_helpers.go.
func conditionalPointerSize(far bool) int {
	return conditional.Int(far, 3, 2)
}
