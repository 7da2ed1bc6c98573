package exprred

import (
	"io/ioutil"
	"testing"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

func newTestReducer() (*Reducer, *report.Report) {
	r := report.New(ioutil.Discard, false)
	types := typeck.NewReducer(r, nil)
	expr := New(r, types, nil, nil)
	types.Expr = expr
	return expr, r
}

func intLit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Value: int128.FromInt64(v)}
}

func TestReduceFoldsConstantArithmetic(t *testing.T) {
	red, r := newTestReducer()
	sc := scope.New("", nil)

	bin := &ast.BinaryOperator{Op: ast.OpAdd, Left: intLit(2), Right: intLit(3)}
	out := red.Reduce(bin, sc, ast.CompileTime)
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
	lit, ok := out.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("got %T, want a folded *ast.IntegerLiteral", out)
	}
	if v, _ := lit.Value.Int64(); v != 5 {
		t.Errorf("got %v, want 5", lit.Value)
	}
	if lit.ExprInfo().Context != ast.CompileTime {
		t.Errorf("got context %v, want CompileTime", lit.ExprInfo().Context)
	}
}

func TestReduceMultiplyFolds(t *testing.T) {
	red, r := newTestReducer()
	sc := scope.New("", nil)

	bin := &ast.BinaryOperator{Op: ast.OpMul, Left: intLit(6), Right: intLit(7)}
	out := red.Reduce(bin, sc, ast.CompileTime)
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
	lit := out.(*ast.IntegerLiteral)
	if v, _ := lit.Value.Int64(); v != 42 {
		t.Errorf("got %v, want 42", lit.Value)
	}
}

func TestReduceDivisionByZeroReportsError(t *testing.T) {
	red, r := newTestReducer()
	sc := scope.New("", nil)

	bin := &ast.BinaryOperator{Op: ast.OpDiv, Left: intLit(1), Right: intLit(0)}
	out := red.Reduce(bin, sc, ast.CompileTime)
	if out != nil {
		t.Errorf("got %v, want nil for a compile-time division by zero", out)
	}
	if r.Validate() {
		t.Fatal("expected an error for division by zero")
	}
}

func TestReduceUnresolvedIdentifierReportsError(t *testing.T) {
	red, r := newTestReducer()
	sc := scope.New("", nil)

	id := &ast.Identifier{Pieces: []string{"missing"}}
	out := red.Reduce(id, sc, ast.CompileTime)
	if out != nil {
		t.Errorf("got %v, want nil for an unresolved identifier", out)
	}
	if r.Validate() {
		t.Fatal("expected an error for an unresolved identifier")
	}
}

func TestReduceIdentifierResolvesVar(t *testing.T) {
	red, r := newTestReducer()
	sc := scope.New("", nil)

	v := defs.NewVar("counter", report.Position{})
	v.ResolvedType = &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}
	if err := sc.CreateDefinition("counter", v); err != nil {
		t.Fatal(err)
	}

	id := &ast.Identifier{Pieces: []string{"counter"}}
	out := red.Reduce(id, sc, ast.RunTime)
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
	resolved, ok := out.(*ast.ResolvedIdentifier)
	if !ok {
		t.Fatalf("got %T, want *ast.ResolvedIdentifier", out)
	}
	if resolved.Def != v {
		t.Errorf("got def %v, want the counter Var", resolved.Def)
	}
	if !resolved.ExprInfo().Qualifiers.LValue {
		t.Error("expected a non-const var to reduce to an l-value")
	}
}

func TestReduceIntegerAndBooleanLiteralsAreCompileTime(t *testing.T) {
	red, r := newTestReducer()
	sc := scope.New("", nil)

	if out := red.Reduce(intLit(9), sc, ast.CompileTime); out.ExprInfo().Context != ast.CompileTime {
		t.Errorf("integer literal: got context %v, want CompileTime", out.ExprInfo().Context)
	}
	b := &ast.BooleanLiteral{Value: true}
	if out := red.Reduce(b, sc, ast.CompileTime); out.ExprInfo().Context != ast.CompileTime {
		t.Errorf("boolean literal: got context %v, want CompileTime", out.ExprInfo().Context)
	}
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
}
