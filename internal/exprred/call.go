package exprred

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// resolvedDeclName reads a resolved identifier's declaration name for
// diagnostics without importing defs.Definition's full interface twice.
func resolvedDeclName(r *ast.ResolvedIdentifier) string {
	if d, ok := r.Def.(interface{ DeclName() string }); ok {
		return d.DeclName()
	}
	return ""
}

// reduceCall implements spec.md 4.3's Call rules.
func (red *Reducer) reduceCall(n *ast.Call, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	if ident, ok := n.Function.(*ast.Identifier); ok && len(ident.Pieces) == 1 {
		switch ident.Pieces[0] {
		case "hasdef":
			return red.reduceHasdef(n, sc)
		case "getdef":
			return red.reduceGetdef(n, sc)
		}
	}

	callee := red.Reduce(n.Function, sc, minContext)
	if callee == nil {
		return nil
	}
	resolved, ok := callee.(*ast.ResolvedIdentifier)
	if !ok {
		red.Report.Error(n.Pos, "call target is not callable")
		return nil
	}

	switch d := resolved.Def.(type) {
	case *defs.Let:
		return red.expandLet(n, sc, d)
	case *defs.Func:
		return red.reduceFuncCall(n, sc, resolved, d)
	case *defs.BuiltinLoadIntrinsic:
		return red.reduceLoadIntrinsic(n, sc, d)
	case *defs.BuiltinVoidIntrinsic:
		return red.reduceVoidIntrinsic(n, sc)
	default:
		red.Report.Error(n.Pos, "'%s' is not callable", resolvedDeclName(resolved))
		return nil
	}
}

func (red *Reducer) expandLet(n *ast.Call, sc *scope.Scope, l *defs.Let) ast.Expr {
	if len(red.letStack) >= maxLetRecursion {
		red.Report.Error(n.Pos, "let expansion exceeded the maximum recursion depth (%d)", maxLetRecursion)
		backtraceFrom := len(red.letStack) - 10
		if backtraceFrom < 0 {
			backtraceFrom = 0
		}
		for i := len(red.letStack) - 1; i >= backtraceFrom; i-- {
			frame := red.letStack[i]
			red.Report.Continued("expanded from '%s' at %s", frame.def.DeclName(), frame.pos)
		}
		return nil
	}
	if len(n.Args) != len(l.Parameters) {
		red.Report.Error(n.Pos, "'%s' expects %d argument(s), got %d", l.DeclName(), len(l.Parameters), len(n.Args))
		return nil
	}

	inner := scope.New("$let:"+l.DeclName(), sc)
	for i, param := range l.Parameters {
		argVal := red.Reduce(n.Args[i], sc, ast.CompileTime)
		if argVal == nil {
			return nil
		}
		binding := defs.NewLet(param, nil, argVal, n.Pos)
		if err := inner.CreateDefinition(param, binding); err != nil {
			red.Report.Error(n.Pos, "%s", err)
			return nil
		}
	}

	red.letStack = append(red.letStack, letFrame{def: l, pos: n.Pos})
	defer func() { red.letStack = red.letStack[:len(red.letStack)-1] }()

	return red.Reduce(l.BodyExpr, inner, ast.CompileTime)
}

func (red *Reducer) reduceFuncCall(n *ast.Call, sc *scope.Scope, resolved *ast.ResolvedIdentifier, f *defs.Func) ast.Expr {
	args := make([]ast.Expr, len(n.Args))
	if len(n.Args) != len(f.Parameters) {
		red.Report.Error(n.Pos, "'%s' expects %d argument(s), got %d", f.DeclName(), len(f.Parameters), len(n.Args))
		return nil
	}
	for i, a := range n.Args {
		reduced := red.Reduce(a, sc, ast.RunTime)
		if reduced == nil {
			return nil
		}
		var paramType *typeck.Type
		if f.Parameters[i].ResolvedType != nil {
			paramType = f.Parameters[i].ResolvedType.(*typeck.Type)
		}
		reduced = red.narrowOrError(n.Pos, reduced, paramType)
		if reduced == nil {
			return nil
		}
		args[i] = reduced
	}
	n.Function = resolved
	n.Args = args
	var retType *typeck.Type
	if f.ResolvedSignature != nil {
		if sig, ok := f.ResolvedSignature.(*typeck.Type); ok {
			retType = sig.FuncReturn
		}
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: retType, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceLoadIntrinsic(n *ast.Call, sc *scope.Scope, d *defs.BuiltinLoadIntrinsic) ast.Expr {
	args := make([]ast.Expr, len(n.Args))
	for i, a := range n.Args {
		reduced := red.Reduce(a, sc, ast.RunTime)
		if reduced == nil {
			return nil
		}
		args[i] = reduced
	}
	n.Args = args
	var t *typeck.Type
	if d.Type != nil {
		t, _ = d.Type.(*typeck.Type)
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: t, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceVoidIntrinsic(n *ast.Call, sc *scope.Scope) ast.Expr {
	args := make([]ast.Expr, len(n.Args))
	for i, a := range n.Args {
		reduced := red.Reduce(a, sc, ast.RunTime)
		if reduced == nil {
			return nil
		}
		args[i] = reduced
	}
	n.Args = args
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: typeck.Void, Qualifiers: ast.ExprQualifiers{}})
	return n
}

// reduceHasdef implements the `hasdef(s)` builtin: consults the define
// map for a compile-time-known name.
func (red *Reducer) reduceHasdef(n *ast.Call, sc *scope.Scope) ast.Expr {
	if len(n.Args) != 1 {
		red.Report.Error(n.Pos, "hasdef expects exactly one argument")
		return nil
	}
	name, ok := red.stringArg(n.Args[0], sc)
	if !ok {
		return nil
	}
	found := false
	if red.Defines != nil {
		_, found = red.Defines.Lookup(name)
	}
	return boolLiteral(n.Pos, found)
}

// reduceGetdef implements `getdef(s, fallback)`: consults the define
// map, or reduces fallback if absent.
func (red *Reducer) reduceGetdef(n *ast.Call, sc *scope.Scope) ast.Expr {
	if len(n.Args) != 2 {
		red.Report.Error(n.Pos, "getdef expects exactly two arguments")
		return nil
	}
	name, ok := red.stringArg(n.Args[0], sc)
	if !ok {
		return nil
	}
	if red.Defines != nil {
		if defined, found := red.Defines.Lookup(name); found {
			return red.Reduce(defined, sc, ast.CompileTime)
		}
	}
	return red.Reduce(n.Args[1], sc, ast.CompileTime)
}

func (red *Reducer) stringArg(e ast.Expr, sc *scope.Scope) (string, bool) {
	reduced := red.Reduce(e, sc, ast.CompileTime)
	if reduced == nil {
		return "", false
	}
	lit, ok := reduced.(*ast.StringLiteral)
	if !ok {
		red.Report.Error(e.Position(), "expected a string literal")
		return "", false
	}
	return string(lit.Value), true
}
