package cflow

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// lowerBranch implements spec.md 4.7's `return`/`break`/`continue`/`goto`.
func (l *Lowerer) lowerBranch(seq *ir.Sequence, s *ast.Branch, sc *scope.Scope) {
	switch s.Kind {
	case ast.BranchBreak:
		if len(l.loopStack) == 0 {
			l.Report.Error(s.Pos, "'break' outside a loop")
			return
		}
		top := l.loopStack[len(l.loopStack)-1]
		l.emitGuardedBranch(seq, sc, s.Pos, ast.BranchGoto, top.breakLabel, s.Condition)
	case ast.BranchContinue:
		if len(l.loopStack) == 0 {
			l.Report.Error(s.Pos, "'continue' outside a loop")
			return
		}
		top := l.loopStack[len(l.loopStack)-1]
		l.emitGuardedBranch(seq, sc, s.Pos, ast.BranchGoto, top.continueLabel, s.Condition)
	case ast.BranchGoto, ast.BranchFarGoto, ast.BranchCall, ast.BranchFarCall:
		l.emitGuardedBranch(seq, sc, s.Pos, s.Kind, s.Destination, s.Condition)
	case ast.BranchReturn, ast.BranchFarReturn, ast.BranchIrqReturn, ast.BranchNmiReturn:
		l.lowerReturn(seq, s, sc)
	default:
		l.Report.InternalError(s.Pos, "cflow: unhandled branch kind %v", s.Kind)
	}
}

// emitGuardedBranch reduces an optional `when` guard and emits the
// branch (unconditionally if there is no guard).
func (l *Lowerer) emitGuardedBranch(seq *ir.Sequence, sc *scope.Scope, pos report.Position, kind ast.BranchKind, dest string, guard ast.Expr) {
	if guard == nil {
		l.emitUnconditional(seq, pos, kind, dest, nil)
		return
	}
	cond := l.Expr.Reduce(guard, sc, ast.RunTime)
	if cond == nil {
		return
	}
	l.emitBranch(seq, sc, pos, kind, dest, false, cond)
}

// lowerReturn implements spec.md 4.7's `return [value] [when cond]`: the
// value narrows into the enclosing function's return type before the
// branch is emitted. Inside an expanded `inline func` (l.inlineReturnLabel
// set) the branch targets that call site's synthetic `$ret:` label
// instead of the callee's own declared returnKind, so a return nested
// arbitrarily deep in the inlined body (inside an if, a loop, ...)
// still lands at the right place.
func (l *Lowerer) lowerReturn(seq *ir.Sequence, s *ast.Branch, sc *scope.Scope) {
	f := l.currentFunc
	if f == nil {
		l.Report.InternalError(s.Pos, "return statement lowered outside any function")
		return
	}
	if s.ReturnValue != nil {
		l.emitReturnValue(seq, f, s.ReturnValue, sc, s.Pos)
	}

	kind := promoteFar(f.ReturnKind, f.Far)
	dest := ""
	if l.inlineReturnLabel != "" {
		kind, dest = ast.BranchGoto, l.inlineReturnLabel
	}

	if s.Condition == nil {
		l.emitUnconditional(seq, s.Pos, kind, dest, nil)
		return
	}
	skip := l.mintLabel("skip")
	cond := l.Expr.Reduce(s.Condition, sc, ast.RunTime)
	if cond == nil {
		return
	}
	l.emitBranch(seq, sc, s.Pos, ast.BranchGoto, skip, true, cond)
	l.emitUnconditional(seq, s.Pos, kind, dest, nil)
	seq.Append(&ir.Label{Name: skip})
}

func (l *Lowerer) emitReturnValue(seq *ir.Sequence, f *defs.Func, value ast.Expr, sc *scope.Scope, pos report.Position) {
	reduced := l.Expr.Reduce(value, sc, ast.RunTime)
	if reduced == nil {
		return
	}
	var retType *typeck.Type
	if f.ResolvedSignature != nil {
		if sig, ok := f.ResolvedSignature.(*typeck.Type); ok {
			retType = sig.FuncReturn
		}
	}
	narrowed := l.Expr.Narrow(pos, reduced, retType)
	if narrowed == nil {
		return
	}
	l.emitExprCode(seq, narrowed, sc)
}

// emitReturnKind emits a trailing implicit return for a function body
// that falls off the end without one (spec.md 4.4's HasUnconditionalReturn).
func (l *Lowerer) emitReturnKind(seq *ir.Sequence, f *defs.Func, pos report.Position) {
	l.emitUnconditional(seq, pos, promoteFar(f.ReturnKind, f.Far), "", nil)
}

// expandInlineCall implements spec.md 4.7's inline-function expansion:
// a fresh scope binding parameters to the reduced arguments, the
// callee's body lowered in place, and a synthetic `$ret:` label every
// nested return (at any depth) jumps to.
func (l *Lowerer) expandInlineCall(seq *ir.Sequence, call *ast.Call, f *defs.Func, argRoots []ir.OperandRoot) {
	if l.inlineDepth >= maxInlineDepth {
		l.Report.Error(call.Pos, "inline function expansion exceeded the maximum nesting depth (%d)", maxInlineDepth)
		return
	}
	l.inlineDepth++
	defer func() { l.inlineDepth-- }()

	parentScope, _ := f.EnclosingScope.(*scope.Scope)
	inner := scope.New("$inline:"+f.DeclName(), parentScope)
	for i, param := range f.Parameters {
		if i >= len(argRoots) {
			break
		}
		argExpr, _ := argRoots[i].SourceExpr.(ast.Expr)
		binding := defs.NewVar(param.DeclName(), call.Pos)
		binding.Const = true
		binding.ResolvedType = param.ResolvedType
		binding.InitializerExpr = argExpr
		if err := inner.CreateDefinition(param.DeclName(), binding); err != nil {
			l.Report.Error(call.Pos, "%s", err)
			return
		}
	}

	retLabel := l.mintLabel("ret")
	savedFunc, savedStack, savedRetLabel := l.currentFunc, l.loopStack, l.inlineReturnLabel
	l.currentFunc = f
	l.loopStack = nil
	l.inlineReturnLabel = retLabel

	l.LowerBlock(seq, f.Body, inner)

	l.currentFunc, l.loopStack, l.inlineReturnLabel = savedFunc, savedStack, savedRetLabel
	seq.Append(&ir.Label{Name: retLabel})
}
