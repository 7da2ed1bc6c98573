package cflow

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/scope"
)

// lowerExpressionStatement reduces s.Expr and emits whatever IR its
// shape demands, ignoring the reduced value's type (spec.md's
// ExpressionStatement is used purely for its side effect).
func (l *Lowerer) lowerExpressionStatement(seq *ir.Sequence, s *ast.ExpressionStatement, sc *scope.Scope) {
	reduced := l.Expr.Reduce(s.Expr, sc, ast.RunTime)
	if reduced == nil {
		return
	}
	l.emitExprCode(seq, reduced, sc)
}

// emitExprCode appends the IR for a value-producing expression used at
// statement position. Each top-level operator becomes one Code node
// whose OperandRoots pair the (already reduced) sub-expressions with
// themselves; the platform's instruction patterns match directly
// against these ast.Expr shapes, so a separate tree-tiling pass over a
// lower-level operand representation is unnecessary.
func (l *Lowerer) emitExprCode(seq *ir.Sequence, e ast.Expr, sc *scope.Scope) {
	switch n := e.(type) {
	case *ast.Call:
		l.emitCall(seq, n)
	case *ast.BinaryOperator:
		l.emitCode(seq, platform.InstructionType{Kind: "binop", Name: n.Op.String()},
			[]ir.OperandRoot{{SourceExpr: n.Left, Operand: n.Left}, {SourceExpr: n.Right, Operand: n.Right}})
	case *ast.UnaryOperator:
		l.emitCode(seq, platform.InstructionType{Kind: "unop", Name: n.Op.String()},
			[]ir.OperandRoot{{SourceExpr: n.Operand, Operand: n.Operand}})
	case *ast.SideEffect:
		l.lowerStatement(seq, n.Stmt, sc)
	default:
		// A bare literal or identifier has no side effect worth encoding
		// unless the platform's register model treats the read itself as
		// observable (e.g. a volatile hardware register); leave that
		// decision to instruction selection by emitting a generic probe.
		l.emitCode(seq, platform.InstructionType{Kind: "eval", Name: "expr"}, []ir.OperandRoot{{SourceExpr: e, Operand: e}})
	}
}

// emitCall lowers a reduced Call: arguments first (in source order), then
// a call branch to the callee.
func (l *Lowerer) emitCall(seq *ir.Sequence, n *ast.Call) {
	roots := make([]ir.OperandRoot, len(n.Args))
	for i, a := range n.Args {
		roots[i] = ir.OperandRoot{SourceExpr: a, Operand: a}
	}
	resolved, ok := n.Function.(*ast.ResolvedIdentifier)
	if !ok {
		l.emitCode(seq, platform.InstructionType{Kind: "call", Name: "indirect"}, append([]ir.OperandRoot{{SourceExpr: n.Function, Operand: n.Function}}, roots...))
		return
	}
	f, isFunc := resolved.Def.(*defs.Func)
	if !isFunc {
		l.emitCode(seq, platform.InstructionType{Kind: "call", Name: "intrinsic"}, append([]ir.OperandRoot{{Operand: resolved}}, roots...))
		return
	}
	if f.Inlined {
		l.expandInlineCall(seq, n, f, roots)
		return
	}
	kind := ast.BranchCall
	if f.Far {
		kind = ast.BranchFarCall
	}
	l.emitCode(seq, platform.InstructionType{Kind: "branch", Name: kind.String()}, append([]ir.OperandRoot{{Operand: f.DeclName()}}, roots...))
}

// lowerVar emits an ir.Var reservation for each declared name (spec.md
// §3 Var; storage reservation/writing itself happens in
// internal/codegen's two passes, which read Def.InitializerExpr). An
// explicit `@address` is reduced here, while the declaring scope is
// still at hand, and carried on the node for codegen to apply.
func (l *Lowerer) lowerVar(seq *ir.Sequence, s *ast.Var, sc *scope.Scope) {
	for i, name := range s.Names {
		result := sc.ResolveDotted([]string{name})
		v, ok := result.Def.(*defs.Var)
		if !ok {
			l.Report.InternalError(s.Pos, "var '%s' was not reserved in phase 1", name)
			continue
		}
		node := &ir.Var{Def: v}
		if i < len(s.Addresses) && s.Addresses[i] != nil {
			if addr, addrOk := l.Expr.ReduceCompileTimeInt(s.Addresses[i], sc); addrOk {
				node.Address = opt.Some(addr)
			}
		}
		seq.Append(node)
	}
}

// lowerIn pushes into s.Banks (spec.md 4.4's "In BANK [at ADDR]"),
// lowers its body, and pops back.
func (l *Lowerer) lowerIn(seq *ir.Sequence, s *ast.In, sc *scope.Scope) {
	for _, bankName := range s.Banks {
		result := sc.ResolveDotted([]string{bankName})
		bankDef, ok := result.Def.(*defs.Bank)
		if !ok {
			l.Report.Error(s.Pos, "'%s' does not name a bank", bankName)
			return
		}
		push := &ir.PushRelocation{Bank: bankDef}
		if s.Dest != nil {
			if addr, ok := l.Expr.ReduceCompileTimeInt(s.Dest, sc); ok {
				push.Address = opt.Some(addr)
			}
		}
		seq.Append(push)
	}
	l.LowerBlock(seq, s.Body, sc)
	for range s.Banks {
		seq.Append(&ir.PopRelocation{})
	}
}
