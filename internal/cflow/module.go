package cflow

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/scope"
)

// LowerModuleItems lowers the var/in/namespace content of a top-level or
// namespace-level statement list that is not reached through any Func's
// body. Declarative statements with no runtime content of their own
// (bank/func/struct/enum/typealias/let/import) are skipped; a Func
// reached here is lowered separately, once, by the driver walking its
// own Func list (every Func appears exactly once there regardless of
// how deeply it is nested in namespaces).
func (l *Lowerer) LowerModuleItems(seq *ir.Sequence, items []ast.Statement, sc *scope.Scope) {
	for _, item := range items {
		l.lowerModuleItem(seq, item, sc)
	}
}

func (l *Lowerer) lowerModuleItem(seq *ir.Sequence, stmt ast.Statement, sc *scope.Scope) {
	switch s := stmt.(type) {
	case *ast.Var:
		l.lowerVar(seq, s, sc)
	case *ast.In:
		l.lowerIn(seq, s, sc)
	case *ast.Block:
		l.LowerModuleItems(seq, s.Body, sc)
	case *ast.Attribution:
		ok, savedMode := l.applyAttributes(s.Attributes, sc)
		if ok {
			l.lowerModuleItem(seq, s.Body, sc)
		}
		l.activeMode = savedMode
	case *ast.Namespace, *ast.Bank, *ast.Func, *ast.Struct, *ast.Enum, *ast.TypeAlias,
		*ast.Let, *ast.ImportReference, *ast.InternalDeclaration, *ast.Config:
		// Namespace bodies are recorded as their own moduleBlock by
		// internal/compiler's reservation pass; everything else here
		// declares no runtime content at module scope.
	default:
		l.Report.InternalError(stmt.Position(), "cflow: unexpected statement %T at module scope", stmt)
	}
}
