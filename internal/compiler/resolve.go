package compiler

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// resolveTypes implements phase 2 (spec.md §1 "reduce every declared
// type expression to a canonical form; resolve enum underlying types
// and member values; compute struct/union layouts and sizes; resolve
// bank element types and sizes"). TypeAliases resolve first since
// typeck.Reducer.fromDefinition substitutes them transparently and
// every other kind of declaration may reference one.
func (c *Compiler) resolveTypes() {
	for _, ta := range c.typeAliases {
		ta.ResolvedType = c.Types.Reduce(ta.TypeExpr, c.typeAliasScope[ta])
	}

	for _, b := range c.banks {
		b.ResolvedType = c.Types.Reduce(b.TypeExpr, c.bankScope[b])
	}

	for _, s := range c.structs {
		env := s.Env.(*scope.Scope)
		for _, m := range s.Members {
			m.ResolvedType = c.Types.Reduce(m.TypeExpr, env)
		}
	}

	for _, e := range c.enums {
		c.resolveEnum(e)
	}

	for _, f := range c.funcs {
		c.resolveFuncSignature(f)
	}

	for v, sc := range c.varScope {
		c.resolveVar(v, sc)
	}
}

// resolveEnum reduces e's underlying type (if any) and walks its
// members in declaration order, computing each member's integer value:
// an explicit BaseExpr restarts the run at that value, otherwise the
// value is Offset positions after the run's base (0 for the first
// member of a run with no explicit base).
func (c *Compiler) resolveEnum(e *defs.Enum) {
	env := e.Env.(*scope.Scope)
	if e.UnderlyingTypeExpr != nil {
		e.ResolvedUnderlying = c.Types.Reduce(e.UnderlyingTypeExpr, env)
	} else {
		e.ResolvedUnderlying = &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}
	}

	base := int128.Zero
	for _, m := range e.Members {
		if m.BaseExpr != nil {
			v, ok := c.Expr.ReduceCompileTimeInt(m.BaseExpr, env)
			if !ok {
				c.Report.Error(m.BaseExpr.Position(), "enum member base must be a compile-time integer")
				continue
			}
			base = int128.FromInt64(int64(v))
		}
		value := base.Add(int128.FromInt64(int64(m.Offset)))
		lit := &ast.IntegerLiteral{Value: value}
		lit.Pos = m.DeclPosition()
		m.ReducedExpr = c.Expr.Reduce(lit, env, ast.CompileTime)
	}
}

// resolveFuncSignature reduces f's parameter and return types and
// assembles f.ResolvedSignature, the *typeck.Type (KindFunction) every
// call site narrows arguments against.
func (c *Compiler) resolveFuncSignature(f *defs.Func) {
	sc := f.EnclosingScope.(*scope.Scope)
	params := make([]typeck.TypeExprHandle, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		p.ResolvedType = c.Types.Reduce(p.TypeExpr, sc)
		params = append(params, typeOrVoid(p.ResolvedType))
	}
	var ret typeck.TypeExprHandle
	if f.ReturnTypeExpr != nil {
		ret = c.Types.Reduce(f.ReturnTypeExpr, sc)
	}
	f.ResolvedSignature = &typeck.Type{Kind: typeck.KindFunction, FuncFar: f.Far, FuncParams: params, FuncReturn: ret}
}

func typeOrVoid(t interface{}) typeck.TypeExprHandle {
	if t == nil {
		return typeck.Void
	}
	return t.(*typeck.Type)
}

// resolveVar fills v.ResolvedType: from its declared TypeExpr if
// present, otherwise inferred from its initializer's reduced type
// (spec.md Invariant 5: every Var's ResolvedType is non-nil once phase
// 2 completes).
func (c *Compiler) resolveVar(v *defs.Var, sc *scope.Scope) {
	if v.TypeExpr != nil {
		v.ResolvedType = c.Types.Reduce(v.TypeExpr, sc)
		return
	}
	if v.InitializerExpr == nil {
		c.Report.Error(v.DeclPosition(), "var '%s' has neither a declared type nor an initializer to infer one from", v.DeclName())
		return
	}
	reduced := c.Expr.ReduceForTypeCheck(v.InitializerExpr, sc)
	if reduced == nil || reduced.ExprInfo() == nil {
		c.Report.Error(v.DeclPosition(), "could not infer a type for var '%s'", v.DeclName())
		return
	}
	v.InitializerExpr = reduced
	if t, ok := reduced.ExprInfo().Type.(*typeck.Type); ok {
		v.ResolvedType = t
	}
}
