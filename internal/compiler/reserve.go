package compiler

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/builtins"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

// Reserve implements phase 1 (spec.md §1: "walk the AST; register every
// bank, var, let, func, namespace, struct, enum, typealias, label;
// build lexical scopes") and satisfies internal/importer.Reserver so
// the import pipeline can drive it per file.
func (c *Compiler) Reserve(file *ast.File, into *scope.Scope) error {
	c.reserveBlock(file.Items, into, nil)
	c.moduleBlocks = append(c.moduleBlocks, moduleBlock{items: file.Items, scope: into})
	return nil
}

// reserveBlock registers every declaration in items directly into sc.
// enclosing names the function items are nested within, for
// Var.EnclosingFunction; nil at module/namespace scope.
func (c *Compiler) reserveBlock(items []ast.Statement, sc *scope.Scope, enclosing *defs.Func) {
	for _, item := range items {
		c.reserveStatement(item, sc, enclosing)
	}
}

func (c *Compiler) reserveStatement(stmt ast.Statement, sc *scope.Scope, enclosing *defs.Func) {
	switch s := stmt.(type) {
	case *ast.Bank:
		c.reserveBank(s, sc)
	case *ast.Var:
		c.reserveVar(s, sc, enclosing)
	case *ast.Let:
		def := defs.NewLet(s.Name, s.Parameters, s.Value, s.Pos)
		c.bind(sc, s.Name, def, s.Pos)
	case *ast.Func:
		c.reserveFunc(s, sc)
	case *ast.Namespace:
		c.reserveNamespace(s, sc)
	case *ast.Struct:
		c.reserveStruct(s, sc)
	case *ast.Enum:
		c.reserveEnum(s, sc)
	case *ast.TypeAlias:
		def := defs.NewTypeAlias(s.Name, s.TypeExpr, s.Pos)
		c.bind(sc, s.Name, def, s.Pos)
		c.typeAliasScope[def] = sc
		c.typeAliases = append(c.typeAliases, def)
	case *ast.Block:
		c.reserveBlock(s.Body, sc, enclosing)
	case *ast.Attribution:
		// compile_if is only evaluable once expression reduction is
		// wired (phase 4), so declarations behind it are provisionally
		// reserved here; a false compile_if simply produces no lowered
		// code for them in phase 4/5, leaving an unreachable but
		// harmlessly reserved definition.
		//
		// A Func is the one statement kind with its own Attributes
		// field (irq/nmi/fallthrough, read directly off *ast.Func by
		// reserveFunc below); the parser always wraps an attributed
		// statement in Attribution regardless of kind, so those
		// attributes have to be copied onto the Func here before
		// recursing, or reserveFunc would see an empty list.
		if fn, ok := s.Body.(*ast.Func); ok {
			fn.Attributes = append(fn.Attributes, s.Attributes...)
		}
		c.reserveStatement(s.Body, sc, enclosing)
	case *ast.If:
		c.reserveBlock(s.Body, sc, enclosing)
		c.reserveBlock(s.Alternative, sc, enclosing)
	case *ast.While:
		c.reserveBlock(s.Body, sc, enclosing)
	case *ast.DoWhile:
		c.reserveBlock(s.Body, sc, enclosing)
	case *ast.For:
		c.reserveBlock(s.Body, sc, enclosing)
	case *ast.InlineFor:
		c.reserveBlock(s.Body, sc, enclosing)
	case *ast.In:
		c.reserveBlock(s.Body, sc, enclosing)
	case *ast.ImportReference, *ast.Label, *ast.Branch, *ast.ExpressionStatement, *ast.InternalDeclaration, *ast.Config:
		// No definitions of their own: ImportReference is resolved by
		// internal/importer, Label/Branch resolve as plain IR-level
		// names during lowering (spec.md 4.7), the rest carry no
		// declarations.
	default:
		c.Report.InternalError(stmt.Position(), "compiler: unhandled statement %T in phase 1", stmt)
	}
}

func (c *Compiler) bind(sc *scope.Scope, name string, d defs.Definition, pos report.Position) {
	if err := sc.CreateDefinition(name, d); err != nil {
		c.Report.Error(pos, "%s", err)
	}
}

func (c *Compiler) reserveBank(s *ast.Bank, sc *scope.Scope) {
	for _, name := range s.Names {
		def := defs.NewBank(name, s.Pos)
		def.AddressExpr = s.AddressExpr
		def.TypeExpr = s.TypeExpr
		c.bind(sc, name, def, s.Pos)
		c.banks = append(c.banks, def)
		c.bankScope[def] = sc
	}
}

func (c *Compiler) reserveVar(s *ast.Var, sc *scope.Scope, enclosing *defs.Func) {
	for i, name := range s.Names {
		def := defs.NewVar(name, s.Pos)
		def.Const = s.Qualifiers.Const
		def.WriteOnly = s.Qualifiers.WriteOnly
		def.Extern = s.Qualifiers.Extern
		def.Far = s.Qualifiers.Far
		def.LValue = !s.Qualifiers.WriteOnly
		def.EnclosingFunction = enclosing
		def.TypeExpr = s.TypeExpr
		def.InitializerExpr = s.Value
		if i < len(s.Addresses) {
			def.AddressExpr = s.Addresses[i]
		}
		c.bind(sc, name, def, s.Pos)
		if enclosing == nil {
			c.moduleVars = append(c.moduleVars, def)
		}
		c.varScope[def] = sc
	}
}

func (c *Compiler) reserveFunc(s *ast.Func, sc *scope.Scope) {
	def := defs.NewFunc(s.Name, s.Pos)
	def.Fallthrough = s.Fallthrough
	def.Inlined = s.Inlined
	def.Far = s.Far
	def.ReturnTypeExpr = s.ReturnTypeExpr
	def.Body = s.Body
	def.EnclosingScope = sc
	builtins.ApplyFunctionAttributes(def, s.Attributes, c.Report)
	if def.IRQ && def.NMI {
		c.Report.Error(s.Pos, "func '%s' cannot be both #[irq] and #[nmi]", s.Name)
	}

	funcScope := scope.New(s.Name, sc)
	for _, p := range s.Parameters {
		param := defs.NewVar(p.Name, p.Pos)
		param.TypeExpr = p.TypeExpr
		param.EnclosingFunction = def
		c.bind(funcScope, p.Name, param, p.Pos)
		def.Parameters = append(def.Parameters, param)
	}
	def.EnclosingScope = funcScope
	c.reserveBlock(s.Body, funcScope, def)

	c.bind(sc, s.Name, def, s.Pos)
	c.funcs = append(c.funcs, def)
}

func (c *Compiler) reserveNamespace(s *ast.Namespace, sc *scope.Scope) {
	def := defs.NewNamespace(s.Name, s.Pos)
	nsScope := scope.New(s.Name, sc)
	def.Env = nsScope
	c.reserveBlock(s.Body, nsScope, nil)
	c.moduleBlocks = append(c.moduleBlocks, moduleBlock{items: s.Body, scope: nsScope})
	c.bind(sc, s.Name, def, s.Pos)
}

func (c *Compiler) reserveStruct(s *ast.Struct, sc *scope.Scope) {
	def := defs.NewStruct(s.Name, s.Kind, s.Pos)
	memberScope := scope.New(s.Name, sc)
	def.Env = memberScope
	for _, item := range s.Items {
		member := defs.NewStructMember(item.Name, item.Pos, def, item.TypeExpr)
		c.bind(memberScope, item.Name, member, item.Pos)
		def.Members = append(def.Members, member)
	}
	c.bind(sc, s.Name, def, s.Pos)
	c.structs = append(c.structs, def)
}

func (c *Compiler) reserveEnum(s *ast.Enum, sc *scope.Scope) {
	def := defs.NewEnum(s.Name, s.Pos)
	def.UnderlyingTypeExpr = s.UnderlyingTypeExpr
	memberScope := scope.New(s.Name, sc)
	def.Env = memberScope
	offset := 0
	for _, item := range s.Members {
		if item.BaseExpr != nil {
			offset = 0
		}
		member := defs.NewEnumMember(item.Name, item.Pos, def, item.BaseExpr, offset)
		c.bind(memberScope, item.Name, member, item.Pos)
		def.Members = append(def.Members, member)
		offset++
	}
	c.bind(sc, s.Name, def, s.Pos)
	c.enums = append(c.enums, def)
}
