// Package compiler implements the top-level Compiler/PhaseDriver from
// spec.md §2/§4.4: the object that owns every collaborator and walks
// the AST once through the five sequential phases (definition
// reservation, type resolution, storage reservation, IR emission, code
// generation).
//
// Grounded on the teacher's top-level AST.GenerateASM
// (mscr/compiler/ast.go) as "the one function that owns all compiler
// state and walks the tree once", scaled up to explicit phases with
// Report.Validate() gates between them (spec.md §5 "Cancellation").
package compiler

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/bank"
	"github.com/undisbeliever/wiz/internal/builtins"
	"github.com/undisbeliever/wiz/internal/cflow"
	"github.com/undisbeliever/wiz/internal/codegen"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/exprred"
	"github.com/undisbeliever/wiz/internal/importer"
	"github.com/undisbeliever/wiz/internal/instrsel"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// Config bundles the CLI-tunable knobs that reach the compiler.
type Config struct {
	Optimize bool // peephole passes (spec.md 4.9)
}

// Compiler owns every phase's collaborators, replacing the six explicit
// stacks §5 names (scopeStack, inlineSiteStack, attributeListStack,
// bankStack, modeFlagsStack, letExpressionStack) with the idiomatic Go
// equivalent: recursive calls threading a *scope.Scope parameter (the
// scope/attribute/bank stacks), and the small owned counters/fields
// internal/exprred.Reducer (letStack) and internal/cflow.Lowerer
// (inlineDepth, activeMode) already keep for their own recursion. There
// is exactly one of each, so nothing is lost by not also keeping a
// parallel slice of frames in Compiler itself.
type Compiler struct {
	Report   *report.Report
	Platform platform.Platform
	Config   Config

	Root    *scope.Scope
	Types   *typeck.Reducer
	Expr    *exprred.Reducer
	Lowerer *cflow.Lowerer

	banks      []*defs.Bank
	moduleVars []*defs.Var
	funcs      []*defs.Func
	structs    []*defs.Struct
	enums      []*defs.Enum
	typeAliases []*defs.TypeAlias

	// varScope/bankScope/typeAliasScope record, for every reserved
	// definition, the scope its TypeExpr/AddressExpr must be resolved
	// against in phase 2. defs.Var/Bank/TypeAlias carry no such field
	// themselves (unlike Func.EnclosingScope, Namespace.Env, Struct.Env,
	// Enum.Env, which do), so phase 1 records it here as a side table.
	// varScope covers every reserved var, not only module-level ones.
	bankScope      map[*defs.Bank]*scope.Scope
	varScope       map[*defs.Var]*scope.Scope
	typeAliasScope map[*defs.TypeAlias]*scope.Scope

	bankHandles map[*defs.Bank]*bank.Bank

	// moduleBlocks records every statement list phase 4 (emit) must walk
	// for top-level var/in/namespace content that isn't reached through
	// any Func's body: once per file (its top-level Items) and once per
	// Namespace (its Body), paired with the scope reserveBlock walked it
	// in. Declarative statements in between (bank/func/struct/enum/
	// typealias/let) are skipped by cflow.Lowerer.LowerModuleItems.
	moduleBlocks []moduleBlock
}

type moduleBlock struct {
	items []ast.Statement
	scope *scope.Scope
}

// New constructs a Compiler with the builtin scope already populated
// and the typeck/exprred mutual reference (§9's "no global mutable
// state" applies to the Compiler object; typeck's resolver hooks are
// the one process-wide exception, wired here rather than left dangling
// nil) completed.
func New(r *report.Report, p platform.Platform, defines *builtins.Defines) *Compiler {
	root := scope.New("", nil)
	builtins.PopulateRootScope(root, r, p)

	types := typeck.NewReducer(r, nil)
	expr := exprred.New(r, types, nil, defines)
	types.Expr = expr
	lowerer := cflow.New(r, p, expr)

	c := &Compiler{
		Report: r, Platform: p, Root: root, Types: types, Expr: expr, Lowerer: lowerer,
		bankScope: map[*defs.Bank]*scope.Scope{}, varScope: map[*defs.Var]*scope.Scope{},
		typeAliasScope: map[*defs.TypeAlias]*scope.Scope{}, bankHandles: map[*defs.Bank]*bank.Bank{},
	}
	typeck.SetStructSizeResolver(c.structSize)
	typeck.SetEnumSizeResolver(c.enumSize)
	return c
}

// SetImports wires the import manager for `embed` expressions. Must be
// called before Compile if the program uses embed; single-file callers
// with no embed usage may skip it (exprred reports a clean error if it
// is ever needed and absent).
func (c *Compiler) SetImports(mgr exprred.ImportManager) { c.Expr.Imports = mgr }

// Result is everything Compile produces for a Format module to consume.
type Result struct {
	Banks []*defs.Bank
	Handles map[*defs.Bank]*bank.Bank
}

// Compile drives phases 2 through 5 over every definition phase 1
// already reserved (importer.Pipeline calls Reserve per file during
// phase 1, before Compile runs).
func (c *Compiler) Compile() (*Result, bool) {
	if !c.Report.Validate() {
		return nil, false
	}
	c.resolveTypes()
	if !c.Report.Validate() {
		return nil, false
	}
	c.layoutAggregates()
	if !c.Report.Validate() {
		return nil, false
	}
	c.allocateBanks()
	if !c.Report.Validate() {
		return nil, false
	}
	seq := c.emit()
	if !c.Report.Validate() {
		return nil, false
	}
	gen := codegen.New(c.Report, c.Platform, instrsel.New(c.Platform, c.Report), c.bankSlice(), c.Config.Optimize)
	if !gen.Generate(seq) {
		return nil, false
	}
	return &Result{Banks: c.banks, Handles: c.bankHandles}, true
}

func (c *Compiler) bankSlice() []*bank.Bank {
	out := make([]*bank.Bank, 0, len(c.banks))
	for _, b := range c.banks {
		if h, ok := c.bankHandles[b]; ok {
			out = append(out, h)
		}
	}
	return out
}

func (c *Compiler) structSize(t *typeck.Type) (int, bool) {
	def, ok := t.Def.(*defs.Struct)
	if !ok {
		return 0, false
	}
	return def.Size.Get()
}

func (c *Compiler) enumSize(t *typeck.Type) (int, bool) {
	def, ok := t.Def.(*defs.Enum)
	if !ok {
		return 0, false
	}
	if def.ResolvedUnderlying == nil {
		return 0, false
	}
	rt, ok := def.ResolvedUnderlying.(*typeck.Type)
	if !ok {
		return 0, false
	}
	return rt.StorageSize()
}

// Pipeline constructs an importer.Pipeline whose Reserver is this
// Compiler, for multi-file programs.
func (c *Compiler) Pipeline(r *report.Report, p importer.Parser, roots []string) *importer.Pipeline {
	return importer.New(r, p, c, c.Root, roots)
}
