// Package cflow implements the ControlFlowLowerer from spec.md 4.7:
// translates structured statements (if/while/do-while/for/inline-for,
// return/break/continue, plain expression statements, var declarations,
// bank pushes) into the flat internal/ir sequence internal/codegen
// consumes.
//
// Grounded on the teacher's asm_helpers.go synthetic-label minting for
// the anonymous $else/$end/$skip labels short-circuit and branch
// lowering need. The goto-before-label peephole modeled on
// asm_optimizer.go's pass structure lives in internal/codegen
// (peephole.go), not in this package.
package cflow

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/exprred"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

// loopLabels names the break/continue targets of one enclosing loop.
type loopLabels struct {
	breakLabel    string
	continueLabel string
}

// Lowerer implements spec.md 4.7. One Lowerer is shared across an
// entire compile; LowerFuncBody is called once per function body, and
// each inline-call expansion site lowers the callee's body through
// LowerBlock.
type Lowerer struct {
	Report   *report.Report
	Platform platform.Platform
	Expr     *exprred.Reducer

	labelCounter int
	loopStack    []loopLabels
	currentFunc  *defs.Func

	// activeMode is the mode-flag mask in effect at the current lowering
	// position (spec.md 4.10); pushed/popped around an Attribution
	// carrying a mode attribute, and stamped onto every Code node so
	// instruction selection can filter candidates by it.
	activeMode platform.ModeMask

	// inlineReturnLabel is non-empty while lowering the body of an
	// expanded inline function; lowerReturn redirects every return in
	// that body (at any nesting depth) here instead of currentFunc's
	// declared ReturnKind.
	inlineReturnLabel string

	// inlineDepth guards against runaway recursive inline expansion; a
	// cycle here would otherwise recurse until the Go stack overflows
	// rather than reporting a clean diagnostic.
	inlineDepth int
}

const maxInlineDepth = 256

// New constructs a Lowerer.
func New(r *report.Report, p platform.Platform, expr *exprred.Reducer) *Lowerer {
	return &Lowerer{Report: r, Platform: p, Expr: expr}
}

// mintLabel synthesizes a fresh compiler-internal label name, in the
// style of the teacher's asm_helpers.go anonymous label counters.
func (l *Lowerer) mintLabel(prefix string) string {
	l.labelCounter++
	return fmt.Sprintf("$%s%d", prefix, l.labelCounter)
}

// emitCode appends a Code node stamped with the currently active mode
// mask (spec.md 4.10), used instead of a bare seq.Append(&ir.Code{...})
// literal by every lowering site that produces one.
func (l *Lowerer) emitCode(seq *ir.Sequence, instr platform.InstructionType, roots []ir.OperandRoot) {
	seq.Append(&ir.Code{Instruction: instr, OperandRoots: roots, Mode: l.activeMode})
}

// LowerFuncBody lowers f's body into a fresh IR sequence: an entry
// Label for f itself, the lowered body, and (if f falls off the end
// without an unconditional return) a trailing branch of f's declared
// ReturnKind.
func (l *Lowerer) LowerFuncBody(f *defs.Func, sc *scope.Scope) *ir.Sequence {
	seq := &ir.Sequence{}
	seq.Append(&ir.Label{Func: f, Name: f.DeclName()})

	savedFunc := l.currentFunc
	l.currentFunc = f
	l.LowerBlock(seq, f.Body, sc)
	l.currentFunc = savedFunc

	if !f.HasUnconditionalReturn {
		l.emitReturnKind(seq, f, report.Position{})
	}
	return seq
}

// LowerBlock lowers a statement list into seq in source order (spec.md
// 4.4: "statements are visited in source order").
func (l *Lowerer) LowerBlock(seq *ir.Sequence, body []ast.Statement, sc *scope.Scope) {
	for _, stmt := range body {
		l.lowerStatement(seq, stmt, sc)
	}
}

func (l *Lowerer) lowerStatement(seq *ir.Sequence, stmt ast.Statement, sc *scope.Scope) {
	switch s := stmt.(type) {
	case *ast.Block:
		l.LowerBlock(seq, s.Body, sc)
	case *ast.If:
		l.lowerIf(seq, s, sc)
	case *ast.While:
		l.lowerWhile(seq, s, sc)
	case *ast.DoWhile:
		l.lowerDoWhile(seq, s, sc)
	case *ast.For:
		l.lowerFor(seq, s, sc)
	case *ast.InlineFor:
		l.lowerInlineFor(seq, s, sc)
	case *ast.Branch:
		l.lowerBranch(seq, s, sc)
	case *ast.Label:
		seq.Append(&ir.Label{Name: s.Name})
	case *ast.In:
		l.lowerIn(seq, s, sc)
	case *ast.Var:
		l.lowerVar(seq, s, sc)
	case *ast.ExpressionStatement:
		l.lowerExpressionStatement(seq, s, sc)
	case *ast.Namespace:
		// Namespace member statements (nested funcs/vars) are lowered
		// individually when the driver visits their own definitions;
		// a bare Namespace body reached here holds only declarations
		// with no control-flow content of their own.
	case *ast.Bank, *ast.Func, *ast.Struct, *ast.Enum, *ast.TypeAlias,
		*ast.Let, *ast.ImportReference, *ast.Config:
		// A declaration nested inside a function body (the grammar
		// reuses the same item rule at every block level) carries no
		// control-flow content of its own here, same as at module
		// scope (internal/cflow/module.go's lowerModuleItem): a
		// nested Func is lowered separately, once, when the driver
		// walks its own flat Func list.
	case *ast.Attribution:
		ok, savedMode := l.applyAttributes(s.Attributes, sc)
		if ok {
			l.lowerStatement(seq, s.Body, sc)
		}
		l.activeMode = savedMode
	case *ast.InternalDeclaration:
		// Compiler-synthesized scaffolding; nothing to lower.
	default:
		l.Report.InternalError(stmt.Position(), "cflow: unhandled statement %T", stmt)
	}
}

// applyAttributes implements spec.md 4.4's
// checkConditionalCompilationAttributes plus 4.10's mode-attribute
// selection: a compile_if attribute that reduces to false skips the
// body entirely (ok=false); a recognized mode attribute updates
// l.activeMode for the body's duration. The caller must restore
// l.activeMode to the returned value once the body has been lowered
// (or skipped).
func (l *Lowerer) applyAttributes(attrs []*ast.Attribute, sc *scope.Scope) (ok bool, savedMode platform.ModeMask) {
	savedMode = l.activeMode
	for _, a := range attrs {
		switch a.Name {
		case "compile_if":
			if len(a.Args) != 1 {
				l.Report.Error(a.Pos, "compile_if takes exactly one boolean argument")
				return false, savedMode
			}
			cond := l.Expr.Reduce(a.Args[0], sc, ast.CompileTime)
			lit, isBool := cond.(*ast.BooleanLiteral)
			if !isBool {
				l.Report.Error(a.Pos, "compile_if argument must be a compile-time boolean")
				return false, savedMode
			}
			if !lit.Value {
				return false, savedMode
			}
		case "irq", "nmi", "fallthrough":
			// Function attributes, recorded onto defs.Func during phase
			// 1; nothing to apply while lowering.
		default:
			if bits, group, found := l.lookupModeAttribute(a.Name); found {
				l.activeMode = (l.activeMode &^ group.GroupMask) | bits
			} else {
				l.Report.Error(a.Pos, "unknown attribute '%s'", a.Name)
				return false, savedMode
			}
		}
	}
	return true, savedMode
}

func (l *Lowerer) lookupModeAttribute(name string) (platform.ModeMask, platform.ModeGroup, bool) {
	for _, g := range l.Platform.ModeGroups() {
		if bits, ok := g.Members[name]; ok {
			return bits, g, true
		}
	}
	return 0, platform.ModeGroup{}, false
}
