package cflow

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

// emitBranch implements spec.md 4.7's branch/comparison lowering:
// jump to dest when (negated ? !condition : condition) evaluates true.
// condition == nil means unconditional.
func (l *Lowerer) emitBranch(seq *ir.Sequence, sc *scope.Scope, pos report.Position, kind ast.BranchKind, dest string, negated bool, condition ast.Expr) {
	// Step 1: unwrap leading logical negation.
	for {
		u, ok := condition.(*ast.UnaryOperator)
		if !ok || u.Op != ast.OpLogicalNegation {
			break
		}
		condition = u.Operand
		negated = !negated
	}

	if condition == nil {
		l.emitUnconditional(seq, pos, kind, dest, nil)
		return
	}

	if bin, ok := condition.(*ast.BinaryOperator); ok && bin.Op.IsComparison() {
		l.emitComparisonBranch(seq, pos, kind, dest, negated, bin)
		return
	}

	if bin, ok := condition.(*ast.BinaryOperator); ok && (bin.Op == ast.OpLogicalAnd || bin.Op == ast.OpLogicalOr) {
		l.emitLogicalBranch(seq, sc, pos, kind, dest, negated, bin)
		return
	}

	// Step 4: a single register/value condition.
	l.emitRegisterTestBranch(seq, pos, kind, dest, negated, condition)
}

func (l *Lowerer) emitComparisonBranch(seq *ir.Sequence, pos report.Position, kind ast.BranchKind, dest string, negated bool, bin *ast.BinaryOperator) {
	commonType := interface{}(nil)
	if info := bin.Left.ExprInfo(); info != nil {
		commonType = info.Type
	}
	tab := l.Platform.GetTestAndBranch(commonType, bin.Op.String(), bin.Left, bin.Right, platform.DistanceUnspecified)
	left, right := bin.Left, bin.Right
	if tab == nil {
		if swapped, ok := bin.Op.Commute(); ok {
			tab = l.Platform.GetTestAndBranch(commonType, swapped.String(), bin.Right, bin.Left, platform.DistanceUnspecified)
			left, right = bin.Right, bin.Left
		}
	}
	if tab == nil {
		l.Report.Error(pos, "no instruction matches comparison '%s' for a conditional branch", bin.Op)
		return
	}

	l.emitCode(seq, tab.TestInstruction, []ir.OperandRoot{{SourceExpr: left, Operand: left}, {SourceExpr: right, Operand: right}})

	if len(tab.Branches) == 0 {
		// The test instruction itself performs the effect; nothing
		// further to branch on (spec.md 4.7 step 2, "unconditional path").
		return
	}

	var skipLabel string
	for i, fc := range tab.Branches {
		expected := fc.ExpectedValue
		if negated {
			expected = !expected
		}
		last := i == len(tab.Branches)-1
		if fc.SuccessEdge || last {
			l.emitFlagBranch(seq, pos, kind, dest, fc.Flag, expected)
			continue
		}
		if skipLabel == "" {
			skipLabel = l.mintLabel("skip")
		}
		l.emitFlagBranch(seq, pos, ast.BranchGoto, skipLabel, fc.Flag, !expected)
	}
	if skipLabel != "" {
		seq.Append(&ir.Label{Name: skipLabel})
	}
}

func (l *Lowerer) emitFlagBranch(seq *ir.Sequence, pos report.Position, kind ast.BranchKind, dest string, flag *defs.BuiltinRegister, expected bool) {
	l.emitCode(seq, platform.InstructionType{Kind: "branch", Name: kind.String()}, []ir.OperandRoot{
		{Operand: flag},
		{Operand: expected},
		{Operand: dest},
	})
}

func (l *Lowerer) emitLogicalBranch(seq *ir.Sequence, sc *scope.Scope, pos report.Position, kind ast.BranchKind, dest string, negated bool, bin *ast.BinaryOperator) {
	isAnd := bin.Op == ast.OpLogicalAnd
	if isAnd != negated {
		// (a && b), jump to dest when true: if !a skip past b; if b, dest.
		// (!(a || b)), jump to dest when true (De Morgan: !a && !b): if a skip past b; if !b, dest.
		skip := l.mintLabel("skip")
		l.emitBranch(seq, sc, pos, ast.BranchGoto, skip, !negated, bin.Left)
		l.emitBranch(seq, sc, pos, kind, dest, negated, bin.Right)
		seq.Append(&ir.Label{Name: skip})
		return
	}
	// (a || b), jump to dest when true: dest if a; dest if b.
	// (!(a && b)), jump to dest when true (De Morgan: !a || !b): dest if !a; dest if !b.
	l.emitBranch(seq, sc, pos, kind, dest, negated, bin.Left)
	l.emitBranch(seq, sc, pos, kind, dest, negated, bin.Right)
}

func (l *Lowerer) emitRegisterTestBranch(seq *ir.Sequence, pos report.Position, kind ast.BranchKind, dest string, negated bool, condition ast.Expr) {
	l.emitCode(seq, platform.InstructionType{Kind: "test", Name: "register"}, []ir.OperandRoot{{SourceExpr: condition, Operand: condition}})
	flag := l.Platform.ZeroFlag()
	if flag == nil {
		l.Report.Error(pos, "platform has no zero flag to test a bare condition against")
		return
	}
	// A register/value condition is "true" when it is non-zero, i.e. the
	// zero flag reads false; negation flips the expected reading.
	l.emitFlagBranch(seq, pos, kind, dest, flag, negated)
}

// emitUnconditional emits step 5: an unconditional branch, promoting
// Goto/Call to their far forms when the destination demands it.
func (l *Lowerer) emitUnconditional(seq *ir.Sequence, pos report.Position, kind ast.BranchKind, dest string, retValue ast.Expr) {
	roots := []ir.OperandRoot{{Operand: dest}}
	if retValue != nil {
		roots = append(roots, ir.OperandRoot{SourceExpr: retValue, Operand: retValue})
	}
	l.emitCode(seq, platform.InstructionType{Kind: "branch", Name: kind.String()}, roots)
}

// promoteFar upgrades a near branch kind to its far equivalent when the
// destination label was declared `far` (spec.md 4.7 step 5).
func promoteFar(kind ast.BranchKind, far bool) ast.BranchKind {
	if !far {
		return kind
	}
	switch kind {
	case ast.BranchGoto:
		return ast.BranchFarGoto
	case ast.BranchCall:
		return ast.BranchFarCall
	}
	return kind
}
