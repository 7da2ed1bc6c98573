package cflow

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/exprred"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// lowerIf implements spec.md 4.7's "if": constant conditions collapse
// to a single branch; otherwise lower via emitBranch + labels.
func (l *Lowerer) lowerIf(seq *ir.Sequence, s *ast.If, sc *scope.Scope) {
	cond := l.Expr.Reduce(s.Condition, sc, ast.RunTime)
	if cond == nil {
		return
	}
	if lit, ok := cond.(*ast.BooleanLiteral); ok {
		if lit.Value {
			l.LowerBlock(seq, s.Body, sc)
		} else {
			l.LowerBlock(seq, s.Alternative, sc)
		}
		return
	}

	if s.Alternative == nil {
		end := l.mintLabel("end")
		l.emitBranch(seq, sc, s.Pos, ast.BranchGoto, end, true, cond)
		l.LowerBlock(seq, s.Body, sc)
		seq.Append(&ir.Label{Name: end})
		return
	}

	elseLabel := l.mintLabel("else")
	end := l.mintLabel("end")
	l.emitBranch(seq, sc, s.Pos, ast.BranchGoto, elseLabel, true, cond)
	l.LowerBlock(seq, s.Body, sc)
	l.emitUnconditional(seq, s.Pos, ast.BranchGoto, end, nil)
	seq.Append(&ir.Label{Name: elseLabel})
	l.LowerBlock(seq, s.Alternative, sc)
	seq.Append(&ir.Label{Name: end})
}

// lowerWhile implements spec.md 4.7: `begin:; branch(!cond -> end); body; goto begin; end:`.
func (l *Lowerer) lowerWhile(seq *ir.Sequence, s *ast.While, sc *scope.Scope) {
	begin := l.mintLabel("begin")
	end := l.mintLabel("end")
	seq.Append(&ir.Label{Name: begin})
	cond := l.Expr.Reduce(s.Condition, sc, ast.RunTime)
	if cond == nil {
		return
	}
	l.emitBranch(seq, sc, s.Pos, ast.BranchGoto, end, true, cond)

	l.loopStack = append(l.loopStack, loopLabels{breakLabel: end, continueLabel: begin})
	l.LowerBlock(seq, s.Body, sc)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	l.emitUnconditional(seq, s.Pos, ast.BranchGoto, begin, nil)
	seq.Append(&ir.Label{Name: end})
}

// lowerDoWhile implements spec.md 4.7: `begin:; body; branch(cond -> begin); end:`.
func (l *Lowerer) lowerDoWhile(seq *ir.Sequence, s *ast.DoWhile, sc *scope.Scope) {
	begin := l.mintLabel("begin")
	cont := l.mintLabel("cont")
	end := l.mintLabel("end")
	seq.Append(&ir.Label{Name: begin})

	l.loopStack = append(l.loopStack, loopLabels{breakLabel: end, continueLabel: cont})
	l.LowerBlock(seq, s.Body, sc)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	seq.Append(&ir.Label{Name: cont})
	cond := l.Expr.Reduce(s.Condition, sc, ast.RunTime)
	if cond == nil {
		return
	}
	l.emitBranch(seq, sc, s.Pos, ast.BranchGoto, begin, false, cond)
	seq.Append(&ir.Label{Name: end})
}

// lowerFor implements spec.md 4.7's `for x in A..B by S`: A, B, S must
// be compile-time; a synthetic counter Var is created and incremented
// by S each iteration. When S == -1 and B == 0 the loop favors the
// zero flag directly (a post-decrement counts down naturally to zero
// on the target machines this compiler was built for); other bounds
// fall back to an explicit comparison against B each iteration.
func (l *Lowerer) lowerFor(seq *ir.Sequence, s *ast.For, sc *scope.Scope) {
	rangeVal := l.Expr.Reduce(s.Sequence, sc, ast.CompileTime)
	rl, ok := rangeVal.(*ast.RangeLiteral)
	if !ok {
		l.Report.Error(s.Pos, "for-loop sequence must be a compile-time range literal")
		return
	}
	startLit, _ := rl.Start.(*ast.IntegerLiteral)
	endLit, _ := rl.End.(*ast.IntegerLiteral)
	step := int128.FromInt64(1)
	if stepLit, ok := rl.Step.(*ast.IntegerLiteral); ok {
		step = stepLit.Value
	}

	counterType := inferCounterType(startLit.Value, endLit.Value)
	counter := defs.NewVar(s.CounterName, s.Pos)
	counter.ResolvedType = counterType
	counter.InitializerExpr = startLit

	inner := scope.New("$for", sc)
	if err := inner.CreateDefinition(s.CounterName, counter); err != nil {
		l.Report.Error(s.Pos, "%s", err)
		return
	}
	seq.Append(&ir.Var{Def: counter})
	counterRef := &ast.ResolvedIdentifier{Def: counter, Pieces: []string{s.CounterName}}
	counterRef.Pos = s.Pos

	begin := l.mintLabel("begin")
	end := l.mintLabel("end")
	seq.Append(&ir.Label{Name: begin})

	favorZeroFlag := step.Cmp(int128.Zero.Sub(int128.FromInt64(1))) == 0 && endLit.Value.IsZero()

	if !favorZeroFlag {
		cmpOp := ast.OpLt
		if step.Sign() < 0 {
			cmpOp = ast.OpGt
		}
		cond := &ast.BinaryOperator{Op: cmpOp, Left: counterRef, Right: endLit}
		cond.Pos = s.Pos
		reducedCond := l.Expr.Reduce(cond, inner, ast.RunTime)
		if reducedCond == nil {
			return
		}
		l.emitBranch(seq, inner, s.Pos, ast.BranchGoto, end, true, reducedCond)
	}

	l.loopStack = append(l.loopStack, loopLabels{breakLabel: end, continueLabel: begin})
	l.LowerBlock(seq, s.Body, inner)
	l.loopStack = l.loopStack[:len(l.loopStack)-1]

	l.emitCounterStep(seq, inner, counterRef, step, s)

	if favorZeroFlag {
		zeroCheck := &ast.ResolvedIdentifier{Def: counter, Pieces: []string{s.CounterName}}
		zeroCheck.Pos = s.Pos
		reducedCheck := l.Expr.Reduce(zeroCheck, inner, ast.RunTime)
		l.emitBranch(seq, inner, s.Pos, ast.BranchGoto, begin, false, reducedCheck)
	} else {
		l.emitUnconditional(seq, s.Pos, ast.BranchGoto, begin, nil)
	}
	seq.Append(&ir.Label{Name: end})
}

// emitCounterStep advances the loop counter by step: a bare
// increment/decrement when |step| == 1, else a compound assignment.
func (l *Lowerer) emitCounterStep(seq *ir.Sequence, sc *scope.Scope, counterRef *ast.ResolvedIdentifier, step int128.Int, s *ast.For) {
	one := int128.FromInt64(1)
	negOne := int128.Zero.Sub(one)
	var stepExpr ast.Expr
	if step.Cmp(one) == 0 {
		u := &ast.UnaryOperator{Op: ast.OpPreIncrement, Operand: counterRef}
		u.Pos = s.Pos
		stepExpr = u
	} else if step.Cmp(negOne) == 0 {
		u := &ast.UnaryOperator{Op: ast.OpPreDecrement, Operand: counterRef}
		u.Pos = s.Pos
		stepExpr = u
	} else {
		lit := &ast.IntegerLiteral{Value: step}
		lit.Pos = s.Pos
		add := &ast.BinaryOperator{Op: ast.OpAdd, Left: counterRef, Right: lit}
		add.Pos = s.Pos
		assign := &ast.BinaryOperator{Op: ast.OpAssign, Left: counterRef, Right: add}
		assign.Pos = s.Pos
		stepExpr = assign
	}
	reduced := l.Expr.Reduce(stepExpr, sc, ast.RunTime)
	if reduced == nil {
		return
	}
	l.emitExprCode(seq, reduced, sc)
}

// inferCounterType picks the smallest builtin integer type covering
// [start, end) (an Open Question decision: the grammar gives a for-loop
// counter no explicit type, so one must be synthesized).
func inferCounterType(start, end int128.Int) *typeck.Type {
	lo, hi := start, end
	if hi.Cmp(lo) < 0 {
		lo, hi = hi, lo
	}
	signed := lo.Sign() < 0
	if !signed && hi.FitsRange(int128.Zero, int128.FromInt64(255)) {
		return &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, IntMin: int128.Zero, IntMax: int128.FromInt64(255), Name: "u8"}
	}
	if signed && lo.FitsRange(int128.FromInt64(-128), int128.FromInt64(127)) && hi.FitsRange(int128.FromInt64(-128), int128.FromInt64(127)) {
		return &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, IntSigned: true, IntMin: int128.FromInt64(-128), IntMax: int128.FromInt64(127), Name: "i8"}
	}
	if !signed {
		return &typeck.Type{Kind: typeck.KindInteger, IntSize: 2, IntMin: int128.Zero, IntMax: int128.FromInt64(65535), Name: "u16"}
	}
	return &typeck.Type{Kind: typeck.KindInteger, IntSize: 2, IntSigned: true, IntMin: int128.FromInt64(-32768), IntMax: int128.FromInt64(32767), Name: "i16"}
}

// lowerInlineFor implements spec.md 4.7: unrolled at compile time, each
// iteration getting a fresh scope with `let x = <i-th item>`.
func (l *Lowerer) lowerInlineFor(seq *ir.Sequence, s *ast.InlineFor, sc *scope.Scope) {
	seqVal := l.Expr.Reduce(s.Sequence, sc, ast.CompileTime)
	if seqVal == nil {
		return
	}
	items, ok := exprred.LiteralSequenceItems(seqVal)
	if !ok {
		l.Report.Error(s.Pos, "inline for requires a compile-time sequence")
		return
	}
	for _, item := range items {
		inner := scope.New("$inlinefor", sc)
		binding := defs.NewLet(s.Name, nil, item, s.Pos)
		if err := inner.CreateDefinition(s.Name, binding); err != nil {
			l.Report.Error(s.Pos, "%s", err)
			return
		}
		l.LowerBlock(seq, s.Body, inner)
	}
}
