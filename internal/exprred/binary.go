package exprred

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// reduceBinary implements spec.md 4.3's binary operator rules.
func (red *Reducer) reduceBinary(n *ast.BinaryOperator, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	if n.Op == ast.OpAssign {
		return red.reduceAssign(n, sc, minContext)
	}

	left := red.Reduce(n.Left, sc, minContext)
	right := red.Reduce(n.Right, sc, minContext)
	if left == nil || right == nil {
		return nil
	}

	switch {
	case n.Op.IsComparison():
		return red.reduceComparison(n, left, right)
	case n.Op == ast.OpLogicalAnd || n.Op == ast.OpLogicalOr:
		return red.reduceLogical(n, left, right)
	case n.Op == ast.OpConcat:
		return red.reduceConcat(n, left, right)
	case n.Op == ast.OpIndex:
		return red.reduceIndex(n, sc, left, right)
	case n.Op == ast.OpBitIndex:
		return red.reduceBitIndex(n, left, right)
	case n.Op == ast.OpRotate || n.Op == ast.OpLogicalRotate:
		return red.reduceRotate(n, left, right)
	default:
		return red.reduceArith(n, left, right)
	}
}

func (red *Reducer) reduceAssign(n *ast.BinaryOperator, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	left := red.Reduce(n.Left, sc, minContext)
	if left == nil {
		return nil
	}
	info := left.ExprInfo()
	if info == nil || !info.Qualifiers.LValue {
		red.Report.Error(n.Pos, "assignment target is not an l-value")
		return nil
	}
	if info.Qualifiers.Const {
		red.Report.Error(n.Pos, "cannot assign to a const value")
		return nil
	}
	right := red.Reduce(n.Right, sc, ast.RunTime)
	if right == nil {
		return nil
	}
	leftType, _ := info.Type.(*typeck.Type)
	right = red.narrowOrError(n.Pos, right, leftType)
	if right == nil {
		return nil
	}
	n.Left = left
	n.Right = right
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: leftType, Qualifiers: ast.ExprQualifiers{LValue: true}})
	return n
}

// Narrow exposes narrowOrError for collaborators outside this package
// (internal/cflow narrows return values into a function's return type).
func (red *Reducer) Narrow(pos report.Position, e ast.Expr, target *typeck.Type) ast.Expr {
	return red.narrowOrError(pos, e, target)
}

// narrowOrError narrows e's static type into target, per spec.md 4.2's
// canNarrowExpression, or reports a TypeMismatch-style error.
func (red *Reducer) narrowOrError(pos report.Position, e ast.Expr, target *typeck.Type) ast.Expr {
	src := red.typeOf(e)
	if target == nil || src == nil {
		return e
	}
	if typeck.IsEquivalent(src, target) {
		return e
	}
	var lit *int128.Int
	if intLit, ok := e.(*ast.IntegerLiteral); ok {
		lit = &intLit.Value
	}
	if typeck.CanNarrow(src, target, lit) {
		info := e.ExprInfo()
		e.SetExprInfo(&ast.ExpressionInfo{Context: info.Context, Type: target, Qualifiers: info.Qualifiers})
		return e
	}
	red.Report.Error(e.Position(), "cannot convert %s to %s", typeck.Describe(src), typeck.Describe(target))
	return nil
}

func widerContext(a, b ast.Expr) ast.EvalContext {
	ai, bi := a.ExprInfo(), b.ExprInfo()
	if ai == nil || bi == nil {
		return ast.RunTime
	}
	return ast.Max(ai.Context, bi.Context)
}

func asIntLiteral(e ast.Expr) (int128.Int, bool) {
	lit, ok := e.(*ast.IntegerLiteral)
	if !ok {
		return int128.Zero, false
	}
	return lit.Value, true
}

// arithResultType picks the result type of an arithmetic binary
// operator: if either side has a sized integer type the result takes
// that (wider) type; otherwise the operation stays in iexpr.
func arithResultType(a, b *typeck.Type) *typeck.Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Kind == typeck.KindIntegerExpression {
		return b
	}
	if b.Kind == typeck.KindIntegerExpression {
		return a
	}
	if a.Kind == typeck.KindInteger && b.Kind == typeck.KindInteger {
		if a.IntSize >= b.IntSize {
			return a
		}
		return b
	}
	return a
}

func (red *Reducer) reduceArith(n *ast.BinaryOperator, left, right ast.Expr) ast.Expr {
	resultType := arithResultType(red.typeOf(left), red.typeOf(right))

	lv, lok := asIntLiteral(left)
	rv, rok := asIntLiteral(right)
	if lok && rok {
		folded, ok := foldArith(n.Op, lv, rv)
		if !ok {
			red.Report.Error(n.Pos, "division or modulo by zero in compile-time expression")
			return nil
		}
		if resultType != nil && resultType.Kind == typeck.KindInteger {
			if !folded.FitsRange(resultType.IntMin, resultType.IntMax) {
				red.Report.Error(n.Pos, "compile-time overflow: %s does not fit in %s", folded.String(), typeck.Describe(resultType))
				return nil
			}
		}
		out := &ast.IntegerLiteral{Value: folded}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: resultType, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}

	n.Left, n.Right = left, right
	ctx := widerContext(left, right)
	if ctx == ast.CompileTime {
		ctx = ast.LinkTime
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: resultType, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func foldArith(op ast.BinaryOp, a, b int128.Int) (int128.Int, bool) {
	switch op {
	case ast.OpAdd:
		return a.Add(b), true
	case ast.OpSub:
		return a.Sub(b), true
	case ast.OpMul:
		return a.Mul(b), true
	case ast.OpDiv:
		return a.Div(b)
	case ast.OpMod:
		return a.Rem(b)
	case ast.OpShl:
		n, ok := b.Int64()
		if !ok || n < 0 {
			return int128.Zero, false
		}
		return a.Shl(uint(n)), true
	case ast.OpShr:
		n, ok := b.Int64()
		if !ok || n < 0 {
			return int128.Zero, false
		}
		return a.Shr(uint(n)), true
	case ast.OpBitAnd:
		return a.And(b), true
	case ast.OpBitOr:
		return a.Or(b), true
	case ast.OpBitXor:
		return a.Xor(b), true
	}
	return int128.Zero, false
}

func (red *Reducer) reduceRotate(n *ast.BinaryOperator, left, right ast.Expr) ast.Expr {
	t := red.typeOf(left)
	if t == nil || t.Kind != typeck.KindInteger {
		red.Report.Error(n.Pos, "rotate requires an operand of known bit width")
		return nil
	}
	lv, lok := asIntLiteral(left)
	rv, rok := asIntLiteral(right)
	if lok && rok {
		amt, _ := rv.Int64()
		folded := lv.Rotate(uint(t.IntSize)*8, int(amt))
		out := &ast.IntegerLiteral{Value: folded}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: t, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	n.Left, n.Right = left, right
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: t, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceComparison(n *ast.BinaryOperator, left, right ast.Expr) ast.Expr {
	lv, lok := asIntLiteral(left)
	rv, rok := asIntLiteral(right)
	if lok && rok {
		result := compareInts(n.Op, lv, rv)
		out := &ast.BooleanLiteral{Value: result}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: typeck.Bool, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	n.Left, n.Right = left, right
	ctx := widerContext(left, right)
	if ctx == ast.CompileTime {
		ctx = ast.LinkTime
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: typeck.Bool, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func compareInts(op ast.BinaryOp, a, b int128.Int) bool {
	c := a.Cmp(b)
	switch op {
	case ast.OpEq:
		return c == 0
	case ast.OpNe:
		return c != 0
	case ast.OpLt:
		return c < 0
	case ast.OpLe:
		return c <= 0
	case ast.OpGt:
		return c > 0
	case ast.OpGe:
		return c >= 0
	}
	return false
}

func (red *Reducer) reduceLogical(n *ast.BinaryOperator, left, right ast.Expr) ast.Expr {
	if lb, ok := left.(*ast.BooleanLiteral); ok {
		// Short-circuit at compile time on a known operand.
		if n.Op == ast.OpLogicalAnd && !lb.Value {
			return boolLiteral(n.Pos, false)
		}
		if n.Op == ast.OpLogicalOr && lb.Value {
			return boolLiteral(n.Pos, true)
		}
		if rb, ok := right.(*ast.BooleanLiteral); ok {
			if n.Op == ast.OpLogicalAnd {
				return boolLiteral(n.Pos, lb.Value && rb.Value)
			}
			return boolLiteral(n.Pos, lb.Value || rb.Value)
		}
		return right
	}
	n.Left, n.Right = left, right
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: typeck.Bool, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func boolLiteral(pos report.Position, v bool) *ast.BooleanLiteral {
	out := &ast.BooleanLiteral{Value: v}
	out.Pos = pos
	out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: typeck.Bool, Qualifiers: ast.ExprQualifiers{Const: true}})
	return out
}
