package exprred

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// reduceUnary implements spec.md 4.3's unary operator rules.
func (red *Reducer) reduceUnary(n *ast.UnaryOperator, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	switch n.Op {
	case ast.OpAddressOf, ast.OpFarAddressOf:
		return red.reduceAddressOf(n, sc, minContext)
	case ast.OpAddressReserve:
		return red.reduceAddressReserve(n, sc, minContext)
	}

	operand := red.Reduce(n.Operand, sc, minContext)
	if operand == nil {
		return nil
	}

	switch n.Op {
	case ast.OpIndirection:
		return red.reduceIndirection(n, operand)
	case ast.OpLowByte, ast.OpHighByte, ast.OpBankByte:
		return red.reduceByteExtract(n, operand)
	case ast.OpPreIncrement, ast.OpPreDecrement, ast.OpPostIncrement, ast.OpPostDecrement:
		return red.reduceIncDec(n, operand)
	case ast.OpLogicalNegation:
		return red.reduceLogicalNegation(n, operand)
	case ast.OpNegate:
		return red.reduceNegate(n, operand)
	case ast.OpBitNot:
		return red.reduceBitNot(n, operand)
	default:
		red.Report.InternalError(n.Pos, "unhandled unary operator %v", n.Op)
		return nil
	}
}

// reduceAddressOf implements `&expr`/`&far expr`: legal on a Var, a
// `*indirect` (cancels), or an indexing expression.
func (red *Reducer) reduceAddressOf(n *ast.UnaryOperator, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	if inner, ok := n.Operand.(*ast.UnaryOperator); ok && inner.Op == ast.OpIndirection {
		return red.Reduce(inner.Operand, sc, minContext)
	}

	operand := red.Reduce(n.Operand, sc, ast.RunTime)
	if operand == nil {
		return nil
	}
	resolved, ok := operand.(*ast.ResolvedIdentifier)
	elemType := red.typeOf(operand)
	far := n.Op == ast.OpFarAddressOf
	ptrType := &typeck.Type{Kind: typeck.KindPointer, PointerElement: elemType, PointerIsFar: far}

	if ok {
		if v, isVar := resolved.Def.(*defs.Var); isVar {
			if addr, hasAddr := v.Address.Get(); hasAddr {
				if abs, absOk := addr.Absolute.Get(); absOk {
					out := &ast.IntegerLiteral{Value: abs}
					out.Pos = n.Pos
					out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: ptrType, Qualifiers: ast.ExprQualifiers{Const: true}})
					return out
				}
			}
		}
	}

	n.Operand = operand
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.LinkTime, Type: ptrType, Qualifiers: ast.ExprQualifiers{}})
	return n
}

// reduceAddressReserve implements `@expr` (spec.md 4.3 AddressReserve):
// only legal inside a var initializer.
func (red *Reducer) reduceAddressReserve(n *ast.UnaryOperator, sc *scope.Scope, minContext ast.EvalContext) ast.Expr {
	if !red.reserveGate.allowed {
		red.Report.Error(n.Pos, "'@' is only legal inside a var initializer")
		return nil
	}
	value := red.Reduce(n.Operand, sc, minContext)
	if value == nil {
		return nil
	}
	valueType := red.typeOf(value)
	anon := defs.NewVar("$reserved", n.Pos)
	anon.Const = true
	anon.ResolvedType = valueType
	anon.InitializerExpr = value
	if owner := red.reserveGate.owner; owner != nil {
		owner.NestedConstants = append(owner.NestedConstants, anon)
	}

	resolved := &ast.ResolvedIdentifier{Def: anon, Pieces: []string{anon.DeclName()}}
	resolved.Pos = n.Pos
	ptrType := &typeck.Type{Kind: typeck.KindPointer, PointerElement: valueType}
	resolved.SetExprInfo(&ast.ExpressionInfo{Context: ast.LinkTime, Type: ptrType, Qualifiers: ast.ExprQualifiers{Const: true}})
	return resolved
}

func (red *Reducer) reduceIndirection(n *ast.UnaryOperator, operand ast.Expr) ast.Expr {
	t := red.typeOf(operand)
	if t == nil || t.Kind != typeck.KindPointer {
		red.Report.Error(n.Pos, "indirection requires a pointer operand")
		return nil
	}
	n.Operand = operand
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: t.PointerElement, Qualifiers: ast.ExprQualifiers{LValue: !t.PointerQuals.Const, WriteOnly: t.PointerQuals.WriteOnly}})
	return n
}

func (red *Reducer) reduceByteExtract(n *ast.UnaryOperator, operand ast.Expr) ast.Expr {
	t := red.typeOf(operand)
	size, ok := t.StorageSize()
	offset := uint(0)
	switch n.Op {
	case ast.OpLowByte:
		offset = 0
	case ast.OpHighByte:
		offset = 1
	case ast.OpBankByte:
		offset = 2
	}
	if ok && int(offset) >= size {
		red.Report.Error(n.Pos, "byte offset %d is out of range for a %d-byte value", offset, size)
		return nil
	}
	byteType := &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}
	if lit, isLit := operand.(*ast.IntegerLiteral); isLit {
		out := &ast.IntegerLiteral{Value: lit.Value.Byte(offset)}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: byteType, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	n.Operand = operand
	ctx := ast.RunTime
	if info := operand.ExprInfo(); info != nil && info.Context == ast.LinkTime {
		ctx = ast.LinkTime
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: byteType, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceIncDec(n *ast.UnaryOperator, operand ast.Expr) ast.Expr {
	info := operand.ExprInfo()
	if info == nil || !info.Qualifiers.LValue {
		red.Report.Error(n.Pos, "increment/decrement requires an l-value operand")
		return nil
	}
	n.Operand = operand
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: info.Type, Qualifiers: info.Qualifiers})
	return n
}

func (red *Reducer) reduceLogicalNegation(n *ast.UnaryOperator, operand ast.Expr) ast.Expr {
	if lit, ok := operand.(*ast.BooleanLiteral); ok {
		return boolLiteral(n.Pos, !lit.Value)
	}
	n.Operand = operand
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: typeck.Bool, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceNegate(n *ast.UnaryOperator, operand ast.Expr) ast.Expr {
	t := red.typeOf(operand)
	if lit, ok := operand.(*ast.IntegerLiteral); ok {
		out := &ast.IntegerLiteral{Value: lit.Value.Neg()}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: t, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	n.Operand = operand
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: t, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceBitNot(n *ast.UnaryOperator, operand ast.Expr) ast.Expr {
	t := red.typeOf(operand)
	if lit, ok := operand.(*ast.IntegerLiteral); ok {
		var masked int128.Int
		if t != nil && t.Kind == typeck.KindInteger {
			masked = lit.Value.Xor(int128.Zero.Sub(int128.FromInt64(1))).Mask(uint(t.IntSize) * 8)
		} else {
			masked = lit.Value.Xor(int128.Zero.Sub(int128.FromInt64(1)))
		}
		out := &ast.IntegerLiteral{Value: masked}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: t, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	n.Operand = operand
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: t, Qualifiers: ast.ExprQualifiers{}})
	return n
}
