package exprred

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/scope"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// reduceConcat implements spec.md 4.3 Concatenation: only between two
// string literals or two array literals. The arrays' element types are
// not compared; the result takes the left operand's element type.
func (red *Reducer) reduceConcat(n *ast.BinaryOperator, left, right ast.Expr) ast.Expr {
	ls, lok := left.(*ast.StringLiteral)
	rs, rok := right.(*ast.StringLiteral)
	if lok && rok {
		out := &ast.StringLiteral{Value: append(append([]byte(nil), ls.Value...), rs.Value...)}
		out.Pos = n.Pos
		arrType := &typeck.Type{Kind: typeck.KindArray, ArrayElement: &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}, ArrayHasLength: true, ArrayLength: len(out.Value)}
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: arrType, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	la, laok := left.(*ast.ArrayLiteral)
	ra, raok := right.(*ast.ArrayLiteral)
	if laok && raok {
		out := &ast.ArrayLiteral{Elements: append(append([]ast.Expr(nil), la.Elements...), ra.Elements...)}
		out.Pos = n.Pos
		var elem *typeck.Type
		if lt := red.typeOf(left); lt != nil {
			elem = lt.ArrayElement
		}
		arrType := &typeck.Type{Kind: typeck.KindArray, ArrayElement: elem, ArrayHasLength: true, ArrayLength: len(out.Elements)}
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: arrType, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	red.Report.Error(n.Pos, "concatenation requires two compile-time arrays or strings")
	return nil
}

// reduceIndex implements spec.md 4.3 Indexing.
func (red *Reducer) reduceIndex(n *ast.BinaryOperator, sc *scope.Scope, left, right ast.Expr) ast.Expr {
	idxLit, idxIsLit := asIntLiteral(right)

	switch base := left.(type) {
	case *ast.ArrayLiteral:
		if !idxIsLit {
			break
		}
		i, ok := idxLit.Int64()
		if !ok || i < 0 || int(i) >= len(base.Elements) {
			red.Report.Error(n.Pos, "array index %s out of bounds", idxLit.String())
			return nil
		}
		return base.Elements[i]
	case *ast.StringLiteral:
		if !idxIsLit {
			break
		}
		i, ok := idxLit.Int64()
		if !ok || i < 0 || int(i) >= len(base.Value) {
			red.Report.Error(n.Pos, "string index %s out of bounds", idxLit.String())
			return nil
		}
		out := &ast.IntegerLiteral{Value: int128.FromInt64(int64(base.Value[i]))}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	case *ast.TupleLiteral:
		if !idxIsLit {
			break
		}
		i, ok := idxLit.Int64()
		if !ok || i < 0 || int(i) >= len(base.Elements) {
			red.Report.Error(n.Pos, "tuple index %s out of bounds", idxLit.String())
			return nil
		}
		return base.Elements[i]
	}

	// Indexing into any other array- or pointer-typed value keeps the
	// index BinaryOperator as it is, typed with the element type and the
	// wider of the two operands' contexts; no address offset is computed
	// here.
	baseType := red.typeOf(left)
	var elemType *typeck.Type
	switch {
	case baseType != nil && baseType.Kind == typeck.KindArray:
		elemType = baseType.ArrayElement
	case baseType != nil && baseType.Kind == typeck.KindPointer:
		elemType = baseType.PointerElement
	default:
		red.Report.Error(n.Pos, "indexing requires an array or pointer operand")
		return nil
	}

	n.Left, n.Right = left, right
	ctx := widerContext(left, right)
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: elemType, Qualifiers: ast.ExprQualifiers{LValue: true}})
	return n
}

// reduceBitIndex implements spec.md 4.3 BitIndexing: returns a Bool.
func (red *Reducer) reduceBitIndex(n *ast.BinaryOperator, left, right ast.Expr) ast.Expr {
	lv, lok := asIntLiteral(left)
	rv, rok := asIntLiteral(right)
	if lok && rok {
		bit, _ := rv.Int64()
		result := !lv.Shr(uint(bit)).Mask(1).IsZero()
		return boolLiteral(n.Pos, result)
	}
	n.Left, n.Right = left, right
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.RunTime, Type: typeck.Bool, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceCast(n *ast.Cast, sc *scope.Scope) ast.Expr {
	value := red.Reduce(n.Value, sc, ast.RunTime)
	if value == nil {
		return nil
	}
	target := red.Types.Reduce(n.TypeExpr, sc)
	if target == nil {
		return nil
	}
	if lit, ok := value.(*ast.IntegerLiteral); ok && target.Kind == typeck.KindInteger {
		out := &ast.IntegerLiteral{Value: lit.Value.Mask(uint(target.IntSize) * 8)}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: target, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	if lit, ok := value.(*ast.BooleanLiteral); ok && target.Kind == typeck.KindInteger {
		v := int64(0)
		if lit.Value {
			v = 1
		}
		out := &ast.IntegerLiteral{Value: int128.FromInt64(v)}
		out.Pos = n.Pos
		out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: target, Qualifiers: ast.ExprQualifiers{Const: true}})
		return out
	}
	n.Value = value
	info := value.ExprInfo()
	ctx := ast.RunTime
	if info != nil {
		ctx = info.Context
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: target, Qualifiers: ast.ExprQualifiers{}})
	return n
}

func (red *Reducer) reduceEmbed(n *ast.Embed) ast.Expr {
	if red.Imports == nil {
		red.Report.Error(n.Pos, "embed is not available in this context")
		return nil
	}
	if cached, ok := red.embedCache[n.Path]; ok {
		return red.embedResult(n, cached)
	}
	data, canonical, err := red.Imports.ReadEmbed(n.Path)
	if err != nil {
		red.Report.Error(n.Pos, "could not embed '%s': %s", n.Path, err)
		return nil
	}
	red.embedCache[canonical] = data
	red.embedCache[n.Path] = data
	return red.embedResult(n, data)
}

func (red *Reducer) embedResult(n *ast.Embed, data []byte) ast.Expr {
	out := &ast.StringLiteral{Value: append([]byte(nil), data...)}
	out.Pos = n.Pos
	arrType := &typeck.Type{Kind: typeck.KindArray, ArrayElement: &typeck.Type{Kind: typeck.KindInteger, IntSize: 1, Name: "u8"}, ArrayHasLength: true, ArrayLength: len(data)}
	out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: arrType, Qualifiers: ast.ExprQualifiers{Const: true}})
	return out
}

func (red *Reducer) reduceFieldAccess(n *ast.FieldAccess, sc *scope.Scope) ast.Expr {
	value := red.Reduce(n.Value, sc, ast.RunTime)
	if value == nil {
		return nil
	}
	t := red.typeOf(value)
	if t == nil {
		red.Report.Error(n.Pos, "cannot access field '%s': value has no known type", n.Name)
		return nil
	}
	bare := t
	if t.Kind == typeck.KindDesignatedStorage {
		bare = t.StorageElement
	}
	switch bare.Kind {
	case typeck.KindStruct:
		structDef, _ := bare.Def.(*defs.Struct)
		if structDef == nil {
			red.Report.InternalError(n.Pos, "struct type missing its definition handle")
			return nil
		}
		var member *defs.StructMember
		for _, m := range structDef.Members {
			if m.DeclName() == n.Name {
				member = m
				break
			}
		}
		if member == nil {
			red.Report.Error(n.Pos, "'%s' has no member '%s'", structDef.DeclName(), n.Name)
			return nil
		}
		memberType, _ := member.ResolvedType.(*typeck.Type)
		n.Value = value
		info := value.ExprInfo()
		n.SetExprInfo(&ast.ExpressionInfo{Context: info.Context, Type: memberType, Qualifiers: info.Qualifiers})
		return n
	default:
		red.Report.Error(n.Pos, "'.%s' requires a struct or union value", n.Name)
		return nil
	}
}

func (red *Reducer) reduceArrayLiteral(n *ast.ArrayLiteral, sc *scope.Scope) ast.Expr {
	allCompileTime := true
	elems := make([]ast.Expr, len(n.Elements))
	var elemType *typeck.Type
	for i, e := range n.Elements {
		reduced := red.Reduce(e, sc, ast.RunTime)
		if reduced == nil {
			return nil
		}
		elems[i] = reduced
		if info := reduced.ExprInfo(); info == nil || info.Context != ast.CompileTime {
			allCompileTime = false
		}
		if elemType == nil {
			elemType = red.typeOf(reduced)
		}
	}
	n.Elements = elems
	ctx := ast.RunTime
	if allCompileTime {
		ctx = ast.CompileTime
	}
	arrType := &typeck.Type{Kind: typeck.KindArray, ArrayElement: elemType, ArrayHasLength: true, ArrayLength: len(elems)}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: arrType, Qualifiers: ast.ExprQualifiers{Const: allCompileTime}})
	return n
}

func (red *Reducer) reduceArrayPad(n *ast.ArrayPadLiteral, sc *scope.Scope) ast.Expr {
	value := red.Reduce(n.Value, sc, ast.CompileTime)
	count := red.Reduce(n.Count, sc, ast.CompileTime)
	if value == nil || count == nil {
		return nil
	}
	countLit, ok := count.(*ast.IntegerLiteral)
	if !ok {
		red.Report.Error(n.Pos, "array pad count must be a compile-time integer")
		return nil
	}
	n.Value, n.Count = value, countLit
	c, _ := countLit.Value.Int64()
	arrType := &typeck.Type{Kind: typeck.KindArray, ArrayElement: red.typeOf(value), ArrayHasLength: true, ArrayLength: int(c)}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: arrType, Qualifiers: ast.ExprQualifiers{Const: true}})
	return n
}

// reduceArrayComprehension implements spec.md 4.3: a compile-time
// sequence source; a throwaway Let bound to each element in turn.
func (red *Reducer) reduceArrayComprehension(n *ast.ArrayComprehension, sc *scope.Scope) ast.Expr {
	seq := red.Reduce(n.Sequence, sc, ast.CompileTime)
	if seq == nil {
		return nil
	}
	items, ok := literalSequenceItems(seq)
	if !ok {
		red.Report.Error(n.Pos, "array comprehension requires a compile-time sequence")
		return nil
	}
	elems := make([]ast.Expr, 0, len(items))
	var firstType *typeck.Type
	for _, item := range items {
		inner := scope.New("$comprehension", sc)
		binding := defs.NewLet(n.Name, nil, item, n.Pos)
		if err := inner.CreateDefinition(n.Name, binding); err != nil {
			red.Report.Error(n.Pos, "%s", err)
			return nil
		}
		reduced := red.Reduce(n.Body, inner, ast.CompileTime)
		if reduced == nil {
			return nil
		}
		if firstType == nil {
			firstType = red.typeOf(reduced)
		} else {
			reduced = red.narrowOrError(n.Pos, reduced, firstType)
			if reduced == nil {
				return nil
			}
		}
		elems = append(elems, reduced)
	}
	out := &ast.ArrayLiteral{Elements: elems}
	out.Pos = n.Pos
	arrType := &typeck.Type{Kind: typeck.KindArray, ArrayElement: firstType, ArrayHasLength: true, ArrayLength: len(elems)}
	out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: arrType, Qualifiers: ast.ExprQualifiers{Const: true}})
	return out
}

// LiteralSequenceItems exposes literalSequenceItems for collaborators
// outside this package (internal/cflow unrolls `inline for` over the
// same compile-time sequence shapes array comprehensions accept).
func LiteralSequenceItems(seq ast.Expr) ([]ast.Expr, bool) {
	return literalSequenceItems(seq)
}

func literalSequenceItems(seq ast.Expr) ([]ast.Expr, bool) {
	switch s := seq.(type) {
	case *ast.ArrayLiteral:
		return s.Elements, true
	case *ast.TupleLiteral:
		return s.Elements, true
	case *ast.RangeLiteral:
		start, sok := s.Start.(*ast.IntegerLiteral)
		end, eok := s.End.(*ast.IntegerLiteral)
		if !sok || !eok {
			return nil, false
		}
		step := int128.FromInt64(1)
		if s.Step != nil {
			stepLit, ok := s.Step.(*ast.IntegerLiteral)
			if !ok {
				return nil, false
			}
			step = stepLit.Value
		}
		var items []ast.Expr
		for v := start.Value; ; {
			if step.Sign() > 0 && v.Cmp(end.Value) >= 0 {
				break
			}
			if step.Sign() < 0 && v.Cmp(end.Value) <= 0 {
				break
			}
			item := &ast.IntegerLiteral{Value: v}
			item.Pos = start.Pos
			item.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Qualifiers: ast.ExprQualifiers{Const: true}})
			items = append(items, item)
			v = v.Add(step)
		}
		return items, true
	default:
		return nil, false
	}
}

func (red *Reducer) reduceStructLiteral(n *ast.StructLiteral, sc *scope.Scope) ast.Expr {
	target := red.Types.Reduce(n.TypeExpr, sc)
	if target == nil {
		return nil
	}
	allCompileTime := true
	for _, f := range n.Fields {
		reduced := red.Reduce(f.Value, sc, ast.RunTime)
		if reduced == nil {
			return nil
		}
		f.Value = reduced
		if info := reduced.ExprInfo(); info == nil || info.Context != ast.CompileTime {
			allCompileTime = false
		}
	}
	ctx := ast.RunTime
	if allCompileTime {
		ctx = ast.CompileTime
	}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: target, Qualifiers: ast.ExprQualifiers{Const: allCompileTime}})
	return n
}

func (red *Reducer) reduceTupleLiteral(n *ast.TupleLiteral, sc *scope.Scope) ast.Expr {
	elems := make([]ast.Expr, len(n.Elements))
	types := make([]*typeck.Type, len(n.Elements))
	allCompileTime := true
	for i, e := range n.Elements {
		reduced := red.Reduce(e, sc, ast.RunTime)
		if reduced == nil {
			return nil
		}
		elems[i] = reduced
		types[i] = red.typeOf(reduced)
		if info := reduced.ExprInfo(); info == nil || info.Context != ast.CompileTime {
			allCompileTime = false
		}
	}
	n.Elements = elems
	ctx := ast.RunTime
	if allCompileTime {
		ctx = ast.CompileTime
	}
	handles := make([]*typeck.Type, len(types))
	copy(handles, types)
	tupleType := &typeck.Type{Kind: typeck.KindTuple, TupleElements: handles}
	n.SetExprInfo(&ast.ExpressionInfo{Context: ctx, Type: tupleType, Qualifiers: ast.ExprQualifiers{Const: allCompileTime}})
	return n
}

// reduceRangeLiteral implements spec.md 4.3: all three of start, end,
// step must be compile-time integer literals; step != 0.
func (red *Reducer) reduceRangeLiteral(n *ast.RangeLiteral, sc *scope.Scope) ast.Expr {
	start := red.Reduce(n.Start, sc, ast.CompileTime)
	end := red.Reduce(n.End, sc, ast.CompileTime)
	if start == nil || end == nil {
		return nil
	}
	if _, ok := start.(*ast.IntegerLiteral); !ok {
		red.Report.Error(n.Pos, "range start must be a compile-time integer literal")
		return nil
	}
	if _, ok := end.(*ast.IntegerLiteral); !ok {
		red.Report.Error(n.Pos, "range end must be a compile-time integer literal")
		return nil
	}
	var step ast.Expr
	if n.Step != nil {
		step = red.Reduce(n.Step, sc, ast.CompileTime)
		if step == nil {
			return nil
		}
		stepLit, ok := step.(*ast.IntegerLiteral)
		if !ok {
			red.Report.Error(n.Pos, "range step must be a compile-time integer literal")
			return nil
		}
		if stepLit.Value.IsZero() {
			red.Report.Error(n.Pos, "range step cannot be zero")
			return nil
		}
	}
	n.Start, n.End, n.Step = start, end, step
	n.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: typeck.Range, Qualifiers: ast.ExprQualifiers{Const: true}})
	return n
}

// reduceOffsetOf implements spec.md 4.3 OffsetOf: struct member offset
// from phase 2.
func (red *Reducer) reduceOffsetOf(n *ast.OffsetOf, sc *scope.Scope) ast.Expr {
	t := red.Types.Reduce(n.TypeExpr, sc)
	if t == nil {
		return nil
	}
	if t.Kind != typeck.KindStruct {
		red.Report.Error(n.Pos, "offsetof requires a struct type")
		return nil
	}
	structDef, _ := t.Def.(*defs.Struct)
	var member *defs.StructMember
	for _, m := range structDef.Members {
		if m.DeclName() == n.Member {
			member = m
			break
		}
	}
	if member == nil {
		red.Report.Error(n.Pos, "'%s' has no member '%s'", structDef.DeclName(), n.Member)
		return nil
	}
	offset, ok := member.Offset.Get()
	if !ok {
		red.Report.Error(n.Pos, "member '%s' offset is not yet known", n.Member)
		return nil
	}
	out := &ast.IntegerLiteral{Value: int128.FromInt64(int64(offset))}
	out.Pos = n.Pos
	out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: typeck.IExpr, Qualifiers: ast.ExprQualifiers{Const: true}})
	return out
}

func (red *Reducer) reduceTypeOf(n *ast.TypeOf, sc *scope.Scope) ast.Expr {
	value := red.Reduce(n.Value, sc, ast.RunTime)
	if value == nil {
		return nil
	}
	n.Value = value
	n.SetExprInfo(value.ExprInfo())
	return n
}

// reduceTypeQuery implements sizeof (storage size) and rejects alignof
// with a clear diagnostic (Wiz has no alignment concept; see DESIGN.md's
// Open Question decision).
func (red *Reducer) reduceTypeQuery(n *ast.TypeQuery, sc *scope.Scope) ast.Expr {
	if n.Kind == ast.QueryAlignOf {
		red.Report.Error(n.Pos, "alignof is not supported: types have no alignment on this platform family")
		return nil
	}
	t := red.Types.Reduce(n.TypeExpr, sc)
	if t == nil {
		return nil
	}
	size, ok := t.StorageSize()
	if !ok {
		red.Report.Error(n.Pos, "sizeof requires a type with a known storage size")
		return nil
	}
	out := &ast.IntegerLiteral{Value: int128.FromInt64(int64(size))}
	out.Pos = n.Pos
	out.SetExprInfo(&ast.ExpressionInfo{Context: ast.CompileTime, Type: typeck.IExpr, Qualifiers: ast.ExprQualifiers{Const: true}})
	return out
}
