package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/lexer"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/report"
)

func pos(p lexer.Position) report.Position {
	return report.Position{Filename: p.Filename, Line: p.Line, Column: p.Column, Offset: p.Offset}
}

// node builds the embedded Node value a Statement/TypeExpr literal sets
// under the keyed field name "Node" (the type name, since it's embedded
// and exported).
func node(p report.Position) ast.Node { return ast.NewNode(p) }

// binding power table for the flat binTail list. Higher binds tighter.
// Grounded on spec.md 4.3's precedence ladder; replaces the external
// `yard` shunting-yard process the teacher shelled out to for the same
// job (asm_shunting_yard.go, already dropped per DESIGN.md).
var precedence = map[string]int{
	"||": 1, "&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3,
	"..": 4, "by": 4,
	"|": 5, "^": 6, "&": 7,
	"<<": 8, ">>": 8, "<<>": 8, "<<<": 8,
	"+": 9, "-": 9, "~": 9,
	"*": 10, "/": 10, "%": 10,
	"=": 0,
}

var binaryOpKind = map[string]ast.BinaryOp{
	"=": ast.OpAssign, "+": ast.OpAdd, "-": ast.OpSub, "*": ast.OpMul,
	"/": ast.OpDiv, "%": ast.OpMod, "<<": ast.OpShl, ">>": ast.OpShr,
	"&": ast.OpBitAnd, "|": ast.OpBitOr, "^": ast.OpBitXor,
	"<<>": ast.OpRotate, "<<<": ast.OpLogicalRotate, "~": ast.OpConcat,
	"==": ast.OpEq, "!=": ast.OpNe, "<": ast.OpLt, "<=": ast.OpLe,
	">": ast.OpGt, ">=": ast.OpGe, "&&": ast.OpLogicalAnd, "||": ast.OpLogicalOr,
}

// exprToAST runs precedence climbing over e's flat (head, tail...)
// representation, producing the nested ast.Expr tree a recursive-descent
// grammar would have built directly had participle supported
// left-recursive precedence levels.
//
// Expr nodes embed ast's unexported exprBase (it carries the lazily
// attached ExpressionInfo), so this package can never set an expression
// node's position the way it sets a statement's — every Expr literal
// below is keyed and leaves that field at its zero value, same as
// internal/exprred and internal/cflow already do when synthesizing
// expression nodes of their own.
func exprToAST(e *expr) (ast.Expr, error) {
	head, err := unaryToAST(e.Head)
	if err != nil {
		return nil, err
	}
	if len(e.Tail) == 0 {
		return head, nil
	}
	result, rest, err := climb(head, e.Tail, 0)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%s: unexpected trailing operator %q", pos(e.Pos), rest[0].Op)
	}
	return result, nil
}

// climb consumes tail while each operator's binding power is >= minBP,
// returning the built tree and whatever of tail it didn't consume.
func climb(left ast.Expr, tail []*binTail, minBP int) (ast.Expr, []*binTail, error) {
	for len(tail) > 0 {
		op := tail[0].Op
		bp := precedence[op]
		if bp < minBP {
			break
		}
		right, err := unaryToAST(tail[0].Right)
		if err != nil {
			return nil, nil, err
		}
		rest := tail[1:]
		for len(rest) > 0 && precedence[rest[0].Op] > bp {
			right, rest, err = climb(right, rest, precedence[rest[0].Op])
			if err != nil {
				return nil, nil, err
			}
		}
		if op == ".." || op == "by" {
			if op == "by" {
				if rl, ok := left.(*ast.RangeLiteral); ok {
					rl.Step = right
					tail = rest
					continue
				}
			}
			left = &ast.RangeLiteral{Start: left, End: right}
		} else {
			kind, ok := binaryOpKind[op]
			if !ok {
				return nil, nil, fmt.Errorf("unknown operator %q", op)
			}
			left = &ast.BinaryOperator{Op: kind, Left: left, Right: right}
		}
		tail = rest
	}
	return left, tail, nil
}

var prefixUnaryOp = map[string]ast.UnaryOp{
	"-": ast.OpNegate, "~": ast.OpBitNot, "!": ast.OpLogicalNegation,
	"*": ast.OpIndirection, "&": ast.OpAddressOf, "++": ast.OpPreIncrement,
	"--": ast.OpPreDecrement, "<:": ast.OpLowByte, ">:": ast.OpHighByte,
	"#:": ast.OpBankByte, "@": ast.OpAddressReserve,
}

func unaryToAST(u *unaryExpr) (ast.Expr, error) {
	operand, err := postfixToAST(u.Postfix)
	if err != nil {
		return nil, err
	}
	prefix := u.Prefix
	for i := len(prefix) - 1; i >= 0; i-- {
		tok := prefix[i]
		if tok == "far" {
			// far only ever appears fused to a preceding "&"; the
			// fused pair becomes one OpFarAddressOf node.
			if i == 0 || prefix[i-1] != "&" {
				return nil, fmt.Errorf("%s: 'far' must follow '&' in an expression", pos(u.Pos))
			}
			operand = &ast.UnaryOperator{Op: ast.OpFarAddressOf, Operand: operand}
			i--
			continue
		}
		op, ok := prefixUnaryOp[tok]
		if !ok {
			return nil, fmt.Errorf("%s: unknown prefix operator %q", pos(u.Pos), tok)
		}
		operand = &ast.UnaryOperator{Op: op, Operand: operand}
	}
	return operand, nil
}

func postfixToAST(pe *postfixExpr) (ast.Expr, error) {
	e, err := primaryToAST(pe.Primary)
	if err != nil {
		return nil, err
	}
	for _, op := range pe.Ops {
		switch {
		case op.Field != nil:
			e = &ast.FieldAccess{Value: e, Name: *op.Field}
		case op.Index != nil:
			idx, err := exprToAST(op.Index)
			if err != nil {
				return nil, err
			}
			e = &ast.BinaryOperator{Op: ast.OpIndex, Left: e, Right: idx}
		case op.BitIndex != nil:
			idx, err := exprToAST(op.BitIndex)
			if err != nil {
				return nil, err
			}
			e = &ast.BinaryOperator{Op: ast.OpBitIndex, Left: e, Right: idx}
		case op.Call != nil:
			args, err := argsToAST(op.Call)
			if err != nil {
				return nil, err
			}
			e = &ast.Call{Function: e, Args: args}
		case op.As != nil:
			t, err := typeExprToAST(op.As)
			if err != nil {
				return nil, err
			}
			e = &ast.Cast{Value: e, TypeExpr: t}
		case op.PostIncr:
			e = &ast.UnaryOperator{Op: ast.OpPostIncrement, Operand: e}
		case op.PostDecr:
			e = &ast.UnaryOperator{Op: ast.OpPostDecrement, Operand: e}
		}
	}
	return e, nil
}

func argsToAST(a *argList) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(a.Args))
	for _, e := range a.Args {
		v, err := exprToAST(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func primaryToAST(pr *primaryExpr) (ast.Expr, error) {
	p := pos(pr.Pos)
	switch {
	case pr.Number != nil:
		return integerLiteral(p, *pr.Number, pr.Suffix)
	case pr.Bool != nil:
		return &ast.BooleanLiteral{Value: *pr.Bool == "true"}, nil
	case pr.Str != nil:
		return &ast.StringLiteral{Value: []byte(unquoteString(*pr.Str))}, nil
	case pr.Embed != nil:
		return &ast.Embed{Path: unquoteString(*pr.Embed)}, nil
	case pr.TypeOfE != nil:
		v, err := exprToAST(pr.TypeOfE)
		if err != nil {
			return nil, err
		}
		return &ast.TypeOf{Value: v}, nil
	case pr.SizeOf != nil:
		return sizeQueryToAST(pr.SizeOf)
	case pr.OffsetOf != nil:
		return offsetOfToAST(pr.OffsetOf)
	case pr.Brackets != nil:
		return bracketsToAST(pr.Brackets)
	case pr.Tuple != nil:
		return tupleOrParenToAST(pr.Tuple)
	case pr.Ident != nil:
		return &ast.Identifier{Pieces: pr.Ident.Pieces}, nil
	}
	return nil, fmt.Errorf("%s: empty primary expression", p)
}

func integerLiteral(p report.Position, text string, suffix *string) (ast.Expr, error) {
	base := 10
	digits := text
	switch {
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base, digits = 16, text[2:]
	case strings.HasPrefix(text, "0b"), strings.HasPrefix(text, "0B"):
		base, digits = 2, text[2:]
	}
	digits = strings.ReplaceAll(digits, "_", "")
	v, ok := int128.FromString(digits, base)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer literal %q", p, text)
	}
	s := ""
	if suffix != nil {
		s = *suffix
	}
	return &ast.IntegerLiteral{Value: v, Suffix: s}, nil
}

func unquoteString(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

func sizeQueryToAST(s *sizeQueryG) (ast.Expr, error) {
	t, err := typeExprToAST(s.Type)
	if err != nil {
		return nil, err
	}
	kind := ast.QuerySizeOf
	if s.Kind == "alignof" {
		kind = ast.QueryAlignOf
	}
	return &ast.TypeQuery{Kind: kind, TypeExpr: t}, nil
}

func offsetOfToAST(o *offsetOfG) (ast.Expr, error) {
	t, err := typeExprToAST(o.Type)
	if err != nil {
		return nil, err
	}
	return &ast.OffsetOf{TypeExpr: t, Member: o.Member}, nil
}

func bracketsToAST(b *bracketBody) (ast.Expr, error) {
	switch {
	case b.Pad != nil:
		v, err := exprToAST(b.Pad.Value)
		if err != nil {
			return nil, err
		}
		c, err := exprToAST(b.Pad.Count)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayPadLiteral{Value: v, Count: c}, nil
	case b.Comp != nil:
		body, err := exprToAST(b.Comp.Body)
		if err != nil {
			return nil, err
		}
		seq, err := exprToAST(b.Comp.Seq)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayComprehension{Name: b.Comp.Name, Sequence: seq, Body: body}, nil
	case b.List != nil:
		elems, err := listElemsToAST(b.List)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLiteral{Elements: elems}, nil
	}
	return &ast.ArrayLiteral{}, nil
}

func listElemsToAST(l *listBody) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(l.Elems))
	for _, e := range l.Elems {
		v, err := exprToAST(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// tupleOrParenToAST disambiguates `(expr)` from `(e0, e1, ...)`: a
// single element with no trailing comma is a plain grouping (returned
// unwrapped, since grouping carries no AST node of its own), everything
// else becomes a TupleLiteral.
func tupleOrParenToAST(l *listBody) (ast.Expr, error) {
	elems, err := listElemsToAST(l)
	if err != nil {
		return nil, err
	}
	if len(elems) == 1 && !l.Trailing {
		return elems[0], nil
	}
	return &ast.TupleLiteral{Elements: elems}, nil
}

// ---------------------------------------------------------------------
// Type expressions
//
// Unlike Expr, TypeExpr nodes embed ast.Node directly (not the
// unexported exprBase), so position is set here via the keyed "Node"
// field on every literal below.
// ---------------------------------------------------------------------

func typeExprToAST(t *typeExpr) (ast.TypeExpr, error) {
	p := pos(t.Pos)
	var result ast.TypeExpr
	var err error
	switch {
	case t.Array != nil:
		result, err = arrayTypeToAST(t.Array)
	case t.Pointer != nil:
		result, err = pointerTypeToAST(t.Pointer)
	case t.FuncT != nil:
		result, err = funcTypeToAST(t.FuncT)
	case t.Tuple != nil:
		result, err = tupleTypeToAST(t.Tuple)
	case t.TypeOfE != nil:
		var v ast.Expr
		v, err = exprToAST(t.TypeOfE)
		if err == nil {
			result = &ast.TypeOfType{Node: node(p), Expr: v}
		}
	case t.Ident != nil:
		result = &ast.IdentifierType{Node: node(p), Pieces: t.Ident.Pieces}
	default:
		return nil, fmt.Errorf("%s: empty type expression", p)
	}
	if err != nil {
		return nil, err
	}
	if t.Holder != nil {
		holder, err := exprToAST(t.Holder)
		if err != nil {
			return nil, err
		}
		result = &ast.DesignatedStorageType{Node: node(p), Element: result, Holder: holder}
	}
	return result, nil
}

func arrayTypeToAST(a *arrayTypeG) (ast.TypeExpr, error) {
	elem, err := typeExprToAST(a.Element)
	if err != nil {
		return nil, err
	}
	var size ast.Expr
	if a.Size != nil {
		size, err = exprToAST(a.Size)
		if err != nil {
			return nil, err
		}
	}
	return &ast.ArrayType{Node: node(pos(a.Pos)), Element: elem, SizeExpr: size}, nil
}

func pointerTypeToAST(pt *pointerTypeG) (ast.TypeExpr, error) {
	elem, err := typeExprToAST(pt.Element)
	if err != nil {
		return nil, err
	}
	return &ast.PointerType{
		Node:       node(pos(pt.Pos)),
		Element:    elem,
		Qualifiers: ast.PointerQualifiers{Const: pt.Const, WriteOnly: pt.WriteOnly, Far: pt.Far},
	}, nil
}

func funcTypeToAST(ft *funcTypeG) (ast.TypeExpr, error) {
	params := make([]ast.TypeExpr, 0, len(ft.Params))
	for _, p := range ft.Params {
		t, err := typeExprToAST(p)
		if err != nil {
			return nil, err
		}
		params = append(params, t)
	}
	var ret ast.TypeExpr
	if ft.Ret != nil {
		var err error
		ret, err = typeExprToAST(ft.Ret)
		if err != nil {
			return nil, err
		}
	}
	return &ast.FunctionType{Node: node(pos(ft.Pos)), Far: ft.Far, ParamTypes: params, ReturnType: ret}, nil
}

func tupleTypeToAST(tt *tupleTypeG) (ast.TypeExpr, error) {
	elems := make([]ast.TypeExpr, 0, len(tt.Elements))
	for _, e := range tt.Elements {
		t, err := typeExprToAST(e)
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
	}
	return &ast.TupleType{Node: node(pos(tt.Pos)), Elements: elems}, nil
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func itemsToAST(items []*itemG) ([]ast.Statement, error) {
	out := make([]ast.Statement, 0, len(items))
	for _, it := range items {
		s, err := itemToAST(it)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func itemToAST(it *itemG) (ast.Statement, error) {
	stmt, err := itemBodyToAST(it)
	if err != nil {
		return nil, err
	}
	if len(it.Attrs) == 0 {
		return stmt, nil
	}
	attrs := make([]*ast.Attribute, 0, len(it.Attrs))
	for _, a := range it.Attrs {
		args, err := argsFromExprs(a.Args)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, &ast.Attribute{Node: node(pos(a.Pos)), Name: a.Name, Args: args})
	}
	return &ast.Attribution{Node: node(pos(it.Pos)), Attributes: attrs, Body: stmt}, nil
}

func argsFromExprs(es []*expr) ([]ast.Expr, error) {
	out := make([]ast.Expr, 0, len(es))
	for _, e := range es {
		v, err := exprToAST(e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func itemBodyToAST(it *itemG) (ast.Statement, error) {
	switch {
	case it.Bank != nil:
		return bankToAST(it.Bank)
	case it.Var != nil:
		return varToAST(it.Var)
	case it.Let != nil:
		return letToAST(it.Let)
	case it.Func != nil:
		return funcToAST(it.Func)
	case it.Struct != nil:
		return structToAST(it.Struct)
	case it.Enum != nil:
		return enumToAST(it.Enum)
	case it.Namespace != nil:
		return namespaceToAST(it.Namespace)
	case it.TypeAlias != nil:
		return typeAliasToAST(it.TypeAlias)
	case it.Import != nil:
		return &ast.ImportReference{Node: node(pos(it.Import.Pos)), ExpandedPath: unquoteString(it.Import.Path)}, nil
	case it.In != nil:
		return inToAST(it.In)
	case it.Config != nil:
		v, err := exprToAST(it.Config.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Config{Node: node(pos(it.Config.Pos)), Key: it.Config.Key, Value: v}, nil
	case it.Block != nil:
		body, err := itemsToAST(it.Block.Body)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Node: node(pos(it.Block.Pos)), Body: body}, nil
	case it.If != nil:
		return ifToAST(it.If)
	case it.While != nil:
		return whileToAST(it.While)
	case it.DoWhile != nil:
		return doWhileToAST(it.DoWhile)
	case it.For != nil:
		return forToAST(it.For)
	case it.InlineFor != nil:
		return inlineForToAST(it.InlineFor)
	case it.Branch != nil:
		return branchToAST(it.Branch)
	case it.Label != nil:
		return &ast.Label{Node: node(pos(it.Label.Pos)), Name: it.Label.Name, Far: it.Label.Far}, nil
	case it.ExprStmt != nil:
		v, err := exprToAST(it.ExprStmt.Expr)
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Node: node(pos(it.ExprStmt.Pos)), Expr: v}, nil
	}
	return nil, fmt.Errorf("empty grammar item")
}

func bankToAST(b *bankG) (ast.Statement, error) {
	var addr ast.Expr
	var err error
	if b.Addr != nil {
		addr, err = exprToAST(b.Addr)
		if err != nil {
			return nil, err
		}
	}
	var t ast.TypeExpr
	if b.Type != nil {
		t, err = typeExprToAST(b.Type)
		if err != nil {
			return nil, err
		}
	}
	return &ast.Bank{Node: node(pos(b.Pos)), Names: b.Names, AddressExpr: addr, TypeExpr: t}, nil
}

func varToAST(v *varG) (ast.Statement, error) {
	quals := ast.VarQualifiers{LValue: true}
	for _, q := range v.Quals {
		switch q {
		case "extern":
			quals.Extern = true
		case "writeonly":
			quals.WriteOnly = true
			quals.LValue = false
		case "far":
			quals.Far = true
		}
	}
	if v.Kw == "const" {
		quals.Const = true
	}
	names := make([]string, 0, len(v.Names))
	addrs := make([]ast.Expr, 0, len(v.Names))
	for _, n := range v.Names {
		names = append(names, n.Name)
		if n.Addr != nil {
			a, err := exprToAST(n.Addr)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, a)
		} else {
			addrs = append(addrs, nil)
		}
	}
	var t ast.TypeExpr
	var err error
	if v.Type != nil {
		t, err = typeExprToAST(v.Type)
		if err != nil {
			return nil, err
		}
	}
	var value ast.Expr
	if v.Value != nil {
		value, err = exprToAST(v.Value)
		if err != nil {
			return nil, err
		}
	}
	return &ast.Var{Node: node(pos(v.Pos)), Qualifiers: quals, Names: names, Addresses: addrs, TypeExpr: t, Value: value}, nil
}

func letToAST(l *letG) (ast.Statement, error) {
	v, err := exprToAST(l.Value)
	if err != nil {
		return nil, err
	}
	return &ast.Let{Node: node(pos(l.Pos)), Name: l.Name, Parameters: l.Params, Value: v}, nil
}

func funcToAST(f *funcG) (ast.Statement, error) {
	params := make([]*ast.FuncParam, 0, len(f.Params))
	for _, p := range f.Params {
		t, err := typeExprToAST(p.Type)
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.FuncParam{Node: node(pos(f.Pos)), Name: p.Name, TypeExpr: t})
	}
	var ret ast.TypeExpr
	var err error
	if f.Ret != nil {
		ret, err = typeExprToAST(f.Ret)
		if err != nil {
			return nil, err
		}
	}
	body, err := itemsToAST(f.Body)
	if err != nil {
		return nil, err
	}
	return &ast.Func{
		Node: node(pos(f.Pos)), Name: f.Name, Far: f.Far, Inlined: f.Inline,
		Parameters: params, ReturnTypeExpr: ret, Body: body,
	}, nil
}

func structToAST(s *structG) (ast.Statement, error) {
	kind := ast.StructKindStruct
	if s.Kw == "union" {
		kind = ast.StructKindUnion
	}
	members := make([]*ast.StructMemberDecl, 0, len(s.Members))
	for _, m := range s.Members {
		t, err := typeExprToAST(m.Type)
		if err != nil {
			return nil, err
		}
		members = append(members, &ast.StructMemberDecl{Node: node(pos(s.Pos)), Name: m.Name, TypeExpr: t})
	}
	return &ast.Struct{Node: node(pos(s.Pos)), Kind: kind, Name: s.Name, Items: members}, nil
}

func enumToAST(e *enumG) (ast.Statement, error) {
	var underlying ast.TypeExpr
	var err error
	if e.Underlying != nil {
		underlying, err = typeExprToAST(e.Underlying)
		if err != nil {
			return nil, err
		}
	}
	members := make([]*ast.EnumMemberDecl, 0, len(e.Members))
	for _, m := range e.Members {
		var base ast.Expr
		if m.Base != nil {
			base, err = exprToAST(m.Base)
			if err != nil {
				return nil, err
			}
		}
		members = append(members, &ast.EnumMemberDecl{Node: node(pos(e.Pos)), Name: m.Name, BaseExpr: base})
	}
	return &ast.Enum{Node: node(pos(e.Pos)), Name: e.Name, UnderlyingTypeExpr: underlying, Members: members}, nil
}

func namespaceToAST(n *namespaceG) (ast.Statement, error) {
	body, err := itemsToAST(n.Body)
	if err != nil {
		return nil, err
	}
	return &ast.Namespace{Node: node(pos(n.Pos)), Name: n.Name, Body: body}, nil
}

func typeAliasToAST(t *typeAliasG) (ast.Statement, error) {
	te, err := typeExprToAST(t.Type)
	if err != nil {
		return nil, err
	}
	return &ast.TypeAlias{Node: node(pos(t.Pos)), Name: t.Name, TypeExpr: te}, nil
}

func inToAST(in *inG) (ast.Statement, error) {
	var dest ast.Expr
	var err error
	if in.Dest != nil {
		dest, err = exprToAST(in.Dest)
		if err != nil {
			return nil, err
		}
	}
	body, err := itemsToAST(in.Body)
	if err != nil {
		return nil, err
	}
	return &ast.In{Node: node(pos(in.Pos)), Banks: in.Banks, Dest: dest, Body: body}, nil
}

func hintString(h string) string {
	if h == "" {
		return "unspecified"
	}
	return h
}

func ifToAST(i *ifG) (ast.Statement, error) {
	cond, err := exprToAST(i.Cond)
	if err != nil {
		return nil, err
	}
	body, err := itemsToAST(i.Body)
	if err != nil {
		return nil, err
	}
	var alt []ast.Statement
	if i.Else != nil {
		alt, err = itemsToAST(i.Else)
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{Node: node(pos(i.Pos)), Condition: cond, Body: body, Alternative: alt, DistanceHint: hintString(i.Hint)}, nil
}

func whileToAST(w *whileG) (ast.Statement, error) {
	cond, err := exprToAST(w.Cond)
	if err != nil {
		return nil, err
	}
	body, err := itemsToAST(w.Body)
	if err != nil {
		return nil, err
	}
	return &ast.While{Node: node(pos(w.Pos)), Condition: cond, Body: body, DistanceHint: hintString(w.Hint)}, nil
}

func doWhileToAST(d *doWhileG) (ast.Statement, error) {
	body, err := itemsToAST(d.Body)
	if err != nil {
		return nil, err
	}
	cond, err := exprToAST(d.Cond)
	if err != nil {
		return nil, err
	}
	return &ast.DoWhile{Node: node(pos(d.Pos)), Body: body, Condition: cond, DistanceHint: hintString(d.Hint)}, nil
}

func forToAST(f *forG) (ast.Statement, error) {
	seq, err := exprToAST(f.Seq)
	if err != nil {
		return nil, err
	}
	body, err := itemsToAST(f.Body)
	if err != nil {
		return nil, err
	}
	return &ast.For{Node: node(pos(f.Pos)), CounterName: f.Name, Sequence: seq, Body: body, DistanceHint: hintString(f.Hint)}, nil
}

func inlineForToAST(f *inlineForG) (ast.Statement, error) {
	seq, err := exprToAST(f.Seq)
	if err != nil {
		return nil, err
	}
	body, err := itemsToAST(f.Body)
	if err != nil {
		return nil, err
	}
	return &ast.InlineFor{Node: node(pos(f.Pos)), Name: f.Name, Sequence: seq, Body: body}, nil
}

func branchToAST(b *branchG) (ast.Statement, error) {
	var kind ast.BranchKind
	var dest string
	var retVal ast.Expr
	var err error
	switch {
	case b.Ret != nil:
		kind = ast.BranchReturn
		if b.Ret.Far {
			kind = ast.BranchFarReturn
		}
		if b.Ret.Value != nil {
			retVal, err = exprToAST(b.Ret.Value)
			if err != nil {
				return nil, err
			}
		}
	case b.Brk:
		kind = ast.BranchBreak
	case b.Cont:
		kind = ast.BranchContinue
	case b.Jump != nil:
		dest = b.Jump.Dest
		switch b.Jump.Kw {
		case "goto":
			kind = ast.BranchGoto
			if b.Jump.Far {
				kind = ast.BranchFarGoto
			}
		case "call":
			kind = ast.BranchCall
			if b.Jump.Far {
				kind = ast.BranchFarCall
			}
		}
	}
	var when ast.Expr
	if b.When != nil {
		when, err = exprToAST(b.When)
		if err != nil {
			return nil, err
		}
	}
	return &ast.Branch{
		Node: node(pos(b.Pos)), Kind: kind, Destination: dest,
		ReturnValue: retVal, Condition: when, DistanceHint: "unspecified",
	}, nil
}

// fileToAST assembles a parsed top-level item list into an ast.File.
func fileToAST(path string, f *fileG) (*ast.File, error) {
	items, err := itemsToAST(f.Items)
	if err != nil {
		return nil, err
	}
	return &ast.File{Node: node(report.Position{Filename: path}), Path: path, Items: items}, nil
}
