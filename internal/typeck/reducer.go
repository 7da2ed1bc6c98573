package typeck

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

// ExprReducer is the narrow slice of internal/exprred.Reducer that
// TypeReducer needs (reducing array-size expressions, DesignatedStorage
// holders) without creating an import cycle between typeck and exprred
// (exprred itself calls back into typeck for expression types).
type ExprReducer interface {
	ReduceCompileTimeInt(e ast.Expr, sc *scope.Scope) (int, bool)
	ReduceForTypeCheck(e ast.Expr, sc *scope.Scope) ast.Expr
}

// Reducer implements spec.md 4.2.
type Reducer struct {
	Report *report.Report
	Expr   ExprReducer

	// cache avoids re-reducing the same *ast type-expression pointer
	// twice; canonicalization is otherwise pure given a fixed scope.
	cache map[ast.TypeExpr]*Type
}

// NewReducer constructs a Reducer. Expr may be nil until wired by the
// PhaseDriver (array sizes / designated-storage holders that are simple
// integer literals still reduce without it).
func NewReducer(r *report.Report, e ExprReducer) *Reducer {
	return &Reducer{Report: r, Expr: e, cache: map[ast.TypeExpr]*Type{}}
}

// Reduce canonicalizes te to a *Type, resolving identifiers against sc.
// Returns nil on unrecoverable error (already reported).
func (r *Reducer) Reduce(te ast.TypeExpr, sc *scope.Scope) *Type {
	if te == nil {
		return &Type{Kind: KindVoid, Name: "void"}
	}
	if cached, ok := r.cache[te]; ok {
		return cached
	}
	t := r.reduceUncached(te, sc)
	if t != nil {
		r.cache[te] = t
	}
	return t
}

func (r *Reducer) reduceUncached(te ast.TypeExpr, sc *scope.Scope) *Type {
	switch n := te.(type) {
	case *ast.ArrayType:
		elem := r.Reduce(n.Element, sc)
		if elem == nil {
			return nil
		}
		out := &Type{Kind: KindArray, ArrayElement: elem}
		if n.SizeExpr != nil {
			if r.Expr == nil {
				r.Report.Error(n.Pos, "array size cannot be evaluated in this context")
				return nil
			}
			size, ok := r.Expr.ReduceCompileTimeInt(n.SizeExpr, sc)
			if !ok {
				r.Report.Error(n.SizeExpr.Position(), "array size must be a non-negative compile-time integer literal")
				return nil
			}
			if size < 0 {
				r.Report.Error(n.SizeExpr.Position(), "array size cannot be negative")
				return nil
			}
			out.ArrayHasLength = true
			out.ArrayLength = size
		}
		return out

	case *ast.PointerType:
		elem := r.Reduce(n.Element, sc)
		if elem == nil {
			return nil
		}
		return &Type{
			Kind:           KindPointer,
			PointerElement: elem,
			PointerQuals:   n.Qualifiers,
			PointerIsFar:   n.Qualifiers.Far,
		}

	case *ast.FunctionType:
		params := make([]TypeExprHandle, 0, len(n.ParamTypes))
		for _, p := range n.ParamTypes {
			pt := r.Reduce(p, sc)
			if pt == nil {
				return nil
			}
			params = append(params, pt)
		}
		var ret TypeExprHandle
		if n.ReturnType != nil {
			ret = r.Reduce(n.ReturnType, sc)
			if ret == nil {
				return nil
			}
		}
		return &Type{Kind: KindFunction, FuncFar: n.Far, FuncParams: params, FuncReturn: ret}

	case *ast.TupleType:
		elems := make([]TypeExprHandle, 0, len(n.Elements))
		for _, e := range n.Elements {
			et := r.Reduce(e, sc)
			if et == nil {
				return nil
			}
			elems = append(elems, et)
		}
		return &Type{Kind: KindTuple, TupleElements: elems}

	case *ast.DesignatedStorageType:
		elem := r.Reduce(n.Element, sc)
		if elem == nil {
			return nil
		}
		if r.Expr != nil {
			holderReduced := r.Expr.ReduceForTypeCheck(n.Holder, sc)
			if holderReduced != nil {
				info := holderReduced.ExprInfo()
				if info == nil || !info.Qualifiers.LValue {
					r.Report.Error(n.Holder.Position(), "designated storage holder must be an l-value")
				} else if !info.Qualifiers.Const && info.Qualifiers.WriteOnly {
					// writeonly is fine for a designated storage holder used as a
					// write target; nothing further to check here.
				}
				if info != nil {
					if holderType, ok := info.Type.(*Type); ok {
						holderSize, hOk := holderType.StorageSize()
						elemSize, eOk := elem.StorageSize()
						if hOk && eOk && holderSize != elemSize {
							r.Report.Error(n.Holder.Position(), "designated storage holder size (%d) does not match element size (%d)", holderSize, elemSize)
						}
					}
				}
			}
		}
		return &Type{Kind: KindDesignatedStorage, StorageElement: elem, StorageHolder: n.Holder}

	case *ast.IdentifierType:
		result := sc.ResolveDotted(n.Pieces)
		if result.Ambiguous {
			r.reportAmbiguous(n.Pos, n.Pieces, result.Candidates)
			return nil
		}
		if result.Def == nil {
			r.Report.Error(n.Pos, "unresolved type name '%s'", joinPieces(n.Pieces))
			return nil
		}
		return r.fromDefinition(n.Pos, result.Def)

	case *ast.ResolvedIdentifierType:
		return r.fromDefinition(n.Pos, n.Def.(defs.Definition))

	case *ast.TypeOfType:
		if r.Expr == nil {
			r.Report.Error(n.Pos, "typeof cannot be evaluated in this context")
			return nil
		}
		reduced := r.Expr.ReduceForTypeCheck(n.Expr, sc)
		if reduced == nil || reduced.ExprInfo() == nil {
			r.Report.Error(n.Pos, "could not determine type of expression")
			return nil
		}
		t, _ := reduced.ExprInfo().Type.(*Type)
		return t

	default:
		r.Report.InternalError(te.Position(), "unhandled type expression %T", te)
		return nil
	}
}

func joinPieces(pieces []string) string {
	out := ""
	for i, p := range pieces {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func (r *Reducer) reportAmbiguous(pos report.Position, pieces []string, candidates []defs.Definition) {
	r.Report.Error(pos, "ambiguous name '%s'", joinPieces(pieces))
	for _, c := range candidates {
		r.Report.Continued("candidate declared at %s", c.DeclPosition())
	}
}

// fromDefinition maps a resolved Definition to its canonical Type,
// transparently substituting TypeAlias (spec.md 4.2: "TypeAlias is
// transparently substituted").
func (r *Reducer) fromDefinition(pos report.Position, d defs.Definition) *Type {
	switch v := d.(type) {
	case *defs.TypeAlias:
		if v.ResolvedType == nil {
			r.Report.Error(pos, "type alias '%s' used before its underlying type is resolved", v.DeclName())
			return nil
		}
		return v.ResolvedType.(*Type)
	case *defs.Struct:
		return &Type{Kind: KindStruct, Def: v, Name: v.DeclName()}
	case *defs.Enum:
		return &Type{Kind: KindEnum, Def: v, Name: v.DeclName()}
	case *defs.BuiltinIntegerType:
		return &Type{Kind: KindInteger, IntSize: v.Size, IntSigned: v.Signed, IntMin: v.Min, IntMax: v.Max, Name: v.DeclName()}
	case *defs.BuiltinBoolType:
		return &Type{Kind: KindBool, Name: "bool"}
	case *defs.BuiltinIntegerExpressionType:
		return &Type{Kind: KindIntegerExpression, Name: "iexpr"}
	case *defs.BuiltinRangeType:
		return &Type{Kind: KindRange, Name: "range"}
	case *defs.BuiltinBankType:
		return &Type{Kind: KindBankType, BankTypeKind: v.BankKind, Name: v.DeclName()}
	case *defs.BuiltinRegister:
		if v.Type == nil {
			r.Report.Error(pos, "register '%s' has no type", v.DeclName())
			return nil
		}
		return v.Type.(*Type)
	case *defs.Namespace:
		r.Report.Error(pos, "'%s' is a namespace, not a type", v.DeclName())
		return nil
	case *defs.Var, *defs.Func, *defs.Let:
		r.Report.Error(pos, "'%s' is not a type", d.DeclName())
		return nil
	default:
		r.Report.InternalError(pos, "unexpected definition kind in type position: %T", d)
		return nil
	}
}

// IsEquivalent implements spec.md 4.2 isTypeEquivalent: structural
// equality by variant, with DesignatedStorage treated as equivalent to
// any other type of the same storage size, and pointer qualifiers
// required to match exactly except that a DesignatedStorage wrapper is
// transparent to the comparison.
func IsEquivalent(a, b *Type) bool {
	designated := (a != nil && a.Kind == KindDesignatedStorage) || (b != nil && b.Kind == KindDesignatedStorage)
	a = unwrapDesignated(a)
	b = unwrapDesignated(b)
	if a == nil || b == nil {
		return a == b
	}
	if designated {
		// Storage-compatible fallback: if either side started as
		// DesignatedStorage, size equality is enough.
		if sa, ok := a.StorageSize(); ok {
			if sb, ok := b.StorageSize(); ok && sa == sb {
				return true
			}
		}
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool, KindIntegerExpression, KindVoid, KindRange:
		return true
	case KindInteger:
		return a.IntSize == b.IntSize && a.IntSigned == b.IntSigned
	case KindPointer:
		if a.PointerQuals != b.PointerQuals {
			return false
		}
		return IsEquivalent(a.PointerElement, b.PointerElement)
	case KindFunction:
		if a.FuncFar != b.FuncFar || len(a.FuncParams) != len(b.FuncParams) {
			return false
		}
		for i := range a.FuncParams {
			if !IsEquivalent(a.FuncParams[i], b.FuncParams[i]) {
				return false
			}
		}
		return IsEquivalent(a.FuncReturn, b.FuncReturn)
	case KindTuple:
		if len(a.TupleElements) != len(b.TupleElements) {
			return false
		}
		for i := range a.TupleElements {
			if !IsEquivalent(a.TupleElements[i], b.TupleElements[i]) {
				return false
			}
		}
		return true
	case KindArray:
		if a.ArrayHasLength != b.ArrayHasLength {
			return false
		}
		if a.ArrayHasLength && a.ArrayLength != b.ArrayLength {
			return false
		}
		return IsEquivalent(a.ArrayElement, b.ArrayElement)
	case KindStruct, KindEnum:
		return a.Def == b.Def
	default:
		return false
	}
}

func unwrapDesignated(t *Type) *Type {
	if t != nil && t.Kind == KindDesignatedStorage {
		return t.StorageElement
	}
	return t
}

// CanNarrow implements spec.md 4.2 canNarrowExpression: whether a value
// of type `from` can be narrowed/converted to type `to` without an
// explicit cast, given a compile-time literal value when available
// (needed for iexpr -> sized-integer range checks).
func CanNarrow(from, to *Type, literal *int128.Int) bool {
	if from == nil || to == nil {
		return false
	}
	if IsEquivalent(from, to) {
		return true
	}
	toBare := unwrapDesignated(to)

	// (a) iexpr -> sized integer when literal fits.
	if from.Kind == KindIntegerExpression && toBare.Kind == KindInteger {
		if literal == nil {
			return false
		}
		return literal.FitsRange(toBare.IntMin, toBare.IntMax)
	}

	// (b) adding const/writeonly on pointers.
	if from.Kind == KindPointer && toBare.Kind == KindPointer {
		if from.PointerQuals.Far != toBare.PointerQuals.Far {
			// (c) dropping far on pointer when target is !far.
			if from.PointerQuals.Far && !toBare.PointerQuals.Far {
				// allowed only if element types match and target isn't far
			} else {
				return false
			}
		}
		if !IsEquivalent(from.PointerElement, toBare.PointerElement) {
			return false
		}
		// Can only add const/writeonly, never remove.
		if from.PointerQuals.Const && !toBare.PointerQuals.Const {
			return false
		}
		if from.PointerQuals.WriteOnly && !toBare.PointerQuals.WriteOnly {
			return false
		}
		return true
	}

	// (d) array-of-iexpr -> array-of-sized element-wise (shape check
	// only here; element-wise literal checks happen where each element
	// literal is available, e.g. serialize/exprred array reduction).
	if from.Kind == KindArray && toBare.Kind == KindArray && from.ArrayElement != nil && from.ArrayElement.Kind == KindIntegerExpression {
		if from.ArrayHasLength && toBare.ArrayHasLength && from.ArrayLength != toBare.ArrayLength {
			return false
		}
		return toBare.ArrayElement.Kind == KindInteger
	}

	// (e) passing through designated storage.
	if from.Kind == KindDesignatedStorage {
		return CanNarrow(from.StorageElement, to, literal)
	}
	if toBare.Kind == KindDesignatedStorage {
		fromSize, fOk := from.StorageSize()
		toSize, tOk := toBare.StorageSize()
		return fOk && tOk && fromSize == toSize
	}

	return false
}

// Describe renders a human-readable type name for diagnostics.
func Describe(t *Type) string {
	if t == nil {
		return "<unknown>"
	}
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindInteger:
		if t.Name != "" {
			return t.Name
		}
		if t.IntSigned {
			return fmt.Sprintf("i%d", t.IntSize*8)
		}
		return fmt.Sprintf("u%d", t.IntSize*8)
	case KindIntegerExpression:
		return "iexpr"
	case KindPointer:
		prefix := "*"
		if t.PointerQuals.Far {
			prefix = "*far "
		}
		if t.PointerQuals.Const {
			prefix += "const "
		}
		if t.PointerQuals.WriteOnly {
			prefix += "writeonly "
		}
		return prefix + Describe(t.PointerElement)
	case KindFunction:
		return "func(...)"
	case KindTuple:
		return "(tuple)"
	case KindArray:
		if t.ArrayHasLength {
			return fmt.Sprintf("[%s; %d]", Describe(t.ArrayElement), t.ArrayLength)
		}
		return fmt.Sprintf("[%s]", Describe(t.ArrayElement))
	case KindStruct:
		return t.Name
	case KindEnum:
		return t.Name
	case KindDesignatedStorage:
		return "<- " + Describe(t.StorageElement)
	case KindRange:
		return "range"
	case KindVoid:
		return "void"
	default:
		return "<?>"
	}
}
