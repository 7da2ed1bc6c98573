// Package serialize implements the ConstantSerializer from spec.md 4.8:
// turning a fully-reduced compile-time initializer into little-endian
// bytes for the target type.
package serialize

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// Error is returned for spec.md §7's NonConstInitializer and related
// serialization failures.
type Error struct {
	Pos     interface{ String() string }
	Message string
}

func (e *Error) Error() string { return e.Message }

// FuncAddress resolves a *defs.Func to its assigned address (bytes),
// wired by internal/codegen once pass 5a has run (avoids importing
// codegen from serialize, which would create a cycle since codegen
// depends on serialize for Var initializers).
type FuncAddressResolver interface {
	FuncAddress(f *defs.Func) (opt.Value[int], bool)
}

// Serializer produces little-endian bytes from reduced literals.
type Serializer struct {
	Funcs FuncAddressResolver
}

// New constructs a Serializer.
func New(funcs FuncAddressResolver) *Serializer {
	return &Serializer{Funcs: funcs}
}

// Serialize implements spec.md 4.8's dispatch table. t is the
// destination's canonical type (used for integer width and pointer
// width); e must already be a fully-reduced compile-time expression.
func (s *Serializer) Serialize(e ast.Expr, t *typeck.Type) ([]byte, error) {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		size, ok := t.StorageSize()
		if !ok {
			return nil, fmt.Errorf("cannot serialize integer literal into a type with unknown storage size")
		}
		return leBytesInt(n.Value, size), nil

	case *ast.BooleanLiteral:
		if n.Value {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case *ast.StringLiteral:
		return append([]byte(nil), n.Value...), nil

	case *ast.ArrayLiteral:
		elemType := t.ArrayElement
		var out []byte
		for _, el := range n.Elements {
			bytes, err := s.Serialize(el, elemType)
			if err != nil {
				return nil, err
			}
			out = append(out, bytes...)
		}
		return out, nil

	case *ast.ArrayPadLiteral:
		count, ok := integerLiteralInt(n.Count)
		if !ok {
			return nil, fmt.Errorf("array pad count must be a reduced integer literal")
		}
		elemBytes, err := s.Serialize(n.Value, t.ArrayElement)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(elemBytes)*count)
		for i := 0; i < count; i++ {
			out = append(out, elemBytes...)
		}
		return out, nil

	case *ast.TupleLiteral:
		var out []byte
		for i, el := range n.Elements {
			elType := t.TupleElements[i]
			bytes, err := s.Serialize(el, elType)
			if err != nil {
				return nil, err
			}
			out = append(out, bytes...)
		}
		return out, nil

	case *ast.StructLiteral:
		return s.serializeStruct(n, t)

	case *ast.ResolvedIdentifier:
		if f, ok := n.Def.(*defs.Func); ok {
			return s.serializeFuncAddress(f, t)
		}
		return nil, fmt.Errorf("non-constant initializer: identifier does not refer to a func")

	default:
		return nil, fmt.Errorf("non-constant initializer: %T is not a reduced literal (spec.md NonConstInitializer)", e)
	}
}

func (s *Serializer) serializeFuncAddress(f *defs.Func, t *typeck.Type) ([]byte, error) {
	if f.Inlined {
		return nil, fmt.Errorf("cannot take the address of an inline func (spec.md Invariant 7)")
	}
	if s.Funcs == nil {
		return nil, fmt.Errorf("function address not yet resolved")
	}
	addr, ok := s.Funcs.FuncAddress(f)
	if !ok {
		return nil, fmt.Errorf("function '%s' has no assigned address", f.DeclName())
	}
	val, ok := addr.Get()
	if !ok {
		return nil, fmt.Errorf("function '%s' has no assigned address", f.DeclName())
	}
	size, _ := t.StorageSize()
	if size == 0 {
		size = typeck.PointerSize(f.Far)
	}
	return leBytesInt(int128.FromInt64(int64(val)), size), nil
}

func (s *Serializer) serializeStruct(n *ast.StructLiteral, t *typeck.Type) ([]byte, error) {
	structDef, ok := t.Def.(*defs.Struct)
	if !ok {
		return nil, fmt.Errorf("struct literal type is not a resolved struct")
	}

	if structDef.StructKind == ast.StructKindUnion {
		if len(n.Fields) != 1 {
			return nil, fmt.Errorf("union literal must provide exactly one member (spec.md Invariant 6)")
		}
		field := n.Fields[0]
		member := findMember(structDef, field.Name)
		if member == nil {
			return nil, fmt.Errorf("unknown union member '%s'", field.Name)
		}
		memberType := member.ResolvedType.(*typeck.Type)
		bytes, err := s.Serialize(field.Value, memberType)
		if err != nil {
			return nil, err
		}
		total, _ := t.StorageSize()
		out := make([]byte, total)
		copy(out, bytes)
		return out, nil
	}

	// Struct: exactly all members are provided, in declaration order
	// (spec.md Invariant 6); serialize in declaration order regardless
	// of the literal's field order.
	var out []byte
	for _, member := range structDef.Members {
		field := findLiteralField(n, member.DeclName())
		if field == nil {
			return nil, fmt.Errorf("struct literal is missing member '%s'", member.DeclName())
		}
		memberType := member.ResolvedType.(*typeck.Type)
		bytes, err := s.Serialize(field.Value, memberType)
		if err != nil {
			return nil, err
		}
		out = append(out, bytes...)
	}
	return out, nil
}

func findMember(s *defs.Struct, name string) *defs.StructMember {
	for _, m := range s.Members {
		if m.DeclName() == name {
			return m
		}
	}
	return nil
}

func findLiteralField(lit *ast.StructLiteral, name string) *ast.StructLiteralField {
	for _, f := range lit.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func integerLiteralInt(e ast.Expr) (int, bool) {
	lit, ok := e.(*ast.IntegerLiteral)
	if !ok {
		return 0, false
	}
	v, ok := lit.Value.Int64()
	return int(v), ok
}

// leBytesInt renders v as size little-endian bytes, masking to the
// requested width first (spec.md §8 "Integer mask identity" / "Round
// trip" testable properties).
func leBytesInt(v int128.Int, size int) []byte {
	masked := v.Mask(uint(size) * 8)
	out := make([]byte, size)
	rem := masked
	for i := 0; i < size; i++ {
		b := rem.Mask(8)
		bv, _ := b.Uint64()
		out[i] = byte(bv)
		rem = rem.Shr(8)
	}
	return out
}
