package compiler

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// layoutAggregates finishes phase 2's "compute struct/union layouts and
// sizes": every member's ResolvedType is already known (resolveTypes
// ran first), so this pass only needs each member's storage size to
// assign offsets and the struct's total size. Structs may nest, so each
// is laid out on demand (c.layoutStruct is idempotent once s.Size is
// set) rather than assuming c.structs is already in dependency order.
func (c *Compiler) layoutAggregates() {
	laying := map[*defs.Struct]bool{}
	for _, s := range c.structs {
		c.layoutStruct(s, laying)
	}
}

func (c *Compiler) layoutStruct(s *defs.Struct, laying map[*defs.Struct]bool) {
	if _, done := s.Size.Get(); done {
		return
	}
	if laying[s] {
		c.Report.Error(s.DeclPosition(), "struct '%s' is recursively contained within itself", s.DeclName())
		return
	}
	laying[s] = true
	defer delete(laying, s)

	offset := 0
	maxSize := 0
	for _, m := range s.Members {
		if t, ok := m.ResolvedType.(*typeck.Type); ok && t.Kind == typeck.KindStruct {
			if inner, ok := t.Def.(*defs.Struct); ok {
				c.layoutStruct(inner, laying)
			}
		}
		size, ok := typeSize(m.ResolvedType)
		if !ok {
			c.Report.Error(m.DeclPosition(), "member '%s' of '%s' has no fixed storage size", m.DeclName(), s.DeclName())
			continue
		}
		if s.StructKind == ast.StructKindUnion {
			m.Offset = opt.Some(0)
		} else {
			m.Offset = opt.Some(offset)
			offset += size
		}
		if size > maxSize {
			maxSize = size
		}
	}
	if s.StructKind == ast.StructKindUnion {
		s.Size = opt.Some(maxSize)
	} else {
		s.Size = opt.Some(offset)
	}
}

func typeSize(t interface{}) (int, bool) {
	tt, ok := t.(interface{ StorageSize() (int, bool) })
	if !ok {
		return 0, false
	}
	return tt.StorageSize()
}
