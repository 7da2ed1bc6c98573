// Package scope implements the ScopeGraph from spec.md 4.1: symbol
// tables with lexical parents and recursive-import edges, and the three
// lookup modes (unqualified, local-member, member) plus dotted
// identifier resolution.
//
// No teacher analogue with real lexical scoping exists in
// PiMaker-MCPC-Software (MSCR resolves names through flat maps in
// asmTransformState). This package generalizes that "small struct, map
// of string to X" idiom into a real Scope graph, closer in shape to
// krux02-golem/semchecker.go's scope-walking (a Scope type with a
// parent pointer and lookup methods).
package scope

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/defs"
)

// Scope owns a name -> Definition mapping and an ordered set of
// recursive-import edges (spec.md 4.1).
type Scope struct {
	Name    string // debug label (namespace/function name, or "" for file scope)
	Parent  *Scope
	locals  map[string]defs.Definition
	order   []string
	imports []*Scope
}

// New creates a root or child scope. parent may be nil for the module
// (builtin) scope.
func New(name string, parent *Scope) *Scope {
	return &Scope{Name: name, Parent: parent, locals: make(map[string]defs.Definition)}
}

// DuplicateKeyError is returned by CreateDefinition when name already
// exists locally (spec.md 4.1).
type DuplicateKeyError struct {
	Name     string
	Existing defs.Definition
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("redefinition of '%s' (previously declared at %s)", e.Name, e.Existing.DeclPosition())
}

// CreateDefinition registers a new definition under name, failing with
// *DuplicateKeyError if the name already exists in this scope (not
// ancestors — shadowing across scopes is allowed).
func (s *Scope) CreateDefinition(name string, d defs.Definition) error {
	if existing, ok := s.locals[name]; ok {
		return &DuplicateKeyError{Name: name, Existing: existing}
	}
	s.locals[name] = d
	s.order = append(s.order, name)
	return nil
}

// FindLocal looks up name in this scope only.
func (s *Scope) FindLocal(name string) (defs.Definition, bool) {
	d, ok := s.locals[name]
	return d, ok
}

// AddRecursiveImport records an import edge. Idempotent; cycles are
// permitted since every traversal uses a visited set.
func (s *Scope) AddRecursiveImport(other *Scope) {
	if other == nil || other == s {
		return
	}
	for _, existing := range s.imports {
		if existing == other {
			return
		}
	}
	s.imports = append(s.imports, other)
}

// ForEachDefinition performs stable iteration over this scope's locals,
// in declaration order.
func (s *Scope) ForEachDefinition(f func(name string, d defs.Definition)) {
	for _, name := range s.order {
		f(name, s.locals[name])
	}
}

// collectMember gathers every distinct definition reachable from this
// scope's locals plus its transitive recursive imports, visiting each
// scope at most once.
func (s *Scope) collectMember(name string, visited map[*Scope]bool, out *[]defs.Definition) {
	if visited[s] {
		return
	}
	visited[s] = true

	if d, ok := s.locals[name]; ok {
		if !containsDef(*out, d) {
			*out = append(*out, d)
		}
	}
	for _, imp := range s.imports {
		imp.collectMember(name, visited, out)
	}
}

func containsDef(list []defs.Definition, d defs.Definition) bool {
	for _, existing := range list {
		if existing == d {
			return true
		}
	}
	return false
}

// FindMember looks up name in this scope's locals plus transitive
// imports only (no parent chain). Multiple distinct hits are ambiguity.
func (s *Scope) FindMember(name string) []defs.Definition {
	var out []defs.Definition
	visited := map[*Scope]bool{}
	s.collectMember(name, visited, &out)
	return out
}

// FindUnqualified walks the parent chain; at each ancestor level it
// unions that scope's locals with its transitive imports. Per spec.md
// 4.1, ambiguity (>1 distinct hit) at any single level is a hard error
// unless resolvable by namespace traversal (handled by ResolveDotted).
func (s *Scope) FindUnqualified(name string) []defs.Definition {
	for cur := s; cur != nil; cur = cur.Parent {
		hits := cur.FindMember(name)
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// EnvOf returns the child Scope backing a Namespace/Struct/Enum
// definition, or nil if d does not own an environment.
func EnvOf(d defs.Definition) *Scope {
	switch v := d.(type) {
	case *defs.Namespace:
		if v.Env == nil {
			return nil
		}
		return v.Env.(*Scope)
	case *defs.Struct:
		if v.Env == nil {
			return nil
		}
		return v.Env.(*Scope)
	case *defs.Enum:
		if v.Env == nil {
			return nil
		}
		return v.Env.(*Scope)
	default:
		return nil
	}
}

// ResolveResult is the outcome of resolving a dotted identifier
// (spec.md 4.1 "Identifier resolution").
type ResolveResult struct {
	Def              defs.Definition
	LastResolvedPiece int
	Ambiguous        bool
	Candidates       []defs.Definition // populated when Ambiguous
	NotFoundAt       int               // -1 if found or ambiguous
}

// ResolveDotted resolves pieces[0..n) per spec.md 4.1: pieces[0] via
// unqualified lookup; each subsequent piece requires the previous match
// to be a Namespace (or a Struct/Enum, whose Env this package also
// exposes for member access) and looks it up via member lookup on that
// environment.
func (s *Scope) ResolveDotted(pieces []string) ResolveResult {
	if len(pieces) == 0 {
		return ResolveResult{NotFoundAt: 0}
	}

	hits := s.FindUnqualified(pieces[0])
	if len(hits) == 0 {
		return ResolveResult{NotFoundAt: 0}
	}
	if len(hits) > 1 {
		if resolved, ok := resolveNamespaceAmbiguity(hits, len(pieces) > 1); ok {
			hits = []defs.Definition{resolved}
		} else {
			return ResolveResult{Ambiguous: true, Candidates: hits, NotFoundAt: -1}
		}
	}

	current := hits[0]
	resolvedIdx := 0

	for i := 1; i < len(pieces); i++ {
		env := EnvOf(current)
		if env == nil {
			// Stops when a non-namespace is produced (spec.md 4.1).
			return ResolveResult{Def: current, LastResolvedPiece: resolvedIdx, NotFoundAt: -1}
		}
		memberHits := env.FindMember(pieces[i])
		if len(memberHits) == 0 {
			return ResolveResult{NotFoundAt: i}
		}
		if len(memberHits) > 1 {
			if resolved, ok := resolveNamespaceAmbiguity(memberHits, i < len(pieces)-1); ok {
				memberHits = []defs.Definition{resolved}
			} else {
				return ResolveResult{Ambiguous: true, Candidates: memberHits, NotFoundAt: -1}
			}
		}
		current = memberHits[0]
		resolvedIdx = i
	}

	return ResolveResult{Def: current, LastResolvedPiece: resolvedIdx, NotFoundAt: -1}
}

// resolveNamespaceAmbiguity implements spec.md 4.1's carve-out:
// "Ambiguity is a hard error unless exactly one is a Namespace that can
// be traversed further." Only applicable when there are more pieces
// left to resolve (needsTraversal) — otherwise a Namespace candidate is
// just as terminal as any other and the ambiguity stands.
func resolveNamespaceAmbiguity(hits []defs.Definition, needsTraversal bool) (defs.Definition, bool) {
	if !needsTraversal {
		return nil, false
	}
	var namespaceHit defs.Definition
	count := 0
	for _, h := range hits {
		if _, ok := h.(*defs.Namespace); ok {
			namespaceHit = h
			count++
		}
	}
	if count == 1 {
		return namespaceHit, true
	}
	return nil, false
}
