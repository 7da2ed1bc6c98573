package scope

import (
	"testing"

	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/report"
)

func mustDefine(t *testing.T, s *Scope, name string, d defs.Definition) {
	t.Helper()
	if err := s.CreateDefinition(name, d); err != nil {
		t.Fatal(err)
	}
}

func TestCreateDefinitionRejectsDuplicates(t *testing.T) {
	s := New("", nil)
	v := defs.NewVar("x", report.Position{})
	mustDefine(t, s, "x", v)

	err := s.CreateDefinition("x", defs.NewVar("x", report.Position{}))
	if err == nil {
		t.Fatal("expected a duplicate-key error")
	}
	dup, ok := err.(*DuplicateKeyError)
	if !ok {
		t.Fatalf("got %T, want *DuplicateKeyError", err)
	}
	if dup.Existing != v {
		t.Error("expected the duplicate error to reference the original definition")
	}
}

func TestFindUnqualifiedWalksParentChain(t *testing.T) {
	root := New("root", nil)
	child := New("child", root)

	v := defs.NewVar("x", report.Position{})
	mustDefine(t, root, "x", v)

	hits := child.FindUnqualified("x")
	if len(hits) != 1 || hits[0] != v {
		t.Fatalf("got %v, want a single hit for the root-scope definition", hits)
	}

	if hits := child.FindUnqualified("missing"); hits != nil {
		t.Errorf("got %v, want nil for an undefined name", hits)
	}
}

func TestFindUnqualifiedShadowsInnerScopeFirst(t *testing.T) {
	root := New("root", nil)
	child := New("child", root)

	outer := defs.NewVar("x", report.Position{})
	inner := defs.NewVar("x", report.Position{})
	mustDefine(t, root, "x", outer)
	mustDefine(t, child, "x", inner)

	hits := child.FindUnqualified("x")
	if len(hits) != 1 || hits[0] != inner {
		t.Fatalf("got %v, want the inner-scope definition to shadow the outer one", hits)
	}
}

func TestAddRecursiveImportIsIdempotentAndIgnoresSelf(t *testing.T) {
	a := New("a", nil)
	b := New("b", nil)

	a.AddRecursiveImport(b)
	a.AddRecursiveImport(b)
	a.AddRecursiveImport(a)
	a.AddRecursiveImport(nil)

	if len(a.imports) != 1 {
		t.Fatalf("got %d import edges, want exactly 1", len(a.imports))
	}
}

func TestFindMemberCollectsAcrossRecursiveImportsWithoutDuplicates(t *testing.T) {
	a := New("a", nil)
	b := New("b", nil)
	c := New("c", nil)

	v := defs.NewVar("shared", report.Position{})
	mustDefine(t, c, "shared", v)

	a.AddRecursiveImport(b)
	b.AddRecursiveImport(c)
	c.AddRecursiveImport(a) // cycle back to a; must not infinite-loop

	hits := a.FindMember("shared")
	if len(hits) != 1 || hits[0] != v {
		t.Fatalf("got %v, want a single hit found through the transitive import chain", hits)
	}
}

func TestResolveDottedUnqualifiedHit(t *testing.T) {
	root := New("root", nil)
	v := defs.NewVar("x", report.Position{})
	mustDefine(t, root, "x", v)

	result := root.ResolveDotted([]string{"x"})
	if result.Def != v {
		t.Fatalf("got %v, want x", result.Def)
	}
	if result.NotFoundAt != -1 {
		t.Errorf("got NotFoundAt %d, want -1", result.NotFoundAt)
	}
}

func TestResolveDottedWalksNamespaceMembers(t *testing.T) {
	root := New("root", nil)
	ns := defs.NewNamespace("Color", report.Position{})
	nsEnv := New("Color", nil)
	ns.Env = nsEnv
	mustDefine(t, root, "Color", ns)

	green := defs.NewVar("Green", report.Position{})
	mustDefine(t, nsEnv, "Green", green)

	result := root.ResolveDotted([]string{"Color", "Green"})
	if result.Def != green {
		t.Fatalf("got %v, want Color.Green's definition", result.Def)
	}
	if result.LastResolvedPiece != 1 {
		t.Errorf("got LastResolvedPiece %d, want 1", result.LastResolvedPiece)
	}
}

func TestResolveDottedStopsAtNonNamespaceMember(t *testing.T) {
	root := New("root", nil)
	v := defs.NewVar("x", report.Position{})
	mustDefine(t, root, "x", v)

	// x has no Env, so a further piece can't be resolved through it.
	result := root.ResolveDotted([]string{"x", "y"})
	if result.Def != v {
		t.Fatalf("got %v, want the resolution to stop at x", result.Def)
	}
	if result.LastResolvedPiece != 0 {
		t.Errorf("got LastResolvedPiece %d, want 0", result.LastResolvedPiece)
	}
}

func TestResolveDottedReportsNotFoundAtMissingPiece(t *testing.T) {
	root := New("root", nil)
	ns := defs.NewNamespace("Color", report.Position{})
	ns.Env = New("Color", nil)
	mustDefine(t, root, "Color", ns)

	result := root.ResolveDotted([]string{"Color", "Missing"})
	if result.NotFoundAt != 1 {
		t.Errorf("got NotFoundAt %d, want 1", result.NotFoundAt)
	}
}

func TestResolveDottedAmbiguousWhenNoNamespaceCarveOutApplies(t *testing.T) {
	root := New("root", nil)
	imported := New("imported", nil)
	a := defs.NewVar("x", report.Position{})
	b := defs.NewVar("x", report.Position{})
	mustDefine(t, root, "x", a)
	mustDefine(t, imported, "x", b)
	root.AddRecursiveImport(imported)

	result := root.ResolveDotted([]string{"x"})
	if !result.Ambiguous {
		t.Fatal("expected two distinct same-level definitions to be ambiguous")
	}
	if len(result.Candidates) != 2 {
		t.Errorf("got %d candidates, want 2", len(result.Candidates))
	}
}

func TestEnvOfReturnsNilForNonEnvDefinition(t *testing.T) {
	v := defs.NewVar("x", report.Position{})
	if EnvOf(v) != nil {
		t.Error("expected EnvOf to return nil for a Var")
	}
}
