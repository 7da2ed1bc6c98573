package importer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

// fakeParser maps a canonical path to a pre-built *ast.File, counting
// how many times each path was actually parsed so the cache can be
// checked for exactly-once behavior.
type fakeParser struct {
	files  map[string]*ast.File
	parses map[string]int
}

func (f *fakeParser) ParseFile(path string) (*ast.File, error) {
	f.parses[path]++
	file, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return file, nil
}

// fakeReserver is a no-op Reserver that counts calls.
type fakeReserver struct {
	calls int
}

func (f *fakeReserver) Reserve(file *ast.File, into *scope.Scope) error {
	f.calls++
	return nil
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveFindsRelativeAndRootPaths(t *testing.T) {
	dir := t.TempDir()
	rootDir := t.TempDir()
	writeFile(t, dir, "local.wiz", "")
	writeFile(t, rootDir, "lib.wiz", "")

	p := New(report.New(ioutil.Discard, false), nil, nil, nil, []string{rootDir})

	got, err := p.Resolve(dir, "local.wiz")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(filepath.Join(dir, "local.wiz"))
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = p.Resolve(dir, "lib.wiz")
	if err != nil {
		t.Fatalf("expected lib.wiz to resolve via Roots: %v", err)
	}
	want, _ = filepath.Abs(filepath.Join(rootDir, "lib.wiz"))
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveMissingFileErrors(t *testing.T) {
	p := New(report.New(ioutil.Discard, false), nil, nil, nil, nil)
	if _, err := p.Resolve(t.TempDir(), "nope.wiz"); err == nil {
		t.Fatal("expected an error for a file that does not exist anywhere")
	}
}

func TestImportParsesAndReservesEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.wiz", "")
	bPath := writeFile(t, dir, "b.wiz", "")

	aAbs, _ := filepath.Abs(aPath)
	bAbs, _ := filepath.Abs(bPath)

	aFile := &ast.File{Path: aAbs, Items: []ast.Statement{
		&ast.ImportReference{ExpandedPath: "b.wiz"},
	}}
	bFile := &ast.File{Path: bAbs, Items: nil}

	parser := &fakeParser{files: map[string]*ast.File{aAbs: aFile, bAbs: bFile}, parses: map[string]int{}}
	reserver := &fakeReserver{}
	root := scope.New("", nil)
	r := report.New(ioutil.Discard, false)
	p := New(r, parser, reserver, root, nil)

	sc, err := p.Import("", aPath)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
	if sc.Parent != root {
		t.Error("expected the imported file's scope to chain up to the builtin root")
	}
	if reserver.calls != 2 {
		t.Errorf("got %d Reserve calls, want 2 (a.wiz and b.wiz)", reserver.calls)
	}
	if parser.parses[aAbs] != 1 || parser.parses[bAbs] != 1 {
		t.Errorf("got parse counts %v, want exactly one parse per file", parser.parses)
	}

	// Re-importing a.wiz must hit the cache: no further parse or Reserve.
	if _, err := p.Import("", aPath); err != nil {
		t.Fatal(err)
	}
	if reserver.calls != 2 {
		t.Errorf("got %d Reserve calls after re-import, want still 2", reserver.calls)
	}
	if parser.parses[aAbs] != 1 {
		t.Errorf("got %d parses of a.wiz after re-import, want still 1", parser.parses[aAbs])
	}
}

func TestImportCyclicDiamondResolvesOnce(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.wiz", "")
	bPath := writeFile(t, dir, "b.wiz", "")
	cPath := writeFile(t, dir, "c.wiz", "")

	aAbs, _ := filepath.Abs(aPath)
	bAbs, _ := filepath.Abs(bPath)
	cAbs, _ := filepath.Abs(cPath)

	aFile := &ast.File{Path: aAbs, Items: []ast.Statement{
		&ast.ImportReference{ExpandedPath: "b.wiz"},
		&ast.ImportReference{ExpandedPath: "c.wiz"},
	}}
	bFile := &ast.File{Path: bAbs, Items: []ast.Statement{
		&ast.ImportReference{ExpandedPath: "c.wiz"},
	}}
	cFile := &ast.File{Path: cAbs, Items: []ast.Statement{
		&ast.ImportReference{ExpandedPath: "a.wiz"},
	}}

	parser := &fakeParser{
		files:  map[string]*ast.File{aAbs: aFile, bAbs: bFile, cAbs: cFile},
		parses: map[string]int{},
	}
	reserver := &fakeReserver{}
	r := report.New(ioutil.Discard, false)
	p := New(r, parser, reserver, scope.New("", nil), nil)

	if _, err := p.Import("", aPath); err != nil {
		t.Fatal(err)
	}
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
	for _, path := range []string{aAbs, bAbs, cAbs} {
		if parser.parses[path] != 1 {
			t.Errorf("got %d parses of %q, want exactly 1 despite the a->b->c->a cycle", parser.parses[path], path)
		}
	}
}

func TestImportReportsUnresolvedImport(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, dir, "a.wiz", "")
	aAbs, _ := filepath.Abs(aPath)

	aFile := &ast.File{Path: aAbs, Items: []ast.Statement{
		&ast.ImportReference{ExpandedPath: "missing.wiz"},
	}}
	parser := &fakeParser{files: map[string]*ast.File{aAbs: aFile}, parses: map[string]int{}}
	r := report.New(ioutil.Discard, false)
	p := New(r, parser, &fakeReserver{}, scope.New("", nil), nil)

	if _, err := p.Import("", aPath); err != nil {
		t.Fatal(err)
	}
	if r.Validate() {
		t.Fatal("expected a reported error for an unresolved import target")
	}
}

func TestReadEmbedReturnsBytesAndCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.bin", "hello")
	p := New(report.New(ioutil.Discard, false), nil, nil, nil, []string{dir})

	data, canonical, err := p.ReadEmbed(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}
	want, _ := filepath.Abs(path)
	if canonical != want {
		t.Errorf("got %q, want %q", canonical, want)
	}
}
