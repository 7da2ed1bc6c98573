// Package importer implements the ImportPipeline from spec.md §1/4.1's
// "Import manager / reader" collaborator: file discovery and caching,
// `embed` byte loading, and splicing an imported file's module scope
// into the importing scope's recursive-import edges.
//
// No teacher analogue exists in PiMaker-MCPC-Software (MSCR compiles a
// single already-preprocessed file; multi-file inclusion was gpp's job,
// dropped per DESIGN.md). This package is grounded directly on §1/§6's
// narrow import-manager contract and kept intentionally small (2% of
// the component table).
package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

// Parser is the narrow collaborator the pipeline needs to turn a
// resolved file path into an AST (internal/parser implements this).
type Parser interface {
	ParseFile(path string) (*ast.File, error)
}

// Reserver walks a file's top-level declarations into an already
// call-site-created scope (spec.md phase 1, "Definition reservation" —
// internal/compiler implements this). The pipeline calls it once per
// distinct file, after the scope already exists, so a cyclic import
// graph resolves against a live scope rather than a snapshot.
type Reserver interface {
	Reserve(file *ast.File, into *scope.Scope) error
}

// Pipeline resolves ImportReference statements into recursive-import
// edges, memoizing both the parse and the reservation of each distinct
// file so a diamond-shaped import graph parses every file exactly once
// (spec.md 4.1's "cycles are permitted; traversal uses a visited set").
type Pipeline struct {
	Report   *report.Report
	Parser   Parser
	Reserver Reserver
	Roots    []string // search directories, tried in order, for bare import paths

	// Parent is the scope every file's module scope chains up to (the
	// builtin scope internal/builtins.PopulateRootScope filled).
	Parent *scope.Scope

	files  map[string]*ast.File
	scopes map[string]*scope.Scope
}

// New constructs a Pipeline. roots is searched, in order, when an
// import path is not already absolute or relative to fromDir.
func New(r *report.Report, p Parser, rv Reserver, parent *scope.Scope, roots []string) *Pipeline {
	return &Pipeline{
		Report: r, Parser: p, Reserver: rv, Parent: parent, Roots: roots,
		files: map[string]*ast.File{}, scopes: map[string]*scope.Scope{},
	}
}

// Resolve canonicalizes path relative to fromDir (the importing file's
// directory), falling back to each of Roots in order, and returns a
// clean absolute path. This is the "canonical path" every cache in this
// package keys on.
func (p *Pipeline) Resolve(fromDir, path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	candidates := make([]string, 0, len(p.Roots)+1)
	if fromDir != "" {
		candidates = append(candidates, filepath.Join(fromDir, path))
	}
	for _, root := range p.Roots {
		candidates = append(candidates, filepath.Join(root, path))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(c)
			if err != nil {
				return "", err
			}
			return filepath.Clean(abs), nil
		}
	}
	return "", fmt.Errorf("could not locate '%s'", path)
}

// ReadEmbed implements exprred.ImportManager for `embed` expressions:
// reads raw bytes from a path resolved the same way import paths are.
func (p *Pipeline) ReadEmbed(path string) ([]byte, string, error) {
	canonical, err := p.Resolve("", path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(canonical)
	if err != nil {
		return nil, "", err
	}
	return data, canonical, nil
}

// Import resolves, parses (if not already cached), and reserves path,
// returning its module scope. fromDir is the directory of the file
// containing the import statement, used to resolve relative paths.
func (p *Pipeline) Import(fromDir, path string) (*scope.Scope, error) {
	canonical, err := p.Resolve(fromDir, path)
	if err != nil {
		return nil, err
	}
	return p.importCanonical(canonical)
}

func (p *Pipeline) importCanonical(canonical string) (*scope.Scope, error) {
	if sc, ok := p.scopes[canonical]; ok {
		return sc, nil
	}

	file, ok := p.files[canonical]
	if !ok {
		parsed, err := p.Parser.ParseFile(canonical)
		if err != nil {
			return nil, err
		}
		file = parsed
		p.files[canonical] = file
	}

	// Registered before Reserve/Process run: a cyclic import graph
	// (spec.md §9 "diamond patterns through namespaces") sees this same
	// scope object, live, rather than recursing forever.
	sc := scope.New(canonical, p.Parent)
	p.scopes[canonical] = sc

	if err := p.Reserver.Reserve(file, sc); err != nil {
		return nil, err
	}
	if err := p.Process(file, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// Process walks file's top-level items for ImportReference statements
// and splices each resolved target's scope into into as a recursive
// import (spec.md 4.1's add_recursive_import).
func (p *Pipeline) Process(file *ast.File, into *scope.Scope) error {
	dir := filepath.Dir(file.Path)
	for _, item := range file.Items {
		ref, isImport := item.(*ast.ImportReference)
		if !isImport {
			continue
		}
		resolved, err := p.Resolve(dir, ref.ExpandedPath)
		if err != nil {
			p.Report.Error(ref.Position(), "could not import '%s': %s", ref.ExpandedPath, err)
			continue
		}
		imported, err := p.importCanonical(resolved)
		if err != nil {
			p.Report.Error(ref.Position(), "could not import '%s': %s", ref.ExpandedPath, err)
			continue
		}
		into.AddRecursiveImport(imported)
	}
	return nil
}
