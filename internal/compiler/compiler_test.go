package compiler

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/undisbeliever/wiz/internal/builtins"
	"github.com/undisbeliever/wiz/internal/parser"
	"github.com/undisbeliever/wiz/internal/platform/mcpc16"
	"github.com/undisbeliever/wiz/internal/report"
)

func TestCompileBankAndVarDeclarations(t *testing.T) {
	src := `
bank code @ 0x8000 : [rom; 0x100];
in code {
    var counter : u8 = 42;
    var flag : u8 = 1;
}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wiz")
	if err := ioutil.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	r := report.New(os.Stderr, false)
	defs, err := builtins.ParseDefines(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(r, mcpc16.New(), defs)

	p := parser.New()
	pipeline := c.Pipeline(r, p, []string{dir})
	if _, err := pipeline.Import("", "in.wiz"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !r.Validate() {
		t.Fatalf("got %d diagnostics before Compile, want 0", r.ErrorCount())
	}

	result, ok := c.Compile()
	if !ok {
		t.Fatalf("Compile failed, %d errors", r.ErrorCount())
	}
	if len(result.Banks) != 1 {
		t.Fatalf("got %d banks, want 1", len(result.Banks))
	}
	h := result.Handles[result.Banks[0]]
	if h == nil {
		t.Fatal("bank has no storage handle")
	}
	if h.MaxWritten() < 2 {
		t.Errorf("got %d bytes written, want at least 2 (two u8 vars)", h.MaxWritten())
	}
}

func TestCompileStructEnumTypealiasDeclarations(t *testing.T) {
	src := `
struct Point {
    x: u8;
    y: u8;
}
enum Color : u8 {
    Red,
    Green,
    Blue,
}
typealias Byte = u8;
bank code @ 0x8000 : [rom; 0x100];
in code {
    var origin : Point;
    var c : Color = Color.Green;
    var b : Byte = 0;
}
`
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wiz")
	if err := ioutil.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	r := report.New(os.Stderr, false)
	defs, err := builtins.ParseDefines(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(r, mcpc16.New(), defs)

	p := parser.New()
	pipeline := c.Pipeline(r, p, []string{dir})
	if _, err := pipeline.Import("", "in.wiz"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if _, ok := c.Compile(); !ok {
		t.Fatalf("Compile failed, %d errors", r.ErrorCount())
	}
}

func TestCompileMissingBankTypeReportsError(t *testing.T) {
	src := `
bank code @ 0x8000;
`
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wiz")
	if err := ioutil.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	r := report.New(ioutil.Discard, false)
	defs, err := builtins.ParseDefines(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := New(r, mcpc16.New(), defs)

	p := parser.New()
	pipeline := c.Pipeline(r, p, []string{dir})
	if _, err := pipeline.Import("", "in.wiz"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if _, ok := c.Compile(); ok {
		t.Fatal("expected Compile to fail for a bank with no element type")
	}
}
