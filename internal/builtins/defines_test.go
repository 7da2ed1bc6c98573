package builtins

import (
	"testing"

	"github.com/undisbeliever/wiz/internal/ast"
)

func TestParseDefinesBareName(t *testing.T) {
	d, err := ParseDefines([]string{"DEBUG"})
	if err != nil {
		t.Fatal(err)
	}
	e, ok := d.Lookup("DEBUG")
	if !ok {
		t.Fatal("expected DEBUG to be defined")
	}
	lit, ok := e.(*ast.BooleanLiteral)
	if !ok || !lit.Value {
		t.Fatalf("got %#v, want true boolean literal", e)
	}
}

func TestParseDefinesIntegerValue(t *testing.T) {
	d, err := ParseDefines([]string{"LEVEL=3", "MASK=0xFF"})
	if err != nil {
		t.Fatal(err)
	}
	level, _ := d.Lookup("LEVEL")
	lit, ok := level.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("LEVEL is %T, want *ast.IntegerLiteral", level)
	}
	if v, _ := lit.Value.Int64(); v != 3 {
		t.Errorf("LEVEL got %v, want 3", lit.Value)
	}

	mask, _ := d.Lookup("MASK")
	maskLit, ok := mask.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("MASK is %T, want *ast.IntegerLiteral", mask)
	}
	if v, _ := maskLit.Value.Int64(); v != 0xFF {
		t.Errorf("MASK got %v, want 255", maskLit.Value)
	}
}

func TestParseDefinesBoolAndStringValue(t *testing.T) {
	d, err := ParseDefines([]string{"FEATURE=false", "NAME=hello"})
	if err != nil {
		t.Fatal(err)
	}
	feature, _ := d.Lookup("FEATURE")
	if lit, ok := feature.(*ast.BooleanLiteral); !ok || lit.Value {
		t.Fatalf("FEATURE got %#v, want false boolean literal", feature)
	}
	name, _ := d.Lookup("NAME")
	str, ok := name.(*ast.StringLiteral)
	if !ok || string(str.Value) != "hello" {
		t.Fatalf("NAME got %#v, want string literal \"hello\"", name)
	}
}

func TestParseDefinesRejectsMissingName(t *testing.T) {
	if _, err := ParseDefines([]string{"=1"}); err == nil {
		t.Fatal("expected an error for a -D flag with no name")
	}
}

func TestParseDefinesLookupMiss(t *testing.T) {
	d, err := ParseDefines(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.Lookup("MISSING"); ok {
		t.Fatal("expected Lookup to report false for an undefined name")
	}
	var nilDefines *Defines
	if _, ok := nilDefines.Lookup("ANY"); ok {
		t.Fatal("expected a nil *Defines to report every lookup as false")
	}
}
