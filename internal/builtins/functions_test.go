package builtins

import (
	"io/ioutil"
	"testing"

	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/platform/mcpc16"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/scope"
)

func TestPopulateRootScopeBindsIntegerTypesBoolAndRegisters(t *testing.T) {
	r := report.New(ioutil.Discard, false)
	sc := scope.New("root", nil)
	PopulateRootScope(sc, r, mcpc16.New())
	if !r.Validate() {
		t.Fatalf("got %d diagnostics populating the root scope, want 0", r.ErrorCount())
	}

	for _, name := range []string{"u8", "u16", "bool", "iexpr", "range", "rom", "ram", "peek", "peekw", "swap", "debugbreak"} {
		if _, ok := sc.FindLocal(name); !ok {
			t.Errorf("root scope missing builtin %q", name)
		}
	}
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		d, ok := sc.FindLocal(name)
		if !ok {
			t.Errorf("root scope missing register %q", name)
			continue
		}
		if _, ok := d.(*defs.BuiltinRegister); !ok {
			t.Errorf("%q resolved to %T, want *defs.BuiltinRegister", name, d)
		}
	}
}

func TestIsFunctionAttribute(t *testing.T) {
	for _, name := range []string{"irq", "nmi", "fallthrough"} {
		if !IsFunctionAttribute(name) {
			t.Errorf("expected %q to be a function attribute", name)
		}
	}
	for _, name := range []string{"compile_if", "far", "unknown"} {
		if IsFunctionAttribute(name) {
			t.Errorf("did not expect %q to be a function attribute", name)
		}
	}
}

func TestApplyFunctionAttributesSetsFlags(t *testing.T) {
	r := report.New(ioutil.Discard, false)
	f := defs.NewFunc("handler", report.Position{})
	ApplyFunctionAttributes(f, []*ast.Attribute{
		{Name: "irq"},
		{Name: "fallthrough"},
		{Name: "compile_if"}, // not a function attribute, silently ignored here
	}, r)
	if !f.IRQ {
		t.Error("expected IRQ to be set")
	}
	if !f.Fallthrough {
		t.Error("expected Fallthrough to be set")
	}
	if f.NMI {
		t.Error("did not expect NMI to be set")
	}
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
}

func TestApplyFunctionAttributesRejectsArguments(t *testing.T) {
	r := report.New(ioutil.Discard, false)
	f := defs.NewFunc("handler", report.Position{})
	ApplyFunctionAttributes(f, []*ast.Attribute{
		{Name: "irq", Args: []ast.Expr{&ast.BooleanLiteral{Value: true}}},
	}, r)
	if f.IRQ {
		t.Error("did not expect IRQ to be set when the attribute carries an argument")
	}
	if r.Validate() {
		t.Fatal("expected an error for irq with an argument")
	}
}
