package parser

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/undisbeliever/wiz/internal/ast"
)

func parseSource(t *testing.T, src string) *ast.File {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wiz")
	if err := ioutil.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := New().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	return f
}

func TestParseDeclarations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{
			name: "bank and var",
			src: `
bank code @ 0x8000 : [rom; 0x4000];
in code {
    var counter : u8 = 0;
}
`,
			want: 2,
		},
		{
			name: "func with params and return",
			src: `
func add(a: u8, b: u8) -> u8 {
    return a + b;
}
`,
			want: 1,
		},
		{
			name: "struct and enum",
			src: `
struct Point {
    x: u8;
    y: u8;
}
enum Color : u8 {
    Red,
    Green,
    Blue,
}
`,
			want: 2,
		},
		{
			name: "namespace and typealias",
			src: `
namespace gfx {
    typealias Tile = u8;
}
`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseSource(t, tt.src)
			if len(f.Items) != tt.want {
				t.Errorf("got %d top-level items, want %d", len(f.Items), tt.want)
			}
		})
	}
}

func TestParseControlFlow(t *testing.T) {
	src := `
func run() {
    if x == 1 {
        break;
    } else {
        continue;
    }
    while true {
        goto loop when x != 0;
    }
    do {
        x = x + 1;
    } while x < 10;
    for i in 0 .. 10 {
        return;
    }
}
`
	f := parseSource(t, src)
	if len(f.Items) != 1 {
		t.Fatalf("got %d top-level items, want 1", len(f.Items))
	}
	fn, ok := f.Items[0].(*ast.Func)
	if !ok {
		t.Fatalf("top-level item is %T, want *ast.Func", f.Items[0])
	}
	if len(fn.Body) != 4 {
		t.Fatalf("got %d statements in body, want 4", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.If); !ok {
		t.Errorf("body[0] is %T, want *ast.If", fn.Body[0])
	}
	if _, ok := fn.Body[1].(*ast.While); !ok {
		t.Errorf("body[1] is %T, want *ast.While", fn.Body[1])
	}
	if _, ok := fn.Body[2].(*ast.DoWhile); !ok {
		t.Errorf("body[2] is %T, want *ast.DoWhile", fn.Body[2])
	}
	if _, ok := fn.Body[3].(*ast.For); !ok {
		t.Errorf("body[3] is %T, want *ast.For", fn.Body[3])
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	// 1 + 2 * 3 should bind as 1 + (2 * 3), not (1 + 2) * 3.
	src := `
let x = 1 + 2 * 3;
`
	f := parseSource(t, src)
	let, ok := f.Items[0].(*ast.Let)
	if !ok {
		t.Fatalf("top-level item is %T, want *ast.Let", f.Items[0])
	}
	top, ok := let.Value.(*ast.BinaryOperator)
	if !ok {
		t.Fatalf("value is %T, want *ast.BinaryOperator", let.Value)
	}
	if top.Op != ast.OpAdd {
		t.Fatalf("top operator is %v, want OpAdd", top.Op)
	}
	right, ok := top.Right.(*ast.BinaryOperator)
	if !ok {
		t.Fatalf("right operand is %T, want *ast.BinaryOperator", top.Right)
	}
	if right.Op != ast.OpMul {
		t.Fatalf("right operator is %v, want OpMul", right.Op)
	}
}

func TestParseFarAddressOf(t *testing.T) {
	src := `
let x = &far someFunc;
`
	f := parseSource(t, src)
	let := f.Items[0].(*ast.Let)
	op, ok := let.Value.(*ast.UnaryOperator)
	if !ok {
		t.Fatalf("value is %T, want *ast.UnaryOperator", let.Value)
	}
	if op.Op != ast.OpFarAddressOf {
		t.Errorf("got op %v, want OpFarAddressOf", op.Op)
	}
}

func TestParseFarWithoutAddressOfFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wiz")
	if err := ioutil.WriteFile(path, []byte("let x = far someFunc;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New().ParseFile(path); err == nil {
		t.Fatal("expected an error for 'far' without a preceding '&', got nil")
	}
}

func TestParseTupleVsGrouping(t *testing.T) {
	src := `
let a = (1);
let b = (1, 2);
`
	f := parseSource(t, src)
	a := f.Items[0].(*ast.Let)
	if _, ok := a.Value.(*ast.IntegerLiteral); !ok {
		t.Errorf("(1) parsed as %T, want a bare *ast.IntegerLiteral", a.Value)
	}
	b := f.Items[1].(*ast.Let)
	tup, ok := b.Value.(*ast.TupleLiteral)
	if !ok {
		t.Fatalf("(1, 2) parsed as %T, want *ast.TupleLiteral", b.Value)
	}
	if len(tup.Elements) != 2 {
		t.Errorf("got %d tuple elements, want 2", len(tup.Elements))
	}
}

func TestParseCommentsStripped(t *testing.T) {
	src := `
// a line comment
let x = 1; /* a block
comment */
let y = "// not a comment";
`
	f := parseSource(t, src)
	if len(f.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(f.Items))
	}
	y := f.Items[1].(*ast.Let)
	str, ok := y.Value.(*ast.StringLiteral)
	if !ok {
		t.Fatalf("y is %T, want *ast.StringLiteral", y.Value)
	}
	if string(str.Value) != "// not a comment" {
		t.Errorf("got %q, want the comment-like text preserved verbatim", str.Value)
	}
}

func TestParseFileNotFound(t *testing.T) {
	if _, err := New().ParseFile(filepath.Join(os.TempDir(), "does-not-exist.wiz")); err == nil {
		t.Fatal("expected an error for a missing file, got nil")
	}
}

func TestParseIntegerLiteralBases(t *testing.T) {
	src := `
let a = 0xFF;
let b = 0b1010;
let c = 1_000;
`
	f := parseSource(t, src)
	want := []int64{255, 10, 1000}
	for i, w := range want {
		lit, ok := f.Items[i].(*ast.Let).Value.(*ast.IntegerLiteral)
		if !ok {
			t.Fatalf("item %d value is %T, want *ast.IntegerLiteral", i, f.Items[i].(*ast.Let).Value)
		}
		got, ok := lit.Value.Int64()
		if !ok || got != w {
			t.Errorf("item %d: got %v, want %d", i, lit.Value, w)
		}
	}
}
