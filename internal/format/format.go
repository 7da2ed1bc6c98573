// Package format provides the output-writing half of a toolchain run:
// the Format collaborator spec.md §1 scopes out of the core pipeline
// ("external collaborators... not specified here"). It consumes a
// finished compiler.Result and produces the bytes a CLI writes to
// disk.
//
// Grounded on original_source/src/wiz/format/gb_format.h's
// `GameBoyFormat : public Format { generate(FormatContext&) }` shape:
// a small interface implemented once per output convention, given
// read-only access to the finished banks.
package format

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/bank"
	"github.com/undisbeliever/wiz/internal/defs"
)

// Context is the read-only view a Format gets of a finished
// compilation: every bank in declaration order, plus its backing
// storage handle (nil for banks that produced no handle, which
// shouldn't happen for a successful compile but is checked rather than
// assumed).
type Context struct {
	Banks   []*defs.Bank
	Handles map[*defs.Bank]*bank.Bank
}

// Format turns a finished Context into the bytes a particular output
// convention expects.
type Format interface {
	Generate(ctx *Context) ([]byte, error)
}

// RawFormat concatenates every ROM-kind bank's buffer, in declaration
// order, with no header. RAM-kind banks contribute nothing: they were
// never meant to hold static bytes.
type RawFormat struct{}

func (RawFormat) Generate(ctx *Context) ([]byte, error) {
	var out []byte
	for _, b := range ctx.Banks {
		if b.BankKind != defs.BankKindRom {
			continue
		}
		h, ok := ctx.Handles[b]
		if !ok {
			return nil, fmt.Errorf("bank '%s' has no storage handle", b.DeclName())
		}
		out = append(out, h.Buffer()...)
	}
	return out, nil
}
