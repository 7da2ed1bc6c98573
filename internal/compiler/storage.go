package compiler

import (
	"github.com/undisbeliever/wiz/internal/bank"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// allocateBanks implements phase 3's bank half ("place every stored
// var/const in its bank... lay out nested constants"; the allocator
// object itself). A bank's capacity and rom/ram-ness come from its
// TypeExpr having reduced, in phase 2, to `[rom; N]`/`[ram; N]` (an array of
// the builtin rom/ram element type with a known length); its origin
// comes from an optional explicit `@address`. Pad bytes default to 0;
// no surface in this AST configures a per-bank pad value (see
// DESIGN.md).
func (c *Compiler) allocateBanks() {
	for _, b := range c.banks {
		c.allocateBank(b)
	}
}

func (c *Compiler) allocateBank(b *defs.Bank) {
	t, ok := b.ResolvedType.(*typeck.Type)
	if !ok || t.Kind != typeck.KindArray || !t.ArrayHasLength {
		c.Report.Error(b.DeclPosition(), "bank '%s' must declare a sized [rom; N]/[ram; N] element type", b.DeclName())
		return
	}
	elem := t.ArrayElement
	if elem == nil || elem.Kind != typeck.KindBankType {
		c.Report.Error(b.DeclPosition(), "bank '%s' element type must be 'rom' or 'ram'", b.DeclName())
		return
	}

	kind := bank.KindRom
	if elem.BankTypeKind == defs.BankKindRam {
		kind = bank.KindRam
	}
	b.BankKind = elem.BankTypeKind

	origin := opt.None[int]()
	if b.AddressExpr != nil {
		if addr, ok := c.Expr.ReduceCompileTimeInt(b.AddressExpr, c.bankScope[b]); ok {
			origin = opt.Some(addr)
		} else {
			c.Report.Error(b.AddressExpr.Position(), "bank '%s' address must be a compile-time integer", b.DeclName())
		}
	}

	handle := bank.New(b.DeclName(), kind, origin, t.ArrayLength, 0)
	c.bankHandles[b] = handle
	b.Handle = handle
}
