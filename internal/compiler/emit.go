package compiler

import (
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/scope"
)

// emit implements phase 4 (spec.md §1 "lower statements to a linear
// IR... perform instruction selection... expand inline func
// bodies... lower structured control flow"). Every Func is lowered
// exactly once here, regardless of how deeply it is nested in
// namespaces (c.funcs is the flat list phase 1 built); every
// moduleBlock supplies the var/in/namespace content that sits outside
// any Func's body.
func (c *Compiler) emit() *ir.Sequence {
	seq := &ir.Sequence{}
	for _, f := range c.funcs {
		if f.Inlined {
			// Inline functions are lowered at each call site
			// (internal/cflow's expandInlineCall); a body never reached
			// by any call produces no code, matching spec.md 4.7's
			// "inline func bodies are expanded, never emitted standalone".
			continue
		}
		fseq := c.Lowerer.LowerFuncBody(f, f.EnclosingScope.(*scope.Scope))
		for _, node := range fseq.Nodes {
			seq.Append(node)
		}
	}
	for _, mb := range c.moduleBlocks {
		c.Lowerer.LowerModuleItems(seq, mb.items, mb.scope)
	}
	return seq
}
