package codegen

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/platform"
)

// dropRedundantGotos implements spec.md 4.9's peephole: an
// unconditional goto immediately followed by the label it targets
// (possibly across other labels at the same point) does nothing and is
// removed before addresses are assigned. Grounded on the teacher's
// mscr/compiler/asm_optimizer.go, which runs exactly this
// jump-to-next-instruction elimination as one of its named passes over
// the flattened instruction list.
func dropRedundantGotos(seq *ir.Sequence) {
	kept := make([]ir.Node, 0, len(seq.Nodes))
	for i, n := range seq.Nodes {
		if code, isCode := n.(*ir.Code); isCode {
			if dest, isGoto := isPlainGoto(code); isGoto && reachesLabel(seq.Nodes[i+1:], dest) {
				continue
			}
		}
		kept = append(kept, n)
	}
	seq.Nodes = kept
}

// isPlainGoto reports whether node is a true unconditional goto (as
// opposed to a flag-conditional branch, whose first operand is the
// tested register rather than the destination string).
func isPlainGoto(node *ir.Code) (dest string, ok bool) {
	it, isType := node.Instruction.(platform.InstructionType)
	if !isType || it.Kind != "branch" || it.Name != ast.BranchGoto.String() {
		return "", false
	}
	if len(node.OperandRoots) != 1 {
		return "", false
	}
	dest, ok = node.OperandRoots[0].Operand.(string)
	return dest, ok
}

// reachesLabel reports whether the first non-Label node of rest is a
// Label named dest — i.e. dest is reached by falling straight through
// whatever labels sit at the same position.
func reachesLabel(rest []ir.Node, dest string) bool {
	for _, n := range rest {
		label, isLabel := n.(*ir.Label)
		if !isLabel {
			return false
		}
		if labelName(label) == dest {
			return true
		}
	}
	return false
}
