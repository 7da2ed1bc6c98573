// Package instrsel implements the InstructionSelector from spec.md 4.6:
// matching candidate instructions from the platform table against
// operand roots under the currently active mode flags.
//
// No teacher analogue performs real pattern matching (MSCR picks
// instructions by string-comparing regexes over already-flattened
// text); implemented directly per 4.6's contract, in the same
// small-struct-with-slice style the teacher uses for asmCmd/asmParam.
package instrsel

import (
	"fmt"
	"strings"

	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
)

// Selector matches operand roots against a platform's instruction table.
type Selector struct {
	Platform platform.Platform
	Report   *report.Report

	table map[string][]*platform.Instruction
}

// New builds a Selector, indexing the platform's instruction table by
// InstructionType for fast candidate lookup.
func New(p platform.Platform, r *report.Report) *Selector {
	s := &Selector{Platform: p, Report: r, table: map[string][]*platform.Instruction{}}
	for _, inst := range p.InstructionTable() {
		key := inst.Type.String()
		s.table[key] = append(s.table[key], inst)
	}
	return s
}

// Select finds the first candidate instruction whose mode filter is a
// superset of mode and whose signature matches every operand root, in
// table order (spec.md 4.6: "Selection returns the first candidate...").
// On failure it reports a diagnostic listing every candidate signature.
func (s *Selector) Select(pos report.Position, t platform.InstructionType, mode platform.ModeMask, operands []ir.OperandRoot) *platform.Instruction {
	candidates := s.table[t.String()]
	for _, cand := range candidates {
		if !cand.ModeFilter.IsSupersetOf(mode) {
			continue
		}
		if len(cand.Signature) != len(operands) {
			continue
		}
		matched := true
		for i, pat := range cand.Signature {
			if !pat.Matches(operands[i].Operand) {
				matched = false
				break
			}
		}
		if matched {
			return cand
		}
	}

	s.reportNoMatch(pos, t, candidates, operands)
	return nil
}

func (s *Selector) reportNoMatch(pos report.Position, t platform.InstructionType, candidates []*platform.Instruction, operands []ir.OperandRoot) {
	s.Report.Error(pos, "no instruction matches %s for the given operands", t)
	if len(candidates) == 0 {
		s.Report.Continued("no candidate instructions are defined for %s on this platform", t)
		return
	}
	for _, cand := range candidates {
		sigs := make([]string, len(cand.Signature))
		for i, p := range cand.Signature {
			sigs[i] = p.String()
		}
		s.Report.Continued("candidate: %s(%s)", t, strings.Join(sigs, ", "))
	}
	opDescs := make([]string, len(operands))
	for i, o := range operands {
		opDescs[i] = fmt.Sprintf("%v", o.Operand)
	}
	s.Report.Continued("actual operands: (%s)", strings.Join(opDescs, ", "))
}

// ExtractCaptures pulls the values an Encoding needs to size/encode
// itself out of the matched operand roots, in signature order.
func ExtractCaptures(roots []ir.OperandRoot) []interface{} {
	out := make([]interface{}, len(roots))
	for i, r := range roots {
		out[i] = r.Operand
	}
	return out
}
