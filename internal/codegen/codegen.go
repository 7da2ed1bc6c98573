// Package codegen implements the two-pass assembler from spec.md 4.9:
// a sizing pass that walks the flat internal/ir sequence assigning
// every Label and Var a bank-relative address and every Code node a
// selected instruction and byte size, and a write pass that re-walks
// the same sequence encoding and emitting bytes, asserting that every
// address it reaches matches what the sizing pass predicted.
//
// Grounded on the teacher's mscr/compiler/asm_optimizer.go pass
// structure (a fixed list of named passes run in sequence over the
// assembled instruction list) for the two-pass shape itself, and on
// asm_types.go's cursor/binData bump-allocator fields (now
// internal/bank.Bank) for what each pass tracks as it walks.
package codegen

import (
	"github.com/undisbeliever/wiz/internal/ast"
	"github.com/undisbeliever/wiz/internal/bank"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/instrsel"
	"github.com/undisbeliever/wiz/internal/int128"
	"github.com/undisbeliever/wiz/internal/ir"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/platform"
	"github.com/undisbeliever/wiz/internal/report"
	"github.com/undisbeliever/wiz/internal/serialize"
	"github.com/undisbeliever/wiz/internal/typeck"
)

// bankFrame is one entry of the PushRelocation/PopRelocation stack
// (spec.md 4.4 "In BANK [at ADDR]").
type bankFrame struct {
	def    *defs.Bank
	handle *bank.Bank
}

// Codegen drives spec.md 4.9's two passes over one assembled sequence.
// One Codegen is constructed per compile, after every function body
// (and inline-call expansion site) has been lowered into a single
// combined internal/ir.Sequence.
type Codegen struct {
	Report   *report.Report
	Platform platform.Platform
	Selector *instrsel.Selector

	// Serializer produces the bytes for a Var's initializer during pass
	// 5b; it calls back into Codegen.FuncAddress for `&func` initializers.
	Serializer *serialize.Serializer

	// Optimize gates the goto-before-label peephole (the CLI's
	// -no-optimize disables it, per spec.md §6).
	Optimize bool

	// Banks lists every allocator in declaration order, rewound at the
	// start of each pass.
	Banks []*bank.Bank

	// labelAddrs records the bank-relative cursor pass 5a observed at
	// each Label node, checked for drift during pass 5b (spec.md §8's
	// label consistency invariant covers every label, not just the ones
	// backed by a Func).
	labelAddrs map[*ir.Label]int

	// labelAddress indexes every label (synthetic or Func-backed) by
	// labelName, the same name internal/cflow's branch/goto destinations
	// carry as a bare string (they're never resolved to a *ir.Label at
	// lowering time, since the label node doesn't exist until this
	// sequence is walked). resolveOperand consults it to turn a
	// destination string into a real address.
	labelAddress map[string]defs.Address
}

// New constructs a Codegen. sel must have been built against the same
// platform.
func New(r *report.Report, p platform.Platform, sel *instrsel.Selector, banks []*bank.Bank, optimize bool) *Codegen {
	c := &Codegen{
		Report:     r,
		Platform:   p,
		Selector:   sel,
		Banks:      banks,
		Optimize:   optimize,
		labelAddrs: map[*ir.Label]int{},
		labelAddress: map[string]defs.Address{},
	}
	c.Serializer = serialize.New(c)
	return c
}

// FuncAddress implements serialize.FuncAddressResolver, reading back
// the address pass 5a (or a completed pass 5b) recorded on f.
func (c *Codegen) FuncAddress(f *defs.Func) (opt.Value[int], bool) {
	addr, ok := f.Address.Get()
	if !ok {
		return opt.None[int](), false
	}
	if abs, ok := addr.Absolute.Get(); ok {
		n, exact := abs.Int64()
		return opt.Some(int(n)), exact
	}
	if rel, ok := addr.Relative.Get(); ok {
		n, exact := rel.Int64()
		return opt.Some(int(n)), exact
	}
	return opt.None[int](), false
}

// Generate runs the full spec.md 4.9 pipeline: an optional peephole,
// then pass 5a, then (only if 5a left no errors) pass 5b. It reports
// through c.Report and returns whether the final image is usable.
func (c *Codegen) Generate(seq *ir.Sequence) bool {
	if c.Optimize {
		dropRedundantGotos(seq)
	}
	if !c.sizePass(seq) || !c.Report.Validate() {
		return false
	}
	if !c.writePass(seq) || !c.Report.Validate() {
		return false
	}
	return true
}

func (c *Codegen) rewindBanks() {
	for _, b := range c.Banks {
		b.Rewind()
	}
}

func topFrame(stack []bankFrame) (bankFrame, bool) {
	if len(stack) == 0 {
		return bankFrame{}, false
	}
	return stack[len(stack)-1], true
}

func (c *Codegen) resolveBankHandle(pos report.Position, def *defs.Bank) (*bank.Bank, bool) {
	h, ok := def.Handle.(*bank.Bank)
	if !ok {
		c.Report.InternalError(pos, "bank '%s' has no allocator handle assigned by storage reservation", def.DeclName())
		return nil, false
	}
	return h, true
}

func labelName(l *ir.Label) string {
	if l.Func != nil {
		return l.Func.DeclName()
	}
	return l.Name
}

// currentAddress builds the defs.Address a Label/Var reached at
// frame's current cursor.
func (c *Codegen) currentAddress(frame bankFrame) defs.Address {
	addr := defs.Address{Bank: frame.def}
	if abs, ok := frame.handle.AbsoluteAddress(); ok {
		addr.Absolute = opt.Some(int128.FromInt64(int64(abs)))
	} else {
		addr.Relative = opt.Some(int128.FromInt64(int64(frame.handle.CurrentAddress())))
	}
	return addr
}

// ---------------------------------------------------------------------
// Pass 5a: sizing
// ---------------------------------------------------------------------

func (c *Codegen) sizePass(seq *ir.Sequence) bool {
	c.rewindBanks()
	var stack []bankFrame
	ok := true
	for _, n := range seq.Nodes {
		switch node := n.(type) {
		case *ir.PushRelocation:
			h, found := c.resolveBankHandle(node.Position(), node.Bank)
			if !found {
				ok = false
				continue
			}
			if addr, has := node.Address.Get(); has {
				if !h.AbsoluteSeek(c.Report, node.Position(), addr) {
					ok = false
				}
			}
			stack = append(stack, bankFrame{def: node.Bank, handle: h})
		case *ir.PopRelocation:
			if len(stack) == 0 {
				c.Report.InternalError(node.Position(), "bank stack underflow")
				ok = false
				continue
			}
			stack = stack[:len(stack)-1]
		case *ir.Label:
			frame, has := topFrame(stack)
			if !has {
				c.Report.InternalError(node.Position(), "label '%s' emitted outside any bank", labelName(node))
				ok = false
				continue
			}
			c.labelAddrs[node] = frame.handle.CurrentAddress()
			addr := c.currentAddress(frame)
			c.labelAddress[labelName(node)] = addr
			if node.Func != nil {
				node.Func.Address = opt.Some(addr)
			}
		case *ir.Code:
			frame, has := topFrame(stack)
			if !has {
				c.Report.InternalError(node.Position(), "instruction emitted outside any bank")
				ok = false
				continue
			}
			if !c.sizeCode(node, frame) {
				ok = false
			}
		case *ir.Var:
			frame, has := topFrame(stack)
			if !has {
				c.Report.InternalError(node.Position(), "variable '%s' declared outside any bank", node.Def.DeclName())
				ok = false
				continue
			}
			if !c.sizeVar(node, frame) {
				ok = false
			}
		}
	}
	if len(stack) != 0 {
		c.Report.InternalError(report.Position{}, "codegen: %d bank(s) left open at end of sequence", len(stack))
		ok = false
	}
	return ok
}

func (c *Codegen) sizeCode(node *ir.Code, frame bankFrame) bool {
	it, isType := node.Instruction.(platform.InstructionType)
	if !isType {
		c.Report.InternalError(node.Position(), "codegen: Code node carries a %T instruction tag, want platform.InstructionType", node.Instruction)
		return false
	}
	roots := c.resolveRoots(node.Position(), node.OperandRoots, true)
	inst := c.Selector.Select(node.Position(), it, node.Mode, roots)
	if inst == nil {
		return false
	}
	node.Encoding = inst
	node.Size = inst.Encoding.CalculateSize(instrsel.ExtractCaptures(roots))
	return frame.handle.ReserveRom(c.Report, node.Position(), it.String(), node.Size)
}

// sizeVar implements spec.md 4.9's Var handling: seek to an explicit
// address if given, assign the resolved address and storage size, then
// restore the cursor so an out-of-line var (a fixed hardware register,
// say) doesn't consume space from the surrounding sequential layout.
func (c *Codegen) sizeVar(node *ir.Var, frame bankFrame) bool {
	v := node.Def
	t, isType := v.ResolvedType.(*typeck.Type)
	if !isType {
		c.Report.InternalError(node.Position(), "variable '%s' has no resolved type at codegen time", v.DeclName())
		return false
	}
	size, hasSize := t.StorageSize()
	if !hasSize {
		c.Report.Error(node.Position(), "variable '%s' has unknown storage size", v.DeclName())
		return false
	}

	saved := frame.handle.CurrentAddress()
	if addr, has := node.Address.Get(); has {
		if !frame.handle.AbsoluteSeek(c.Report, node.Position(), addr) {
			return false
		}
	}

	v.Address = opt.Some(c.currentAddress(frame))
	v.StorageSize = opt.Some(size)
	ok := frame.handle.ReserveRom(c.Report, node.Position(), v.DeclName(), size)

	if node.Address.IsSome() {
		frame.handle.SeekRelative(saved)
	}
	return ok
}

// ---------------------------------------------------------------------
// Pass 5b: writing
// ---------------------------------------------------------------------

func (c *Codegen) writePass(seq *ir.Sequence) bool {
	c.rewindBanks()
	var stack []bankFrame
	ok := true
	for _, n := range seq.Nodes {
		switch node := n.(type) {
		case *ir.PushRelocation:
			h, found := c.resolveBankHandle(node.Position(), node.Bank)
			if !found {
				ok = false
				continue
			}
			if addr, has := node.Address.Get(); has {
				if !h.AbsoluteSeek(c.Report, node.Position(), addr) {
					ok = false
				}
			}
			stack = append(stack, bankFrame{def: node.Bank, handle: h})
		case *ir.PopRelocation:
			if len(stack) == 0 {
				c.Report.InternalError(node.Position(), "bank stack underflow")
				ok = false
				continue
			}
			stack = stack[:len(stack)-1]
		case *ir.Label:
			frame, has := topFrame(stack)
			if !has {
				c.Report.InternalError(node.Position(), "label '%s' emitted outside any bank", labelName(node))
				ok = false
				continue
			}
			if recorded, known := c.labelAddrs[node]; known {
				if actual := frame.handle.CurrentAddress(); actual != recorded {
					c.Report.InternalError(node.Position(), "label '%s' drifted between passes: pass one placed it at %d, pass two reached %d", labelName(node), recorded, actual)
					ok = false
				}
			}
		case *ir.Code:
			frame, has := topFrame(stack)
			if !has {
				c.Report.InternalError(node.Position(), "instruction emitted outside any bank")
				ok = false
				continue
			}
			if !c.writeCode(node, frame) {
				ok = false
			}
		case *ir.Var:
			frame, has := topFrame(stack)
			if !has {
				c.Report.InternalError(node.Position(), "variable '%s' declared outside any bank", node.Def.DeclName())
				ok = false
				continue
			}
			if !c.writeVar(node, frame) {
				ok = false
			}
		}
	}
	return ok
}

func (c *Codegen) writeCode(node *ir.Code, frame bankFrame) bool {
	inst, ok := node.Encoding.(*platform.Instruction)
	if !ok {
		c.Report.InternalError(node.Position(), "codegen: instruction was never selected during sizing")
		return false
	}
	roots := c.resolveRoots(node.Position(), node.OperandRoots, false)
	bytes := inst.Encoding.Encode(instrsel.ExtractCaptures(roots))
	if len(bytes) != node.Size {
		c.Report.InternalError(node.Position(), "codegen: encoded size %d does not match the %d bytes sizing reserved", len(bytes), node.Size)
		return false
	}
	return frame.handle.Write(c.Report, node.Position(), inst.Type.String(), bytes)
}

func (c *Codegen) writeVar(node *ir.Var, frame bankFrame) bool {
	v := node.Def
	t, _ := v.ResolvedType.(*typeck.Type)
	size, _ := t.StorageSize()

	saved := frame.handle.CurrentAddress()
	if addr, has := node.Address.Get(); has {
		if !frame.handle.AbsoluteSeek(c.Report, node.Position(), addr) {
			return false
		}
	}

	ok := true
	if frame.handle.BankKind == bank.KindRam {
		// A RAM bank never produces output bytes; the space was already
		// validated as free during pass 5a, so just retrace the cursor.
		frame.handle.SeekRelative(frame.handle.CurrentAddress() + size)
	} else {
		data := make([]byte, size)
		if v.InitializerExpr != nil {
			bytes, err := c.Serializer.Serialize(v.InitializerExpr, t)
			if err != nil {
				c.Report.Error(node.Position(), "%s", err)
				ok = false
			} else {
				copy(data, bytes)
			}
		}
		if ok {
			ok = frame.handle.Write(c.Report, node.Position(), v.DeclName(), data)
		}
	}

	if node.Address.IsSome() {
		frame.handle.SeekRelative(saved)
	}
	return ok
}

// ---------------------------------------------------------------------
// Late operand resolution
// ---------------------------------------------------------------------

// resolveRoots produces the operand list instruction selection and
// encoding actually consume, substituting a func/var address into any
// leaf that internal/cflow left as a plain identifier reference
// (addresses aren't known until pass 5a has run). placeholder selects
// between the platform's sizing sentinel (pass 5a) and the real
// resolved value (pass 5b); everything else in an operand's expression
// tree already went through internal/exprred at lowering time and
// passes through unchanged.
func (c *Codegen) resolveRoots(pos report.Position, roots []ir.OperandRoot, placeholder bool) []ir.OperandRoot {
	out := make([]ir.OperandRoot, len(roots))
	for i, r := range roots {
		if r.SourceExpr == nil {
			if name, isLabel := r.Operand.(string); isLabel {
				out[i] = ir.OperandRoot{Operand: c.resolveLabel(pos, name, placeholder)}
				continue
			}
			out[i] = r
			continue
		}
		out[i] = ir.OperandRoot{SourceExpr: r.SourceExpr, Operand: c.resolveOperand(pos, r.SourceExpr, placeholder)}
	}
	return out
}

// resolveLabel turns a branch/goto destination (carried as a bare
// string since internal/cflow mints it before the *ir.Label it refers
// to has even been appended to the sequence) into its resolved
// address, the same way resolveOperand does for Var/Func identifiers.
// A name with no matching label (return's "" destination, which no
// platform.Instruction should ever consult) is passed through
// unresolved.
func (c *Codegen) resolveLabel(pos report.Position, name string, placeholder bool) interface{} {
	if name == "" {
		return name
	}
	addr, known := c.labelAddress[name]
	if !known {
		if placeholder {
			return c.Platform.PlaceholderValue()
		}
		c.Report.InternalError(pos, "label '%s' has no assigned address in pass 5b", name)
		return c.Platform.PlaceholderValue()
	}
	v, exact := addressValue(addr)
	if !exact {
		if placeholder {
			return c.Platform.PlaceholderValue()
		}
		c.Report.InternalError(pos, "label '%s' has no concrete address in pass 5b", name)
		return c.Platform.PlaceholderValue()
	}
	return v
}

func (c *Codegen) resolveOperand(pos report.Position, e ast.Expr, placeholder bool) interface{} {
	switch n := e.(type) {
	case *ast.UnaryOperator:
		if n.Op == ast.OpAddressOf || n.Op == ast.OpFarAddressOf {
			return c.resolveOperand(pos, n.Operand, placeholder)
		}
	case *ast.ResolvedIdentifier:
		switch def := n.Def.(type) {
		case *defs.Func:
			if addr, isKnown := c.funcAddressValue(def); isKnown {
				return addr
			}
			if placeholder {
				return c.Platform.PlaceholderValue()
			}
			c.Report.InternalError(pos, "function '%s' has no assigned address in pass 5b", def.DeclName())
			return c.Platform.PlaceholderValue()
		case *defs.Var:
			if addr, isKnown := c.varAddressValue(def); isKnown {
				return addr
			}
			if placeholder {
				return c.Platform.PlaceholderValue()
			}
			c.Report.InternalError(pos, "variable '%s' has no assigned address in pass 5b", def.DeclName())
			return c.Platform.PlaceholderValue()
		}
	}
	return e
}

func (c *Codegen) funcAddressValue(f *defs.Func) (int128.Int, bool) {
	addr, ok := f.Address.Get()
	if !ok {
		return int128.Int{}, false
	}
	return addressValue(addr)
}

func (c *Codegen) varAddressValue(v *defs.Var) (int128.Int, bool) {
	addr, ok := v.Address.Get()
	if !ok {
		return int128.Int{}, false
	}
	return addressValue(addr)
}

func addressValue(addr defs.Address) (int128.Int, bool) {
	if abs, ok := addr.Absolute.Get(); ok {
		return abs, true
	}
	if rel, ok := addr.Relative.Get(); ok {
		return rel, true
	}
	return int128.Int{}, false
}
