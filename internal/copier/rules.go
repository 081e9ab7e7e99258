package copier

import (
	"fmt"

	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

// Reduce rules. Each rule reads the attributes of the node's children from
// the current frame and stores the rewritten node as the frame's result.

func (c *Copier) arg(i int) til.Node { return c.attrs.Attr(i).Exp }

func (c *Copier) setResult(n til.Node) { c.attrs.Result().Exp = n }

func (c *Copier) declArg(i int) *til.VarDecl {
	vd, ok := c.arg(i).(*til.VarDecl)
	if !ok {
		panic(errors.BadBinder(fmt.Sprintf("expected declaration, got %T", c.arg(i))))
	}
	return vd
}

// ReduceNull keeps absent children absent.
func (c *Copier) ReduceNull() { c.setResult(nil) }

// ReduceWeak resolves a reference to an instruction that was already
// rewritten in an earlier block.
func (c *Copier) ReduceWeak(in til.Instruction) {
	a, ok := c.scope.Instr(in)
	if !ok {
		panic(errors.UnmappedInstruction(in.InstrID()))
	}
	c.setResult(a.Exp)
}

// ReduceBBArgument does nothing: block arguments are mapped when their
// block is created.
func (c *Copier) ReduceBBArgument(ph *til.Phi) {}

// ReduceBBInstruction records the rewritten instruction so later
// references to it resolve.
func (c *Copier) ReduceBBInstruction(in til.Instruction) {
	c.scope.InsertInstructionMap(in, c.attrs.Last())
}

// ReduceAnnotation copies a through its own Copy with the rewritten
// operands.
func (c *Copier) ReduceAnnotation(a til.Annotation) {
	ops := make([]til.Node, c.attrs.NumAttrs())
	for i := range ops {
		ops[i] = c.arg(i)
	}
	c.resultAnn = a.Copy(ops)
}

// ReduceVarDecl creates the declaration that EnterScope binds.
func (c *Copier) ReduceVarDecl(n *til.VarDecl) {
	c.setResult(c.Builder.NewVarDecl(n.Kind, n.Name, c.arg(0)))
}

func (c *Copier) ReduceFunction(n *til.Function) {
	c.setResult(c.Builder.NewFunction(c.declArg(0), c.arg(1)))
}

// ReduceCode keeps the calling convention of n.
func (c *Copier) ReduceCode(n *til.Code) {
	code := c.Builder.NewCode(c.arg(0), c.arg(1))
	code.CallingConv = n.CallingConv
	c.setResult(code)
}

func (c *Copier) ReduceField(n *til.Field) {
	c.setResult(c.Builder.NewField(c.arg(0), c.arg(1)))
}

// ReduceSlot keeps the slot modifiers of n.
func (c *Copier) ReduceSlot(n *til.Slot) {
	s := c.Builder.NewSlot(n.Name, c.arg(0))
	s.Modifiers = n.Modifiers
	c.setResult(s)
}

// ReduceRecord expects the parent followed by one attribute per slot.
func (c *Copier) ReduceRecord(n *til.Record) {
	if c.attrs.NumAttrs()-1 != len(n.Slots) {
		panic(errors.ShapeMismatch("record slots", len(n.Slots), c.attrs.NumAttrs()-1))
	}
	r := c.Builder.NewRecord(len(n.Slots), c.arg(0))
	for i := range n.Slots {
		s, ok := c.arg(i + 1).(*til.Slot)
		if !ok {
			panic(errors.ShapeMismatch("record slot "+n.Slots[i].Name, 1, 0))
		}
		r.AddSlot(s)
	}
	c.setResult(r)
}

// ReduceArray copies concrete arrays element by element and symbolic
// arrays from their element type and size.
func (c *Copier) ReduceArray(n *til.Array) {
	if !n.Concrete() {
		c.setResult(c.Builder.NewSymbolicArray(c.arg(0), c.arg(1)))
		return
	}
	if c.attrs.NumAttrs()-2 != n.NumElements() {
		panic(errors.ShapeMismatch("array elements", n.NumElements(), c.attrs.NumAttrs()-2))
	}
	a := c.Builder.NewArray(c.arg(0), n.NumElements())
	for i := 0; i < n.NumElements(); i++ {
		c.Builder.SetArrayElement(a, i, c.arg(i+2))
	}
	c.setResult(a)
}

// ReduceScalarType shares scalar types.
func (c *Copier) ReduceScalarType(n *til.ScalarType) { c.setResult(n) }

func (c *Copier) ReduceLiteral(n *til.Literal) {
	c.setResult(c.Builder.NewLiteral(n.Type, n.Value))
}

// ReduceVariable substitutes bound variables. Free variables are copied
// and keep their declaration.
func (c *Copier) ReduceVariable(n *til.Variable) {
	idx := n.Decl.VarIndex()
	if !c.scope.IsNull(idx) {
		c.setResult(c.scope.Var(idx).Exp)
		return
	}
	c.setResult(c.Builder.NewVariable(n.Decl))
}

func (c *Copier) ReduceApply(n *til.Apply) {
	c.setResult(c.Builder.NewApply(c.arg(0), c.arg(1), n.Kind))
}

func (c *Copier) ReduceProject(n *til.Project) {
	p := c.Builder.NewProject(c.arg(0), n.SlotName)
	p.Arrow = n.Arrow
	c.setResult(p)
}

// ReduceCall keeps the calling convention of n, like ReduceCode.
func (c *Copier) ReduceCall(n *til.Call) {
	call := c.Builder.NewCall(c.arg(0))
	call.CallingConv = n.CallingConv
	c.setResult(call)
}

func (c *Copier) ReduceAlloc(n *til.Alloc) {
	c.setResult(c.Builder.NewAlloc(c.arg(0), n.Kind))
}

func (c *Copier) ReduceLoad(n *til.Load) {
	c.setResult(c.Builder.NewLoad(c.arg(0)))
}

func (c *Copier) ReduceStore(n *til.Store) {
	c.setResult(c.Builder.NewStore(c.arg(0), c.arg(1)))
}

func (c *Copier) ReduceArrayIndex(n *til.ArrayIndex) {
	c.setResult(c.Builder.NewArrayIndex(c.arg(0), c.arg(1)))
}

func (c *Copier) ReduceArrayAdd(n *til.ArrayAdd) {
	c.setResult(c.Builder.NewArrayAdd(c.arg(0), c.arg(1)))
}

func (c *Copier) ReduceUnaryOp(n *til.UnaryOp) {
	c.setResult(c.Builder.NewUnaryOp(n.Op, c.arg(0)))
}

func (c *Copier) ReduceBinaryOp(n *til.BinaryOp) {
	c.setResult(c.Builder.NewBinaryOp(n.Op, c.arg(0), c.arg(1)))
}

func (c *Copier) ReduceCast(n *til.Cast) {
	c.setResult(c.Builder.NewCast(n.Op, c.arg(0)))
}

// ReducePhi only sees phis that are not block arguments. They keep their
// arity but carry no values.
func (c *Copier) ReducePhi(n *til.Phi) {
	c.setResult(&til.Phi{Values: make([]til.Node, len(n.Values))})
}

// ReduceGoto rewrites the edge and threads its arguments into the phis of
// the rewritten target, at the predecessor slot the new edge occupies.
func (c *Copier) ReduceGoto(n *til.Goto) {
	target := c.lookupBlock(n.Target)
	if len(target.Args) != c.attrs.NumAttrs() {
		panic(errors.ShapeMismatch("goto arguments", len(target.Args), c.attrs.NumAttrs()))
	}
	g := c.Builder.NewGoto(target)
	for i, ph := range target.Args {
		c.Builder.SetPhiArgument(ph, c.arg(i), g.Index)
	}
	c.setResult(g)
}

func (c *Copier) ReduceBranch(n *til.Branch) {
	c.setResult(c.Builder.NewBranch(c.arg(0), c.lookupBlock(n.Then), c.lookupBlock(n.Else)))
}

// ReduceSwitch rebuilds the cases in their original order.
func (c *Copier) ReduceSwitch(n *til.Switch) {
	nc := n.NumCases()
	if c.attrs.NumAttrs() != nc+1 {
		panic(errors.ShapeMismatch("switch labels", nc, c.attrs.NumAttrs()-1))
	}
	sw := c.Builder.NewSwitch(c.arg(0), nc)
	for i := 0; i < nc; i++ {
		c.Builder.AddSwitchCase(sw, c.arg(i+1), c.lookupBlock(n.Cases[i]))
	}
	c.setResult(sw)
}

func (c *Copier) ReduceReturn(n *til.Return) {
	c.setResult(c.Builder.NewReturn(c.arg(0)))
}

// ReduceBasicBlock yields the block n maps to.
func (c *Copier) ReduceBasicBlock(n *til.BasicBlock) {
	c.setResult(c.scope.LookupBlock(n))
}

// ReduceSCFG runs before the graph is closed, while its block map is open.
func (c *Copier) ReduceSCFG(n *til.SCFG) {
	if got := c.scope.NumMappedBlocks(); got != n.NumBlocks() {
		panic(errors.ShapeMismatch("mapped blocks in "+n.Name, n.NumBlocks(), got))
	}
	c.setResult(c.Builder.CurrentCFG())
}

func (c *Copier) ReduceUndefined(n *til.Undefined) { c.setResult(c.Builder.NewUndefined()) }

func (c *Copier) ReduceWildcard(n *til.Wildcard) { c.setResult(c.Builder.NewWildcard()) }

func (c *Copier) ReduceIdentifier(n *til.Identifier) {
	c.setResult(c.Builder.NewIdentifier(n.Name))
}

func (c *Copier) ReduceLet(n *til.Let) {
	c.setResult(c.Builder.NewLet(c.declArg(0), c.arg(1)))
}

func (c *Copier) ReduceIfThenElse(n *til.IfThenElse) {
	c.setResult(c.Builder.NewIfThenElse(c.arg(0), c.arg(1), c.arg(2)))
}
