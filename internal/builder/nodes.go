package builder

import "github.com/orizon-lang/til/internal/til"

// Constructors. Child slots that receive a pending future are registered
// with it so forcing can patch them.

// NewVarDecl creates an unbound declaration; EnterScope gives it a level.
func (b *Builder) NewVarDecl(kind til.VarKind, name string, def til.Node) *til.VarDecl {
	vd := til.NewVarDecl(kind, name, def)
	til.Track(&vd.Def)
	return vd
}

// NewVariable creates a reference to vd.
func (b *Builder) NewVariable(vd *til.VarDecl) *til.Variable {
	return &til.Variable{Decl: vd}
}

// NewFunction binds vd as the parameter of body.
func (b *Builder) NewFunction(vd *til.VarDecl, body til.Node) *til.Function {
	fn := &til.Function{Decl: vd, Body: body}
	til.Track(&fn.Body)
	return fn
}

// NewCode creates a code block with the default calling convention.
func (b *Builder) NewCode(returnType, body til.Node) *til.Code {
	c := &til.Code{ReturnType: returnType, Body: body}
	til.Track(&c.ReturnType)
	til.Track(&c.Body)
	return c
}

// NewField creates a field over rng.
func (b *Builder) NewField(rng, body til.Node) *til.Field {
	f := &til.Field{Range: rng, Body: body}
	til.Track(&f.Range)
	til.Track(&f.Body)
	return f
}

// NewSlot creates an unmodified slot.
func (b *Builder) NewSlot(name string, def til.Node) *til.Slot {
	s := &til.Slot{Name: name, Def: def}
	til.Track(&s.Def)
	return s
}

// NewRecord creates a record with room for nslots slots.
func (b *Builder) NewRecord(nslots int, parent til.Node) *til.Record {
	r := &til.Record{Parent: parent, Slots: make([]*til.Slot, 0, nslots)}
	til.Track(&r.Parent)
	return r
}

// NewArray creates a concrete array with n element slots.
func (b *Builder) NewArray(elemType til.Node, n int) *til.Array {
	a := til.NewConcreteArray(elemType, n)
	til.Track(&a.ElemType)
	return a
}

// SetArrayElement fills element slot i of a concrete array.
func (b *Builder) SetArrayElement(a *til.Array, i int, e til.Node) {
	a.Elements[i] = e
	til.Track(&a.Elements[i])
}

// NewSymbolicArray creates an array whose length is given by size.
func (b *Builder) NewSymbolicArray(elemType, size til.Node) *til.Array {
	a := til.NewSymbolicArray(elemType, size)
	til.Track(&a.ElemType)
	til.Track(&a.Size)
	return a
}

// NewLiteral creates a literal of scalar type t.
func (b *Builder) NewLiteral(t *til.ScalarType, v interface{}) *til.Literal {
	return &til.Literal{Type: t, Value: v}
}

func (b *Builder) NewApply(fun, arg til.Node, kind til.ApplyKind) *til.Apply {
	a := &til.Apply{Fun: fun, Arg: arg, Kind: kind}
	til.Track(&a.Fun)
	til.Track(&a.Arg)
	return a
}

func (b *Builder) NewProject(rec til.Node, slot string) *til.Project {
	p := &til.Project{Rec: rec, SlotName: slot}
	til.Track(&p.Rec)
	return p
}

// NewCall creates a call with the default calling convention and places
// it when emission is on.
func (b *Builder) NewCall(target til.Node) *til.Call {
	c := &til.Call{Target: target}
	til.Track(&c.Target)
	b.addInstr(c)
	return c
}

func (b *Builder) NewAlloc(init til.Node, kind til.AllocKind) *til.Alloc {
	a := &til.Alloc{Init: init, Kind: kind}
	til.Track(&a.Init)
	b.addInstr(a)
	return a
}

func (b *Builder) NewLoad(ptr til.Node) *til.Load {
	l := &til.Load{Ptr: ptr}
	til.Track(&l.Ptr)
	b.addInstr(l)
	return l
}

// NewStore writes source to dest.
func (b *Builder) NewStore(dest, source til.Node) *til.Store {
	s := &til.Store{Dest: dest, Source: source}
	til.Track(&s.Dest)
	til.Track(&s.Source)
	b.addInstr(s)
	return s
}

func (b *Builder) NewArrayIndex(arr, idx til.Node) *til.ArrayIndex {
	a := &til.ArrayIndex{Array: arr, Index: idx}
	til.Track(&a.Array)
	til.Track(&a.Index)
	b.addInstr(a)
	return a
}

func (b *Builder) NewArrayAdd(arr, idx til.Node) *til.ArrayAdd {
	a := &til.ArrayAdd{Array: arr, Index: idx}
	til.Track(&a.Array)
	til.Track(&a.Index)
	b.addInstr(a)
	return a
}

func (b *Builder) NewUnaryOp(op til.UnaryOpcode, e til.Node) *til.UnaryOp {
	u := &til.UnaryOp{Op: op, Operand: e}
	til.Track(&u.Operand)
	b.addInstr(u)
	return u
}

func (b *Builder) NewBinaryOp(op til.BinaryOpcode, lhs, rhs til.Node) *til.BinaryOp {
	bo := &til.BinaryOp{Op: op, Lhs: lhs, Rhs: rhs}
	til.Track(&bo.Lhs)
	til.Track(&bo.Rhs)
	b.addInstr(bo)
	return bo
}

func (b *Builder) NewCast(op til.CastOpcode, e til.Node) *til.Cast {
	c := &til.Cast{Op: op, Operand: e}
	til.Track(&c.Operand)
	b.addInstr(c)
	return c
}

func (b *Builder) NewUndefined() *til.Undefined { return &til.Undefined{} }

func (b *Builder) NewWildcard() *til.Wildcard { return &til.Wildcard{} }

func (b *Builder) NewIdentifier(name string) *til.Identifier {
	return &til.Identifier{Name: name}
}

// NewLet binds vd in body.
func (b *Builder) NewLet(vd *til.VarDecl, body til.Node) *til.Let {
	l := &til.Let{Decl: vd, Body: body}
	til.Track(&l.Body)
	return l
}

func (b *Builder) NewIfThenElse(cond, then, els til.Node) *til.IfThenElse {
	e := &til.IfThenElse{Cond: cond, Then: then, Else: els}
	til.Track(&e.Cond)
	til.Track(&e.Then)
	til.Track(&e.Else)
	return e
}

/* Terminators. Each one registers its edges and ends the current block. */

// NewGoto jumps from the current block to target. The returned Goto's
// Index is the predecessor slot the edge occupies in target.
func (b *Builder) NewGoto(target *til.BasicBlock) *til.Goto {
	idx := target.AddPredecessor(b.state.Block)
	g := &til.Goto{Target: target, Index: idx}
	b.EndBlock(g)
	return g
}

// NewBranch ends the current block with a two-way branch.
func (b *Builder) NewBranch(cond til.Node, then, els *til.BasicBlock) *til.Branch {
	br := &til.Branch{Cond: cond, Then: then, Else: els}
	then.AddPredecessor(b.state.Block)
	els.AddPredecessor(b.state.Block)
	b.EndBlock(br)
	return br
}

// NewSwitch ends the current block with a switch; cases are added with
// AddSwitchCase.
func (b *Builder) NewSwitch(cond til.Node, ncases int) *til.Switch {
	sw := &til.Switch{
		Cond:   cond,
		Labels: make([]til.Node, 0, ncases),
		Cases:  make([]*til.BasicBlock, 0, ncases),
		From:   b.state.Block,
	}
	b.EndBlock(sw)
	return sw
}

// AddSwitchCase appends a case to sw and registers the edge.
func (b *Builder) AddSwitchCase(sw *til.Switch, label til.Node, target *til.BasicBlock) {
	sw.AddCase(label, target)
	if sw.From != nil {
		target.AddPredecessor(sw.From)
	}
}

// NewReturn ends the current block by returning result.
func (b *Builder) NewReturn(result til.Node) *til.Return {
	r := &til.Return{Result: result}
	b.EndBlock(r)
	return r
}
