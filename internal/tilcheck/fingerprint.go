// Package tilcheck compares and validates TIL terms. It is used to check
// the output of rewrites: that a copy is structurally equal to its source,
// shares no nodes with it, and forms well-shaped graphs.
package tilcheck

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/orizon-lang/til/internal/til"
)

// Fingerprint hashes the structure of n. Bound variables are hashed by
// the distance to their binder and free variables by name, so alpha
// equivalent terms hash alike. References to placed instructions are
// hashed by their position in the graph.
func Fingerprint(n til.Node) uint64 {
	h := &hasher{
		sum:     xxh3.New(),
		binders: make(map[*til.VarDecl]int),
		blocks:  make(map[*til.BasicBlock]int),
		instrs:  make(map[til.Instruction]ipos),
	}
	h.node(n)
	h.flush()
	return h.sum.Sum64()
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b til.Node) bool { return Fingerprint(a) == Fingerprint(b) }

type ipos struct{ block, index int }

type hasher struct {
	sum *xxh3.Hasher
	buf []byte

	depth   int
	binders map[*til.VarDecl]int
	blocks  map[*til.BasicBlock]int
	instrs  map[til.Instruction]ipos
}

func (h *hasher) flush() {
	h.sum.Write(h.buf)
	h.buf = h.buf[:0]
}

func (h *hasher) int(v int) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, uint64(v))
	if len(h.buf) > 4096 {
		h.flush()
	}
}

func (h *hasher) str(s string) {
	h.int(len(s))
	h.buf = append(h.buf, s...)
}

func (h *hasher) tag(op til.Opcode) { h.buf = append(h.buf, byte(op)+1) }

func (h *hasher) annotations(n til.Node) {
	as := n.Annotations()
	h.int(len(as))
	for _, a := range as {
		h.int(int(a.Kind()))
		switch x := a.(type) {
		case *til.SourceLoc:
			h.str(x.Pos.String())
		case *til.InstrName:
			h.str(x.Name)
		}
		for _, op := range a.Operands() {
			h.node(op)
		}
	}
}

func (h *hasher) binder(vd *til.VarDecl, body til.Node) {
	h.node(vd)
	h.binders[vd] = h.depth
	h.depth++
	h.node(body)
	h.depth--
	delete(h.binders, vd)
}

// operand hashes n where it is used rather than defined.
func (h *hasher) operand(n til.Node) {
	if in, ok := n.(til.Instruction); ok && til.IsPlaced(n) {
		if p, ok := h.instrs[in]; ok {
			h.buf = append(h.buf, 'r')
			h.int(p.block)
			h.int(p.index)
			return
		}
		h.buf = append(h.buf, 'x')
		h.int(int(in.Opcode()))
		return
	}
	h.node(n)
}

func (h *hasher) blockRef(b *til.BasicBlock) {
	if p, ok := h.blocks[b]; ok {
		h.int(p)
		return
	}
	h.int(-1)
}

func (h *hasher) node(n til.Node) {
	if n == nil {
		h.buf = append(h.buf, 0)
		return
	}
	h.tag(n.Opcode())

	switch x := n.(type) {
	case *til.VarDecl:
		h.int(int(x.Kind))
		h.str(x.Name)
		h.node(x.Def)
	case *til.Function:
		h.binder(x.Decl, x.Body)
	case *til.Let:
		h.binder(x.Decl, x.Body)
	case *til.Code:
		h.int(int(x.CallingConv))
		h.node(x.ReturnType)
		h.node(x.Body)
	case *til.Field:
		h.node(x.Range)
		h.node(x.Body)
	case *til.Slot:
		h.str(x.Name)
		h.int(int(x.Modifiers))
		h.node(x.Def)
	case *til.Record:
		h.node(x.Parent)
		h.int(len(x.Slots))
		for _, s := range x.Slots {
			h.node(s)
		}
	case *til.Array:
		h.node(x.ElemType)
		if x.Concrete() {
			h.int(x.NumElements())
			for _, e := range x.Elements {
				h.operand(e)
			}
		} else {
			h.int(-1)
			h.operand(x.Size)
		}
	case *til.ScalarType:
		h.str(x.Name)
	case *til.Literal:
		h.str(x.Type.Name)
		h.str(fmt.Sprint(x.Value))
	case *til.Variable:
		if d, ok := h.binders[x.Decl]; ok {
			h.buf = append(h.buf, 'b')
			h.int(h.depth - d)
		} else {
			h.buf = append(h.buf, 'f')
			h.str(x.Decl.Name)
		}
	case *til.Apply:
		h.int(int(x.Kind))
		h.operand(x.Fun)
		h.operand(x.Arg)
	case *til.Project:
		h.str(x.SlotName)
		if x.Arrow {
			h.int(1)
		} else {
			h.int(0)
		}
		h.operand(x.Rec)
	case *til.Call:
		h.int(int(x.CallingConv))
		h.operand(x.Target)
	case *til.Alloc:
		h.int(int(x.Kind))
		h.operand(x.Init)
	case *til.Load:
		h.operand(x.Ptr)
	case *til.Store:
		h.operand(x.Dest)
		h.operand(x.Source)
	case *til.ArrayIndex:
		h.operand(x.Array)
		h.operand(x.Index)
	case *til.ArrayAdd:
		h.operand(x.Array)
		h.operand(x.Index)
	case *til.UnaryOp:
		h.int(int(x.Op))
		h.operand(x.Operand)
	case *til.BinaryOp:
		h.int(int(x.Op))
		h.operand(x.Lhs)
		h.operand(x.Rhs)
	case *til.Cast:
		h.int(int(x.Op))
		h.operand(x.Operand)
	case *til.Phi:
		h.int(len(x.Values))
		for _, v := range x.Values {
			h.operand(v)
		}
	case *til.Goto:
		h.blockRef(x.Target)
		h.int(x.Index)
	case *til.Branch:
		h.operand(x.Cond)
		h.blockRef(x.Then)
		h.blockRef(x.Else)
	case *til.Switch:
		h.operand(x.Cond)
		h.int(x.NumCases())
		for i, l := range x.Labels {
			h.operand(l)
			if i < len(x.Cases) {
				h.blockRef(x.Cases[i])
			}
		}
	case *til.Return:
		h.operand(x.Result)
	case *til.BasicBlock:
		h.block(x)
	case *til.SCFG:
		h.cfg(x)
	case *til.Identifier:
		h.str(x.Name)
	case *til.IfThenElse:
		h.operand(x.Cond)
		h.operand(x.Then)
		h.operand(x.Else)
	case *til.Future:
		if x.Status() == til.FutureForced {
			h.node(x.Result())
		} else {
			h.int(-1)
		}
	}
	h.annotations(n)
}

func (h *hasher) cfg(g *til.SCFG) {
	h.str(g.Name)
	h.int(g.NumBlocks())
	for i, b := range g.Blocks() {
		h.blocks[b] = i
		for j, ph := range b.Args {
			h.instrs[ph] = ipos{block: i, index: -1 - j}
		}
		for j, in := range b.Instrs {
			h.instrs[in] = ipos{block: i, index: j}
		}
	}
	h.blockRef(g.Entry())
	h.blockRef(g.Exit())
	for _, b := range g.Blocks() {
		h.node(b)
	}
}

func (h *hasher) block(b *til.BasicBlock) {
	h.int(b.NumPredecessors())
	h.int(len(b.Args))
	for _, ph := range b.Args {
		h.node(ph)
	}
	h.int(len(b.Instrs))
	for _, in := range b.Instrs {
		h.node(in)
	}
	h.node(b.Term)
}
