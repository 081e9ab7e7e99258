package til

// Children returns the direct structural children of n in traversal order.
// Absent optional children are reported as nil. Instructions placed in a
// block are children of that block; other nodes that mention them (as
// operands or phi values) also list them, and callers that walk the graph
// must treat a placed instruction seen through such an edge as a reference.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *VarDecl:
		return []Node{x.Def}
	case *Function:
		return []Node{x.Decl, x.Body}
	case *Code:
		return []Node{x.ReturnType, x.Body}
	case *Field:
		return []Node{x.Range, x.Body}
	case *Slot:
		return []Node{x.Def}
	case *Record:
		out := []Node{x.Parent}
		for _, s := range x.Slots {
			out = append(out, s)
		}
		return out
	case *Array:
		out := []Node{x.ElemType, x.Size}
		if x.Concrete() {
			out = append(out, x.Elements...)
		}
		return out
	case *Apply:
		return []Node{x.Fun, x.Arg}
	case *Project:
		return []Node{x.Rec}
	case *Call:
		return []Node{x.Target}
	case *Alloc:
		return []Node{x.Init}
	case *Load:
		return []Node{x.Ptr}
	case *Store:
		return []Node{x.Dest, x.Source}
	case *ArrayIndex:
		return []Node{x.Array, x.Index}
	case *ArrayAdd:
		return []Node{x.Array, x.Index}
	case *UnaryOp:
		return []Node{x.Operand}
	case *BinaryOp:
		return []Node{x.Lhs, x.Rhs}
	case *Cast:
		return []Node{x.Operand}
	case *Phi:
		return append([]Node(nil), x.Values...)
	case *Branch:
		return []Node{x.Cond}
	case *Switch:
		return append([]Node{x.Cond}, x.Labels...)
	case *Return:
		return []Node{x.Result}
	case *BasicBlock:
		out := make([]Node, 0, len(x.Args)+len(x.Instrs)+1)
		for _, ph := range x.Args {
			out = append(out, ph)
		}
		for _, in := range x.Instrs {
			out = append(out, in)
		}
		if x.Term != nil {
			out = append(out, x.Term)
		}
		return out
	case *SCFG:
		out := make([]Node, 0, len(x.blocks))
		for _, b := range x.blocks {
			out = append(out, b)
		}
		return out
	case *Let:
		return []Node{x.Decl, x.Body}
	case *IfThenElse:
		return []Node{x.Cond, x.Then, x.Else}
	case *Future:
		if x.status == FutureForced {
			return []Node{x.result}
		}
		return nil
	default:
		return nil
	}
}
