package traverse

import (
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

// Reducer has one method per node kind. Each is called after the node's
// children have left their attributes on the stack.
type Reducer interface {
	ReduceNull()
	ReduceWeak(in til.Instruction)
	ReduceBBArgument(ph *til.Phi)
	ReduceBBInstruction(in til.Instruction)
	ReduceAnnotation(a til.Annotation)

	ReduceVarDecl(n *til.VarDecl)
	ReduceFunction(n *til.Function)
	ReduceCode(n *til.Code)
	ReduceField(n *til.Field)
	ReduceSlot(n *til.Slot)
	ReduceRecord(n *til.Record)
	ReduceArray(n *til.Array)
	ReduceScalarType(n *til.ScalarType)
	ReduceLiteral(n *til.Literal)
	ReduceVariable(n *til.Variable)
	ReduceApply(n *til.Apply)
	ReduceProject(n *til.Project)
	ReduceCall(n *til.Call)
	ReduceAlloc(n *til.Alloc)
	ReduceLoad(n *til.Load)
	ReduceStore(n *til.Store)
	ReduceArrayIndex(n *til.ArrayIndex)
	ReduceArrayAdd(n *til.ArrayAdd)
	ReduceUnaryOp(n *til.UnaryOp)
	ReduceBinaryOp(n *til.BinaryOp)
	ReduceCast(n *til.Cast)
	ReducePhi(n *til.Phi)
	ReduceGoto(n *til.Goto)
	ReduceBranch(n *til.Branch)
	ReduceSwitch(n *til.Switch)
	ReduceReturn(n *til.Return)
	ReduceBasicBlock(n *til.BasicBlock)
	ReduceSCFG(n *til.SCFG)
	ReduceUndefined(n *til.Undefined)
	ReduceWildcard(n *til.Wildcard)
	ReduceIdentifier(n *til.Identifier)
	ReduceLet(n *til.Let)
	ReduceIfThenElse(n *til.IfThenElse)
}

// Visitor drives a traversal. Traverse is the hook through which every
// child is visited; implementations open an attribute frame, call Walk and
// close the frame, or substitute a result of their own.
type Visitor interface {
	Reducer

	Traverse(n til.Node, k Kind)

	EnterScope(vd *til.VarDecl)
	ExitScope(vd *til.VarDecl)
	EnterCFG(cfg *til.SCFG)
	ExitCFG(cfg *til.SCFG)
	EnterBlock(b *til.BasicBlock)
	ExitBlock(b *til.BasicBlock)
}

// IsWeak reports whether visiting n at position k is a reference to an
// instruction already placed in a block rather than its definition.
func IsWeak(n til.Node, k Kind) bool {
	return k != KindDecl && til.IsPlaced(n)
}

// Walk visits the children of n through v.Traverse and then calls the
// reduce method for n's kind.
func Walk(v Visitor, n til.Node, k Kind) {
	if n == nil {
		v.ReduceNull()
		return
	}
	if IsWeak(n, k) {
		v.ReduceWeak(n.(til.Instruction))
		return
	}

	switch x := n.(type) {
	case *til.VarDecl:
		switch x.Kind {
		case til.VarFun:
			v.Traverse(x.Def, KindType)
		default:
			v.Traverse(x.Def, KindArg)
		}
		v.ReduceVarDecl(x)
	case *til.Function:
		v.Traverse(x.Decl, KindDecl)
		v.EnterScope(x.Decl)
		v.Traverse(x.Body, KindTail)
		v.ExitScope(x.Decl)
		v.ReduceFunction(x)
	case *til.Code:
		v.Traverse(x.ReturnType, KindType)
		v.Traverse(x.Body, KindLazy)
		v.ReduceCode(x)
	case *til.Field:
		v.Traverse(x.Range, KindType)
		v.Traverse(x.Body, KindLazy)
		v.ReduceField(x)
	case *til.Slot:
		v.Traverse(x.Def, KindLazy)
		v.ReduceSlot(x)
	case *til.Record:
		v.Traverse(x.Parent, KindArg)
		for _, s := range x.Slots {
			v.Traverse(s, KindDecl)
		}
		v.ReduceRecord(x)
	case *til.Array:
		v.Traverse(x.ElemType, KindType)
		v.Traverse(x.Size, KindArg)
		if x.Concrete() {
			for _, e := range x.Elements {
				v.Traverse(e, KindArg)
			}
		}
		v.ReduceArray(x)
	case *til.ScalarType:
		v.ReduceScalarType(x)
	case *til.Literal:
		v.ReduceLiteral(x)
	case *til.Variable:
		v.ReduceVariable(x)
	case *til.Apply:
		v.Traverse(x.Fun, KindSubExpr)
		v.Traverse(x.Arg, KindArg)
		v.ReduceApply(x)
	case *til.Project:
		v.Traverse(x.Rec, KindSubExpr)
		v.ReduceProject(x)
	case *til.Call:
		v.Traverse(x.Target, KindSubExpr)
		v.ReduceCall(x)
	case *til.Alloc:
		v.Traverse(x.Init, KindArg)
		v.ReduceAlloc(x)
	case *til.Load:
		v.Traverse(x.Ptr, KindSubExpr)
		v.ReduceLoad(x)
	case *til.Store:
		v.Traverse(x.Dest, KindSubExpr)
		v.Traverse(x.Source, KindArg)
		v.ReduceStore(x)
	case *til.ArrayIndex:
		v.Traverse(x.Array, KindSubExpr)
		v.Traverse(x.Index, KindArg)
		v.ReduceArrayIndex(x)
	case *til.ArrayAdd:
		v.Traverse(x.Array, KindSubExpr)
		v.Traverse(x.Index, KindArg)
		v.ReduceArrayAdd(x)
	case *til.UnaryOp:
		v.Traverse(x.Operand, KindArg)
		v.ReduceUnaryOp(x)
	case *til.BinaryOp:
		v.Traverse(x.Lhs, KindArg)
		v.Traverse(x.Rhs, KindArg)
		v.ReduceBinaryOp(x)
	case *til.Cast:
		v.Traverse(x.Operand, KindArg)
		v.ReduceCast(x)
	case *til.Phi:
		v.ReducePhi(x)
	case *til.Goto:
		// The edge's arguments live in the target's phis.
		for _, ph := range x.Target.Args {
			var val til.Node
			if x.Index < len(ph.Values) {
				val = ph.Values[x.Index]
			}
			v.Traverse(val, KindArg)
		}
		v.ReduceGoto(x)
	case *til.Branch:
		v.Traverse(x.Cond, KindArg)
		v.ReduceBranch(x)
	case *til.Switch:
		v.Traverse(x.Cond, KindArg)
		for _, l := range x.Labels {
			v.Traverse(l, KindArg)
		}
		v.ReduceSwitch(x)
	case *til.Return:
		v.Traverse(x.Result, KindArg)
		v.ReduceReturn(x)
	case *til.BasicBlock:
		v.EnterBlock(x)
		for _, ph := range x.Args {
			v.ReduceBBArgument(ph)
		}
		for _, in := range x.Instrs {
			v.Traverse(in, KindDecl)
			v.ReduceBBInstruction(in)
		}
		v.Traverse(x.Term, KindTail)
		v.ExitBlock(x)
		v.ReduceBasicBlock(x)
	case *til.SCFG:
		v.EnterCFG(x)
		for _, b := range x.Blocks() {
			v.Traverse(b, KindDecl)
		}
		v.ReduceSCFG(x)
		v.ExitCFG(x)
	case *til.Undefined:
		v.ReduceUndefined(x)
	case *til.Wildcard:
		v.ReduceWildcard(x)
	case *til.Identifier:
		v.ReduceIdentifier(x)
	case *til.Let:
		v.Traverse(x.Decl, KindDecl)
		v.EnterScope(x.Decl)
		v.Traverse(x.Body, KindTail)
		v.ExitScope(x.Decl)
		v.ReduceLet(x)
	case *til.IfThenElse:
		v.Traverse(x.Cond, KindArg)
		v.Traverse(x.Then, KindArg)
		v.Traverse(x.Else, KindArg)
		v.ReduceIfThenElse(x)
	case *til.Future:
		if x.Status() != til.FutureForced {
			panic(errors.UnforcedFuture(1))
		}
		Walk(v, x.Result(), k)
	default:
		panic(errors.UnknownNode(n))
	}
}

// WalkAnnotation visits the operands of a and then reduces it.
func WalkAnnotation(v Visitor, a til.Annotation) {
	for _, op := range a.Operands() {
		v.Traverse(op, KindArg)
	}
	v.ReduceAnnotation(a)
}
