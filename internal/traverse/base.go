package traverse

import "github.com/orizon-lang/til/internal/til"

// BaseReducer implements every Reducer method as a no-op. Visitors that
// only care about some node kinds embed it.
type BaseReducer struct{}

func (BaseReducer) ReduceNull()                         {}
func (BaseReducer) ReduceWeak(til.Instruction)          {}
func (BaseReducer) ReduceBBArgument(*til.Phi)           {}
func (BaseReducer) ReduceBBInstruction(til.Instruction) {}
func (BaseReducer) ReduceAnnotation(til.Annotation)     {}
func (BaseReducer) ReduceVarDecl(*til.VarDecl)          {}
func (BaseReducer) ReduceFunction(*til.Function)        {}
func (BaseReducer) ReduceCode(*til.Code)                {}
func (BaseReducer) ReduceField(*til.Field)              {}
func (BaseReducer) ReduceSlot(*til.Slot)                {}
func (BaseReducer) ReduceRecord(*til.Record)            {}
func (BaseReducer) ReduceArray(*til.Array)              {}
func (BaseReducer) ReduceScalarType(*til.ScalarType)    {}
func (BaseReducer) ReduceLiteral(*til.Literal)          {}
func (BaseReducer) ReduceVariable(*til.Variable)        {}
func (BaseReducer) ReduceApply(*til.Apply)              {}
func (BaseReducer) ReduceProject(*til.Project)          {}
func (BaseReducer) ReduceCall(*til.Call)                {}
func (BaseReducer) ReduceAlloc(*til.Alloc)              {}
func (BaseReducer) ReduceLoad(*til.Load)                {}
func (BaseReducer) ReduceStore(*til.Store)              {}
func (BaseReducer) ReduceArrayIndex(*til.ArrayIndex)    {}
func (BaseReducer) ReduceArrayAdd(*til.ArrayAdd)        {}
func (BaseReducer) ReduceUnaryOp(*til.UnaryOp)          {}
func (BaseReducer) ReduceBinaryOp(*til.BinaryOp)        {}
func (BaseReducer) ReduceCast(*til.Cast)                {}
func (BaseReducer) ReducePhi(*til.Phi)                  {}
func (BaseReducer) ReduceGoto(*til.Goto)                {}
func (BaseReducer) ReduceBranch(*til.Branch)            {}
func (BaseReducer) ReduceSwitch(*til.Switch)            {}
func (BaseReducer) ReduceReturn(*til.Return)            {}
func (BaseReducer) ReduceBasicBlock(*til.BasicBlock)    {}
func (BaseReducer) ReduceSCFG(*til.SCFG)                {}
func (BaseReducer) ReduceUndefined(*til.Undefined)      {}
func (BaseReducer) ReduceWildcard(*til.Wildcard)        {}
func (BaseReducer) ReduceIdentifier(*til.Identifier)    {}
func (BaseReducer) ReduceLet(*til.Let)                  {}
func (BaseReducer) ReduceIfThenElse(*til.IfThenElse)    {}
