// Package til defines the Typed Intermediate Language: an expression and
// control-flow graph IR. Expressions form trees, except that instructions
// placed in a basic block are referenced by index from other instructions,
// and blocks form a graph with back-edges.
package til

import "fmt"

// Opcode identifies the kind of a node.
type Opcode uint8

const (
	OpVarDecl Opcode = iota
	OpFunction
	OpCode
	OpField
	OpSlot
	OpRecord
	OpArray
	OpScalarType
	OpLiteral
	OpVariable
	OpApply
	OpProject
	OpCall
	OpAlloc
	OpLoad
	OpStore
	OpArrayIndex
	OpArrayAdd
	OpUnaryOp
	OpBinaryOp
	OpCast
	OpPhi
	OpGoto
	OpBranch
	OpSwitch
	OpReturn
	OpBasicBlock
	OpSCFG
	OpUndefined
	OpWildcard
	OpIdentifier
	OpLet
	OpIfThenElse
	OpFuture
)

var opcodeNames = [...]string{
	OpVarDecl:    "vardecl",
	OpFunction:   "function",
	OpCode:       "code",
	OpField:      "field",
	OpSlot:       "slot",
	OpRecord:     "record",
	OpArray:      "array",
	OpScalarType: "type",
	OpLiteral:    "lit",
	OpVariable:   "var",
	OpApply:      "apply",
	OpProject:    "project",
	OpCall:       "call",
	OpAlloc:      "alloc",
	OpLoad:       "load",
	OpStore:      "store",
	OpArrayIndex: "index",
	OpArrayAdd:   "offset",
	OpUnaryOp:    "unop",
	OpBinaryOp:   "binop",
	OpCast:       "cast",
	OpPhi:        "phi",
	OpGoto:       "goto",
	OpBranch:     "branch",
	OpSwitch:     "switch",
	OpReturn:     "return",
	OpBasicBlock: "block",
	OpSCFG:       "cfg",
	OpUndefined:  "undefined",
	OpWildcard:   "wildcard",
	OpIdentifier: "ident",
	OpLet:        "let",
	OpIfThenElse: "if",
	OpFuture:     "future",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// Node is implemented by every TIL term.
type Node interface {
	Opcode() Opcode
	Annotations() []Annotation
	AddAnnotation(a Annotation)
}

// node carries the state shared by all terms.
type node struct {
	annots []Annotation
}

func (n *node) Annotations() []Annotation { return n.annots }

func (n *node) AddAnnotation(a Annotation) {
	if a != nil {
		n.annots = append(n.annots, a)
	}
}

// IsValue reports whether n is already in value form. Values are never
// deferred, even at lazy or type positions.
func IsValue(n Node) bool {
	switch x := n.(type) {
	case *Function, *Code, *Field, *Slot, *Record, *Array, *ScalarType,
		*Literal, *Undefined, *Wildcard:
		return true
	case *Future:
		return x.Status() == FutureForced
	default:
		return false
	}
}
