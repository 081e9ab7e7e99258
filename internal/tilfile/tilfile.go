// Package tilfile reads and writes TIL terms as YAML documents.
//
// A document has a versioned header and a single term:
//
//	format: 1.0.0
//	name: inc
//	free: [n]
//	term:
//	  function:
//	    name: x
//	    type: {type: int}
//	    body: {binop: {op: add, lhs: {var: x}, rhs: {var: n}}}
//
// Every node is a map with one key, the node's opcode name. Graphs list
// their blocks in order; the first block is the entry and the last is the
// exit. Instructions and block arguments are named and referred to with
// {ref: name}. Instruction names are kept as InstrName annotations; other
// annotations are not stored.
package tilfile

import (
	"github.com/Masterminds/semver/v3"

	"github.com/orizon-lang/til/internal/til"
)

// FormatVersion is the format written by Encode.
const FormatVersion = "1.0.0"

// SupportedFormats is the range of format versions Decode accepts.
const SupportedFormats = "^1"

var supported = mustConstraint(SupportedFormats)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Document is a named term together with its free variables.
type Document struct {
	Name   string
	Format *semver.Version

	// Free variables in binding order. Decode binds the i-th one at
	// binder level i.
	Free []*til.VarDecl

	Term til.Node
}

// FreeVar returns the free variable called name, or nil.
func (d *Document) FreeVar(name string) *til.VarDecl {
	for _, vd := range d.Free {
		if vd.Name == name {
			return vd
		}
	}
	return nil
}

// opcodes a document may use as node keys
var nodeOps = map[string]til.Opcode{}

func init() {
	for op := til.OpVarDecl; op <= til.OpFuture; op++ {
		switch op {
		case til.OpVarDecl, til.OpPhi, til.OpGoto, til.OpBranch, til.OpSwitch,
			til.OpReturn, til.OpBasicBlock, til.OpFuture:
			continue
		}
		nodeOps[op.String()] = op
	}
}

// isValueOp mirrors til.IsValue for a node that has not been built yet.
func isValueOp(op til.Opcode) bool {
	switch op {
	case til.OpFunction, til.OpCode, til.OpField, til.OpSlot, til.OpRecord,
		til.OpArray, til.OpScalarType, til.OpLiteral, til.OpUndefined, til.OpWildcard:
		return true
	}
	return false
}

func isInstrOp(op til.Opcode) bool {
	switch op {
	case til.OpCall, til.OpAlloc, til.OpLoad, til.OpStore, til.OpArrayIndex,
		til.OpArrayAdd, til.OpUnaryOp, til.OpBinaryOp, til.OpCast:
		return true
	}
	return false
}

var modifierNames = []struct {
	name string
	mod  til.SlotModifier
}{
	{"final", til.SlotFinal},
	{"hidden", til.SlotHidden},
	{"virtual", til.SlotVirtual},
}
