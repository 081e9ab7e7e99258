package til

// VarKind says which binder introduced a variable.
type VarKind uint8

const (
	VarFun  VarKind = iota // function parameter; Def is its type
	VarSFun                // self parameter; Def is unused
	VarLet                 // let binding; Def is the bound expression
)

var varKindNames = [...]string{"fun", "sfun", "let"}

func (k VarKind) String() string {
	if int(k) < len(varKindNames) {
		return varKindNames[k]
	}
	return "var?"
}

// ParseVarKind inverts VarKind.String.
func ParseVarKind(s string) (VarKind, bool) {
	for i, n := range varKindNames {
		if n == s {
			return VarKind(i), true
		}
	}
	return 0, false
}

// VarDecl declares a variable.
type VarDecl struct {
	node
	Kind  VarKind
	Name  string
	Def   Node
	index int
}

func (*VarDecl) Opcode() Opcode { return OpVarDecl }

// VarIndex is the binder depth at which the declaration was entered, or -1
// if it has never been bound.
func (vd *VarDecl) VarIndex() int { return vd.index }

func (vd *VarDecl) SetVarIndex(i int) { vd.index = i }

// NewVarDecl creates an unbound declaration.
func NewVarDecl(kind VarKind, name string, def Node) *VarDecl {
	return &VarDecl{Kind: kind, Name: name, Def: def, index: -1}
}

// Function abstracts Body over a single parameter.
type Function struct {
	node
	Decl *VarDecl
	Body Node
}

func (*Function) Opcode() Opcode { return OpFunction }

// Code is a block of code with a return type; its body is rewritten lazily.
type Code struct {
	node
	ReturnType  Node
	Body        Node
	CallingConv CallingConvention
}

func (*Code) Opcode() Opcode { return OpCode }

// Field is a typed value slot of a record; its body is rewritten lazily.
type Field struct {
	node
	Range Node
	Body  Node
}

func (*Field) Opcode() Opcode { return OpField }

// Slot is a named member of a record.
type Slot struct {
	node
	Name      string
	Def       Node
	Modifiers SlotModifier
}

func (*Slot) Opcode() Opcode { return OpSlot }

func (s *Slot) HasModifier(m SlotModifier) bool { return s.Modifiers&m != 0 }

// Record is a set of slots with an optional parent.
type Record struct {
	node
	Parent Node
	Slots  []*Slot
}

func (*Record) Opcode() Opcode { return OpRecord }

func (r *Record) AddSlot(s *Slot) { r.Slots = append(r.Slots, s) }

// Array is either concrete, with a fixed element list, or symbolic, with
// an element type and a size expression.
type Array struct {
	node
	ElemType Node
	Size     Node
	Elements []Node
	concrete bool
}

func (*Array) Opcode() Opcode { return OpArray }

func (a *Array) Concrete() bool { return a.concrete }

func (a *Array) NumElements() int { return len(a.Elements) }

// NewConcreteArray allocates an array with n element slots.
func NewConcreteArray(elemType Node, n int) *Array {
	return &Array{ElemType: elemType, Elements: make([]Node, n), concrete: true}
}

// NewSymbolicArray creates an array whose length is the value of size.
func NewSymbolicArray(elemType, size Node) *Array {
	return &Array{ElemType: elemType, Size: size}
}

// Literal is a constant of a scalar type.
type Literal struct {
	node
	Type  *ScalarType
	Value interface{}
}

func (*Literal) Opcode() Opcode { return OpLiteral }

// Variable refers to a declaration.
type Variable struct {
	node
	Decl *VarDecl
}

func (*Variable) Opcode() Opcode { return OpVariable }

// Apply applies a function to an argument.
type Apply struct {
	node
	Fun  Node
	Arg  Node
	Kind ApplyKind
}

func (*Apply) Opcode() Opcode { return OpApply }

// Project selects a slot from a record.
type Project struct {
	node
	Rec      Node
	SlotName string
	Arrow    bool
}

func (*Project) Opcode() Opcode { return OpProject }

// Undefined is a term with no value.
type Undefined struct{ node }

func (*Undefined) Opcode() Opcode { return OpUndefined }

// Wildcard matches anything.
type Wildcard struct{ node }

func (*Wildcard) Opcode() Opcode { return OpWildcard }

// Identifier is an unresolved name.
type Identifier struct {
	node
	Name string
}

func (*Identifier) Opcode() Opcode { return OpIdentifier }

// Let binds Decl in Body.
type Let struct {
	node
	Decl *VarDecl
	Body Node
}

func (*Let) Opcode() Opcode { return OpLet }

// IfThenElse is a conditional expression.
type IfThenElse struct {
	node
	Cond Node
	Then Node
	Else Node
}

func (*IfThenElse) Opcode() Opcode { return OpIfThenElse }
