package til

// Instruction is a node that can be placed in a basic block. Once placed,
// other nodes refer to it by instruction ID instead of owning it.
type Instruction interface {
	Node
	InstrID() int
	Block() *BasicBlock
	Place(b *BasicBlock, id int)
}

type instr struct {
	node
	id    int
	block *BasicBlock
}

// InstrID is the index of the instruction in its graph, or 0 if unplaced.
func (i *instr) InstrID() int { return i.id }

func (i *instr) Block() *BasicBlock { return i.block }

func (i *instr) Place(b *BasicBlock, id int) {
	i.block = b
	i.id = id
}

// IsPlaced reports whether n is an instruction that belongs to a block.
func IsPlaced(n Node) bool {
	i, ok := n.(Instruction)
	return ok && i.Block() != nil
}

type Call struct {
	instr
	Target      Node
	CallingConv CallingConvention
}

type Alloc struct {
	instr
	Init Node
	Kind AllocKind
}

type Load struct {
	instr
	Ptr Node
}

type Store struct {
	instr
	Dest   Node
	Source Node
}

type ArrayIndex struct {
	instr
	Array Node
	Index Node
}

// ArrayAdd is pointer arithmetic on an array.
type ArrayAdd struct {
	instr
	Array Node
	Index Node
}

type UnaryOp struct {
	instr
	Op      UnaryOpcode
	Operand Node
}

type BinaryOp struct {
	instr
	Op  BinaryOpcode
	Lhs Node
	Rhs Node
}

type Cast struct {
	instr
	Op      CastOpcode
	Operand Node
}

// Phi is a block argument. Values[i] is the value passed along the edge
// from the i-th predecessor.
type Phi struct {
	instr
	Values []Node
}

func (*Call) Opcode() Opcode       { return OpCall }
func (*Alloc) Opcode() Opcode      { return OpAlloc }
func (*Load) Opcode() Opcode       { return OpLoad }
func (*Store) Opcode() Opcode      { return OpStore }
func (*ArrayIndex) Opcode() Opcode { return OpArrayIndex }
func (*ArrayAdd) Opcode() Opcode   { return OpArrayAdd }
func (*UnaryOp) Opcode() Opcode    { return OpUnaryOp }
func (*BinaryOp) Opcode() Opcode   { return OpBinaryOp }
func (*Cast) Opcode() Opcode       { return OpCast }
func (*Phi) Opcode() Opcode        { return OpPhi }

// SetValue records the value for predecessor idx.
func (ph *Phi) SetValue(idx int, v Node) {
	for len(ph.Values) <= idx {
		ph.Values = append(ph.Values, nil)
	}
	ph.Values[idx] = v
}

// Terminator ends a basic block.
type Terminator interface {
	Node
	Successors() []*BasicBlock
}

// Goto jumps to Target; Index is this edge's predecessor slot in Target.
type Goto struct {
	node
	Target *BasicBlock
	Index  int
}

type Branch struct {
	node
	Cond Node
	Then *BasicBlock
	Else *BasicBlock
}

// Switch jumps to Cases[i] when Cond matches Labels[i]. From is the block
// the switch terminates; case edges added later are registered from it.
type Switch struct {
	node
	Cond   Node
	Labels []Node
	Cases  []*BasicBlock
	From   *BasicBlock
}

type Return struct {
	node
	Result Node
}

func (*Goto) Opcode() Opcode   { return OpGoto }
func (*Branch) Opcode() Opcode { return OpBranch }
func (*Switch) Opcode() Opcode { return OpSwitch }
func (*Return) Opcode() Opcode { return OpReturn }

func (g *Goto) Successors() []*BasicBlock   { return []*BasicBlock{g.Target} }
func (b *Branch) Successors() []*BasicBlock { return []*BasicBlock{b.Then, b.Else} }
func (s *Switch) Successors() []*BasicBlock { return append([]*BasicBlock(nil), s.Cases...) }
func (*Return) Successors() []*BasicBlock   { return nil }

func (s *Switch) NumCases() int { return len(s.Cases) }

func (s *Switch) AddCase(label Node, target *BasicBlock) {
	s.Labels = append(s.Labels, label)
	s.Cases = append(s.Cases, target)
}

// BasicBlock is a sequence of instructions ending in one terminator.
type BasicBlock struct {
	node
	id     int
	cfg    *SCFG
	Args   []*Phi
	Instrs []Instruction
	Term   Terminator
	preds  []*BasicBlock
}

func (*BasicBlock) Opcode() Opcode { return OpBasicBlock }

// NewBasicBlock creates a block owned by cfg. The block gets its ID when it
// is added to the graph.
func NewBasicBlock(cfg *SCFG) *BasicBlock {
	return &BasicBlock{id: -1, cfg: cfg}
}

// BlockID is the position of the block in its graph, or -1 if not added.
func (b *BasicBlock) BlockID() int { return b.id }

func (b *BasicBlock) CFG() *SCFG { return b.cfg }

func (b *BasicBlock) NumPredecessors() int { return len(b.preds) }

func (b *BasicBlock) Predecessors() []*BasicBlock { return b.preds }

// AddPredecessor appends pred and returns its predecessor slot.
func (b *BasicBlock) AddPredecessor(pred *BasicBlock) int {
	b.preds = append(b.preds, pred)
	return len(b.preds) - 1
}

func (b *BasicBlock) AddArgument(ph *Phi) { b.Args = append(b.Args, ph) }

func (b *BasicBlock) AddInstruction(i Instruction) { b.Instrs = append(b.Instrs, i) }

// SCFG is a control-flow graph with one entry and one exit block.
type SCFG struct {
	node
	Name      string
	blocks    []*BasicBlock
	entry     *BasicBlock
	exit      *BasicBlock
	numInstrs int
}

func (*SCFG) Opcode() Opcode { return OpSCFG }

func NewSCFG(name string) *SCFG { return &SCFG{Name: name} }

func (g *SCFG) Entry() *BasicBlock { return g.entry }

func (g *SCFG) Exit() *BasicBlock { return g.exit }

func (g *SCFG) SetEntry(b *BasicBlock) { g.entry = b }

func (g *SCFG) SetExit(b *BasicBlock) { g.exit = b }

func (g *SCFG) Blocks() []*BasicBlock { return g.blocks }

func (g *SCFG) NumBlocks() int { return len(g.blocks) }

// NumInstructions is one past the highest instruction ID handed out.
func (g *SCFG) NumInstructions() int { return g.numInstrs + 1 }

// NextInstrID hands out instruction IDs, starting at 1.
func (g *SCFG) NextInstrID() int {
	g.numInstrs++
	return g.numInstrs
}

// AddBlock appends b to the graph and assigns its ID.
func (g *SCFG) AddBlock(b *BasicBlock) {
	b.cfg = g
	b.id = len(g.blocks)
	g.blocks = append(g.blocks, b)
}
