// Package builder constructs TIL terms incrementally. It keeps a cursor
// (current graph, current block, whether instructions are emitted) that
// can be snapshotted and restored, so construction can be suspended and
// resumed in a different order than the terms are visited.
package builder

import (
	"log/slog"

	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

// State is the construction cursor.
type State struct {
	CFG        *til.SCFG
	Block      *til.BasicBlock
	EmitInstrs bool
	Depth      int // number of open binders
}

// Builder creates TIL nodes.
type Builder struct {
	state  State
	saved  []State
	logger *slog.Logger
}

// New creates a builder with no open graph.
func New(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// CurrentState returns a snapshot of the cursor.
func (b *Builder) CurrentState() State { return b.state }

// SwitchState installs s and returns the state it replaced.
func (b *Builder) SwitchState(s State) State {
	old := b.state
	b.state = s
	return old
}

// RestoreState reinstalls a state returned by SwitchState.
func (b *Builder) RestoreState(s State) { b.state = s }

// CurrentCFG is the graph under construction, or nil.
func (b *Builder) CurrentCFG() *til.SCFG { return b.state.CFG }

// CurrentBlock is the open block, or nil between blocks.
func (b *Builder) CurrentBlock() *til.BasicBlock { return b.state.Block }

// EmitInstrs reports whether new instructions are placed in the current
// block.
func (b *Builder) EmitInstrs() bool { return b.state.EmitInstrs }

// Depth is the binder level the next EnterScope assigns.
func (b *Builder) Depth() int { return b.state.Depth }

/* Graphs and blocks */

// BeginCFG opens a fresh graph with a zero-argument entry block, which
// becomes the current block, and an exit block with one result argument.
func (b *Builder) BeginCFG(name string) *til.SCFG {
	cfg := b.pushCFG(name, 1, 0)
	b.BeginBlock(cfg.Entry())
	return cfg
}

// BeginCFGFrom opens a graph whose entry and exit blocks have the same
// shape as those of orig. No block is opened.
func (b *Builder) BeginCFGFrom(orig *til.SCFG) *til.SCFG {
	entry, exit := orig.Entry(), orig.Exit()
	cfg := b.pushCFG(orig.Name, len(exit.Args), exit.NumPredecessors())
	for range entry.Args {
		cfg.Entry().AddArgument(b.newPhi(cfg, cfg.Entry(), entry.NumPredecessors()))
	}
	return cfg
}

func (b *Builder) pushCFG(name string, exitArgs, exitPreds int) *til.SCFG {
	cfg := til.NewSCFG(name)
	b.saved = append(b.saved, b.state)
	b.state = State{CFG: cfg, EmitInstrs: true, Depth: b.state.Depth}

	cfg.SetEntry(b.NewBlock(0, 0))
	cfg.SetExit(b.NewBlock(exitArgs, exitPreds))
	b.logger.Debug("begin cfg", "name", name, "exitArgs", exitArgs)
	return cfg
}

// EndCFG closes the current graph and restores the enclosing cursor.
func (b *Builder) EndCFG() *til.SCFG {
	cfg := b.state.CFG
	if cfg == nil || len(b.saved) == 0 {
		panic(errors.UnbalancedScope("end cfg"))
	}
	if blk := b.state.Block; blk != nil {
		panic(errors.UnterminatedBlock(blk.BlockID()))
	}
	for _, blk := range cfg.Blocks() {
		if blk.Term == nil {
			panic(errors.UnterminatedBlock(blk.BlockID()))
		}
	}
	b.state = b.saved[len(b.saved)-1]
	b.saved = b.saved[:len(b.saved)-1]
	b.logger.Debug("end cfg", "name", cfg.Name, "blocks", cfg.NumBlocks())
	return cfg
}

// NewBlock creates a block with nargs phi arguments, each sized for npreds
// predecessors. The block joins the graph when it is begun.
func (b *Builder) NewBlock(nargs, npreds int) *til.BasicBlock {
	blk := til.NewBasicBlock(b.state.CFG)
	for i := 0; i < nargs; i++ {
		blk.AddArgument(b.newPhi(b.state.CFG, blk, npreds))
	}
	return blk
}

func (b *Builder) newPhi(cfg *til.SCFG, blk *til.BasicBlock, npreds int) *til.Phi {
	ph := &til.Phi{Values: make([]til.Node, 0, npreds)}
	id := 0
	if cfg != nil {
		id = cfg.NextInstrID()
	}
	ph.Place(blk, id)
	return ph
}

// BeginBlock makes blk the current block and appends it to the graph.
func (b *Builder) BeginBlock(blk *til.BasicBlock) {
	if cur := b.state.Block; cur != nil {
		panic(errors.UnterminatedBlock(cur.BlockID()))
	}
	if blk.BlockID() < 0 {
		b.state.CFG.AddBlock(blk)
	}
	b.state.Block = blk
}

// EndBlock terminates the current block with t.
func (b *Builder) EndBlock(t til.Terminator) {
	blk := b.state.Block
	if blk == nil {
		panic(errors.UnbalancedScope("end block"))
	}
	blk.Term = t
	b.state.Block = nil
}

// SetPhiArgument sets the value of ph along predecessor edge idx.
func (b *Builder) SetPhiArgument(ph *til.Phi, e til.Node, idx int) {
	ph.SetValue(idx, e)
}

// addInstr places in in the current block when emission is on.
func (b *Builder) addInstr(in til.Instruction) {
	if !b.state.EmitInstrs || b.state.Block == nil {
		return
	}
	in.Place(b.state.Block, b.state.CFG.NextInstrID())
	b.state.Block.AddInstruction(in)
}

/* Binders */

// EnterScope opens a binder for vd and assigns its binder level.
func (b *Builder) EnterScope(vd *til.VarDecl) {
	vd.SetVarIndex(b.state.Depth)
	b.state.Depth++
}

// ExitScope closes the innermost binder.
func (b *Builder) ExitScope() {
	if b.state.Depth == 0 {
		panic(errors.UnbalancedScope("builder exit scope"))
	}
	b.state.Depth--
}
