package copier

import (
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
	"github.com/orizon-lang/til/internal/traverse"
)

// Attr is the rewritten form of an original node.
type Attr struct {
	Exp til.Node
}

// CopyScope maps original blocks to rewritten blocks, in addition to the
// variable and instruction maps kept by the embedded ScopeFrame. There is
// one block map per open graph.
type CopyScope struct {
	traverse.ScopeFrame[Attr]
	blockMaps [][]*til.BasicBlock
}

// NewCopyScope returns an empty scope.
func NewCopyScope() *CopyScope { return &CopyScope{} }

// EnterCFG opens a block map for orig, whose blocks are rewritten into
// cfg. The entry and exit correspondence is recorded up front. Both graphs
// are nil when a term is lifted into a fresh graph.
func (s *CopyScope) EnterCFG(orig, cfg *til.SCFG) {
	s.ScopeFrame.EnterCFG(orig)
	if orig == nil {
		s.blockMaps = append(s.blockMaps, nil)
		return
	}
	s.blockMaps = append(s.blockMaps, make([]*til.BasicBlock, orig.NumBlocks()))
	s.InsertBlockMap(orig.Entry(), cfg.Entry())
	s.InsertBlockMap(orig.Exit(), cfg.Exit())
}

// ExitCFG drops the block and instruction maps of the innermost graph.
func (s *CopyScope) ExitCFG() {
	if len(s.blockMaps) == 0 {
		panic(errors.UnbalancedScope("exit cfg"))
	}
	s.ScopeFrame.ExitCFG()
	s.blockMaps = s.blockMaps[:len(s.blockMaps)-1]
}

func (s *CopyScope) blockMap() []*til.BasicBlock {
	if len(s.blockMaps) == 0 {
		panic(errors.UnbalancedScope("block lookup outside cfg"))
	}
	return s.blockMaps[len(s.blockMaps)-1]
}

// InsertBlockMap records that orig is rewritten to b, and maps each phi
// argument of orig to the phi in the same position of b.
func (s *CopyScope) InsertBlockMap(orig, b *til.BasicBlock) {
	bm := s.blockMap()
	id := orig.BlockID()
	if id < 0 || id >= len(bm) {
		panic(errors.ShapeMismatch("block id in graph", len(bm)-1, id))
	}
	if len(orig.Args) != len(b.Args) {
		panic(errors.ShapeMismatch("block arguments", len(orig.Args), len(b.Args)))
	}
	bm[id] = b

	for i, ph := range orig.Args {
		if ph != nil && ph.InstrID() > 0 {
			s.InsertInstructionMap(ph, Attr{Exp: b.Args[i]})
		}
	}
}

// LookupBlock returns the block orig maps to, or nil if none exists yet.
func (s *CopyScope) LookupBlock(orig *til.BasicBlock) *til.BasicBlock {
	bm := s.blockMap()
	id := orig.BlockID()
	if id < 0 || id >= len(bm) {
		return nil
	}
	return bm[id]
}

// NumMappedBlocks counts the entries of the innermost block map.
func (s *CopyScope) NumMappedBlocks() int {
	n := 0
	for _, b := range s.blockMap() {
		if b != nil {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the scope, for lazy rewriting.
func (s *CopyScope) Clone() *CopyScope {
	c := &CopyScope{
		ScopeFrame: s.ScopeFrame.Clone(),
		blockMaps:  make([][]*til.BasicBlock, len(s.blockMaps)),
	}
	for i, bm := range s.blockMaps {
		if bm != nil {
			c.blockMaps[i] = append([]*til.BasicBlock(nil), bm...)
		}
	}
	return c
}
