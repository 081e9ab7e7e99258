package traverse

import (
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

type slot[A any] struct {
	set  bool
	attr A
}

type binding[A any] struct {
	index int
	prev  slot[A]
}

type instrMap[A any] struct {
	orig   *til.SCFG
	instrs []slot[A]
}

// ScopeFrame maps bound variables and block instructions of the term being
// traversed to attributes. Variables are keyed by binder level and
// instructions by instruction ID, so lookups work on any copy of the frame.
type ScopeFrame[A any] struct {
	vars     []slot[A]
	bindings []binding[A]
	cfgs     []instrMap[A]
}

// EnterScope binds orig to a for the extent of its binder.
func (s *ScopeFrame[A]) EnterScope(orig *til.VarDecl, a A) {
	idx := orig.VarIndex()
	if idx < 0 {
		panic(errors.BadBinder("variable " + orig.Name + " has no binder level"))
	}
	for len(s.vars) <= idx {
		s.vars = append(s.vars, slot[A]{})
	}
	s.bindings = append(s.bindings, binding[A]{index: idx, prev: s.vars[idx]})
	s.vars[idx] = slot[A]{set: true, attr: a}
}

// ExitScope undoes the most recent EnterScope.
func (s *ScopeFrame[A]) ExitScope() {
	if len(s.bindings) == 0 {
		panic(errors.UnbalancedScope("exit scope"))
	}
	b := s.bindings[len(s.bindings)-1]
	s.bindings = s.bindings[:len(s.bindings)-1]
	s.vars[b.index] = b.prev
}

// IsNull reports whether the variable at binder level idx has no
// replacement.
func (s *ScopeFrame[A]) IsNull(idx int) bool {
	return idx < 0 || idx >= len(s.vars) || !s.vars[idx].set
}

// Var returns the replacement for the variable at binder level idx.
func (s *ScopeFrame[A]) Var(idx int) A { return s.vars[idx].attr }

// Depth is the number of active bindings.
func (s *ScopeFrame[A]) Depth() int { return len(s.bindings) }

// EnterCFG opens an instruction map for orig, which may be nil when a term
// is being lifted into a fresh graph.
func (s *ScopeFrame[A]) EnterCFG(orig *til.SCFG) {
	n := 0
	if orig != nil {
		n = orig.NumInstructions()
	}
	s.cfgs = append(s.cfgs, instrMap[A]{orig: orig, instrs: make([]slot[A], n)})
}

func (s *ScopeFrame[A]) ExitCFG() {
	if len(s.cfgs) == 0 {
		panic(errors.UnbalancedScope("exit cfg"))
	}
	s.cfgs = s.cfgs[:len(s.cfgs)-1]
}

// CFGDepth is the number of open graphs.
func (s *ScopeFrame[A]) CFGDepth() int { return len(s.cfgs) }

// mapFor picks the instruction map for the graph that owns in, falling back
// to the innermost one.
func (s *ScopeFrame[A]) mapFor(in til.Instruction) *instrMap[A] {
	if len(s.cfgs) == 0 {
		return nil
	}
	if blk := in.Block(); blk != nil {
		for i := len(s.cfgs) - 1; i >= 0; i-- {
			if s.cfgs[i].orig == blk.CFG() {
				return &s.cfgs[i]
			}
		}
	}
	return &s.cfgs[len(s.cfgs)-1]
}

// InsertInstructionMap records the attribute for an original instruction.
func (s *ScopeFrame[A]) InsertInstructionMap(in til.Instruction, a A) {
	m := s.mapFor(in)
	if m == nil {
		return
	}
	id := in.InstrID()
	for len(m.instrs) <= id {
		m.instrs = append(m.instrs, slot[A]{})
	}
	m.instrs[id] = slot[A]{set: true, attr: a}
}

// Instr returns the attribute recorded for in.
func (s *ScopeFrame[A]) Instr(in til.Instruction) (A, bool) {
	var zero A
	m := s.mapFor(in)
	id := in.InstrID()
	if m == nil || id <= 0 || id >= len(m.instrs) || !m.instrs[id].set {
		return zero, false
	}
	return m.instrs[id].attr, true
}

// Clone returns an independent copy of the frame.
func (s *ScopeFrame[A]) Clone() ScopeFrame[A] {
	c := ScopeFrame[A]{
		vars:     append([]slot[A](nil), s.vars...),
		bindings: append([]binding[A](nil), s.bindings...),
		cfgs:     make([]instrMap[A], len(s.cfgs)),
	}
	for i, m := range s.cfgs {
		c.cfgs[i] = instrMap[A]{orig: m.orig, instrs: append([]slot[A](nil), m.instrs...)}
	}
	return c
}
