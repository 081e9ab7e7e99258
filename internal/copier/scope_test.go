package copier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

func requirePanicCode(t *testing.T, code string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic with code %s", code)
		se, ok := r.(*errors.StandardError)
		require.True(t, ok, "expected *errors.StandardError, got %T", r)
		require.Equal(t, code, se.Code)
	}()
	fn()
}

// TestCopyScopeBlockMap tests block and block argument mapping.
func TestCopyScopeBlockMap(t *testing.T) {
	l := buildCountingLoop(builder.New(nil))
	nb := builder.New(nil)
	ncfg := nb.BeginCFGFrom(l.cfg)

	s := NewCopyScope()
	s.EnterCFG(l.cfg, ncfg)
	require.Equal(t, 2, s.NumMappedBlocks())
	require.Same(t, ncfg.Entry(), s.LookupBlock(l.entry))
	require.Same(t, ncfg.Exit(), s.LookupBlock(l.cfg.Exit()))
	require.Nil(t, s.LookupBlock(l.header))

	a, ok := s.Instr(l.cfg.Exit().Args[0])
	require.True(t, ok)
	require.Same(t, ncfg.Exit().Args[0], a.Exp)

	hdr := nb.NewBlock(1, 2)
	s.InsertBlockMap(l.header, hdr)
	require.Same(t, hdr, s.LookupBlock(l.header))
	a, ok = s.Instr(l.header.Args[0])
	require.True(t, ok)
	require.Same(t, hdr.Args[0], a.Exp)

	requirePanicCode(t, errors.CodeShapeMismatch, func() {
		s.InsertBlockMap(l.body, nb.NewBlock(2, 1))
	})

	s.ExitCFG()
	require.Zero(t, s.CFGDepth())
	requirePanicCode(t, errors.CodeUnbalancedScope, s.ExitCFG)
}

// TestCopyScopeClone tests that clones evolve independently.
func TestCopyScopeClone(t *testing.T) {
	b := builder.New(nil)
	l := buildCountingLoop(b)
	vd := b.NewVarDecl(til.VarLet, "v", nil)
	b.EnterScope(vd)
	b.ExitScope()

	nb := builder.New(nil)
	s := NewCopyScope()
	s.EnterScope(vd, Attr{Exp: intLit(nb, 1)})
	s.EnterCFG(l.cfg, nb.BeginCFGFrom(l.cfg))

	c := s.Clone()
	c.InsertBlockMap(l.header, nb.NewBlock(1, 2))
	c.ExitCFG()
	c.ExitScope()

	require.Nil(t, s.LookupBlock(l.header))
	_, ok := s.Instr(l.header.Args[0])
	require.False(t, ok)
	require.Equal(t, 1, s.CFGDepth())
	require.False(t, s.IsNull(vd.VarIndex()))
	require.True(t, c.IsNull(vd.VarIndex()))
}
