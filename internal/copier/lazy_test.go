package copier

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/til"
	"github.com/orizon-lang/til/internal/tilcheck"
)

// TestCodeBodyIsDeferred tests that a code body is rewritten through a
// future and patched into place.
func TestCodeBodyIsDeferred(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarFun, "x", til.Int)
	b.EnterScope(vd)
	code := b.NewCode(til.Int, b.NewBinaryOp(til.BopAdd, b.NewVariable(vd), intLit(b, 1)))
	b.ExitScope()
	fn := b.NewFunction(vd, code)

	c := New(Options{})
	res := c.TraverseAll(fn)
	require.Zero(t, c.NumPending())

	want := []FutureStamp{{Seq: 0, Op: til.OpBinaryOp, Created: 0, Forced: 0}}
	if diff := cmp.Diff(want, c.Futures()); diff != "" {
		t.Errorf("future stamps mismatch (-want +got):\n%s", diff)
	}

	nfn := res.(*til.Function)
	body, ok := nfn.Body.(*til.Code).Body.(*til.BinaryOp)
	require.True(t, ok, "expected the forced body, got %T", nfn.Body.(*til.Code).Body)
	if v := body.Lhs.(*til.Variable); v.Decl != nfn.Decl {
		t.Error("Deferred body should see the enclosing binder")
	}
	require.NoError(t, tilcheck.Verify(res))
	require.True(t, tilcheck.Equal(fn, res))
}

// TestFuturesForcedInCreationOrder tests first-in first-out forcing,
// including futures created while another one is being forced.
func TestFuturesForcedInCreationOrder(t *testing.T) {
	b := builder.New(nil)

	// code { let y = 1 in code { y } }
	y := b.NewVarDecl(til.VarLet, "y", intLit(b, 1))
	b.EnterScope(y)
	inner := b.NewCode(til.Int, b.NewVariable(y))
	b.ExitScope()
	outer := b.NewCode(til.Int, b.NewLet(y, inner))

	rec := b.NewRecord(3, nil)
	rec.AddSlot(b.NewSlot("a", outer))
	rec.AddSlot(b.NewSlot("b", b.NewIdentifier("p")))
	rec.AddSlot(b.NewSlot("c", b.NewIdentifier("q")))

	c := New(Options{})
	res := c.TraverseAll(rec)

	want := []FutureStamp{
		{Seq: 0, Op: til.OpLet, Created: 0, Forced: 0},
		{Seq: 1, Op: til.OpIdentifier, Created: 1, Forced: 1},
		{Seq: 2, Op: til.OpIdentifier, Created: 2, Forced: 2},
		{Seq: 3, Op: til.OpVariable, Created: 3, Forced: 3},
	}
	if diff := cmp.Diff(want, c.Futures()); diff != "" {
		t.Errorf("future stamps mismatch (-want +got):\n%s", diff)
	}

	nrec := res.(*til.Record)
	let := nrec.Slots[0].Def.(*til.Code).Body.(*til.Let)
	v, ok := let.Body.(*til.Code).Body.(*til.Variable)
	require.True(t, ok)
	if v.Decl != let.Decl {
		t.Error("Nested future should see the binder that was open when it was created")
	}
	require.Empty(t, tilcheck.Shared(rec, res))
	require.NoError(t, tilcheck.Verify(res))
}

// TestFutureKeepsBinderDepth tests that binders opened while forcing get
// levels relative to where the future was created.
func TestFutureKeepsBinderDepth(t *testing.T) {
	b := builder.New(nil)
	x := b.NewVarDecl(til.VarFun, "x", til.Int)
	b.EnterScope(x)
	y := b.NewVarDecl(til.VarLet, "y", intLit(b, 2))
	b.EnterScope(y)
	inner := b.NewBinaryOp(til.BopAdd, b.NewVariable(x), b.NewVariable(y))
	b.ExitScope()
	code := b.NewCode(til.Int, b.NewLet(y, inner))
	b.ExitScope()
	fn := b.NewFunction(x, code)

	res, err := Copy(fn, Options{})
	require.NoError(t, err)

	nfn := res.(*til.Function)
	let := nfn.Body.(*til.Code).Body.(*til.Let)
	if got := let.Decl.VarIndex(); got != 1 {
		t.Errorf("Expected binder level 1, got %d", got)
	}
	sum := let.Body.(*til.BinaryOp)
	if sum.Lhs.(*til.Variable).Decl != nfn.Decl || sum.Rhs.(*til.Variable).Decl != let.Decl {
		t.Error("Variables should refer to their copied binders")
	}
}

// TestTypePositionsAreDeferred tests that non-value types are deferred.
func TestTypePositionsAreDeferred(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarFun, "v", b.NewIdentifier("T"))
	b.EnterScope(vd)
	body := b.NewVariable(vd)
	b.ExitScope()
	fn := b.NewFunction(vd, body)

	c := New(Options{})
	res := c.TraverseAll(fn)
	require.Len(t, c.Futures(), 1)
	require.Equal(t, til.OpIdentifier, c.Futures()[0].Op)

	def, ok := res.(*til.Function).Decl.Def.(*til.Identifier)
	require.True(t, ok)
	require.Equal(t, "T", def.Name)
}

// TestLiftCodeBodies tests rewriting plain code bodies into graphs.
func TestLiftCodeBodies(t *testing.T) {
	b := builder.New(nil)
	code := b.NewCode(til.Int, b.NewBinaryOp(til.BopMul, intLit(b, 6), intLit(b, 7)))

	res, err := Copy(code, Options{LiftCodeBodies: true})
	require.NoError(t, err)

	cfg, ok := res.(*til.Code).Body.(*til.SCFG)
	require.True(t, ok, "expected a lifted graph, got %T", res.(*til.Code).Body)
	require.NoError(t, tilcheck.Verify(cfg))
	require.Equal(t, 2, cfg.NumBlocks())

	entry, exit := cfg.Entry(), cfg.Exit()
	require.Len(t, entry.Instrs, 1)
	mul, ok := entry.Instrs[0].(*til.BinaryOp)
	require.True(t, ok)
	require.Equal(t, til.BopMul, mul.Op)

	require.Len(t, exit.Args, 1)
	if exit.Args[0].Values[0] != til.Node(mul) {
		t.Error("Exit argument should be the body's value")
	}
	if ret := exit.Term.(*til.Return); ret.Result != til.Node(exit.Args[0]) {
		t.Error("Exit should return its argument")
	}
}

// TestLiftKeepsGraphs tests that bodies that are already graphs and field
// bodies are not lifted.
func TestLiftKeepsGraphs(t *testing.T) {
	b := builder.New(nil)
	l := buildCountingLoop(b)
	code := b.NewCode(til.Int, l.cfg)
	field := b.NewField(til.Int, b.NewIdentifier("f"))
	term := b.NewApply(code, field, til.ApplyNormal)

	res, err := Copy(term, Options{LiftCodeBodies: true})
	require.NoError(t, err)

	ap := res.(*til.Apply)
	body := ap.Fun.(*til.Code).Body.(*til.SCFG)
	require.Equal(t, l.cfg.NumBlocks(), body.NumBlocks())
	if _, ok := ap.Arg.(*til.Field).Body.(*til.Identifier); !ok {
		t.Errorf("Field body should not be lifted, got %T", ap.Arg.(*til.Field).Body)
	}
}
