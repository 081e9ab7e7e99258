package tilcheck

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

func buildDiamond(b *builder.Builder) *til.SCFG {
	cfg := b.BeginCFG("diamond")
	l, r := b.NewBlock(0, 1), b.NewBlock(0, 1)
	join := b.NewBlock(1, 2)
	b.NewBranch(b.NewLiteral(til.Bool, true), l, r)
	for i, blk := range []*til.BasicBlock{l, r} {
		b.BeginBlock(blk)
		g := b.NewGoto(join)
		b.SetPhiArgument(join.Args[0], b.NewLiteral(til.Int, int64(i)), g.Index)
	}
	b.BeginBlock(join)
	g := b.NewGoto(cfg.Exit())
	b.SetPhiArgument(cfg.Exit().Args[0], join.Args[0], g.Index)
	b.BeginBlock(cfg.Exit())
	b.NewReturn(cfg.Exit().Args[0])
	b.EndCFG()
	return cfg
}

func lambda(b *builder.Builder, name string) *til.Function {
	vd := b.NewVarDecl(til.VarFun, name, til.Int)
	b.EnterScope(vd)
	body := b.NewBinaryOp(til.BopAdd, b.NewVariable(vd), b.NewLiteral(til.Int, int64(1)))
	b.ExitScope()
	return b.NewFunction(vd, body)
}

// TestFingerprintAlphaEquivalence tests that binder names matter but
// binder identity does not.
func TestFingerprintAlphaEquivalence(t *testing.T) {
	b := builder.New(nil)
	if !Equal(lambda(b, "x"), lambda(b, "x")) {
		t.Error("Independently built equal terms should be equal")
	}
	if Equal(lambda(b, "x"), lambda(b, "y")) {
		t.Error("Terms with different binder names should differ")
	}

	free := b.NewVarDecl(til.VarLet, "g", nil)
	a := b.NewBinaryOp(til.BopAdd, b.NewVariable(free), b.NewLiteral(til.Int, int64(1)))
	c := b.NewBinaryOp(til.BopSub, b.NewVariable(free), b.NewLiteral(til.Int, int64(1)))
	if Equal(a, c) {
		t.Error("Different operators should differ")
	}
}

// TestFingerprintGraphs tests that graphs hash by shape.
func TestFingerprintGraphs(t *testing.T) {
	b := builder.New(nil)
	d1, d2 := buildDiamond(b), buildDiamond(b)
	require.True(t, Equal(d1, d2))

	d2.Blocks()[3].Args[0].Values[1] = b.NewLiteral(til.Int, int64(7))
	require.False(t, Equal(d1, d2))
}

// TestShared tests detection of nodes shared between terms.
func TestShared(t *testing.T) {
	b := builder.New(nil)
	lit := b.NewLiteral(til.Int, int64(1))
	a := b.NewUnaryOp(til.UopMinus, lit)
	c := b.NewCast(til.CastToFloat, lit)

	require.Equal(t, []til.Node{lit}, Shared(a, c))
	require.Empty(t, Shared(a, c, lit))

	// scalar types are singletons
	require.Empty(t, Shared(b.NewCode(til.Int, nil), b.NewCode(til.Int, nil)))
}

// TestVerify tests that well-formed graphs pass and broken ones report
// every problem.
func TestVerify(t *testing.T) {
	b := builder.New(nil)
	require.NoError(t, Verify(buildDiamond(b)))

	broken := buildDiamond(b)
	join := broken.Blocks()[3]
	join.Args[0].Values = join.Args[0].Values[:1]
	broken.Blocks()[1].Term = nil

	err := Verify(broken)
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok, "expected *multierror.Error, got %T", err)
	require.GreaterOrEqual(t, len(merr.Errors), 2)
	require.True(t, errors.HasCode(merr.Errors[0], errors.CodeMalformedGraph))

	msg := err.Error()
	for _, want := range []string{"no terminator", "1 values for 2 predecessors"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in %s", want, msg)
		}
	}
}

// TestVerifyPendingFuture tests that unforced futures are reported.
func TestVerifyPendingFuture(t *testing.T) {
	b := builder.New(nil)
	code := b.NewCode(til.Int, til.NewFuture(0, nil))
	err := Verify(code)
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.CodeUnforcedFuture))
}
