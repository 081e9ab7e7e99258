package copier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/position"
	"github.com/orizon-lang/til/internal/til"
	"github.com/orizon-lang/til/internal/tilcheck"
)

// TestCopyFunction tests that a bound variable is rewritten to the copy's
// own declaration.
func TestCopyFunction(t *testing.T) {
	b := builder.New(nil)
	fn, vd := buildIncrement(b)

	res, err := Copy(fn, Options{})
	require.NoError(t, err)

	nfn, ok := res.(*til.Function)
	require.True(t, ok, "expected *til.Function, got %T", res)
	require.NotSame(t, fn, nfn)
	require.NotSame(t, vd, nfn.Decl)

	if nfn.Decl.VarIndex() != 0 {
		t.Errorf("Expected binder level 0, got %d", nfn.Decl.VarIndex())
	}

	body, ok := nfn.Body.(*til.BinaryOp)
	require.True(t, ok, "expected *til.BinaryOp body, got %T", nfn.Body)
	v, ok := body.Lhs.(*til.Variable)
	require.True(t, ok)
	if v.Decl != nfn.Decl {
		t.Error("Variable should refer to the copied declaration")
	}

	if !tilcheck.Equal(fn, nfn) {
		t.Error("Copy should be structurally equal to the original")
	}
	if shared := tilcheck.Shared(fn, nfn); len(shared) != 0 {
		t.Errorf("Copy shares %d nodes with the original", len(shared))
	}
}

// TestCopyBindings tests substitution of free variables.
func TestCopyBindings(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarLet, "x", nil)
	b.EnterScope(vd)
	e := b.NewBinaryOp(til.BopMul, b.NewVariable(vd), b.NewVariable(vd))
	b.ExitScope()

	repl := intLit(b, 42)
	res, err := Copy(e, Options{Bindings: map[*til.VarDecl]til.Node{vd: repl}})
	require.NoError(t, err)

	bo := res.(*til.BinaryOp)
	if bo.Lhs != til.Node(repl) || bo.Rhs != til.Node(repl) {
		t.Errorf("Expected both operands to be the replacement, got %T and %T", bo.Lhs, bo.Rhs)
	}
	if shared := tilcheck.Shared(e, res, repl); len(shared) != 0 {
		t.Errorf("Copy shares %d nodes with the original", len(shared))
	}
}

// TestCopyBaseDepth tests that binders of the copy are placed above the
// levels taken by free variables, so a copy of the copy still resolves.
func TestCopyBaseDepth(t *testing.T) {
	b := builder.New(nil)
	free := b.NewVarDecl(til.VarLet, "n", nil)
	b.EnterScope(free)
	fn, _ := buildIncrement(b)
	fn.Body.(*til.BinaryOp).Rhs = b.NewVariable(free)
	b.ExitScope()

	res, err := Copy(fn, Options{BaseDepth: 1})
	require.NoError(t, err)
	nfn := res.(*til.Function)
	require.Equal(t, 1, nfn.Decl.VarIndex())

	again, err := Copy(nfn, Options{BaseDepth: 1})
	require.NoError(t, err)
	rhs := again.(*til.Function).Body.(*til.BinaryOp).Rhs.(*til.Variable)
	require.Same(t, free, rhs.Decl, "free variable must not be captured by the parameter")
	require.True(t, tilcheck.Equal(fn, again))
}

// TestCopyTwiceKeepsFreeVariables tests that copying a copy with default
// options never lets a parameter capture a free variable.
func TestCopyTwiceKeepsFreeVariables(t *testing.T) {
	b := builder.New(nil)
	free := b.NewVarDecl(til.VarLet, "n", nil)
	b.EnterScope(free)
	fn, _ := buildIncrement(b)
	fn.Body.(*til.BinaryOp).Rhs = b.NewVariable(free)
	b.ExitScope()

	once, err := Copy(fn, Options{})
	require.NoError(t, err)
	if got := once.(*til.Function).Decl.VarIndex(); got != 1 {
		t.Errorf("Expected parameter level 1, got %d", got)
	}

	twice, err := Copy(once, Options{})
	require.NoError(t, err)
	nfn := twice.(*til.Function)
	rhs := nfn.Body.(*til.BinaryOp).Rhs.(*til.Variable)
	require.Same(t, free, rhs.Decl, "free variable must not be captured by the parameter")
	if lhs := nfn.Body.(*til.BinaryOp).Lhs.(*til.Variable); lhs.Decl != nfn.Decl {
		t.Error("Parameter occurrence should refer to the copied parameter")
	}
	require.True(t, tilcheck.Equal(fn, once))
	require.True(t, tilcheck.Equal(fn, twice))
}

// TestCopyFreeVariable tests that unbound variables keep their declaration.
func TestCopyFreeVariable(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarLet, "g", nil)
	v := b.NewVariable(vd)

	res, err := Copy(v, Options{})
	require.NoError(t, err)

	nv := res.(*til.Variable)
	require.NotSame(t, v, nv)
	require.Same(t, vd, nv.Decl)
}

func blockIDs(bs []*til.BasicBlock) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = b.BlockID()
	}
	return out
}

// TestCopyCountingLoop tests that graphs are rebuilt with the same blocks,
// predecessor order and phi values.
func TestCopyCountingLoop(t *testing.T) {
	b := builder.New(nil)
	l := buildCountingLoop(b)
	before := tilcheck.Fingerprint(l.cfg)

	res, err := Copy(l.cfg, Options{})
	require.NoError(t, err)
	require.Equal(t, before, tilcheck.Fingerprint(l.cfg), "original was modified")

	cfg, ok := res.(*til.SCFG)
	require.True(t, ok, "expected *til.SCFG, got %T", res)
	require.NoError(t, tilcheck.Verify(cfg))
	require.True(t, tilcheck.Equal(l.cfg, cfg))
	require.Empty(t, tilcheck.Shared(l.cfg, cfg))

	if cfg.NumBlocks() != l.cfg.NumBlocks() {
		t.Fatalf("Expected %d blocks, got %d", l.cfg.NumBlocks(), cfg.NumBlocks())
	}
	blocks := cfg.Blocks()
	header, body := blocks[1], blocks[2]

	if diff := cmp.Diff([]int{0, 2}, blockIDs(header.Predecessors())); diff != "" {
		t.Errorf("header predecessors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, blockIDs(body.Predecessors())); diff != "" {
		t.Errorf("body predecessors mismatch (-want +got):\n%s", diff)
	}

	phi := header.Args[0]
	require.Len(t, phi.Values, 2)
	if lit, ok := phi.Values[0].(*til.Literal); !ok || lit.Value != int64(0) {
		t.Errorf("Expected literal 0 on the entry edge, got %v", phi.Values[0])
	}
	require.Len(t, body.Instrs, 1)
	if phi.Values[1] != til.Node(body.Instrs[0]) {
		t.Error("Back edge value should be the copied increment")
	}
	if body.Instrs[0].InstrID() != l.next.InstrID() {
		t.Errorf("Expected instruction id %d, got %d", l.next.InstrID(), body.Instrs[0].InstrID())
	}

	cond := header.Instrs[0].(*til.BinaryOp)
	if cond.Lhs != til.Node(phi) {
		t.Error("Comparison should read the copied phi")
	}
	if br := header.Term.(*til.Branch); br.Cond != til.Node(cond) || br.Then != body {
		t.Error("Branch should use the copied condition and blocks")
	}

	exit := cfg.Exit()
	if ret := exit.Term.(*til.Return); ret.Result != til.Node(exit.Args[0]) {
		t.Error("Exit should return its own argument")
	}
	if exit.Args[0].Values[0] != til.Node(phi) {
		t.Error("Exit argument should be the loop counter")
	}
}

// TestCopySwitch tests switch edges.
func TestCopySwitch(t *testing.T) {
	b := builder.New(nil)
	orig := buildSwitch(b)

	res, err := Copy(orig, Options{})
	require.NoError(t, err)

	cfg := res.(*til.SCFG)
	require.NoError(t, tilcheck.Verify(cfg))
	require.True(t, tilcheck.Equal(orig, cfg))

	sw := cfg.Entry().Term.(*til.Switch)
	require.Equal(t, 2, sw.NumCases())
	for i, c := range sw.Cases {
		if diff := cmp.Diff([]int{0}, blockIDs(c.Predecessors())); diff != "" {
			t.Errorf("case %d predecessors mismatch (-want +got):\n%s", i, diff)
		}
	}
	if n := cfg.Exit().NumPredecessors(); n != 2 {
		t.Errorf("Expected 2 exit predecessors, got %d", n)
	}
}

// TestCopyNestedCFG tests a graph inside a code body inside a graph.
func TestCopyNestedCFG(t *testing.T) {
	b := builder.New(nil)
	inner := buildCountingLoop(b)

	outer := b.BeginCFG("outer")
	code := b.NewCode(til.Int, inner.cfg)
	g := b.NewGoto(outer.Exit())
	b.SetPhiArgument(outer.Exit().Args[0], code, g.Index)
	b.BeginBlock(outer.Exit())
	b.NewReturn(outer.Exit().Args[0])
	b.EndCFG()

	res, err := Copy(outer, Options{})
	require.NoError(t, err)
	require.NoError(t, tilcheck.Verify(res))
	require.True(t, tilcheck.Equal(outer, res))
	require.Empty(t, tilcheck.Shared(outer, res))

	ncode := res.(*til.SCFG).Exit().Args[0].Values[0].(*til.Code)
	if _, ok := ncode.Body.(*til.SCFG); !ok {
		t.Errorf("Expected the code body to be a graph, got %T", ncode.Body)
	}
}

// TestCopyPreservesCallingConvention tests Code and Call conventions.
func TestCopyPreservesCallingConvention(t *testing.T) {
	b := builder.New(nil)
	code := b.NewCode(til.Int, intLit(b, 1))
	code.CallingConv = til.CallCDecl
	call := b.NewCall(code)
	call.CallingConv = til.CallFast

	res, err := Copy(call, Options{})
	require.NoError(t, err)

	ncall := res.(*til.Call)
	if ncall.CallingConv != til.CallFast {
		t.Errorf("Expected call convention %v, got %v", til.CallFast, ncall.CallingConv)
	}
	if cc := ncall.Target.(*til.Code).CallingConv; cc != til.CallCDecl {
		t.Errorf("Expected code convention %v, got %v", til.CallCDecl, cc)
	}
}

// TestCopyRecordAndArray tests records, slots and both array forms.
func TestCopyRecordAndArray(t *testing.T) {
	b := builder.New(nil)
	rec := b.NewRecord(2, nil)
	s := b.NewSlot("a", intLit(b, 1))
	s.Modifiers = til.SlotFinal | til.SlotHidden
	rec.AddSlot(s)
	rec.AddSlot(b.NewSlot("b", b.NewIdentifier("y")))

	arr := b.NewArray(til.Int, 2)
	b.SetArrayElement(arr, 0, intLit(b, 1))
	b.SetArrayElement(arr, 1, b.NewProject(rec, "a"))
	sym := b.NewSymbolicArray(til.Int, intLit(b, 8))
	pair := b.NewApply(arr, sym, til.ApplyNormal)

	res, err := Copy(pair, Options{})
	require.NoError(t, err)
	require.True(t, tilcheck.Equal(pair, res))
	require.Empty(t, tilcheck.Shared(pair, res))

	ap := res.(*til.Apply)
	narr := ap.Fun.(*til.Array)
	require.True(t, narr.Concrete())
	require.Equal(t, 2, narr.NumElements())
	nrec := narr.Elements[1].(*til.Project).Rec.(*til.Record)
	require.Len(t, nrec.Slots, 2)
	if !nrec.Slots[0].HasModifier(til.SlotHidden) {
		t.Error("Slot modifiers should be preserved")
	}
	if id, ok := nrec.Slots[1].Def.(*til.Identifier); !ok || id.Name != "y" {
		t.Errorf("Expected forced slot definition y, got %v", nrec.Slots[1].Def)
	}
	require.False(t, ap.Arg.(*til.Array).Concrete())
}

// TestCopyAnnotations tests that annotations are rewritten with the term.
func TestCopyAnnotations(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarFun, "x", til.Int)
	b.EnterScope(vd)
	x := b.NewVariable(vd)
	x.AddAnnotation(&til.InstrName{Name: "x"})
	body := b.NewBinaryOp(til.BopAdd, x, intLit(b, 1))
	body.AddAnnotation(&til.SourceLoc{Pos: position.Position{Filename: "a.til", Line: 3, Column: 7}})
	body.AddAnnotation(&til.Precondition{Cond: b.NewBinaryOp(til.BopLt, b.NewVariable(vd), intLit(b, 9))})
	b.ExitScope()
	fn := b.NewFunction(vd, body)

	res, err := Copy(fn, Options{})
	require.NoError(t, err)
	require.Len(t, body.Annotations(), 2)

	nbody := res.(*til.Function).Body.(*til.BinaryOp)
	require.Len(t, nbody.Annotations(), 2)

	loc := til.FindAnnotation(nbody, til.AnnSourceLoc).(*til.SourceLoc)
	if loc.Pos.String() != "a.til:3:7" {
		t.Errorf("Expected position a.til:3:7, got %s", loc.Pos)
	}
	pre := til.FindAnnotation(nbody, til.AnnPrecondition).(*til.Precondition)
	cond := pre.Cond.(*til.BinaryOp)
	if cond.Lhs != nbody.Lhs {
		t.Error("Precondition should refer to the copied variable")
	}
	if len(nbody.Lhs.Annotations()) != 0 {
		t.Error("Shared variables should not collect annotations")
	}
}

// TestCopyLogs tests that the copier reports progress through its logger.
func TestCopyLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := builder.New(nil)
	_, err := Copy(buildCountingLoop(b).cfg, Options{Logger: logger})
	require.NoError(t, err)

	out := buf.String()
	for _, want := range []string{"copy start", "enter cfg", "copy done"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %q", want)
		}
	}
}

// TestCopyErrors tests that invariant violations surface as errors.
func TestCopyErrors(t *testing.T) {
	tests := []struct {
		name string
		term func(b *builder.Builder) (til.Node, Options)
		code string
	}{
		{
			name: "unknown node",
			term: func(b *builder.Builder) (til.Node, Options) {
				return b.NewUnaryOp(til.UopMinus, bogus{}), Options{}
			},
			code: errors.CodeUnknownNode,
		},
		{
			name: "pending future",
			term: func(b *builder.Builder) (til.Node, Options) {
				return b.NewUnaryOp(til.UopMinus, til.NewFuture(0, nil)), Options{}
			},
			code: errors.CodeUnforcedFuture,
		},
		{
			name: "instruction outside any graph",
			term: func(b *builder.Builder) (til.Node, Options) {
				l := buildCountingLoop(b)
				return b.NewUnaryOp(til.UopMinus, l.cond), Options{}
			},
			code: errors.CodeUnmappedInstruction,
		},
		{
			name: "unterminated block",
			term: func(b *builder.Builder) (til.Node, Options) {
				l := buildCountingLoop(b)
				l.done.Term = nil
				return l.cfg, Options{}
			},
			code: errors.CodeUnterminatedBlock,
		},
		{
			name: "switch labels and cases disagree",
			term: func(b *builder.Builder) (til.Node, Options) {
				cfg := buildSwitch(b)
				sw := cfg.Entry().Term.(*til.Switch)
				sw.Labels = append(sw.Labels, intLit(b, 2))
				return cfg, Options{}
			},
			code: errors.CodeShapeMismatch,
		},
		{
			name: "binding without binder level",
			term: func(b *builder.Builder) (til.Node, Options) {
				vd := b.NewVarDecl(til.VarLet, "z", nil)
				return b.NewVariable(vd), Options{Bindings: map[*til.VarDecl]til.Node{vd: intLit(b, 1)}}
			},
			code: errors.CodeBadBinder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, opts := tt.term(builder.New(nil))
			res, err := Copy(term, opts)
			require.Error(t, err)
			require.Nil(t, res)
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Expected code %s, got %v", tt.code, err)
			}
			if !IsInvariantViolation(err) {
				t.Errorf("Expected an invariant violation, got %v", err)
			}
		})
	}
}

// TestCopyAll tests concurrent copies and failure propagation.
func TestCopyAll(t *testing.T) {
	b := builder.New(nil)
	fn, _ := buildIncrement(b)
	terms := []til.Node{fn, buildCountingLoop(b).cfg, buildSwitch(b)}

	out, err := CopyAll(context.Background(), terms, Options{})
	require.NoError(t, err)
	require.Len(t, out, len(terms))
	for i := range terms {
		if !tilcheck.Equal(terms[i], out[i]) {
			t.Errorf("term %d: copy differs from original", i)
		}
	}

	_, err = CopyAll(context.Background(), append(terms, b.NewUnaryOp(til.UopMinus, bogus{})), Options{})
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.CodeUnknownNode))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyAll(ctx, terms, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, IsInvariantViolation(err))
}

// TestCopyJobs tests per-term options.
func TestCopyJobs(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarLet, "x", nil)
	b.EnterScope(vd)
	e := b.NewUnaryOp(til.UopMinus, b.NewVariable(vd))
	b.ExitScope()

	one, two := intLit(b, 1), intLit(b, 2)
	out, err := CopyJobs(context.Background(), []Job{
		{Term: e, Options: Options{Bindings: map[*til.VarDecl]til.Node{vd: one}}},
		{Term: e, Options: Options{Bindings: map[*til.VarDecl]til.Node{vd: two}}},
		{Term: e},
	})
	require.NoError(t, err)
	require.Same(t, one, out[0].(*til.UnaryOp).Operand)
	require.Same(t, two, out[1].(*til.UnaryOp).Operand)
	require.Same(t, vd, out[2].(*til.UnaryOp).Operand.(*til.Variable).Decl)
}

// TestCopyTwoBlockGraph tests the smallest graph: an entry that jumps
// straight to an exit without arguments.
func TestCopyTwoBlockGraph(t *testing.T) {
	b := builder.New(nil)
	shape := til.NewSCFG("two")
	shape.SetEntry(til.NewBasicBlock(shape))
	shape.SetExit(til.NewBasicBlock(shape))

	cfg := b.BeginCFGFrom(shape)
	b.BeginBlock(cfg.Entry())
	b.NewGoto(cfg.Exit())
	b.BeginBlock(cfg.Exit())
	b.NewReturn(intLit(b, 0))
	b.EndCFG()

	res, err := Copy(cfg, Options{})
	require.NoError(t, err)
	ncfg, ok := res.(*til.SCFG)
	require.True(t, ok, "expected *til.SCFG, got %T", res)
	require.NoError(t, tilcheck.Verify(ncfg))

	if ncfg.NumBlocks() != 2 {
		t.Fatalf("Expected 2 blocks, got %d", ncfg.NumBlocks())
	}
	g, ok := ncfg.Entry().Term.(*til.Goto)
	require.True(t, ok, "expected a goto from the entry, got %T", ncfg.Entry().Term)
	if g.Target != ncfg.Exit() {
		t.Error("Entry should jump to the copied exit")
	}
	if n := len(ncfg.Exit().Args); n != 0 {
		t.Errorf("Expected no exit arguments, got %d", n)
	}
	if diff := cmp.Diff([]int{ncfg.Entry().BlockID()}, blockIDs(ncfg.Exit().Predecessors())); diff != "" {
		t.Errorf("exit predecessors mismatch (-want +got):\n%s", diff)
	}
}

// TestCopyLetSharesVariable tests that both occurrences in
// "let x = 5 in x + x" become the same fresh variable.
func TestCopyLetSharesVariable(t *testing.T) {
	b := builder.New(nil)
	vd := b.NewVarDecl(til.VarLet, "x", intLit(b, 5))
	b.EnterScope(vd)
	body := b.NewBinaryOp(til.BopAdd, b.NewVariable(vd), b.NewVariable(vd))
	b.ExitScope()
	let := b.NewLet(vd, body)

	res, err := Copy(let, Options{})
	require.NoError(t, err)
	nlet, ok := res.(*til.Let)
	require.True(t, ok, "expected *til.Let, got %T", res)
	require.NotSame(t, vd, nlet.Decl)
	require.True(t, tilcheck.Equal(let, nlet))
	require.Empty(t, tilcheck.Shared(let, nlet))

	nbody := nlet.Body.(*til.BinaryOp)
	lhs, rhs := nbody.Lhs.(*til.Variable), nbody.Rhs.(*til.Variable)
	if lhs != rhs {
		t.Error("Both occurrences should be the same variable")
	}
	if lhs.Decl != nlet.Decl {
		t.Error("Occurrences should refer to the copied declaration")
	}
	if lit, ok := nlet.Decl.Def.(*til.Literal); !ok || lit.Value != int64(5) {
		t.Errorf("Expected definition 5, got %v", nlet.Decl.Def)
	}
}

// TestCopyConcreteArray tests that elements are copied in order.
func TestCopyConcreteArray(t *testing.T) {
	b := builder.New(nil)
	arr := b.NewArray(til.Int, 3)
	for i := 0; i < 3; i++ {
		b.SetArrayElement(arr, i, intLit(b, int64(10+i)))
	}

	res, err := Copy(arr, Options{})
	require.NoError(t, err)
	narr := res.(*til.Array)
	require.True(t, narr.Concrete())
	require.Equal(t, 3, narr.NumElements())

	var got []interface{}
	for i, e := range narr.Elements {
		require.NotSame(t, arr.Elements[i], e)
		got = append(got, e.(*til.Literal).Value)
	}
	if diff := cmp.Diff([]interface{}{int64(10), int64(11), int64(12)}, got); diff != "" {
		t.Errorf("elements mismatch (-want +got):\n%s", diff)
	}
	if narr.ElemType != til.Node(til.Int) {
		t.Error("Element type should be the shared scalar type")
	}
}
