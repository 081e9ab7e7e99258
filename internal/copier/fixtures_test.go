package copier

import (
	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/til"
)

func intLit(b *builder.Builder, v int64) *til.Literal { return b.NewLiteral(til.Int, v) }

// buildIncrement builds "fun x: int . x + 1".
func buildIncrement(b *builder.Builder) (*til.Function, *til.VarDecl) {
	vd := b.NewVarDecl(til.VarFun, "x", til.Int)
	b.EnterScope(vd)
	body := b.NewBinaryOp(til.BopAdd, b.NewVariable(vd), intLit(b, 1))
	b.ExitScope()
	return b.NewFunction(vd, body), vd
}

type loopCFG struct {
	cfg                       *til.SCFG
	entry, header, body, done *til.BasicBlock
	cond, next                til.Instruction
}

// buildCountingLoop builds a graph that counts i from 0 to 10:
//
//	entry:  goto header(0)
//	header: i = phi(0, next); cond = i < 10; branch cond body done
//	body:   next = i + 1; goto header(next)
//	done:   goto exit(i)
//	exit:   return r
func buildCountingLoop(b *builder.Builder) *loopCFG {
	l := &loopCFG{}
	l.cfg = b.BeginCFG("count")
	l.entry = l.cfg.Entry()
	l.header = b.NewBlock(1, 2)
	l.body = b.NewBlock(0, 1)
	l.done = b.NewBlock(0, 1)
	exit := l.cfg.Exit()

	g := b.NewGoto(l.header)
	b.SetPhiArgument(l.header.Args[0], intLit(b, 0), g.Index)

	b.BeginBlock(l.header)
	i := l.header.Args[0]
	l.cond = b.NewBinaryOp(til.BopLt, i, intLit(b, 10))
	b.NewBranch(l.cond, l.body, l.done)

	b.BeginBlock(l.body)
	l.next = b.NewBinaryOp(til.BopAdd, i, intLit(b, 1))
	g = b.NewGoto(l.header)
	b.SetPhiArgument(i, l.next, g.Index)

	b.BeginBlock(l.done)
	g = b.NewGoto(exit)
	b.SetPhiArgument(exit.Args[0], i, g.Index)

	b.BeginBlock(exit)
	b.NewReturn(exit.Args[0])
	b.EndCFG()
	return l
}

// buildSwitch builds a graph that switches on a literal into two cases
// that both jump to the exit.
func buildSwitch(b *builder.Builder) *til.SCFG {
	cfg := b.BeginCFG("sw")
	exit := cfg.Exit()
	c0 := b.NewBlock(0, 1)
	c1 := b.NewBlock(0, 1)

	sw := b.NewSwitch(intLit(b, 1), 2)
	b.AddSwitchCase(sw, intLit(b, 0), c0)
	b.AddSwitchCase(sw, intLit(b, 1), c1)

	for i, c := range []*til.BasicBlock{c0, c1} {
		b.BeginBlock(c)
		g := b.NewGoto(exit)
		b.SetPhiArgument(exit.Args[0], intLit(b, int64(10*i)), g.Index)
	}

	b.BeginBlock(exit)
	b.NewReturn(exit.Args[0])
	b.EndCFG()
	return cfg
}

// bogus is a node kind no traversal knows about.
type bogus struct{}

func (bogus) Opcode() til.Opcode             { return til.OpUndefined }
func (bogus) Annotations() []til.Annotation  { return nil }
func (bogus) AddAnnotation(a til.Annotation) {}
