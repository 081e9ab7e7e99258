package copier

import (
	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
	"github.com/orizon-lang/til/internal/traverse"
)

// pendingFuture is everything needed to resume a deferred rewrite: the
// original term, and the scope and builder cursor at the point it was
// deferred.
type pendingFuture struct {
	fut       *til.Future
	exp       til.Node
	scope     *CopyScope
	state     builder.State
	createCFG bool
}

// FutureStamp records when a future was created and forced, both counted
// from zero in the order of the respective events. Forced is -1 for a
// future that was never forced.
type FutureStamp struct {
	Seq     int
	Op      til.Opcode
	Created int
	Forced  int
}

// MakeFuture defers the rewrite of e. Instruction emission is disabled in
// the saved cursor, since the block that is open now will have been
// closed by the time the future is forced. If createCFG is set, e is
// rewritten inside a fresh graph.
func (c *Copier) MakeFuture(e til.Node, createCFG bool) *til.Future {
	seq := len(c.stamps)
	st := c.Builder.CurrentState()
	st.EmitInstrs = false

	pf := &pendingFuture{
		exp:       e,
		scope:     c.scope.Clone(),
		state:     st,
		createCFG: createCFG,
	}
	pf.fut = til.NewFuture(seq, func() til.Node { return c.evaluate(pf) })

	c.queue = append(c.queue, pf)
	c.stamps = append(c.stamps, FutureStamp{Seq: seq, Op: e.Opcode(), Created: seq, Forced: -1})
	c.logger.Debug("future created", "seq", seq, "op", e.Opcode().String(), "lift", createCFG)
	return pf.fut
}

func (c *Copier) force(pf *pendingFuture) {
	pf.fut.Force()
	c.stamps[pf.fut.Seq].Forced = c.forced
	c.forced++
	c.logger.Debug("future forced", "seq", pf.fut.Seq, "pending", len(c.queue))
}

// evaluate rewrites the deferred term under the scope and cursor saved
// when it was deferred, then restores the current ones.
func (c *Copier) evaluate(pf *pendingFuture) til.Node {
	oldScope := c.switchScope(pf.scope)
	oldState := c.Builder.SwitchState(pf.state)

	if pf.createCFG {
		c.EnterCFG(nil)
	}
	c.Traverse(pf.exp, traverse.KindTail)
	res := c.attrs.Pop().Exp
	if pf.createCFG {
		res = c.liftResult(res)
	}

	c.Builder.RestoreState(oldState)
	c.restoreScope(oldScope)
	return res
}

// liftResult finishes a graph opened by EnterCFG(nil): the open block
// jumps to the exit, which returns val.
func (c *Copier) liftResult(val til.Node) til.Node {
	cfg := c.Builder.CurrentCFG()
	exit := cfg.Exit()
	if len(exit.Args) != 1 {
		panic(errors.ShapeMismatch("exit arguments", 1, len(exit.Args)))
	}
	g := c.Builder.NewGoto(exit)
	c.Builder.SetPhiArgument(exit.Args[0], val, g.Index)
	c.Builder.BeginBlock(exit)
	c.Builder.NewReturn(exit.Args[0])
	c.ExitCFG(nil)
	return cfg
}

// Futures returns the stamps of every future created so far.
func (c *Copier) Futures() []FutureStamp {
	return append([]FutureStamp(nil), c.stamps...)
}

// NumPending is the number of futures not yet forced.
func (c *Copier) NumPending() int { return len(c.queue) }
