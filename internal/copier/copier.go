// Package copier makes deep, structurally independent copies of TIL terms.
// It is also the base for non-destructive rewrites: bound variables are
// substituted during the copy, graphs are rebuilt block by block, and
// terms at lazy or type positions are rewritten later through futures.
package copier

import (
	"log/slog"

	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
	"github.com/orizon-lang/til/internal/traverse"
)

// Options configures a Copier.
type Options struct {
	Logger *slog.Logger

	// Bindings substitutes free variables of the copied term. Each
	// declaration must have been bound by a builder so it has a binder
	// level.
	Bindings map[*til.VarDecl]til.Node

	// LiftCodeBodies rewrites Code bodies that are not already graphs into
	// a fresh graph whose exit block returns the body's value.
	LiftCodeBodies bool

	// BaseDepth is the lowest binder level the copy may use. Binders of the
	// copy always start above the levels of the term's free variables, so
	// BaseDepth only matters when more levels are reserved than the term
	// mentions.
	BaseDepth int
}

// Copier rewrites a term into a new one. A Copier is single-threaded and
// is meant for one top-level traversal.
type Copier struct {
	Builder *builder.Builder

	attrs     traverse.Attrs[Attr]
	scope     *CopyScope
	parents   []til.Node
	resultAnn til.Annotation

	queue  []*pendingFuture
	stamps []FutureStamp
	forced int

	opts   Options
	logger *slog.Logger
}

var _ traverse.Visitor = (*Copier)(nil)

// New creates a copier. It panics with an invariant error if a binding
// refers to an unbound declaration.
func New(opts Options) *Copier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Copier{
		Builder: builder.New(logger),
		scope:   NewCopyScope(),
		opts:    opts,
		logger:  logger,
	}
	if opts.BaseDepth > 0 {
		st := c.Builder.CurrentState()
		st.Depth = opts.BaseDepth
		c.Builder.SwitchState(st)
	}
	for vd, e := range opts.Bindings {
		c.scope.EnterScope(vd, Attr{Exp: e})
	}
	return c
}

// Scope is the active substitution scope.
func (c *Copier) Scope() *CopyScope { return c.scope }

func (c *Copier) switchScope(s *CopyScope) *CopyScope {
	old := c.scope
	c.scope = s
	return old
}

func (c *Copier) restoreScope(s *CopyScope) { c.scope = s }

// Traverse visits n at position k. Non-value terms at lazy and type
// positions are deferred; everything else is walked immediately.
func (c *Copier) Traverse(n til.Node, k traverse.Kind) {
	if (k == traverse.KindLazy || k == traverse.KindType) && n != nil && !til.IsValue(n) {
		c.attrs.Push(Attr{Exp: c.MakeFuture(n, c.liftsInto(n, k))})
		return
	}

	c.parents = append(c.parents, n)
	f := c.attrs.PushFrame()
	traverse.Walk(c, n, k)
	c.attrs.RestoreFrame(f)
	c.parents = c.parents[:len(c.parents)-1]

	if n != nil && !traverse.IsWeak(n, k) && len(n.Annotations()) > 0 {
		c.copyAnnotations(n)
	}
}

// liftsInto reports whether a deferred n must be rewritten inside a fresh
// graph.
func (c *Copier) liftsInto(n til.Node, k traverse.Kind) bool {
	if !c.opts.LiftCodeBodies || k != traverse.KindLazy || len(c.parents) == 0 {
		return false
	}
	if _, isCode := c.parents[len(c.parents)-1].(*til.Code); !isCode {
		return false
	}
	_, isCFG := n.(*til.SCFG)
	return !isCFG
}

// copyAnnotations rewrites the annotations of n onto its freshly built
// replacement, which is the last attribute.
func (c *Copier) copyAnnotations(n til.Node) {
	host := c.attrs.Last().Exp
	if host == nil || host == n {
		return
	}
	if _, ok := host.(*til.ScalarType); ok {
		return
	}
	// bound occurrences share one replacement
	if v, ok := n.(*til.Variable); ok && !c.scope.IsNull(v.Decl.VarIndex()) {
		return
	}
	for _, a := range n.Annotations() {
		f := c.attrs.PushFrame()
		traverse.WalkAnnotation(c, a)
		c.attrs.DiscardFrame(f)
		host.AddAnnotation(c.resultAnn)
		c.resultAnn = nil
	}
}

// TraverseAll copies e, then forces every future created along the way,
// including futures created while forcing, in creation order.
func (c *Copier) TraverseAll(e til.Node) til.Node {
	if !c.attrs.Empty() {
		panic(errors.UnbalancedScope("traversal already in progress"))
	}
	if d := freeDepth(e); d > c.Builder.Depth() {
		st := c.Builder.CurrentState()
		st.Depth = d
		c.Builder.SwitchState(st)
	}
	c.logger.Debug("copy start", "op", opName(e), "depth", c.Builder.Depth())

	c.Traverse(e, traverse.KindTail)
	res := c.attrs.Pop().Exp

	for len(c.queue) > 0 {
		pf := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.force(pf)
	}

	c.attrs.Clear()
	c.logger.Debug("copy done", "futures", len(c.stamps))
	return res
}

// freeDepth returns one more than the highest binder level of a variable
// that e mentions but does not bind, or 0 if e has no free variables.
func freeDepth(e til.Node) int {
	seen := make(map[til.Node]bool)
	bound := make(map[*til.VarDecl]bool)
	var free []*til.VarDecl
	stack := []til.Node{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		switch x := n.(type) {
		case *til.VarDecl:
			bound[x] = true
		case *til.Variable:
			free = append(free, x.Decl)
		}
		stack = append(stack, til.Children(n)...)
		for _, a := range n.Annotations() {
			stack = append(stack, a.Operands()...)
		}
	}

	depth := 0
	for _, vd := range free {
		if !bound[vd] && vd.VarIndex() >= depth {
			depth = vd.VarIndex() + 1
		}
	}
	return depth
}

func opName(n til.Node) string {
	if n == nil {
		return "null"
	}
	return n.Opcode().String()
}

/* Scope hooks */

// EnterScope must run right after the declaration's own attribute was
// computed. It creates the one variable every occurrence of vd becomes.
func (c *Copier) EnterScope(vd *til.VarDecl) {
	nvd, ok := c.attrs.Last().Exp.(*til.VarDecl)
	if !ok {
		panic(errors.BadBinder("binder " + vd.Name + " was not rewritten to a declaration"))
	}
	nv := c.Builder.NewVariable(nvd)

	c.Builder.EnterScope(nvd)
	c.scope.EnterScope(vd, Attr{Exp: nv})
}

// ExitScope closes the binder opened by EnterScope.
func (c *Copier) ExitScope(vd *til.VarDecl) {
	c.Builder.ExitScope()
	c.scope.ExitScope()
}

// EnterCFG opens the graph that cfg is rewritten into. A nil cfg lifts an
// ordinary term into a fresh graph.
func (c *Copier) EnterCFG(cfg *til.SCFG) {
	if cfg != nil {
		// Rewriting a graph to a graph.
		ncfg := c.Builder.BeginCFGFrom(cfg)
		c.scope.EnterCFG(cfg, ncfg)
		c.logger.Debug("enter cfg", "name", cfg.Name, "blocks", cfg.NumBlocks())
		return
	}
	// Lifting an ordinary term into a graph.
	c.Builder.BeginCFG("")
	c.scope.EnterCFG(nil, nil)
}

// ExitCFG closes the current graph and its block map.
func (c *Copier) ExitCFG(cfg *til.SCFG) {
	c.Builder.EndCFG()
	c.scope.ExitCFG()
}

// EnterBlock makes the block that b maps to the current block.
func (c *Copier) EnterBlock(b *til.BasicBlock) {
	c.Builder.BeginBlock(c.lookupBlock(b))
}

// ExitBlock checks that the rewritten block was terminated.
func (c *Copier) ExitBlock(b *til.BasicBlock) {
	// The terminator ends the block.
	if c.Builder.CurrentBlock() != nil {
		panic(errors.UnterminatedBlock(b.BlockID()))
	}
}

// lookupBlock finds the block orig maps to, creating it on first use.
func (c *Copier) lookupBlock(orig *til.BasicBlock) *til.BasicBlock {
	if orig == nil {
		return nil
	}
	b := c.scope.LookupBlock(orig)
	if b == nil {
		b = c.Builder.NewBlock(len(orig.Args), orig.NumPredecessors())
		c.scope.InsertBlockMap(orig, b)
	}
	return b
}
