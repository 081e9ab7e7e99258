package tilcheck

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

// Verify checks every graph reachable from n and reports all problems it
// finds. It returns nil for a well-formed term.
func Verify(n til.Node) error {
	var errs *multierror.Error
	for m := range Reachable(n) {
		switch x := m.(type) {
		case *til.SCFG:
			errs = multierror.Append(errs, verifyCFG(x))
		case *til.Future:
			if x.Status() != til.FutureForced {
				errs = multierror.Append(errs, errors.UnforcedFuture(1))
			}
		}
	}
	return errs.ErrorOrNil()
}

func verifyCFG(g *til.SCFG) error {
	var errs *multierror.Error
	fail := func(format string, args ...interface{}) {
		errs = multierror.Append(errs, errors.MalformedGraph(g.Name, fmt.Sprintf(format, args...)))
	}

	if g.Entry() == nil || g.Exit() == nil {
		fail("missing entry or exit block")
		return errs.ErrorOrNil()
	}
	if !hasBlock(g.Blocks(), g.Entry()) || !hasBlock(g.Blocks(), g.Exit()) {
		fail("entry or exit block is not part of the graph")
	}

	for i, b := range g.Blocks() {
		if b.BlockID() != i {
			fail("block at position %d has id %d", i, b.BlockID())
		}
		if b.CFG() != g {
			fail("block %d belongs to another graph", i)
		}
		if b.Term == nil {
			fail("block %d has no terminator", i)
			continue
		}
		for j, ph := range b.Args {
			if len(ph.Values) != b.NumPredecessors() {
				fail("block %d argument %d has %d values for %d predecessors",
					i, j, len(ph.Values), b.NumPredecessors())
			}
			for k, v := range ph.Values {
				if v == nil {
					fail("block %d argument %d has no value for predecessor %d", i, j, k)
				}
			}
		}
		for _, s := range b.Term.Successors() {
			if s == nil {
				fail("block %d jumps to a missing block", i)
				continue
			}
			if !hasBlock(s.Predecessors(), b) {
				fail("block %d is not a predecessor of its successor %d", i, s.BlockID())
			}
		}
		for _, p := range b.Predecessors() {
			if p == nil || p.Term == nil || !hasBlock(p.Term.Successors(), b) {
				fail("block %d lists a predecessor that does not jump to it", i)
			}
		}
	}

	reached := reachableBlocks(g.Entry())
	for i, b := range g.Blocks() {
		if !reached[b] {
			fail("block %d is unreachable", i)
		}
	}

	return errs.ErrorOrNil()
}

func hasBlock(bs []*til.BasicBlock, b *til.BasicBlock) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}

func reachableBlocks(entry *til.BasicBlock) map[*til.BasicBlock]bool {
	seen := map[*til.BasicBlock]bool{entry: true}
	work := []*til.BasicBlock{entry}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		if b.Term == nil {
			continue
		}
		for _, s := range b.Term.Successors() {
			if s != nil && !seen[s] {
				seen[s] = true
				work = append(work, s)
			}
		}
	}
	return seen
}
