package copier

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

// Copy returns a deep copy of e with opts.Bindings substituted. Invariant
// violations found during the copy are returned as *errors.StandardError.
func Copy(e til.Node, opts Options) (res til.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*errors.StandardError)
			if !ok {
				panic(r)
			}
			res, err = nil, se
		}
	}()

	c := New(opts)
	return c.TraverseAll(e), nil
}

// Job is one term to copy together with its options.
type Job struct {
	Term    til.Node
	Options Options
}

// CopyAll copies each term with its own Copier, concurrently. Results are
// in the order of terms. The first failure cancels the remaining copies.
func CopyAll(ctx context.Context, terms []til.Node, opts Options) ([]til.Node, error) {
	jobs := make([]Job, len(terms))
	for i, t := range terms {
		jobs[i] = Job{Term: t, Options: opts}
	}
	return CopyJobs(ctx, jobs)
}

// CopyJobs is CopyAll with options per term.
func CopyJobs(ctx context.Context, jobs []Job) ([]til.Node, error) {
	out := make([]til.Node, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Copy(j.Term, j.Options)
			if err != nil {
				return fmt.Errorf("failed to copy term %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsInvariantViolation reports whether err came from a broken term rather
// than from cancellation.
func IsInvariantViolation(err error) bool {
	return errors.HasCategory(err, errors.CategoryInvariant)
}
