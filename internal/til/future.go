package til

import "github.com/orizon-lang/til/internal/errors"

// FutureStatus tracks the life of a Future.
type FutureStatus uint8

const (
	FuturePending FutureStatus = iota
	FutureEvaluating
	FutureForced
)

// Future is a placeholder for a term whose rewrite has been deferred.
// Constructors that store a pending Future in a child slot register the
// slot; forcing overwrites every registered slot with the result.
type Future struct {
	node
	Seq       int
	status    FutureStatus
	result    Node
	positions []*Node
	eval      func() Node
}

func (*Future) Opcode() Opcode { return OpFuture }

// NewFuture creates a pending future that computes its result with eval.
func NewFuture(seq int, eval func() Node) *Future {
	return &Future{Seq: seq, eval: eval}
}

func (f *Future) Status() FutureStatus { return f.status }

// Result is the forced value, or nil while pending.
func (f *Future) Result() Node { return f.result }

// AddPosition registers a slot that currently holds f.
func (f *Future) AddPosition(slot *Node) {
	f.positions = append(f.positions, slot)
}

// Force evaluates the future. A future is forced exactly once.
func (f *Future) Force() Node {
	if f.status != FuturePending {
		panic(errors.DoubleForce(f.Seq))
	}
	f.status = FutureEvaluating
	res := f.eval()
	f.eval = nil
	f.result = res
	f.status = FutureForced
	for _, slot := range f.positions {
		if *slot == Node(f) {
			*slot = res
		}
	}
	f.positions = nil
	return res
}

// Track registers slot with the future it holds, if any.
func Track(slot *Node) {
	if f, ok := (*slot).(*Future); ok && f.status != FutureForced {
		f.AddPosition(slot)
	}
}

// Resolve follows forced futures to the term they stand for.
func Resolve(n Node) Node {
	for {
		f, ok := n.(*Future)
		if !ok || f.status != FutureForced {
			return n
		}
		n = f.result
	}
}
