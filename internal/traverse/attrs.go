// Package traverse implements the bottom-up traversal engine for TIL terms.
// Children are visited before their parent, each leaving one attribute on
// a stack; the parent's reduce method reads them by position and produces
// the parent's own attribute.
package traverse

import "fmt"

// Kind describes the position a term is traversed from.
type Kind uint8

const (
	KindArg     Kind = iota // ordinary operand
	KindSubExpr             // head of an application or projection
	KindTail                // tail position of a binder or the root
	KindDecl                // declaration or block instruction definition
	KindLazy                // evaluation may be deferred
	KindType                // type position; evaluation may be deferred
)

var kindNames = [...]string{"arg", "subexpr", "tail", "decl", "lazy", "type"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Attrs is an attribute stack divided into frames. Each traversal call
// opens a frame for the attributes of its children; closing the frame
// replaces them with the call's result.
type Attrs[A any] struct {
	stack  []A
	frame  int
	result A
}

// PushFrame opens a new frame and returns a token for RestoreFrame.
func (a *Attrs[A]) PushFrame() int {
	f := a.frame
	a.frame = len(a.stack)
	return f
}

// RestoreFrame drops the current frame and pushes the pending result.
func (a *Attrs[A]) RestoreFrame(f int) {
	res := a.result
	var zero A
	a.result = zero
	a.stack = a.stack[:a.frame]
	a.frame = f
	a.stack = append(a.stack, res)
}

// DiscardFrame drops the current frame without pushing a result.
func (a *Attrs[A]) DiscardFrame(f int) {
	var zero A
	a.result = zero
	a.stack = a.stack[:a.frame]
	a.frame = f
}

// Attr returns the i-th attribute of the current frame.
func (a *Attrs[A]) Attr(i int) A { return a.stack[a.frame+i] }

// NumAttrs is the number of attributes in the current frame.
func (a *Attrs[A]) NumAttrs() int { return len(a.stack) - a.frame }

// Result is the pending result of the current traversal call.
func (a *Attrs[A]) Result() *A { return &a.result }

// Last returns the most recently pushed attribute.
func (a *Attrs[A]) Last() A { return a.stack[len(a.stack)-1] }

// LastPtr allows an attribute to be moved out of the stack.
func (a *Attrs[A]) LastPtr() *A { return &a.stack[len(a.stack)-1] }

// Push adds an attribute to the current frame.
func (a *Attrs[A]) Push(v A) { a.stack = append(a.stack, v) }

// Pop removes and returns the last attribute.
func (a *Attrs[A]) Pop() A {
	v := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	return v
}

// Slice copies the attributes of the current frame.
func (a *Attrs[A]) Slice() []A {
	return append([]A(nil), a.stack[a.frame:]...)
}

func (a *Attrs[A]) Empty() bool { return len(a.stack) == 0 && a.frame == 0 }

// Clear resets the stack.
func (a *Attrs[A]) Clear() {
	var zero A
	a.stack = a.stack[:0]
	a.frame = 0
	a.result = zero
}
