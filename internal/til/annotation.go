package til

import (
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/position"
)

// AnnotationKind identifies an annotation type.
type AnnotationKind uint8

const (
	AnnSourceLoc AnnotationKind = iota
	AnnInstrName
	AnnPrecondition
)

// Annotation is metadata attached to a node. Each kind knows how to copy
// itself given already rewritten operands.
type Annotation interface {
	Kind() AnnotationKind
	Operands() []Node
	Copy(ops []Node) Annotation
}

// SourceLoc records where a term came from.
type SourceLoc struct {
	Pos position.Position
}

func (*SourceLoc) Kind() AnnotationKind { return AnnSourceLoc }
func (*SourceLoc) Operands() []Node     { return nil }

func (a *SourceLoc) Copy([]Node) Annotation { return &SourceLoc{Pos: a.Pos} }

// InstrName gives an instruction a readable name.
type InstrName struct {
	Name string
}

func (*InstrName) Kind() AnnotationKind { return AnnInstrName }
func (*InstrName) Operands() []Node     { return nil }

func (a *InstrName) Copy([]Node) Annotation { return &InstrName{Name: a.Name} }

// Precondition attaches a condition that must hold before the host term.
type Precondition struct {
	Cond Node
}

func (*Precondition) Kind() AnnotationKind { return AnnPrecondition }

func (a *Precondition) Operands() []Node { return []Node{a.Cond} }

func (a *Precondition) Copy(ops []Node) Annotation {
	if len(ops) != 1 {
		panic(errors.ShapeMismatch("precondition operands", 1, len(ops)))
	}
	return &Precondition{Cond: ops[0]}
}

// FindAnnotation returns the first annotation of kind k on n.
func FindAnnotation(n Node, k AnnotationKind) Annotation {
	for _, a := range n.Annotations() {
		if a.Kind() == k {
			return a
		}
	}
	return nil
}
