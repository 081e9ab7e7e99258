package tilfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/til"
)

// Encode writes doc to w. Free variables of the term that are missing from
// doc.Free are appended to the free list in order of first use.
func Encode(w io.Writer, doc *Document) error {
	root, err := newEncoder().document(doc)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to write term: %w", err)
	}
	return enc.Close()
}

// EncodeFile writes doc to path, creating parent directories.
func EncodeFile(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create term file: %w", err)
	}
	if err := Encode(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type encoder struct {
	bound []*til.VarDecl // innermost last
	free  []*til.VarDecl

	names  map[til.Instruction]string
	used   map[string]bool
	blocks map[*til.BasicBlock]string
}

func newEncoder() *encoder {
	return &encoder{
		names:  make(map[til.Instruction]string),
		used:   make(map[string]bool),
		blocks: make(map[*til.BasicBlock]string),
	}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func null() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func boolean(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func mapping(kv ...interface{}) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		m.Content = append(m.Content, scalar(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return m
}

func sequence(items []*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Content: items}
}

func tagged(op til.Opcode, val *yaml.Node) *yaml.Node {
	return mapping(op.String(), val)
}

func fail(format string, args ...interface{}) error {
	return errors.BadTermFile("encode", fmt.Sprintf(format, args...))
}

func (e *encoder) document(doc *Document) (*yaml.Node, error) {
	e.free = append(e.free, doc.Free...)
	term, err := e.term(doc.Term)
	if err != nil {
		return nil, err
	}

	free := make([]*yaml.Node, len(e.free))
	seen := make(map[string]bool, len(e.free))
	for i, vd := range e.free {
		if seen[vd.Name] {
			return nil, fail("two free variables are named %q", vd.Name)
		}
		seen[vd.Name] = true
		free[i] = scalar(vd.Name)
	}

	root := mapping("format", scalar(FormatVersion))
	if doc.Name != "" {
		root.Content = append(root.Content, scalar("name"), scalar(doc.Name))
	}
	if len(free) > 0 {
		f := sequence(free)
		f.Style = yaml.FlowStyle
		root.Content = append(root.Content, scalar("free"), f)
	}
	root.Content = append(root.Content, scalar("term"), term)
	return root, nil
}

func (e *encoder) term(n til.Node) (*yaml.Node, error) {
	if n == nil {
		return null(), nil
	}
	if f, ok := n.(*til.Future); ok {
		if f.Status() != til.FutureForced {
			return nil, fail("cannot encode a pending future")
		}
		return e.term(f.Result())
	}
	if in, ok := n.(til.Instruction); ok && til.IsPlaced(n) {
		name, ok := e.names[in]
		if !ok {
			return nil, fail("instruction %d is used outside its graph", in.InstrID())
		}
		return mapping("ref", scalar(name)), nil
	}
	return e.node(n)
}

// fields encodes named children into a map, leaving out nil ones.
func (e *encoder) fields(kv ...interface{}) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		var v *yaml.Node
		switch x := kv[i+1].(type) {
		case *yaml.Node:
			v = x
		case til.Node:
			if x == nil {
				continue
			}
			var err error
			if v, err = e.term(x); err != nil {
				return nil, err
			}
		case nil:
			continue
		}
		m.Content = append(m.Content, scalar(kv[i].(string)), v)
	}
	return m, nil
}

func (e *encoder) node(n til.Node) (*yaml.Node, error) {
	var val *yaml.Node
	var err error

	switch x := n.(type) {
	case *til.ScalarType:
		val = scalar(x.Name)
	case *til.Literal:
		val, err = e.literal(x)
	case *til.Variable:
		val, err = e.variable(x)
	case *til.Identifier:
		val = scalar(x.Name)
	case *til.Undefined, *til.Wildcard:
		val = &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
	case *til.Function:
		val, err = e.binder(x.Decl, x.Body)
	case *til.Let:
		val, err = e.binder(x.Decl, x.Body)
	case *til.Code:
		val, err = e.fields("returns", x.ReturnType, "body", x.Body)
		if err == nil && x.CallingConv != til.CallDefault {
			val.Content = append(val.Content, scalar("cc"), scalar(x.CallingConv.String()))
		}
	case *til.Field:
		val, err = e.fields("range", x.Range, "body", x.Body)
	case *til.Slot:
		val, err = e.slot(x)
	case *til.Record:
		val, err = e.record(x)
	case *til.Array:
		val, err = e.array(x)
	case *til.Apply:
		val, err = e.fields("fun", x.Fun, "arg", x.Arg)
		if err == nil && x.Kind == til.ApplySelf {
			val.Content = append(val.Content, scalar("self"), boolean(true))
		}
	case *til.Project:
		val, err = e.fields("rec", x.Rec, "slot", scalar(x.SlotName))
		if err == nil && x.Arrow {
			val.Content = append(val.Content, scalar("arrow"), boolean(true))
		}
	case *til.IfThenElse:
		val, err = e.fields("cond", x.Cond, "then", x.Then, "else", x.Else)
	case *til.SCFG:
		val, err = e.graph(x)
	case til.Instruction:
		val, err = e.instruction(x)
	default:
		return nil, fail("cannot encode %s", n.Opcode())
	}
	if err != nil {
		return nil, err
	}
	return tagged(n.Opcode(), val), nil
}

func (e *encoder) instruction(in til.Instruction) (*yaml.Node, error) {
	switch x := in.(type) {
	case *til.Call:
		val, err := e.fields("target", x.Target)
		if err == nil && x.CallingConv != til.CallDefault {
			val.Content = append(val.Content, scalar("cc"), scalar(x.CallingConv.String()))
		}
		return val, err
	case *til.Alloc:
		val, err := e.fields("init", x.Init)
		if err == nil && x.Kind == til.AllocHeap {
			val.Content = append(val.Content, scalar("heap"), boolean(true))
		}
		return val, err
	case *til.Load:
		return e.fields("ptr", x.Ptr)
	case *til.Store:
		return e.fields("dest", x.Dest, "source", x.Source)
	case *til.ArrayIndex:
		return e.fields("array", x.Array, "index", x.Index)
	case *til.ArrayAdd:
		return e.fields("array", x.Array, "index", x.Index)
	case *til.UnaryOp:
		return e.fields("op", scalar(x.Op.String()), "operand", x.Operand)
	case *til.BinaryOp:
		return e.fields("op", scalar(x.Op.String()), "lhs", x.Lhs, "rhs", x.Rhs)
	case *til.Cast:
		return e.fields("op", scalar(x.Op.String()), "operand", x.Operand)
	}
	return nil, fail("%s is only valid as a block argument", in.Opcode())
}

func (e *encoder) literal(l *til.Literal) (*yaml.Node, error) {
	m := mapping("type", scalar(l.Type.Name))
	if l.Type.Base == til.BaseVoid {
		return m, nil
	}
	v := &yaml.Node{}
	if err := v.Encode(l.Value); err != nil {
		return nil, fail("literal of type %s: %v", l.Type.Name, err)
	}
	m.Content = append(m.Content, scalar("value"), v)
	m.Style = yaml.FlowStyle
	return m, nil
}

// variable writes a variable by name. The name must resolve to the same
// declaration when read back.
func (e *encoder) variable(v *til.Variable) (*yaml.Node, error) {
	for i := len(e.bound) - 1; i >= 0; i-- {
		if e.bound[i].Name != v.Decl.Name {
			continue
		}
		if e.bound[i] != v.Decl {
			return nil, fail("variable %q is shadowed", v.Decl.Name)
		}
		return scalar(v.Decl.Name), nil
	}
	for _, vd := range e.free {
		if vd == v.Decl {
			return scalar(v.Decl.Name), nil
		}
	}
	e.free = append(e.free, v.Decl)
	return scalar(v.Decl.Name), nil
}

func (e *encoder) binder(vd *til.VarDecl, body til.Node) (*yaml.Node, error) {
	m := mapping("name", scalar(vd.Name))
	key := "def"
	switch vd.Kind {
	case til.VarFun:
		key = "type"
	case til.VarSFun:
		key = "type"
		m.Content = append(m.Content, scalar("kind"), scalar(vd.Kind.String()))
	}
	if vd.Def != nil {
		def, err := e.term(vd.Def)
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, scalar(key), def)
	}

	e.bound = append(e.bound, vd)
	b, err := e.term(body)
	e.bound = e.bound[:len(e.bound)-1]
	if err != nil {
		return nil, err
	}
	m.Content = append(m.Content, scalar("body"), b)
	return m, nil
}

func (e *encoder) slot(s *til.Slot) (*yaml.Node, error) {
	m, err := e.fields("name", scalar(s.Name), "def", s.Def)
	if err != nil {
		return nil, err
	}
	var mods []*yaml.Node
	for _, mn := range modifierNames {
		if s.HasModifier(mn.mod) {
			mods = append(mods, scalar(mn.name))
		}
	}
	if len(mods) > 0 {
		seq := sequence(mods)
		seq.Style = yaml.FlowStyle
		m.Content = append(m.Content, scalar("modifiers"), seq)
	}
	return m, nil
}

func (e *encoder) record(r *til.Record) (*yaml.Node, error) {
	m, err := e.fields("parent", r.Parent)
	if err != nil {
		return nil, err
	}
	slots := make([]*yaml.Node, len(r.Slots))
	for i, s := range r.Slots {
		if slots[i], err = e.slot(s); err != nil {
			return nil, err
		}
	}
	m.Content = append(m.Content, scalar("slots"), sequence(slots))
	return m, nil
}

func (e *encoder) array(a *til.Array) (*yaml.Node, error) {
	if !a.Concrete() {
		return e.fields("elem", a.ElemType, "size", a.Size)
	}
	m, err := e.fields("elem", a.ElemType)
	if err != nil {
		return nil, err
	}
	elems := make([]*yaml.Node, len(a.Elements))
	for i, el := range a.Elements {
		if elems[i], err = e.term(el); err != nil {
			return nil, err
		}
	}
	m.Content = append(m.Content, scalar("elements"), sequence(elems))
	return m, nil
}
