package tilfile

import (
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/til/internal/builder"
	"github.com/orizon-lang/til/internal/errors"
	"github.com/orizon-lang/til/internal/position"
	"github.com/orizon-lang/til/internal/til"
)

// DecodeFile reads the document stored at path.
func DecodeFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open term file: %w", err)
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads one document from r. filename is only used in error
// positions.
func Decode(r io.Reader, filename string) (doc *Document, err error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, errors.BadTermFile(filename, "empty document")
		}
		return nil, errors.BadTermFile(filename, err.Error())
	}

	d := &decoder{file: filename, b: builder.New(nil)}
	defer func() {
		// builder invariants still hold for malformed input we failed to catch
		if r := recover(); r != nil {
			se, ok := r.(*errors.StandardError)
			if !ok {
				panic(r)
			}
			doc, err = nil, se
		}
	}()
	return d.document(root.Content[0])
}

type decoder struct {
	file   string
	b      *builder.Builder
	vars   []*til.VarDecl // innermost last
	graphs []*graphNames  // innermost last
}

type graphNames struct {
	blocks map[string]*til.BasicBlock
	refs   map[string]til.Instruction
}

func (d *decoder) pos(n *yaml.Node) position.Position {
	return position.Position{Filename: d.file, Line: n.Line, Column: n.Column}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...interface{}) error {
	return errors.BadTermFile(d.pos(n).String(), fmt.Sprintf(format, args...))
}

// object is a mapping node with its keys checked.
type object struct {
	node   *yaml.Node
	fields map[string]*yaml.Node
}

func (o *object) get(key string) *yaml.Node { return o.fields[key] }

func (d *decoder) object(n *yaml.Node, allowed ...string) (*object, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "expected a map")
	}
	o := &object{node: n, fields: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !contains(allowed, k.Value) {
			return nil, d.errorf(k, "unexpected field %q", k.Value)
		}
		if _, dup := o.fields[k.Value]; dup {
			return nil, d.errorf(k, "duplicate field %q", k.Value)
		}
		o.fields[k.Value] = v
	}
	return o, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (d *decoder) required(o *object, key string) (*yaml.Node, error) {
	if v := o.get(key); v != nil {
		return v, nil
	}
	return nil, d.errorf(o.node, "missing field %q", key)
}

func (d *decoder) str(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", d.errorf(n, "expected a string")
	}
	return n.Value, nil
}

func (d *decoder) optStr(o *object, key string) (string, error) {
	if v := o.get(key); v != nil {
		return d.str(v)
	}
	return "", nil
}

func (d *decoder) optBool(o *object, key string) (bool, error) {
	var b bool
	if v := o.get(key); v != nil {
		if err := v.Decode(&b); err != nil {
			return false, d.errorf(v, "expected a boolean")
		}
	}
	return b, nil
}

func (d *decoder) seq(n *yaml.Node) ([]*yaml.Node, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected a list")
	}
	return n.Content, nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

/* Documents */

func (d *decoder) document(n *yaml.Node) (*Document, error) {
	o, err := d.object(n, "format", "name", "free", "term")
	if err != nil {
		return nil, err
	}
	fv, err := d.required(o, "format")
	if err != nil {
		return nil, err
	}
	ver, err := semver.NewVersion(fv.Value)
	if err != nil {
		return nil, d.errorf(fv, "invalid format version %q: %v", fv.Value, err)
	}
	if !supported.Check(ver) {
		return nil, d.errorf(fv, "format %s is not supported (want %s)", ver, SupportedFormats)
	}

	doc := &Document{Format: ver}
	if doc.Name, err = d.optStr(o, "name"); err != nil {
		return nil, err
	}

	free, err := d.seq(o.get("free"))
	if err != nil {
		return nil, err
	}
	for _, fn := range free {
		name, err := d.str(fn)
		if err != nil {
			return nil, err
		}
		if doc.FreeVar(name) != nil {
			return nil, d.errorf(fn, "free variable %q listed twice", name)
		}
		vd := d.b.NewVarDecl(til.VarLet, name, nil)
		d.b.EnterScope(vd)
		d.vars = append(d.vars, vd)
		doc.Free = append(doc.Free, vd)
	}

	tn, err := d.required(o, "term")
	if err != nil {
		return nil, err
	}
	if doc.Term, err = d.term(tn); err != nil {
		return nil, err
	}

	for range doc.Free {
		d.b.ExitScope()
	}
	d.vars = d.vars[:0]
	return doc, nil
}

/* Terms */

// term decodes a node map, or null.
func (d *decoder) term(n *yaml.Node) (til.Node, error) {
	if isNull(n) {
		return nil, nil
	}
	key, val, err := d.single(n)
	if err != nil {
		return nil, err
	}
	return d.node(key, val)
}

// single splits a single-key map into its key and value.
func (d *decoder) single(n *yaml.Node) (*yaml.Node, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, nil, d.errorf(n, "expected a map with a single opcode key")
	}
	return n.Content[0], n.Content[1], nil
}

// deferred decodes a child at a lazy or type position. Non-value terms
// there are built without placing their instructions, the way the copier
// rewrites them later.
func (d *decoder) deferred(n *yaml.Node) (til.Node, error) {
	if isNull(n) {
		return nil, nil
	}
	key, val, err := d.single(n)
	if err != nil {
		return nil, err
	}
	if op, ok := nodeOps[key.Value]; ok && isValueOp(op) {
		return d.node(key, val)
	}
	st := d.b.CurrentState()
	st.EmitInstrs = false
	old := d.b.SwitchState(st)
	res, err := d.node(key, val)
	d.b.RestoreState(old)
	return res, err
}

func (d *decoder) node(key, val *yaml.Node) (til.Node, error) {
	if key.Value == "ref" {
		return d.ref(val)
	}
	op, ok := nodeOps[key.Value]
	if !ok {
		return nil, d.errorf(key, "unknown opcode %q", key.Value)
	}

	switch op {
	case til.OpScalarType:
		return d.scalarType(val)
	case til.OpVariable:
		return d.variable(val)
	case til.OpIdentifier:
		name, err := d.str(val)
		if err != nil {
			return nil, err
		}
		return d.b.NewIdentifier(name), nil
	case til.OpUndefined, til.OpWildcard:
		if !isNull(val) && !(val.Kind == yaml.MappingNode && len(val.Content) == 0) {
			return nil, d.errorf(val, "%s takes no fields", key.Value)
		}
		if op == til.OpUndefined {
			return d.b.NewUndefined(), nil
		}
		return d.b.NewWildcard(), nil
	case til.OpLiteral:
		return d.literal(val)
	case til.OpSCFG:
		return d.graph(val)
	}

	switch op {
	case til.OpFunction:
		return d.function(val)
	case til.OpLet:
		return d.let(val)
	case til.OpCode:
		return d.code(val)
	case til.OpField:
		o, err := d.object(val, "range", "body")
		if err != nil {
			return nil, err
		}
		rng, err := d.deferred(o.get("range"))
		if err != nil {
			return nil, err
		}
		body, err := d.deferred(o.get("body"))
		if err != nil {
			return nil, err
		}
		return d.b.NewField(rng, body), nil
	case til.OpSlot:
		return d.slot(val)
	case til.OpRecord:
		return d.record(val)
	case til.OpArray:
		return d.array(val)
	case til.OpApply:
		o, err := d.object(val, "fun", "arg", "self")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "fun", "arg")
		if err != nil {
			return nil, err
		}
		self, err := d.optBool(o, "self")
		if err != nil {
			return nil, err
		}
		kind := til.ApplyNormal
		if self {
			kind = til.ApplySelf
		}
		return d.b.NewApply(kids[0], kids[1], kind), nil
	case til.OpProject:
		o, err := d.object(val, "rec", "slot", "arrow")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "rec")
		if err != nil {
			return nil, err
		}
		sn, err := d.required(o, "slot")
		if err != nil {
			return nil, err
		}
		slot, err := d.str(sn)
		if err != nil {
			return nil, err
		}
		arrow, err := d.optBool(o, "arrow")
		if err != nil {
			return nil, err
		}
		p := d.b.NewProject(kids[0], slot)
		p.Arrow = arrow
		return p, nil
	case til.OpIfThenElse:
		o, err := d.object(val, "cond", "then", "else")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "cond", "then", "else")
		if err != nil {
			return nil, err
		}
		return d.b.NewIfThenElse(kids[0], kids[1], kids[2]), nil
	}
	return d.instruction(op, val)
}

// terms decodes the named fields of o in order.
func (d *decoder) terms(o *object, keys ...string) ([]til.Node, error) {
	res := make([]til.Node, len(keys))
	for i, k := range keys {
		t, err := d.term(o.get(k))
		if err != nil {
			return nil, err
		}
		res[i] = t
	}
	return res, nil
}

func (d *decoder) instruction(op til.Opcode, val *yaml.Node) (til.Node, error) {
	switch op {
	case til.OpCall:
		o, err := d.object(val, "target", "cc")
		if err != nil {
			return nil, err
		}
		cc, err := d.callingConv(o)
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "target")
		if err != nil {
			return nil, err
		}
		c := d.b.NewCall(kids[0])
		c.CallingConv = cc
		return c, nil
	case til.OpAlloc:
		o, err := d.object(val, "init", "heap")
		if err != nil {
			return nil, err
		}
		heap, err := d.optBool(o, "heap")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "init")
		if err != nil {
			return nil, err
		}
		kind := til.AllocLocal
		if heap {
			kind = til.AllocHeap
		}
		return d.b.NewAlloc(kids[0], kind), nil
	case til.OpLoad:
		o, err := d.object(val, "ptr")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "ptr")
		if err != nil {
			return nil, err
		}
		return d.b.NewLoad(kids[0]), nil
	case til.OpStore:
		o, err := d.object(val, "dest", "source")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "dest", "source")
		if err != nil {
			return nil, err
		}
		return d.b.NewStore(kids[0], kids[1]), nil
	case til.OpArrayIndex, til.OpArrayAdd:
		o, err := d.object(val, "array", "index")
		if err != nil {
			return nil, err
		}
		kids, err := d.terms(o, "array", "index")
		if err != nil {
			return nil, err
		}
		if op == til.OpArrayIndex {
			return d.b.NewArrayIndex(kids[0], kids[1]), nil
		}
		return d.b.NewArrayAdd(kids[0], kids[1]), nil
	case til.OpUnaryOp:
		o, err := d.object(val, "op", "operand")
		if err != nil {
			return nil, err
		}
		name, err := d.opName(o)
		if err != nil {
			return nil, err
		}
		uop, ok := til.ParseUnaryOpcode(name)
		if !ok {
			return nil, d.errorf(o.get("op"), "unknown unary operator %q", name)
		}
		kids, err := d.terms(o, "operand")
		if err != nil {
			return nil, err
		}
		return d.b.NewUnaryOp(uop, kids[0]), nil
	case til.OpBinaryOp:
		o, err := d.object(val, "op", "lhs", "rhs")
		if err != nil {
			return nil, err
		}
		name, err := d.opName(o)
		if err != nil {
			return nil, err
		}
		bop, ok := til.ParseBinaryOpcode(name)
		if !ok {
			return nil, d.errorf(o.get("op"), "unknown binary operator %q", name)
		}
		kids, err := d.terms(o, "lhs", "rhs")
		if err != nil {
			return nil, err
		}
		return d.b.NewBinaryOp(bop, kids[0], kids[1]), nil
	case til.OpCast:
		o, err := d.object(val, "op", "operand")
		if err != nil {
			return nil, err
		}
		name, err := d.opName(o)
		if err != nil {
			return nil, err
		}
		cop, ok := til.ParseCastOpcode(name)
		if !ok {
			return nil, d.errorf(o.get("op"), "unknown cast %q", name)
		}
		kids, err := d.terms(o, "operand")
		if err != nil {
			return nil, err
		}
		return d.b.NewCast(cop, kids[0]), nil
	}
	return nil, d.errorf(val, "%s cannot appear here", op)
}

func (d *decoder) opName(o *object) (string, error) {
	v, err := d.required(o, "op")
	if err != nil {
		return "", err
	}
	return d.str(v)
}

func (d *decoder) callingConv(o *object) (til.CallingConvention, error) {
	v := o.get("cc")
	if v == nil {
		return til.CallDefault, nil
	}
	cc, ok := til.ParseCallingConvention(v.Value)
	if !ok {
		return 0, d.errorf(v, "unknown calling convention %q", v.Value)
	}
	return cc, nil
}

func (d *decoder) scalarType(val *yaml.Node) (til.Node, error) {
	name, err := d.str(val)
	if err != nil {
		return nil, err
	}
	st, ok := til.LookupScalarType(name)
	if !ok {
		return nil, d.errorf(val, "unknown scalar type %q", name)
	}
	return st, nil
}

func (d *decoder) literal(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "type", "value")
	if err != nil {
		return nil, err
	}
	tn, err := d.required(o, "type")
	if err != nil {
		return nil, err
	}
	t, err := d.scalarType(tn)
	if err != nil {
		return nil, err
	}
	st := t.(*til.ScalarType)

	vn := o.get("value")
	if st.Base == til.BaseVoid {
		if !isNull(vn) {
			return nil, d.errorf(vn, "void literals have no value")
		}
		return d.b.NewLiteral(st, nil), nil
	}
	if vn == nil {
		return nil, d.errorf(val, "missing field %q", "value")
	}

	var v interface{}
	switch st.Base {
	case til.BaseBool:
		var b bool
		err = vn.Decode(&b)
		v = b
	case til.BaseInt:
		var i int64
		err = vn.Decode(&i)
		v = i
	case til.BaseFloat:
		var f float64
		err = vn.Decode(&f)
		v = f
	default:
		var s string
		err = vn.Decode(&s)
		v = s
	}
	if err != nil {
		return nil, d.errorf(vn, "invalid %s literal %q", st.Name, vn.Value)
	}
	return d.b.NewLiteral(st, v), nil
}

func (d *decoder) variable(val *yaml.Node) (til.Node, error) {
	name, err := d.str(val)
	if err != nil {
		return nil, err
	}
	for i := len(d.vars) - 1; i >= 0; i-- {
		if d.vars[i].Name == name {
			return d.b.NewVariable(d.vars[i]), nil
		}
	}
	return nil, d.errorf(val, "unbound variable %q", name)
}

func (d *decoder) ref(val *yaml.Node) (til.Node, error) {
	name, err := d.str(val)
	if err != nil {
		return nil, err
	}
	for i := len(d.graphs) - 1; i >= 0; i-- {
		if in, ok := d.graphs[i].refs[name]; ok {
			return in, nil
		}
	}
	return nil, d.errorf(val, "unknown instruction %q", name)
}

/* Binders */

// bind decodes a binder body with vd in scope.
func (d *decoder) bind(vd *til.VarDecl, body *yaml.Node) (til.Node, error) {
	d.b.EnterScope(vd)
	d.vars = append(d.vars, vd)
	res, err := d.term(body)
	d.vars = d.vars[:len(d.vars)-1]
	d.b.ExitScope()
	return res, err
}

func (d *decoder) function(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "name", "kind", "type", "body")
	if err != nil {
		return nil, err
	}
	nn, err := d.required(o, "name")
	if err != nil {
		return nil, err
	}
	name, err := d.str(nn)
	if err != nil {
		return nil, err
	}

	kind := til.VarFun
	if kn := o.get("kind"); kn != nil {
		k, ok := til.ParseVarKind(kn.Value)
		if !ok || k == til.VarLet {
			return nil, d.errorf(kn, "invalid parameter kind %q", kn.Value)
		}
		kind = k
	}

	var typ til.Node
	if kind == til.VarFun {
		typ, err = d.deferred(o.get("type"))
	} else {
		typ, err = d.term(o.get("type"))
	}
	if err != nil {
		return nil, err
	}

	vd := d.b.NewVarDecl(kind, name, typ)
	body, err := d.bind(vd, o.get("body"))
	if err != nil {
		return nil, err
	}
	return d.b.NewFunction(vd, body), nil
}

func (d *decoder) let(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "name", "def", "body")
	if err != nil {
		return nil, err
	}
	nn, err := d.required(o, "name")
	if err != nil {
		return nil, err
	}
	name, err := d.str(nn)
	if err != nil {
		return nil, err
	}
	def, err := d.term(o.get("def"))
	if err != nil {
		return nil, err
	}
	vd := d.b.NewVarDecl(til.VarLet, name, def)
	body, err := d.bind(vd, o.get("body"))
	if err != nil {
		return nil, err
	}
	return d.b.NewLet(vd, body), nil
}

/* Values */

func (d *decoder) code(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "returns", "body", "cc")
	if err != nil {
		return nil, err
	}
	cc, err := d.callingConv(o)
	if err != nil {
		return nil, err
	}
	rt, err := d.deferred(o.get("returns"))
	if err != nil {
		return nil, err
	}
	body, err := d.deferred(o.get("body"))
	if err != nil {
		return nil, err
	}
	c := d.b.NewCode(rt, body)
	c.CallingConv = cc
	return c, nil
}

func (d *decoder) slot(val *yaml.Node) (*til.Slot, error) {
	o, err := d.object(val, "name", "def", "modifiers")
	if err != nil {
		return nil, err
	}
	nn, err := d.required(o, "name")
	if err != nil {
		return nil, err
	}
	name, err := d.str(nn)
	if err != nil {
		return nil, err
	}

	var mods til.SlotModifier
	mn, err := d.seq(o.get("modifiers"))
	if err != nil {
		return nil, err
	}
	for _, m := range mn {
		found := false
		for _, e := range modifierNames {
			if e.name == m.Value {
				mods |= e.mod
				found = true
			}
		}
		if !found {
			return nil, d.errorf(m, "unknown slot modifier %q", m.Value)
		}
	}

	def, err := d.deferred(o.get("def"))
	if err != nil {
		return nil, err
	}
	s := d.b.NewSlot(name, def)
	s.Modifiers = mods
	return s, nil
}

func (d *decoder) record(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "parent", "slots")
	if err != nil {
		return nil, err
	}
	parent, err := d.term(o.get("parent"))
	if err != nil {
		return nil, err
	}
	sn, err := d.seq(o.get("slots"))
	if err != nil {
		return nil, err
	}
	r := d.b.NewRecord(len(sn), parent)
	for _, n := range sn {
		s, err := d.slot(n)
		if err != nil {
			return nil, err
		}
		r.AddSlot(s)
	}
	return r, nil
}

func (d *decoder) array(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "elem", "size", "elements")
	if err != nil {
		return nil, err
	}
	elem, err := d.deferred(o.get("elem"))
	if err != nil {
		return nil, err
	}

	if sn := o.get("size"); sn != nil {
		if o.get("elements") != nil {
			return nil, d.errorf(sn, "an array has either a size or elements")
		}
		size, err := d.term(sn)
		if err != nil {
			return nil, err
		}
		return d.b.NewSymbolicArray(elem, size), nil
	}

	en, err := d.seq(o.get("elements"))
	if err != nil {
		return nil, err
	}
	a := d.b.NewArray(elem, len(en))
	for i, n := range en {
		e, err := d.term(n)
		if err != nil {
			return nil, err
		}
		d.b.SetArrayElement(a, i, e)
	}
	return a, nil
}
