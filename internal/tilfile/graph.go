package tilfile

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/til/internal/til"
)

type blockSpec struct {
	node   *yaml.Node
	name   string
	args   []*yaml.Node
	instrs []*yaml.Node
	term   *yaml.Node
}

func (d *decoder) blockSpec(n *yaml.Node) (*blockSpec, error) {
	o, err := d.object(n, "name", "args", "instrs", "term")
	if err != nil {
		return nil, err
	}
	bs := &blockSpec{node: n}
	nn, err := d.required(o, "name")
	if err != nil {
		return nil, err
	}
	if bs.name, err = d.str(nn); err != nil {
		return nil, err
	}
	if bs.args, err = d.seq(o.get("args")); err != nil {
		return nil, err
	}
	if bs.instrs, err = d.seq(o.get("instrs")); err != nil {
		return nil, err
	}
	if bs.term, err = d.required(o, "term"); err != nil {
		return nil, err
	}
	return bs, nil
}

// graph decodes a cfg. Blocks are created up front so terminators can
// jump forward; instructions can only refer to names defined before them.
func (d *decoder) graph(val *yaml.Node) (til.Node, error) {
	o, err := d.object(val, "name", "blocks")
	if err != nil {
		return nil, err
	}
	name, err := d.optStr(o, "name")
	if err != nil {
		return nil, err
	}
	bn, err := d.required(o, "blocks")
	if err != nil {
		return nil, err
	}
	list, err := d.seq(bn)
	if err != nil {
		return nil, err
	}
	if len(list) < 2 {
		return nil, d.errorf(bn, "a graph needs an entry and an exit block")
	}

	specs := make([]*blockSpec, len(list))
	for i, n := range list {
		if specs[i], err = d.blockSpec(n); err != nil {
			return nil, err
		}
	}
	entry, exit := specs[0], specs[len(specs)-1]
	if len(entry.args) != 0 {
		return nil, d.errorf(entry.node, "entry block %q cannot take arguments", entry.name)
	}
	if len(exit.args) != 1 {
		return nil, d.errorf(exit.node, "exit block %q must take exactly one argument", exit.name)
	}

	cfg := d.b.BeginCFG(name)
	g := &graphNames{
		blocks: make(map[string]*til.BasicBlock, len(specs)),
		refs:   make(map[string]til.Instruction),
	}
	d.graphs = append(d.graphs, g)
	defer func() { d.graphs = d.graphs[:len(d.graphs)-1] }()

	blocks := make([]*til.BasicBlock, len(specs))
	for i, bs := range specs {
		switch i {
		case 0:
			blocks[i] = cfg.Entry()
		case len(specs) - 1:
			blocks[i] = cfg.Exit()
		default:
			blocks[i] = d.b.NewBlock(len(bs.args), 0)
		}
		if _, dup := g.blocks[bs.name]; dup {
			return nil, d.errorf(bs.node, "duplicate block %q", bs.name)
		}
		g.blocks[bs.name] = blocks[i]
		for j, an := range bs.args {
			if err := d.define(g, an, blocks[i].Args[j]); err != nil {
				return nil, err
			}
		}
	}

	for i, bs := range specs {
		if i > 0 {
			d.b.BeginBlock(blocks[i])
		}
		for _, in := range bs.instrs {
			if err := d.instr(g, in); err != nil {
				return nil, err
			}
		}
		if err := d.terminator(g, bs.term); err != nil {
			return nil, err
		}
	}
	return d.b.EndCFG(), nil
}

func (d *decoder) define(g *graphNames, n *yaml.Node, in til.Instruction) error {
	name, err := d.str(n)
	if err != nil {
		return err
	}
	if _, dup := g.refs[name]; dup {
		return d.errorf(n, "duplicate instruction name %q", name)
	}
	g.refs[name] = in
	return nil
}

// instr decodes a named instruction entry: {name: x, <opcode>: {...}}.
func (d *decoder) instr(g *graphNames, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) != 4 {
		return d.errorf(n, "expected an instruction with a name and one opcode")
	}
	var nameNode, key, val *yaml.Node
	for i := 0; i < 4; i += 2 {
		if n.Content[i].Value == "name" {
			nameNode = n.Content[i+1]
		} else {
			key, val = n.Content[i], n.Content[i+1]
		}
	}
	if nameNode == nil || key == nil {
		return d.errorf(n, "expected an instruction with a name and one opcode")
	}
	if op, ok := nodeOps[key.Value]; !ok || !isInstrOp(op) {
		return d.errorf(key, "%q is not an instruction", key.Value)
	}

	res, err := d.node(key, val)
	if err != nil {
		return err
	}
	in := res.(til.Instruction)
	if err := d.define(g, nameNode, in); err != nil {
		return err
	}
	in.AddAnnotation(&til.InstrName{Name: nameNode.Value})
	return nil
}

func (d *decoder) target(g *graphNames, n *yaml.Node) (*til.BasicBlock, error) {
	if n == nil {
		return nil, nil
	}
	name, err := d.str(n)
	if err != nil {
		return nil, err
	}
	b, ok := g.blocks[name]
	if !ok {
		return nil, d.errorf(n, "unknown block %q", name)
	}
	return b, nil
}

// plainTarget resolves a branch or switch target. Those edges pass no
// arguments, so the block must not take any.
func (d *decoder) plainTarget(g *graphNames, n *yaml.Node) (*til.BasicBlock, error) {
	b, err := d.target(g, n)
	if err != nil || b == nil {
		return b, err
	}
	if len(b.Args) > 0 {
		return nil, d.errorf(n, "block %q takes %d arguments and can only be reached by goto", n.Value, len(b.Args))
	}
	return b, nil
}

func (d *decoder) terminator(g *graphNames, n *yaml.Node) error {
	key, val, err := d.single(n)
	if err != nil {
		return err
	}

	switch key.Value {
	case "goto":
		o, err := d.object(val, "target", "args")
		if err != nil {
			return err
		}
		tn, err := d.required(o, "target")
		if err != nil {
			return err
		}
		target, err := d.target(g, tn)
		if err != nil {
			return err
		}
		an, err := d.seq(o.get("args"))
		if err != nil {
			return err
		}
		if len(an) != len(target.Args) {
			return d.errorf(val, "block takes %d arguments, got %d", len(target.Args), len(an))
		}
		args := make([]til.Node, len(an))
		for i, a := range an {
			if args[i], err = d.term(a); err != nil {
				return err
			}
		}
		gt := d.b.NewGoto(target)
		for i, a := range args {
			d.b.SetPhiArgument(target.Args[i], a, gt.Index)
		}
	case "branch":
		o, err := d.object(val, "cond", "then", "else")
		if err != nil {
			return err
		}
		var blocks [2]*til.BasicBlock
		for i, k := range []string{"then", "else"} {
			kn, err := d.required(o, k)
			if err != nil {
				return err
			}
			if blocks[i], err = d.plainTarget(g, kn); err != nil {
				return err
			}
		}
		cond, err := d.term(o.get("cond"))
		if err != nil {
			return err
		}
		d.b.NewBranch(cond, blocks[0], blocks[1])
	case "switch":
		return d.switchTerm(g, val)
	case "return":
		res, err := d.term(val)
		if err != nil {
			return err
		}
		d.b.NewReturn(res)
	default:
		return d.errorf(key, "unknown terminator %q", key.Value)
	}
	return nil
}

func (d *decoder) switchTerm(g *graphNames, val *yaml.Node) error {
	o, err := d.object(val, "cond", "cases")
	if err != nil {
		return err
	}
	cond, err := d.term(o.get("cond"))
	if err != nil {
		return err
	}
	cn, err := d.seq(o.get("cases"))
	if err != nil {
		return err
	}

	labels := make([]til.Node, len(cn))
	targets := make([]*til.BasicBlock, len(cn))
	for i, c := range cn {
		co, err := d.object(c, "label", "target")
		if err != nil {
			return err
		}
		if labels[i], err = d.term(co.get("label")); err != nil {
			return err
		}
		tn, err := d.required(co, "target")
		if err != nil {
			return err
		}
		if targets[i], err = d.plainTarget(g, tn); err != nil {
			return err
		}
	}

	sw := d.b.NewSwitch(cond, len(cn))
	for i := range cn {
		d.b.AddSwitchCase(sw, labels[i], targets[i])
	}
	return nil
}

/* Encoding */

// ordered lists blocks with the entry first and the exit last.
func ordered(cfg *til.SCFG) []*til.BasicBlock {
	res := []*til.BasicBlock{cfg.Entry()}
	for _, b := range cfg.Blocks() {
		if b != cfg.Entry() && b != cfg.Exit() {
			res = append(res, b)
		}
	}
	return append(res, cfg.Exit())
}

// name picks a document-wide unique name for in.
func (e *encoder) name(in til.Instruction, prefix string) string {
	base := prefix + strconv.Itoa(in.InstrID())
	if a, ok := til.FindAnnotation(in, til.AnnInstrName).(*til.InstrName); ok && a.Name != "" {
		base = a.Name
	}
	name := base
	for i := 1; e.used[name]; i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	e.used[name] = true
	e.names[in] = name
	return name
}

func (e *encoder) graph(cfg *til.SCFG) (*yaml.Node, error) {
	if cfg.Entry() == nil || cfg.Exit() == nil {
		return nil, fail("graph %q has no entry or exit", cfg.Name)
	}
	if len(cfg.Entry().Args) != 0 || len(cfg.Exit().Args) != 1 {
		return nil, fail("graph %q: entry must take no arguments and exit exactly one", cfg.Name)
	}
	blocks := ordered(cfg)

	// Name everything first so references can point anywhere in the graph.
	argNames := make([][]*yaml.Node, len(blocks))
	for i, b := range blocks {
		switch {
		case i == 0:
			e.blocks[b] = "entry"
		case i == len(blocks)-1:
			e.blocks[b] = "exit"
		default:
			e.blocks[b] = "b" + strconv.Itoa(b.BlockID())
		}
		for _, ph := range b.Args {
			argNames[i] = append(argNames[i], scalar(e.name(ph, "a")))
		}
		for _, in := range b.Instrs {
			e.name(in, "v")
		}
	}

	list := make([]*yaml.Node, len(blocks))
	for i, b := range blocks {
		bn := mapping("name", scalar(e.blocks[b]))
		if len(argNames[i]) > 0 {
			args := sequence(argNames[i])
			args.Style = yaml.FlowStyle
			bn.Content = append(bn.Content, scalar("args"), args)
		}
		if len(b.Instrs) > 0 {
			instrs := make([]*yaml.Node, len(b.Instrs))
			for j, in := range b.Instrs {
				body, err := e.node(in)
				if err != nil {
					return nil, err
				}
				instrs[j] = mapping("name", scalar(e.names[in]))
				instrs[j].Content = append(instrs[j].Content, body.Content...)
			}
			bn.Content = append(bn.Content, scalar("instrs"), sequence(instrs))
		}
		term, err := e.terminator(b)
		if err != nil {
			return nil, err
		}
		bn.Content = append(bn.Content, scalar("term"), term)
		list[i] = bn
	}

	m := &yaml.Node{Kind: yaml.MappingNode}
	if cfg.Name != "" {
		m.Content = append(m.Content, scalar("name"), scalar(cfg.Name))
	}
	m.Content = append(m.Content, scalar("blocks"), sequence(list))
	return m, nil
}

func (e *encoder) terminator(b *til.BasicBlock) (*yaml.Node, error) {
	var val *yaml.Node
	var err error

	switch t := b.Term.(type) {
	case *til.Goto:
		args := make([]*yaml.Node, len(t.Target.Args))
		for i, ph := range t.Target.Args {
			var v til.Node
			if t.Index < len(ph.Values) {
				v = ph.Values[t.Index]
			}
			if args[i], err = e.term(v); err != nil {
				return nil, err
			}
		}
		val = mapping("target", scalar(e.blocks[t.Target]))
		if len(args) > 0 {
			val.Content = append(val.Content, scalar("args"), sequence(args))
		}
	case *til.Branch:
		val, err = e.fields("cond", t.Cond, "then", scalar(e.blocks[t.Then]), "else", scalar(e.blocks[t.Else]))
	case *til.Switch:
		cases := make([]*yaml.Node, len(t.Cases))
		for i, c := range t.Cases {
			if cases[i], err = e.fields("label", t.Labels[i], "target", scalar(e.blocks[c])); err != nil {
				return nil, err
			}
		}
		val, err = e.fields("cond", t.Cond)
		if err == nil {
			val.Content = append(val.Content, scalar("cases"), sequence(cases))
		}
	case *til.Return:
		val, err = e.term(t.Result)
	case nil:
		return nil, fail("block %d has no terminator", b.BlockID())
	default:
		return nil, fail("unknown terminator %T", t)
	}
	if err != nil {
		return nil, err
	}
	return tagged(b.Term.Opcode(), val), nil
}
