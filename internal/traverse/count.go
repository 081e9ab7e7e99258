package traverse

import "github.com/orizon-lang/til/internal/til"

// Stats summarizes the shape of a term.
type Stats struct {
	Nodes    map[til.Opcode]int
	Refs     int // references to placed instructions
	MaxDepth int // deepest binder nesting
	Graphs   int
}

// Total is the number of nodes counted, excluding references.
func (s *Stats) Total() int {
	n := 0
	for _, c := range s.Nodes {
		n += c
	}
	return n
}

type counter struct {
	BaseReducer
	stats Stats
	depth int
}

// Count walks n and tallies its nodes. n must not contain pending futures.
func Count(n til.Node) Stats {
	c := &counter{stats: Stats{Nodes: make(map[til.Opcode]int)}}
	c.Traverse(n, KindTail)
	return c.stats
}

func (c *counter) Traverse(n til.Node, k Kind) {
	switch {
	case n == nil:
	case IsWeak(n, k):
		c.stats.Refs++
		return
	default:
		c.stats.Nodes[til.Resolve(n).Opcode()]++
	}
	Walk(c, n, k)
}

func (c *counter) EnterScope(*til.VarDecl) {
	c.depth++
	if c.depth > c.stats.MaxDepth {
		c.stats.MaxDepth = c.depth
	}
}

func (c *counter) ExitScope(*til.VarDecl) { c.depth-- }

func (c *counter) EnterCFG(*til.SCFG)         { c.stats.Graphs++ }
func (c *counter) ExitCFG(*til.SCFG)          {}
func (c *counter) EnterBlock(*til.BasicBlock) {}
func (c *counter) ExitBlock(*til.BasicBlock)  {}
