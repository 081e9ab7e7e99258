package tilcheck

import "github.com/orizon-lang/til/internal/til"

// Reachable collects every node reachable from n through til.Children.
// Forced futures are looked through.
func Reachable(n til.Node) map[til.Node]bool {
	seen := make(map[til.Node]bool)
	var walk func(til.Node)
	walk = func(n til.Node) {
		n = til.Resolve(n)
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		for _, a := range n.Annotations() {
			for _, op := range a.Operands() {
				walk(op)
			}
		}
		for _, c := range til.Children(n) {
			walk(c)
		}
		if g, ok := n.(*til.SCFG); ok {
			walk(g.Entry())
			walk(g.Exit())
		}
	}
	walk(n)
	return seen
}

// Shared returns the nodes reachable from both a and b, except scalar
// types, which are singletons. extra lists nodes that may legitimately be
// shared, such as substituted terms.
func Shared(a, b til.Node, extra ...til.Node) []til.Node {
	allowed := make(map[til.Node]bool, len(extra))
	for _, e := range extra {
		allowed[e] = true
	}

	ra := Reachable(a)
	var out []til.Node
	for n := range Reachable(b) {
		if !ra[n] || allowed[n] {
			continue
		}
		if _, ok := n.(*til.ScalarType); ok {
			continue
		}
		out = append(out, n)
	}
	return out
}
