package memory

import (
	"fmt"
	"io"

	"github.com/aclements/go-moremath/graph"
	"github.com/aclements/go-moremath/graph/graphalg"
	"github.com/aclements/go-moremath/graph/graphout"
)

// Snapshot is a frozen view of a basket's members and the soft edges
// between them. It satisfies graph.Graph.
type Snapshot struct {
	Nodes   []Collectable
	Handles []Handle
	Roots   []bool
	out     [][]int
}

// Snapshot captures the current membership graph. Edges leaving the
// basket are omitted.
func (b *Basket) Snapshot() *Snapshot {
	s := &Snapshot{}
	ids := make(map[Collectable]int)
	b.mu.RLock()
	b.members.each(func(h Handle, c Collectable) {
		ids[c] = len(s.Nodes)
		s.Nodes = append(s.Nodes, c)
		s.Handles = append(s.Handles, h)
	})
	b.mu.RUnlock()

	s.Roots = make([]bool, len(s.Nodes))
	s.out = make([][]int, len(s.Nodes))
	for i, c := range s.Nodes {
		s.Roots[i] = c.SoftIsRoot()
		c.SoftVisit(VisitorFunc(func(target Collectable) {
			if j, ok := ids[target]; ok {
				s.out[i] = append(s.out[i], j)
			}
		}))
	}
	return s
}

func (s *Snapshot) NumNodes() int {
	return len(s.Nodes)
}

func (s *Snapshot) Out(i int) []int {
	return s.out[i]
}

// Label names node i by handle and type
func (s *Snapshot) Label(i int) string {
	label := fmt.Sprintf("%s %T", s.Handles[i], s.Nodes[i])
	if s.Roots[i] {
		label += " (root)"
	}
	return label
}

// Cycles returns the node groups of strongly connected components that
// contain a cycle, including single nodes with an edge to themselves
func (s *Snapshot) Cycles() [][]int {
	scc := graphalg.SCC(s, graphalg.SCCSubnodeComponent)
	var groups [][]int
	for cid := 0; cid < scc.NumNodes(); cid++ {
		nids := scc.Subnodes(cid)
		if len(nids) == 1 && !s.hasSelfEdge(nids[0]) {
			continue
		}
		group := make([]int, len(nids))
		copy(group, nids)
		groups = append(groups, group)
	}
	return groups
}

// InCycle reports, per node, membership in some cycle
func (s *Snapshot) InCycle() []bool {
	marks := make([]bool, len(s.Nodes))
	for _, group := range s.Cycles() {
		for _, nid := range group {
			marks[nid] = true
		}
	}
	return marks
}

func (s *Snapshot) hasSelfEdge(i int) bool {
	for _, j := range s.out[i] {
		if j == i {
			return true
		}
	}
	return false
}

// WriteDot renders the snapshot as a Graphviz digraph. Roots are drawn
// bold and cycle members red.
func (s *Snapshot) WriteDot(w io.Writer) {
	cyclic := s.InCycle()
	nodeAttrs := func(node int) []graphout.DotAttr {
		var attrs []graphout.DotAttr
		if s.Roots[node] {
			attrs = append(attrs, graphout.DotAttr{Name: "style", Val: "bold"})
		}
		if cyclic[node] {
			attrs = append(attrs, graphout.DotAttr{Name: "color", Val: "red"})
		}
		return attrs
	}
	edgeAttrs := func(node, edge int) []graphout.DotAttr {
		if cyclic[node] && cyclic[s.out[node][edge]] {
			return []graphout.DotAttr{{Name: "color", Val: "red"}}
		}
		return nil
	}
	var g graph.Graph = s
	graphout.Dot{Label: s.Label, NodeAttrs: nodeAttrs, EdgeAttrs: edgeAttrs}.Fprint(w, g)
}
