// Package topology resolves the audio routes described by a parsed
// AudioControl interface: the paths from each output terminal, back
// through mixer and feature units, to the input terminals that ultimately
// feed it. Selector, processing and extension units appear as nodes when
// they are a source, but their own sources are not followed.
package topology

import (
	"github.com/sirupsen/logrus"

	"github.com/nExtCamera/libuac/pkg/descriptors"
)

// NodeKind distinguishes the three kinds of node that can appear in a
// route graph.
type NodeKind int

const (
	NodeInputTerminal NodeKind = iota
	NodeOutputTerminal
	NodeUnit
)

// Node is one entry in a Graph's arena. Source edges are expressed as
// indices into the same arena rather than pointers, so a Graph can be
// copied or serialized as a flat slice.
type Node struct {
	Kind         NodeKind
	ID           uint8
	TerminalType descriptors.TerminalType // valid for NodeInputTerminal/NodeOutputTerminal
	Sources      []uint32                 // arena indices this node draws audio from
}

// Graph is the arena of nodes built from one AudioControl interface's
// terminals and units.
type Graph struct {
	Nodes []Node
	byID  map[uint8]uint32
}

func (g *Graph) indexOf(id uint8) (uint32, bool) {
	idx, ok := g.byID[id]
	return idx, ok
}

// Route is one path rooted at an output terminal, expanded breadth-first
// back toward its input terminals. Nodes is in BFS visitation order, the
// output terminal first.
type Route struct {
	Output    uint32
	Nodes     []uint32
	Malformed bool
}

// Build constructs the route graph for an AudioControl interface and
// resolves one Route per output terminal, in the order the output
// terminals were declared.
func Build(ac *descriptors.AudioControlInterface) (*Graph, []*Route) {
	g := &Graph{byID: make(map[uint8]uint32)}

	for _, t := range ac.InputTerminals {
		g.byID[t.TerminalID] = uint32(len(g.Nodes))
		g.Nodes = append(g.Nodes, Node{Kind: NodeInputTerminal, ID: t.TerminalID, TerminalType: t.TerminalType})
	}
	for _, u := range ac.Units {
		g.byID[u.UnitID] = uint32(len(g.Nodes))
		g.Nodes = append(g.Nodes, Node{Kind: NodeUnit, ID: u.UnitID})
	}
	for _, t := range ac.OutputTerminals {
		g.byID[t.TerminalID] = uint32(len(g.Nodes))
		g.Nodes = append(g.Nodes, Node{Kind: NodeOutputTerminal, ID: t.TerminalID, TerminalType: t.TerminalType})
	}

	// wire up source edges now that every id has an arena slot
	for _, u := range ac.Units {
		idx := g.byID[u.UnitID]
		for _, srcID := range u.SourceIDs() {
			if srcIdx, ok := g.indexOf(srcID); ok {
				g.Nodes[idx].Sources = append(g.Nodes[idx].Sources, srcIdx)
			} else {
				logrus.WithFields(logrus.Fields{"unit": u.UnitID, "source": srcID}).Warn("uac: unresolved audio route source id")
			}
		}
	}
	for _, t := range ac.OutputTerminals {
		idx := g.byID[t.TerminalID]
		if srcIdx, ok := g.indexOf(t.SourceID); ok {
			g.Nodes[idx].Sources = append(g.Nodes[idx].Sources, srcIdx)
		} else {
			logrus.WithFields(logrus.Fields{"terminal": t.TerminalID, "source": t.SourceID}).Warn("uac: unresolved audio route source id")
		}
	}

	var routes []*Route
	for _, t := range ac.OutputTerminals {
		root, ok := g.indexOf(t.TerminalID)
		if !ok {
			continue
		}
		routes = append(routes, g.buildRoute(root))
	}
	return g, routes
}

// buildRoute expands a route breadth-first from root. A node id revisited
// within the same route's expansion truncates that branch and flags the
// route malformed, rather than looping forever on a cyclic topology.
func (g *Graph) buildRoute(root uint32) *Route {
	route := &Route{Output: root}
	visited := map[uint32]bool{root: true}
	queue := []uint32{root}
	route.Nodes = append(route.Nodes, root)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, src := range g.Nodes[cur].Sources {
			if visited[src] {
				route.Malformed = true
				logrus.WithFields(logrus.Fields{"root": root, "node": g.Nodes[cur].ID, "source": g.Nodes[src].ID}).Warn("uac: cyclic audio route truncated")
				continue
			}
			visited[src] = true
			route.Nodes = append(route.Nodes, src)
			queue = append(queue, src)
		}
	}
	return route
}

// ContainsTerminal reports whether route passes through a terminal matching
// query, using TerminalType's wildcard-aware family matching. This is
// reflexive over the route's own output terminal as well as the input
// terminals feeding it: a route rooted at a speaker contains the speaker.
func (r *Route) ContainsTerminal(g *Graph, query descriptors.TerminalType) bool {
	for _, idx := range r.Nodes {
		n := g.Nodes[idx]
		if n.Kind == NodeUnit {
			continue
		}
		if n.TerminalType.MatchesFamily(query) {
			return true
		}
	}
	return false
}

// Units returns the units (in BFS order) along route.
func (r *Route) Units(g *Graph) []Node {
	var out []Node
	for _, idx := range r.Nodes {
		if g.Nodes[idx].Kind == NodeUnit {
			out = append(out, g.Nodes[idx])
		}
	}
	return out
}
