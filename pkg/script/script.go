package script

import (
	"fmt"
	"sort"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// Graph is an immutable, validated dialogue script.
//
// Construct one through Compile (or Builder.Build / LoadFile, which call it).
// After compilation the graph is lookup-only; the engine never mutates it and
// a single Graph can back any number of concurrent conversations.
type Graph struct {
	nodes      map[string]domain.Node
	start      string
	completion string
}

// Compile validates a node set and freezes it into a Graph.
// startID is the node delivered on activation; completionID is the terminal
// node whose entry triggers lead submission.
func Compile(nodes []domain.Node, startID, completionID string) (*Graph, error) {
	table := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("script: node missing id")
		}
		if _, dup := table[n.ID]; dup {
			return nil, fmt.Errorf("script: duplicate node id %q", n.ID)
		}
		table[n.ID] = n
	}

	g := &Graph{nodes: table, start: startID, completion: completionID}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (domain.Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return domain.Node{}, fmt.Errorf("script: %q: %w", id, domain.ErrNodeNotFound)
	}
	return n, nil
}

// StartID returns the designated start node id.
func (g *Graph) StartID() string { return g.start }

// CompletionID returns the designated completion node id.
func (g *Graph) CompletionID() string { return g.completion }

// Len returns the number of nodes in the script.
func (g *Graph) Len() int { return len(g.nodes) }

// NodeIDs returns all node ids in deterministic order, for introspection
// tools like the validate command.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
