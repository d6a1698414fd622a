package script

import (
	"fmt"
	"strings"

	"github.com/krauseinafrica/leadchat/pkg/domain"
)

// validate enforces the script-authoring contract:
//
//   - start and completion nodes exist; completion is terminal
//   - every transition target resolves to a real node (closed graph)
//   - choice nodes carry at least one option, input nodes a continuation
//   - every node is reachable from the start node
//
// A violation is an authoring defect, reported in full rather than fail-first
// so the author fixes the script in one pass.
func (g *Graph) validate() error {
	var problems []string

	if _, ok := g.nodes[g.start]; !ok {
		problems = append(problems, fmt.Sprintf("start node %q not found", g.start))
	}
	completion, ok := g.nodes[g.completion]
	if !ok {
		problems = append(problems, fmt.Sprintf("completion node %q not found", g.completion))
	} else if completion.Kind() != domain.KindTerminal {
		problems = append(problems, fmt.Sprintf("completion node %q must be terminal, is %s", g.completion, completion.Kind()))
	}

	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		switch n.Kind() {
		case domain.KindChoice:
			if n.Next != "" {
				problems = append(problems, fmt.Sprintf("node %q: choice nodes transition per option, not via next", id))
			}
			for _, opt := range n.Options {
				if opt.Value == "" {
					problems = append(problems, fmt.Sprintf("node %q: option %q missing value", id, opt.Label))
				}
				if _, ok := g.nodes[opt.Next]; !ok {
					problems = append(problems, fmt.Sprintf("node %q: option %q targets unknown node %q", id, opt.Value, opt.Next))
				}
			}
		case domain.KindInput:
			if n.Next == "" {
				problems = append(problems, fmt.Sprintf("node %q: input node has no continuation", id))
			} else if _, ok := g.nodes[n.Next]; !ok {
				problems = append(problems, fmt.Sprintf("node %q: next targets unknown node %q", id, n.Next))
			}
		case domain.KindTerminal:
			if n.Next != "" {
				problems = append(problems, fmt.Sprintf("node %q: terminal node carries a next transition", id))
			}
		}
		if n.Message == "" {
			problems = append(problems, fmt.Sprintf("node %q: empty message", id))
		}
	}

	// Reachability crawl from start, only meaningful once the link targets
	// above resolve.
	if len(problems) == 0 {
		reach := g.reachable()
		for _, id := range g.NodeIDs() {
			if !reach[id] {
				problems = append(problems, fmt.Sprintf("node %q is unreachable from %q", id, g.start))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("script: found %d defects:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

func (g *Graph) reachable() map[string]bool {
	visited := make(map[string]bool, len(g.nodes))
	queue := []string{g.start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for _, opt := range n.Options {
			if !visited[opt.Next] {
				queue = append(queue, opt.Next)
			}
		}
		if n.Next != "" && !visited[n.Next] {
			queue = append(queue, n.Next)
		}
	}
	return visited
}
