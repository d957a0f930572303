package dag

import (
	"context"
	"fmt"

	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
)

// NodeID returns the canonical graph identifier for a workflow's job.
func NodeID(workflow, job string) string {
	return fmt.Sprintf("job.%s.%s", workflow, job)
}

// Build constructs a complete, validated dependency graph from the jobs of
// the given workflows. `needs` edges only resolve within the same workflow.
func Build(ctx context.Context, workflows []*config.Workflow) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")
	graph := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes.
	for _, wf := range workflows {
		for _, job := range wf.Jobs {
			id := NodeID(wf.Name, job.Name)
			if _, exists := graph.Nodes[id]; exists {
				return nil, fmt.Errorf("duplicate job definition: %s", id)
			}
			graph.Nodes[id] = &Node{
				ID:         id,
				Workflow:   wf,
				Job:        job,
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			}
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: link `needs` edges.
	for _, wf := range workflows {
		for _, job := range wf.Jobs {
			node := graph.Nodes[NodeID(wf.Name, job.Name)]
			for _, needed := range job.Needs {
				depID := NodeID(wf.Name, needed)
				dep, ok := graph.Nodes[depID]
				if !ok {
					return nil, fmt.Errorf("job '%s' in workflow '%s' needs unknown job '%s'", job.Name, wf.Name, needed)
				}
				if dep == node {
					return nil, fmt.Errorf("job '%s' in workflow '%s' cannot need itself", job.Name, wf.Name)
				}
				node.Deps[depID] = dep
				dep.Dependents[node.ID] = node
			}
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: Graph construction successful.")
	return graph, nil
}

// detectCycles checks the graph for cycles using depth-first search with the
// classic permanent/temporary marking scheme.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving node '%s'", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.Nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
