package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/dag"
	"github.com/vk/pipewright/internal/event"
	"github.com/vk/pipewright/internal/registry"
	"github.com/vk/pipewright/internal/workspace"
)

// Executor orchestrates the end-to-end execution of the job graph. It owns
// the worker pool and the collected results of the run.
type Executor struct {
	Graph *dag.Graph

	numWorkers int
	registry   *registry.Registry
	converter  config.Converter
	event      *event.Event
	workspaces *workspace.Manager
	runID      string
	outW       io.Writer

	wg sync.WaitGroup

	mu      sync.Mutex
	results map[string]*JobResult
}

// JobResult is the collected outcome of one job node.
type JobResult struct {
	NodeID     string                `json:"node_id" yaml:"node_id"`
	Workflow   string                `json:"workflow" yaml:"workflow"`
	Job        string                `json:"job" yaml:"job"`
	Conclusion string                `json:"conclusion" yaml:"conclusion"`
	Steps      []registry.StepRecord `json:"steps" yaml:"steps"`
}

// New creates an executor for the given graph.
func New(graph *dag.Graph, workers int, reg *registry.Registry, conv config.Converter, ev *event.Event, ws *workspace.Manager, runID string, outW io.Writer) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		Graph:      graph,
		numWorkers: workers,
		registry:   reg,
		converter:  conv,
		event:      ev,
		workspaces: ws,
		runID:      runID,
		outW:       outW,
		results:    make(map[string]*JobResult),
	}
}

// Run executes the entire graph concurrently and returns an error if any job
// fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *dag.Node, len(e.Graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if node.DepCount() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	logger.Info("Waiting for all jobs to complete...")
	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.Graph.Nodes {
		if node.GetState() != dag.Failed {
			continue
		}
		logger.Error("Job failed.", "nodeID", node.ID, "error", node.Error)
		// A cancellation error is a symptom, not a cause.
		if node.Error != nil && !errors.Is(node.Error, context.Canceled) {
			failedNodes = append(failedNodes, node.ID)
			if rootCauseError == nil {
				rootCauseError = node.Error
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// Results returns the collected job results keyed by node ID.
func (e *Executor) Results() map[string]*JobResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*JobResult, len(e.results))
	for k, v := range e.results {
		out[k] = v
	}
	return out
}

func (e *Executor) recordResult(res *JobResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[res.NodeID] = res
}

// skipDependents recursively marks all downstream nodes as skipped and
// settles their WaitGroup slots.
func (e *Executor) skipDependents(ctx context.Context, node *dag.Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dep := dependent
		dep.SkipOnce(func() {
			logger.Warn("Skipping job due to upstream failure.", "nodeID", dep.ID, "dependency", node.ID)
			dep.SetState(dag.Skipped)
			dep.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.recordResult(&JobResult{
				NodeID:     dep.ID,
				Workflow:   dep.Workflow.Name,
				Job:        dep.Job.Name,
				Conclusion: dag.Skipped.String(),
			})
			e.wg.Done()
			e.skipDependents(ctx, dep)
		})
	}
}
