package executor

import (
	"context"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/dag"
)

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			n := node
			n.SkipOnce(func() {
				workerLogger.Warn("Run cancelled, skipping job.")
				n.SetState(dag.Skipped)
				n.Error = ctx.Err()
				e.recordResult(&JobResult{
					NodeID:     n.ID,
					Workflow:   n.Workflow.Name,
					Job:        n.Job.Name,
					Conclusion: dag.Skipped.String(),
				})
				e.wg.Done()
			})
			continue
		}

		workerLogger.Debug("Worker picked up job for execution.")
		node.SetState(dag.Running)

		result, err := e.executeJobNode(ctx, node)
		e.recordResult(result)

		if err != nil {
			workerLogger.Error("Job execution failed.", "error", err)
			node.SetState(dag.Failed)
			node.Error = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		if result.Conclusion == dag.Skipped.String() {
			workerLogger.Info("Job condition evaluated false, job skipped.")
			node.SetState(dag.Skipped)
		} else {
			workerLogger.Debug("Job execution succeeded.")
			node.SetState(dag.Done)
		}

		// A finished job (success or condition-skip) unlocks its dependents.
		for _, dependent := range node.Dependents {
			if dependent.DecrementDepCount() == 0 {
				workerLogger.Debug("Unlocking dependent job.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
