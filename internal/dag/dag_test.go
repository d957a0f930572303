package dag

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func workflowWithJobs(name string, jobs ...*config.Job) *config.Workflow {
	return &config.Workflow{Name: name, Jobs: jobs}
}

func TestBuild_LinksNeedsEdges(t *testing.T) {
	wf := workflowWithJobs("ci",
		&config.Job{Name: "lint"},
		&config.Job{Name: "test", Needs: []string{"lint"}},
		&config.Job{Name: "publish", Needs: []string{"lint", "test"}},
	)

	graph, err := Build(testCtx(), []*config.Workflow{wf})
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 3)

	lint := graph.Nodes[NodeID("ci", "lint")]
	test := graph.Nodes[NodeID("ci", "test")]
	publish := graph.Nodes[NodeID("ci", "publish")]
	require.NotNil(t, lint)
	require.NotNil(t, test)
	require.NotNil(t, publish)

	require.Equal(t, int32(0), lint.DepCount())
	require.Equal(t, int32(1), test.DepCount())
	require.Equal(t, int32(2), publish.DepCount())
	require.Contains(t, lint.Dependents, test.ID)
	require.Contains(t, test.Dependents, publish.ID)
}

func TestBuild_UnknownNeedsIsAnError(t *testing.T) {
	wf := workflowWithJobs("ci",
		&config.Job{Name: "test", Needs: []string{"nope"}},
	)

	_, err := Build(testCtx(), []*config.Workflow{wf})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown job 'nope'")
}

func TestBuild_SelfNeedIsAnError(t *testing.T) {
	wf := workflowWithJobs("ci",
		&config.Job{Name: "a", Needs: []string{"a"}},
	)

	_, err := Build(testCtx(), []*config.Workflow{wf})
	require.Error(t, err)
}

func TestBuild_CycleIsAnError(t *testing.T) {
	wf := workflowWithJobs("ci",
		&config.Job{Name: "a", Needs: []string{"b"}},
		&config.Job{Name: "b", Needs: []string{"a"}},
	)

	_, err := Build(testCtx(), []*config.Workflow{wf})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle detected")
}

func TestBuild_NeedsDoNotCrossWorkflows(t *testing.T) {
	wf1 := workflowWithJobs("one", &config.Job{Name: "shared"})
	wf2 := workflowWithJobs("two", &config.Job{Name: "late", Needs: []string{"shared"}})

	// "shared" exists only in workflow "one", so workflow "two" must fail.
	_, err := Build(testCtx(), []*config.Workflow{wf1, wf2})
	require.Error(t, err)
}

func TestNodeStateTransitions(t *testing.T) {
	n := &Node{ID: "job.ci.lint"}
	require.Equal(t, Pending, n.GetState())

	n.SetState(Running)
	require.Equal(t, Running, n.GetState())
	n.SetState(Done)
	require.Equal(t, "success", n.GetState().String())
	n.SetState(Failed)
	require.Equal(t, "failure", n.GetState().String())
	n.SetState(Skipped)
	require.Equal(t, "skipped", n.GetState().String())
}

func TestSkipOnceRunsExactlyOnce(t *testing.T) {
	n := &Node{ID: "job.ci.lint"}
	count := 0
	n.SkipOnce(func() { count++ })
	n.SkipOnce(func() { count++ })
	require.Equal(t, 1, count)
}
