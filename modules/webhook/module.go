// Package webhook delivers a JSON status payload to an HTTP endpoint, for
// notifying external systems about the progress of a run.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared across webhook executions to reuse TCP connections.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// Input defines the arguments for the 'with' block.
type Input struct {
	URL    string `cty:"url"`
	Method string `cty:"method"`
	Body   string `cty:"body"`
}

// statusPayload is the default body when the step supplies none.
type statusPayload struct {
	RunID    string                `json:"run_id"`
	Workflow string                `json:"workflow"`
	Job      string                `json:"job"`
	Steps    []registry.StepRecord `json:"steps"`
}

// OnRunWebhook is the handler for the 'webhook' action's on_run event.
func OnRunWebhook(ctx context.Context, sc *registry.StepContext, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", sc.StepID)

	body := []byte(input.Body)
	if input.Body == "" {
		payload := statusPayload{
			RunID:    sc.RunID,
			Workflow: sc.Workflow,
			Job:      sc.Job,
			Steps:    sc.Completed,
		}
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return cty.NilVal, fmt.Errorf("failed to encode status payload: %w", err)
		}
	}

	method := input.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, input.URL, bytes.NewReader(body))
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Info("Delivering webhook.", "method", method, "url", input.URL, "bytes", len(body))
	resp, err := httpClient.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cty.NilVal, fmt.Errorf("webhook endpoint responded with status %s", resp.Status)
	}
	logger.Info("Webhook delivered.", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunWebhook", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunWebhook,
	})
}
