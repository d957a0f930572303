package testutil

import (
	"context"
	"reflect"

	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// NoOpModule registers a single "NoOp" handler that takes no inputs and does
// nothing. It is useful for tests that need valid manifests which can pass
// registry validation but exercise no real behavior.
type NoOpModule struct{}

// NoOpManifest pairs with NoOpModule for harness file maps.
const NoOpManifest = `
action "noop" {
  lifecycle {
    on_run = "NoOp"
  }
}
`

// Register registers the "NoOp" handler.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterAction("NoOp", &registry.RegisteredAction{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		Fn: func(ctx context.Context, sc *registry.StepContext, input *struct{}) (cty.Value, error) {
			return cty.NilVal, nil
		},
	})
}

// ShellManifest is the manifest of the real shell module, inlined so harness
// tests can enable `run =` steps without reading from the repository tree.
const ShellManifest = `
action "shell" {
  lifecycle {
    on_run = "OnRunShell"
  }

  input "command" {
    type = string
  }

  output "exit_code" {
    type = number
  }
}
`
