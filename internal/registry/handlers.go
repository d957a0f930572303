package registry

import (
	"fmt"
	"log/slog"
	"reflect"
)

// RegisteredAction holds the compiled Go parts of an action handler.
//
// Fn must have the signature:
//
//	func(ctx context.Context, sc *StepContext, input *T) (cty.Value, error)
//
// where *T is the value produced by NewInput. The executor dispatches the
// call reflectively after decoding the step's `with` block into the input
// struct.
type RegisteredAction struct {
	NewInput  func() any
	InputType reflect.Type
	Fn        any
}

// RegisterAction registers a Go handler for an action's on_run lifecycle event.
func (r *Registry) RegisterAction(name string, handler *RegisteredAction) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("action handler with name '%s' already registered", name))
	}
	slog.Debug("Registering action handler.", "name", name)
	r.HandlerRegistry[name] = handler
}
