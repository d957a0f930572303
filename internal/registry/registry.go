package registry

import (
	"github.com/vk/pipewright/internal/config"
)

// Module is the interface that all action modules must implement to be
// registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered action handlers and manifest definitions for
// a single application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredAction
	DefinitionRegistry map[string]*config.ActionDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredAction),
		DefinitionRegistry: make(map[string]*config.ActionDefinition),
	}
}

// PopulateDefinitionsFromModel copies the loaded action manifests from the
// config model into the registry for lookup during execution.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Actions {
		r.DefinitionRegistry[key] = val
	}
}

// DefinitionFor resolves an action type to its manifest, or nil.
func (r *Registry) DefinitionFor(actionType string) *config.ActionDefinition {
	return r.DefinitionRegistry[actionType]
}
