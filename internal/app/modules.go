package app

import (
	"github.com/vk/pipewright/internal/registry"
	"github.com/vk/pipewright/modules/checkout"
	"github.com/vk/pipewright/modules/pip"
	"github.com/vk/pipewright/modules/report"
	"github.com/vk/pipewright/modules/setuppython"
	"github.com/vk/pipewright/modules/shell"
	"github.com/vk/pipewright/modules/webhook"
)

// coreModules is the default set of built-in action modules an App registers
// when the caller does not inject its own (tests do).
var coreModules = []registry.Module{
	&checkout.Module{},
	&setuppython.Module{},
	&pip.Module{},
	&shell.Module{},
	&webhook.Module{},
	&report.Module{},
}
