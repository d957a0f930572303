// Package loader composes the syntax-specific configuration loaders. It
// discovers configuration files under the given paths and dispatches each to
// the loader owning its extension, merging the results into one model.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/pipewright/internal/config"
	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/fsutil"
	"github.com/vk/pipewright/internal/hclcfg"
	"github.com/vk/pipewright/internal/yamlcfg"
)

// Loader implements config.Loader by delegating to the HCL and YAML loaders.
type Loader struct {
	hcl  *hclcfg.Loader
	yaml *yamlcfg.Loader
}

// New creates the composite loader.
func New() *Loader {
	return &Loader{
		hcl:  hclcfg.NewLoader(),
		yaml: yamlcfg.NewLoader(),
	}
}

// Load walks every given path (files or directories), groups the discovered
// configuration files by syntax, and merges the translated models. The cty
// converter is shared by both syntaxes.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)

	var hclFiles, yamlFiles []string
	for _, path := range paths {
		files, err := fsutil.FindFilesByExtension(path, ".hcl", ".yml", ".yaml")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to discover configuration under %s: %w", path, err)
		}
		for _, file := range files {
			if strings.HasSuffix(file, ".hcl") {
				hclFiles = append(hclFiles, file)
			} else {
				yamlFiles = append(yamlFiles, file)
			}
		}
	}
	logger.Debug("Configuration files discovered.", "hcl", len(hclFiles), "yaml", len(yamlFiles))

	model := config.NewModel()
	converter := hclcfg.NewConverter()

	if len(hclFiles) > 0 {
		hclModel, _, err := l.hcl.Load(ctx, hclFiles...)
		if err != nil {
			return nil, nil, err
		}
		model.Merge(hclModel)
	}
	if len(yamlFiles) > 0 {
		yamlModel, _, err := l.yaml.Load(ctx, yamlFiles...)
		if err != nil {
			return nil, nil, err
		}
		model.Merge(yamlModel)
	}

	return model, converter, nil
}
