// Package checkout copies the repository worktree into the job's workspace so
// that steps operate on an isolated snapshot instead of the live checkout.
package checkout

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"

	"github.com/vk/pipewright/internal/ctxlog"
	"github.com/vk/pipewright/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'with' block.
type Input struct {
	Repository string `cty:"repository"`
	Path       string `cty:"path"`
}

// OnRunCheckout is the handler for the 'checkout' action's on_run event.
func OnRunCheckout(ctx context.Context, sc *registry.StepContext, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("step", sc.StepID)

	src, err := filepath.Abs(input.Repository)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to resolve repository path '%s': %w", input.Repository, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return cty.NilVal, fmt.Errorf("repository path '%s' is not accessible: %w", input.Repository, err)
	}
	if !info.IsDir() {
		return cty.NilVal, fmt.Errorf("repository path '%s' is not a directory", input.Repository)
	}

	dest := sc.Workspace
	if input.Path != "" {
		dest = filepath.Join(sc.Workspace, input.Path)
	}

	logger.Info("Checking out repository.", "source", src, "dest", dest)
	copied, err := copyTree(ctx, src, dest)
	if err != nil {
		return cty.NilVal, fmt.Errorf("checkout failed: %w", err)
	}
	logger.Info("Checkout complete.", "files", copied)

	return cty.ObjectVal(map[string]cty.Value{
		"path":  cty.StringVal(dest),
		"files": cty.NumberIntVal(int64(copied)),
	}), nil
}

// copyTree copies the worktree rooted at src into dest, skipping the .git
// directory. Symlinks are recreated rather than followed.
func copyTree(ctx context.Context, src, dest string) (int, error) {
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			copied++
			return os.Symlink(link, target)
		default:
			if err := copyFile(path, target); err != nil {
				return err
			}
			copied++
			return nil
		}
	})
	return copied, err
}

// copyFile copies one regular file, preserving its permission bits.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("OnRunCheckout", &registry.RegisteredAction{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunCheckout,
	})
}
