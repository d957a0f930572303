package app

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/pipewright/internal/event"
	"golang.org/x/sync/errgroup"
)

// debounceWindow is the quiet period after the last file event before a
// synthesized run fires. Editors fire bursts of writes per save.
const debounceWindow = 500 * time.Millisecond

// watchLoop runs the initial event, then re-fires workflow evaluation every
// time files under the source tree change, synthesizing a push event carrying
// the touched paths. It returns when the context is cancelled.
func (a *App) watchLoop(ctx context.Context, appConfig *Config, initial *event.Event) error {
	if err := a.runOnce(ctx, appConfig, initial); err != nil {
		a.logger.Error("Run failed, continuing to watch.", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addDirsRecursively(watcher, appConfig.Source); err != nil {
		return err
	}
	a.logger.Info("👀 Watching for changes.", "path", appConfig.Source)

	changes := make(chan string, 256)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(changes)
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op.Has(fsnotify.Create) {
					// New directories must be watched as they appear.
					_ = addDirsRecursively(watcher, ev.Name)
				}
				if rel := a.relSourcePath(appConfig.Source, ev.Name); rel != "" {
					changes <- rel
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				a.logger.Warn("Watcher error.", "error", err)
			}
		}
	})

	g.Go(func() error {
		pending := make(map[string]struct{})
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case rel, ok := <-changes:
				if !ok {
					return nil
				}
				pending[rel] = struct{}{}
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
				} else {
					timer.Reset(debounceWindow)
				}
				fire = timer.C
			case <-fire:
				files := make([]string, 0, len(pending))
				for rel := range pending {
					files = append(files, rel)
				}
				pending = make(map[string]struct{})
				fire = nil

				ev := event.New(event.Push, initial.Ref, files)
				a.logger.Info("🔁 Change detected, re-evaluating workflows.", "changed_files", len(files))
				if err := a.runOnce(gctx, appConfig, ev); err != nil {
					a.logger.Error("Run failed, continuing to watch.", "error", err)
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// relSourcePath maps an absolute watcher path to a repository-relative one,
// filtering out VCS internals.
func (a *App) relSourcePath(source, path string) string {
	rel, err := filepath.Rel(source, path)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, ".git/") || rel == ".git" {
		return ""
	}
	return rel
}

// addDirsRecursively registers path and all directories under it.
func addDirsRecursively(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // transient; entries can vanish mid-walk
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}
