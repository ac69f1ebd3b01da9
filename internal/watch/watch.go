// Package watch re-runs a scan whenever workflow files under a root change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/permscan/pkg/shared/config"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
	"github.com/scan-io-git/permscan/pkg/shared/files"
)

// DefaultDebounce is how long the watcher waits for changes to settle before rescanning.
const DefaultDebounce = 300 * time.Millisecond

// Options controls what is watched.
type Options struct {
	Root       string
	Recursive  bool
	Extensions []string
	Debounce   time.Duration
	// TolerateMissingRoot waits for a missing Root to appear instead of failing.
	TolerateMissingRoot bool
}

// RunFunc performs one scan. Its error is logged and does not stop the watcher.
type RunFunc func(ctx context.Context) error

// Run calls run once, then again after every settled change to a matching file
// under opts.Root. A missing root is fatal unless opts.TolerateMissingRoot is set,
// in which case its nearest existing ancestor is watched until the root is created.
// It returns nil when ctx is done.
func Run(ctx context.Context, opts Options, run RunFunc, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	exts := config.NormalizeExtensions(opts.Extensions)

	root, err := files.ExpandPath(opts.Root)
	if err != nil {
		return fmt.Errorf("failed to expand root %q: %w", opts.Root, err)
	}
	watched := root
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err) && opts.TolerateMissingRoot:
		if watched, err = nearestExisting(root); err != nil {
			return scanerrors.WrapStage(scanerrors.StageLocate, err)
		}
	case os.IsNotExist(err):
		return scanerrors.WrapStage(scanerrors.StageLocate, scanerrors.NewNotFoundError(root, err))
	case err != nil:
		return scanerrors.WrapStage(scanerrors.StageLocate, err)
	case !info.IsDir():
		return scanerrors.WrapStage(scanerrors.StageLocate, fmt.Errorf("root %q is not a directory", root))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()

	if watched == root {
		err = addDirs(watcher, root, opts.Recursive)
	} else {
		logger.Warn("root does not exist yet, waiting for it", "root", root, "watching", watched)
		err = watcher.Add(watched)
	}
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	logger.Info("watching for changes", "root", root, "recursive", opts.Recursive)

	trigger := func() {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scan failed", "error", err)
		}
	}
	trigger()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(opts.Debounce)
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if watched != root {
				next, err := advance(watcher, root, watched, opts.Recursive)
				if err != nil {
					logger.Warn("unable to follow the missing root", "root", root, "error", err)
				}
				if next == root {
					logger.Info("root created, watching it", "root", root)
					schedule()
				}
				watched = next
				continue
			}
			if opts.Recursive && ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addDirs(watcher, ev.Name, true); err != nil {
						logger.Warn("unable to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !relevant(ev, exts) {
				continue
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			schedule()
		case <-fire:
			fire = nil
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

func relevant(ev fsnotify.Event, exts []string) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func addDirs(w *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// nearestExisting returns path, or its closest ancestor directory that exists.
func nearestExisting(path string) (string, error) {
	dir := path
	for {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			return dir, nil
		case err == nil:
			return "", fmt.Errorf("%q is not a directory", dir)
		case !os.IsNotExist(err):
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", scanerrors.NewNotFoundError(path, err)
		}
		dir = parent
	}
}

// advance moves the watch from watched towards root as missing directories
// appear, and returns the directory watched afterwards.
func advance(w *fsnotify.Watcher, root, watched string, recursive bool) (string, error) {
	for {
		next, err := nearestExisting(root)
		if err != nil || next == watched {
			return watched, err
		}
		_ = w.Remove(watched)
		if next == root {
			return root, addDirs(w, root, recursive)
		}
		if err := w.Add(next); err != nil {
			return watched, err
		}
		watched = next
	}
}
