package locator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/permscan/pkg/shared/config"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
	"github.com/scan-io-git/permscan/pkg/shared/files"
)

// Options controls which files Locate returns.
type Options struct {
	Root                string
	Extensions          []string
	Recursive           bool
	TolerateMissingRoot bool
}

// Locate returns the candidate workflow files under opts.Root, sorted by their
// slash-separated path. A missing root yields no files when tolerated.
func Locate(ctx context.Context, opts Options, logger hclog.Logger) ([]string, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	root, err := files.ExpandPath(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand root %q: %w", opts.Root, err)
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if opts.TolerateMissingRoot {
			logger.Warn("root does not exist, nothing to scan", "root", root)
			return []string{}, nil
		}
		return nil, scanerrors.NewNotFoundError(root, err)
	case errors.Is(err, fs.ErrPermission):
		return nil, scanerrors.NewPermissionError(root, err)
	case err != nil:
		return nil, fmt.Errorf("failed to stat root %q: %w", root, err)
	case !info.IsDir():
		return nil, fmt.Errorf("root %q is not a directory", root)
	}

	exts := config.NormalizeExtensions(opts.Extensions)
	if len(exts) == 0 {
		exts = config.NormalizeExtensions(config.DefaultExtensions)
	}

	var found []string
	if err := walk(ctx, root, opts.Recursive, exts, &found, logger); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		return filepath.ToSlash(found[i]) < filepath.ToSlash(found[j])
	})
	logger.Debug("located candidate files", "root", root, "count", len(found), "recursive", opts.Recursive)
	return found, nil
}

func walk(ctx context.Context, dir string, recursive bool, exts []string, found *[]string, logger hclog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return scanerrors.NewPermissionError(dir, err)
		}
		return fmt.Errorf("failed to list %q: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, entry.Name())

		switch mode := entry.Type(); {
		case mode.IsDir():
			if recursive {
				if err := walk(ctx, path, recursive, exts, found, logger); err != nil {
					return err
				}
			}
		case mode&fs.ModeSymlink != 0:
			// Only links resolving to regular files are scanned, linked directories are not followed.
			target, err := os.Stat(path)
			if err != nil {
				logger.Debug("skipping broken symlink", "path", path, "error", err)
				continue
			}
			if target.Mode().IsRegular() && hasExtension(entry.Name(), exts) {
				*found = append(*found, path)
			}
		case mode.IsRegular():
			if hasExtension(entry.Name(), exts) {
				*found = append(*found, path)
			}
		}
	}
	return nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
