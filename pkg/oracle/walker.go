package oracle

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seqlab/trace-oracle/pkg/util"
)

// Walker traverses the input path, applying extension and ignore rules, and
// collects the eligible trace file paths. Discovery is separated from
// dispatch so the output CSV rows follow a deterministic path order no
// matter how workers interleave.
type Walker struct {
	opts   *Options
	hooks  Hooks
	logger *slog.Logger
}

// NewWalker creates a new Walker instance.
func NewWalker(opts *Options, loggerHandler slog.Handler) *Walker {
	return &Walker{
		opts:   opts,
		hooks:  opts.EventHooks,
		logger: slog.New(loggerHandler).With(slog.String("component", "walker")),
	}
}

// Discover returns the relative paths of all eligible trace files under the
// input path, sorted lexicographically. A regular-file input path yields
// itself regardless of extension; a directory is walked recursively. Skipped
// paths are reported through the hooks and the returned SkippedInfo slice.
func (w *Walker) Discover(ctx context.Context) ([]string, []SkippedInfo, error) {
	info, err := os.Stat(w.opts.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: stat %q: %w", ErrReadFailed, w.opts.InputPath, err)
	}

	if !info.IsDir() {
		base := filepath.Base(w.opts.InputPath)
		if hookErr := w.hooks.OnFileDiscovered(base); hookErr != nil {
			w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", base), slog.String("error", hookErr.Error()))
		}
		return []string{base}, nil, nil
	}

	w.logger.Info("Starting directory walk", slog.String("path", w.opts.InputPath))
	var paths []string
	var skipped []SkippedInfo
	walkErr := filepath.WalkDir(w.opts.InputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			if path == w.opts.InputPath && os.IsPermission(err) {
				return fmt.Errorf("permission denied reading input directory %q: %w", path, err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", path))
			return nil
		}
		relativePath, err := filepath.Rel(w.opts.InputPath, path)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == "." {
			return nil
		}
		isDir := d.IsDir()
		for _, pattern := range w.opts.IgnorePatterns {
			if util.MatchesIgnorePattern(pattern, relativePath) {
				w.logger.Debug("Path ignored", slog.String("path", relativePath), slog.String("pattern", pattern))
				if !isDir {
					skipped = append(skipped, SkippedInfo{Path: relativePath, Reason: SkipReasonIgnored, Details: fmt.Sprintf("Matched pattern: %s", pattern)})
					w.notifySkip(relativePath, fmt.Sprintf("Ignored by pattern: %s", pattern))
				}
				if isDir {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if isDir {
			return nil
		}
		if hookErr := w.hooks.OnFileDiscovered(relativePath); hookErr != nil {
			w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", relativePath), slog.String("error", hookErr.Error()))
		}
		if ext := w.opts.TraceExtension; ext != "" && !strings.HasSuffix(relativePath, ext) {
			w.logger.Debug("Path skipped, extension mismatch", slog.String("path", relativePath), slog.String("wanted", ext))
			skipped = append(skipped, SkippedInfo{Path: relativePath, Reason: SkipReasonExtension, Details: fmt.Sprintf("Expected suffix %q", ext)})
			w.notifySkip(relativePath, fmt.Sprintf("Extension mismatch, expected %q", ext))
			return nil
		}
		paths = append(paths, relativePath)
		return nil
	})
	if walkErr != nil {
		return nil, skipped, walkErr
	}
	sort.Strings(paths)
	w.logger.Info("Directory walk completed", slog.Int("files", len(paths)), slog.Int("skipped", len(skipped)))
	return paths, skipped, nil
}

func (w *Walker) notifySkip(path, msg string) {
	if hookErr := w.hooks.OnFileStatusUpdate(path, StatusSkipped, msg, 0); hookErr != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate (Skipped) failed", slog.String("path", path), slog.String("error", hookErr.Error()))
	}
}
