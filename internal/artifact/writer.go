// Package artifact persists generated files atomically.
//
// Each file is written to a temporary sibling, synced, and renamed over the
// target, so readers observe either the old or the new content. A file whose
// content is already identical is left untouched. A failed write is retried
// once before it surfaces as a WriteError.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
)

// File is one artifact to persist.
type File struct {
	Path string
	Data []byte
}

// WriteError reports a write that failed after its retry.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// retryDelay is the pause before the single retry.
const retryDelay = 50 * time.Millisecond

// replace is the write step; tests swap it to inject failures.
var replace = replaceFile

// WriteAll writes files in order and returns the paths whose content changed.
// It stops at the first failure; files already renamed stay in place.
func WriteAll(ctx context.Context, logger *slog.Logger, files ...File) ([]string, error) {
	var changed []string
	for _, f := range files {
		ok, err := Write(ctx, logger, f)
		if err != nil {
			return changed, err
		}
		if ok {
			changed = append(changed, f.Path)
		}
	}
	return changed, nil
}

// Write persists one file. It reports whether the content on disk changed.
func Write(ctx context.Context, logger *slog.Logger, f File) (bool, error) {
	current, err := os.ReadFile(f.Path)
	if err == nil && bytes.Equal(current, f.Data) {
		logger.Debug("artifact unchanged", "path", f.Path)
		return false, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("artifact unreadable, rewriting", "path", f.Path, "error", err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(1, retry.NewConstant(retryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := replace(f.Path, f.Data); err != nil {
			logger.Warn("artifact write failed", "path", f.Path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return false, &WriteError{Path: f.Path, Err: err}
	}
	logger.Debug("artifact written", "path", f.Path, "bytes", len(f.Data))
	return true, nil
}

// replaceFile writes data to a temporary sibling of path and renames it in place.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return syncDir(dir)
}

// syncDir flushes the directory entry of a rename.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
