// Package staging manages the per-edition working directories under
// <storage_dir>/editions.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ariacut/internal/logging"
)

// CleanupResult contains the outcome of a cleanup pass.
type CleanupResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one edition working directory.
type DirInfo struct {
	EditionID int64
	Path      string
	ModTime   time.Time
	Size      int64
}

// ListDirectories returns the edition directories below root. Entries whose
// name is not an edition ID are skipped.
func ListDirectories(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(root, entry.Name())
		size, _ := dirSize(path)
		dirs = append(dirs, DirInfo{EditionID: id, Path: path, ModTime: info.ModTime(), Size: size})
	}
	return dirs, nil
}

// CleanOrphaned removes edition directories whose edition no longer exists.
func CleanOrphaned(ctx context.Context, root string, active map[int64]struct{}, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	dirs, err := ListDirectories(root)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		return result
	}
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return result
		}
		if _, ok := active[dir.EditionID]; ok {
			continue
		}
		remove(&result, dir, logger)
	}
	return result
}

func remove(result *CleanupResult, dir DirInfo, logger *slog.Logger) {
	if err := os.RemoveAll(dir.Path); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
		if logger != nil {
			logging.WarnWithContext(logger, "failed to remove orphaned edition directory", "workdir_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
		return
	}
	result.Removed = append(result.Removed, dir.Path)
	if logger != nil {
		logger.Info("removed orphaned edition directory",
			logging.String("path", dir.Path),
			logging.Int64("edition_id", dir.EditionID),
			logging.Int64("size_bytes", dir.Size),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
