package staging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"cueforge/internal/logging"
)

// CleanResult contains the outcome of a cleanup operation.
type CleanResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job directories older than maxAge. Directories still
// locked by a running job are skipped regardless of age.
func (m *Manager) CleanStale(ctx context.Context, maxAge time.Duration) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return m.clean(ctx, "stale", func(_ string, info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes job directories whose id is not in active.
func (m *Manager) CleanOrphaned(ctx context.Context, active map[string]struct{}) CleanResult {
	return m.clean(ctx, "orphaned", func(name string, _ os.FileInfo) bool {
		_, ok := active[name]
		return !ok
	})
}

func (m *Manager) clean(ctx context.Context, kind string, remove func(name string, info os.FileInfo) bool) CleanResult {
	result := CleanResult{}
	if m.root == "" {
		return result
	}
	logger := logging.WithContext(ctx, m.logger)

	entries, err := os.ReadDir(m.root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: m.root, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(m.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !remove(entry.Name(), info) {
			continue
		}
		if isLocked(dirPath) {
			result.Skipped = append(result.Skipped, dirPath)
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove "+kind+" staging directory",
				"staging_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed "+kind+" staging directory",
			logging.String("path", dirPath),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}

// DirInfo contains metadata about a job directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
	Locked  bool
}

// List returns every job directory under the root.
func (m *Manager) List() ([]DirInfo, error) {
	if m.root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(m.root)
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
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(m.root, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Locked:  isLocked(dirPath),
		})
	}
	return dirs, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}
