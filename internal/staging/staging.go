package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"cueforge/internal/logging"
	"cueforge/internal/services"
)

const lockFileName = ".lock"

// ErrLocked reports that another process holds a job directory.
var ErrLocked = errors.New("staging directory is locked by another job")

// Manager creates and removes job directories under a single root.
type Manager struct {
	root   string
	logger *slog.Logger
	statfs func(path string) (free uint64, err error)
}

// New returns a Manager rooted at dir.
func New(dir string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   strings.TrimSpace(dir),
		logger: logging.NewComponentLogger(logger, "staging"),
		statfs: realStatfs,
	}
}

// Root returns the staging root directory.
func (m *Manager) Root() string {
	return m.root
}

// JobDir creates (if needed) and returns the directory for jobID.
func (m *Manager) JobDir(jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return "", services.Wrap(services.ErrValidation, "staging", "job dir", fmt.Sprintf("invalid job id %q", jobID), nil)
	}
	if m.root == "" {
		return "", services.Wrap(services.ErrConfiguration, "staging", "job dir", "staging_dir is not configured", nil)
	}
	dir := filepath.Join(m.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "staging", "job dir", "create staging directory", err)
	}
	return dir, nil
}

// Lock is an exclusive hold on a job directory.
type Lock struct {
	fl *flock.Flock
}

// Lock takes the directory's flock without blocking. ErrLocked is returned
// when another holder exists.
func (m *Manager) Lock(dir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "lock", dir, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Unlock releases the hold. It is safe to call more than once.
func (l *Lock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Cleanup removes a job directory. Failures are logged, never returned: a
// leftover directory is reclaimed later by CleanStale.
func (m *Manager) Cleanup(dir string) {
	if strings.TrimSpace(dir) == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(m.logger, "failed to remove job staging directory",
			"staging_cleanup_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

// EnsureFreeSpace fails when the filesystem holding the staging root has
// fewer than minBytes available. A zero minimum always passes.
func (m *Manager) EnsureFreeSpace(minBytes uint64) error {
	if minBytes == 0 {
		return nil
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "staging", "free space", "create staging root", err)
	}
	free, err := m.statfs(m.root)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "staging", "free space", "statfs", err)
	}
	if free < minBytes {
		return services.Wrap(services.ErrConfiguration, "staging", "free space",
			fmt.Sprintf("%d bytes free under %s, need %d", free, m.root, minBytes), nil)
	}
	return nil
}

func realStatfs(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// isLocked reports whether a live job holds dir.
func isLocked(dir string) bool {
	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil || !locked {
		return true
	}
	_ = fl.Unlock()
	return false
}
