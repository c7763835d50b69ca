package gen

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockRetry is the delay between attempts to take a directory lock.
const lockRetry = 50 * time.Millisecond

// ErrLocked is returned when the lock of an output directory could not be
// taken before the context was done.
var ErrLocked = errors.New("stepgen: output directory is locked")

// Writer writes generated files. Writes into one directory are serialized
// across processes with a lock file, and files whose content did not change
// are left untouched.
type Writer struct {
	// LockDir holds the lock files. Defaults to os.TempDir().
	LockDir string
	// Logger receives a record per written file.
	Logger *slog.Logger

	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics tracks the files handled by a Writer.
type WriterMetrics struct {
	FilesWritten   int
	FilesUnchanged int
	TotalBytes     int64
}

// NewWriter creates a Writer logging to l.
func NewWriter(l *slog.Logger) *Writer {
	return &Writer{Logger: l}
}

// Metrics returns a snapshot of the writer metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Write writes the file and reports whether its content changed.
func (w *Writer) Write(ctx context.Context, f *File) (bool, error) {
	path := f.Path()
	builder := ""
	if f.Builder != nil {
		builder = f.Builder.Name
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return false, NewGenerationError(builder, "write", path, "creating directory", err)
	}
	lock := flock.New(w.lockPath(f.Dir))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		if err == nil {
			err = ErrLocked
		}
		return false, NewGenerationError(builder, "write", path, "locking directory", err)
	}
	defer func() { _ = lock.Unlock() }()

	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, f.Content) {
		w.record(false, 0)
		w.log().Debug("file unchanged", "builder", builder, "file", path)
		return false, nil
	}
	tmp, err := os.CreateTemp(f.Dir, "."+f.Name+".*.tmp")
	if err != nil {
		return false, NewGenerationError(builder, "write", path, "creating temporary file", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(f.Content); err != nil {
		_ = tmp.Close()
		return false, NewGenerationError(builder, "write", path, "writing temporary file", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return false, NewGenerationError(builder, "write", path, "setting file mode", err)
	}
	if err := tmp.Close(); err != nil {
		return false, NewGenerationError(builder, "write", path, "closing temporary file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, NewGenerationError(builder, "write", path, "renaming temporary file", err)
	}
	w.record(true, int64(len(f.Content)))
	w.log().Info("file written", "builder", builder, "file", path, "bytes", len(f.Content))
	return true, nil
}

// lockPath returns the lock file of an output directory.
func (w *Writer) lockPath(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	sum := sha256.Sum256([]byte(dir))
	base := w.LockDir
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, fmt.Sprintf("stepgen-%s.lock", hex.EncodeToString(sum[:8])))
}

func (w *Writer) record(written bool, n int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if written {
		w.metrics.FilesWritten++
		w.metrics.TotalBytes += n
	} else {
		w.metrics.FilesUnchanged++
	}
}

func (w *Writer) log() *slog.Logger {
	if w.Logger == nil {
		return (&Config{}).Log()
	}
	return w.Logger
}
