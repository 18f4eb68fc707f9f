// Package artifact tracks produced output files. Each artifact gets an
// opaque unique id and a fixed time-to-live; expiry is a logical guarantee
// enforced at resolve time, with a sweep reclaiming disk space.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stillframe/stillframe-api/internal/scenario"
)

// TTL is the fixed artifact lifetime. Access does not extend it.
const TTL = time.Hour

// ErrNotFound is returned when an artifact id is unknown or past expiry.
var ErrNotFound = errors.New("artifact not found")

// Artifact is the metadata for one produced output file. Artifacts are
// never mutated after creation, only deleted.
type Artifact struct {
	// ID is the opaque unique token used for retrieval.
	ID string
	// Path is the file location on disk.
	Path string
	// Filename is the caller-facing download name.
	Filename string
	// Size is the file size in bytes.
	Size int64
	// Scenario tags which composition mode produced the file.
	Scenario scenario.Scenario
	// CreatedAt and ExpiresAt bound the artifact's lifetime.
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Registry stores artifact metadata and owns the output directory.
// All operations are safe under concurrent register, resolve and sweep.
type Registry struct {
	mu        sync.Mutex
	artifacts map[string]*Artifact
	dir       string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock injects a time source, used by tests to cross the expiry boundary.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a Registry owning dir as its output directory.
// The directory is created if missing.
func NewRegistry(dir string, opts ...Option) (*Registry, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "stillframe", "outputs")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	r := &Registry{
		artifacts: make(map[string]*Artifact),
		dir:       dir,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the output directory path.
func (r *Registry) Dir() string {
	return r.dir
}

// Register moves a finished output file into the output directory, issues
// a fresh id and records metadata. It must only be called once the
// composition engine has confirmed a complete output file.
func (r *Registry) Register(srcPath, filename string, scn scenario.Scenario) (*Artifact, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("stat output file: %w", err)
	}

	id := uuid.NewString()
	dest := filepath.Join(r.dir, id+".mp4")
	if err := moveFile(srcPath, dest); err != nil {
		return nil, fmt.Errorf("move output file: %w", err)
	}

	now := r.now()
	art := &Artifact{
		ID:        id,
		Path:      dest,
		Filename:  filename,
		Size:      info.Size(),
		Scenario:  scn,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}

	r.mu.Lock()
	r.artifacts[id] = art
	r.mu.Unlock()

	r.logger.Info("artifact registered",
		slog.String("artifact_id", id),
		slog.Int64("size", art.Size),
		slog.String("scenario", string(scn)),
	)

	clone := *art
	return &clone, nil
}

// Resolve looks up an artifact by id. Expiry is checked here even if no
// sweep has run yet, so an expired id never resolves to a dangling path.
func (r *Registry) Resolve(id string) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	art, ok := r.artifacts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !r.now().Before(art.ExpiresAt) {
		delete(r.artifacts, id)
		r.removeFile(art)
		return nil, fmt.Errorf("%w: %s expired", ErrNotFound, id)
	}

	clone := *art
	return &clone, nil
}

// Sweep deletes all artifacts past expiry and returns the number removed.
// It is idempotent and safe to call concurrently with Register and Resolve.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, art := range r.artifacts {
		if now.Before(art.ExpiresAt) {
			continue
		}
		delete(r.artifacts, id)
		r.removeFile(art)
		removed++
	}
	if removed > 0 {
		r.logger.Info("sweep removed expired artifacts",
			slog.Int("removed", removed),
			slog.Int("active", len(r.artifacts)),
		)
	}
	return removed
}

// Len returns the number of registered, unexpired artifacts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.artifacts)
}

// RunSweeper runs Sweep on the given interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) removeFile(art *Artifact) {
	if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove expired artifact file",
			slog.String("artifact_id", art.ID),
			slog.String("path", art.Path),
			slog.String("error", err.Error()),
		)
	}
}

// moveFile renames src to dest, falling back to a copy when the rename
// crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src) // #nosec G304 - src is produced by the composition engine
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return os.Remove(src)
}
