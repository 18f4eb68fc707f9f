// Package storage pushes finished artifacts to remote object storage.
// Uploads are opt-in per request; local delivery through the registry
// works without any remote configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotConfigured is returned when an upload is requested but no remote
// backend is configured.
var ErrNotConfigured = errors.New("remote storage is not configured")

// Uploader pushes one finished artifact to remote storage and returns the
// URL it is reachable at.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) (url string, err error)
}

// Disabled is the Uploader used when no remote backend is configured.
// Every upload fails with ErrNotConfigured.
type Disabled struct{}

var _ Uploader = Disabled{}

func (Disabled) Upload(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrNotConfigured
}

// UploadFile opens path and streams it through the uploader under key.
func UploadFile(ctx context.Context, u Uploader, key, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from the artifact registry
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()
	return u.Upload(ctx, key, f)
}
