// Package asset decodes base64-encoded request payloads into files inside
// an isolated per-request workspace. Decoded bytes are sniffed against the
// supported container formats before they are accepted.
package asset

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Static errors for asset decoding.
var (
	// ErrDecode is returned when base64 payloads are malformed.
	ErrDecode = errors.New("asset decode failed")
	// ErrUnsupportedFormat is returned when decoded bytes are not one of
	// the supported containers (JPEG/PNG images, MP3/WAV audio).
	ErrUnsupportedFormat = errors.New("unsupported asset format")
)

// Format identifies a sniffed container format.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatSRT  Format = "srt"
)

// Decoder creates per-request workspaces under a common root directory.
type Decoder struct {
	root string
}

// NewDecoder creates a Decoder rooted at dir. If dir is empty a directory
// under os.TempDir() is used. The root is created if missing.
func NewDecoder(dir string) (*Decoder, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "stillframe")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create decoder root: %w", err)
	}
	return &Decoder{root: dir}, nil
}

// NewWorkspace allocates a fresh workspace directory. Naming is unique per
// request so concurrent requests never collide.
func (d *Decoder) NewWorkspace() (*Workspace, error) {
	dir := filepath.Join(d.root, uuid.NewString())
	if err := os.Mkdir(dir, 0750); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Workspace is an isolated temp directory holding one request's decoded
// assets. Close removes it on every exit path, success or failure.
type Workspace struct {
	dir string
}

// Dir returns the workspace directory path.
func (w *Workspace) Dir() string {
	return w.dir
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}

// SaveImage decodes a base64 image payload. Only JPEG and PNG pass the sniff.
func (w *Workspace) SaveImage(b64, name string) (string, Format, error) {
	data, err := decodeBase64(b64)
	if err != nil {
		return "", "", err
	}
	format, ok := sniffImage(data)
	if !ok {
		return "", "", fmt.Errorf("%w: image must be JPEG or PNG", ErrUnsupportedFormat)
	}
	path, err := w.write(name, data)
	return path, format, err
}

// SaveAudio decodes a base64 audio payload. Only MP3 and WAV pass the sniff.
func (w *Workspace) SaveAudio(b64, name string) (string, Format, error) {
	data, err := decodeBase64(b64)
	if err != nil {
		return "", "", err
	}
	format, ok := sniffAudio(data)
	if !ok {
		return "", "", fmt.Errorf("%w: audio must be MP3 or WAV", ErrUnsupportedFormat)
	}
	path, err := w.write(name, data)
	return path, format, err
}

// SaveSubtitle decodes a base64 subtitle payload and returns its text.
// Track structure is validated downstream by the stylist.
func (w *Workspace) SaveSubtitle(b64 string) (string, error) {
	data, err := decodeBase64(b64)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("%w: empty subtitle track", ErrDecode)
	}
	return string(data), nil
}

// SaveWatermark decodes a base64 watermark image. Same sniff as SaveImage.
func (w *Workspace) SaveWatermark(b64, name string) (string, Format, error) {
	return w.SaveImage(b64, name)
}

// WriteText writes generated text (e.g. a styled subtitle track) into the
// workspace and returns its path.
func (w *Workspace) WriteText(name, content string) (string, error) {
	return w.write(name, []byte(content))
}

func (w *Workspace) write(name string, data []byte) (string, error) {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write asset %s: %w", name, err)
	}
	return path, nil
}

// decodeBase64 decodes a payload, tolerating a data URL prefix.
func decodeBase64(b64 string) ([]byte, error) {
	if idx := strings.IndexByte(b64, ','); idx >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	return data, nil
}

// sniffImage checks JPEG and PNG magic bytes.
func sniffImage(data []byte) (Format, bool) {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG, true
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return FormatPNG, true
	}
	return "", false
}

// sniffAudio checks MP3 (ID3 tag or frame sync) and WAV (RIFF/WAVE) magic bytes.
func sniffAudio(data []byte) (Format, bool) {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return FormatMP3, true
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3, true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV, true
	}
	return "", false
}
