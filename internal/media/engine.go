// Package media drives the external ffmpeg engine. The engine is invoked
// as a black-box command with a declarative filter description; its stderr
// is carried verbatim inside CompositionError when it fails.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/stillframe/stillframe-api/internal/effect"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when frame dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrProbeExecution is returned when ffprobe fails.
	ErrProbeExecution = errors.New("ffprobe execution failed")
	// ErrMissingOutput is returned when ffmpeg exits cleanly but produced
	// no output file.
	ErrMissingOutput = errors.New("composition produced no output file")
)

// mkdirRetries bounds the purely local retries on output directory
// creation races. External engine failures are never retried.
const mkdirRetries = 3

// Spec is the resolved composition plan handed to the engine.
type Spec struct {
	// ImagePath and AudioPath are the decoded input assets.
	ImagePath string
	AudioPath string
	// Width and Height are the output frame dimensions.
	Width  int
	Height int
	// Duration is the audio duration in seconds.
	Duration float64
	// Motion is the resolved transform, nil when the scenario has none.
	Motion *effect.MotionPlan
	// SubtitlePath is a rendered styled track to burn in, "" when none.
	SubtitlePath string
	// FontsDir optionally points the subtitle renderer at extra font files.
	FontsDir string
	// WatermarkPath is an overlay image, "" when none.
	WatermarkPath string
	// OutputPath is where the finished file is written.
	OutputPath string
}

// Output describes the finished media file.
type Output struct {
	Path     string
	Duration float64
	Width    int
	Height   int
	Size     int64
}

// Engine runs ffmpeg and ffprobe.
type Engine struct {
	ffmpegPath  string
	ffprobePath string
}

// NewEngine creates an Engine. Empty paths default to "ffmpeg" and
// "ffprobe" found via PATH.
func NewEngine(ffmpegPath, ffprobePath string) *Engine {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Engine{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Compose runs one composition pass. The motion transform is applied to
// the base visual stream before the subtitle overlay, so burned-in cues
// stay screen-stable while the background moves. The watermark, if any,
// is composited last.
func (e *Engine) Compose(ctx context.Context, spec Spec) (*Output, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, spec.Width, spec.Height)
	}
	if spec.Duration <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidDuration, spec.Duration)
	}

	if err := e.ensureOutputDir(spec.OutputPath); err != nil {
		return nil, err
	}

	args := buildArgs(spec)
	if err := e.runFFmpeg(ctx, args); err != nil {
		return nil, err
	}

	info, err := os.Stat(spec.OutputPath)
	if err != nil || info.Size() == 0 {
		return nil, &CompositionError{Args: args, Err: ErrMissingOutput}
	}

	duration, err := e.ProbeDuration(ctx, spec.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("probe output: %w", err)
	}

	return &Output{
		Path:     spec.OutputPath,
		Duration: duration,
		Width:    spec.Width,
		Height:   spec.Height,
		Size:     info.Size(),
	}, nil
}

// buildArgs assembles the full ffmpeg invocation for a spec.
func buildArgs(spec Spec) []string {
	args := []string{
		"-y",
		"-loop", "1",
		"-i", spec.ImagePath,
		"-i", spec.AudioPath,
	}

	filters := buildFilterChain(spec)
	if spec.WatermarkPath != "" {
		wmWidth := spec.Width / 8
		complexFilter := fmt.Sprintf(
			"[0:v]%s[v];movie=%s,scale=%d:-1[wm];[v][wm]overlay=10:10[out]",
			filters, escapeFilterPath(spec.WatermarkPath), wmWidth,
		)
		args = append(args,
			"-filter_complex", complexFilter,
			"-map", "[out]",
			"-map", "1:a",
		)
	} else {
		args = append(args, "-vf", filters)
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "128k",
		"-pix_fmt", "yuv420p",
		"-r", "30",
		"-shortest",
		"-movflags", "+faststart",
		spec.OutputPath,
	)
	return args
}

// buildFilterChain builds the -vf chain: normalize to the frame, apply the
// motion transform, then burn in subtitles.
func buildFilterChain(spec Spec) string {
	var filters []string

	filters = append(filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", spec.Width, spec.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", spec.Width, spec.Height),
		"setsar=1",
	)
	if spec.Motion != nil {
		if spec.Motion.IsPan() {
			filters = append(filters, panFilters(spec.Motion, spec.Width, spec.Height)...)
		} else {
			filters = append(filters, zoomFilter(spec.Motion, spec.Width, spec.Height))
		}
	}

	if spec.SubtitlePath != "" {
		sub := fmt.Sprintf("ass=%s", escapeFilterPath(spec.SubtitlePath))
		if spec.FontsDir != "" {
			sub += fmt.Sprintf(":fontsdir=%s", escapeFilterPath(spec.FontsDir))
		}
		filters = append(filters, sub)
	}

	return strings.Join(filters, ",")
}

// zoomFilter renders a zoom plan as a zoompan expression. The per-frame
// step is derived from the plan so the zoom lands exactly on its final
// factor at the last frame.
func zoomFilter(plan *effect.MotionPlan, w, h int) string {
	step := math.Abs(plan.ZoomStep())
	var expr string
	if plan.Kind == effect.KindZoomOut {
		expr = fmt.Sprintf("max(%.3f-%.6f*on,%.3f)", plan.ZoomFrom, step, plan.ZoomTo)
	} else {
		expr = fmt.Sprintf("min(%.3f+%.6f*on,%.3f)", plan.ZoomFrom, step, plan.ZoomTo)
	}
	return fmt.Sprintf(
		"zoompan=z='%s':d=1:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d:fps=%d",
		expr, w, h, plan.FPS,
	)
}

// panFilters scale the normalized frame up and slide a frame-sized crop
// window across the horizontal slack, from the edge to center.
func panFilters(plan *effect.MotionPlan, w, h int) []string {
	scaledW := int(math.Ceil(float64(w) * effect.PanScale))
	scaledH := int(math.Ceil(float64(h) * effect.PanScale))
	progress := fmt.Sprintf("min(n/%d,1)", plan.Frames-1)
	xExpr := fmt.Sprintf("(iw-ow)*(%.4f+%.4f*%s)", plan.PanFrom, plan.PanTo-plan.PanFrom, progress)
	return []string{
		fmt.Sprintf("scale=%d:%d", scaledW, scaledH),
		fmt.Sprintf("crop=%d:%d:x='%s':y='(ih-oh)/2'", w, h, xExpr),
		fmt.Sprintf("fps=%d", plan.FPS),
	}
}

// escapeFilterPath quotes a path for use inside a filtergraph.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `'`, `\'`)
	return "'" + path + "'"
}

// ensureOutputDir creates the output file's directory, retrying a bounded
// number of times since concurrent requests can race on first creation.
func (e *Engine) ensureOutputDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	var err error
	for i := 0; i < mkdirRetries; i++ {
		if err = os.MkdirAll(dir, 0750); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("create output directory: %w", err)
}

// runFFmpeg executes ffmpeg, wrapping failures in CompositionError with
// the engine's stderr attached verbatim.
func (e *Engine) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &CompositionError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// CompositionError is a failure of the external media engine. It carries
// the engine's diagnostic text verbatim and is never retried.
type CompositionError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// ProbeDuration returns a media file's duration in seconds.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	out, err := e.runFFprobe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%f", &duration); err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// ProbeDimensions returns an image or video file's pixel dimensions.
func (e *Engine) ProbeDimensions(ctx context.Context, path string) (int, int, error) {
	out, err := e.runFFprobe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0:s=x",
		path,
	)
	if err != nil {
		return 0, 0, err
	}

	var width, height int
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%dx%d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("parse dimensions: %w", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return width, height, nil
}

// Version returns the first line of `ffmpeg -version`, used by health checks.
func (e *Engine) Version(ctx context.Context) (string, error) {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, "-version")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(stdout.String(), "\n")
	return strings.TrimSpace(line), nil
}

func (e *Engine) runFFprobe(ctx context.Context, args ...string) (string, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("%w: %w, stderr: %s", ErrProbeExecution, err, stderr.String())
	}
	return stdout.String(), nil
}
