// Package compose orchestrates the composition pipeline: decode assets,
// detect orientation, resolve the scenario, plan motion, style subtitles,
// invoke the media engine and register the finished artifact.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stillframe/stillframe-api/internal/artifact"
	"github.com/stillframe/stillframe-api/internal/asset"
	"github.com/stillframe/stillframe-api/internal/effect"
	"github.com/stillframe/stillframe-api/internal/media"
	"github.com/stillframe/stillframe-api/internal/scenario"
	"github.com/stillframe/stillframe-api/internal/storage"
	"github.com/stillframe/stillframe-api/internal/subtitle"
)

// ErrSubtitleSource is returned when a subtitle file path cannot be read.
var ErrSubtitleSource = errors.New("subtitle source unreadable")

// defaultFilename is the download name used when the request names none.
const defaultFilename = "output.mp4"

// Engine is the media backend the service drives. Satisfied by media.Engine.
type Engine interface {
	Compose(ctx context.Context, spec media.Spec) (*media.Output, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ProbeDimensions(ctx context.Context, path string) (width, height int, err error)
}

// Request is one composition job. Asset payloads are base64 strings as
// received on the wire; validation of ranges and enums happens at the
// transport layer before a Request is built.
type Request struct {
	ImageBase64 string
	AudioBase64 string

	// SubtitleBase64 is an inline SRT track. SubtitlePath points at a
	// server-local SRT file; the inline track wins when both are set.
	SubtitleBase64 string
	SubtitlePath   string

	// Effects are the requested motion tokens, possibly empty.
	Effects []effect.Token

	// Subtitle styling knobs.
	Language          string
	FontSize          int
	OutlineColor      string
	BackgroundBox     bool
	BackgroundOpacity float64

	// Portrait overrides orientation detection when non-nil.
	Portrait *bool

	WatermarkBase64 string
	OutputFilename  string
	PushToS3        bool
}

// Result is the outcome of a successful composition.
type Result struct {
	Artifact *artifact.Artifact
	Scenario scenario.Scenario
	Duration float64
	Width    int
	Height   int
	// VideoURL is set when the artifact was pushed to remote storage.
	VideoURL string
}

// Service wires the pipeline stages together. All stages are injected so
// tests can run the full flow without a real media engine.
type Service struct {
	decoder  *asset.Decoder
	engine   Engine
	planner  *effect.Planner
	stylist  *subtitle.Stylist
	registry *artifact.Registry
	uploader storage.Uploader
	fontsDir string
	logger   *slog.Logger
}

// Config collects the Service dependencies.
type Config struct {
	Decoder  *asset.Decoder
	Engine   Engine
	Planner  *effect.Planner
	Stylist  *subtitle.Stylist
	Registry *artifact.Registry
	// Uploader may be nil when remote storage is not configured.
	Uploader storage.Uploader
	// FontsDir optionally points the renderer at bundled font files.
	FontsDir string
	Logger   *slog.Logger
}

// NewService creates a Service from its dependencies.
func NewService(cfg Config) *Service {
	uploader := cfg.Uploader
	if uploader == nil {
		uploader = storage.Disabled{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		decoder:  cfg.Decoder,
		engine:   cfg.Engine,
		planner:  cfg.Planner,
		stylist:  cfg.Stylist,
		registry: cfg.Registry,
		uploader: uploader,
		fontsDir: cfg.FontsDir,
		logger:   logger,
	}
}

// Compose runs one request through the full pipeline. The per-request
// workspace is removed on every exit path; only the registered artifact
// survives.
func (s *Service) Compose(ctx context.Context, req Request) (*Result, error) {
	ws, err := s.decoder.NewWorkspace()
	if err != nil {
		return nil, err
	}
	defer func() { _ = ws.Close() }()

	imagePath, imageFormat, err := ws.SaveImage(req.ImageBase64, "input_image")
	if err != nil {
		return nil, err
	}
	audioPath, audioFormat, err := ws.SaveAudio(req.AudioBase64, "input_audio")
	if err != nil {
		return nil, err
	}

	width, height, err := s.engine.ProbeDimensions(ctx, imagePath)
	if err != nil {
		return nil, fmt.Errorf("probe image: %w", err)
	}
	duration, err := s.engine.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe audio: %w", err)
	}

	// Orientation comes from the image unless the caller overrides it.
	portrait := height > width
	if req.Portrait != nil {
		portrait = *req.Portrait
	}

	subtitleText, err := s.loadSubtitle(ws, req)
	if err != nil {
		return nil, err
	}

	scn := scenario.Resolve(len(req.Effects) > 0, subtitleText != "")
	s.logger.Info("composition started",
		slog.String("scenario", string(scn)),
		slog.String("image_format", string(imageFormat)),
		slog.String("audio_format", string(audioFormat)),
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Float64("duration", duration),
		slog.Bool("portrait", portrait),
	)

	spec := media.Spec{
		ImagePath:  imagePath,
		AudioPath:  audioPath,
		Width:      width,
		Height:     height,
		Duration:   duration,
		OutputPath: filepath.Join(ws.Dir(), "output.mp4"),
	}

	if scn.UsesEffects() {
		plan, err := s.planner.Plan(req.Effects, duration)
		if err != nil {
			return nil, err
		}
		spec.Motion = plan
	}

	if scn.UsesSubtitles() {
		subPath, err := s.renderSubtitles(ws, req, subtitleText, width, height, portrait)
		if err != nil {
			return nil, err
		}
		spec.SubtitlePath = subPath
		spec.FontsDir = s.fontsDir
	}

	if req.WatermarkBase64 != "" {
		wmPath, _, err := ws.SaveWatermark(req.WatermarkBase64, "watermark")
		if err != nil {
			return nil, err
		}
		spec.WatermarkPath = wmPath
	}

	out, err := s.engine.Compose(ctx, spec)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(req.OutputFilename)
	if filename == "" {
		filename = defaultFilename
	}
	art, err := s.registry.Register(out.Path, filename, scn)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Artifact: art,
		Scenario: scn,
		Duration: out.Duration,
		Width:    out.Width,
		Height:   out.Height,
	}

	if req.PushToS3 {
		url, err := storage.UploadFile(ctx, s.uploader, "outputs/"+art.ID+".mp4", art.Path)
		if err != nil {
			return nil, fmt.Errorf("push artifact: %w", err)
		}
		result.VideoURL = url
	}

	s.logger.Info("composition finished",
		slog.String("artifact_id", art.ID),
		slog.String("scenario", string(scn)),
		slog.Int64("size", art.Size),
		slog.Float64("duration", result.Duration),
	)
	return result, nil
}

// loadSubtitle returns the raw SRT text, or "" when the request has none.
func (s *Service) loadSubtitle(ws *asset.Workspace, req Request) (string, error) {
	if req.SubtitleBase64 != "" {
		return ws.SaveSubtitle(req.SubtitleBase64)
	}
	if req.SubtitlePath != "" {
		data, err := os.ReadFile(req.SubtitlePath) // #nosec G304 - operator-provided path
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSubtitleSource, err)
		}
		return string(data), nil
	}
	return "", nil
}

// renderSubtitles parses, styles and writes the burned-in track.
func (s *Service) renderSubtitles(ws *asset.Workspace, req Request, text string, width, height int, portrait bool) (string, error) {
	cues, err := subtitle.ParseSRT(text)
	if err != nil {
		return "", err
	}
	style, err := s.stylist.Style(subtitle.Params{
		Language:          req.Language,
		Portrait:          portrait,
		FrameWidth:        width,
		FrameHeight:       height,
		FontSize:          req.FontSize,
		OutlineColor:      req.OutlineColor,
		BackgroundBox:     req.BackgroundBox,
		BackgroundOpacity: req.BackgroundOpacity,
	})
	if err != nil {
		return "", err
	}
	return ws.WriteText("subtitles.ass", subtitle.RenderTrack(cues, style))
}
