package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stillframe/stillframe-api/internal/artifact"
	"github.com/stillframe/stillframe-api/internal/asset"
	"github.com/stillframe/stillframe-api/internal/compose"
	"github.com/stillframe/stillframe-api/internal/effect"
	"github.com/stillframe/stillframe-api/internal/media"
	"github.com/stillframe/stillframe-api/internal/storage"
	"github.com/stillframe/stillframe-api/internal/subtitle"
)

// Request defaults applied when the body omits styling fields.
const (
	defaultLanguage          = "chinese"
	defaultOutlineColor      = "&H00000000"
	defaultBackgroundOpacity = 0.7
)

// Composer runs one composition job. Satisfied by compose.Service.
type Composer interface {
	Compose(ctx context.Context, req compose.Request) (*compose.Result, error)
}

// VersionProbe reports the media engine version for health checks.
type VersionProbe func(ctx context.Context) (string, error)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	composer  Composer
	registry  *artifact.Registry
	validator *validator.Validate
	logger    *slog.Logger
	baseURL   string
	version   VersionProbe
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithBaseURL sets the public base URL used to build download links.
// Without it links are host-relative.
func WithBaseURL(baseURL string) HandlerOption {
	return func(h *Handlers) {
		h.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithVersionProbe sets the media engine version probe for health checks.
func WithVersionProbe(probe VersionProbe) HandlerOption {
	return func(h *Handlers) {
		h.version = probe
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(composer Composer, registry *artifact.Registry, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		composer:  composer,
		registry:  registry,
		validator: validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.version != nil {
		version, err := h.version(r.Context())
		if err != nil {
			h.logger.Warn("media engine probe failed",
				slog.String("error", err.Error()),
			)
			resp.Status = "degraded"
		} else {
			resp.FFmpeg = version
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Compose handles POST /compose requests. The request is processed
// synchronously; the response carries a download id for the finished video.
func (h *Handlers) Compose(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	result, err := h.composer.Compose(r.Context(), buildComposeRequest(req))
	if err != nil {
		h.writeComposeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ComposeResponse{
		Success:     true,
		FileID:      result.Artifact.ID,
		DownloadURL: fmt.Sprintf("%s/download/%s", h.baseURL, result.Artifact.ID),
		Filename:    result.Artifact.Filename,
		Size:        result.Artifact.Size,
		Scenario:    string(result.Scenario),
		Duration:    result.Duration,
		VideoURL:    result.VideoURL,
	})
}

// Download handles GET /download/{id} requests. Expired or unknown ids
// return 404; access never extends an artifact's lifetime.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "file ID is required", "MISSING_FILE_ID")
		return
	}

	art, err := h.registry.Resolve(id)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found or expired", "FILE_NOT_FOUND")
			return
		}
		h.logger.Error("failed to resolve artifact",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve file", "FILE_RESOLVE_FAILED")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	http.ServeFile(w, r, art.Path)
}

// Cleanup handles POST /cleanup requests, forcing an expiry sweep.
func (h *Handlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed := h.registry.Sweep()
	writeJSON(w, http.StatusOK, CleanupResponse{
		Removed: removed,
		Active:  h.registry.Len(),
	})
}

// buildComposeRequest maps the DTO onto the pipeline request, filling
// defaults for omitted styling fields.
func buildComposeRequest(req ComposeRequest) compose.Request {
	language := req.Language
	if language == "" {
		language = defaultLanguage
	}
	outlineColor := req.OutlineColor
	if outlineColor == "" {
		outlineColor = defaultOutlineColor
	}
	backgroundBox := true
	if req.BackgroundBox != nil {
		backgroundBox = *req.BackgroundBox
	}
	backgroundOpacity := defaultBackgroundOpacity
	if req.BackgroundOpacity != nil {
		backgroundOpacity = *req.BackgroundOpacity
	}

	tokens := make([]effect.Token, 0, len(req.Effects))
	for _, e := range req.Effects {
		tokens = append(tokens, effect.Token(e))
	}

	return compose.Request{
		ImageBase64:       req.InputImage,
		AudioBase64:       req.InputAudio,
		SubtitleBase64:    req.Subtitle,
		SubtitlePath:      req.SubtitlePath,
		Effects:           tokens,
		Language:          language,
		FontSize:          req.FontSize,
		OutlineColor:      outlineColor,
		BackgroundBox:     backgroundBox,
		BackgroundOpacity: backgroundOpacity,
		Portrait:          req.IsPortrait,
		WatermarkBase64:   req.Watermark,
		OutputFilename:    req.OutputFilename,
		PushToS3:          req.PushToS3,
	}
}

// writeComposeError maps pipeline errors onto HTTP statuses. Caller
// mistakes are 4xx; engine and configuration failures are 5xx.
func (h *Handlers) writeComposeError(w http.ResponseWriter, err error) {
	var compErr *media.CompositionError

	switch {
	case errors.Is(err, asset.ErrDecode):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_ASSET")
	case errors.Is(err, asset.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_FORMAT")
	case errors.Is(err, effect.ErrUnknownEffect):
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_EFFECT")
	case errors.Is(err, subtitle.ErrMalformedTrack):
		writeError(w, http.StatusBadRequest, err.Error(), "MALFORMED_SUBTITLE")
	case errors.Is(err, subtitle.ErrColorFormat):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_COLOR")
	case errors.Is(err, compose.ErrSubtitleSource):
		writeError(w, http.StatusBadRequest, err.Error(), "SUBTITLE_SOURCE")
	case errors.Is(err, storage.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, err.Error(), "S3_NOT_CONFIGURED")
	case errors.Is(err, subtitle.ErrFontUnavailable):
		h.logger.Error("font resolution failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error(), "FONT_UNAVAILABLE")
	case errors.As(err, &compErr):
		h.logger.Error("composition failed",
			slog.String("stderr", compErr.Stderr),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "composition failed", "COMPOSITION_FAILED")
	default:
		h.logger.Error("composition request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
