// Package server provides the HTTP surface of the composition service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ComposeRequest is the HTTP request body for a composition job.
type ComposeRequest struct {
	// InputImage is the base64-encoded still image (JPEG or PNG).
	InputImage string `json:"input_image" validate:"required"`
	// InputAudio is the base64-encoded audio track (MP3 or WAV).
	InputAudio string `json:"input_audio" validate:"required"`

	// Subtitle is an inline base64-encoded SRT track. SubtitlePath points
	// at a server-local SRT file instead; Subtitle wins when both are set.
	Subtitle     string `json:"subtitle,omitempty"`
	SubtitlePath string `json:"subtitle_path,omitempty"`

	// Effects lists motion effect tokens, e.g. "zoom_in" or "random".
	Effects []string `json:"effects,omitempty"`

	// Language selects the subtitle font face. Defaults to "chinese".
	Language string `json:"language,omitempty" validate:"omitempty,oneof=chinese english"`
	// FontSize overrides the computed subtitle size in pixels.
	FontSize int `json:"font_size,omitempty" validate:"omitempty,gt=0"`
	// OutlineColor is a packed &HAABBGGRR color. Defaults to opaque black.
	OutlineColor string `json:"outline_color,omitempty"`
	// BackgroundBox draws a box behind cue text. Defaults to true.
	BackgroundBox *bool `json:"background_box,omitempty"`
	// BackgroundOpacity is the box opacity in [0,1]. Defaults to 0.7.
	BackgroundOpacity *float64 `json:"background_opacity,omitempty" validate:"omitempty,gte=0,lte=1"`

	// IsPortrait overrides orientation detection when present.
	IsPortrait *bool `json:"is_portrait,omitempty"`

	// Watermark is an optional base64-encoded overlay image.
	Watermark string `json:"watermark,omitempty"`
	// OutputFilename is the download name for the finished video.
	OutputFilename string `json:"output_filename,omitempty"`
	// PushToS3 uploads the finished video to remote storage.
	PushToS3 bool `json:"push_to_s3,omitempty"`
}

// ComposeResponse is the HTTP response for a finished composition.
type ComposeResponse struct {
	Success bool `json:"success"`
	// FileID retrieves the video via GET /download/{id} until it expires.
	FileID      string `json:"file_id"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	// Size is the output file size in bytes.
	Size int64 `json:"size"`
	// Scenario is the composition mode that ran.
	Scenario string `json:"scenario"`
	// Duration is the output duration in seconds.
	Duration float64 `json:"duration"`
	// VideoURL is the remote URL when push_to_s3 was requested.
	VideoURL string `json:"video_url,omitempty"`
}

// CleanupResponse reports the result of an explicit expiry sweep.
type CleanupResponse struct {
	Removed int `json:"removed"`
	Active  int `json:"active"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// FFmpeg is the media engine version line, when available.
	FFmpeg string `json:"ffmpeg,omitempty"`
}
