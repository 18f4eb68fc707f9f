package media

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillframe/stillframe-api/internal/effect"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed, skipping integration test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed, skipping integration test")
	}
}

// createTestAssets renders a tiny image and a short sine tone with ffmpeg
// itself so integration tests need no fixture files.
func createTestAssets(t *testing.T, dir string) (imagePath, audioPath string) {
	t.Helper()
	imagePath = filepath.Join(dir, "input.png")
	audioPath = filepath.Join(dir, "input.wav")

	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "color=c=blue:s=320x240:d=1",
		"-frames:v", "1", imagePath,
	)
	require.NoError(t, cmd.Run(), "generate test image")

	cmd = exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		audioPath,
	)
	require.NoError(t, cmd.Run(), "generate test audio")
	return imagePath, audioPath
}

func zoomInPlan() *effect.MotionPlan {
	return &effect.MotionPlan{
		Kind:     effect.KindZoomIn,
		ZoomFrom: effect.ZoomIdle,
		ZoomTo:   effect.ZoomPeak,
		FPS:      effect.DefaultFPS,
		Frames:   101,
		Duration: 101.0 / effect.DefaultFPS,
	}
}

func panLeftPlan() *effect.MotionPlan {
	return &effect.MotionPlan{
		Kind:     effect.KindPanLeft,
		PanFrom:  1.0,
		PanTo:    0.5,
		FPS:      effect.DefaultFPS,
		Frames:   101,
		Duration: 101.0 / effect.DefaultFPS,
	}
}

func TestCompose_ValidatesSpec(t *testing.T) {
	engine := NewEngine("", "")

	t.Run("zero width", func(t *testing.T) {
		_, err := engine.Compose(context.Background(), Spec{
			Width: 0, Height: 1080, Duration: 5,
		})
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})

	t.Run("negative height", func(t *testing.T) {
		_, err := engine.Compose(context.Background(), Spec{
			Width: 1920, Height: -1, Duration: 5,
		})
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	})

	t.Run("zero duration", func(t *testing.T) {
		_, err := engine.Compose(context.Background(), Spec{
			Width: 1920, Height: 1080, Duration: 0,
		})
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}

func TestBuildFilterChain_Baseline(t *testing.T) {
	chain := buildFilterChain(Spec{Width: 1920, Height: 1080, Duration: 5})

	assert.Equal(t,
		"scale=1920:1080:force_original_aspect_ratio=decrease,"+
			"pad=1920:1080:(ow-iw)/2:(oh-ih)/2,setsar=1",
		chain,
	)
}

func TestBuildFilterChain_Zoom(t *testing.T) {
	chain := buildFilterChain(Spec{
		Width: 1920, Height: 1080, Duration: 5, Motion: zoomInPlan(),
	})

	assert.Contains(t, chain, "zoompan=z='min(1.000+0.001000*on,1.100)'")
	assert.Contains(t, chain, "s=1920x1080:fps=30")
	// Zoom operates on the already-normalized frame.
	assert.Contains(t, chain, "force_original_aspect_ratio=decrease")
}

func TestBuildFilterChain_ZoomOutUsesMaxClamp(t *testing.T) {
	plan := zoomInPlan()
	plan.Kind = effect.KindZoomOut
	plan.ZoomFrom = effect.ZoomPeak
	plan.ZoomTo = effect.ZoomIdle

	chain := buildFilterChain(Spec{Width: 1280, Height: 720, Duration: 5, Motion: plan})
	assert.Contains(t, chain, "max(1.100-0.001000*on,1.000)")
}

func TestBuildFilterChain_Pan(t *testing.T) {
	chain := buildFilterChain(Spec{
		Width: 1920, Height: 1080, Duration: 5, Motion: panLeftPlan(),
	})

	// Oversized by the pan scale, then cropped back to the frame.
	assert.Contains(t, chain, "scale=2304:1296")
	assert.Contains(t, chain, "crop=1920:1080:x='(iw-ow)*(1.0000+-0.5000*min(n/100,1))':y='(ih-oh)/2'")
	assert.NotContains(t, chain, "zoompan")
}

func TestBuildFilterChain_SubtitleIsLast(t *testing.T) {
	chain := buildFilterChain(Spec{
		Width: 1920, Height: 1080, Duration: 5,
		Motion:       zoomInPlan(),
		SubtitlePath: "/tmp/track.ass",
		FontsDir:     "/usr/share/fonts",
	})

	assert.True(t, strings.HasSuffix(chain, "ass='/tmp/track.ass':fontsdir='/usr/share/fonts'"),
		"subtitles must be burned in after the motion transform, got %q", chain)
}

func TestBuildArgs_Baseline(t *testing.T) {
	args := buildArgs(Spec{
		ImagePath: "/in/img.png", AudioPath: "/in/audio.mp3",
		Width: 1920, Height: 1080, Duration: 5,
		OutputPath: "/out/final.mp4",
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-loop 1 -i /in/img.png -i /in/audio.mp3")
	assert.Contains(t, joined, "-vf ")
	assert.Contains(t, joined, "-c:v libx264 -preset medium -crf 23")
	assert.Contains(t, joined, "-c:a aac -ar 48000 -ac 2 -b:a 128k")
	assert.Contains(t, joined, "-pix_fmt yuv420p -r 30 -shortest -movflags +faststart")
	assert.Equal(t, "/out/final.mp4", args[len(args)-1])
}

func TestBuildArgs_WatermarkUsesFilterComplex(t *testing.T) {
	args := buildArgs(Spec{
		ImagePath: "/in/img.png", AudioPath: "/in/audio.mp3",
		Width: 1920, Height: 1080, Duration: 5,
		WatermarkPath: "/in/wm.png",
		OutputPath:    "/out/final.mp4",
	})

	joined := strings.Join(args, " ")
	assert.NotContains(t, joined, "-vf")
	assert.Contains(t, joined, "-filter_complex")
	// Watermark is an eighth of the frame width, pinned top-left.
	assert.Contains(t, joined, "movie='/in/wm.png',scale=240:-1[wm]")
	assert.Contains(t, joined, "[v][wm]overlay=10:10[out]")
	assert.Contains(t, joined, "-map [out] -map 1:a")
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, "'/tmp/plain.ass'", escapeFilterPath("/tmp/plain.ass"))
	assert.Equal(t, `'/tmp/o\'brien.ass'`, escapeFilterPath("/tmp/o'brien.ass"))
	assert.Equal(t, `'C:\\media\\track.ass'`, escapeFilterPath(`C:\media\track.ass`))
}

func TestCompositionError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &CompositionError{
		Args:   []string{"-y", "-i", "in.png"},
		Stderr: "Invalid data found when processing input",
		Err:    cause,
	}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Invalid data found when processing input")
	assert.Contains(t, err.Error(), "in.png")
}

func TestCompose_ProducesPlayableOutput(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	imagePath, audioPath := createTestAssets(t, dir)
	engine := NewEngine("", "")

	out, err := engine.Compose(context.Background(), Spec{
		ImagePath:  imagePath,
		AudioPath:  audioPath,
		Width:      320,
		Height:     240,
		Duration:   1,
		OutputPath: filepath.Join(dir, "out", "final.mp4"),
	})
	require.NoError(t, err)

	assert.FileExists(t, out.Path)
	assert.Greater(t, out.Size, int64(0))
	assert.InDelta(t, 1.0, out.Duration, 0.3)

	width, height, err := engine.ProbeDimensions(context.Background(), out.Path)
	require.NoError(t, err)
	assert.Equal(t, 320, width)
	assert.Equal(t, 240, height)
}

func TestCompose_BadInputCarriesEngineStderr(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	badImage := filepath.Join(dir, "not-an-image.png")
	require.NoError(t, os.WriteFile(badImage, []byte("garbage"), 0600))
	badAudio := filepath.Join(dir, "not-audio.mp3")
	require.NoError(t, os.WriteFile(badAudio, []byte("garbage"), 0600))

	engine := NewEngine("", "")
	_, err := engine.Compose(context.Background(), Spec{
		ImagePath:  badImage,
		AudioPath:  badAudio,
		Width:      320,
		Height:     240,
		Duration:   1,
		OutputPath: filepath.Join(dir, "final.mp4"),
	})
	require.Error(t, err)

	var compErr *CompositionError
	require.ErrorAs(t, err, &compErr)
	assert.NotEmpty(t, compErr.Stderr)
}

func TestProbeDuration_MissingFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	engine := NewEngine("", "")
	_, err := engine.ProbeDuration(context.Background(), "/nonexistent/file.mp4")
	assert.ErrorIs(t, err, ErrProbeExecution)
}

func TestVersion(t *testing.T) {
	skipIfNoFFmpeg(t)

	engine := NewEngine("", "")
	version, err := engine.Version(context.Background())
	require.NoError(t, err)
	assert.Contains(t, version, "ffmpeg version")
}
