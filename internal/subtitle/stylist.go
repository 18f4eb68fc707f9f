// Package subtitle converts an input SRT track into a styled, renderer
// consumable track. Burn-in needs per-cue positioning and font, box and
// color attributes the plain SRT format cannot carry, so the stylist emits
// an ASS document built from a resolved Style.
package subtitle

import (
	"fmt"
	"math"
	"strings"
)

// referenceFrameHeight is the height the default font size table is
// calibrated against. Other frame heights scale linearly.
const referenceFrameHeight = 1080

// Default font sizes in pixels at 1080p frame height.
const (
	sizeLandscapeChinese = 45
	sizeLandscapeEnglish = 60
	sizePortraitChinese  = 21
	sizePortraitEnglish  = 30
)

// Style is the resolved rendering specification for burned-in captions.
// It is immutable once computed.
type Style struct {
	// Font is the resolved face.
	Font Font
	// FontSize is the size in pixels.
	FontSize int
	// OutlineColor is the cue text outline color.
	OutlineColor Color
	// BackgroundBox enables an opaque rectangle behind cue text.
	BackgroundBox bool
	// BackgroundOpacity applies only to the box, not to text or outline.
	BackgroundOpacity float64
	// MarginV is the vertical margin from the frame bottom in pixels.
	MarginV int
	// OutlineWidth is the outline stroke width when no box is drawn.
	OutlineWidth float64
	// PlayResX and PlayResY define the coordinate space of the track so
	// line wrapping happens before text reaches the frame edge.
	PlayResX int
	PlayResY int
}

// Params are the inputs to style resolution.
type Params struct {
	// Language selects the font face: "chinese" or "english".
	Language string
	// Portrait selects the narrower bottom-center band placement and the
	// portrait font size row.
	Portrait bool
	// FrameWidth and FrameHeight are the output video dimensions.
	FrameWidth  int
	FrameHeight int
	// FontSize overrides the computed default when positive.
	FontSize int
	// OutlineColor is a packed &HAABBGGRR string.
	OutlineColor string
	// BackgroundBox and BackgroundOpacity configure the box overlay.
	BackgroundBox     bool
	BackgroundOpacity float64
}

// Stylist resolves styling parameters into a Style.
type Stylist struct {
	fonts FontResolver
}

// NewStylist creates a Stylist using the given font resolver.
func NewStylist(fonts FontResolver) *Stylist {
	return &Stylist{fonts: fonts}
}

// Style resolves the styling parameters. The CJK face is requested in bold;
// resolution fails rather than falling back to another weight.
func (s *Stylist) Style(p Params) (*Style, error) {
	lang := strings.ToLower(p.Language)
	weight := WeightRegular
	if lang == "chinese" {
		weight = WeightBold
	}
	font, err := s.fonts.Resolve(lang, weight)
	if err != nil {
		return nil, fmt.Errorf("resolve font: %w", err)
	}

	outline, err := ParseColor(p.OutlineColor)
	if err != nil {
		return nil, err
	}

	size := p.FontSize
	if size <= 0 {
		size = DefaultFontSize(lang, p.Portrait, p.FrameHeight)
	}

	marginV := 30
	outlineWidth := 2.0
	if p.Portrait {
		// Portrait cues sit in a band at the bottom quarter of the frame.
		marginV = clamp(p.FrameHeight/4, 100, 350)
		outlineWidth = 3.0
	}

	playResX := p.FrameWidth * 9 / 10
	if playResX <= 0 {
		playResX = p.FrameWidth
	}

	return &Style{
		Font:              font,
		FontSize:          size,
		OutlineColor:      outline,
		BackgroundBox:     p.BackgroundBox,
		BackgroundOpacity: p.BackgroundOpacity,
		MarginV:           marginV,
		OutlineWidth:      outlineWidth,
		PlayResX:          playResX,
		PlayResY:          p.FrameHeight,
	}, nil
}

// DefaultFontSize returns the default size in pixels for the language and
// orientation, scaled linearly from the 1080p table by frameHeight/1080.
func DefaultFontSize(language string, portrait bool, frameHeight int) int {
	var base int
	chinese := strings.ToLower(language) == "chinese"
	switch {
	case portrait && chinese:
		base = sizePortraitChinese
	case portrait:
		base = sizePortraitEnglish
	case chinese:
		base = sizeLandscapeChinese
	default:
		base = sizeLandscapeEnglish
	}
	if frameHeight <= 0 {
		return base
	}
	scaled := float64(base) * float64(frameHeight) / referenceFrameHeight
	size := int(math.Round(scaled))
	if size < 1 {
		size = 1
	}
	return size
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
