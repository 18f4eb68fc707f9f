package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testResolver registers the faces the deployment environment provides:
// exactly one CJK face (bold) and one Latin face (regular).
func testResolver() *StaticFontResolver {
	r := NewStaticFontResolver()
	r.Register("chinese", Font{Family: "LXGW WenKai", Weight: WeightBold})
	r.Register("english", Font{Family: "Ubuntu", Weight: WeightRegular})
	return r
}

func TestStyle_ChineseResolvesBoldCJKFace(t *testing.T) {
	s := NewStylist(testResolver())

	style, err := s.Style(Params{
		Language:          "chinese",
		FrameWidth:        1920,
		FrameHeight:       1080,
		OutlineColor:      "&H00000000",
		BackgroundBox:     true,
		BackgroundOpacity: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "LXGW WenKai", style.Font.Family)
	assert.Equal(t, WeightBold, style.Font.Weight)
	assert.Equal(t, 45, style.FontSize)
}

func TestStyle_MissingWeightFailsLoudly(t *testing.T) {
	r := NewStaticFontResolver()
	// Deployment broke the invariant: only a regular CJK face installed.
	r.Register("chinese", Font{Family: "LXGW WenKai", Weight: WeightRegular})
	s := NewStylist(r)

	_, err := s.Style(Params{
		Language:     "chinese",
		FrameWidth:   1920,
		FrameHeight:  1080,
		OutlineColor: "&H00000000",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFontUnavailable)
}

func TestStyle_ExplicitFontSizeWins(t *testing.T) {
	s := NewStylist(testResolver())

	style, err := s.Style(Params{
		Language:     "english",
		FrameWidth:   1920,
		FrameHeight:  1080,
		FontSize:     72,
		OutlineColor: "&H00000000",
	})
	require.NoError(t, err)
	assert.Equal(t, 72, style.FontSize)
}

func TestStyle_BadColorRejected(t *testing.T) {
	s := NewStylist(testResolver())

	_, err := s.Style(Params{
		Language:     "english",
		FrameWidth:   1920,
		FrameHeight:  1080,
		OutlineColor: "#FF0000",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrColorFormat)
}

func TestStyle_PortraitPlacement(t *testing.T) {
	s := NewStylist(testResolver())

	style, err := s.Style(Params{
		Language:     "english",
		Portrait:     true,
		FrameWidth:   1080,
		FrameHeight:  1920,
		OutlineColor: "&H00000000",
	})
	require.NoError(t, err)

	// Bottom-quarter band, clamped to [100, 350].
	assert.Equal(t, 350, style.MarginV)
	assert.InDelta(t, 3.0, style.OutlineWidth, 1e-9)
}

func TestDefaultFontSize_Table(t *testing.T) {
	tests := []struct {
		language string
		portrait bool
		height   int
		want     int
	}{
		{"chinese", false, 1080, 45},
		{"english", false, 1080, 60},
		{"chinese", true, 1080, 21},
		{"english", true, 1080, 30},
		// Linear scaling by frame height.
		{"english", false, 540, 30},
		{"chinese", false, 2160, 90},
	}

	for _, tt := range tests {
		got := DefaultFontSize(tt.language, tt.portrait, tt.height)
		if got != tt.want {
			t.Errorf("DefaultFontSize(%s, portrait=%v, h=%d) = %d, want %d",
				tt.language, tt.portrait, tt.height, got, tt.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := ParseColor("&H80FF0022")
		require.NoError(t, err)
		assert.Equal(t, uint8(0x80), c.A)
		assert.Equal(t, uint8(0xFF), c.B)
		assert.Equal(t, uint8(0x00), c.G)
		assert.Equal(t, uint8(0x22), c.R)
		assert.Equal(t, "&H80FF0022", c.String())
	})

	t.Run("rejects other shapes", func(t *testing.T) {
		for _, in := range []string{"", "&H123", "&H123456789", "00000000", "&HGGGGGGGG"} {
			_, err := ParseColor(in)
			assert.ErrorIs(t, err, ErrColorFormat, "input %q", in)
		}
	})
}
