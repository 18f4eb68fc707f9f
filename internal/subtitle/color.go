package subtitle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrColorFormat is returned when a color string is not in &HAABBGGRR form.
var ErrColorFormat = errors.New("invalid color format, expected &HAABBGGRR")

// Color is a packed AABBGGRR color as used by the styled track format.
type Color struct {
	A uint8
	B uint8
	G uint8
	R uint8
}

// ParseColor parses a &HAABBGGRR string (alpha, blue, green, red, each two
// hex digits). Any other shape fails with ErrColorFormat.
func ParseColor(s string) (Color, error) {
	if !strings.HasPrefix(s, "&H") && !strings.HasPrefix(s, "&h") {
		return Color{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
	}
	hexPart := s[2:]
	if len(hexPart) != 8 {
		return Color{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
	}
	v, err := strconv.ParseUint(hexPart, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrColorFormat, s)
	}
	return Color{
		A: uint8(v >> 24),
		B: uint8(v >> 16),
		G: uint8(v >> 8),
		R: uint8(v),
	}, nil
}

// String renders the color back into &HAABBGGRR form.
func (c Color) String() string {
	return fmt.Sprintf("&H%02X%02X%02X%02X", c.A, c.B, c.G, c.R)
}
