package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// RenderTrack renders cues and a resolved style into an ASS document ready
// for burn-in. The single Default style carries the font, box and margin
// attributes; cues become Dialogue events aligned bottom-center.
func RenderTrack(cues []Cue, style *Style) string {
	var b strings.Builder

	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 2\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", style.PlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", style.PlayResY)
	b.WriteString("ScaledBorderAndShadow: yes\n\n")

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, " +
		"OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, " +
		"Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	b.WriteString(styleLine(style))
	b.WriteString("\n\n")

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			assTimestamp(cue.Start),
			assTimestamp(cue.End),
			strings.Join(cue.Lines, `\N`),
		)
	}

	return b.String()
}

// styleLine builds the Default style row. With a background box enabled the
// outline is dropped and BorderStyle 4 draws an opaque rectangle whose
// alpha channel carries the box opacity; otherwise BorderStyle 1 draws a
// plain outline.
func styleLine(style *Style) string {
	borderStyle := 1
	outlineWidth := style.OutlineWidth
	shadowWidth := 0
	backColour := "&H80000000"
	if style.BackgroundBox {
		borderStyle = 4
		outlineWidth = 0
		alpha := int(style.BackgroundOpacity * 255)
		backColour = fmt.Sprintf("&H%02X000000", alpha)
	}

	bold := 0
	if style.Font.Weight == WeightBold {
		bold = 1
	}

	return fmt.Sprintf(
		"Style: Default,%s,%d,&H00FFFFFF,&H00000000,%s,%s,%d,0,0,0,100,100,0,0,%d,%g,%d,2,10,10,%d",
		style.Font.Family,
		style.FontSize,
		style.OutlineColor,
		backColour,
		bold,
		borderStyle,
		outlineWidth,
		shadowWidth,
		style.MarginV,
	)
}

// assTimestamp formats a duration as an ASS timestamp (h:mm:ss.cs).
func assTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	cs := int(d/(10*time.Millisecond)) % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}
