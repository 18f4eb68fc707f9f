// Package scenario classifies a composition request into one of four
// mutually exclusive composition modes based purely on the presence of
// effects and subtitles. The scenario determines which pipeline stages run.
package scenario

// Scenario is one of the four fixed composition modes.
type Scenario string

const (
	// Baseline is a static image plus audio with no filters. It bypasses
	// the effect and subtitle stages entirely and is the performance floor.
	Baseline Scenario = "baseline"
	// SubtitlesOnly burns subtitles into a static image video.
	SubtitlesOnly Scenario = "subtitles_only"
	// EffectsOnly applies a motion transform with no subtitles.
	EffectsOnly Scenario = "effects_only"
	// FullFeatured applies the motion transform and burns subtitles in a
	// single pass, with subtitles overlaid after the motion so they stay
	// screen-stable.
	FullFeatured Scenario = "full_featured"
)

// Resolve maps the presence of effects and a subtitle track onto a
// Scenario. The four combinations partition the input space, so Resolve
// is total and never fails.
func Resolve(hasEffects, hasSubtitle bool) Scenario {
	switch {
	case hasEffects && hasSubtitle:
		return FullFeatured
	case hasEffects:
		return EffectsOnly
	case hasSubtitle:
		return SubtitlesOnly
	default:
		return Baseline
	}
}

// UsesEffects reports whether the effect planning stage runs.
func (s Scenario) UsesEffects() bool {
	return s == EffectsOnly || s == FullFeatured
}

// UsesSubtitles reports whether the subtitle styling stage runs.
func (s Scenario) UsesSubtitles() bool {
	return s == SubtitlesOnly || s == FullFeatured
}

// IsValid returns true if the scenario is one of the four declared modes.
func (s Scenario) IsValid() bool {
	switch s {
	case Baseline, SubtitlesOnly, EffectsOnly, FullFeatured:
		return true
	}
	return false
}
