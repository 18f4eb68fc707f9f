package scenario

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		hasEffects  bool
		hasSubtitle bool
		want        Scenario
	}{
		{"no effects no subtitle", false, false, Baseline},
		{"subtitle only", false, true, SubtitlesOnly},
		{"effects only", true, false, EffectsOnly},
		{"effects and subtitle", true, true, FullFeatured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.hasEffects, tt.hasSubtitle)
			if got != tt.want {
				t.Errorf("Resolve(%v, %v) = %s, want %s", tt.hasEffects, tt.hasSubtitle, got, tt.want)
			}
			if !got.IsValid() {
				t.Errorf("Resolve produced invalid scenario %s", got)
			}
		})
	}
}

func TestStageSelection(t *testing.T) {
	if Baseline.UsesEffects() || Baseline.UsesSubtitles() {
		t.Error("baseline must bypass effect and subtitle stages")
	}
	if !SubtitlesOnly.UsesSubtitles() || SubtitlesOnly.UsesEffects() {
		t.Error("subtitles_only must run only the subtitle stage")
	}
	if !EffectsOnly.UsesEffects() || EffectsOnly.UsesSubtitles() {
		t.Error("effects_only must run only the effect stage")
	}
	if !FullFeatured.UsesEffects() || !FullFeatured.UsesSubtitles() {
		t.Error("full_featured must run both stages")
	}
}

func TestIsValid_RejectsUnknown(t *testing.T) {
	if Scenario("multi_scene").IsValid() {
		t.Error("unknown scenario reported valid")
	}
}
