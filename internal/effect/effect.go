// Package effect resolves requested effect tokens into a single concrete
// motion plan applied to the static image track. Exactly one motion is
// applied per video; "random" and multi-token requests are resolved by
// uniform selection at plan time.
package effect

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Token is an effect identifier as it appears in a composition request.
type Token string

const (
	// TokenZoomIn requests a slow push-in on the image.
	TokenZoomIn Token = "zoom_in"
	// TokenZoomOut requests a slow pull-out from the image.
	TokenZoomOut Token = "zoom_out"
	// TokenPanLeft requests a horizontal pan from the right edge to center.
	TokenPanLeft Token = "pan_left"
	// TokenPanRight requests a horizontal pan from the left edge to center.
	TokenPanRight Token = "pan_right"
	// TokenRandom requests a uniform random choice among the four motions.
	TokenRandom Token = "random"
)

// ErrUnknownEffect is returned when a token outside the declared set is requested.
var ErrUnknownEffect = errors.New("unknown effect token")

// Kind is a resolved motion kind. Unlike Token it never contains "random".
type Kind string

const (
	KindZoomIn   Kind = "zoom_in"
	KindZoomOut  Kind = "zoom_out"
	KindPanLeft  Kind = "pan_left"
	KindPanRight Kind = "pan_right"
)

// allKinds is the full candidate set used when "random" is the sole entry.
var allKinds = []Kind{KindZoomIn, KindZoomOut, KindPanLeft, KindPanRight}

// Motion constants. Zoom travels from 1.0x to 1.1x (or back); pans slide a
// crop window over a frame scaled up by PanScale, from the edge to center.
const (
	ZoomIdle   = 1.0
	ZoomPeak   = 1.1
	PanScale   = 1.2
	DefaultFPS = 30
)

// MotionPlan is the fully resolved motion transform for one composition.
// Keyframe timing is bound to the audio duration so the motion completes
// exactly at the last frame. A MotionPlan is immutable once created.
type MotionPlan struct {
	// Kind is the resolved motion.
	Kind Kind
	// ZoomFrom and ZoomTo are the zoom factors at the first and last frame.
	// They are both 1.0 for pan kinds.
	ZoomFrom float64
	ZoomTo   float64
	// PanFrom and PanTo are positions of the crop window expressed as a
	// fraction of the horizontal slack (scaled width minus frame width).
	// 0 aligns the window with the left edge, 1 with the right edge.
	PanFrom float64
	PanTo   float64
	// FPS is the output frame rate the keyframes are computed against.
	FPS int
	// Frames is the total number of output frames.
	Frames int
	// Duration is the audio duration in seconds the plan is synced to.
	Duration float64
}

// IsPan reports whether the plan moves a crop window instead of zooming.
func (p *MotionPlan) IsPan() bool {
	return p.Kind == KindPanLeft || p.Kind == KindPanRight
}

// ZoomStep returns the per-frame zoom increment.
func (p *MotionPlan) ZoomStep() float64 {
	if p.Frames <= 1 {
		return 0
	}
	return (p.ZoomTo - p.ZoomFrom) / float64(p.Frames-1)
}

// Planner resolves token lists into motion plans. The random source is
// injectable so callers can seed it for deterministic tests.
type Planner struct {
	rng *rand.Rand
}

// NewPlanner creates a Planner. If rng is nil a time-seeded source is used.
func NewPlanner(rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{rng: rng}
}

// Plan resolves the requested tokens into one MotionPlan synced to the
// given audio duration. An empty token list yields a nil plan; the caller
// is expected to be in a no-effect scenario. Returns ErrUnknownEffect for
// any token outside the declared set.
func (p *Planner) Plan(tokens []Token, duration float64) (*MotionPlan, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if duration <= 0 {
		return nil, fmt.Errorf("plan effects: invalid duration %.2f", duration)
	}

	candidates := make([]Kind, 0, len(tokens))
	seen := make(map[Kind]bool)
	hasRandom := false
	for _, tok := range tokens {
		switch tok {
		case TokenRandom:
			hasRandom = true
		case TokenZoomIn, TokenZoomOut, TokenPanLeft, TokenPanRight:
			k := Kind(tok)
			if !seen[k] {
				seen[k] = true
				candidates = append(candidates, k)
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, tok)
		}
	}

	// "random" alone draws from the full set.
	if len(candidates) == 0 {
		if !hasRandom {
			return nil, nil
		}
		candidates = allKinds
	}

	var kind Kind
	if len(candidates) == 1 && !hasRandom {
		kind = candidates[0]
	} else {
		kind = candidates[p.rng.Intn(len(candidates))]
	}

	return newPlan(kind, duration), nil
}

// newPlan binds the fixed motion constants to the audio duration.
func newPlan(kind Kind, duration float64) *MotionPlan {
	frames := int(math.Ceil(duration * DefaultFPS))
	if frames < 2 {
		frames = 2
	}
	plan := &MotionPlan{
		Kind:     kind,
		ZoomFrom: ZoomIdle,
		ZoomTo:   ZoomIdle,
		FPS:      DefaultFPS,
		Frames:   frames,
		Duration: duration,
	}
	switch kind {
	case KindZoomIn:
		plan.ZoomFrom, plan.ZoomTo = ZoomIdle, ZoomPeak
	case KindZoomOut:
		plan.ZoomFrom, plan.ZoomTo = ZoomPeak, ZoomIdle
	case KindPanLeft:
		// Start with the window's right edge on the frame edge, end centered.
		plan.PanFrom, plan.PanTo = 1.0, 0.5
	case KindPanRight:
		plan.PanFrom, plan.PanTo = 0.0, 0.5
	}
	return plan
}
