package subtitle

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrFontUnavailable is returned when no registered face matches the
// requested language and weight. Failing loudly here replaces the silent
// fallback a font-matching subsystem would otherwise apply when the
// deployment has an unexpected set of faces installed.
var ErrFontUnavailable = errors.New("no font face registered for language and weight")

// Weight is a requested font weight.
type Weight string

const (
	WeightRegular Weight = "regular"
	WeightBold    Weight = "bold"
)

// Font is a resolved font face.
type Font struct {
	// Family is the family name as known to the renderer.
	Family string
	// Weight is the face weight.
	Weight Weight
}

// FontResolver resolves a (language, weight) pair to an installed face.
// Implementations must fail with ErrFontUnavailable rather than substitute
// a different weight.
type FontResolver interface {
	Resolve(language string, weight Weight) (Font, error)
}

// StaticFontResolver is a FontResolver backed by an explicit registration
// table, mirroring the deployment invariant that exactly the declared
// faces are installed.
type StaticFontResolver struct {
	mu    sync.RWMutex
	faces map[string][]Font
}

// NewStaticFontResolver creates an empty resolver.
func NewStaticFontResolver() *StaticFontResolver {
	return &StaticFontResolver{faces: make(map[string][]Font)}
}

// Register declares an installed face for a language.
func (r *StaticFontResolver) Register(language string, f Font) {
	lang := strings.ToLower(language)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faces[lang] = append(r.faces[lang], f)
}

// Resolve returns the registered face matching language and weight.
func (r *StaticFontResolver) Resolve(language string, weight Weight) (Font, error) {
	lang := strings.ToLower(language)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.faces[lang] {
		if f.Weight == weight {
			return f, nil
		}
	}
	return Font{}, fmt.Errorf("%w: language=%s weight=%s", ErrFontUnavailable, lang, weight)
}
