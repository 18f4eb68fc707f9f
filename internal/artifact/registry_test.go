package artifact

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillframe/stillframe-api/internal/scenario"
)

// fakeClock is a settable time source shared with the registry under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(t *testing.T) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	r, err := NewRegistry(t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)
	return r, clock
}

func writeOutput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "output.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video-bytes"), 0600))
	return path
}

func TestRegister_MovesFileAndIssuesID(t *testing.T) {
	r, _ := newTestRegistry(t)
	src := writeOutput(t, t.TempDir())

	art, err := r.Register(src, "final.mp4", scenario.Baseline)
	require.NoError(t, err)

	assert.NotEmpty(t, art.ID)
	assert.Equal(t, "final.mp4", art.Filename)
	assert.Equal(t, int64(11), art.Size)
	assert.Equal(t, scenario.Baseline, art.Scenario)
	assert.Equal(t, art.CreatedAt.Add(TTL), art.ExpiresAt)

	// Source is gone, destination lives under the registry dir.
	assert.NoFileExists(t, src)
	assert.FileExists(t, art.Path)
	assert.Equal(t, r.Dir(), filepath.Dir(art.Path))
}

func TestResolve_BeforeAndAfterExpiry(t *testing.T) {
	r, clock := newTestRegistry(t)
	src := writeOutput(t, t.TempDir())
	art, err := r.Register(src, "out.mp4", scenario.EffectsOnly)
	require.NoError(t, err)

	// Resolvable right up to the boundary.
	clock.Advance(TTL - time.Second)
	got, err := r.Resolve(art.ID)
	require.NoError(t, err)
	assert.Equal(t, art.ID, got.ID)

	// At the boundary the artifact is gone even though no sweep ran.
	clock.Advance(time.Second)
	_, err = r.Resolve(art.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoFileExists(t, art.Path)
}

func TestResolve_UnknownID(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Resolve("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	r, clock := newTestRegistry(t)

	old, err := r.Register(writeOutput(t, t.TempDir()), "old.mp4", scenario.Baseline)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	fresh, err := r.Register(writeOutput(t, t.TempDir()), "fresh.mp4", scenario.Baseline)
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	removed := r.Sweep()
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old.Path)
	assert.FileExists(t, fresh.Path)
	assert.Equal(t, 1, r.Len())

	// Idempotent.
	assert.Equal(t, 0, r.Sweep())
}

func TestSweep_ResolveRaceIsDeterministic(t *testing.T) {
	r, clock := newTestRegistry(t)
	art, err := r.Register(writeOutput(t, t.TempDir()), "out.mp4", scenario.Baseline)
	require.NoError(t, err)

	clock.Advance(TTL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Sweep()
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Either the sweep got there first or resolve expires it
			// itself; in both cases the id must report not-found.
			_, err := r.Resolve(art.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		}()
	}
	wg.Wait()
}

func TestRegistry_ConcurrentRegisterAndSweep(t *testing.T) {
	r, _ := newTestRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := writeOutput(t, t.TempDir())
			_, err := r.Register(src, "out.mp4", scenario.Baseline)
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Sweep()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, r.Len())
}
