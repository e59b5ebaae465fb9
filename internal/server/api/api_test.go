package api

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/motion"
	"github.com/ayusman/hipcheck/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// fakeSession records control calls made by the handlers.
type fakeSession struct {
	mu       sync.Mutex
	latest   *app.Observation
	resets   int
	selected []motion.Tolerance
}

func (f *fakeSession) Latest() (app.Observation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return app.Observation{}, false
	}
	return *f.latest, true
}

func (f *fakeSession) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeSession) SelectTolerance(t motion.Tolerance) error {
	if err := t.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, t)
	return nil
}
