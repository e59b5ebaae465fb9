package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/capture"
	"github.com/ayusman/hipcheck/internal/detector"
	"github.com/ayusman/hipcheck/internal/motion"
	"github.com/ayusman/hipcheck/internal/server"
	"github.com/ayusman/hipcheck/internal/store"
)

type message struct {
	AttemptID string `json:"attempt_id"`
	State     string `json:"state"`
	Status    struct {
		Kind   string `json:"kind"`
		Reason string `json:"reason"`
	} `json:"status"`
	Colour string `json:"colour"`
}

// hip returns one tracked body with the hip centre at (x, 1, z).
func hip(x, z float64) []detector.Skeleton {
	return []detector.Skeleton{detector.StandingSkeleton(motion.Point3{X: x, Y: 1, Z: z})}
}

type harness struct {
	store    *store.Store
	app      *app.App
	detector *detector.MockDetector
	server   *httptest.Server
	conn     *websocket.Conn
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ex, err := s.Exercises().SeedDefault(motion.DefaultTolerance())
	if err != nil {
		t.Fatalf("SeedDefault() error = %v", err)
	}

	a, err := app.New(app.Config{
		Camera:         capture.Config{FPS: 60},
		ReferenceJoint: detector.HipCenter,
		Tolerance:      ex.Tolerance(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	det := detector.NewMockDetector()
	a.SetCamera(capture.NewMockCamera(nil, true))
	a.SetDetector(det)

	ts := httptest.NewServer(server.New(server.Config{Store: s, Monitor: a}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/session/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for a.Hub().Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(a.Stop)

	return &harness{store: s, app: a, detector: det, server: ts, conn: conn}
}

// waitFor reads stream messages until one reports state, failing on timeout.
func (h *harness) waitFor(t *testing.T, state string) message {
	t.Helper()

	h.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m message
		if err := h.conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", state, err)
		}
		if m.State == state {
			return m
		}
	}
}

func TestE2E_CompleteAttempt(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)

	// Frames without a body are skipped; the first tracked frame arms the
	// baseline.
	h.detector.Enqueue(nil, nil, hip(0, 2.0), hip(0, 1.95), hip(0, 1.9))
	h.detector.SetSkeletons(hip(0, 1.9))
	start := h.waitFor(t, "going_back")
	target := h.waitFor(t, "at_target")
	if target.Colour != "yellow" {
		t.Errorf("at_target colour = %s, want yellow", target.Colour)
	}

	h.detector.Enqueue(hip(0, 1.96))
	h.detector.SetSkeletons(hip(0, 2.0))
	h.waitFor(t, "returning_forward")
	done := h.waitFor(t, "completed")

	if done.Status.Kind != "completed" || done.Colour != "blue" {
		t.Errorf("completion = %+v", done)
	}
	if done.AttemptID != start.AttemptID {
		t.Error("attempt id changed within one attempt")
	}
}

func TestE2E_DeviationAndRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)

	h.detector.Enqueue(hip(0, 2.0))
	h.detector.SetSkeletons(hip(0.1, 2.0))
	first := h.waitFor(t, "going_back")

	// The first errored message carries the reason; later ones only the state.
	failed := h.waitFor(t, "errored")
	if failed.Status.Kind != "error" || failed.Status.Reason != motion.ReasonForwardOrSideways {
		t.Errorf("deviation = %+v", failed.Status)
	}

	resp, err := h.server.Client().Post(h.server.URL+"/api/session/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("POST reset error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("reset status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	restarted := h.waitFor(t, "going_back")
	if restarted.AttemptID == first.AttemptID {
		t.Error("expected a new attempt after reset")
	}

	resp, err = h.server.Client().Get(h.server.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET session error = %v", err)
	}
	defer resp.Body.Close()
	var latest message
	json.NewDecoder(resp.Body).Decode(&latest)
	if latest.AttemptID != restarted.AttemptID {
		t.Errorf("session attempt = %s, want %s", latest.AttemptID, restarted.AttemptID)
	}
}

func TestE2E_ActivateExercise(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t)
	client := h.server.Client()

	resp, err := client.Post(h.server.URL+"/api/exercises", "application/json",
		strings.NewReader(`{"name":"deep","target_distance":0.2}`))
	if err != nil {
		t.Fatalf("create exercise error = %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	resp, err = client.Post(h.server.URL+"/api/exercises/"+created.ID+"/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("activate error = %v", err)
	}
	resp.Body.Close()

	// 10 cm no longer reaches the target; 20 cm does.
	h.detector.Enqueue(hip(0, 2.0), hip(0, 1.9), hip(0, 1.9))
	h.detector.SetSkeletons(hip(0, 1.8))
	h.waitFor(t, "going_back")
	h.waitFor(t, "at_target")

	active, err := h.store.ActiveExercise()
	if err != nil {
		t.Fatalf("ActiveExercise() error = %v", err)
	}
	if active.ID != created.ID {
		t.Errorf("active exercise = %s, want %s", active.ID, created.ID)
	}
}
