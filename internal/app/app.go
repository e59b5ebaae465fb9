// Package app wires frame capture, skeleton detection and the motion session
// into a running exercise monitor.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/hipcheck/internal/capture"
	"github.com/ayusman/hipcheck/internal/detector"
	"github.com/ayusman/hipcheck/internal/motion"
)

// ErrRunning is returned when reconfiguring a pipeline that has started.
var ErrRunning = errors.New("pipeline is running")

// Config holds configuration options for the application.
type Config struct {
	Camera         capture.Config
	ReferenceJoint detector.JointType
	Tolerance      motion.Tolerance
}

// Observation is one classified sample as seen by display sinks.
type Observation struct {
	AttemptID string           `json:"attempt_id"`
	Sample    motion.Point3    `json:"sample"`
	Result    motion.Result    `json:"result"`
	Tolerance motion.Tolerance `json:"tolerance"`
	// Remaining is how much further back the joint must travel to reach
	// the target; negative once past it, above the target when forward.
	Remaining float64   `json:"remaining"`
	At        time.Time `json:"at"`
}

// App runs the sampling loop. The motion session is owned by whichever
// goroutine calls Process (the pipeline once started); Reset and
// SelectTolerance only post requests that Process applies before its next
// update.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	hub      *Hub

	session   *motion.Session
	attemptID string

	mu               sync.Mutex
	pendingReset     bool
	pendingTolerance *motion.Tolerance
	stopCh           chan struct{}
	doneCh           chan struct{}
}

// New creates an App using a device camera and, when the pose service is
// installed, the pose detector; otherwise it falls back to a mock detector
// that never reports a skeleton.
func New(config Config) (*App, error) {
	if err := config.Tolerance.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:    config,
		camera:    capture.NewCamera(config.Camera),
		hub:       NewHub(),
		session:   motion.NewSession(config.Tolerance),
		attemptID: uuid.NewString(),
	}

	if pd, err := detector.NewPoseDetector(detector.DefaultConfig()); err == nil {
		a.detector = pd
		log.Println("using pose service for skeleton detection")
	} else {
		log.Printf("pose service not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetCamera replaces the frame source. It fails once the pipeline is running.
func (a *App) SetCamera(c capture.Camera) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return ErrRunning
	}
	a.camera = c
	return nil
}

// SetDetector replaces the skeleton detector. It fails once the pipeline is
// running.
func (a *App) SetDetector(d detector.Detector) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopCh != nil {
		return ErrRunning
	}
	a.detector = d
	return nil
}

// Reset asks for the current attempt to be abandoned. The session returns to
// Quiet before the next sample and a new attempt ID is issued.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingReset = true
}

// SelectTolerance starts a new attempt with different bands before the next
// sample. The running attempt keeps its bands until then.
func (a *App) SelectTolerance(t motion.Tolerance) error {
	if err := t.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingTolerance = &t
	return nil
}

// Hub returns the observation fan-out.
func (a *App) Hub() *Hub {
	return a.hub
}

// Latest returns the most recent observation.
func (a *App) Latest() (Observation, bool) {
	return a.hub.Latest()
}

// Subscribe registers an observation subscriber; see Hub.Subscribe.
func (a *App) Subscribe(buffer int) (<-chan Observation, func()) {
	return a.hub.Subscribe(buffer)
}

// Process classifies one detection result. Frames without a tracked
// reference joint are skipped and report false. Process must not be called
// concurrently, and not at all while the pipeline is running.
func (a *App) Process(skeletons []detector.Skeleton, at time.Time) (Observation, bool) {
	a.applyPending()

	sample, ok := detector.FirstReference(skeletons, a.config.ReferenceJoint)
	if !ok {
		return Observation{}, false
	}

	prev := a.session.State()
	res := a.session.Update(sample)
	if res.State != prev {
		log.Printf("attempt %s: %s -> %s (d=%.3f)", a.attemptID, prev, res.State, res.SignedDistance)
	}
	if res.Status.Kind == motion.Error {
		log.Printf("attempt %s: %s", a.attemptID, res.Status.Reason)
	}

	tol := a.session.Tolerance()
	obs := Observation{
		AttemptID: a.attemptID,
		Sample:    sample,
		Result:    res,
		Tolerance: tol,
		Remaining: tol.TargetDistance + res.SignedDistance,
		At:        at,
	}
	a.hub.Publish(obs)
	return obs, true
}

func (a *App) applyPending() {
	a.mu.Lock()
	reset := a.pendingReset
	tol := a.pendingTolerance
	a.pendingReset = false
	a.pendingTolerance = nil
	a.mu.Unlock()

	switch {
	case tol != nil:
		a.session = motion.NewSession(*tol)
	case reset:
		a.session.Reset()
	default:
		return
	}
	a.attemptID = uuid.NewString()
	log.Printf("attempt %s started (target %.3f m)", a.attemptID, a.session.Tolerance().TargetDistance)
}

// Start opens the camera and begins sampling at the configured frame rate.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	if a.config.Camera.FPS > 0 {
		a.camera.SetFPS(a.config.Camera.FPS)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.camera, a.detector, a.stopCh, a.doneCh)

	log.Println("detection pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("error closing camera: %v", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("error closing detector: %v", err)
		}
	}

	log.Println("detection pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// runPipeline reads a frame per tick, detects skeletons and feeds the
// reference joint to the session.
func (a *App) runPipeline(cam capture.Camera, det detector.Detector, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	fps := cam.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var lastErr string
	logOnce := func(format string, err error) {
		if msg := err.Error(); msg != lastErr {
			lastErr = msg
			log.Printf(format, err)
		}
	}

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			frame, err := cam.ReadFrame()
			if err != nil {
				logOnce("error reading frame: %v", err)
				continue
			}

			skeletons, err := det.Detect(frame)
			frame.Close()
			if err != nil {
				logOnce("error detecting skeletons: %v", err)
				continue
			}
			lastErr = ""

			a.Process(skeletons, now)
		}
	}
}
