package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/hipcheck/internal/motion"
)

// MockDetector is a Detector whose results are set by the caller.
type MockDetector struct {
	mu        sync.Mutex
	skeletons []Skeleton
	queue     [][]Skeleton
	err       error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSkeletons sets the skeletons returned by Detect once the queue is empty.
func (m *MockDetector) SetSkeletons(skeletons []Skeleton) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skeletons = skeletons
}

// Enqueue appends per-call results; each Detect consumes one entry.
func (m *MockDetector) Enqueue(frames ...[]Skeleton) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next queued result, the fixed skeletons, or the error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Skeleton, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.skeletons, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingSkeleton returns a fully tracked upright body whose hip centre is at
// hip. Other joints are placed at plausible offsets in meters.
func StandingSkeleton(hip motion.Point3) Skeleton {
	offsets := [NumJoints]motion.Point3{
		HipCenter:      {},
		Spine:          {Y: 0.08},
		ShoulderCenter: {Y: 0.45},
		Head:           {Y: 0.62},
		ShoulderLeft:   {X: -0.18, Y: 0.40},
		ElbowLeft:      {X: -0.24, Y: 0.15},
		WristLeft:      {X: -0.26, Y: -0.08},
		HandLeft:       {X: -0.27, Y: -0.15},
		ShoulderRight:  {X: 0.18, Y: 0.40},
		ElbowRight:     {X: 0.24, Y: 0.15},
		WristRight:     {X: 0.26, Y: -0.08},
		HandRight:      {X: 0.27, Y: -0.15},
		HipLeft:        {X: -0.08, Y: -0.05},
		KneeLeft:       {X: -0.09, Y: -0.48},
		AnkleLeft:      {X: -0.09, Y: -0.88},
		FootLeft:       {X: -0.09, Y: -0.93, Z: -0.08},
		HipRight:       {X: 0.08, Y: -0.05},
		KneeRight:      {X: 0.09, Y: -0.48},
		AnkleRight:     {X: 0.09, Y: -0.88},
		FootRight:      {X: 0.09, Y: -0.93, Z: -0.08},
	}

	sk := Skeleton{Position: hip, Tracking: SkeletonTracked}
	for i, off := range offsets {
		sk.Joints[i] = Joint{
			Position: motion.Point3{X: hip.X + off.X, Y: hip.Y + off.Y, Z: hip.Z + off.Z},
			State:    Tracked,
		}
	}
	return sk
}
