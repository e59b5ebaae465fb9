package detector

import "gocv.io/x/gocv"

// Detector finds body skeletons in video frames.
type Detector interface {
	// Detect returns the skeletons found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]Skeleton, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for skeleton detection.
type Config struct {
	// MaxBodies caps how many skeletons are returned per frame.
	MaxBodies int
	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64
	// MinTrackingConf is the per-joint confidence above which a joint counts
	// as tracked rather than inferred (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config for a single person in front of the sensor.
func DefaultConfig() Config {
	return Config{
		MaxBodies:       1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.6,
	}
}
