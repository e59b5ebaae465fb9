// Package motion classifies a single hip-movement exercise from a stream of
// reference-joint positions.
package motion

import "gonum.org/v1/gonum/spatial/r3"

// Point3 is a sensor-relative position in meters.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3) vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// SignedDistance returns the Euclidean distance between baseline and current,
// negated when current.Z < baseline.Z.
func SignedDistance(baseline, current Point3) float64 {
	d := r3.Norm(r3.Sub(current.vec(), baseline.vec()))
	if current.Z < baseline.Z {
		return -d
	}
	return d
}
