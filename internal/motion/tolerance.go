package motion

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTolerance is returned by Tolerance.Validate.
var ErrInvalidTolerance = errors.New("invalid tolerance")

// ReturnWindow is how close (meters) to the baseline a sample must be to
// count as back at the start position.
const ReturnWindow = 0.03

// Tolerance holds the acceptance bands for one exercise attempt.
type Tolerance struct {
	// TargetDistance is how far back the reference joint must travel, in meters.
	TargetDistance float64 `json:"target_distance"`
	// RelativeError is the fraction of a reference value accepted as error (0.05 = 5%).
	RelativeError float64 `json:"relative_error"`
	// LateralSlack is an absolute allowance in meters added to every band.
	LateralSlack float64 `json:"lateral_slack"`
}

// DefaultTolerance returns the 10 cm exercise with 5% error and 2 cm slack.
func DefaultTolerance() Tolerance {
	return Tolerance{
		TargetDistance: 0.10,
		RelativeError:  0.05,
		LateralSlack:   0.02,
	}
}

// Validate reports whether the tolerance can drive a session.
func (t Tolerance) Validate() error {
	for _, v := range []float64{t.TargetDistance, t.RelativeError, t.LateralSlack} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidTolerance)
		}
	}
	if t.TargetDistance <= 0 {
		return fmt.Errorf("%w: target distance must be positive, got %g", ErrInvalidTolerance, t.TargetDistance)
	}
	if t.RelativeError < 0 || t.RelativeError >= 1 {
		return fmt.Errorf("%w: relative error must be in [0, 1), got %g", ErrInvalidTolerance, t.RelativeError)
	}
	if t.LateralSlack < 0 {
		return fmt.Errorf("%w: lateral slack must not be negative, got %g", ErrInvalidTolerance, t.LateralSlack)
	}
	return nil
}

// halfWidth is the band half-width around reference value v.
func (t Tolerance) halfWidth(v float64) float64 {
	return math.Abs(v)*t.RelativeError + t.LateralSlack
}

// TargetBand returns the open interval (lo, hi) of distances accepted as
// having reached the target.
func (t Tolerance) TargetBand() (lo, hi float64) {
	w := t.halfWidth(t.TargetDistance)
	return t.TargetDistance - w, t.TargetDistance + w
}

// Baseline is the start position of an attempt and the lateral band derived
// from it.
type Baseline struct {
	Origin Point3  `json:"origin"`
	XMin   float64 `json:"x_min"`
	XMax   float64 `json:"x_max"`
}

func newBaseline(origin Point3, t Tolerance) Baseline {
	w := t.halfWidth(origin.X)
	return Baseline{
		Origin: origin,
		XMin:   origin.X - w,
		XMax:   origin.X + w,
	}
}

// insideLateral reports whether x lies strictly inside the lateral band.
func (b Baseline) insideLateral(x float64) bool {
	return x > b.XMin && x < b.XMax
}
