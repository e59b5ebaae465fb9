package motion

import "math"

// Session classifies one exercise attempt. It is not safe for concurrent
// use; a single sampling loop owns it and hands Results to other goroutines
// by value.
type Session struct {
	tolerance Tolerance
	lo, hi    float64
	state     State
	baseline  *Baseline
}

// NewSession returns a session in the Quiet state.
func NewSession(t Tolerance) *Session {
	lo, hi := t.TargetBand()
	return &Session{
		tolerance: t,
		lo:        lo,
		hi:        hi,
		state:     Quiet,
	}
}

// Tolerance returns the bands the session was created with.
func (s *Session) Tolerance() Tolerance {
	return s.tolerance
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Baseline returns the captured start position, if any.
func (s *Session) Baseline() (Baseline, bool) {
	if s.baseline == nil {
		return Baseline{}, false
	}
	return *s.baseline, true
}

// Reset returns the session to Quiet and discards the baseline.
func (s *Session) Reset() {
	s.state = Quiet
	s.baseline = nil
}

// Update advances the state machine with one sample.
//
// The target band is compared against backward travel, the negated signed
// distance, so only movement toward -Z can reach the target. Forward
// deviation is measured along +Z from the baseline.
func (s *Session) Update(sample Point3) Result {
	if s.state == Quiet {
		b := newBaseline(sample, s.tolerance)
		s.baseline = &b
		s.state = GoingBack
		return Result{State: s.state}
	}

	b := *s.baseline
	d := SignedDistance(b.Origin, sample)
	back := -d

	switch s.state {
	case GoingBack:
		if s.movedForward(b, sample) || !b.insideLateral(sample.X) {
			return s.fail(d, ReasonForwardOrSideways)
		}
		if s.lo < back && back < s.hi {
			s.state = AtTarget
		}

	case AtTarget:
		if back > s.hi {
			return s.fail(d, ReasonTooFarBack)
		}
		if back < s.lo {
			s.state = ReturningForward
		}

	case ReturningForward:
		if !b.insideLateral(sample.X) {
			return s.fail(d, ReasonLateralDrift)
		}
		if atStart(d) {
			s.state = Completed
			return Result{State: Completed, SignedDistance: d, Status: Status{Kind: Done}}
		}

	case Errored:
		if atStart(d) && b.insideLateral(sample.X) {
			s.state = GoingBack
		}
	}

	return Result{State: s.state, SignedDistance: d}
}

func (s *Session) fail(d float64, reason string) Result {
	s.state = Errored
	return Result{
		State:          Errored,
		SignedDistance: d,
		Status:         Status{Kind: Error, Reason: reason},
	}
}

// movedForward reports whether the sample advanced toward +Z by at least the
// relative error of the baseline depth. A sample at the baseline depth never
// counts as forward.
func (s *Session) movedForward(b Baseline, sample Point3) bool {
	advance := sample.Z - b.Origin.Z
	return advance > 0 && advance >= math.Abs(b.Origin.Z)*s.tolerance.RelativeError
}

func atStart(d float64) bool {
	return d >= -ReturnWindow && d <= ReturnWindow
}
