package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioTolerance is the 10 cm exercise used throughout these tests.
var scenarioTolerance = Tolerance{TargetDistance: 0.10, RelativeError: 0.05, LateralSlack: 0.02}

// sessionIn drives a fresh session from baseline (0,0,0) into the wanted state.
func sessionIn(t *testing.T, want State) *Session {
	t.Helper()

	s := NewSession(scenarioTolerance)
	steps := map[State][]Point3{
		Quiet:            nil,
		GoingBack:        {{}},
		AtTarget:         {{}, {Z: -0.1}},
		ReturningForward: {{}, {Z: -0.1}, {Z: -0.04}},
		Completed:        {{}, {Z: -0.1}, {Z: -0.04}, {}},
		Errored:          {{}, {X: 0.05}},
	}
	for _, p := range steps[want] {
		s.Update(p)
	}
	require.Equal(t, want, s.State())
	return s
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	s := NewSession(scenarioTolerance)
	assert.Equal(t, Quiet, s.State())
	assert.Equal(t, scenarioTolerance, s.Tolerance())

	_, ok := s.Baseline()
	assert.False(t, ok)
}

func TestSession_QuietCapturesBaseline(t *testing.T) {
	t.Parallel()

	s := NewSession(scenarioTolerance)
	sample := Point3{X: 0.4, Y: 0.1, Z: 2.0}

	res := s.Update(sample)
	assert.Equal(t, Result{State: GoingBack}, res)

	b, ok := s.Baseline()
	require.True(t, ok)
	assert.Equal(t, sample, b.Origin)
	// 0.4*0.05 + 0.02
	assert.InDelta(t, 0.36, b.XMin, 1e-9)
	assert.InDelta(t, 0.44, b.XMax, 1e-9)
}

func TestSession_CompleteAttempt(t *testing.T) {
	t.Parallel()

	s := NewSession(scenarioTolerance)

	steps := []struct {
		sample Point3
		state  State
		status StatusKind
		dist   float64
	}{
		{Point3{}, GoingBack, InProgress, 0},
		{Point3{Z: -0.05}, GoingBack, InProgress, -0.05},
		{Point3{Z: -0.105}, AtTarget, InProgress, -0.105},
		{Point3{Z: -0.1}, AtTarget, InProgress, -0.1},
		{Point3{Z: -0.04}, ReturningForward, InProgress, -0.04},
		{Point3{}, Completed, Done, 0},
	}

	for i, step := range steps {
		res := s.Update(step.sample)
		assert.Equal(t, step.state, res.State, "step %d state", i)
		assert.Equal(t, step.status, res.Status.Kind, "step %d status", i)
		assert.Empty(t, res.Status.Reason, "step %d reason", i)
		assert.InDelta(t, step.dist, res.SignedDistance, 1e-9, "step %d distance", i)
	}
}

func TestSession_CompletedIsSticky(t *testing.T) {
	t.Parallel()

	s := sessionIn(t, Completed)

	for _, p := range []Point3{{}, {Z: -0.5}, {X: 3}, {Z: 4}} {
		res := s.Update(p)
		assert.Equal(t, Completed, res.State)
		assert.Equal(t, InProgress, res.Status.Kind)
	}
}

func TestSession_GoingBackDeviations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		baseline Point3
		sample   Point3
	}{
		{"right of band", Point3{}, Point3{X: 0.05}},
		{"left of band", Point3{}, Point3{X: -0.05}},
		{"exactly on right bound", Point3{}, Point3{X: 0.02}},
		{"forward past relative error", Point3{Z: 2.0}, Point3{Z: 2.1}},
		{"forward well past relative error", Point3{Z: 2.0}, Point3{Z: 2.3}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSession(scenarioTolerance)
			s.Update(tt.baseline)

			res := s.Update(tt.sample)
			assert.Equal(t, Errored, res.State)
			assert.Equal(t, Error, res.Status.Kind)
			assert.Equal(t, ReasonForwardOrSideways, res.Status.Reason)
			assert.Contains(t, res.Status.Reason, "too far forward, right, or left")
		})
	}
}

func TestSession_GoingBackStaysBelowTarget(t *testing.T) {
	t.Parallel()

	s := NewSession(scenarioTolerance)
	s.Update(Point3{Z: 2.0})

	for _, p := range []Point3{
		{Z: 2.0},
		{Z: 2.05},
		{Z: 1.95},
		{X: 0.01, Z: 1.96},
	} {
		res := s.Update(p)
		assert.Equal(t, GoingBack, res.State, "sample %+v", p)
	}
}

func TestSession_DirectionMatters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []Point3
		want    State
	}{
		{
			name:    "forward within relative error never reaches target",
			samples: []Point3{{Z: 2.0}, {Z: 2.095}},
			want:    GoingBack,
		},
		{
			name:    "forward and back again is not a completion",
			samples: []Point3{{Z: 2.0}, {Z: 2.095}, {Z: 2.04}, {Z: 2.0}},
			want:    GoingBack,
		},
		{
			name:    "same distance backward reaches target",
			samples: []Point3{{Z: 2.0}, {Z: 1.905}},
			want:    AtTarget,
		},
		{
			name:    "forward jump from target is a return, not too far back",
			samples: []Point3{{}, {Z: -0.1}, {Z: 0.2}},
			want:    ReturningForward,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSession(scenarioTolerance)
			var res Result
			for _, p := range tt.samples {
				res = s.Update(p)
				assert.NotEqual(t, ReasonTooFarBack, res.Status.Reason, "sample %+v", p)
			}
			assert.Equal(t, tt.want, res.State)
		})
	}
}

func TestSession_TargetBandIsOpen(t *testing.T) {
	t.Parallel()

	lo, hi := scenarioTolerance.TargetBand()

	for _, travel := range []float64{lo, hi} {
		s := NewSession(scenarioTolerance)
		s.Update(Point3{})
		res := s.Update(Point3{Z: -travel})
		assert.Equal(t, GoingBack, res.State, "travel %g on the bound stays", travel)
	}
}

func TestSession_AtTarget(t *testing.T) {
	t.Parallel()

	_, hi := scenarioTolerance.TargetBand()

	t.Run("too far back", func(t *testing.T) {
		t.Parallel()
		s := sessionIn(t, AtTarget)

		res := s.Update(Point3{Z: -(hi + 0.01)})
		assert.Equal(t, Errored, res.State)
		assert.Equal(t, Error, res.Status.Kind)
		assert.Equal(t, ReasonTooFarBack, res.Status.Reason)
		assert.Equal(t, Errored, s.State())
	})

	t.Run("holding inside band", func(t *testing.T) {
		t.Parallel()
		s := sessionIn(t, AtTarget)

		for _, z := range []float64{-0.09, -0.11, -0.1} {
			res := s.Update(Point3{Z: z})
			assert.Equal(t, AtTarget, res.State)
			assert.Equal(t, InProgress, res.Status.Kind)
		}
	})

	t.Run("exactly at hi stays", func(t *testing.T) {
		t.Parallel()
		s := sessionIn(t, AtTarget)

		res := s.Update(Point3{Z: -hi})
		assert.Equal(t, AtTarget, res.State)
	})
}

func TestSession_ReturningForward(t *testing.T) {
	t.Parallel()

	t.Run("lateral drift", func(t *testing.T) {
		t.Parallel()
		s := sessionIn(t, ReturningForward)

		res := s.Update(Point3{X: -0.021, Z: -0.02})
		assert.Equal(t, Errored, res.State)
		assert.Equal(t, ReasonLateralDrift, res.Status.Reason)
	})

	t.Run("not yet back", func(t *testing.T) {
		t.Parallel()
		s := sessionIn(t, ReturningForward)

		res := s.Update(Point3{Z: -0.031})
		assert.Equal(t, ReturningForward, res.State)
	})

	t.Run("return window is closed", func(t *testing.T) {
		t.Parallel()
		s := sessionIn(t, ReturningForward)

		res := s.Update(Point3{Z: -ReturnWindow})
		assert.Equal(t, Completed, res.State)
		assert.Equal(t, Done, res.Status.Kind)
	})
}

func TestSession_ErrorRecovery(t *testing.T) {
	t.Parallel()

	s := NewSession(scenarioTolerance)
	s.Update(Point3{})

	res := s.Update(Point3{X: 0.05})
	require.Equal(t, Errored, res.State)
	require.Equal(t, Error, res.Status.Kind)

	// reason is reported once
	res = s.Update(Point3{X: 0.05})
	assert.Equal(t, Errored, res.State)
	assert.Equal(t, InProgress, res.Status.Kind)
	assert.Empty(t, res.Status.Reason)

	// close enough in depth but still off to the side
	res = s.Update(Point3{X: 0.021})
	assert.Equal(t, Errored, res.State)

	res = s.Update(Point3{})
	assert.Equal(t, GoingBack, res.State)
	assert.Equal(t, InProgress, res.Status.Kind)

	b, ok := s.Baseline()
	require.True(t, ok)
	assert.Equal(t, Point3{}, b.Origin, "recovery keeps the baseline")
}

func TestSession_Reset(t *testing.T) {
	t.Parallel()

	for _, st := range []State{Quiet, GoingBack, AtTarget, ReturningForward, Completed, Errored} {
		st := st
		t.Run(st.String(), func(t *testing.T) {
			t.Parallel()

			s := sessionIn(t, st)
			s.Reset()
			assert.Equal(t, Quiet, s.State())
			_, ok := s.Baseline()
			assert.False(t, ok)

			s.Reset()
			assert.Equal(t, Quiet, s.State())

			res := s.Update(Point3{X: 1, Y: 2, Z: 3})
			assert.Equal(t, GoingBack, res.State)
			b, ok := s.Baseline()
			require.True(t, ok)
			assert.Equal(t, Point3{X: 1, Y: 2, Z: 3}, b.Origin)
		})
	}
}

func TestTolerance_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultTolerance().Validate())
	assert.NoError(t, Tolerance{TargetDistance: 0.2}.Validate())

	bad := []Tolerance{
		{},
		{TargetDistance: -0.1},
		{TargetDistance: 0.1, RelativeError: 1},
		{TargetDistance: 0.1, RelativeError: -0.01},
		{TargetDistance: 0.1, LateralSlack: -0.01},
	}
	for _, tol := range bad {
		assert.ErrorIs(t, tol.Validate(), ErrInvalidTolerance, "%+v", tol)
	}
}

func TestState_Text(t *testing.T) {
	t.Parallel()

	for _, st := range []State{Quiet, GoingBack, AtTarget, ReturningForward, Completed, Errored} {
		st := st
		text, err := st.MarshalText()
		require.NoError(t, err)

		var got State
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, st, got)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("sideways")))
	assert.Equal(t, "state(42)", State(42).String())
}
