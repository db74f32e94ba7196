package integrators

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// StepDoubling turns a FixedStepper into a Stepper by comparing one full
// step with two half steps. The two-half-step result is returned and the
// difference is the error estimate.
type StepDoubling struct {
	fixed               dynamo.FixedStepper
	extrapolate         bool
	yMid, dydxMid, yOne vec
	yIn, yOut           vec
}

func NewStepDoubling(fixed dynamo.FixedStepper) *StepDoubling {
	return &StepDoubling{fixed: fixed}
}

// NewExtrapolatedDoubling is NewStepDoubling with the result Richardson
// extrapolated from the full and two half steps, which gains one order.
// The error estimate is still the raw difference.
func NewExtrapolatedDoubling(fixed dynamo.FixedStepper) *StepDoubling {
	return &StepDoubling{fixed: fixed, extrapolate: true}
}

func (s *StepDoubling) Order() int {
	if s.extrapolate {
		return s.fixed.Order() + 1
	}
	return s.fixed.Order()
}

func (s *StepDoubling) NumIntegrated() int { return s.fixed.NumIntegrated() }

func (s *StepDoubling) NumState() int { return s.fixed.NumState() }

func (s *StepDoubling) Equation() dynamo.Equation { return s.fixed.Equation() }

func (s *StepDoubling) Step(y, dydx []float64, h float64, yOut, yErr []float64) {
	hh := 0.5 * h

	s.fixed.DumbStep(y, dydx, hh, s.yMid[:])
	s.fixed.Equation().RightHandSide(s.yMid[:], s.dydxMid[:])
	s.fixed.DumbStep(s.yMid[:], s.dydxMid[:], hh, yOut)

	s.fixed.DumbStep(y, dydx, h, s.yOne[:])

	n := s.fixed.NumIntegrated()
	for i := 0; i < n; i++ {
		yErr[i] = yOut[i] - s.yOne[i]
	}
	if s.extrapolate {
		f := 1 / (math.Pow(2, float64(s.fixed.Order())) - 1)
		for i := 0; i < n; i++ {
			yOut[i] += yErr[i] * f
		}
	}

	copy(s.yIn[:], y)
	copy(s.yOut[:], yOut)
}

func (s *StepDoubling) DistChord() float64 {
	return chord(s.yIn[:], s.yMid[:], s.yOut[:])
}
