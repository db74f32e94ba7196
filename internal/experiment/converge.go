package experiment

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fieldprop/internal/config"
	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
	"github.com/san-kum/fieldprop/internal/metrics"
)

// ErrNotUniform is returned for sweeps that need the exact helix as a
// reference.
var ErrNotUniform = errors.New("experiment: convergence needs a uniform field")

// roundoffFloor is the error below which a step is ignored for order
// estimates.
const roundoffFloor = 1e-11

// Series is the single-step position error of one stepper against the
// exact helix, for a sequence of step lengths.
type Series struct {
	Name   string
	Steps  []float64
	Errors []float64
}

// Order estimates the order of the stepper from the slope of log(error)
// over log(step), averaged over consecutive pairs above the roundoff floor.
// A local error of h^(p+1) gives p. It is NaN without usable pairs.
func (s Series) Order() float64 {
	var slopes []float64
	for i := 1; i < len(s.Steps); i++ {
		e0, e1 := s.Errors[i-1], s.Errors[i]
		if e0 < roundoffFloor || e1 < roundoffFloor {
			continue
		}
		slopes = append(slopes, math.Log(e0/e1)/math.Log(s.Steps[i-1]/s.Steps[i])-1)
	}
	if len(slopes) == 0 {
		return math.NaN()
	}
	return floats.Sum(slopes) / float64(len(slopes))
}

// Radius returns the radius of curvature of the configured particle in the
// configured uniform field.
func Radius(cfg *config.Config) float64 {
	track := cfg.Track()
	b := cfg.UniformB()
	bMag := math.Sqrt(b.X*b.X + b.Y*b.Y + b.Z*b.Z)
	k := math.Abs(equations.Eplus*track.Charge*equations.CLight) * bMag
	if k == 0 {
		return math.Inf(1)
	}
	return track.MomentumMag() / k
}

// HalvingSteps returns n step lengths starting at first, each half the
// previous.
func HalvingSteps(first float64, n int) []float64 {
	steps := make([]float64, n)
	for i := range steps {
		steps[i] = first / math.Pow(2, float64(i))
	}
	return steps
}

// Converge takes one step of each length in steps from the configured start
// state with every named stepper and measures the distance to the helix.
func Converge(cfg *config.Config, reg *Registry, names []string, steps []float64) ([]Series, error) {
	if cfg.Field.Kind != "uniform" {
		return nil, ErrNotUniform
	}

	start := cfg.Track()
	b := cfg.UniformB()
	out := make([]Series, 0, len(names))
	for _, name := range names {
		eq := equations.NewMagEquation(cfg.FieldModel())
		eq.SetChargeMomentumMass(start.Charge, start.MomentumMag(), start.RestMass)
		s, err := reg.Stepper(name, eq, dynamo.DefaultIntegrated)
		if err != nil {
			return nil, fmt.Errorf("converge: %w", err)
		}

		var y, dydx, yOut, yErr [dynamo.MaxStateVars]float64
		start.DumpToArray(y[:])
		eq.RightHandSide(y[:], dydx[:])

		series := Series{Name: name, Steps: steps, Errors: make([]float64, len(steps))}
		for i, h := range steps {
			s.Step(y[:], dydx[:], h, yOut[:], yErr[:])
			end := start.Clone()
			end.LoadFromArray(yOut[:], dynamo.DefaultIntegrated)
			end.CurveLength = start.CurveLength + h
			series.Errors[i] = metrics.HelixDeviation(start, end, b).Position
		}
		out = append(out, series)
	}
	return out, nil
}
