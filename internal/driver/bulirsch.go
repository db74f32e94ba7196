package driver

import (
	"log/slog"
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/extrapolation"
	"github.com/san-kum/fieldprop/internal/geom"
)

// midpointOrder is the order of the modified midpoint method used for
// single unchecked steps.
const midpointOrder = 2

// BulirschStoerDriver advances tracks with the adaptive-order
// extrapolation engine. The engine picks the step size and extrapolation
// depth; the driver retries rejected steps a bounded number of times.
type BulirschStoerDriver struct {
	base
	params stepParams
	engine *extrapolation.Engine
	mm     *extrapolation.ModifiedMidpoint
	eps    float64

	yTry, yFull, yMid, dydxMid [dynamo.MaxStateVars]float64
}

var _ Driver = (*BulirschStoerDriver)(nil)

func NewBulirschStoerDriver(eq dynamo.Equation, nvar int, cfg Config) *BulirschStoerDriver {
	d := &BulirschStoerDriver{
		base:   newBase(eq, nvar, cfg),
		params: newStepParams(cfg.Safety, midpointOrder),
		mm:     extrapolation.NewModifiedMidpoint(eq, nvar),
	}
	d.engine = extrapolation.NewEngine(eq, nvar, d.engineError)
	return d
}

func (d *BulirschStoerDriver) WithLogger(l *slog.Logger) *BulirschStoerDriver {
	d.logger = l
	return d
}

func (d *BulirschStoerDriver) Engine() *extrapolation.Engine { return d.engine }

func (d *BulirschStoerDriver) AccurateAdvance(track *dynamo.FieldTrack, hstep, eps, hinitial float64) (bool, error) {
	return d.advanceTrack(d, track, hstep, eps, hinitial)
}

func (d *BulirschStoerDriver) QuickAdvance(track *dynamo.FieldTrack, dydx []float64, hstep float64) (float64, float64, bool) {
	return d.quickTrack(d, track, dydx, hstep)
}

func (d *BulirschStoerDriver) ComputeNewStepSize(errMaxNorm, hstepCurrent float64) float64 {
	return d.params.newStepSize(errMaxNorm, hstepCurrent)
}

func (d *BulirschStoerDriver) ComputeNewStepSizeWithinLimits(errMaxNorm, hstepCurrent float64) float64 {
	return d.params.newStepSizeWithinLimits(errMaxNorm, hstepCurrent)
}

func (d *BulirschStoerDriver) engineError(y, _, yErr []float64, h float64) float64 {
	e := relativeError(y, yErr, h, d.cfg.MinimumStep, d.eps, d.nvar)
	return math.Sqrt(e.max2())
}

func (d *BulirschStoerDriver) oneGoodStep(y, dydx []float64, x *float64, htry, eps float64) (float64, float64) {
	d.eps = eps
	h := htry
	retries := max(1, d.cfg.MaxRetries)

	var hnext float64
	accepted := false
	for try := 1; ; try++ {
		ok, hn := d.engine.TryStep(y, dydx, h, d.yTry[:])
		hnext = hn
		if ok {
			accepted = true
			break
		}
		if try >= retries {
			break
		}
		if *x+hn == *x {
			d.warn("step size underflow", "s", *x, "h", hn)
			break
		}
		h = hn
	}

	if !accepted {
		// the last attempt is the best we have
		d.stats.NonConverged++
		d.logger.Debug("extrapolation did not converge",
			"s", *x, "h", h, "retries", retries, "order", d.engine.CurrentOrder())
	}

	*x += h
	copy(y[:d.nvar], d.yTry[:d.nvar])
	return h, hnext
}

// quickAdvance compares one midpoint step over h with two over h/2.
func (d *BulirschStoerDriver) quickAdvance(y, dydx []float64, h float64, yOut []float64) (float64, float64) {
	const substeps = 2
	d.mm.Step(y, dydx, h, substeps, d.yFull[:], nil)

	hh := 0.5 * h
	d.mm.Step(y, dydx, hh, substeps, d.yMid[:], nil)
	d.eq.RightHandSide(d.yMid[:], d.dydxMid[:])
	d.mm.Step(d.yMid[:], d.dydxMid[:], hh, substeps, yOut, nil)

	missDist := geom.DistLine(
		dynamo.MakeVector(d.yMid[:], dynamo.Position),
		dynamo.MakeVector(y, dynamo.Position),
		dynamo.MakeVector(yOut, dynamo.Position),
	)
	return missDist, extrapolation.CombinedError(yOut, d.yFull[:], h)
}
