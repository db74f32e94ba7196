package driver

import (
	"log/slog"
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// MagIntDriver controls the step size from the error estimate of any
// dynamo.Stepper. A rejected trial step is retried with a smaller step
// until the relative error is below eps.
type MagIntDriver struct {
	base
	params  stepParams
	stepper dynamo.Stepper

	yTemp, yErr [dynamo.MaxStateVars]float64
}

var _ Driver = (*MagIntDriver)(nil)

func NewMagIntDriver(s dynamo.Stepper, cfg Config) *MagIntDriver {
	d := &MagIntDriver{
		base:    newBase(s.Equation(), s.NumIntegrated(), cfg),
		stepper: s,
	}
	d.ReSetParameters(cfg.Safety)
	return d
}

func (d *MagIntDriver) WithLogger(l *slog.Logger) *MagIntDriver {
	d.logger = l
	return d
}

func (d *MagIntDriver) Stepper() dynamo.Stepper { return d.stepper }

func (d *MagIntDriver) AccurateAdvance(track *dynamo.FieldTrack, hstep, eps, hinitial float64) (bool, error) {
	return d.advanceTrack(d, track, hstep, eps, hinitial)
}

func (d *MagIntDriver) QuickAdvance(track *dynamo.FieldTrack, dydx []float64, hstep float64) (float64, float64, bool) {
	return d.quickTrack(d, track, dydx, hstep)
}

// ComputeNewStepSize proposes the next step from an error norm without
// limiting the change.
func (d *MagIntDriver) ComputeNewStepSize(errMaxNorm, hstepCurrent float64) float64 {
	return d.params.newStepSize(errMaxNorm, hstepCurrent)
}

// ComputeNewStepSizeWithinLimits is ComputeNewStepSize with the shrink
// limited to a factor 10 and the growth to a factor 5.
func (d *MagIntDriver) ComputeNewStepSizeWithinLimits(errMaxNorm, hstepCurrent float64) float64 {
	return d.params.newStepSizeWithinLimits(errMaxNorm, hstepCurrent)
}

func (d *MagIntDriver) Safety() float64 { return d.params.safety }

func (d *MagIntDriver) Pshrnk() float64 { return d.params.pshrnk }

func (d *MagIntDriver) Pgrow() float64 { return d.params.pgrow }

func (d *MagIntDriver) Errcon() float64 { return d.params.errcon }

func (d *MagIntDriver) SetSafety(v float64) { d.params.safety = v }

func (d *MagIntDriver) SetPshrnk(v float64) { d.params.pshrnk = v }

func (d *MagIntDriver) SetPgrow(v float64) { d.params.pgrow = v }

func (d *MagIntDriver) SetErrcon(v float64) { d.params.errcon = v }

// ComputeAndSetErrcon derives errcon from the current safety and pgrow.
func (d *MagIntDriver) ComputeAndSetErrcon() float64 {
	d.params.computeErrcon()
	return d.params.errcon
}

// ReSetParameters sets safety and derives the exponents from the stepper
// order.
func (d *MagIntDriver) ReSetParameters(safety float64) {
	d.params = newStepParams(safety, d.stepper.Order())
}

// RenewStepperAndAdjust swaps the stepper and re-derives the parameters
// for its order.
func (d *MagIntDriver) RenewStepperAndAdjust(s dynamo.Stepper) {
	d.stepper = s
	d.eq = s.Equation()
	d.nvar = s.NumIntegrated()
	d.ReSetParameters(d.params.safety)
}

func (d *MagIntDriver) oneGoodStep(y, dydx []float64, x *float64, htry, eps float64) (float64, float64) {
	h := htry
	var e errNorm
	var errmax2 float64

	for iter := 0; iter < maxTrials; iter++ {
		d.stepper.Step(y, dydx, h, d.yTemp[:], d.yErr[:])
		e = relativeError(y, d.yErr[:], h, d.cfg.MinimumStep, eps, d.nvar)
		errmax2 = e.max2()
		if errmax2 <= 1 {
			break
		}

		// shrink by at most a factor 10
		htemp := max(d.params.safety*h*math.Pow(errmax2, 0.5*d.params.pshrnk), 0.1*h)
		if *x+htemp == *x {
			// yTemp holds the result for h, so h is the step taken
			d.warn("step size underflow", "s", *x, "h", htemp)
			break
		}
		h = htemp
	}

	var hnext float64
	if errmax2 > d.params.errcon*d.params.errcon {
		hnext = d.params.safety * h * math.Pow(errmax2, 0.5*d.params.pgrow)
	} else {
		hnext = maxSteppingIncrease * h
	}

	d.stats.DyerrPosLarge += e.pos2
	d.stats.DyerrVelLarge += e.vel2 * h * h

	*x += h
	copy(y[:d.nvar], d.yTemp[:d.nvar])
	return h, hnext
}

// lastDerivative fills dydx with the derivative at the end of the last
// step when the stepper keeps it.
func (d *MagIntDriver) lastDerivative(dydx []float64) bool {
	f, ok := d.stepper.(dynamo.FSALStepper)
	if !ok {
		return false
	}
	f.LastDerivative(dydx)
	return true
}

func (d *MagIntDriver) quickAdvance(y, dydx []float64, h float64, yOut []float64) (float64, float64) {
	d.stepper.Step(y, dydx, h, yOut, d.yErr[:])
	dchord := d.stepper.DistChord()

	pos2 := dynamo.Magnitude2(d.yErr[:], dynamo.Position)
	mom2 := dynamo.Magnitude2(d.yErr[:], dynamo.Momentum)
	if p2 := dynamo.Magnitude2(yOut, dynamo.Momentum); p2 > 0 {
		mom2 /= p2
	}

	if pos2 > mom2*h*h {
		return dchord, math.Sqrt(pos2)
	}
	return dchord, math.Sqrt(mom2) * h
}
