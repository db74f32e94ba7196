// Package driver advances a particle track by a requested arc length to a
// requested accuracy, choosing the step sizes and retrying rejected steps.
//
// MagIntDriver works with any dynamo.Stepper and controls the step size
// from the stepper's error estimate. BulirschStoerDriver hands step
// control to the adaptive-order extrapolation engine.
package driver

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// Driver is the interface shared by the adaptive drivers.
type Driver interface {
	// AccurateAdvance advances track by hstep with relative accuracy eps.
	// hinitial is an optional first trial step. It reports whether the full
	// length was integrated; the track then holds the end state. On failure
	// the track holds the state reached so far. A precondition error leaves
	// the track untouched.
	AccurateAdvance(track *dynamo.FieldTrack, hstep, eps, hinitial float64) (bool, error)

	// QuickAdvance takes one unchecked step of hstep and reports the
	// distance between chord and path and the error estimate.
	QuickAdvance(track *dynamo.FieldTrack, dydx []float64, hstep float64) (missDist, dyerr float64, ok bool)

	GetDerivatives(track *dynamo.FieldTrack, dydx []float64)
	ComputeNewStepSize(errMaxNorm, hstepCurrent float64) float64
	Stats() Stats
	ResetStats()
}

// stepControl is the part of a driver that differs between step control
// schemes.
type stepControl interface {
	oneGoodStep(y, dydx []float64, x *float64, htry, eps float64) (hdid, hnext float64)
	quickAdvance(y, dydx []float64, h float64, yOut []float64) (dchord, dyerr float64)
	ComputeNewStepSize(errMaxNorm, hstepCurrent float64) float64
}

// derivativeCache is implemented by step control that can hand back the
// derivative at the state its last step ended on.
type derivativeCache interface {
	lastDerivative(dydx []float64) bool
}

// stepParams are the step-size control constants.
type stepParams struct {
	safety float64
	pshrnk float64
	pgrow  float64
	errcon float64
}

func newStepParams(safety float64, order int) stepParams {
	p := stepParams{
		safety: safety,
		pshrnk: -1 / float64(order),
		pgrow:  -1 / float64(order+1),
	}
	p.computeErrcon()
	return p
}

func (p *stepParams) computeErrcon() {
	p.errcon = math.Pow(maxSteppingIncrease/p.safety, 1/p.pgrow)
}

// newStepSize is the unlimited step proposal for an error norm.
func (p *stepParams) newStepSize(errMaxNorm, h float64) float64 {
	switch {
	case errMaxNorm > 1:
		return p.safety * h * math.Pow(errMaxNorm, p.pshrnk)
	case errMaxNorm > 0:
		return p.safety * h * math.Pow(errMaxNorm, p.pgrow)
	default:
		return maxSteppingIncrease * h
	}
}

// newStepSizeWithinLimits shrinks by at most maxSteppingDecrease and grows
// by at most maxSteppingIncrease.
func (p *stepParams) newStepSizeWithinLimits(errMaxNorm, h float64) float64 {
	if errMaxNorm > 1 {
		return max(p.safety*h*math.Pow(errMaxNorm, p.pshrnk), maxSteppingDecrease*h)
	}
	if errMaxNorm > p.errcon {
		return p.safety * h * math.Pow(errMaxNorm, p.pgrow)
	}
	return maxSteppingIncrease * h
}

// base carries what both drivers share: the advance loop, the track
// bookkeeping and the statistics.
type base struct {
	cfg    Config
	eq     dynamo.Equation
	nvar   int
	logger *slog.Logger
	stats  Stats

	y, dydx, yOut [dynamo.MaxStateVars]float64
}

func newBase(eq dynamo.Equation, nvar int, cfg Config) base {
	return base{cfg: cfg, eq: eq, nvar: nvar, logger: slog.Default()}
}

func (b *base) Stats() Stats { return b.stats }

func (b *base) ResetStats() { b.stats = Stats{} }

func (b *base) Hmin() float64 { return b.cfg.MinimumStep }

func (b *base) SetHmin(h float64) { b.cfg.MinimumStep = h }

func (b *base) MaxNoSteps() int { return b.cfg.MaxSteps }

func (b *base) SetMaxNoSteps(n int) { b.cfg.MaxSteps = n }

func (b *base) VerboseLevel() int { return b.cfg.Verbose }

func (b *base) SetVerboseLevel(v int) { b.cfg.Verbose = v }

func (b *base) SmallestFraction() float64 { return b.cfg.SmallestFraction }

// SetSmallestFraction accepts values in [1e-16, 1e-8) and ignores others.
func (b *base) SetSmallestFraction(f float64) {
	if f >= minSmallestFraction && f < maxSmallestFraction {
		b.cfg.SmallestFraction = f
		return
	}
	b.warn("smallest fraction out of range, keeping previous value",
		"requested", f, "current", b.cfg.SmallestFraction,
		"min", minSmallestFraction, "max", maxSmallestFraction)
}

func (b *base) GetDerivatives(track *dynamo.FieldTrack, dydx []float64) {
	var y [dynamo.MaxStateVars]float64
	track.DumpToArray(y[:])
	b.eq.SetChargeMomentumMass(track.Charge, track.MomentumMag(), track.RestMass)
	b.eq.RightHandSide(y[:], dydx)
}

func (b *base) warn(msg string, args ...any) {
	b.stats.Warnings++
	b.logger.Warn(msg, args...)
}

// validate checks the track before any work is done. It also passes the
// particle constants to the equation.
func (b *base) validate(track *dynamo.FieldTrack, hstep float64) error {
	var err error
	switch {
	case hstep < 0:
		err = dynamo.ErrNegativeStep
	case !track.State.IsValid():
		err = dynamo.ErrInvalidState
	case track.MomentumMag() == 0:
		err = dynamo.ErrZeroMomentum
	}
	if err != nil {
		return &dynamo.AdvanceError{
			Step:        b.stats.Calls,
			CurveLength: track.CurveLength,
			Requested:   hstep,
			Wrapped:     err,
		}
	}
	b.eq.SetChargeMomentumMass(track.Charge, track.MomentumMag(), track.RestMass)
	return nil
}

func (b *base) advanceTrack(s stepControl, track *dynamo.FieldTrack, hstep, eps, hinitial float64) (bool, error) {
	b.stats.Calls++

	if hstep == 0 {
		b.warn("proposed step is zero; track unchanged", "curve_length", track.CurveLength)
		return true, nil
	}
	if err := b.validate(track, hstep); err != nil {
		return false, err
	}

	y, dydx := b.y[:], b.dydx[:]
	track.DumpToArray(y)

	startCurveLength := track.CurveLength
	x := startCurveLength
	x2 := x + hstep

	h := hstep
	if hinitial > 0 && hinitial < hstep && hinitial > perMillion*hstep {
		h = hinitial
	}

	cache, _ := s.(derivativeCache)
	haveDerivative := false

	var hdid, hnext float64
	lastStep, exhausted := false, false
	for nstp := 1; ; nstp++ {
		startPos := dynamo.MakeVector(y, dynamo.Position)
		// y is the end state of the stepper's last step, so an FSAL
		// stepper already holds its derivative
		if !haveDerivative || !cache.lastDerivative(dydx) {
			b.eq.RightHandSide(y, dydx)
		}
		haveDerivative = cache != nil
		b.stats.TotalSteps++

		var succeeded bool
		if h > b.cfg.MinimumStep {
			hdid, hnext = s.oneGoodStep(y, dydx, &x, h, eps)
			succeeded = hdid == h
			b.stats.SumHLarge += hdid
		} else {
			_, dyerrLen := s.quickAdvance(y, dydx, h, b.yOut[:])
			copy(y[:b.nvar], b.yOut[:b.nvar])

			b.stats.SmallSteps++
			if nstp == 1 {
				b.stats.InitialSmallSteps++
			}
			b.stats.DyerrMax = max(b.stats.DyerrMax, dyerrLen)
			b.stats.DyerrPosSmall += dyerrLen
			b.stats.SumHSmall += h

			dyerr := dyerrLen / h
			hdid = h
			x += hdid
			hnext = s.ComputeNewStepSize(dyerr/eps, h)
			succeeded = dyerr <= eps
		}
		if succeeded {
			b.stats.FullIntegrations++
		} else {
			b.stats.SmallIntegrations++
		}

		endPointDist := r3.Norm(r3.Sub(dynamo.MakeVector(y, dynamo.Position), startPos))
		if endPointDist >= hdid*(1+perMillion) {
			b.stats.BadSteps++
			if endPointDist >= hdid*(1+perThousand) && b.cfg.Verbose > 0 {
				b.warn("endpoint further than step length",
					"step", nstp, "hdid", hdid, "distance", endPointDist,
					"excess", endPointDist/hdid-1)
			}
		} else {
			b.stats.GoodSteps++
		}

		if b.cfg.Verbose > 1 {
			b.logger.Debug("step", "n", nstp, "s", x, "hdid", hdid, "hnext", hnext)
		}

		if h < eps*hstep || h < b.cfg.SmallestFraction*startCurveLength {
			lastStep = true
		} else {
			if math.Abs(hnext) <= b.cfg.MinimumStep {
				h = b.cfg.MinimumStep
			} else {
				h = hnext
			}
			if x+h > x2 {
				h = x2 - x
			}
			if h == 0 {
				lastStep = true
			}
		}

		if nstp > b.cfg.MaxSteps {
			exhausted = x < x2 && !lastStep
			break
		}
		if x >= x2 || lastStep {
			break
		}
	}

	track.LoadFromArray(y, b.nvar)
	track.CurveLength = x

	if exhausted {
		b.stats.Exhausted++
		b.warn("too many steps; advance stopped early",
			"max_steps", b.cfg.MaxSteps, "done", x-startCurveLength, "requested", hstep)
		return false, nil
	}
	return x >= x2, nil
}

func (b *base) quickTrack(s stepControl, track *dynamo.FieldTrack, dydx []float64, hstep float64) (float64, float64, bool) {
	if err := b.validate(track, hstep); err != nil {
		b.logger.Warn("quick advance rejected", "err", err)
		return 0, 0, false
	}
	y := b.y[:]
	track.DumpToArray(y)
	dchord, dyerr := s.quickAdvance(y, dydx, hstep, b.yOut[:])
	track.LoadFromArray(b.yOut[:], b.nvar)
	track.CurveLength += hstep
	return dchord, dyerr, true
}

