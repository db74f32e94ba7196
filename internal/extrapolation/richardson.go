package extrapolation

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/geom"
)

// RichardsonStepper combines modified midpoint steps with 2 and 4 substeps
// into a fourth order result. The difference of the two is the error
// estimate.
type RichardsonStepper struct {
	mm *ModifiedMidpoint

	lo, hi, loMid, hiMid vec
	yIn, yMid, yOut      vec
}

const (
	richardsonLo = 2
	richardsonHi = 4
)

// fcoeff = 1/((n_hi/n_lo)^2 - 1)
var richardsonCoeff = 1 / (float64(richardsonHi*richardsonHi)/float64(richardsonLo*richardsonLo) - 1)

func NewRichardsonStepper(eq dynamo.Equation, nvar int) *RichardsonStepper {
	return &RichardsonStepper{mm: NewModifiedMidpoint(eq, nvar)}
}

func (r *RichardsonStepper) Order() int { return 4 }

func (r *RichardsonStepper) NumIntegrated() int { return r.mm.nvar }

func (r *RichardsonStepper) NumState() int { return dynamo.MaxStateVars }

func (r *RichardsonStepper) Equation() dynamo.Equation { return r.mm.eq }

func (r *RichardsonStepper) Step(y, dydx []float64, h float64, yOut, yErr []float64) {
	r.mm.Step(y, dydx, h, richardsonLo, r.lo[:], r.loMid[:])
	r.mm.Step(y, dydx, h, richardsonHi, r.hi[:], r.hiMid[:])

	for i := 0; i < r.mm.nvar; i++ {
		d := r.hi[i] - r.lo[i]
		yOut[i] = r.hi[i] + d*richardsonCoeff
		yErr[i] = d
		r.yMid[i] = r.hiMid[i] + (r.hiMid[i]-r.loMid[i])*richardsonCoeff
	}
	carry(y, yOut, r.mm.nvar)
	carry(y, r.yMid[:], r.mm.nvar)

	copy(r.yIn[:], y)
	copy(r.yOut[:], yOut)
}

func (r *RichardsonStepper) DistChord() float64 {
	return geom.DistLine(
		dynamo.MakeVector(r.yMid[:], dynamo.Position),
		dynamo.MakeVector(r.yIn[:], dynamo.Position),
		dynamo.MakeVector(r.yOut[:], dynamo.Position),
	)
}

// CombinedError compares two estimates of the same end state. The momentum
// difference is taken relative to |p| of yOut and scaled by h so that both
// terms are lengths.
func CombinedError(yOut, yOut2 []float64, h float64) float64 {
	dPos := floats.Distance(yOut[0:3], yOut2[0:3], 2)
	dMom := floats.Distance(yOut[3:6], yOut2[3:6], 2)
	if p := floats.Norm(yOut[3:6], 2); p > 0 {
		dMom = dMom / p * h
	}
	return math.Max(dPos, dMom)
}
