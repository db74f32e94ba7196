package integrators

import "github.com/san-kum/fieldprop/internal/dynamo"

// ChawlaSharmaRKN is a three-stage, third-order Runge-Kutta-Nystrom scheme.
// Position is advanced as a second-order equation whose acceleration is the
// momentum derivative over |p|, which is constant in a magnetic field.
// Further integrated components use the third-order Kutta weights.
//
// It has no error estimate. NewExtrapolatedDoubling(NewChawlaSharmaRKN(...))
// gives the adaptive fourth-order stepper.
type ChawlaSharmaRKN struct {
	base
	yt, k2, k3 vec
}

func NewChawlaSharmaRKN(eq dynamo.Equation, nvar int) *ChawlaSharmaRKN {
	return &ChawlaSharmaRKN{base: newBase(eq, nvar)}
}

func (r *ChawlaSharmaRKN) Order() int { return 3 }

func (r *ChawlaSharmaRKN) DumbStep(y, dydx []float64, h float64, yOut []float64) {
	const (
		pos = int(dynamo.Position)
		mom = int(dynamo.Momentum)
	)
	n := r.nvar
	pinv := 1 / dynamo.Magnitude(y, dynamo.Momentum)
	hh := 0.5 * h
	h2 := h * h

	// k1 is dydx
	r.load(&r.yt, y)
	for i := 0; i < 3; i++ {
		r.yt[pos+i] = y[pos+i] + hh*dydx[pos+i] + h2/8*dydx[mom+i]*pinv
		r.yt[mom+i] = y[mom+i] + hh*dydx[mom+i]
	}
	for i := 6; i < n; i++ {
		r.yt[i] = y[i] + hh*dydx[i]
	}
	r.rhs(r.yt[:], r.k2[:])

	for i := 0; i < 3; i++ {
		r.yt[pos+i] = y[pos+i] + h*dydx[pos+i] + h2/2*r.k2[mom+i]*pinv
		r.yt[mom+i] = y[mom+i] + h*(2*r.k2[mom+i]-dydx[mom+i])
	}
	for i := 6; i < n; i++ {
		r.yt[i] = y[i] + h*(2*r.k2[i]-dydx[i])
	}
	r.rhs(r.yt[:], r.k3[:])

	h6 := h / 6
	for i := 0; i < 3; i++ {
		yOut[pos+i] = y[pos+i] + h*dydx[pos+i] + h2/6*(dydx[mom+i]+2*r.k2[mom+i])*pinv
		yOut[mom+i] = y[mom+i] + h6*(dydx[mom+i]+4*r.k2[mom+i]+r.k3[mom+i])
	}
	for i := 6; i < n; i++ {
		yOut[i] = y[i] + h6*(dydx[i]+4*r.k2[i]+r.k3[i])
	}
	r.carry(y, yOut)
}
