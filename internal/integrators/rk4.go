package integrators

import "github.com/san-kum/fieldprop/internal/dynamo"

// ClassicalRK4 is the classical fourth-order Runge-Kutta scheme. It has no
// error estimate; wrap it in a StepDoubling for adaptive use.
type ClassicalRK4 struct {
	base
	yt, dydxm, dydxt vec
}

func NewClassicalRK4(eq dynamo.Equation, nvar int) *ClassicalRK4 {
	return &ClassicalRK4{base: newBase(eq, nvar)}
}

func (r *ClassicalRK4) Order() int { return 4 }

func (r *ClassicalRK4) DumbStep(y, dydx []float64, h float64, yOut []float64) {
	n := r.nvar
	r.load(&r.yt, y)

	hh := h * 0.5
	for i := 0; i < n; i++ {
		r.yt[i] = y[i] + hh*dydx[i]
	}
	r.rhs(r.yt[:], r.dydxt[:])

	for i := 0; i < n; i++ {
		r.yt[i] = y[i] + hh*r.dydxt[i]
	}
	r.rhs(r.yt[:], r.dydxm[:])

	for i := 0; i < n; i++ {
		r.yt[i] = y[i] + h*r.dydxm[i]
		r.dydxm[i] += r.dydxt[i]
	}
	r.rhs(r.yt[:], r.dydxt[:])

	h6 := h / 6.0
	for i := 0; i < n; i++ {
		yOut[i] = y[i] + h6*(dydx[i]+r.dydxt[i]+2*r.dydxm[i])
	}
	r.carry(y, yOut)
}

// SimpleRunge is the second-order midpoint scheme.
type SimpleRunge struct {
	base
	yt, dydxt vec
}

func NewSimpleRunge(eq dynamo.Equation, nvar int) *SimpleRunge {
	return &SimpleRunge{base: newBase(eq, nvar)}
}

func (r *SimpleRunge) Order() int { return 2 }

func (r *SimpleRunge) DumbStep(y, dydx []float64, h float64, yOut []float64) {
	r.load(&r.yt, y)
	for i := 0; i < r.nvar; i++ {
		r.yt[i] = y[i] + 0.5*h*dydx[i]
	}
	r.rhs(r.yt[:], r.dydxt[:])
	for i := 0; i < r.nvar; i++ {
		yOut[i] = y[i] + h*r.dydxt[i]
	}
	r.carry(y, yOut)
}
