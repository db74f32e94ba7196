package integrators

import "github.com/san-kum/fieldprop/internal/dynamo"

// ExplicitEuler is the first-order forward Euler scheme.
type ExplicitEuler struct {
	base
}

func NewExplicitEuler(eq dynamo.Equation, nvar int) *ExplicitEuler {
	return &ExplicitEuler{base: newBase(eq, nvar)}
}

func (e *ExplicitEuler) Order() int { return 1 }

func (e *ExplicitEuler) DumbStep(y, dydx []float64, h float64, yOut []float64) {
	for i := 0; i < e.nvar; i++ {
		yOut[i] = y[i] + h*dydx[i]
	}
	e.carry(y, yOut)
}
