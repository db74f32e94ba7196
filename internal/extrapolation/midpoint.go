// Package extrapolation implements the modified midpoint method and the
// Richardson extrapolation built on it: a fixed two-level stepper and an
// adaptive-order Bulirsch-Stoer engine.
package extrapolation

import (
	"fmt"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

type vec = [dynamo.MaxStateVars]float64

// ModifiedMidpoint is Gragg's modified midpoint method. Its error expansion
// holds only even powers of the substep, which makes it the base method
// for extrapolation.
type ModifiedMidpoint struct {
	eq   dynamo.Equation
	nvar int

	z0, z1, z2 vec
	dzdx       vec
}

func NewModifiedMidpoint(eq dynamo.Equation, nvar int) *ModifiedMidpoint {
	if nvar < dynamo.DefaultIntegrated || nvar > dynamo.MaxStateVars {
		panic(fmt.Sprintf("extrapolation: integrated variables must be in [%d, %d], got %d",
			dynamo.DefaultIntegrated, dynamo.MaxStateVars, nvar))
	}
	return &ModifiedMidpoint{eq: eq, nvar: nvar}
}

func (m *ModifiedMidpoint) Equation() dynamo.Equation { return m.eq }

func (m *ModifiedMidpoint) NumIntegrated() int { return m.nvar }

// Step advances y over h using n substeps and writes the result to yOut.
// When yMid is not nil and n is even it receives the smoothed value at h/2.
// The derivative is evaluated n times.
func (m *ModifiedMidpoint) Step(y, dydx []float64, h float64, n int, yOut, yMid []float64) {
	if n < 1 {
		n = 1
	}
	hs := h / float64(n)
	nstate := min(len(y), dynamo.MaxStateVars)

	a, b, c := m.z0[:], m.z1[:], m.z2[:]
	copy(a, y[:nstate])
	copy(b, y[:nstate])
	copy(c, y[:nstate])
	for i := 0; i < m.nvar; i++ {
		b[i] = y[i] + hs*dydx[i]
	}

	half := n / 2
	for step := 1; step < n; step++ {
		m.eq.RightHandSide(b, m.dzdx[:])
		for i := 0; i < m.nvar; i++ {
			c[i] = a[i] + 2*hs*m.dzdx[i]
		}
		if yMid != nil && n%2 == 0 && step == half {
			for i := 0; i < m.nvar; i++ {
				yMid[i] = 0.25 * (a[i] + 2*b[i] + c[i])
			}
			carry(y, yMid, m.nvar)
		}
		a, b, c = b, c, a
	}

	m.eq.RightHandSide(b, m.dzdx[:])
	for i := 0; i < m.nvar; i++ {
		yOut[i] = 0.5 * (b[i] + a[i] + hs*m.dzdx[i])
	}
	carry(y, yOut, m.nvar)
}

func carry(y, yOut []float64, nvar int) {
	n := min(len(y), len(yOut), dynamo.MaxStateVars)
	for i := nvar; i < n; i++ {
		yOut[i] = y[i]
	}
}
