// Package integrators implements single-step Runge-Kutta schemes for the
// equations of motion in package equations.
//
// Every stepper treats its inputs as read-only and writes only to the
// caller's output buffers. Buffers must hold at least NumState components;
// outputs must not alias inputs. Scratch space is kept on the stepper, so a
// stepper must not be shared between goroutines.
package integrators

import (
	"fmt"

	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/geom"
)

type vec = [dynamo.MaxStateVars]float64

type base struct {
	eq     dynamo.Equation
	nvar   int
	nstate int
}

func newBase(eq dynamo.Equation, nvar int) base {
	if nvar < dynamo.DefaultIntegrated || nvar > dynamo.MaxStateVars {
		panic(fmt.Sprintf("integrators: integrated variables must be in [%d, %d], got %d",
			dynamo.DefaultIntegrated, dynamo.MaxStateVars, nvar))
	}
	if eq == nil {
		panic("integrators: equation may not be nil")
	}
	return base{eq: eq, nvar: nvar, nstate: dynamo.MaxStateVars}
}

func (b *base) NumIntegrated() int { return b.nvar }

func (b *base) NumState() int { return b.nstate }

func (b *base) Equation() dynamo.Equation { return b.eq }

func (b *base) rhs(y, dydx []float64) { b.eq.RightHandSide(y, dydx) }

// carry copies the components that are not integrated.
func (b *base) carry(y, yOut []float64) {
	n := min(b.nstate, len(y), len(yOut))
	for i := b.nvar; i < n; i++ {
		yOut[i] = y[i]
	}
}

// load fills a scratch vector with y so that stage evaluations see the
// non-integrated components (e.g. lab time) of the step start.
func (b *base) load(dst *vec, y []float64) {
	copy(dst[:], y[:min(len(y), dynamo.MaxStateVars)])
}

// lastStep remembers the last step for chord and interpolation queries.
type lastStep struct {
	yIn, dydxIn, yOut vec
	h                 float64
}

func (l *lastStep) save(y, dydx, yOut []float64, h float64) {
	copy(l.yIn[:], y)
	copy(l.dydxIn[:], dydx)
	copy(l.yOut[:], yOut)
	l.h = h
}

func chord(yIn, yMid, yOut []float64) float64 {
	return geom.DistLine(
		dynamo.MakeVector(yMid, dynamo.Position),
		dynamo.MakeVector(yIn, dynamo.Position),
		dynamo.MakeVector(yOut, dynamo.Position),
	)
}
