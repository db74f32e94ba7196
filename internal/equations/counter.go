package equations

import "github.com/san-kum/fieldprop/internal/dynamo"

// Counter wraps an equation and counts right-hand-side evaluations.
type Counter struct {
	dynamo.Equation
	calls int
}

func NewCounter(eq dynamo.Equation) *Counter {
	return &Counter{Equation: eq}
}

func (c *Counter) RightHandSide(y, dydx []float64) {
	c.calls++
	c.Equation.RightHandSide(y, dydx)
}

func (c *Counter) Calls() int { return c.calls }

func (c *Counter) Reset() { c.calls = 0 }

// Unwrap returns the counted equation.
func (c *Counter) Unwrap() dynamo.Equation { return c.Equation }

// AsMagEquation returns the magnetic equation inside eq, looking through
// wrappers that implement Unwrap.
func AsMagEquation(eq dynamo.Equation) (*MagEquation, bool) {
	for {
		switch e := eq.(type) {
		case *MagEquation:
			return e, true
		case interface{ Unwrap() dynamo.Equation }:
			eq = e.Unwrap()
		default:
			return nil, false
		}
	}
}
