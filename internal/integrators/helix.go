package integrators

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
	"gonum.org/v1/gonum/spatial/r3"
)

// Helix advances pos and mom by arc length s along the exact trajectory in a
// uniform magnetic field b. fCof is the charge coefficient q*c of the
// particle. A zero field gives a straight line.
func Helix(pos, mom, b r3.Vec, fCof, s float64) (r3.Vec, r3.Vec) {
	pMag := r3.Norm(mom)
	u := r3.Scale(1/pMag, mom)

	bMag := r3.Norm(b)
	if bMag == 0 || fCof == 0 {
		return r3.Add(pos, r3.Scale(s, u)), mom
	}
	bHat := r3.Scale(1/bMag, b)
	kappa := fCof * bMag / pMag

	uPar := r3.Scale(r3.Dot(u, bHat), bHat)
	uPerp := r3.Sub(u, uPar)
	w := r3.Cross(uPerp, bHat)

	theta := kappa * s
	sin, cos := math.Sincos(theta)

	// sin(theta)/kappa and (1-cos(theta))/kappa
	var sk, ck float64
	if math.Abs(theta) < 1e-5 {
		t2 := theta * theta
		sk = s * (1 - t2/6)
		ck = s * theta * (0.5 - t2/24)
	} else {
		sk = sin / kappa
		ck = (1 - cos) / kappa
	}

	newPos := r3.Add(pos, r3.Add(r3.Scale(s, uPar), r3.Add(r3.Scale(sk, uPerp), r3.Scale(ck, w))))
	newU := r3.Add(uPar, r3.Add(r3.Scale(cos, uPerp), r3.Scale(sin, w)))
	return newPos, r3.Scale(pMag, newU)
}

// ExactHelix steps along the analytic helix of the field sampled at the
// start of each step. Its error estimate is zero; it is exact only for
// uniform fields.
type ExactHelix struct {
	base
	mag *equations.MagEquation

	b               [dynamo.MaxFieldComponents]float64
	yIn, yMid, yOut vec
}

func NewExactHelix(eq *equations.MagEquation, nvar int) *ExactHelix {
	return &ExactHelix{base: newBase(eq, nvar), mag: eq}
}

// WithEquation makes eq, a wrapper around the magnetic equation such as
// equations.Counter, the equation that drivers see.
func (x *ExactHelix) WithEquation(eq dynamo.Equation) *ExactHelix {
	x.eq = eq
	return x
}

func (x *ExactHelix) Order() int { return 4 }

func (x *ExactHelix) Step(y, dydx []float64, h float64, yOut, yErr []float64) {
	point := [4]float64{y[0], y[1], y[2], y[dynamo.LabTime]}
	x.mag.Field().FieldValue(point, x.b[:])
	b := r3.Vec{X: x.b[0], Y: x.b[1], Z: x.b[2]}

	x.advance(y, dydx, b, h, yOut)
	x.advance(y, dydx, b, 0.5*h, x.yMid[:])
	for i := 0; i < x.nvar; i++ {
		yErr[i] = 0
	}

	copy(x.yIn[:], y)
	copy(x.yOut[:], yOut)
}

func (x *ExactHelix) advance(y, dydx []float64, b r3.Vec, h float64, yOut []float64) {
	pos, mom := Helix(
		dynamo.MakeVector(y, dynamo.Position),
		dynamo.MakeVector(y, dynamo.Momentum),
		b, x.mag.FCof(), h)
	yOut[0], yOut[1], yOut[2] = pos.X, pos.Y, pos.Z
	yOut[3], yOut[4], yOut[5] = mom.X, mom.Y, mom.Z

	// remaining derivatives are constant along the helix
	for i := dynamo.DefaultIntegrated; i < x.nvar; i++ {
		yOut[i] = y[i] + h*dydx[i]
	}
	x.carry(y, yOut)
}

func (x *ExactHelix) DistChord() float64 {
	return chord(x.yIn[:], x.yMid[:], x.yOut[:])
}
