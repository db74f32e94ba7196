// Package equations implements the equations of motion of a charged particle
// in a magnetic field, and the simple field callbacks used to drive them.
package equations

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// MagEquation is the Lorentz-force equation parameterised by arc length.
//
//	dx/ds = p/|p|
//	dp/ds = q c/|p| (p × B)
//
// When the derivative buffer covers the auxiliary components the lab and
// proper time derivatives are filled as well; kinetic energy and spin are
// constant in a pure magnetic field.
//
// A state with zero momentum has no direction of motion. Passing one is a
// precondition violation and panics; drivers reject such tracks up front.
type MagEquation struct {
	field  dynamo.Field
	charge float64
	mass   float64
	fCof   float64
	b      [dynamo.MaxFieldComponents]float64
}

func NewMagEquation(field dynamo.Field) *MagEquation {
	e := &MagEquation{field: field}
	e.SetChargeMomentumMass(1, 0, 0)
	return e
}

func (e *MagEquation) SetChargeMomentumMass(charge, _, mass float64) {
	e.charge = charge
	e.mass = mass
	e.fCof = Eplus * charge * CLight
}

// FCof returns the charge coefficient q*c.
func (e *MagEquation) FCof() float64 { return e.fCof }

func (e *MagEquation) Field() dynamo.Field { return e.field }

func (e *MagEquation) RightHandSide(y, dydx []float64) {
	point := [4]float64{y[0], y[1], y[2], y[dynamo.LabTime]}
	e.field.FieldValue(point, e.b[:])
	e.EvaluateRhsGivenB(y, e.b[:], dydx)
}

func (e *MagEquation) EvaluateRhsGivenB(y, b, dydx []float64) {
	pSq := y[3]*y[3] + y[4]*y[4] + y[5]*y[5]
	if pSq == 0 {
		panic("equations: zero momentum has no direction of motion")
	}
	pMag := math.Sqrt(pSq)
	invP := 1 / pMag
	cof := e.fCof * invP

	dydx[0] = y[3] * invP
	dydx[1] = y[4] * invP
	dydx[2] = y[5] * invP

	dydx[3] = cof * (y[4]*b[2] - y[5]*b[1])
	dydx[4] = cof * (y[5]*b[0] - y[3]*b[2])
	dydx[5] = cof * (y[3]*b[1] - y[4]*b[0])

	if len(dydx) > int(dynamo.ProperTime) {
		energy := math.Sqrt(pSq + e.mass*e.mass)
		dydx[dynamo.KineticEnergy] = 0
		dydx[dynamo.LabTime] = energy * invP / CLight
		dydx[dynamo.ProperTime] = e.mass * invP / CLight
	}
	for i := int(dynamo.Spin); i < len(dydx) && i < dynamo.MaxStateVars; i++ {
		dydx[i] = 0
	}
}
