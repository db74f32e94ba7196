package equations

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// TimeEquation is the Lorentz-force equation parameterised by lab time.
//
//	dx/dt = p c/E
//	dp/dt = q c^2/E (p × B)
//
// The state layout is the same as for MagEquation, so the same steppers and
// drivers apply; the driver's "length" is then a time interval in ns.
// A massless particle with zero momentum is a precondition violation.
type TimeEquation struct {
	field  dynamo.Field
	charge float64
	mass   float64
	fCof   float64
	b      [dynamo.MaxFieldComponents]float64
}

func NewTimeEquation(field dynamo.Field) *TimeEquation {
	e := &TimeEquation{field: field}
	e.SetChargeMomentumMass(1, 0, 0)
	return e
}

func (e *TimeEquation) SetChargeMomentumMass(charge, _, mass float64) {
	e.charge = charge
	e.mass = mass
	e.fCof = Eplus * charge * CLight
}

func (e *TimeEquation) RightHandSide(y, dydx []float64) {
	point := [4]float64{y[0], y[1], y[2], y[dynamo.LabTime]}
	e.field.FieldValue(point, e.b[:])
	e.EvaluateRhsGivenB(y, e.b[:], dydx)
}

func (e *TimeEquation) EvaluateRhsGivenB(y, b, dydx []float64) {
	pSq := y[3]*y[3] + y[4]*y[4] + y[5]*y[5]
	energy := math.Sqrt(pSq + e.mass*e.mass)
	if energy == 0 {
		panic("equations: massless particle with zero momentum")
	}
	invE := CLight / energy
	cof := e.fCof * invE

	dydx[0] = y[3] * invE
	dydx[1] = y[4] * invE
	dydx[2] = y[5] * invE

	dydx[3] = cof * (y[4]*b[2] - y[5]*b[1])
	dydx[4] = cof * (y[5]*b[0] - y[3]*b[2])
	dydx[5] = cof * (y[3]*b[1] - y[4]*b[0])

	if len(dydx) > int(dynamo.ProperTime) {
		dydx[dynamo.KineticEnergy] = 0
		dydx[dynamo.LabTime] = 1
		dydx[dynamo.ProperTime] = e.mass / energy
	}
	for i := int(dynamo.Spin); i < len(dydx) && i < dynamo.MaxStateVars; i++ {
		dydx[i] = 0
	}
}
