package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MaxStateVars is the length of the full state vector.
	MaxStateVars = 12

	// DefaultIntegrated is the number of components advanced by default:
	// position and momentum.
	DefaultIntegrated = 6

	// MaxFieldComponents bounds the number of values a Field may return.
	MaxFieldComponents = 24
)

// Value3D indexes the first component of a three-vector in the state.
type Value3D int

const (
	Position Value3D = 0
	Momentum Value3D = 3
	Spin     Value3D = 9
)

// Value1D indexes a scalar component of the state.
type Value1D int

const (
	KineticEnergy Value1D = 6
	LabTime       Value1D = 7
	ProperTime    Value1D = 8
)

// State is the full particle state vector.
type State [MaxStateVars]float64

func (s *State) Vec3(v Value3D) r3.Vec {
	return MakeVector(s[:], v)
}

func (s *State) SetVec3(v Value3D, x r3.Vec) {
	s[v], s[v+1], s[v+2] = x.X, x.Y, x.Z
}

func (s *State) Value(v Value1D) float64 {
	return s[v]
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ExtractValue returns a scalar component of y.
func ExtractValue(y []float64, v Value1D) float64 {
	return y[v]
}

// ExtractValue2 returns the square of a scalar component of y.
func ExtractValue2(y []float64, v Value1D) float64 {
	return y[v] * y[v]
}

// Magnitude returns the length of a three-vector component of y.
func Magnitude(y []float64, v Value3D) float64 {
	return math.Sqrt(Magnitude2(y, v))
}

// Magnitude2 returns the squared length of a three-vector component of y.
func Magnitude2(y []float64, v Value3D) float64 {
	return y[v]*y[v] + y[v+1]*y[v+1] + y[v+2]*y[v+2]
}

// MakeVector copies a three-vector component of y.
func MakeVector(y []float64, v Value3D) r3.Vec {
	return r3.Vec{X: y[v], Y: y[v+1], Z: y[v+2]}
}

// Field returns the field at a position and time.
// point holds x, y, z, t. Implementations must not retain field.
type Field interface {
	FieldValue(point [4]float64, field []float64)
}

// Equation computes the derivative of a state with respect to the
// integration variable.
type Equation interface {
	RightHandSide(y, dydx []float64)
	EvaluateRhsGivenB(y, b, dydx []float64)
	SetChargeMomentumMass(charge, momentum, mass float64)
}

// Stepper performs one integration step with an error estimate.
//
// Step must treat y and dydx as read-only and write only to yOut and yErr.
// Components past NumIntegrated are copied from y to yOut unchanged.
// yErr receives the estimated absolute deviation over the step.
type Stepper interface {
	Step(y, dydx []float64, h float64, yOut, yErr []float64)
	// DistChord returns the distance between the chord and the path of
	// the last step taken.
	DistChord() float64
	Order() int
	NumIntegrated() int
	NumState() int
	Equation() Equation
}

// DenseStepper can evaluate the last step at a fraction tau in (0, 1).
type DenseStepper interface {
	Stepper
	Interpolate(tau float64, yOut []float64)
}

// FSALStepper exposes the derivative at the end of the last step.
type FSALStepper interface {
	Stepper
	LastDerivative(dydx []float64)
}

// FixedStepper is a single-step scheme without an error estimate.
type FixedStepper interface {
	DumbStep(y, dydx []float64, h float64, yOut []float64)
	Order() int
	NumIntegrated() int
	NumState() int
	Equation() Equation
}
