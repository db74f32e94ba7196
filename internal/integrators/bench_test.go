package integrators

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
)

func benchStepper(b *testing.B, s dynamo.Stepper) {
	eq := s.Equation()
	y := circleState()
	dydx := make([]float64, dynamo.MaxStateVars)
	yOut := make([]float64, dynamo.MaxStateVars)
	yErr := make([]float64, dynamo.MaxStateVars)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eq.RightHandSide(y, dydx)
		s.Step(y, dydx, 1, yOut, yErr)
		copy(y, yOut)
	}
}

func BenchmarkClassicalRK4(b *testing.B) {
	eq := newEquation(r3.Vec{Z: 1 * equations.Tesla})
	benchStepper(b, NewStepDoubling(NewClassicalRK4(eq, dynamo.DefaultIntegrated)))
}

func BenchmarkCashKarp(b *testing.B) {
	eq := newEquation(r3.Vec{Z: 1 * equations.Tesla})
	benchStepper(b, NewCashKarp(eq, dynamo.DefaultIntegrated))
}

func BenchmarkDormandPrince745(b *testing.B) {
	eq := newEquation(r3.Vec{Z: 1 * equations.Tesla})
	benchStepper(b, NewDormandPrince745(eq, dynamo.DefaultIntegrated))
}

func BenchmarkHighamHall547(b *testing.B) {
	eq := newEquation(r3.Vec{Z: 1 * equations.Tesla})
	benchStepper(b, NewHighamHall547(eq, dynamo.DefaultIntegrated))
}

func BenchmarkExactHelix(b *testing.B) {
	eq := newEquation(r3.Vec{Z: 1 * equations.Tesla})
	benchStepper(b, NewExactHelix(eq, dynamo.DefaultIntegrated))
}

func BenchmarkDormandPrince745_Quadrupole(b *testing.B) {
	eq := equations.NewMagEquation(equations.NewQuadrupoleField(1 * equations.Tesla / equations.Meter))
	eq.SetChargeMomentumMass(1, testMomentum, testMass)
	s := NewDormandPrince745(eq, dynamo.DefaultIntegrated)
	y := []float64{5, -3, 0, 1, 2, testMomentum, 0, 0, 0, 0, 0, 0}
	dydx := make([]float64, dynamo.MaxStateVars)
	yOut := make([]float64, dynamo.MaxStateVars)
	yErr := make([]float64, dynamo.MaxStateVars)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eq.RightHandSide(y, dydx)
		s.Step(y, dydx, 1, yOut, yErr)
		copy(y, yOut)
	}
}
