package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FieldTrack is a particle track as seen by a driver: the state vector plus
// the accumulated curve length and the particle's constants.
//
// Units follow the equations package: mm, ns, MeV and positron charges.
type FieldTrack struct {
	State       State
	CurveLength float64
	RestMass    float64
	Charge      float64
}

// NewFieldTrack returns a track at pos with momentum mom. The kinetic energy
// component is derived from the momentum and rest mass.
func NewFieldTrack(pos, mom r3.Vec, charge, mass float64) *FieldTrack {
	t := &FieldTrack{RestMass: mass, Charge: charge}
	t.State.SetVec3(Position, pos)
	t.State.SetVec3(Momentum, mom)
	t.updateKineticEnergy()
	return t
}

func (t *FieldTrack) Clone() *FieldTrack {
	c := *t
	return &c
}

// DumpToArray copies the full state into y.
func (t *FieldTrack) DumpToArray(y []float64) {
	copy(y, t.State[:])
}

// LoadFromArray copies the first n components of y into the state. When the
// kinetic energy is not among them it is recomputed from the momentum.
func (t *FieldTrack) LoadFromArray(y []float64, n int) {
	if n > MaxStateVars {
		n = MaxStateVars
	}
	copy(t.State[:n], y[:n])
	if n <= int(KineticEnergy) {
		t.updateKineticEnergy()
	}
}

func (t *FieldTrack) Position() r3.Vec {
	return t.State.Vec3(Position)
}

func (t *FieldTrack) Momentum() r3.Vec {
	return t.State.Vec3(Momentum)
}

func (t *FieldTrack) MomentumMag() float64 {
	return Magnitude(t.State[:], Momentum)
}

func (t *FieldTrack) updateKineticEnergy() {
	p2 := Magnitude2(t.State[:], Momentum)
	t.State[KineticEnergy] = p2 / (math.Sqrt(p2+t.RestMass*t.RestMass) + t.RestMass)
}
