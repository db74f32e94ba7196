package metrics

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// MomentumDrift is the largest relative change of |p| since the first
// observation. A pure magnetic field conserves |p|, so any drift is
// integration error.
type MomentumDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(t *dynamo.FieldTrack) {
	p := t.MomentumMag()
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	if m.initial == 0 {
		return
	}
	if drift := math.Abs(p-m.initial) / m.initial; drift > m.maxDrift {
		m.maxDrift = drift
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}
