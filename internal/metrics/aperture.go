package metrics

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// Aperture is the fraction of observed points that lie inside a cylinder
// of the given radius around the z axis and hold a finite state.
type Aperture struct {
	name       string
	radius     float64
	violations int
	samples    int
}

func NewAperture(radius float64) *Aperture {
	return &Aperture{name: "aperture", radius: radius}
}

func (a *Aperture) Name() string { return a.name }

func (a *Aperture) Observe(t *dynamo.FieldTrack) {
	a.samples++
	pos := t.Position()
	if !t.State.IsValid() || math.Hypot(pos.X, pos.Y) > a.radius {
		a.violations++
	}
}

func (a *Aperture) Value() float64 {
	if a.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(a.violations)/float64(a.samples)
}

func (a *Aperture) Reset() {
	a.violations = 0
	a.samples = 0
}
