package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
	"github.com/san-kum/fieldprop/internal/integrators"
)

// Deviation is the distance between an integrated state and the exact helix
// at the same curve length. Momentum is relative to the start momentum.
type Deviation struct {
	Position float64 // mm
	Momentum float64
}

// HelixDeviation returns the deviation of end from the helix that passes
// through start in the uniform field b.
func HelixDeviation(start, end *dynamo.FieldTrack, b r3.Vec) Deviation {
	fCof := equations.Eplus * start.Charge * equations.CLight
	s := end.CurveLength - start.CurveLength
	pos, mom := integrators.Helix(start.Position(), start.Momentum(), b, fCof, s)

	d := Deviation{Position: r3.Norm(r3.Sub(end.Position(), pos))}
	if p := start.MomentumMag(); p > 0 {
		d.Momentum = r3.Norm(r3.Sub(end.Momentum(), mom)) / p
	}
	return d
}

// Helix tracks the largest position deviation from the exact helix over all
// observed points. The first observation fixes the reference start.
type Helix struct {
	name    string
	b       r3.Vec
	start   *dynamo.FieldTrack
	max     Deviation
	samples int
}

func NewHelix(b r3.Vec) *Helix {
	return &Helix{name: "helix_deviation", b: b}
}

func (h *Helix) Name() string { return h.name }

func (h *Helix) Observe(t *dynamo.FieldTrack) {
	h.samples++
	if h.start == nil {
		h.start = t.Clone()
		return
	}
	d := HelixDeviation(h.start, t, h.b)
	h.max.Position = math.Max(h.max.Position, d.Position)
	h.max.Momentum = math.Max(h.max.Momentum, d.Momentum)
}

func (h *Helix) Value() float64 { return h.max.Position }

// Max returns the largest deviations seen so far.
func (h *Helix) Max() Deviation { return h.max }

func (h *Helix) Reset() {
	h.start = nil
	h.max = Deviation{}
	h.samples = 0
}
