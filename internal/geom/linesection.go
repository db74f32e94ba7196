// Package geom holds the geometric helpers used to judge step quality.
package geom

import "gonum.org/v1/gonum/spatial/r3"

// LineSection is the segment between two end points.
type LineSection struct {
	a, ab  r3.Vec
	distSq float64
}

func NewLineSection(a, b r3.Vec) LineSection {
	ab := r3.Sub(b, a)
	return LineSection{a: a, ab: ab, distSq: r3.Norm2(ab)}
}

// Dist returns the distance from p to the segment. When the perpendicular
// foot falls outside the segment the distance to the nearer end point is
// returned.
func (l LineSection) Dist(p r3.Vec) float64 {
	ap := r3.Sub(p, l.a)
	if l.distSq == 0 {
		return r3.Norm(ap)
	}

	inner := r3.Dot(l.ab, ap)
	proj := inner / l.distSq

	switch {
	case proj < 0:
		return r3.Norm(ap)
	case proj > 1:
		return r3.Norm(r3.Sub(ap, l.ab))
	}
	// The perpendicular is formed explicitly: subtracting squared lengths
	// loses all precision for points close to the chord.
	return r3.Norm(r3.Sub(ap, r3.Scale(proj, l.ab)))
}

// DistLine returns the distance from p to the segment a-b.
func DistLine(p, a, b r3.Vec) float64 {
	return NewLineSection(a, b).Dist(p)
}
