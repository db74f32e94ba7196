package equations

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// UniformField is a constant magnetic field.
type UniformField struct {
	b r3.Vec
}

func NewUniformField(b r3.Vec) *UniformField {
	return &UniformField{b: b}
}

func (f *UniformField) FieldValue(_ [4]float64, field []float64) {
	field[0], field[1], field[2] = f.b.X, f.b.Y, f.b.Z
}

func (f *UniformField) B() r3.Vec { return f.b }

// QuadrupoleField is an ideal quadrupole along z: Bx = g*y, By = g*x.
type QuadrupoleField struct {
	gradient float64
}

func NewQuadrupoleField(gradient float64) *QuadrupoleField {
	return &QuadrupoleField{gradient: gradient}
}

func (f *QuadrupoleField) FieldValue(point [4]float64, field []float64) {
	field[0] = f.gradient * point[1]
	field[1] = f.gradient * point[0]
	field[2] = 0
}

// FieldFunc adapts a function to the dynamo.Field interface.
type FieldFunc func(point [4]float64, field []float64)

func (f FieldFunc) FieldValue(point [4]float64, field []float64) {
	f(point, field)
}
