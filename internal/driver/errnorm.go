package driver

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// errNorm is the squared relative error of a trial step.
type errNorm struct {
	pos2, vel2, spin2 float64
}

func (e errNorm) max2() float64 {
	return max(e.pos2, e.vel2, e.spin2)
}

// relativeError scales the position error by eps*max(h, hmin), the momentum
// error by eps*|p| and, when spin is integrated and non-zero, the spin error
// by eps*|s|.
func relativeError(y, yErr []float64, h, hmin, eps float64, nvar int) errNorm {
	var e errNorm

	epsPos := eps * max(h, hmin)
	e.pos2 = floats.Dot(yErr[0:3], yErr[0:3]) / (epsPos * epsPos)

	invEps2 := 1 / (eps * eps)
	mom := floats.Dot(yErr[3:6], yErr[3:6])
	if p2 := dynamo.Magnitude2(y, dynamo.Momentum); p2 > 0 {
		mom /= p2
	}
	e.vel2 = mom * invEps2

	if nvar >= int(dynamo.Spin)+3 {
		if s2 := dynamo.Magnitude2(y, dynamo.Spin); s2 > 0 {
			e.spin2 = floats.Dot(yErr[9:12], yErr[9:12]) / s2 * invEps2
		}
	}
	return e
}
