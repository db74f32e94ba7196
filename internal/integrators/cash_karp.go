package integrators

import "github.com/san-kum/fieldprop/internal/dynamo"

// CashKarp is the six-stage Cash-Karp 4(5) pair. The fifth order solution
// is propagated; its difference from the embedded fourth order one is the
// error estimate.
type CashKarp struct {
	base
	last lastStep

	yt                 vec
	k2, k3, k4, k5, k6 vec
	mid, midErr        vec
}

func NewCashKarp(eq dynamo.Equation, nvar int) *CashKarp {
	return &CashKarp{base: newBase(eq, nvar)}
}

func (c *CashKarp) Order() int { return 4 }

func (c *CashKarp) Step(y, dydx []float64, h float64, yOut, yErr []float64) {
	c.step(y, dydx, h, yOut, yErr)
	c.last.save(y, dydx, yOut, h)
}

func (c *CashKarp) step(y, dydx []float64, h float64, yOut, yErr []float64) {
	const (
		b21 = 0.2
		b31 = 3.0 / 40.0
		b32 = 9.0 / 40.0
		b41 = 0.3
		b42 = -0.9
		b43 = 1.2
		b51 = -11.0 / 54.0
		b52 = 2.5
		b53 = -70.0 / 27.0
		b54 = 35.0 / 27.0
		b61 = 1631.0 / 55296.0
		b62 = 175.0 / 512.0
		b63 = 575.0 / 13824.0
		b64 = 44275.0 / 110592.0
		b65 = 253.0 / 4096.0

		c1 = 37.0 / 378.0
		c3 = 250.0 / 621.0
		c4 = 125.0 / 594.0
		c6 = 512.0 / 1771.0

		dc1 = c1 - 2825.0/27648.0
		dc3 = c3 - 18575.0/48384.0
		dc4 = c4 - 13525.0/55296.0
		dc5 = -277.0 / 14336.0
		dc6 = c6 - 0.25
	)

	n := c.nvar
	k1 := dydx
	c.load(&c.yt, y)

	for i := 0; i < n; i++ {
		c.yt[i] = y[i] + h*b21*k1[i]
	}
	c.rhs(c.yt[:], c.k2[:])

	for i := 0; i < n; i++ {
		c.yt[i] = y[i] + h*(b31*k1[i]+b32*c.k2[i])
	}
	c.rhs(c.yt[:], c.k3[:])

	for i := 0; i < n; i++ {
		c.yt[i] = y[i] + h*(b41*k1[i]+b42*c.k2[i]+b43*c.k3[i])
	}
	c.rhs(c.yt[:], c.k4[:])

	for i := 0; i < n; i++ {
		c.yt[i] = y[i] + h*(b51*k1[i]+b52*c.k2[i]+b53*c.k3[i]+b54*c.k4[i])
	}
	c.rhs(c.yt[:], c.k5[:])

	for i := 0; i < n; i++ {
		c.yt[i] = y[i] + h*(b61*k1[i]+b62*c.k2[i]+b63*c.k3[i]+b64*c.k4[i]+b65*c.k5[i])
	}
	c.rhs(c.yt[:], c.k6[:])

	for i := 0; i < n; i++ {
		yOut[i] = y[i] + h*(c1*k1[i]+c3*c.k3[i]+c4*c.k4[i]+c6*c.k6[i])
		yErr[i] = h * (dc1*k1[i] + dc3*c.k3[i] + dc4*c.k4[i] + dc5*c.k5[i] + dc6*c.k6[i])
	}
	c.carry(y, yOut)
}

// DistChord re-steps half of the last step to find its midpoint.
func (c *CashKarp) DistChord() float64 {
	l := &c.last
	c.step(l.yIn[:], l.dydxIn[:], 0.5*l.h, c.mid[:], c.midErr[:])
	return chord(l.yIn[:], c.mid[:], l.yOut[:])
}
