package integrators

import "github.com/san-kum/fieldprop/internal/dynamo"

// HighamHall547 is the seven-stage 5(4) pair of Higham and Hall with the
// first-same-as-last property. Its error estimate is fourth order.
type HighamHall547 struct {
	base
	last lastStep

	yt                     vec
	k2, k3, k4, k5, k6, k7 vec
	dydxOut                vec

	mid, midErr, midDydx vec
}

func NewHighamHall547(eq dynamo.Equation, nvar int) *HighamHall547 {
	return &HighamHall547{base: newBase(eq, nvar)}
}

func (s *HighamHall547) Order() int { return 4 }

func (s *HighamHall547) Step(y, dydx []float64, h float64, yOut, yErr []float64) {
	s.step(y, dydx, h, yOut, yErr, s.dydxOut[:])
	s.last.save(y, dydx, yOut, h)
}

func (s *HighamHall547) step(y, dydx []float64, h float64, yOut, yErr, dydxOut []float64) {
	const (
		b21 = 2.0 / 9.0
		b31 = 1.0 / 12.0
		b32 = 1.0 / 4.0
		b41 = 1.0 / 8.0
		b43 = 3.0 / 8.0
		b51 = 91.0 / 500.0
		b52 = -27.0 / 100.0
		b53 = 78.0 / 125.0
		b54 = 8.0 / 125.0
		b61 = -11.0 / 20.0
		b62 = 27.0 / 20.0
		b63 = 12.0 / 5.0
		b64 = -36.0 / 5.0
		b65 = 5.0
		b71 = 1.0 / 12.0
		b73 = 27.0 / 32.0
		b74 = -4.0 / 3.0
		b75 = 125.0 / 96.0
		b76 = 5.0 / 48.0

		dc1 = b71 - 2.0/15.0
		dc3 = b73 - 27.0/80.0
		dc4 = b74 + 2.0/15.0
		dc5 = b75 - 25.0/48.0
		dc6 = b76 - 1.0/24.0
		dc7 = -1.0 / 10.0
	)

	n := s.nvar
	k1 := dydx
	s.load(&s.yt, y)

	for i := 0; i < n; i++ {
		s.yt[i] = y[i] + h*b21*k1[i]
	}
	s.rhs(s.yt[:], s.k2[:])

	for i := 0; i < n; i++ {
		s.yt[i] = y[i] + h*(b31*k1[i]+b32*s.k2[i])
	}
	s.rhs(s.yt[:], s.k3[:])

	for i := 0; i < n; i++ {
		s.yt[i] = y[i] + h*(b41*k1[i]+b43*s.k3[i])
	}
	s.rhs(s.yt[:], s.k4[:])

	for i := 0; i < n; i++ {
		s.yt[i] = y[i] + h*(b51*k1[i]+b52*s.k2[i]+b53*s.k3[i]+b54*s.k4[i])
	}
	s.rhs(s.yt[:], s.k5[:])

	for i := 0; i < n; i++ {
		s.yt[i] = y[i] + h*(b61*k1[i]+b62*s.k2[i]+b63*s.k3[i]+b64*s.k4[i]+b65*s.k5[i])
	}
	s.rhs(s.yt[:], s.k6[:])

	for i := 0; i < n; i++ {
		yOut[i] = y[i] + h*(b71*k1[i]+b73*s.k3[i]+b74*s.k4[i]+b75*s.k5[i]+b76*s.k6[i])
	}
	s.carry(y, yOut)

	s.rhs(yOut, dydxOut)

	for i := 0; i < n; i++ {
		yErr[i] = h * (dc1*k1[i] + dc3*s.k3[i] + dc4*s.k4[i] + dc5*s.k5[i] + dc6*s.k6[i] + dc7*dydxOut[i])
	}
}

// LastDerivative copies the derivative at the end of the last step.
func (s *HighamHall547) LastDerivative(dydx []float64) {
	copy(dydx, s.dydxOut[:s.nvar])
}

// Interpolate re-steps from the start of the last step to fraction tau.
func (s *HighamHall547) Interpolate(tau float64, yOut []float64) {
	l := &s.last
	s.step(l.yIn[:], l.dydxIn[:], tau*l.h, yOut, s.midErr[:], s.midDydx[:])
}

func (s *HighamHall547) DistChord() float64 {
	s.Interpolate(0.5, s.mid[:])
	return chord(s.last.yIn[:], s.mid[:], s.last.yOut[:])
}
