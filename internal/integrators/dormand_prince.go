package integrators

import "github.com/san-kum/fieldprop/internal/dynamo"

// Dormand-Prince 5(4) tableau.
var (
	dpB21 = 1.0 / 5.0
	dpB31 = 3.0 / 40.0
	dpB32 = 9.0 / 40.0
	dpB41 = 44.0 / 45.0
	dpB42 = -56.0 / 15.0
	dpB43 = 32.0 / 9.0
	dpB51 = 19372.0 / 6561.0
	dpB52 = -25360.0 / 2187.0
	dpB53 = 64448.0 / 6561.0
	dpB54 = -212.0 / 729.0
	dpB61 = 9017.0 / 3168.0
	dpB62 = -355.0 / 33.0
	dpB63 = 46732.0 / 5247.0
	dpB64 = 49.0 / 176.0
	dpB65 = -5103.0 / 18656.0

	dpC1 = 35.0 / 384.0
	dpC3 = 500.0 / 1113.0
	dpC4 = 125.0 / 192.0
	dpC5 = -2187.0 / 6784.0
	dpC6 = 11.0 / 84.0

	dpDc1 = dpC1 - 5179.0/57600.0
	dpDc3 = dpC3 - 7571.0/16695.0
	dpDc4 = dpC4 - 393.0/640.0
	dpDc5 = dpC5 - -92097.0/339200.0
	dpDc6 = dpC6 - 187.0/2100.0
	dpDc7 = -1.0 / 40.0

	// continuous extension (Hairer & Wanner, dopri5)
	dpD1 = -12715105075.0 / 11282082432.0
	dpD3 = 87487479700.0 / 32700410799.0
	dpD4 = -10690763975.0 / 1880347072.0
	dpD5 = 701980252875.0 / 199316789632.0
	dpD6 = -1453857185.0 / 822651844.0
	dpD7 = 69997945.0 / 29380423.0
)

// DormandPrince745 is the seven-stage Dormand-Prince 5(4) pair. The fifth
// order solution is propagated. The last stage is the derivative at the end
// point, which the caller may reuse for the next step, and together with the
// stored stages it gives a fourth order dense output.
type DormandPrince745 struct {
	base
	last lastStep

	yt                     vec
	k2, k3, k4, k5, k6, k7 vec
	mid                    vec
}

func NewDormandPrince745(eq dynamo.Equation, nvar int) *DormandPrince745 {
	return &DormandPrince745{base: newBase(eq, nvar)}
}

func (d *DormandPrince745) Order() int { return 4 }

func (d *DormandPrince745) Step(y, dydx []float64, h float64, yOut, yErr []float64) {
	n := d.nvar
	k1 := dydx
	d.load(&d.yt, y)

	for i := 0; i < n; i++ {
		d.yt[i] = y[i] + h*dpB21*k1[i]
	}
	d.rhs(d.yt[:], d.k2[:])

	for i := 0; i < n; i++ {
		d.yt[i] = y[i] + h*(dpB31*k1[i]+dpB32*d.k2[i])
	}
	d.rhs(d.yt[:], d.k3[:])

	for i := 0; i < n; i++ {
		d.yt[i] = y[i] + h*(dpB41*k1[i]+dpB42*d.k2[i]+dpB43*d.k3[i])
	}
	d.rhs(d.yt[:], d.k4[:])

	for i := 0; i < n; i++ {
		d.yt[i] = y[i] + h*(dpB51*k1[i]+dpB52*d.k2[i]+dpB53*d.k3[i]+dpB54*d.k4[i])
	}
	d.rhs(d.yt[:], d.k5[:])

	for i := 0; i < n; i++ {
		d.yt[i] = y[i] + h*(dpB61*k1[i]+dpB62*d.k2[i]+dpB63*d.k3[i]+dpB64*d.k4[i]+dpB65*d.k5[i])
	}
	d.rhs(d.yt[:], d.k6[:])

	for i := 0; i < n; i++ {
		yOut[i] = y[i] + h*(dpC1*k1[i]+dpC3*d.k3[i]+dpC4*d.k4[i]+dpC5*d.k5[i]+dpC6*d.k6[i])
	}
	d.carry(y, yOut)

	d.rhs(yOut, d.k7[:])

	for i := 0; i < n; i++ {
		yErr[i] = h * (dpDc1*k1[i] + dpDc3*d.k3[i] + dpDc4*d.k4[i] + dpDc5*d.k5[i] + dpDc6*d.k6[i] + dpDc7*d.k7[i])
	}

	d.last.save(y, dydx, yOut, h)
}

// LastDerivative copies the derivative at the end of the last step.
func (d *DormandPrince745) LastDerivative(dydx []float64) {
	copy(dydx, d.k7[:d.nvar])
}

// Interpolate evaluates the last step at fraction tau of its length.
func (d *DormandPrince745) Interpolate(tau float64, yOut []float64) {
	l := &d.last
	h := l.h
	k1 := l.dydxIn[:]
	t1 := 1 - tau
	for i := 0; i < d.nvar; i++ {
		dy := l.yOut[i] - l.yIn[i]
		r3 := h*k1[i] - dy
		r4 := dy - h*d.k7[i] - r3
		r5 := h * (dpD1*k1[i] + dpD3*d.k3[i] + dpD4*d.k4[i] + dpD5*d.k5[i] + dpD6*d.k6[i] + dpD7*d.k7[i])
		yOut[i] = l.yIn[i] + tau*(dy+t1*(r3+tau*(r4+t1*r5)))
	}
	d.carry(l.yIn[:], yOut)
}

func (d *DormandPrince745) DistChord() float64 {
	d.Interpolate(0.5, d.mid[:])
	return chord(d.last.yIn[:], d.mid[:], d.last.yOut[:])
}
