package extrapolation

import (
	"math"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

// KMax is the deepest extrapolation level of the Engine.
const KMax = 8

const (
	stepFac1 = 0.65
	stepFac2 = 0.94
	stepFac3 = 0.02
	stepFac4 = 4.0
	kFac2    = 0.9
)

// ErrorFunc normalises an error estimate for a step of length h from y.
// Values up to 1 are acceptable.
type ErrorFunc func(y, dydx, yErr []float64, h float64) float64

// NewErrorChecker returns the mixed absolute and relative max-norm
// |err_i| / (epsAbs + epsRel*(|y_i| + h|dydx_i|)) over the integrated
// components.
func NewErrorChecker(epsAbs, epsRel float64, nvar int) ErrorFunc {
	return func(y, dydx, yErr []float64, h float64) float64 {
		var e float64
		for i := 0; i < nvar; i++ {
			scale := epsAbs + epsRel*(math.Abs(y[i])+math.Abs(h)*math.Abs(dydx[i]))
			e = math.Max(e, math.Abs(yErr[i])/scale)
		}
		return e
	}
}

// EngineStats counts the work done by an Engine.
type EngineStats struct {
	Steps     int
	Rejected  int
	Substeps  int
	OrderUsed int
}

// Engine is an adaptive-order Bulirsch-Stoer stepper. Each TryStep runs the
// modified midpoint method with 2, 4, 6, ... substeps, extrapolates the
// results to zero substep length, and picks both the next step size and
// the extrapolation depth from the work each level costs.
type Engine struct {
	mm   *ModifiedMidpoint
	nvar int
	err  ErrorFunc

	seq   [KMax + 2]int
	cost  [KMax + 2]int
	coeff [KMax + 1][KMax + 1]float64
	hOpt  [KMax + 2]float64
	work  [KMax + 2]float64

	table [KMax][dynamo.MaxStateVars]float64
	yErr  vec

	kOpt         int
	first        bool
	lastRejected bool

	stats EngineStats
}

func NewEngine(eq dynamo.Equation, nvar int, err ErrorFunc) *Engine {
	e := &Engine{mm: NewModifiedMidpoint(eq, nvar), nvar: nvar, err: err}
	for i := range e.seq {
		e.seq[i] = 2 * (i + 1)
		if i == 0 {
			e.cost[i] = e.seq[i]
		} else {
			e.cost[i] = e.cost[i-1] + e.seq[i]
		}
	}
	for i := 0; i <= KMax; i++ {
		for k := 0; k < i; k++ {
			r := float64(e.seq[i]) / float64(e.seq[k])
			e.coeff[i][k] = 1 / (r*r - 1)
		}
	}
	e.Reset()
	return e
}

// Reset forgets the order and step history.
func (e *Engine) Reset() {
	e.kOpt = 4
	e.first = true
	e.lastRejected = false
}

func (e *Engine) SetErrorFunc(err ErrorFunc) { e.err = err }

func (e *Engine) Equation() dynamo.Equation { return e.mm.eq }

func (e *Engine) NumIntegrated() int { return e.nvar }

// CurrentOrder returns the extrapolation level the engine will aim for
// on the next step.
func (e *Engine) CurrentOrder() int { return e.kOpt }

func (e *Engine) Stats() EngineStats { return e.stats }

func (e *Engine) ResetStats() { e.stats = EngineStats{} }

// TryStep attempts a step of length h. On success yOut holds the
// extrapolated state at y+h. Either way hNext is the proposed next step;
// after a rejection the caller retries with it.
func (e *Engine) TryStep(y, dydx []float64, h float64, yOut []float64) (ok bool, hNext float64) {
	reject := true
	newH := h
	e.work[0] = 0

	for k := 0; k <= e.kOpt+1; k++ {
		if k == 0 {
			e.mm.Step(y, dydx, h, e.seq[0], yOut, nil)
			e.stats.Substeps += e.seq[0]
			continue
		}

		e.mm.Step(y, dydx, h, e.seq[k], e.table[k-1][:], nil)
		e.stats.Substeps += e.seq[k]
		e.extrapolate(k, yOut)
		for i := 0; i < e.nvar; i++ {
			e.yErr[i] = yOut[i] - e.table[0][i]
		}
		errNorm := e.err(y, dydx, e.yErr[:], h)
		if math.IsNaN(errNorm) {
			errNorm = math.Inf(1)
		}
		e.hOpt[k] = e.calcHOpt(h, errNorm, k)
		e.work[k] = float64(e.cost[k]) / e.hOpt[k]

		if k == e.kOpt-1 || e.first {
			if errNorm < 1 {
				reject = false
				if e.work[k] < kFac2*e.work[k-1] || e.kOpt <= 2 {
					e.kOpt = min(KMax-1, max(2, k+1))
					newH = e.hOpt[k] * float64(e.cost[k+1]) / float64(e.cost[k])
				} else {
					e.kOpt = min(KMax-1, max(2, k))
					newH = e.hOpt[k]
				}
				e.stats.OrderUsed = k
				break
			} else if e.shouldReject(errNorm, k) && !e.first {
				reject = true
				newH = e.hOpt[k]
				break
			}
		}

		if k == e.kOpt {
			if errNorm < 1 {
				reject = false
				switch {
				case e.work[k-1] < kFac2*e.work[k]:
					e.kOpt = max(2, e.kOpt-1)
					newH = e.hOpt[e.kOpt]
				case e.work[k] < kFac2*e.work[k-1] && !e.lastRejected:
					e.kOpt = min(KMax-1, e.kOpt+1)
					newH = e.hOpt[k] * float64(e.cost[e.kOpt]) / float64(e.cost[k])
				default:
					newH = e.hOpt[e.kOpt]
				}
				e.stats.OrderUsed = k
				break
			} else if e.shouldReject(errNorm, k) {
				reject = true
				newH = e.hOpt[e.kOpt]
				break
			}
		}

		if k == e.kOpt+1 {
			if errNorm < 1 {
				reject = false
				if e.work[k-2] < kFac2*e.work[k-1] {
					e.kOpt = max(2, e.kOpt-1)
				}
				if e.work[k] < kFac2*e.work[e.kOpt] && !e.lastRejected {
					e.kOpt = min(KMax-1, k)
				}
				e.stats.OrderUsed = k
			} else {
				reject = true
			}
			newH = e.hOpt[e.kOpt]
			break
		}
	}

	hNext = h
	if !e.lastRejected || math.Abs(newH) < math.Abs(h) {
		hNext = newH
	}
	e.lastRejected = reject
	e.first = false

	e.stats.Steps++
	if reject {
		e.stats.Rejected++
	}
	return !reject, hNext
}

// extrapolate folds the newest midpoint result table[k-1] into the
// Aitken-Neville tableau and writes the estimate of order 2k+2 to out.
func (e *Engine) extrapolate(k int, out []float64) {
	c := &e.coeff[k]
	for j := k - 1; j > 0; j-- {
		for i := 0; i < e.nvar; i++ {
			e.table[j-1][i] = (1+c[j])*e.table[j][i] - c[j]*e.table[j-1][i]
		}
	}
	for i := 0; i < e.nvar; i++ {
		out[i] = (1+c[0])*e.table[0][i] - c[0]*out[i]
	}
}

func (e *Engine) calcHOpt(h, errNorm float64, k int) float64 {
	expo := 1 / float64(2*k+1)
	facMin := math.Pow(stepFac3, expo)
	var fac float64
	if errNorm == 0 {
		fac = 1 / facMin
	} else {
		fac = stepFac2 / math.Pow(errNorm/stepFac1, expo)
		fac = math.Max(facMin/stepFac4, math.Min(1/facMin, fac))
	}
	return h * fac
}

func (e *Engine) shouldReject(errNorm float64, k int) bool {
	s0 := float64(e.seq[0])
	switch k {
	case e.kOpt - 1:
		d := float64(e.seq[e.kOpt]*e.seq[e.kOpt+1]) / (s0 * s0)
		return errNorm > d*d
	case e.kOpt:
		d := float64(e.seq[e.kOpt]) / s0
		return errNorm > d*d
	default:
		return errNorm > 1
	}
}
