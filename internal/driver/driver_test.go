package driver_test

import (
	"errors"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
	"github.com/san-kum/fieldprop/internal/integrators"
)

const (
	momentum = 100 * equations.MeV
	mass     = 0.511 * equations.MeV
)

var (
	field  = r3.Vec{Z: 1 * equations.Tesla}
	radius = momentum / (equations.CLight * 1 * equations.Tesla)
)

type driverCase struct {
	name string
	make func(eq *equations.MagEquation, cfg driver.Config) driver.Driver
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func magInt(s dynamo.Stepper, cfg driver.Config) *driver.MagIntDriver {
	return driver.NewMagIntDriver(s, cfg).WithLogger(testLogger())
}

var driverCases = []driverCase{
	{"mag/dormand-prince", func(eq *equations.MagEquation, cfg driver.Config) driver.Driver {
		return magInt(integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated), cfg)
	}},
	{"mag/cash-karp", func(eq *equations.MagEquation, cfg driver.Config) driver.Driver {
		return magInt(integrators.NewCashKarp(eq, dynamo.DefaultIntegrated), cfg)
	}},
	{"mag/higham-hall", func(eq *equations.MagEquation, cfg driver.Config) driver.Driver {
		return magInt(integrators.NewHighamHall547(eq, dynamo.DefaultIntegrated), cfg)
	}},
	{"mag/rk4-doubling", func(eq *equations.MagEquation, cfg driver.Config) driver.Driver {
		return magInt(integrators.NewStepDoubling(integrators.NewClassicalRK4(eq, dynamo.DefaultIntegrated)), cfg)
	}},
	{"bulirsch-stoer", func(eq *equations.MagEquation, cfg driver.Config) driver.Driver {
		return driver.NewBulirschStoerDriver(eq, dynamo.DefaultIntegrated, cfg).WithLogger(testLogger())
	}},
}

func newTrack() *dynamo.FieldTrack {
	return dynamo.NewFieldTrack(r3.Vec{}, r3.Vec{Y: momentum}, 1, mass)
}

func helixPosition(s float64) r3.Vec {
	pos, _ := integrators.Helix(r3.Vec{}, r3.Vec{Y: momentum}, field, equations.CLight, s)
	return pos
}

var _ = Describe("AccurateAdvance", func() {
	for _, tc := range driverCases {
		Context(tc.name, func() {
			var (
				eq  *equations.MagEquation
				drv driver.Driver
			)

			BeforeEach(func() {
				eq = equations.NewMagEquation(equations.NewUniformField(field))
				drv = tc.make(eq, driver.DefaultConfig())
			})

			It("accepts a zero length without touching the track", func() {
				track := newTrack()
				before := *track

				ok, err := drv.AccurateAdvance(track, 0, 1e-6, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(*track).To(Equal(before))
				Expect(drv.Stats().Warnings).To(Equal(1))
			})

			It("rejects a negative length without touching the track", func() {
				track := newTrack()
				before := *track

				ok, err := drv.AccurateAdvance(track, -5, 1e-6, 0)
				Expect(ok).To(BeFalse())
				Expect(errors.Is(err, dynamo.ErrNegativeStep)).To(BeTrue())

				var advErr *dynamo.AdvanceError
				Expect(errors.As(err, &advErr)).To(BeTrue())
				Expect(advErr.Requested).To(Equal(-5.0))
				Expect(*track).To(Equal(before))
			})

			It("rejects a track without momentum", func() {
				track := dynamo.NewFieldTrack(r3.Vec{}, r3.Vec{}, 1, mass)
				_, err := drv.AccurateAdvance(track, 10, 1e-6, 0)
				Expect(err).To(MatchError(dynamo.ErrZeroMomentum))
			})

			It("rejects a corrupt state", func() {
				track := newTrack()
				track.State[0] = math.NaN()
				_, err := drv.AccurateAdvance(track, 10, 1e-6, 0)
				Expect(err).To(MatchError(dynamo.ErrInvalidState))
			})

			It("follows the helix over half a turn", func() {
				track := newTrack()
				length := math.Pi * radius

				ok, err := drv.AccurateAdvance(track, length, 1e-6, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(track.CurveLength).To(BeNumerically("~", length, 1e-9))

				want := helixPosition(length)
				Expect(r3.Norm(r3.Sub(track.Position(), want))).To(BeNumerically("<", 5e-2))
				Expect(track.MomentumMag()).To(BeNumerically("~", momentum, 1e-3))
				Expect(drv.Stats().TotalSteps).To(BeNumerically(">", 1))
				Expect(drv.Stats().Calls).To(Equal(1))
			})

			It("gives the same result for L as for two advances of L/2", func() {
				length := 0.8 * radius

				whole := newTrack()
				ok, err := drv.AccurateAdvance(whole, length, 1e-7, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())

				halves := newTrack()
				for i := 0; i < 2; i++ {
					ok, err = drv.AccurateAdvance(halves, length/2, 1e-7, 0)
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(BeTrue())
				}

				Expect(halves.CurveLength).To(BeNumerically("~", whole.CurveLength, 1e-9))
				Expect(r3.Norm(r3.Sub(whole.Position(), halves.Position()))).To(BeNumerically("<", 1e-3))
				Expect(r3.Norm(r3.Sub(whole.Momentum(), halves.Momentum()))).To(BeNumerically("<", 1e-3))
			})

			It("stops when the step budget is exhausted", func() {
				cfg := driver.DefaultConfig()
				cfg.MaxSteps = 3
				drv = tc.make(eq, cfg)

				track := newTrack()
				length := 20 * 2 * math.Pi * radius
				ok, err := drv.AccurateAdvance(track, length, 1e-10, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(track.CurveLength).To(BeNumerically(">", 0))
				Expect(track.CurveLength).To(BeNumerically("<", length))
				Expect(drv.Stats().Exhausted).To(Equal(1))
			})

			It("uses the initial step hint", func() {
				track := newTrack()
				ok, err := drv.AccurateAdvance(track, 100, 1e-6, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(track.CurveLength).To(BeNumerically("~", 100, 1e-9))
			})
		})
	}

	It("moves in a straight line without a field", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(r3.Vec{}))
		for _, tc := range driverCases {
			drv := tc.make(eq, driver.DefaultConfig())
			track := dynamo.NewFieldTrack(r3.Vec{X: 1}, r3.Vec{X: 0.6 * momentum, Z: 0.8 * momentum}, -1, mass)

			ok, err := drv.AccurateAdvance(track, 1000, 1e-8, 0)
			Expect(err).NotTo(HaveOccurred(), tc.name)
			Expect(ok).To(BeTrue(), tc.name)
			Expect(track.Position().X).To(BeNumerically("~", 601, 1e-6), tc.name)
			Expect(track.Position().Z).To(BeNumerically("~", 800, 1e-6), tc.name)
			Expect(track.Momentum().X).To(BeNumerically("~", 0.6*momentum, 1e-9), tc.name)
		}
	})

	It("takes unchecked steps below the minimum step", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(field))
		cfg := driver.DefaultConfig()
		cfg.MinimumStep = 1000
		drv := magInt(integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated), cfg)

		track := newTrack()
		ok, err := drv.AccurateAdvance(track, 50, 1e-6, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		st := drv.Stats()
		Expect(st.SmallSteps).To(Equal(1))
		Expect(st.InitialSmallSteps).To(Equal(1))
		Expect(st.SumHSmall).To(BeNumerically("~", 50, 1e-12))
		Expect(r3.Norm(r3.Sub(track.Position(), helixPosition(50)))).To(BeNumerically("<", 1e-4))
	})

	It("advances by the step it tried when the step size underflows", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(field))
		drv := magInt(integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated), driver.DefaultConfig())

		// 1e17 + 1 == 1e17, so shrinking 10 mm to 1 mm underflows
		track := newTrack()
		track.CurveLength = 1e17
		start := track.Position()

		ok, err := drv.AccurateAdvance(track, 1000, 1e-30, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		st := drv.Stats()
		Expect(st.Warnings).To(BeNumerically(">=", 1))
		Expect(st.SumHLarge).To(BeNumerically("~", 10, 1e-9))
		Expect(r3.Norm(r3.Sub(track.Position(), start))).To(BeNumerically("~", st.SumHLarge, 1e-3))
	})

	It("keeps going with the best attempt when extrapolation does not converge", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(field))
		cfg := driver.DefaultConfig()
		cfg.MaxRetries = 1
		drv := driver.NewBulirschStoerDriver(eq, dynamo.DefaultIntegrated, cfg).WithLogger(testLogger())

		track := newTrack()
		length := 2 * math.Pi * radius
		_, err := drv.AccurateAdvance(track, length, 1e-10, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(drv.Stats().NonConverged).To(BeNumerically(">", 0))
		Expect(track.CurveLength).To(BeNumerically(">", 0))
	})
})

var _ = Describe("QuickAdvance", func() {
	for _, tc := range driverCases {
		It("takes one step and reports the chord distance for "+tc.name, func() {
			eq := equations.NewMagEquation(equations.NewUniformField(field))
			drv := tc.make(eq, driver.DefaultConfig())

			track := newTrack()
			track.CurveLength = 7
			dydx := make([]float64, dynamo.MaxStateVars)
			drv.GetDerivatives(track, dydx)

			theta := 0.1
			h := theta * radius
			missDist, dyerr, ok := drv.QuickAdvance(track, dydx, h)
			Expect(ok).To(BeTrue())
			Expect(track.CurveLength).To(BeNumerically("~", 7+h, 1e-12))
			Expect(missDist).To(BeNumerically("~", radius*(1-math.Cos(theta/2)), 0.02))
			Expect(dyerr).To(BeNumerically(">=", 0))
			Expect(dyerr).To(BeNumerically("<", 0.1))
			Expect(r3.Norm(r3.Sub(track.Position(), helixPosition(h)))).To(BeNumerically("<", 0.05))
		})
	}

	It("refuses a negative step", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(field))
		drv := magInt(integrators.NewCashKarp(eq, dynamo.DefaultIntegrated), driver.DefaultConfig())
		track := newTrack()
		dydx := make([]float64, dynamo.MaxStateVars)

		_, _, ok := drv.QuickAdvance(track, dydx, -1)
		Expect(ok).To(BeFalse())
		Expect(track.CurveLength).To(BeZero())
	})
})

var _ = Describe("derivative reuse", func() {
	fsal := []struct {
		name string
		make func(eq dynamo.Equation) dynamo.Stepper
	}{
		{"dormand-prince", func(eq dynamo.Equation) dynamo.Stepper {
			return integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated)
		}},
		{"higham-hall", func(eq dynamo.Equation) dynamo.Stepper {
			return integrators.NewHighamHall547(eq, dynamo.DefaultIntegrated)
		}},
	}

	for _, tc := range fsal {
		It("evaluates six times per step with "+tc.name, func() {
			eq := equations.NewCounter(equations.NewMagEquation(equations.NewUniformField(r3.Vec{})))
			drv := magInt(tc.make(eq), driver.DefaultConfig())

			ok, err := drv.AccurateAdvance(newTrack(), 1000, 1e-8, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			steps := drv.Stats().TotalSteps
			Expect(steps).To(BeNumerically(">", 1))
			Expect(eq.Calls()).To(Equal(6*steps + 1))
		})
	}

	It("does not carry a derivative into the next advance", func() {
		eq := equations.NewCounter(equations.NewMagEquation(equations.NewUniformField(r3.Vec{})))
		drv := magInt(integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated), driver.DefaultConfig())

		track := newTrack()
		_, _ = drv.AccurateAdvance(track, 100, 1e-8, 0)
		Expect(eq.Calls()).To(Equal(7))

		eq.Reset()
		_, _ = drv.AccurateAdvance(track, 100, 1e-8, 0)
		Expect(eq.Calls()).To(Equal(7))
	})
})

var _ = Describe("GetDerivatives", func() {
	It("returns the direction of motion", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(field))
		drv := magInt(integrators.NewCashKarp(eq, dynamo.DefaultIntegrated), driver.DefaultConfig())

		dydx := make([]float64, dynamo.MaxStateVars)
		drv.GetDerivatives(newTrack(), dydx)
		Expect(dydx[0]).To(BeZero())
		Expect(dydx[1]).To(BeNumerically("~", 1, 1e-15))
		Expect(dydx[2]).To(BeZero())
		Expect(dydx[3]).To(BeNumerically(">", 0))
	})
})

var _ = Describe("MagIntDriver parameters", func() {
	var (
		eq  *equations.MagEquation
		drv *driver.MagIntDriver
	)

	BeforeEach(func() {
		eq = equations.NewMagEquation(equations.NewUniformField(field))
		drv = magInt(integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated), driver.DefaultConfig())
	})

	It("derives the exponents from the stepper order", func() {
		Expect(drv.Safety()).To(Equal(0.9))
		Expect(drv.Pshrnk()).To(Equal(-0.25))
		Expect(drv.Pgrow()).To(Equal(-0.2))
		Expect(drv.Errcon()).To(BeNumerically("~", math.Pow(5/0.9, -5), 1e-15))
	})

	It("re-derives them for a new stepper", func() {
		drv.RenewStepperAndAdjust(integrators.NewStepDoubling(integrators.NewSimpleRunge(eq, dynamo.DefaultIntegrated)))
		Expect(drv.Pshrnk()).To(Equal(-0.5))
		Expect(drv.Pgrow()).To(BeNumerically("~", -1.0/3, 1e-15))
		Expect(drv.Stepper().Order()).To(Equal(2))
	})

	It("computes the next step size", func() {
		Expect(drv.ComputeNewStepSize(16, 10)).To(BeNumerically("~", 0.9*10*0.5, 1e-12))
		Expect(drv.ComputeNewStepSize(1.0/32, 10)).To(BeNumerically("~", 0.9*10*2, 1e-12))
		Expect(drv.ComputeNewStepSize(0, 10)).To(Equal(50.0))

		Expect(drv.ComputeNewStepSizeWithinLimits(1e8, 10)).To(BeNumerically("~", 1, 1e-12))
		Expect(drv.ComputeNewStepSizeWithinLimits(1e-9, 10)).To(Equal(50.0))
		Expect(drv.ComputeNewStepSizeWithinLimits(1.0/32, 10)).To(BeNumerically("~", 18, 1e-12))
	})

	It("honours explicit settings", func() {
		drv.SetSafety(0.8)
		Expect(drv.ComputeAndSetErrcon()).To(BeNumerically("~", math.Pow(5/0.8, -5), 1e-15))
		drv.SetPshrnk(-0.3)
		drv.SetPgrow(-0.1)
		drv.SetErrcon(0.5)
		Expect(drv.Pshrnk()).To(Equal(-0.3))
		Expect(drv.Pgrow()).To(Equal(-0.1))
		Expect(drv.Errcon()).To(Equal(0.5))

		drv.ReSetParameters(0.95)
		Expect(drv.Safety()).To(Equal(0.95))
		Expect(drv.Pshrnk()).To(Equal(-0.25))
	})

	It("only accepts a smallest fraction in range", func() {
		drv.SetSmallestFraction(1e-20)
		Expect(drv.SmallestFraction()).To(Equal(1e-12))
		Expect(drv.Stats().Warnings).To(Equal(1))

		drv.SetSmallestFraction(1e-4)
		Expect(drv.SmallestFraction()).To(Equal(1e-12))

		drv.SetSmallestFraction(1e-10)
		Expect(drv.SmallestFraction()).To(Equal(1e-10))
	})

	It("keeps the remaining settings", func() {
		drv.SetHmin(0.5)
		drv.SetMaxNoSteps(42)
		drv.SetVerboseLevel(2)
		Expect(drv.Hmin()).To(Equal(0.5))
		Expect(drv.MaxNoSteps()).To(Equal(42))
		Expect(drv.VerboseLevel()).To(Equal(2))
	})
})

var _ = Describe("Stats", func() {
	It("accumulates and reports", func() {
		a := driver.Stats{Calls: 1, TotalSteps: 10, DyerrMax: 0.5, SumHLarge: 100}
		b := driver.Stats{Calls: 2, TotalSteps: 5, DyerrMax: 0.2, SumHLarge: 50, NonConverged: 1}
		a.Add(b)

		Expect(a.Calls).To(Equal(3))
		Expect(a.TotalSteps).To(Equal(15))
		Expect(a.DyerrMax).To(Equal(0.5))
		Expect(a.SumHLarge).To(Equal(150.0))
		Expect(a.NonConverged).To(Equal(1))
		Expect(a.String()).To(ContainSubstring("steps: total=15"))
	})

	It("resets", func() {
		eq := equations.NewMagEquation(equations.NewUniformField(field))
		drv := magInt(integrators.NewCashKarp(eq, dynamo.DefaultIntegrated), driver.DefaultConfig())
		_, _ = drv.AccurateAdvance(newTrack(), 10, 1e-6, 0)
		Expect(drv.Stats().Calls).To(Equal(1))
		drv.ResetStats()
		Expect(drv.Stats()).To(Equal(driver.Stats{}))
	})
})
