package experiment

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
	"github.com/san-kum/fieldprop/internal/extrapolation"
	"github.com/san-kum/fieldprop/internal/integrators"
)

// BulirschStoer names the extrapolation driver, which needs no stepper.
const BulirschStoer = "bulirsch-stoer"

// StepperFactory builds a stepper for eq advancing nvar components.
type StepperFactory func(eq dynamo.Equation, nvar int) (dynamo.Stepper, error)

// Registry maps stepper names to factories and builds drivers around them.
// It is safe for concurrent lookups once populated.
type Registry struct {
	steppers map[string]StepperFactory
	logger   *slog.Logger
}

func NewRegistry() *Registry {
	r := &Registry{
		steppers: make(map[string]StepperFactory),
		logger:   slog.Default(),
	}

	r.steppers["euler"] = fixed(func(eq dynamo.Equation, n int) dynamo.FixedStepper {
		return integrators.NewExplicitEuler(eq, n)
	})
	r.steppers["runge"] = fixed(func(eq dynamo.Equation, n int) dynamo.FixedStepper {
		return integrators.NewSimpleRunge(eq, n)
	})
	r.steppers["rk4"] = fixed(func(eq dynamo.Equation, n int) dynamo.FixedStepper {
		return integrators.NewClassicalRK4(eq, n)
	})
	r.steppers["chawla-sharma"] = func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		return integrators.NewExtrapolatedDoubling(integrators.NewChawlaSharmaRKN(eq, n)), nil
	}
	r.steppers["cash-karp"] = func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		return integrators.NewCashKarp(eq, n), nil
	}
	r.steppers["dormand-prince"] = func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		return integrators.NewDormandPrince745(eq, n), nil
	}
	r.steppers["higham-hall"] = func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		return integrators.NewHighamHall547(eq, n), nil
	}
	r.steppers["richardson"] = func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		return extrapolation.NewRichardsonStepper(eq, n), nil
	}
	r.steppers["helix"] = func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		mag, ok := equations.AsMagEquation(eq)
		if !ok {
			return nil, fmt.Errorf("helix stepper needs a magnetic equation, got %T", eq)
		}
		return integrators.NewExactHelix(mag, n).WithEquation(eq), nil
	}

	return r
}

func fixed(build func(dynamo.Equation, int) dynamo.FixedStepper) StepperFactory {
	return func(eq dynamo.Equation, n int) (dynamo.Stepper, error) {
		return integrators.NewStepDoubling(build(eq, n)), nil
	}
}

// WithLogger sets the logger handed to the drivers the registry builds.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	r.logger = l
	return r
}

// Register adds or replaces a stepper factory.
func (r *Registry) Register(name string, f StepperFactory) {
	r.steppers[name] = f
}

func (r *Registry) Stepper(name string, eq dynamo.Equation, nvar int) (dynamo.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	if err := checkNvar(nvar); err != nil {
		return nil, err
	}
	return fn(eq, nvar)
}

// Driver builds a driver of the given kind. Kind "mag" wraps the named
// stepper in a MagIntDriver; kind "bs", or the stepper name BulirschStoer,
// builds a BulirschStoerDriver.
func (r *Registry) Driver(kind, stepper string, eq dynamo.Equation, nvar int, cfg driver.Config) (driver.Driver, error) {
	if stepper == BulirschStoer {
		kind = "bs"
	}
	switch kind {
	case "bs":
		if err := checkNvar(nvar); err != nil {
			return nil, err
		}
		return driver.NewBulirschStoerDriver(eq, nvar, cfg).WithLogger(r.logger), nil
	case "mag", "":
		s, err := r.Stepper(stepper, eq, nvar)
		if err != nil {
			return nil, err
		}
		return driver.NewMagIntDriver(s, cfg).WithLogger(r.logger), nil
	default:
		return nil, fmt.Errorf("unknown driver kind: %s", kind)
	}
}

// ListSteppers returns the registered stepper names plus BulirschStoer,
// sorted.
func (r *Registry) ListSteppers() []string {
	names := make([]string, 0, len(r.steppers)+1)
	for name := range r.steppers {
		names = append(names, name)
	}
	names = append(names, BulirschStoer)
	sort.Strings(names)
	return names
}

func checkNvar(nvar int) error {
	if nvar < dynamo.DefaultIntegrated || nvar > dynamo.MaxStateVars {
		return fmt.Errorf("%d integrated variables: %w", nvar, dynamo.ErrDimensionMismatch)
	}
	return nil
}
