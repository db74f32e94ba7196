// Package experiment wires configured runs together: it builds steppers and
// drivers by name, advances tracks in segments and compares steppers on
// independent copies of the same run.
package experiment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fieldprop/internal/config"
	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
	"github.com/san-kum/fieldprop/internal/metrics"
)

// Experiment is one configured run with its own field, equation and driver.
type Experiment struct {
	cfg    *config.Config
	eq     *equations.Counter
	runner *Runner
}

func New(cfg *config.Config, reg *Registry) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eq := equations.NewCounter(equations.NewMagEquation(cfg.FieldModel()))
	drv, err := reg.Driver(cfg.Driver.Kind, cfg.Stepper, eq, dynamo.DefaultIntegrated, cfg.DriverConfig())
	if err != nil {
		return nil, err
	}

	runner := NewRunner(drv).WithLogger(reg.logger)
	runner.FirstStep = cfg.FirstStep
	runner.AddMetric(metrics.NewMomentumDrift())
	if cfg.Field.Kind == "uniform" {
		runner.AddMetric(metrics.NewHelix(cfg.UniformB()))
	}

	return &Experiment{cfg: cfg, eq: eq, runner: runner}, nil
}

func (e *Experiment) Driver() driver.Driver { return e.runner.Driver() }

// Run integrates a fresh track built from the configuration.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	e.eq.Reset()
	res, err := e.runner.Run(ctx, e.cfg.Track(), e.cfg.Length, e.cfg.Segment, e.cfg.Tolerance)
	if res != nil {
		res.Evaluations = e.eq.Calls()
	}
	return res, err
}

// Outcome summarises one stepper of a comparison.
type Outcome struct {
	Name        string
	Track       *dynamo.FieldTrack
	Stats       driver.Stats
	Deviation   metrics.Deviation // from the exact helix, uniform fields only
	Evaluations int
	Elapsed     time.Duration
	Ok          bool
}

// Compare runs cfg once per stepper name, each on its own goroutine with
// its own field, equation, driver and track. Outcomes are in the order of
// names. The first failure cancels the remaining runs.
func Compare(ctx context.Context, reg *Registry, cfg *config.Config, names []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)

	for i, name := range names {
		c := *cfg
		c.Stepper = name
		exp, err := New(&c, reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		g.Go(func() error {
			res, err := exp.Run(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			o := Outcome{
				Name:        name,
				Track:       res.Track,
				Stats:       res.Stats,
				Evaluations: res.Evaluations,
				Elapsed:     res.Elapsed,
				Ok:          res.Ok,
			}
			if c.Field.Kind == "uniform" {
				o.Deviation = metrics.HelixDeviation(c.Track(), res.Track, c.UniformB())
			}
			outcomes[i] = o
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
