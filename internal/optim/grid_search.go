// Package optim tunes driver parameters by exhaustive search over a grid.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fieldprop/internal/config"
	"github.com/san-kum/fieldprop/internal/experiment"
)

// ErrNoCandidate is returned when no grid point gives a finite score.
var ErrNoCandidate = errors.New("optim: no parameter set satisfied the objective")

// Objective scores a finished run. Lower is better; +Inf rejects the run.
type Objective func(res *experiment.Result) float64

// CheapestWithin prefers the run with the fewest equation evaluations among
// completed runs whose helix deviation stays within maxDeviation mm.
func CheapestWithin(maxDeviation float64) Objective {
	return func(res *experiment.Result) float64 {
		dev, ok := res.Metrics["helix_deviation"]
		if !res.Ok || !ok || dev > maxDeviation {
			return math.Inf(1)
		}
		return float64(res.Evaluations)
	}
}

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs every combination of parameter values and returns the best
// parameters with their score, and all trials in grid order. A failing
// build or run is recorded in its trial and scores +Inf.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	var trials []Trial
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, buildExperiment, objective, &trials); err != nil {
		return nil, 0, trials, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, t := range trials {
		if t.Score < best {
			best = t.Score
			bestParams = t.Params
		}
	}
	if bestParams == nil {
		return nil, best, trials, ErrNoCandidate
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		trial := Trial{Params: current, Score: math.Inf(1)}
		exp, err := buildExperiment(current)
		if err == nil {
			var res *experiment.Result
			res, err = exp.Run(ctx)
			if err == nil {
				trial.Score = objective(res)
			}
		}
		trial.Err = err
		*trials = append(*trials, trial)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, trials); err != nil {
			return err
		}
	}
	return nil
}

// Configure returns a builder that applies grid parameters to a copy of
// base. Known parameters are tolerance, safety, min_step, segment and
// first_step.
func Configure(base *config.Config, reg *experiment.Registry) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := *base
		for name, v := range params {
			switch name {
			case "tolerance":
				cfg.Tolerance = v
			case "safety":
				cfg.Driver.Safety = v
			case "min_step":
				cfg.Driver.MinStep = v
			case "segment":
				cfg.Segment = v
			case "first_step":
				cfg.FirstStep = v
			default:
				return nil, fmt.Errorf("unknown parameter: %s", name)
			}
		}
		return experiment.New(&cfg, reg)
	}
}
