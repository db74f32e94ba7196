package optim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fieldprop/internal/config"
	"github.com/san-kum/fieldprop/internal/experiment"
)

func baseConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Length = 500
	cfg.Segment = 100
	return cfg
}

func TestGridSearchTolerance(t *testing.T) {
	g := NewGridSearch([]string{"tolerance"}, [][]float64{{1e-4, 1e-6, 1e-8}})

	best, score, trials, err := g.Search(context.Background(),
		Configure(baseConfig(), experiment.NewRegistry()), CheapestWithin(1))
	require.NoError(t, err)
	require.Len(t, trials, 3)
	assert.Contains(t, []float64{1e-4, 1e-6, 1e-8}, best["tolerance"])

	for _, tr := range trials {
		require.NoError(t, tr.Err)
		assert.LessOrEqual(t, score, tr.Score)
	}
	// looser tolerance is never more expensive
	assert.LessOrEqual(t, trials[0].Score, trials[2].Score)
}

func TestGridSearchCombinations(t *testing.T) {
	g := NewGridSearch([]string{"tolerance", "safety"}, [][]float64{{1e-5, 1e-7}, {0.8, 0.9}})

	var seen []map[string]float64
	build := Configure(baseConfig(), experiment.NewRegistry())
	_, _, trials, err := g.Search(context.Background(), func(p map[string]float64) (*experiment.Experiment, error) {
		seen = append(seen, p)
		return build(p)
	}, func(res *experiment.Result) float64 { return float64(res.Evaluations) })
	require.NoError(t, err)
	assert.Len(t, trials, 4)
	assert.Equal(t, map[string]float64{"tolerance": 1e-5, "safety": 0.8}, seen[0])
	assert.Equal(t, map[string]float64{"tolerance": 1e-7, "safety": 0.9}, seen[3])
}

func TestGridSearchNoCandidate(t *testing.T) {
	g := NewGridSearch([]string{"tolerance"}, [][]float64{{1e-6}})
	_, score, trials, err := g.Search(context.Background(),
		Configure(baseConfig(), experiment.NewRegistry()), CheapestWithin(0))
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.True(t, math.IsInf(score, 1))
	assert.Len(t, trials, 1)
}

func TestGridSearchBadParameter(t *testing.T) {
	g := NewGridSearch([]string{"gain"}, [][]float64{{1}})
	_, _, trials, err := g.Search(context.Background(),
		Configure(baseConfig(), experiment.NewRegistry()), CheapestWithin(1))
	assert.ErrorIs(t, err, ErrNoCandidate)
	require.Len(t, trials, 1)
	assert.EqualError(t, trials[0].Err, "unknown parameter: gain")

	g = NewGridSearch([]string{"tolerance", "safety"}, [][]float64{{1e-6}})
	_, _, _, err = g.Search(context.Background(), Configure(baseConfig(), experiment.NewRegistry()), CheapestWithin(1))
	assert.Error(t, err)
}

func TestGridSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGridSearch([]string{"tolerance"}, [][]float64{{1e-6, 1e-7}})
	_, _, _, err := g.Search(ctx, Configure(baseConfig(), experiment.NewRegistry()), CheapestWithin(1))
	assert.ErrorIs(t, err, context.Canceled)
}
