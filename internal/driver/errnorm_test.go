package driver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/fieldprop/internal/dynamo"
)

func TestRelativeError(t *testing.T) {
	y := []float64{0, 0, 0, 0, 0, 100, 0, 0, 0, 0, 0, 0}

	tests := []struct {
		name     string
		yErr     []float64
		h, hmin  float64
		nvar     int
		wantPos2 float64
		wantVel2 float64
	}{
		{
			name:     "position error relative to step",
			yErr:     []float64{3e-6, 4e-6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			h:        10,
			hmin:     0.01,
			nvar:     dynamo.DefaultIntegrated,
			wantPos2: 0.25, // (5e-6 / (1e-6*10))^2
		},
		{
			name:     "minimum step floors the position scale",
			yErr:     []float64{1e-9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			h:        0.001,
			hmin:     0.01,
			nvar:     dynamo.DefaultIntegrated,
			wantPos2: 1e-2, // (1e-9 / (1e-6*0.01))^2
		},
		{
			name:     "momentum error relative to |p|",
			yErr:     []float64{0, 0, 0, 2e-4, 0, 0, 0, 0, 0, 0, 0, 0},
			h:        10,
			hmin:     0.01,
			nvar:     dynamo.DefaultIntegrated,
			wantVel2: 4, // (2e-4/100/1e-6)^2
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := relativeError(y, tt.yErr, tt.h, tt.hmin, 1e-6, tt.nvar)
			assert.InDelta(t, tt.wantPos2, e.pos2, 1e-9)
			assert.InDelta(t, tt.wantVel2, e.vel2, 1e-9)
			assert.Equal(t, math.Max(e.pos2, e.vel2), e.max2())
		})
	}
}

func TestRelativeError_Spin(t *testing.T) {
	y := []float64{0, 0, 0, 0, 0, 100, 0, 0, 0, 0, 0, 0.5}
	yErr := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1e-6}

	withSpin := relativeError(y, yErr, 1, 0.01, 1e-6, dynamo.MaxStateVars)
	assert.InDelta(t, 4, withSpin.spin2, 1e-9)
	assert.InDelta(t, 4, withSpin.max2(), 1e-9)

	noSpin := relativeError(y, yErr, 1, 0.01, 1e-6, dynamo.DefaultIntegrated)
	assert.Zero(t, noSpin.spin2)

	y[11] = 0
	assert.Zero(t, relativeError(y, yErr, 1, 0.01, 1e-6, dynamo.MaxStateVars).spin2)
}

func TestStepParams(t *testing.T) {
	p := newStepParams(0.9, 4)
	assert.Equal(t, -0.25, p.pshrnk)
	assert.Equal(t, -0.2, p.pgrow)

	// growth is capped at the factor 5 reached at errcon
	assert.InDelta(t, maxSteppingIncrease, p.newStepSize(p.errcon, 1), 1e-9)

	mid := newStepParams(0.9, midpointOrder)
	assert.Equal(t, -0.5, mid.pshrnk)
	assert.InDelta(t, 0.9*4*0.5, mid.newStepSize(4, 4), 1e-12)
}
