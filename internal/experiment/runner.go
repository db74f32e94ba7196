package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/metrics"
)

// Point is the track state at the end of one segment.
type Point struct {
	S     float64 `json:"s"`
	Pos   r3.Vec  `json:"pos"`
	Mom   r3.Vec  `json:"mom"`
	Chord float64 `json:"chord"` // straight distance covered by the segment
	Ok    bool    `json:"ok"`
}

type Result struct {
	Points      []Point
	Track       *dynamo.FieldTrack
	Stats       driver.Stats
	Metrics     map[string]float64
	Evaluations int
	Elapsed     time.Duration
	Ok          bool
}

// Runner advances a track in fixed segments, the way a navigator hands a
// driver one geometry step at a time.
type Runner struct {
	drv     driver.Driver
	metrics []metrics.Metric
	logger  *slog.Logger

	// FirstStep is passed to every advance as the initial trial step.
	FirstStep float64
}

func NewRunner(drv driver.Driver) *Runner {
	return &Runner{drv: drv, logger: slog.Default()}
}

func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	r.logger = l
	return r
}

func (r *Runner) AddMetric(m metrics.Metric) {
	r.metrics = append(r.metrics, m)
}

func (r *Runner) Driver() driver.Driver { return r.drv }

// Run advances track by length with relative accuracy eps, in segments of
// at most segment (the whole length when segment is not positive). The
// track is observed before the first and after every segment. Run stops at
// the first segment the driver fails to complete and reports Ok false.
//
// On cancellation the partial result is returned with the context error.
func (r *Runner) Run(ctx context.Context, track *dynamo.FieldTrack, length, segment, eps float64) (*Result, error) {
	if length < 0 {
		return nil, fmt.Errorf("run length %g: %w", length, dynamo.ErrNegativeStep)
	}
	if segment <= 0 || segment > length {
		segment = length
	}

	res := &Result{Track: track, Metrics: make(map[string]float64), Ok: true}
	for _, m := range r.metrics {
		m.Reset()
	}
	r.observe(res, track, 0, true)

	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		res.Stats = r.drv.Stats()
		for _, m := range r.metrics {
			res.Metrics[m.Name()] = m.Value()
		}
	}()

	done := 0.0
	for i := 1; done < length; i++ {
		if err := ctx.Err(); err != nil {
			res.Ok = false
			return res, fmt.Errorf("run stopped at s=%g: %w", done, err)
		}

		target := math.Min(length, float64(i)*segment)
		h := target - done
		from := track.Position()

		ok, err := r.drv.AccurateAdvance(track, h, eps, r.FirstStep)
		if err != nil {
			res.Ok = false
			return res, fmt.Errorf("segment %d: %w", i, err)
		}
		r.observe(res, track, r3.Norm(r3.Sub(track.Position(), from)), ok)

		if !ok {
			r.logger.Warn("segment not completed",
				"segment", i, "s", track.CurveLength, "requested", h)
			res.Ok = false
			break
		}
		r.logger.Debug("segment done", "segment", i, "s", track.CurveLength)
		done = target
	}
	return res, nil
}

func (r *Runner) observe(res *Result, track *dynamo.FieldTrack, chord float64, ok bool) {
	res.Points = append(res.Points, Point{
		S:     track.CurveLength,
		Pos:   track.Position(),
		Mom:   track.Momentum(),
		Chord: chord,
		Ok:    ok,
	})
	for _, m := range r.metrics {
		m.Observe(track)
	}
}
