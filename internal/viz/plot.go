package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fieldprop/internal/experiment"
)

// Components names the plottable columns of a trajectory.
var Components = []string{"s", "x", "y", "z", "px", "py", "pz", "chord"}

// Component extracts one column of a trajectory.
func Component(points []experiment.Point, name string) ([]float64, error) {
	var get func(p experiment.Point) float64
	switch name {
	case "s":
		get = func(p experiment.Point) float64 { return p.S }
	case "x":
		get = func(p experiment.Point) float64 { return p.Pos.X }
	case "y":
		get = func(p experiment.Point) float64 { return p.Pos.Y }
	case "z":
		get = func(p experiment.Point) float64 { return p.Pos.Z }
	case "px":
		get = func(p experiment.Point) float64 { return p.Mom.X }
	case "py":
		get = func(p experiment.Point) float64 { return p.Mom.Y }
	case "pz":
		get = func(p experiment.Point) float64 { return p.Mom.Z }
	case "chord":
		get = func(p experiment.Point) float64 { return p.Chord }
	default:
		return nil, fmt.Errorf("unknown component %q (have %s)", name, strings.Join(Components, ", "))
	}

	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = get(p)
	}
	return out, nil
}

// PlotTrajectory draws each named component against the point index.
func PlotTrajectory(points []experiment.Point, names []string, width, height int) (string, error) {
	if len(points) == 0 {
		return "", fmt.Errorf("no points to plot")
	}

	graphs := make([]string, 0, len(names))
	for _, name := range names {
		data, err := Component(points, name)
		if err != nil {
			return "", err
		}
		graphs = append(graphs, asciigraph.Plot(data,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(name+" vs s"),
		))
	}
	return strings.Join(graphs, "\n\n"), nil
}

// PlotConvergence draws log10 of the error of every series against the
// step index, one line per stepper.
func PlotConvergence(series []experiment.Series, width, height int) string {
	data := make([][]float64, 0, len(series))
	captions := make([]string, 0, len(series))
	for _, s := range series {
		logs := make([]float64, len(s.Errors))
		for i, e := range s.Errors {
			logs[i] = math.Log10(math.Max(e, 1e-16))
		}
		data = append(data, logs)
		captions = append(captions, fmt.Sprintf("%s (order %.2f)", s.Name, s.Order()))
	}
	if len(data) == 0 {
		return ""
	}

	colors := []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Blue, asciigraph.Magenta, asciigraph.Cyan}
	seriesColors := make([]asciigraph.AnsiColor, len(data))
	for i := range seriesColors {
		seriesColors[i] = colors[i%len(colors)]
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(seriesColors...),
		asciigraph.Caption("log10 error vs halving step: "+strings.Join(captions, ", ")),
	)
}
