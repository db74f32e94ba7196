// Package metrics measures the quality of integrated tracks and exports
// driver statistics to Prometheus.
package metrics

import "github.com/san-kum/fieldprop/internal/dynamo"

// Metric observes a track at successive points along its path.
type Metric interface {
	Name() string
	Observe(t *dynamo.FieldTrack)
	Value() float64
	Reset()
}
