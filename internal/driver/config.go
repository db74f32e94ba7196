package driver

import "github.com/san-kum/fieldprop/internal/equations"

// Config holds the driver constants that are fixed for the lifetime of a
// driver.
type Config struct {
	// MinimumStep is the step below which the driver stops error control
	// and takes single unchecked steps.
	MinimumStep float64

	// MaxSteps bounds the number of steps of one AccurateAdvance call.
	MaxSteps int

	// SmallestFraction stops an advance once the proposed step is this
	// small relative to the start curve length.
	SmallestFraction float64

	Safety     float64
	MaxRetries int
	Verbose    int
}

func DefaultConfig() Config {
	return Config{
		MinimumStep:      0.01 * equations.Millimeter,
		MaxSteps:         1000,
		SmallestFraction: 1e-12,
		Safety:           0.9,
		MaxRetries:       20,
	}
}

const (
	perMillion  = 1e-6
	perThousand = 1e-3

	maxSteppingIncrease = 5.0
	maxSteppingDecrease = 0.1

	maxTrials = 100

	minSmallestFraction = 1e-16
	maxSmallestFraction = 1e-8
)
