package driver

import (
	"fmt"
	"math"
	"strings"
)

// Stats counts the work of one driver instance.
type Stats struct {
	Calls             int
	TotalSteps        int
	GoodSteps         int
	BadSteps          int
	SmallSteps        int
	InitialSmallSteps int
	FullIntegrations  int
	SmallIntegrations int
	Warnings          int
	Exhausted         int
	NonConverged      int

	DyerrMax      float64
	SumHSmall     float64
	SumHLarge     float64
	DyerrPosSmall float64
	DyerrPosLarge float64 // sum of squared relative errors
	DyerrVelLarge float64 // sum of squared relative errors times h^2
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Calls += o.Calls
	s.TotalSteps += o.TotalSteps
	s.GoodSteps += o.GoodSteps
	s.BadSteps += o.BadSteps
	s.SmallSteps += o.SmallSteps
	s.InitialSmallSteps += o.InitialSmallSteps
	s.FullIntegrations += o.FullIntegrations
	s.SmallIntegrations += o.SmallIntegrations
	s.Warnings += o.Warnings
	s.Exhausted += o.Exhausted
	s.NonConverged += o.NonConverged
	s.DyerrMax = math.Max(s.DyerrMax, o.DyerrMax)
	s.SumHSmall += o.SumHSmall
	s.SumHLarge += o.SumHLarge
	s.DyerrPosSmall += o.DyerrPosSmall
	s.DyerrPosLarge += o.DyerrPosLarge
	s.DyerrVelLarge += o.DyerrVelLarge
}

func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "steps: total=%d good=%d bad=%d small=%d non-initial-small=%d\n",
		s.TotalSteps, s.GoodSteps, s.BadSteps, s.SmallSteps, s.SmallSteps-s.InitialSmallSteps)
	fmt.Fprintf(&b, "integrations: calls=%d full=%d small=%d exhausted=%d non-converged=%d warnings=%d\n",
		s.Calls, s.FullIntegrations, s.SmallIntegrations, s.Exhausted, s.NonConverged, s.Warnings)
	fmt.Fprintf(&b, "dyerr: max=%g sum-small=%g sqrt(sum-large^2) pos=%g vel=%g\n",
		s.DyerrMax, s.DyerrPosSmall, math.Sqrt(s.DyerrPosLarge), math.Sqrt(s.DyerrVelLarge))
	fmt.Fprintf(&b, "h-distance: small=%g large=%g", s.SumHSmall, s.SumHLarge)
	return b.String()
}
