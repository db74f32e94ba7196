// Package dynamo provides the core primitives for integrating charged-particle
// trajectories through an external field.
//
// The package defines the state layout and the interfaces that the rest of
// the module plugs together:
//
//   - [State]: fixed-size vector holding position, momentum and auxiliary
//     components (kinetic energy, lab time, proper time, spin)
//   - [FieldTrack]: the caller-owned particle track advanced by a driver
//   - [Field]: opaque field-value callback
//   - [Equation]: turns field samples into a derivative vector
//   - [Stepper]: single-step integrator with an error estimate
//   - [FixedStepper]: single-step integrator without an error estimate
//
// # Example
//
//	field := equations.NewUniformField(r3.Vec{Z: 1 * equations.Tesla})
//	eq := equations.NewMagEquation(field)
//	stepper := integrators.NewDormandPrince745(eq, dynamo.DefaultIntegrated)
//	drv := driver.NewMagIntDriver(stepper, driver.DefaultConfig())
//	ok, err := drv.AccurateAdvance(track, 100*equations.Millimeter, 1e-6, 0)
//
// # Thread Safety
//
// Steppers, equations and drivers keep private scratch buffers and are NOT
// thread-safe. Tracks advanced concurrently need their own instances.
package dynamo
