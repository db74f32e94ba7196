package equations

// Internal units: millimetre, nanosecond, MeV and the positron charge.
const (
	Millimeter = 1.0
	Centimeter = 10 * Millimeter
	Meter      = 1000 * Millimeter

	Nanosecond = 1.0
	Second     = 1e9 * Nanosecond

	MeV = 1.0
	KeV = 1e-3 * MeV
	GeV = 1e3 * MeV

	Eplus = 1.0

	// CLight is the speed of light in mm/ns.
	CLight = 299.792458 * Millimeter / Nanosecond

	// Tesla is volt*second/meter^2 expressed in internal units.
	Tesla     = 0.001
	KiloGauss = 0.1 * Tesla
	Gauss     = 1e-4 * Tesla
)
