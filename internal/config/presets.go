package config

import "sort"

// Presets holds ready-made runs keyed by field kind, then preset name.
var Presets = map[string]map[string]*Config{
	"uniform": {
		"electron": {
			Particle: ParticleConfig{Charge: -1, Mass: DefaultMass, Momentum: [3]float64{0, 1000, 0}},
			Field:    FieldConfig{Kind: "uniform", B: [3]float64{0, 0, 1}},
			Stepper:  "dormand-prince", Tolerance: 1e-6, Length: 10000, Segment: 100,
		},
		"curler": {
			Particle: ParticleConfig{Charge: 1, Mass: 938.272, Momentum: [3]float64{0, 50, 20}},
			Field:    FieldConfig{Kind: "uniform", B: [3]float64{0, 0, 4}},
			Stepper:  "cash-karp", Tolerance: 1e-7, Length: 2000, Segment: 10,
		},
		"muon": {
			Particle: ParticleConfig{Charge: -1, Mass: 105.658, Momentum: [3]float64{3000, 0, 1000}},
			Field:    FieldConfig{Kind: "uniform", B: [3]float64{0, 0, 2}},
			Stepper:  "higham-hall", Tolerance: 1e-8, Length: 50000, Segment: 500,
		},
	},
	"quadrupole": {
		"focusing": {
			Particle: ParticleConfig{Charge: 1, Mass: 938.272, Momentum: [3]float64{0, 0, 5000}, Position: [3]float64{10, 5, 0}},
			Field:    FieldConfig{Kind: "quadrupole", Gradient: 20},
			Stepper:  "dormand-prince", Tolerance: 1e-7, Length: 3000, Segment: 50,
		},
		"extrapolated": {
			Particle: ParticleConfig{Charge: 1, Mass: 938.272, Momentum: [3]float64{0, 0, 5000}, Position: [3]float64{10, 5, 0}},
			Field:    FieldConfig{Kind: "quadrupole", Gradient: 20},
			Stepper:  "dormand-prince", Tolerance: 1e-9, Length: 3000, Segment: 50,
			Driver:   DriverConfig{Kind: "bs"},
		},
	},
}

// GetPreset returns a copy of the preset with driver defaults filled in,
// or nil when there is no such preset.
func GetPreset(kind, preset string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	p, ok := kindPresets[preset]
	if !ok {
		return nil
	}
	cfg := *p
	def := DefaultConfig().Driver
	if cfg.Driver.Kind == "" {
		cfg.Driver.Kind = def.Kind
	}
	if cfg.Driver.MinStep == 0 {
		cfg.Driver.MinStep = def.MinStep
	}
	if cfg.Driver.MaxSteps == 0 {
		cfg.Driver.MaxSteps = def.MaxSteps
	}
	if cfg.Driver.SmallestFraction == 0 {
		cfg.Driver.SmallestFraction = def.SmallestFraction
	}
	if cfg.Driver.Safety == 0 {
		cfg.Driver.Safety = def.Safety
	}
	if cfg.Driver.MaxRetries == 0 {
		cfg.Driver.MaxRetries = def.MaxRetries
	}
	return &cfg
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetKinds returns the field kinds that have presets.
func PresetKinds() []string {
	kinds := make([]string, 0, len(Presets))
	for k := range Presets {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
