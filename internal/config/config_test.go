package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fieldprop/internal/equations"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultStepper, cfg.Stepper)
	assert.Equal(t, "mag", cfg.Driver.Kind)
	assert.Positive(t, cfg.Tolerance)

	dc := cfg.DriverConfig()
	assert.Equal(t, 1000, dc.MaxSteps)
	assert.Equal(t, 0.9, dc.Safety)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero momentum", func(c *Config) { c.Particle.Momentum = [3]float64{} }},
		{"negative mass", func(c *Config) { c.Particle.Mass = -1 }},
		{"unknown field", func(c *Config) { c.Field.Kind = "dipole" }},
		{"unknown driver", func(c *Config) { c.Driver.Kind = "euler" }},
		{"tolerance too large", func(c *Config) { c.Tolerance = 2 }},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }},
		{"negative length", func(c *Config) { c.Length = -10 }},
		{"smallest fraction out of range", func(c *Config) { c.Driver.SmallestFraction = 1e-4 }},
		{"missing stepper", func(c *Config) { c.Stepper = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ZeroMomentumRule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Particle.Momentum = [3]float64{}

	var verrs validator.ValidationErrors
	require.True(t, errors.As(cfg.Validate(), &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "nonzerovec", verrs[0].Tag())
	assert.Equal(t, "Momentum", verrs[0].Field())
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Stepper = "cash-karp"
	cfg.Field = FieldConfig{Kind: "quadrupole", Gradient: 12}
	cfg.Particle.Position = [3]float64{1, 2, 3}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	cfg := DefaultConfig()
	cfg.Driver.Kind = "rk"
	require.NoError(t, Save(path, cfg))
	_, err = Load(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestTrackAndField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Particle.Position = [3]float64{1, 2, 3}

	track := cfg.Track()
	assert.Equal(t, 2.0, track.Position().Y)
	assert.Equal(t, DefaultMomentum, track.MomentumMag())
	assert.Equal(t, -1.0, track.Charge)

	var b [24]float64
	cfg.FieldModel().FieldValue([4]float64{}, b[:])
	assert.InDelta(t, 1*equations.Tesla, b[2], 1e-15)

	cfg.Field = FieldConfig{Kind: "quadrupole", Gradient: 10}
	cfg.FieldModel().FieldValue([4]float64{0, 1000, 0, 0}, b[:])
	assert.InDelta(t, 10*equations.Tesla, b[0], 1e-12)
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("uniform", "electron")
	require.NotNil(t, cfg)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mag", cfg.Driver.Kind)

	bs := GetPreset("quadrupole", "extrapolated")
	require.NotNil(t, bs)
	assert.Equal(t, "bs", bs.Driver.Kind)
	assert.Equal(t, 0.9, bs.Driver.Safety)

	// presets are copied
	bs.Length = 1
	assert.Equal(t, 3000.0, Presets["quadrupole"]["extrapolated"].Length)

	assert.Nil(t, GetPreset("uniform", "nope"))
	assert.Nil(t, GetPreset("dipole", "electron"))
}

func TestListPresets(t *testing.T) {
	assert.Equal(t, []string{"curler", "electron", "muon"}, ListPresets("uniform"))
	assert.Nil(t, ListPresets("dipole"))
	assert.Equal(t, []string{"quadrupole", "uniform"}, PresetKinds())

	for _, kind := range PresetKinds() {
		for _, name := range ListPresets(kind) {
			assert.NoError(t, GetPreset(kind, name).Validate(), "%s/%s", kind, name)
		}
	}
}
