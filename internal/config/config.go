package config

import (
	"fmt"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fieldprop/internal/driver"
	"github.com/san-kum/fieldprop/internal/dynamo"
	"github.com/san-kum/fieldprop/internal/equations"
)

const (
	DefaultStepper   = "dormand-prince"
	DefaultTolerance = 1e-6
	DefaultLength    = 1000.0 // mm
	DefaultSegment   = 50.0   // mm
	DefaultMomentum  = 1000.0 // MeV
	DefaultMass      = 0.51099895
	DefaultField     = 1.0 // tesla
)

// Config describes one propagation run. Lengths are in mm, momenta and
// masses in MeV, charges in units of e+, fields in tesla and gradients in
// tesla per metre.
type Config struct {
	Particle  ParticleConfig `yaml:"particle"`
	Field     FieldConfig    `yaml:"field"`
	Stepper   string         `yaml:"stepper" validate:"required"`
	Driver    DriverConfig   `yaml:"driver"`
	Tolerance float64        `yaml:"tolerance" validate:"gt=0,lt=1"`
	Length    float64        `yaml:"length" validate:"gte=0"`
	Segment   float64        `yaml:"segment" validate:"gte=0"`
	FirstStep float64        `yaml:"first_step" validate:"gte=0"`
}

type ParticleConfig struct {
	Charge   float64    `yaml:"charge"`
	Mass     float64    `yaml:"mass" validate:"gte=0"`
	Momentum [3]float64 `yaml:"momentum" validate:"nonzerovec"`
	Position [3]float64 `yaml:"position"`
}

type FieldConfig struct {
	Kind     string     `yaml:"kind" validate:"oneof=uniform quadrupole"`
	B        [3]float64 `yaml:"b"`
	Gradient float64    `yaml:"gradient"`
}

type DriverConfig struct {
	Kind             string  `yaml:"kind" validate:"oneof=mag bs"`
	MinStep          float64 `yaml:"min_step" validate:"gt=0"`
	MaxSteps         int     `yaml:"max_steps" validate:"gt=0"`
	SmallestFraction float64 `yaml:"smallest_fraction" validate:"gte=1e-16,lt=1e-8"`
	Safety           float64 `yaml:"safety" validate:"gt=0,lt=1"`
	MaxRetries       int     `yaml:"max_retries" validate:"gt=0"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("nonzerovec", validateNonZeroVec); err != nil {
		panic(fmt.Sprintf("config: register nonzerovec: %v", err))
	}
}

func validateNonZeroVec(fl validator.FieldLevel) bool {
	v := fl.Field()
	if v.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if v.Index(i).Float() != 0 {
			return true
		}
	}
	return false
}

func DefaultConfig() *Config {
	dc := driver.DefaultConfig()
	return &Config{
		Particle: ParticleConfig{
			Charge:   -1,
			Mass:     DefaultMass,
			Momentum: [3]float64{0, DefaultMomentum, 0},
		},
		Field: FieldConfig{
			Kind: "uniform",
			B:    [3]float64{0, 0, DefaultField},
		},
		Stepper: DefaultStepper,
		Driver: DriverConfig{
			Kind:             "mag",
			MinStep:          dc.MinimumStep,
			MaxSteps:         dc.MaxSteps,
			SmallestFraction: dc.SmallestFraction,
			Safety:           dc.Safety,
			MaxRetries:       dc.MaxRetries,
		},
		Tolerance: DefaultTolerance,
		Length:    DefaultLength,
		Segment:   DefaultSegment,
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Track builds the initial track of the run.
func (c *Config) Track() *dynamo.FieldTrack {
	p := c.Particle
	return dynamo.NewFieldTrack(
		r3.Vec{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]},
		r3.Vec{X: p.Momentum[0], Y: p.Momentum[1], Z: p.Momentum[2]},
		p.Charge, p.Mass)
}

// FieldModel builds the field callback of the run.
func (c *Config) FieldModel() dynamo.Field {
	switch c.Field.Kind {
	case "quadrupole":
		return equations.NewQuadrupoleField(c.Field.Gradient * equations.Tesla / equations.Meter)
	default:
		return equations.NewUniformField(c.UniformB())
	}
}

// UniformB returns the configured uniform field in internal units.
func (c *Config) UniformB() r3.Vec {
	b := c.Field.B
	return r3.Scale(equations.Tesla, r3.Vec{X: b[0], Y: b[1], Z: b[2]})
}

func (c *Config) DriverConfig() driver.Config {
	return driver.Config{
		MinimumStep:      c.Driver.MinStep,
		MaxSteps:         c.Driver.MaxSteps,
		SmallestFraction: c.Driver.SmallestFraction,
		Safety:           c.Driver.Safety,
		MaxRetries:       c.Driver.MaxRetries,
	}
}
