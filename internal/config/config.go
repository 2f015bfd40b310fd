package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jakecoffman/cp"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
)

const (
	DefaultDt         = 1.0 / 60.0
	DefaultIterations = 10
	DefaultSteps      = 3600
	DefaultGravityY   = -200.0
)

type Config struct {
	Dt         float64        `yaml:"dt" validate:"gt=0"`
	Iterations int            `yaml:"iterations" validate:"gte=1"`
	Steps      int            `yaml:"steps" validate:"gte=0"`
	Gravity    Vec            `yaml:"gravity"`
	Damping    float64        `yaml:"damping" validate:"gt=0,lte=1"`
	World      WorldConfig    `yaml:"world"`
	Creature   CreatureConfig `yaml:"creature"`
	Record     RecordConfig   `yaml:"record"`
	Store      StoreConfig    `yaml:"store"`
	Log        LogConfig      `yaml:"log"`
}

type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type WorldConfig struct {
	Width            float64 `yaml:"width" validate:"gt=0"`
	Height           float64 `yaml:"height" validate:"gt=0"`
	GroundHeight     float64 `yaml:"ground_height" validate:"gt=0"`
	GroundFriction   float64 `yaml:"ground_friction" validate:"gte=0"`
	GroundElasticity float64 `yaml:"ground_elasticity" validate:"gte=0,lte=1"`
	GroundLength     float64 `yaml:"ground_length" validate:"gt=0"`
}

type CreatureConfig struct {
	MassPerLength float64 `yaml:"mass_per_length" validate:"gt=0"`
	ShapeRadius   float64 `yaml:"shape_radius" validate:"gt=0"`
	Friction      float64 `yaml:"friction" validate:"gte=0"`
	MaxForce      float64 `yaml:"max_force" validate:"gt=0"`
	Orientation   float64 `yaml:"orientation"`
	Groups        string  `yaml:"groups" validate:"oneof=unique shared"`
}

type RecordConfig struct {
	// Every records one sample per Every steps.
	Every int  `yaml:"every" validate:"gte=1"`
	Limbs bool `yaml:"limbs"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file sqlite"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:         DefaultDt,
		Iterations: DefaultIterations,
		Steps:      DefaultSteps,
		Gravity:    Vec{X: 0, Y: DefaultGravityY},
		Damping:    1,
		World: WorldConfig{
			Width:            800,
			Height:           600,
			GroundHeight:     10,
			GroundFriction:   1,
			GroundElasticity: 1,
			GroundLength:     100000,
		},
		Creature: CreatureConfig{
			MassPerLength: creature.DefaultMassPerLength,
			ShapeRadius:   creature.DefaultShapeRadius,
			Friction:      creature.DefaultFriction,
			MaxForce:      creature.DefaultMaxForce,
			Orientation:   math.Pi / 2,
			Groups:        string(creature.GroupsUnique),
		},
		Record: RecordConfig{Every: 1},
		Store:  StoreConfig{Backend: "file", Path: "runs"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	return LoadFrom(path, DefaultConfig())
}

// LoadFrom reads path on top of a copy of base, so fields the file leaves
// out keep base's values.
func LoadFrom(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
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

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Clone returns a copy that can be modified independently.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

func (c *Config) Environment() environment.Config {
	return environment.Config{
		Width:            c.World.Width,
		Height:           c.World.Height,
		GroundHeight:     c.World.GroundHeight,
		GroundFriction:   c.World.GroundFriction,
		GroundElasticity: c.World.GroundElasticity,
		GroundLength:     c.World.GroundLength,
		Gravity:          cp.Vector{X: c.Gravity.X, Y: c.Gravity.Y},
		Iterations:       c.Iterations,
		Damping:          c.Damping,
		Dt:               c.Dt,
	}
}

func (c *Config) CreatureParams() (creature.Params, error) {
	groups, err := creature.ParseGroupPolicy(c.Creature.Groups)
	if err != nil {
		return creature.Params{}, fmt.Errorf("config: %w", err)
	}
	p := creature.DefaultParams()
	p.MassPerLength = c.Creature.MassPerLength
	p.ShapeRadius = c.Creature.ShapeRadius
	p.Friction = c.Creature.Friction
	p.MaxForce = c.Creature.MaxForce
	p.Orientation = c.Creature.Orientation
	p.Groups = groups
	return p, nil
}
