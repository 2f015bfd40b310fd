package config

import "sort"

func preset(modify func(c *Config)) *Config {
	c := DefaultConfig()
	modify(c)
	return c
}

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"moon": preset(func(c *Config) {
		c.Gravity = Vec{X: 0, Y: -33}
	}),
	"precise": preset(func(c *Config) {
		c.Dt = 1.0 / 240.0
		c.Iterations = 30
		c.Steps = DefaultSteps * 4
	}),
	"sticky": preset(func(c *Config) {
		c.Creature.Friction = 1
		c.World.GroundElasticity = 0
	}),
	"solo": preset(func(c *Config) {
		c.Creature.Groups = "shared"
	}),
	"heavy": preset(func(c *Config) {
		c.Creature.MassPerLength = 1
		c.Creature.MaxForce = 400000
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
