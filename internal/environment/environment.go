// Package environment provides the world creatures live in: a physics
// space with gravity and a long static ground slab, stepped at a fixed rate.
package environment

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/genome"
)

const DefaultIterations = 10

// ErrStep wraps a panic raised by the physics engine while stepping.
var ErrStep = errors.New("environment: physics step failed")

type Config struct {
	Width  float64
	Height float64

	GroundHeight     float64
	GroundFriction   float64
	GroundElasticity float64
	// GroundLength multiplies the half width to give the ground's extent.
	GroundLength float64

	Gravity    cp.Vector
	Iterations int
	Damping    float64
	Dt         float64
}

func DefaultConfig() Config {
	return Config{
		Width:            800,
		Height:           600,
		GroundHeight:     10,
		GroundFriction:   1,
		GroundElasticity: 1,
		GroundLength:     100000,
		Gravity:          cp.Vector{X: 0, Y: -200},
		Iterations:       DefaultIterations,
		Damping:          1,
		Dt:               1.0 / 60.0,
	}
}

type World struct {
	cfg Config

	space     *cp.Space
	ground    *cp.Shape
	groundTop float64

	steps int

	builder *creature.Builder
	trees   []*creature.Tree
}

// New creates a world whose ground's upper face is at
// -Height/2 + GroundHeight.
func New(cfg Config) *World {
	space := cp.NewSpace()
	space.SetGravity(cfg.Gravity)
	space.Iterations = uint(max(cfg.Iterations, 1))
	space.SetDamping(cfg.Damping)

	halfWidth := cfg.Width / 2 * cfg.GroundLength
	halfHeight := cfg.Height / 2
	top := -halfHeight + cfg.GroundHeight

	ground := cp.NewBox2(space.StaticBody, cp.BB{
		L: -halfWidth,
		B: -halfHeight,
		R: halfWidth,
		T: top,
	}, 0)
	ground.SetFriction(cfg.GroundFriction)
	ground.SetElasticity(cfg.GroundElasticity)
	space.AddShape(ground)

	return &World{
		cfg:       cfg,
		space:     space,
		ground:    ground,
		groundTop: top,
	}
}

func (w *World) Config() Config     { return w.cfg }
func (w *World) Space() *cp.Space   { return w.space }
func (w *World) Ground() *cp.Shape  { return w.ground }
func (w *World) GroundTop() float64 { return w.groundTop }
func (w *World) Steps() int         { return w.steps }

// Time is the simulated time, steps times the fixed step.
func (w *World) Time() float64 { return float64(w.steps) * w.cfg.Dt }

// Creatures returns the creatures spawned and not yet destroyed by the
// world.
func (w *World) Creatures() []*creature.Tree { return w.trees }

// Spawn builds a creature into the world. Creatures spawned into the same
// world share one builder and so never reuse a collision group.
func (w *World) Spawn(g *genome.Node, params creature.Params) (*creature.Tree, error) {
	if w.space == nil {
		return nil, fmt.Errorf("environment: world destroyed")
	}
	if w.builder == nil {
		w.builder = creature.NewBuilder(w.space, params)
	}
	if w.builder.Params() != params {
		b := creature.NewBuilder(w.space, params)
		b.ContinueFrom(w.builder)
		w.builder = b
	}
	tree, err := w.builder.Build(g)
	if err != nil {
		return nil, err
	}
	w.trees = append(w.trees, tree)
	return tree, nil
}

// Step advances the world by one fixed time step. A panic inside the
// engine, usually from a body driven to a non-finite state, is returned
// as an error wrapping ErrStep; the step still counts.
func (w *World) Step() (err error) {
	if w.space == nil {
		return fmt.Errorf("environment: world destroyed")
	}
	w.steps++

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w at step %d: %v", ErrStep, w.steps, r)
		}
	}()
	w.space.Step(w.cfg.Dt)
	return nil
}

func (w *World) StepN(n int) error {
	for i := 0; i < n; i++ {
		if err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy releases every creature spawned into the world and the ground.
// The world cannot be stepped afterwards.
func (w *World) Destroy() error {
	if w.space == nil {
		return nil
	}

	var errs []error
	for _, tree := range w.trees {
		errs = append(errs, tree.Destroy())
	}
	if w.space.ContainsShape(w.ground) {
		w.space.RemoveShape(w.ground)
	}

	w.trees = nil
	w.builder = nil
	w.space = nil
	return errors.Join(errs...)
}
