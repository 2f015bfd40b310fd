package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
)

// maxPrealloc caps the samples reserved up front for very long runs.
const maxPrealloc = 1 << 14

// Simulator steps one creature in its world and reports samples to metrics
// and observers.
type Simulator struct {
	world     *environment.World
	tree      *creature.Tree
	metrics   []Metric
	observers []Observer
	logger    *slog.Logger
}

func New(world *environment.World, tree *creature.Tree) *Simulator {
	return &Simulator{
		world:     world,
		tree:      tree,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
	}
}

func (s *Simulator) AddMetric(m Metric)        { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)    { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l *slog.Logger)  { s.logger = l }
func (s *Simulator) World() *environment.World { return s.world }
func (s *Simulator) Creature() *creature.Tree  { return s.tree }

// Sample captures the creature's current state.
func (s *Simulator) Sample(limbs bool) Sample {
	root := s.tree.Root()
	smp := Sample{
		Step:         s.world.Steps(),
		Time:         s.world.Time(),
		Root:         s.tree.RootPosition(),
		CenterOfMass: s.tree.CenterOfMass(),
		MotorImpulse: s.tree.TotalImpulse(),
	}
	if root != nil {
		smp.RootVelocity = root.Body.Velocity()
		smp.RootAngularVel = root.Body.AngularVelocity()
	}
	s.tree.Walk(func(_ int, l *creature.Limb) {
		smp.KineticEnergy += KineticEnergy(l.Body)
	})
	if limbs {
		smp.Limbs = s.tree.LimbPositions()
	}
	return smp
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	every := cfg.Every
	if every <= 0 {
		every = 1
	}

	result := &Result{
		Samples: make([]Sample, 0, min(cfg.Steps/every+2, maxPrealloc)),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	first := s.Sample(cfg.Limbs)
	result.Samples = append(result.Samples, first)
	for _, m := range s.metrics {
		m.Observe(first)
	}

	s.logger.Debug("simulation started", "steps", cfg.Steps, "limbs", s.tree.NumLimbs())

	var last Sample
	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			s.collect(result)
			return result, ctx.Err()
		default:
		}

		stepErr := s.world.Step()
		result.StepsTaken++
		if stepErr != nil {
			err := SimError{Time: s.world.Time(), Step: s.world.Steps(), Message: stepErr.Error()}
			result.Errors = append(result.Errors, err)
			s.logger.Warn("simulation step failed", "step", err.Step, "err", stepErr)
			break
		}

		keep := (i+1)%every == 0 || i == cfg.Steps-1
		smp := s.Sample(cfg.Limbs && keep)
		last = smp

		if cfg.ValidateState && !s.valid(smp) {
			err := SimError{Time: smp.Time, Step: smp.Step, Message: "invalid state (NaN/Inf)"}
			result.Errors = append(result.Errors, err)
			s.logger.Warn("simulation diverged", "step", smp.Step, "time", smp.Time)
			break
		}

		for _, m := range s.metrics {
			m.Observe(smp)
		}
		for _, obs := range s.observers {
			obs.OnStep(smp)
		}

		if keep {
			result.Samples = append(result.Samples, smp)
		}
	}

	s.collect(result)
	s.logger.Debug("simulation finished", "steps", result.StepsTaken, "x", last.Root.X, "y", last.Root.Y)
	return result, nil
}

func (s *Simulator) collect(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) valid(smp Sample) bool {
	if !smp.IsValid() {
		return false
	}
	if smp.Limbs != nil {
		return true
	}
	for _, p := range s.tree.LimbPositions() {
		if !Finite(p) {
			return false
		}
	}
	return true
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", cfg.Steps)
	}
	if cfg.Every < 0 {
		return fmt.Errorf("sample interval must not be negative, got %d", cfg.Every)
	}
	if s.tree == nil || s.tree.Root() == nil {
		return fmt.Errorf("no creature to simulate")
	}
	return nil
}

// RunWithCallback steps until the callback returns false, the context is
// cancelled, or cfg.Steps steps have run. cfg.Steps == 0 means no limit.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Sample) bool) error {
	if s.tree == nil || s.tree.Root() == nil {
		return fmt.Errorf("no creature to simulate")
	}

	for i := 0; cfg.Steps == 0 || i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.world.Step(); err != nil {
			return SimError{Time: s.world.Time(), Step: s.world.Steps(), Message: err.Error()}
		}
		smp := s.Sample(cfg.Limbs)

		if cfg.ValidateState && !s.valid(smp) {
			return SimError{Time: smp.Time, Step: smp.Step, Message: "invalid state (NaN/Inf)"}
		}

		for _, obs := range s.observers {
			obs.OnStep(smp)
		}
		if !callback(smp) {
			return nil
		}
	}
	return nil
}

// Displacement is the root's movement between two samples.
func Displacement(from, to Sample) cp.Vector {
	return to.Root.Sub(from.Root)
}

// KineticEnergy is ½mv² + ½Iω² for a body. Infinite mass or moment
// contributes nothing.
func KineticEnergy(b *cp.Body) float64 {
	e := 0.0
	if m := b.Mass(); !math.IsInf(m, 0) {
		v := b.Velocity()
		e += 0.5 * m * v.Dot(v)
	}
	if i := b.Moment(); !math.IsInf(i, 0) {
		w := b.AngularVelocity()
		e += 0.5 * i * w * w
	}
	return e
}
