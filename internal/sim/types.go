package sim

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// Sample is the creature's state after a step. Step 0 is the state before
// the first step.
type Sample struct {
	Step           int
	Time           float64
	Root           cp.Vector
	RootVelocity   cp.Vector
	RootAngularVel float64
	CenterOfMass   cp.Vector
	KineticEnergy  float64
	MotorImpulse   float64
	Limbs          []cp.Vector
}

func (s Sample) IsValid() bool {
	if !Finite(s.Root) || !Finite(s.RootVelocity) || !Finite(s.CenterOfMass) {
		return false
	}
	for _, p := range s.Limbs {
		if !Finite(p) {
			return false
		}
	}
	return true
}

// Finite reports whether both components of v are neither NaN nor
// infinite.
func Finite(v cp.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Sample)

func (f ObserverFunc) OnStep(s Sample) { f(s) }

type Config struct {
	Steps int
	// Every keeps one sample in the result per Every steps. Metrics and
	// observers still see every step.
	Every int
	// Limbs records every limb position in each kept sample.
	Limbs         bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Steps:         3600,
		Every:         1,
		ValidateState: true,
	}
}

type Result struct {
	Samples    []Sample
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}

func (r *Result) RootX() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Root.X
	}
	return out
}

func (r *Result) RootY() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Root.Y
	}
	return out
}

// Final returns the last sample, or a zero sample for an empty result.
func (r *Result) Final() Sample {
	if len(r.Samples) == 0 {
		return Sample{}
	}
	return r.Samples[len(r.Samples)-1]
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
