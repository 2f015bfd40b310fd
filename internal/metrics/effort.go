package metrics

import (
	"math"

	"github.com/san-kum/humperdink/internal/sim"
)

// MotorEffort is the mean accumulated motor impulse per step.
type MotorEffort struct {
	name    string
	sum     float64
	samples int
}

func NewMotorEffort() *MotorEffort {
	return &MotorEffort{
		name: "motor_effort",
	}
}

func (m *MotorEffort) Name() string {
	return m.name
}

func (m *MotorEffort) Observe(s sim.Sample) {
	m.sum += math.Abs(s.MotorImpulse)
	m.samples++
}

func (m *MotorEffort) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MotorEffort) Reset() {
	m.sum = 0
	m.samples = 0
}
