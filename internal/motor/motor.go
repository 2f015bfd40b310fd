// Package motor implements the oscillating rotary motor that drives creature
// joints.
//
// An [OscillatingMotor] is a custom Chipmunk constraint between two bodies
// whose target relative angular velocity follows the derivative of a
// sinusoidal angle:
//
//	rate(t) = frequency * amplitude * cos(frequency*t + phaseShift)
//
// The corrective impulse is accumulated across solver iterations and kept
// between steps for warm starting, and is bounded by MaxForce * dt.
package motor

import (
	"math"

	"github.com/jakecoffman/cp"
)

type OscillatingMotor struct {
	*cp.Constraint

	a, b *cp.Body

	frequency  float64
	amplitude  float64
	phaseShift float64

	t    float64
	jAcc float64

	iSum float64
	jMax float64
}

var _ cp.Constrainer = (*OscillatingMotor)(nil)

// New creates a motor driving a relative to b. The constraint still has to
// be added to a space; MaxForce starts unbounded.
func New(a, b *cp.Body, frequency, amplitude, phaseShift float64) *OscillatingMotor {
	m := &OscillatingMotor{
		a:          a,
		b:          b,
		frequency:  frequency,
		amplitude:  amplitude,
		phaseShift: phaseShift,
	}
	m.Constraint = cp.NewConstraint(m, a, b)
	return m
}

func (m *OscillatingMotor) Bodies() (a, b *cp.Body) { return m.a, m.b }

func (m *OscillatingMotor) Frequency() float64  { return m.frequency }
func (m *OscillatingMotor) Amplitude() float64  { return m.amplitude }
func (m *OscillatingMotor) PhaseShift() float64 { return m.phaseShift }

// Time is the motor's wrapped internal clock.
func (m *OscillatingMotor) Time() float64 { return m.t }

// AccumulatedImpulse is the signed impulse carried between steps.
func (m *OscillatingMotor) AccumulatedImpulse() float64 { return m.jAcc }

// MaxImpulse is the impulse bound computed by the last PreStep.
func (m *OscillatingMotor) MaxImpulse() float64 { return m.jMax }

// Period is 2π/frequency, or 0 for a motor that does not oscillate.
func (m *OscillatingMotor) Period() float64 {
	if m.frequency == 0 {
		return 0
	}
	return math.Abs(2 * math.Pi / m.frequency)
}

// TargetRate is the relative angular velocity the motor drives towards at
// its current time.
func (m *OscillatingMotor) TargetRate() float64 {
	if m.amplitude == 0 || m.frequency == 0 {
		return 0
	}
	return m.frequency * m.amplitude * math.Cos(m.frequency*m.t+m.phaseShift)
}

// InvMoment is the inverse moment of inertia the solver uses for body:
// zero for static bodies and bodies of infinite or zero moment.
func InvMoment(body *cp.Body) float64 {
	i := body.Moment()
	if i <= 0 || math.IsInf(i, 1) {
		return 0
	}
	return 1 / i
}

// inert reports whether neither body can rotate, in which case the motor
// applies nothing.
func (m *OscillatingMotor) inert() bool {
	return math.IsInf(m.iSum, 1)
}

// PreStep also applies the warm start, so ApplyCachedImpulse has nothing
// left to do.
func (m *OscillatingMotor) PreStep(dt float64) {
	ia, ib := InvMoment(m.a), InvMoment(m.b)

	if sum := ia + ib; sum == 0 {
		m.iSum = math.Inf(1)
	} else {
		m.iSum = 1 / sum
	}

	m.jMax = m.MaxForce() * dt

	m.a.SetAngularVelocity(m.a.AngularVelocity() - m.jAcc*ia)
	m.b.SetAngularVelocity(m.b.AngularVelocity() + m.jAcc*ib)

	m.t += dt
	if m.frequency == 0 {
		m.t = 0
	} else if period := m.Period(); m.t >= period {
		// Whole periods only, so the phase is unchanged.
		m.t = math.Mod(m.t, period)
	}
}

func (m *OscillatingMotor) ApplyCachedImpulse(dtCoef float64) {}

func (m *OscillatingMotor) ApplyImpulse(dt float64) {
	if m.inert() {
		m.jAcc = clamp(m.jAcc, -m.jMax, m.jMax)
		return
	}

	ia, ib := InvMoment(m.a), InvMoment(m.b)

	wr := m.b.AngularVelocity() - m.a.AngularVelocity() + m.TargetRate()

	j := -wr * m.iSum
	jOld := m.jAcc
	m.jAcc = clamp(jOld+j, -m.jMax, m.jMax)
	j = m.jAcc - jOld

	m.a.SetAngularVelocity(m.a.AngularVelocity() - j*ia)
	m.b.SetAngularVelocity(m.b.AngularVelocity() + j*ib)
}

// Impulse is the magnitude of the accumulated impulse.
func (m *OscillatingMotor) Impulse() float64 {
	return math.Abs(m.jAcc)
}

func (m *OscillatingMotor) GetImpulse() float64 {
	return m.Impulse()
}

func clamp(f, lo, hi float64) float64 {
	return math.Min(math.Max(f, lo), hi)
}
