package metrics

import (
	"math"

	"github.com/san-kum/humperdink/internal/sim"
)

// Energy is the mean kinetic energy of the whole creature.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s sim.Sample) {
	e.totalEnergy += s.KineticEnergy
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// PeakEnergy is the largest kinetic energy seen. A creature that throws
// itself around scores high here long before the run diverges.
type PeakEnergy struct {
	name string
	peak float64
}

func NewPeakEnergy() *PeakEnergy {
	return &PeakEnergy{name: "peak_energy"}
}

func (e *PeakEnergy) Name() string { return e.name }

func (e *PeakEnergy) Observe(s sim.Sample) {
	e.peak = math.Max(e.peak, s.KineticEnergy)
}

func (e *PeakEnergy) Value() float64 { return e.peak }

func (e *PeakEnergy) Reset() { e.peak = 0 }
