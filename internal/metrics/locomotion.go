package metrics

import (
	"math"

	"github.com/san-kum/humperdink/internal/sim"
)

// Distance is the horizontal root displacement between the first and last
// observed samples. Positive means the creature moved right.
type Distance struct {
	name    string
	first   float64
	last    float64
	samples int
}

func NewDistance() *Distance {
	return &Distance{name: "distance"}
}

func (d *Distance) Name() string { return d.name }

func (d *Distance) Observe(s sim.Sample) {
	if d.samples == 0 {
		d.first = s.Root.X
	}
	d.last = s.Root.X
	d.samples++
}

func (d *Distance) Value() float64 { return d.last - d.first }

func (d *Distance) Reset() {
	d.first, d.last = 0, 0
	d.samples = 0
}

// Speed is the mean horizontal speed of the root over the observed time.
type Speed struct {
	name      string
	startX    float64
	startTime float64
	endX      float64
	endTime   float64
	samples   int
}

func NewSpeed() *Speed {
	return &Speed{name: "speed"}
}

func (s *Speed) Name() string { return s.name }

func (s *Speed) Observe(smp sim.Sample) {
	if s.samples == 0 {
		s.startX, s.startTime = smp.Root.X, smp.Time
	}
	s.endX, s.endTime = smp.Root.X, smp.Time
	s.samples++
}

func (s *Speed) Value() float64 {
	dt := s.endTime - s.startTime
	if dt <= 0 {
		return 0
	}
	return (s.endX - s.startX) / dt
}

func (s *Speed) Reset() {
	*s = Speed{name: s.name}
}

// MaxHeight is the highest centre-of-mass y seen.
type MaxHeight struct {
	name    string
	max     float64
	samples int
}

func NewMaxHeight() *MaxHeight {
	return &MaxHeight{name: "max_height"}
}

func (h *MaxHeight) Name() string { return h.name }

func (h *MaxHeight) Observe(s sim.Sample) {
	if h.samples == 0 {
		h.max = s.CenterOfMass.Y
	}
	h.max = math.Max(h.max, s.CenterOfMass.Y)
	h.samples++
}

func (h *MaxHeight) Value() float64 {
	if h.samples == 0 {
		return 0
	}
	return h.max
}

func (h *MaxHeight) Reset() {
	h.max = 0
	h.samples = 0
}
