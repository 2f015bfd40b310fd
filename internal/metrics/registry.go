package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/humperdink/internal/sim"
)

// DefaultStabilityThreshold is the root spin rate, in rad/s, above which a
// step counts as unstable.
const DefaultStabilityThreshold = 10.0

var registry = map[string]func() sim.Metric{
	"distance":     func() sim.Metric { return NewDistance() },
	"speed":        func() sim.Metric { return NewSpeed() },
	"max_height":   func() sim.Metric { return NewMaxHeight() },
	"energy":       func() sim.Metric { return NewEnergy() },
	"peak_energy":  func() sim.Metric { return NewPeakEnergy() },
	"stability":    func() sim.Metric { return NewStability(DefaultStabilityThreshold) },
	"motor_effort": func() sim.Metric { return NewMotorEffort() },
}

// Default returns a fresh set of the metrics every run records.
func Default() []sim.Metric {
	return []sim.Metric{
		NewDistance(),
		NewSpeed(),
		NewMaxHeight(),
		NewEnergy(),
		NewStability(DefaultStabilityThreshold),
		NewMotorEffort(),
	}
}

// ByName returns fresh metrics for the given names.
func ByName(names ...string) ([]sim.Metric, error) {
	out := make([]sim.Metric, 0, len(names))
	for _, name := range names {
		fn, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", name)
		}
		out = append(out, fn())
	}
	return out, nil
}

func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
