package genome

import (
	"math"
	"sort"
)

var Presets = map[string]func() *Node{
	// A single limb with no joints.
	"stick": func() *Node {
		return Leaf(0, 10, 1, 0, 0)
	},
	"pendulum": func() *Node {
		return Leaf(0, 10, 0, 0, 0).Attach(
			Leaf(0, 5, 2, 0.5, 0),
		)
	},
	"worm": func() *Node {
		tail := Leaf(0.2, 20, 3, 0.8, math.Pi)
		mid := Leaf(0.2, 20, 3, 0.8, math.Pi/2).Attach(tail)
		return Leaf(math.Pi/2, 20, 0, 0, 0).Attach(mid)
	},
	"walker": func() *Node {
		leg := func(angle, phase float64) *Node {
			foot := Leaf(-0.5, 15, 4, 0.6, phase+math.Pi/2)
			return Leaf(angle, 25, 4, 0.9, phase).Attach(foot)
		}
		return Leaf(0, 30, 0, 0, 0).Attach(
			leg(math.Pi*3/4, 0),
			leg(-math.Pi*3/4, math.Pi),
		)
	},
	"star": func() *Node {
		root := Leaf(0, 10, 0, 0, 0)
		for i := 0; i < 4; i++ {
			root.Attach(Leaf(float64(i)*math.Pi/2, 20, 2, 1, float64(i)*math.Pi/2))
		}
		return root
	},
}

// GetPreset returns a fresh copy of a named genome, or nil.
func GetPreset(name string) *Node {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
