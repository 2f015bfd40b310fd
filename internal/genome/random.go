package genome

import (
	"math"
	"math/rand"
)

const (
	MaxNodes       = 16
	MaxConnections = 3
)

// Ranges bounds the parameters drawn by Random.
type Ranges struct {
	MinLength, MaxLength       float64
	MinFrequency, MaxFrequency float64
	MaxAmplitude               float64
}

var DefaultRanges = Ranges{
	MinLength:    5,
	MaxLength:    40,
	MinFrequency: 0.5,
	MaxFrequency: 6,
	MaxAmplitude: 1.5,
}

// Random grows a valid genome of at most maxNodes nodes. maxNodes <= 0 means
// MaxNodes.
func Random(rng *rand.Rand, maxNodes int) *Node {
	return RandomWithRanges(rng, maxNodes, DefaultRanges)
}

func RandomWithRanges(rng *rand.Rand, maxNodes int, r Ranges) *Node {
	if maxNodes <= 0 {
		maxNodes = MaxNodes
	}

	budget := maxNodes - 1
	root := randomNode(rng, r)
	root.Frequency, root.Amplitude, root.Phase = 0, 0, 0

	// Breadth first so that the budget is spread over the top of the tree.
	queue := []*Node{root}
	for len(queue) > 0 && budget > 0 {
		n := queue[0]
		queue = queue[1:]

		k := rng.Intn(MaxConnections + 1)
		if n == root && k == 0 {
			k = 1
		}
		if k > budget {
			k = budget
		}
		for i := 0; i < k; i++ {
			child := randomNode(rng, r)
			n.Attach(child)
			queue = append(queue, child)
		}
		budget -= k
	}
	return root
}

func randomNode(rng *rand.Rand, r Ranges) *Node {
	return &Node{
		Angle:     (rng.Float64()*2 - 1) * math.Pi,
		Length:    r.MinLength + rng.Float64()*(r.MaxLength-r.MinLength),
		Frequency: r.MinFrequency + rng.Float64()*(r.MaxFrequency-r.MinFrequency),
		Amplitude: rng.Float64() * r.MaxAmplitude,
		Phase:     rng.Float64() * 2 * math.Pi,
	}
}
