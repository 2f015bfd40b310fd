package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
	"github.com/san-kum/humperdink/internal/genome"
)

// Divergence estimates how fast two copies of a creature drift apart when
// one starts perturbation units higher. Limb positions are compared after
// removing the initial offset, and the exponent is the least-squares slope
// of ln(separation/perturbation) against time. A positive value means the
// motion is sensitive to its starting conditions.
func Divergence(
	ctx context.Context,
	world environment.Config,
	params creature.Params,
	g *genome.Node,
	steps int,
	perturbation float64,
) (float64, error) {
	if perturbation <= 0 {
		return 0, fmt.Errorf("perturbation must be positive, got %f", perturbation)
	}
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be positive, got %d", steps)
	}

	base := environment.New(world)
	defer base.Destroy()
	a, err := base.Spawn(g, params)
	if err != nil {
		return 0, err
	}

	offset := cp.Vector{X: 0, Y: perturbation}
	shifted := params
	shifted.Origin = params.Origin.Add(offset)

	other := environment.New(world)
	defer other.Destroy()
	b, err := other.Spawn(g, shifted)
	if err != nil {
		return 0, err
	}

	sumTY, sumTT := 0.0, 0.0
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if err := base.Step(); err != nil {
			return 0, err
		}
		if err := other.Step(); err != nil {
			return 0, err
		}

		pa, pb := a.LimbPositions(), b.LimbPositions()
		sep := 0.0
		for j := range pa {
			d := pb[j].Sub(offset).Sub(pa[j])
			sep += d.Dot(d)
		}
		sep = math.Sqrt(sep)

		if sep > 0 && !math.IsInf(sep, 0) && !math.IsNaN(sep) {
			t := base.Time()
			sumTY += t * math.Log(sep/perturbation)
			sumTT += t * t
		}
	}

	if sumTT == 0 {
		return 0, nil
	}
	return sumTY / sumTT, nil
}
