package sim

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
	"github.com/san-kum/humperdink/internal/genome"
)

type Job struct {
	Name   string
	Genome *genome.Node
}

type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// Batch runs independent creatures concurrently, each in its own world.
type Batch struct {
	World    environment.Config
	Creature creature.Params
	Config   Config

	// NewMetrics returns fresh metrics for one run; metrics are stateful
	// and are never shared between runs.
	NewMetrics func() []Metric

	// Limit bounds the number of concurrent runs. Zero means GOMAXPROCS.
	Limit int
}

// Run evaluates every job. A job that fails to build or diverges reports
// its error in its BatchResult; Run itself only fails when ctx is done.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]BatchResult, error) {
	results := make([]BatchResult, len(jobs))

	limit := b.Limit
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			res, err := b.runOne(ctx, job)
			results[i] = BatchResult{Name: job.Name, Result: res, Err: err}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (b *Batch) runOne(ctx context.Context, job Job) (*Result, error) {
	world := environment.New(b.World)
	defer world.Destroy()

	tree, err := world.Spawn(job.Genome, b.Creature)
	if err != nil {
		return nil, err
	}

	s := New(world, tree)
	if b.NewMetrics != nil {
		for _, m := range b.NewMetrics() {
			s.AddMetric(m)
		}
	}

	res, err := s.Run(ctx, b.Config)
	if err != nil {
		return res, err
	}
	if len(res.Errors) > 0 {
		return res, res.Errors[0]
	}
	return res, nil
}

// Rank orders results by the named metric, best (largest) first. Failed
// runs go last, in their original order.
func Rank(results []BatchResult, metric string) []BatchResult {
	ranked := make([]BatchResult, len(results))
	copy(ranked, results)

	score := func(r BatchResult) (float64, bool) {
		if r.Err != nil || r.Result == nil {
			return 0, false
		}
		v, ok := r.Result.Metrics[metric]
		return v, ok
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, oki := score(ranked[i])
		sj, okj := score(ranked[j])
		if oki != okj {
			return oki
		}
		return oki && si > sj
	})
	return ranked
}
