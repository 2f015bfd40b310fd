package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/environment"
	"github.com/san-kum/humperdink/internal/genome"
)

func TestBatchRun(t *testing.T) {
	bad := genome.GetPreset("pendulum")
	bad.NumConnections = 3

	b := &Batch{
		World:      environment.DefaultConfig(),
		Creature:   creature.DefaultParams(),
		Config:     Config{Steps: 30, Every: 10},
		NewMetrics: func() []Metric { return []Metric{&countMetric{}} },
		Limit:      2,
	}

	jobs := []Job{
		{Name: "stick", Genome: genome.GetPreset("stick")},
		{Name: "bad", Genome: bad},
		{Name: "walker", Genome: genome.GetPreset("walker")},
	}

	results, err := b.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for _, i := range []int{0, 2} {
		r := results[i]
		if r.Err != nil {
			t.Errorf("%s: unexpected error %v", r.Name, r.Err)
			continue
		}
		if r.Result.Metrics["count"] != 31 {
			t.Errorf("%s: expected 31 observations, got %f", r.Name, r.Result.Metrics["count"])
		}
	}

	if results[1].Name != "bad" || !errors.Is(results[1].Err, creature.ErrStructureMismatch) {
		t.Errorf("expected structure error for bad genome, got %v", results[1].Err)
	}
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &Batch{
		World:    environment.DefaultConfig(),
		Creature: creature.DefaultParams(),
		Config:   Config{Steps: 1000},
	}
	_, err := b.Run(ctx, []Job{{Name: "stick", Genome: genome.GetPreset("stick")}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRank(t *testing.T) {
	mk := func(name string, v float64) BatchResult {
		return BatchResult{Name: name, Result: &Result{Metrics: map[string]float64{"distance": v}}}
	}
	results := []BatchResult{
		mk("slow", 1),
		{Name: "broken", Err: errors.New("x")},
		mk("fast", 10),
		mk("medium", 5),
		{Name: "unscored", Result: &Result{Metrics: map[string]float64{}}},
	}

	ranked := Rank(results, "distance")

	want := []string{"fast", "medium", "slow", "broken", "unscored"}
	for i, name := range want {
		if ranked[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, ranked[i].Name)
		}
	}
	if results[0].Name != "slow" {
		t.Error("Rank must not reorder its input")
	}
}
