package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/humperdink/internal/genome"
	"github.com/san-kum/humperdink/internal/sim"
)

var ErrNotFound = errors.New("run not found")

// Run describes one stored simulation. Samples are stored alongside it.
type Run struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Limbs     int                `json:"limbs"`
	Genome    *genome.Node       `json:"genome,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	Errors    []string           `json:"errors,omitempty"`
}

// NewRun describes a finished simulation under a fresh ID. Metrics that
// are not finite are left out since JSON cannot carry them.
func NewRun(name string, g *genome.Node, dt float64, result *sim.Result) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: time.Now().UTC(),
		Dt:        dt,
		Metrics:   map[string]float64{},
	}
	if g != nil {
		run.Genome = g.Clone()
		run.Limbs = g.Count()
	}
	if result != nil {
		run.Steps = result.StepsTaken
		for k, v := range result.Metrics {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			run.Metrics[k] = v
		}
		for _, err := range result.Errors {
			run.Errors = append(run.Errors, err.Error())
		}
	}
	return run
}

type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, run *Run, samples []sim.Sample) (string, error)
	// List returns every stored run, oldest first.
	List(ctx context.Context) ([]Run, error)
	Load(ctx context.Context, id string) (*Run, error)
	LoadSamples(ctx context.Context, id string) ([]sim.Sample, error)
}

// NewStore opens the backend of the given kind rooted at dir. The SQLite
// backend keeps its database in dir/runs.db.
func NewStore(kind, dir string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(dir), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "runs.db")), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
