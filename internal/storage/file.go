package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/san-kum/humperdink/internal/sim"
)

// FileStore keeps each run in its own directory as metadata.json plus
// samples.csv.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Save(ctx context.Context, run *Run, samples []sim.Sample) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if run == nil || run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(s.baseDir, run.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteSamplesCSV(csvFile, samples); err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *FileStore) List(ctx context.Context) ([]Run, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Run{}, nil
		}
		return nil, err
	}

	runs := make([]Run, 0)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}

		run, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readMeta(id)
}

func (s *FileStore) readMeta(id string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

func (s *FileStore) LoadSamples(ctx context.Context, id string) ([]sim.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, id, "samples.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer file.Close()

	return ReadSamplesCSV(file)
}
