package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/sim"
)

var sampleHeader = []string{
	"step", "time", "x", "y", "vx", "vy", "w", "com_x", "com_y", "energy", "impulse",
}

// WriteSamplesCSV writes one row per sample. Limb positions are not
// written.
func WriteSamplesCSV(out io.Writer, samples []sim.Sample) error {
	w := csv.NewWriter(out)

	if err := w.Write(sampleHeader); err != nil {
		return err
	}

	for _, s := range samples {
		row := []string{strconv.Itoa(s.Step)}
		for _, val := range sampleValues(s) {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func sampleValues(s sim.Sample) []float64 {
	return []float64{
		s.Time,
		s.Root.X, s.Root.Y,
		s.RootVelocity.X, s.RootVelocity.Y,
		s.RootAngularVel,
		s.CenterOfMass.X, s.CenterOfMass.Y,
		s.KineticEnergy,
		s.MotorImpulse,
	}
}

func sampleFromValues(step int, v []float64) sim.Sample {
	return sim.Sample{
		Step:           step,
		Time:           v[0],
		Root:           cp.Vector{X: v[1], Y: v[2]},
		RootVelocity:   cp.Vector{X: v[3], Y: v[4]},
		RootAngularVel: v[5],
		CenterOfMass:   cp.Vector{X: v[6], Y: v[7]},
		KineticEnergy:  v[8],
		MotorImpulse:   v[9],
	}
}

func ReadSamplesCSV(in io.Reader) ([]sim.Sample, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(sampleHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		values := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			values[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", i+1, sampleHeader[j+1], err)
			}
		}
		samples = append(samples, sampleFromValues(step, values))
	}
	return samples, nil
}
