package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/humperdink/internal/sim"
)

type ExportData struct {
	Run     *Run         `json:"run"`
	Samples []sim.Sample `json:"samples"`
}

// ExportJSON writes a run and its samples as one indented JSON document.
func ExportJSON(w io.Writer, run *Run, samples []sim.Sample) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: run, Samples: samples})
}

func ExportCSV(w io.Writer, samples []sim.Sample) error {
	return WriteSamplesCSV(w, samples)
}
