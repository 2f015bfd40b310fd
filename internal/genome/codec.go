package genome

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks a format from a file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// wireNode mirrors Node but keeps num_connections optional so an absent
// count can be derived from the children.
type wireNode struct {
	NumConnections *int        `json:"num_connections" yaml:"num_connections"`
	Angle          float64     `json:"angle" yaml:"angle"`
	Length         float64     `json:"length" yaml:"length"`
	Frequency      float64     `json:"frequency" yaml:"frequency"`
	Amplitude      float64     `json:"amplitude" yaml:"amplitude"`
	Phase          float64     `json:"phase" yaml:"phase"`
	Connections    []*wireNode `json:"connections" yaml:"connections"`
}

func (w *wireNode) node() *Node {
	if w == nil {
		return nil
	}
	n := &Node{
		NumConnections: len(w.Connections),
		Angle:          w.Angle,
		Length:         w.Length,
		Frequency:      w.Frequency,
		Amplitude:      w.Amplitude,
		Phase:          w.Phase,
	}
	if w.NumConnections != nil {
		n.NumConnections = *w.NumConnections
	}
	if len(w.Connections) > 0 {
		n.Children = make([]*Node, len(w.Connections))
		for i, c := range w.Connections {
			n.Children[i] = c.node()
		}
	}
	return n
}

// Decode reads one genome. The result is not validated.
func Decode(r io.Reader, format Format) (*Node, error) {
	var w wireNode
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&w); err != nil {
			return nil, err
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&w); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown genome format: %s", format)
	}
	return w.node(), nil
}

// Encode writes the genome with its connection counts. Leaves are written
// with an empty connections list rather than null.
func Encode(wr io.Writer, n *Node, format Format) error {
	n = n.Clone()
	_ = n.Walk(func(_ string, node *Node) error {
		if node != nil && node.Children == nil {
			node.Children = []*Node{}
		}
		return nil
	})

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(wr)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(wr)
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	default:
		return fmt.Errorf("unknown genome format: %s", format)
	}
}

// Load reads and validates a genome file.
func Load(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := Decode(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("decode genome %s: %w", path, err)
	}
	if err := Validate(root); err != nil {
		return nil, fmt.Errorf("genome %s: %w", path, err)
	}
	return root, nil
}

// Save writes a genome file in the format implied by its extension.
func Save(path string, n *Node) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, n, FormatFor(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
