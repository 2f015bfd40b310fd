// Package genome describes creature genomes: a tree of limb nodes carrying
// geometry and the parameters of the motor that drives each joint.
//
// Genomes are read from JSON (the historical format) or YAML. Each node
// lists its children under "connections"; "num_connections" is optional and,
// when present, must agree with the number of children.
package genome

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMismatch reports a node whose declared connection count differs from
	// its actual number of children.
	ErrMismatch = errors.New("genome: connection count mismatch")

	ErrNilNode   = errors.New("genome: nil node")
	ErrNotFinite = errors.New("genome: parameter is not finite")
)

// Node is one limb of a creature. Angle is relative to the parent limb's
// orientation; Frequency, Amplitude and Phase configure the motor joining
// the limb to its parent and are ignored on the root.
type Node struct {
	NumConnections int     `json:"num_connections" yaml:"num_connections"`
	Angle          float64 `json:"angle" yaml:"angle"`
	Length         float64 `json:"length" yaml:"length"`
	Frequency      float64 `json:"frequency" yaml:"frequency"`
	Amplitude      float64 `json:"amplitude" yaml:"amplitude"`
	Phase          float64 `json:"phase" yaml:"phase"`
	Children       []*Node `json:"connections" yaml:"connections"`
}

// Leaf returns a childless node.
func Leaf(angle, length, frequency, amplitude, phase float64) *Node {
	return &Node{
		Angle:     angle,
		Length:    length,
		Frequency: frequency,
		Amplitude: amplitude,
		Phase:     phase,
	}
}

// Attach appends children and keeps NumConnections in step.
func (n *Node) Attach(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	n.NumConnections = len(n.Children)
	return n
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += c.Count()
	}
	return count
}

// Depth returns the number of levels below and including n.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Clone returns a deep copy of the tree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Walk visits every node in pre-order. path names the node the way
// validation errors do, e.g. "root.connections[1].connections[0]".
func (n *Node) Walk(fn func(path string, node *Node) error) error {
	return n.walk("root", fn)
}

func (n *Node) walk(path string, fn func(string, *Node) error) error {
	if err := fn(path, n); err != nil {
		return err
	}
	if n == nil {
		return nil
	}
	for i, c := range n.Children {
		if err := c.walk(fmt.Sprintf("%s.connections[%d]", path, i), fn); err != nil {
			return err
		}
	}
	return nil
}

// ValidationError locates a problem in a genome tree.
type ValidationError struct {
	Path     string
	Declared int
	Actual   int
	Err      error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrMismatch) {
		return fmt.Sprintf("%s: %s: declared %d, has %d", e.Path, e.Err, e.Declared, e.Actual)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks every node: no nil nodes, finite parameters, and
// NumConnections equal to the number of children.
func Validate(root *Node) error {
	return root.Walk(func(path string, n *Node) error {
		if n == nil {
			return &ValidationError{Path: path, Err: ErrNilNode}
		}
		if n.NumConnections != len(n.Children) {
			return &ValidationError{
				Path:     path,
				Declared: n.NumConnections,
				Actual:   len(n.Children),
				Err:      ErrMismatch,
			}
		}
		for _, v := range []float64{n.Angle, n.Length, n.Frequency, n.Amplitude, n.Phase} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ValidationError{Path: path, Err: ErrNotFinite}
			}
		}
		return nil
	})
}
