package creature

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/motor"
)

// Limb is one node of a creature. Engine objects are owned by the space;
// the limb only refers to them.
type Limb struct {
	Body *cp.Body
	// Shape is a segment from the body origin to Tip, or a circle for a
	// zero length limb.
	Shape *cp.Shape

	// Pivot and Motor join the limb to its parent. Both are nil on the root.
	Pivot *cp.Constraint
	Motor *motor.OscillatingMotor

	// Tip is the limb's endpoint in body coordinates.
	Tip cp.Vector
	// Endpoint is where children attach, in world coordinates at build time.
	Endpoint    cp.Vector
	Orientation float64
	Length      float64
	Group       int

	SubtreeSize int
	Children    []int
	Parent      int

	// Path locates the genome node the limb was built from.
	Path string

	tree  *Tree
	index int
}

// TipPosition is the limb's current endpoint in world coordinates.
func (l *Limb) TipPosition() cp.Vector {
	return l.Body.LocalToWorld(l.Tip)
}

// sharesJoint reports whether l and o are joined by a pivot or hang from
// the same parent.
func (l *Limb) sharesJoint(o *Limb) bool {
	if l == nil || o == nil || l.tree == nil || l.tree != o.tree {
		return false
	}
	return l.Parent == o.index || o.Parent == l.index ||
		(l.Parent >= 0 && l.Parent == o.Parent)
}

// Tree is a built creature: an arena of limbs with the root at index 0.
type Tree struct {
	space Space
	limbs []*Limb
}

func (t *Tree) push(l *Limb) int {
	idx := len(t.limbs)
	l.tree, l.index = t, idx
	t.limbs = append(t.limbs, l)
	if l.Parent >= 0 {
		p := t.limbs[l.Parent]
		p.Children = append(p.Children, idx)
	}
	return idx
}

// Root returns the root limb, or nil once the tree is destroyed.
func (t *Tree) Root() *Limb {
	if len(t.limbs) == 0 {
		return nil
	}
	return t.limbs[0]
}

func (t *Tree) Limb(i int) *Limb {
	if i < 0 || i >= len(t.limbs) {
		return nil
	}
	return t.limbs[i]
}

func (t *Tree) NumLimbs() int {
	if root := t.Root(); root != nil {
		return root.SubtreeSize
	}
	return 0
}

func (t *Tree) RootPosition() cp.Vector {
	if root := t.Root(); root != nil {
		return root.Body.Position()
	}
	return cp.Vector{}
}

// Walk visits limbs depth first, parents before children, children in
// genome order.
func (t *Tree) Walk(fn func(index int, limb *Limb)) {
	if len(t.limbs) == 0 {
		return
	}
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		l := t.limbs[i]
		fn(i, l)
		for c := len(l.Children) - 1; c >= 0; c-- {
			stack = append(stack, l.Children[c])
		}
	}
}

// LimbPositions returns every limb body position in Walk order.
func (t *Tree) LimbPositions() []cp.Vector {
	positions := make([]cp.Vector, 0, t.NumLimbs())
	t.Walk(func(_ int, l *Limb) {
		positions = append(positions, l.Body.Position())
	})
	return positions
}

// Motors returns the joint motors in Walk order.
func (t *Tree) Motors() []*motor.OscillatingMotor {
	var motors []*motor.OscillatingMotor
	t.Walk(func(_ int, l *Limb) {
		if l.Motor != nil {
			motors = append(motors, l.Motor)
		}
	})
	return motors
}

// TotalImpulse sums the accumulated impulse of every motor.
func (t *Tree) TotalImpulse() float64 {
	sum := 0.0
	for _, m := range t.Motors() {
		sum += m.Impulse()
	}
	return sum
}

// CenterOfMass is the mass-weighted mean of the limb midpoints. Limbs
// without a positive finite mass are ignored; if none remain it falls back
// to the root position.
func (t *Tree) CenterOfMass() cp.Vector {
	var sum cp.Vector
	total := 0.0
	for _, l := range t.limbs {
		m := l.Body.Mass()
		if m <= 0 || math.IsInf(m, 0) || l.Shape == nil {
			continue
		}
		mid := l.Body.LocalToWorld(l.Tip.Mult(0.5))
		sum = sum.Add(mid.Mult(m))
		total += m
	}
	if total == 0 {
		return t.RootPosition()
	}
	return sum.Mult(1 / total)
}

// Debug writes a human readable summary of the creature's state.
func (t *Tree) Debug(w io.Writer) error {
	root := t.Root()
	if root == nil {
		_, err := fmt.Fprintln(w, "Creature Debug: destroyed")
		return err
	}

	p, v := root.Body.Position(), root.Body.Velocity()
	lines := []string{
		"Creature Debug:",
		"--------------",
		fmt.Sprintf("  Root Position: (%f,%f)", p.X, p.Y),
		fmt.Sprintf("  Root Velocity: (%f,%f)", v.X, v.Y),
		fmt.Sprintf("  Root rotational Velocity: %f", root.Body.AngularVelocity()),
		fmt.Sprintf("  Total Limbs: %d", root.SubtreeSize),
		"  Limb Positions:",
	}
	for i, pos := range t.LimbPositions() {
		lines = append(lines, fmt.Sprintf("   %d: (%f,%f)", i, pos.X, pos.Y))
	}
	lines = append(lines, "--------------", "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Destroy removes every engine object created for the tree, children
// before parents, then drops the arena. Objects the space no longer holds
// are skipped. Calling Destroy again is a no-op.
func (t *Tree) Destroy() error {
	if len(t.limbs) == 0 {
		return nil
	}

	var errs []error
	drop := func(fn func()) {
		if err := guard(fn); err != nil {
			errs = append(errs, err)
		}
	}
	space := t.space

	var release func(i int)
	release = func(i int) {
		l := t.limbs[i]
		for _, c := range l.Children {
			release(c)
		}
		if l.Motor != nil {
			drop(func() {
				if space.ContainsConstraint(l.Motor.Constraint) {
					space.RemoveConstraint(l.Motor.Constraint)
				}
			})
		}
		if l.Pivot != nil {
			drop(func() {
				if space.ContainsConstraint(l.Pivot) {
					space.RemoveConstraint(l.Pivot)
				}
			})
		}
		if l.Shape != nil {
			drop(func() {
				if space.ContainsShape(l.Shape) {
					space.RemoveShape(l.Shape)
				}
			})
		}
		drop(func() {
			if space.ContainsBody(l.Body) {
				space.RemoveBody(l.Body)
			}
		})
	}
	release(0)

	t.limbs = nil
	return errors.Join(errs...)
}
