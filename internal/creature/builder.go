package creature

import (
	"errors"
	"fmt"
	"math"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/humperdink/internal/genome"
	"github.com/san-kum/humperdink/internal/motor"
)

// Builder compiles genomes into creatures living in one space. A Builder
// owns its collision-group counter, so separate builders never interfere.
// It is not safe for concurrent use.
type Builder struct {
	space  Space
	params Params

	nextGroup int
	group     int
}

func NewBuilder(space Space, params Params) *Builder {
	if params.Groups == "" {
		params.Groups = GroupsUnique
	}
	handler := space.NewCollisionHandler(LimbCollision, LimbCollision)
	handler.BeginFunc = skipJointNeighbours
	return &Builder{
		space:     space,
		params:    params,
		nextGroup: 1,
	}
}

func (b *Builder) Params() Params { return b.params }

// ContinueFrom makes b hand out collision groups after those already
// issued by other, for builders that share a space.
func (b *Builder) ContinueFrom(other *Builder) {
	if other.nextGroup > b.nextGroup {
		b.nextGroup = other.nextGroup
	}
}

// Build creates one limb per genome node. On failure every engine object
// created so far is removed from the space and no tree is returned.
func (b *Builder) Build(root *genome.Node) (*Tree, error) {
	if root == nil {
		return nil, ErrNilGenome
	}

	tree := &Tree{space: b.space}
	if b.params.Groups == GroupsShared {
		b.group = b.takeGroup()
	}

	if _, err := b.buildLimb(tree, root, -1, "root"); err != nil {
		return nil, errors.Join(err, tree.Destroy())
	}
	return tree, nil
}

// Build compiles root into space with the default parameters.
func Build(root *genome.Node, space Space) (*Tree, error) {
	return NewBuilder(space, DefaultParams()).Build(root)
}

func (b *Builder) takeGroup() int {
	g := b.nextGroup
	b.nextGroup++
	return g
}

func (b *Builder) limbGroup() int {
	if b.params.Groups == GroupsShared {
		return b.group
	}
	return b.takeGroup()
}

// buildLimb creates the limb for node under parent (-1 for the root) and
// recurses into its children. It returns the limb's arena index.
func (b *Builder) buildLimb(tree *Tree, node *genome.Node, parent int, path string) (int, error) {
	if node == nil {
		return -1, fmt.Errorf("%s: %w", path, ErrNilGenome)
	}
	if len(node.Children) != node.NumConnections {
		return -1, &StructureError{
			Path:     path,
			Declared: node.NumConnections,
			Actual:   len(node.Children),
		}
	}

	base, baseAngle := b.params.Origin, b.params.Orientation
	if parent >= 0 {
		p := tree.limbs[parent]
		base, baseAngle = p.Endpoint, p.Orientation
	}

	orientation := baseAngle + node.Angle
	tip := cp.ForAngle(orientation).Mult(node.Length)

	var (
		mass   float64
		moment float64
	)
	if node.Length == 0 {
		// A zero length limb is a disc of one shape radius.
		mass = b.params.MassPerLength * b.params.ShapeRadius
		moment = cp.MomentForCircle(mass, 0, b.params.ShapeRadius, cp.Vector{})
	} else {
		mass = math.Abs(node.Length) * b.params.MassPerLength
		moment = cp.MomentForSegment(mass, cp.Vector{}, tip, 0)
	}

	var body *cp.Body
	err := guard(func() {
		body = cp.NewBody(mass, moment)
		body.SetPosition(base)
		b.space.AddBody(body)
	})
	if err != nil {
		return -1, fmt.Errorf("%s: add body: %w", path, err)
	}

	// Registered before anything else can fail so a failed build can
	// release it.
	idx := tree.push(&Limb{
		Body:        body,
		Tip:         tip,
		Endpoint:    base.Add(tip),
		Orientation: orientation,
		Length:      node.Length,
		Parent:      parent,
		Path:        path,
		SubtreeSize: 1,
	})
	limb := tree.limbs[idx]
	limb.Group = b.limbGroup()

	var shape *cp.Shape
	if node.Length == 0 {
		shape = cp.NewCircle(body, b.params.ShapeRadius, cp.Vector{})
	} else {
		shape = cp.NewSegment(body, cp.Vector{}, tip, b.params.ShapeRadius)
	}
	shape.SetFriction(b.params.Friction)
	shape.SetFilter(cp.NewShapeFilter(uint(limb.Group), cp.ALL_CATEGORIES, cp.ALL_CATEGORIES))
	shape.SetCollisionType(LimbCollision)
	shape.UserData = limb
	if err := guard(func() { b.space.AddShape(shape) }); err != nil {
		return -1, fmt.Errorf("%s: add shape: %w", path, err)
	}
	limb.Shape = shape

	if parent >= 0 {
		parentBody := tree.limbs[parent].Body

		pivot := cp.NewPivotJoint(body, parentBody, base)
		pivot.SetCollideBodies(false)
		if err := guard(func() { b.space.AddConstraint(pivot) }); err != nil {
			return -1, fmt.Errorf("%s: add pivot: %w", path, err)
		}
		limb.Pivot = pivot

		var m *motor.OscillatingMotor
		err := guard(func() {
			m = motor.New(body, parentBody, node.Frequency, node.Amplitude, node.Phase)
			m.SetMaxForce(b.params.MaxForce)
			m.SetCollideBodies(false)
			b.space.AddConstraint(m.Constraint)
		})
		if err != nil {
			return -1, fmt.Errorf("%s: add motor: %w", path, err)
		}
		limb.Motor = m
	}

	for i, child := range node.Children {
		ci, err := b.buildLimb(tree, child, idx, fmt.Sprintf("%s.connections[%d]", path, i))
		if err != nil {
			return -1, err
		}
		limb.SubtreeSize += tree.limbs[ci].SubtreeSize
	}

	return idx, nil
}

// skipJointNeighbours drops contacts between limbs sharing a joint: a limb
// and its parent, or two children of one parent. Their capsules overlap at
// the pivot for as long as the creature lives.
func skipJointNeighbours(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	sa, sb := arb.Shapes()
	a, _ := sa.UserData.(*Limb)
	b, _ := sb.UserData.(*Limb)
	return !a.sharesJoint(b)
}
