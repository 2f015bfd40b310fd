package creature

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

const (
	DefaultMassPerLength = 0.25
	DefaultShapeRadius   = 4.0
	DefaultFriction      = 0.2
	DefaultMaxForce      = 100000.0
)

// GroupPolicy decides which collision group each limb shape gets.
type GroupPolicy string

const (
	// GroupsUnique gives every limb its own group, so limbs of one creature
	// may collide with each other.
	GroupsUnique GroupPolicy = "unique"
	// GroupsShared puts a whole creature in one group, disabling
	// self-collision.
	GroupsShared GroupPolicy = "shared"
)

func ParseGroupPolicy(s string) (GroupPolicy, error) {
	switch GroupPolicy(s) {
	case GroupsUnique, "":
		return GroupsUnique, nil
	case GroupsShared:
		return GroupsShared, nil
	default:
		return "", fmt.Errorf("unknown group policy: %s", s)
	}
}

// Params are the physical constants applied to every limb.
type Params struct {
	MassPerLength float64
	ShapeRadius   float64
	Friction      float64
	MaxForce      float64

	// Origin and Orientation place the root limb.
	Origin      cp.Vector
	Orientation float64

	Groups GroupPolicy
}

func DefaultParams() Params {
	return Params{
		MassPerLength: DefaultMassPerLength,
		ShapeRadius:   DefaultShapeRadius,
		Friction:      DefaultFriction,
		MaxForce:      DefaultMaxForce,
		Origin:        cp.Vector{},
		Orientation:   math.Pi / 2,
		Groups:        GroupsUnique,
	}
}

// LimbCollision is the collision type of every limb shape.
const LimbCollision cp.CollisionType = 1

// Space is the part of the physics engine the builder needs.
// *cp.Space satisfies it. Its methods panic on misuse; the builder turns
// those panics into ErrEngine errors.
type Space interface {
	AddBody(body *cp.Body) *cp.Body
	AddShape(shape *cp.Shape) *cp.Shape
	AddConstraint(constraint *cp.Constraint) *cp.Constraint

	RemoveBody(body *cp.Body)
	RemoveShape(shape *cp.Shape)
	RemoveConstraint(constraint *cp.Constraint)

	ContainsBody(body *cp.Body) bool
	ContainsShape(shape *cp.Shape) bool
	ContainsConstraint(constraint *cp.Constraint) bool

	NewCollisionHandler(a, b cp.CollisionType) *cp.CollisionHandler
}

var _ Space = (*cp.Space)(nil)
