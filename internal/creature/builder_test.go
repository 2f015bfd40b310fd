package creature_test

import (
	"bytes"
	"errors"
	"math"

	"github.com/jakecoffman/cp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/humperdink/internal/creature"
	"github.com/san-kum/humperdink/internal/genome"
)

const dt = 1.0 / 60.0

// failingSpace panics on the n-th AddConstraint call, the way the engine
// reports misuse, and optionally on every RemoveBody.
type failingSpace struct {
	*cp.Space
	failAt     int
	calls      int
	failRemove bool
}

func (s *failingSpace) AddConstraint(c *cp.Constraint) *cp.Constraint {
	s.calls++
	if s.calls == s.failAt {
		panic("constraint refused")
	}
	return s.Space.AddConstraint(c)
}

func (s *failingSpace) RemoveBody(b *cp.Body) {
	if s.failRemove {
		panic("removal refused")
	}
	s.Space.RemoveBody(b)
}

func newSpace() *cp.Space {
	space := cp.NewSpace()
	space.Iterations = 10
	space.SetGravity(cp.Vector{X: 0, Y: -200})
	return space
}

func bodies(space *cp.Space) []*cp.Body {
	var out []*cp.Body
	space.EachBody(func(b *cp.Body) {
		if b != space.StaticBody {
			out = append(out, b)
		}
	})
	return out
}

func shapes(space *cp.Space) []*cp.Shape {
	var out []*cp.Shape
	space.EachShape(func(s *cp.Shape) { out = append(out, s) })
	return out
}

func constraints(space *cp.Space) []*cp.Constraint {
	var out []*cp.Constraint
	space.EachConstraint(func(c *cp.Constraint) { out = append(out, c) })
	return out
}

func finite(v cp.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

type pose struct {
	p cp.Vector
	a float64
}

func poses(tree *creature.Tree) []pose {
	var out []pose
	tree.Walk(func(_ int, l *creature.Limb) {
		out = append(out, pose{l.Body.Position(), l.Body.Angle()})
	})
	return out
}

func checkSubtreeSizes(tree *creature.Tree) {
	for i := 0; i < len(tree.LimbPositions()); i++ {
		l := tree.Limb(i)
		sum := 1
		for _, c := range l.Children {
			sum += tree.Limb(c).SubtreeSize
		}
		ExpectWithOffset(1, l.SubtreeSize).To(Equal(sum), "limb %d (%s)", i, l.Path)
	}
}

var _ = Describe("Builder", func() {
	var space *cp.Space

	BeforeEach(func() {
		space = newSpace()
	})

	Describe("a single limb", func() {
		var tree *creature.Tree

		BeforeEach(func() {
			var err error
			tree, err = creature.Build(genome.Leaf(0, 10, 1, 0, 0), space)
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates one body, one shape and no constraints", func() {
			Expect(tree.NumLimbs()).To(Equal(1))
			Expect(tree.Motors()).To(BeEmpty())
			Expect(bodies(space)).To(HaveLen(1))
			Expect(shapes(space)).To(HaveLen(1))
			Expect(constraints(space)).To(BeEmpty())

			root := tree.Root()
			Expect(root.Parent).To(Equal(-1))
			Expect(root.Pivot).To(BeNil())
			Expect(root.Motor).To(BeNil())
			Expect(root.Shape.UserData).To(BeIdenticalTo(root))
		})

		It("points up from the origin", func() {
			root := tree.Root()
			Expect(tree.RootPosition()).To(Equal(cp.Vector{}))
			Expect(root.Orientation).To(BeNumerically("~", math.Pi/2, 1e-12))
			Expect(root.Endpoint.X).To(BeNumerically("~", 0, 1e-9))
			Expect(root.Endpoint.Y).To(BeNumerically("~", 10, 1e-9))
			Expect(root.TipPosition().Y).To(BeNumerically("~", 10, 1e-9))

			com := tree.CenterOfMass()
			Expect(com.X).To(BeNumerically("~", 0, 1e-9))
			Expect(com.Y).To(BeNumerically("~", 5, 1e-9))
		})

		It("uses the rod mass and inertia", func() {
			body := tree.Root().Body
			Expect(body.Mass()).To(BeNumerically("~", 2.5, 1e-12))
			// 2.5 * (100/12 + 25)
			Expect(body.Moment()).To(BeNumerically("~", 2.5*(100.0/12+25), 1e-9))
			Expect(tree.Root().Shape.Friction()).To(Equal(creature.DefaultFriction))
		})

		It("falls freely with no motor torque", func() {
			const steps = 60
			for i := 0; i < steps; i++ {
				space.Step(dt)
			}

			body := tree.Root().Body
			Expect(body.Velocity().Y).To(BeNumerically("~", -200, 1e-9))
			Expect(body.Velocity().X).To(BeNumerically("~", 0, 1e-12))
			Expect(body.AngularVelocity()).To(BeZero())
			Expect(tree.RootPosition().Y).To(BeNumerically("~", -200.0*steps*steps/2*dt*dt, 200.0*steps*dt*dt))
			Expect(tree.TotalImpulse()).To(BeZero())
		})
	})

	Describe("a root with one motorised child", func() {
		var tree *creature.Tree

		BeforeEach(func() {
			root := genome.Leaf(0, 10, 0, 0, 0).Attach(genome.Leaf(0, 5, 2, 0.5, 0))
			var err error
			tree, err = creature.Build(root, space)
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates one pivot and one motor", func() {
			Expect(tree.NumLimbs()).To(Equal(2))
			Expect(constraints(space)).To(HaveLen(2))

			child := tree.Limb(1)
			Expect(child.Parent).To(Equal(0))
			Expect(tree.Root().Children).To(Equal([]int{1}))
			Expect(space.ContainsConstraint(child.Pivot)).To(BeTrue())
			Expect(space.ContainsConstraint(child.Motor.Constraint)).To(BeTrue())
			Expect(child.Pivot.Class).To(BeAssignableToTypeOf(&cp.PivotJoint{}))

			m := child.Motor
			Expect(m.Frequency()).To(Equal(2.0))
			Expect(m.Amplitude()).To(Equal(0.5))
			Expect(m.PhaseShift()).To(Equal(0.0))
			Expect(m.MaxForce()).To(Equal(creature.DefaultMaxForce))

			a, b := m.Bodies()
			Expect(a).To(BeIdenticalTo(child.Body))
			Expect(b).To(BeIdenticalTo(tree.Root().Body))
		})

		It("places the child at the parent's endpoint", func() {
			child := tree.Limb(1)
			Expect(child.Body.Position().Sub(tree.Root().Endpoint).Length()).To(BeNumerically("<", 1e-12))
			Expect(child.Endpoint.Y).To(BeNumerically("~", 15, 1e-9))
		})

		It("keeps the pivot together while simulated", func() {
			for i := 0; i < 120; i++ {
				space.Step(dt)
			}
			child := tree.Limb(1)
			gap := child.Body.Position().Sub(tree.Root().TipPosition()).Length()
			Expect(gap).To(BeNumerically("<", 0.5))
		})

		It("drives the relative angular velocity along the target", func() {
			m := tree.Limb(1).Motor
			child, root := tree.Limb(1).Body, tree.Root().Body

			for i := 1; i <= 300; i++ {
				space.Step(dt)

				want := 2 * 0.5 * math.Cos(2*float64(i)*dt)
				Expect(m.TargetRate()).To(BeNumerically("~", want, 1e-9), "step %d", i)

				rel := child.AngularVelocity() - root.AngularVelocity()
				Expect(rel).To(BeNumerically("~", m.TargetRate(), 1e-6), "step %d", i)

				Expect(m.MaxImpulse()).To(BeNumerically("~", creature.DefaultMaxForce*dt, 1e-9))
				Expect(m.Impulse()).To(BeNumerically("<=", m.MaxImpulse()))
			}
			Expect(tree.TotalImpulse()).To(Equal(m.Impulse()))
		})
	})

	Describe("larger genomes", func() {
		It("builds one limb per genome node", func() {
			for _, name := range genome.ListPresets() {
				space := newSpace()
				g := genome.GetPreset(name)

				tree, err := creature.Build(g, space)
				Expect(err).NotTo(HaveOccurred(), name)

				n := g.Count()
				Expect(tree.NumLimbs()).To(Equal(n), name)
				Expect(tree.LimbPositions()).To(HaveLen(n), name)
				Expect(bodies(space)).To(HaveLen(n), name)
				Expect(shapes(space)).To(HaveLen(n), name)
				Expect(constraints(space)).To(HaveLen(2*(n-1)), name)
				Expect(tree.Motors()).To(HaveLen(n-1), name)
				checkSubtreeSizes(tree)
			}
		})

		It("lists limbs in depth-first pre-order", func() {
			g := genome.Leaf(0, 10, 0, 0, 0).Attach(
				genome.Leaf(0.1, 5, 1, 1, 0).Attach(
					genome.Leaf(0.2, 1, 1, 1, 0),
					genome.Leaf(0.3, 2, 1, 1, 0),
				),
				genome.Leaf(0.4, 3, 1, 1, 0),
			)
			tree, err := creature.Build(g, space)
			Expect(err).NotTo(HaveOccurred())

			var paths []string
			_ = g.Walk(func(path string, _ *genome.Node) error {
				paths = append(paths, path)
				return nil
			})

			var got []string
			var positions []cp.Vector
			tree.Walk(func(i int, l *creature.Limb) {
				got = append(got, l.Path)
				positions = append(positions, tree.Limb(i).Body.Position())
			})
			Expect(got).To(Equal(paths))
			Expect(tree.LimbPositions()).To(Equal(positions))
			Expect(tree.Limb(1).SubtreeSize).To(Equal(3))
			Expect(tree.Root().SubtreeSize).To(Equal(5))
		})

		It("accumulates orientation down the tree", func() {
			g := genome.Leaf(0, 10, 0, 0, 0).Attach(genome.Leaf(math.Pi/2, 5, 1, 1, 0))
			tree, err := creature.Build(g, space)
			Expect(err).NotTo(HaveOccurred())

			child := tree.Limb(1)
			Expect(child.Orientation).To(BeNumerically("~", math.Pi, 1e-12))
			Expect(child.Endpoint.X).To(BeNumerically("~", -5, 1e-9))
			Expect(child.Endpoint.Y).To(BeNumerically("~", 10, 1e-9))
		})

		It("gives zero length limbs a degenerate endpoint and a finite mass", func() {
			g := genome.Leaf(0, 10, 0, 0, 0).Attach(genome.Leaf(1, 0, 1, 1, 0))
			tree, err := creature.Build(g, space)
			Expect(err).NotTo(HaveOccurred())

			child := tree.Limb(1)
			Expect(child.Endpoint).To(Equal(child.Body.Position()))
			Expect(child.Tip).To(Equal(cp.Vector{}))

			r := creature.DefaultShapeRadius
			mass := creature.DefaultMassPerLength * r
			Expect(child.Body.Mass()).To(BeNumerically("~", mass, 1e-12))
			Expect(child.Body.Moment()).To(BeNumerically("~", mass*r*r/2, 1e-12))

			for i := 0; i < 10; i++ {
				space.Step(dt)
			}
			for _, p := range tree.LimbPositions() {
				Expect(finite(p)).To(BeTrue())
			}
		})

		It("honours custom parameters", func() {
			params := creature.DefaultParams()
			params.Origin = cp.Vector{X: 100, Y: 50}
			params.Orientation = 0
			params.MassPerLength = 1
			params.MaxForce = 10

			g := genome.Leaf(0, 10, 0, 0, 0).Attach(genome.Leaf(0, 5, 1, 1, 0))
			tree, err := creature.NewBuilder(space, params).Build(g)
			Expect(err).NotTo(HaveOccurred())

			Expect(tree.RootPosition()).To(Equal(cp.Vector{X: 100, Y: 50}))
			Expect(tree.Root().Endpoint.Sub(cp.Vector{X: 110, Y: 50}).Length()).To(BeNumerically("<", 1e-9))
			Expect(tree.Root().Body.Mass()).To(Equal(10.0))
			Expect(tree.Limb(1).Motor.MaxForce()).To(Equal(10.0))
		})
	})

	Describe("collision groups", func() {
		groups := func(tree *creature.Tree) []int {
			var out []int
			tree.Walk(func(_ int, l *creature.Limb) {
				out = append(out, l.Group)
			})
			return out
		}

		It("gives every limb a fresh group by default", func() {
			b := creature.NewBuilder(space, creature.DefaultParams())

			first, err := b.Build(genome.GetPreset("worm"))
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(first)).To(Equal([]int{1, 2, 3}))

			second, err := b.Build(genome.GetPreset("pendulum"))
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(second)).To(Equal([]int{4, 5}))
		})

		It("starts every builder from one", func() {
			a, err := creature.Build(genome.GetPreset("pendulum"), space)
			Expect(err).NotTo(HaveOccurred())
			b, err := creature.Build(genome.GetPreset("pendulum"), newSpace())
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(a)).To(Equal(groups(b)))
		})

		It("continues the group sequence of another builder", func() {
			first := creature.NewBuilder(space, creature.DefaultParams())
			_, err := first.Build(genome.GetPreset("worm"))
			Expect(err).NotTo(HaveOccurred())

			second := creature.NewBuilder(space, creature.DefaultParams())
			second.ContinueFrom(first)
			tree, err := second.Build(genome.GetPreset("pendulum"))
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(tree)).To(Equal([]int{4, 5}))

			first.ContinueFrom(creature.NewBuilder(space, creature.DefaultParams()))
			tree, err = first.Build(genome.GetPreset("stick"))
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(tree)).To(Equal([]int{4}))
		})

		It("can share one group per creature", func() {
			params := creature.DefaultParams()
			params.Groups = creature.GroupsShared
			b := creature.NewBuilder(space, params)

			first, err := b.Build(genome.GetPreset("walker"))
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(first)).To(HaveEach(1))

			second, err := b.Build(genome.GetPreset("worm"))
			Expect(err).NotTo(HaveOccurred())
			Expect(groups(second)).To(HaveEach(2))
		})

		It("lets limbs sharing a joint overlap without contact", func() {
			space.SetGravity(cp.Vector{})
			params := creature.DefaultParams()
			params.MaxForce = 0

			g := genome.Leaf(0, 10, 0, 0, 0).Attach(
				genome.Leaf(0.3, 10, 1, 1, 0),
				genome.Leaf(-0.3, 10, 1, 1, 0),
			)
			tree, err := creature.NewBuilder(space, params).Build(g)
			Expect(err).NotTo(HaveOccurred())

			before := poses(tree)
			for i := 0; i < 120; i++ {
				space.Step(dt)
			}
			for i, after := range poses(tree) {
				Expect(after.p.Sub(before[i].p).Length()).To(BeNumerically("<", 1e-9), "limb %d", i)
				Expect(after.a).To(BeNumerically("~", before[i].a, 1e-9), "limb %d", i)
			}
		})

		It("still separates limbs of one creature that share no joint", func() {
			space.SetGravity(cp.Vector{})
			params := creature.DefaultParams()
			params.MaxForce = 0

			// The grandchild folds back alongside the root, 2 units away.
			g := genome.Leaf(0, 20, 0, 0, 0).Attach(
				genome.Leaf(math.Pi/2, 2, 1, 1, 0).Attach(
					genome.Leaf(math.Pi/2, 20, 1, 1, 0),
				),
			)
			tree, err := creature.NewBuilder(space, params).Build(g)
			Expect(err).NotTo(HaveOccurred())

			before := poses(tree)
			for i := 0; i < 30; i++ {
				space.Step(dt)
			}
			after := poses(tree)
			Expect(after[2].p.Sub(before[2].p).Length() + math.Abs(after[2].a-before[2].a)).To(BeNumerically(">", 1e-3))
		})

		It("parses policies", func() {
			p, err := creature.ParseGroupPolicy("shared")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(creature.GroupsShared))

			p, err = creature.ParseGroupPolicy("")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(creature.GroupsUnique))

			_, err = creature.ParseGroupPolicy("none")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("invalid genomes", func() {
		var sentinel *cp.Body

		BeforeEach(func() {
			sentinel = space.AddBody(cp.NewBody(1, 1))
		})

		It("rejects a nil genome", func() {
			_, err := creature.Build(nil, space)
			Expect(err).To(MatchError(creature.ErrNilGenome))
		})

		It("aborts on a connection count mismatch and cleans up", func() {
			bad := genome.Leaf(0, 5, 1, 1, 0).Attach(genome.Leaf(0, 1, 1, 1, 0))
			bad.NumConnections = 2
			g := genome.Leaf(0, 10, 0, 0, 0).Attach(
				genome.Leaf(0, 5, 1, 1, 0),
				bad,
			)

			tree, err := creature.Build(g, space)
			Expect(tree).To(BeNil())
			Expect(err).To(MatchError(creature.ErrStructureMismatch))

			var serr *creature.StructureError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Path).To(Equal("root.connections[1]"))
			Expect(serr.Declared).To(Equal(2))
			Expect(serr.Actual).To(Equal(1))

			Expect(bodies(space)).To(Equal([]*cp.Body{sentinel}))
			Expect(shapes(space)).To(BeEmpty())
			Expect(constraints(space)).To(BeEmpty())
		})

		It("rejects nil children", func() {
			g := &genome.Node{NumConnections: 1, Length: 10, Children: []*genome.Node{nil}}
			_, err := creature.Build(g, space)
			Expect(err).To(MatchError(creature.ErrNilGenome))
			Expect(bodies(space)).To(HaveLen(1))
		})

		It("removes partial limbs when the engine refuses an object", func() {
			fs := &failingSpace{Space: space, failAt: 2}
			tree, err := creature.Build(genome.GetPreset("pendulum"), fs)
			Expect(tree).To(BeNil())
			Expect(err).To(MatchError(creature.ErrEngine))
			Expect(err).To(MatchError(ContainSubstring("root.connections[0]: add motor")))
			Expect(err).To(MatchError(ContainSubstring("constraint refused")))

			Expect(bodies(space)).To(Equal([]*cp.Body{sentinel}))
			Expect(shapes(space)).To(BeEmpty())
			Expect(constraints(space)).To(BeEmpty())
		})

		It("reports a failed rollback alongside the build error", func() {
			fs := &failingSpace{Space: space, failAt: 1, failRemove: true}
			tree, err := creature.Build(genome.GetPreset("pendulum"), fs)
			Expect(tree).To(BeNil())
			Expect(err).To(MatchError(ContainSubstring("add pivot")))
			Expect(err).To(MatchError(ContainSubstring("constraint refused")))
			Expect(err).To(MatchError(ContainSubstring("removal refused")))

			// Shapes are released before bodies, so only the two limb
			// bodies stay behind.
			Expect(shapes(space)).To(BeEmpty())
			Expect(constraints(space)).To(BeEmpty())
			Expect(bodies(space)).To(HaveLen(3))
		})
	})
})

var _ = Describe("Tree", func() {
	var (
		space *cp.Space
		tree  *creature.Tree
	)

	BeforeEach(func() {
		space = newSpace()
		var err error
		tree, err = creature.Build(genome.GetPreset("walker"), space)
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes a debug report", func() {
		var buf bytes.Buffer
		Expect(tree.Debug(&buf)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("Creature Debug:"))
		Expect(out).To(ContainSubstring("Root Position: (0.000000,0.000000)"))
		Expect(out).To(ContainSubstring("Total Limbs: 5"))
		Expect(out).To(ContainSubstring("   4: ("))
	})

	It("releases every engine object on Destroy", func() {
		Expect(tree.Destroy()).To(Succeed())

		Expect(bodies(space)).To(BeEmpty())
		Expect(shapes(space)).To(BeEmpty())
		Expect(constraints(space)).To(BeEmpty())

		Expect(tree.NumLimbs()).To(BeZero())
		Expect(tree.Root()).To(BeNil())
		Expect(tree.LimbPositions()).To(BeEmpty())
		Expect(tree.RootPosition()).To(Equal(cp.Vector{}))
		Expect(tree.Limb(0)).To(BeNil())

		Expect(tree.Destroy()).To(Succeed())
	})

	It("skips objects the space no longer holds", func() {
		l := tree.Limb(2)
		space.RemoveConstraint(l.Motor.Constraint)
		space.RemoveShape(l.Shape)

		Expect(tree.Destroy()).To(Succeed())
		Expect(bodies(space)).To(BeEmpty())
		Expect(constraints(space)).To(BeEmpty())
	})

	It("keeps other creatures intact", func() {
		other, err := creature.Build(genome.GetPreset("pendulum"), space)
		Expect(err).NotTo(HaveOccurred())

		Expect(tree.Destroy()).To(Succeed())
		Expect(bodies(space)).To(HaveLen(other.NumLimbs()))
		Expect(constraints(space)).To(HaveLen(2))
	})

	It("stays finite while simulated", func() {
		for i := 0; i < 120; i++ {
			space.Step(dt)
		}
		for _, p := range tree.LimbPositions() {
			Expect(finite(p)).To(BeTrue())
		}
		Expect(finite(tree.CenterOfMass())).To(BeTrue())
	})
})
