// Package creature compiles genomes into articulated creatures.
//
// Each genome node becomes a limb: a dynamic body whose origin sits at the
// limb's base, a capsule shape running from the base to the limb's
// endpoint, and, for every limb but the root, a pivot joint and an
// oscillating motor attaching it to its parent at the base.
//
// Limbs are kept in an arena ([Tree]) addressed by index. The root is at
// index 0 and limbs are stored in depth-first pre-order, which is also the
// order of [Tree.LimbPositions].
package creature
