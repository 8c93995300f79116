// Package flipgraph enumerates the triangulations of a point configuration up
// to a symmetry group by a layered breadth-first search over the flip graph.
//
// # Frontier
//
// The [Controller] keeps two layers: previous, the layer being drained, and
// next, the layer being filled. Every stored node is the canonical
// representative of its symmetry class, and no node is stored in both layers
// at once. A node is erased as soon as all of its flips have been expanded,
// so memory is bounded by two adjacent layers plus per-node caches.
//
// # Classification
//
// For each neighbor reached through an unmarked flip, [Controller.Classify]
// decides whether its class is already stored:
//
//  1. The neighbor itself is looked up in both layers.
//  2. Otherwise every non-identity group element maps the neighbor and the
//     image is looked up. With fingerprinting enabled, an element is
//     rejected early when the mapped GKZ vector is not among the stored ones.
//  3. Otherwise the class is new. Its stabilizer is computed and cached, and
//     the orbit size follows from |orbit|·(|stab|+1) = |G|+1 when both the
//     search and output predicates are invariant, or from explicit orbit
//     enumeration when they are not.
//
// Steps 2 and 3 run either inline or on a fixed worker pool in which each
// worker owns a static, round-robin shard of the group. Both executors run
// the same scan functions.
//
// # Marking
//
// A flip is marked once the edge it represents has been expanded from either
// end. Marks are propagated through the cached stabilizer of the node whose
// table is updated, so no edge of a class is expanded twice.
//
// # Checkpoints
//
// The search state can be written as line-oriented "keyword value" records
// and resumed later. A checkpoint only resumes into a run with identical
// points, chirotope and symmetry generators. Fingerprints are recomputed
// from the stored nodes only, so fingerprints retained for erased nodes under
// a non-invariant search predicate are not restored.
package flipgraph
