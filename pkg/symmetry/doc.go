// Package symmetry provides permutations of point indices and the finite
// groups they generate.
//
// A [Symmetry] is a permutation of 0..n-1 stored as its image table. A [Group]
// is the eagerly materialized closure of a generator set. The identity is
// never stored as an element, so for a group of order k the element count
// reported by [Group.Size] is k-1. Callers that work with the orbit-stabilizer
// relation use this convention directly:
//
//	orbit_size * (|stabilizer| + 1) == |G| + 1
//
// where both the stabilizer and G exclude the identity.
//
// # Element references
//
// Elements are addressed by index into a backing slice that is built once in
// [NewGroup] and never reallocated afterwards. Workers, caches and stabilizer
// lists hold these indices rather than pointers into the group.
//
// # Example
//
//	g, err := symmetry.NewGroup(4, []symmetry.Symmetry{{1, 2, 3, 0}, {3, 2, 1, 0}})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(g.Order()) // 8
package symmetry
