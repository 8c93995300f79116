// Package pkg holds the libraries behind the triangs command.
//
// # Overview
//
// triangs enumerates the triangulations of a point configuration by a
// breadth first search of its flip graph, storing one representative per
// symmetry class. The packages build on each other from the bottom up:
//
//  1. [symmetry], [pointconfig] - permutation groups and the input points
//  2. [chirotope] - orientation signs, the only geometry the search needs
//  3. [triang] - triangulations, circuits, flips and flip tables
//  4. [predicate] - properties restricting what is searched and counted
//  5. [flipgraph] - the symmetry-reduced BFS controller and its checkpoints
//  6. [pipeline] - input loading, chirotope caching and run orchestration
//
// Supporting packages: [cache] (chirotope cache backends), [catalog]
// (persistent class store), [status] (HTTP progress endpoint),
// [observability] (hooks), [errors] (error codes) and [buildinfo].
//
// # Data Flow
//
//	problem file
//	     ↓
//	[pointconfig] parse + [symmetry] group closure
//	     ↓
//	[chirotope] (through [cache])
//	     ↓
//	[triang] seed triangulation
//	     ↓
//	[flipgraph] BFS, one layer per step
//	     ↓
//	counts, T[...] / flip[...] lines, [catalog] records
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Input:      "hexagon.dat",
//	    Homogenize: true,
//	})
//	// res.SymCount == 3, res.TotalCount == 14
package pkg
