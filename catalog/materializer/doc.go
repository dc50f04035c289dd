// Package materializer rebuilds nested aggregates from flat, denormalized join rows.
//
// A Layout declares which contiguous column ranges of a row belong to which entity (a Segment).
// A Plan declares how the entities nest: one root, and below it has-one and has-many relations,
// each with its own builder and its own tag. Collect consumes the rows of one query:
//
//   - every entity level keeps its own identity map inside a Graph, keyed by the segment's key column
//   - a child is linked to its parent at most once, no matter how often the join repeats it
//   - segments that are entirely NULL (unmatched outer joins) are skipped
//   - roots are returned in the order in which they first appeared
//
// Children are attached to their parents only after the last row was consumed, so builders
// may return pointers while the aggregates keep value slices.
package materializer
