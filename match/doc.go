// Package match provides the traversal algebra used to query a graph.
//
// A match is a small expression tree with two result kinds: NodeMatch
// selects nodes and EdgeMatch selects edges. Leaves select elements of one
// schema, optionally filtered by a Where and sorted by an Order. Traversal
// combinators move between result kinds through connections:
//
//	node → edge:  Outgoing, Incoming, Via
//	edge → node:  Endpoints, Sources, Targets
//	node → node:  Adjacent, SourceNeighbours, TargetNeighbours
//
// Example: the people liked by "alice", then the people they like:
//
//	alice := match.Nodes(person).Where(match.Handle("alice"))
//	liked := match.Targets(match.Outgoing(alice, match.Edges(likes)), match.Nodes(person))
//	likedByLiked := match.Targets(match.Outgoing(liked, match.Edges(likes)), match.Nodes(person))
//
// SEALED INTERFACES:
//
// ElementMatch, NodeMatch, EdgeMatch, Where and Order are sealed with
// unexported marker methods. Only types in this package implement them,
// so the SQL compiler can switch over every variant. The compiler still
// rejects a variant it does not know with an error instead of guessing.
//
// Matches are plain values. They hold no database state and can be built
// once and executed many times.
package match
