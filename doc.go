// Package graphlite is an embedded graph database on SQLite.
//
// Callers declare versioned schemas (package schema), store nodes and edges
// whose fields follow them, connect edges to nodes, and select elements
// with the traversal algebra of package match.
//
//	person := schema.New("person", 1)
//	name := person.FullTextField("name")
//	likes := schema.New("likes", 1)
//
//	b := graphlite.NewBuilder("graph.db")
//	if err := b.Register(person, likes); err != nil { ... }
//	db, err := b.Open(ctx)
//
//	alice, _ := db.CreateNodeWithHandle(ctx, "alice", schema.NewFieldMap(person).Set(name, "Alice").MustBuild())
//	...
//	liked, err := db.QueryNodes(ctx, match.Targets(
//		match.Outgoing(match.Nodes(person).Where(match.Handle("alice")), match.Edges(likes)),
//		match.Nodes(person)))
//
// # Storage
//
// Every field of every schema version has its own value table. Full-text
// fields are indexed with FTS4 and geo fields with an R-tree, both kept in
// sync by triggers. Builder.Open reconciles the registered schemas with the
// stored ones and runs migrations; see Builder.
//
// # Transactions
//
// Every write runs in a transaction. DB.Transaction groups calls: the
// context handed to its callback carries the transaction, and calls made
// with that context join it. Queries read their rows and hydrate every
// element in one transaction, so results are a consistent snapshot.
//
// # Errors
//
// Errors carry codes from package errors (pkg/errors). Expected outcomes
// are not errors: lookups of unknown handles return nil, and
// CreateNodeWithHandle returns nil when the handle is taken.
package graphlite
