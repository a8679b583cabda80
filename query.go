package graphlite

import (
	"context"
	"iter"

	"github.com/roach88/graphlite/match"
	glerr "github.com/roach88/graphlite/pkg/errors"
	"github.com/roach88/graphlite/schema"
)

type hit struct {
	handle string
	fields *schema.FieldMap
}

// QueryNodes returns the nodes selected by m, in the match's order.
func (db *DB) QueryNodes(ctx context.Context, m match.NodeMatch) ([]Node, error) {
	hits, err := db.query(ctx, m)
	if err != nil {
		return nil, err
	}
	out := make([]Node, len(hits))
	for i, h := range hits {
		out[i] = Node{Handle: h.handle, Fields: h.fields}
	}
	return out, nil
}

// QueryEdges returns the edges selected by m, in the match's order.
func (db *DB) QueryEdges(ctx context.Context, m match.EdgeMatch) ([]Edge, error) {
	hits, err := db.query(ctx, m)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, len(hits))
	for i, h := range hits {
		out[i] = Edge{Handle: h.handle, Fields: h.fields}
	}
	return out, nil
}

// Nodes is QueryNodes as a sequence. The query runs when iteration starts;
// a failure is yielded once as the error of an empty Node.
func (db *DB) Nodes(ctx context.Context, m match.NodeMatch) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		nodes, err := db.QueryNodes(ctx, m)
		if err != nil {
			yield(Node{}, err)
			return
		}
		for _, n := range nodes {
			if !yield(n, nil) {
				return
			}
		}
	}
}

// Edges is QueryEdges as a sequence.
func (db *DB) Edges(ctx context.Context, m match.EdgeMatch) iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		edges, err := db.QueryEdges(ctx, m)
		if err != nil {
			yield(Edge{}, err)
			return
		}
		for _, e := range edges {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// query compiles m, reads the matching element ids and hydrates each one,
// all in one transaction. Rows are fully read before hydration starts, and
// the result never holds the connection.
func (db *DB) query(ctx context.Context, m match.ElementMatch) ([]hit, error) {
	var hits []hit
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		stmt, err := db.compiler.Compile(ctx, m)
		if err != nil {
			return err
		}
		s := db.known(stmt.Schema)
		_, ids, err := db.persistedFields(ctx, s)
		if err != nil {
			return err
		}

		rows, err := db.store.Query(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return err
		}
		type row struct{ id, handle string }
		var found []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.handle); err != nil {
				rows.Close()
				return glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to scan query result")
			}
			found = append(found, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to read query result")
		}
		rows.Close()

		hits = make([]hit, 0, len(found))
		for _, r := range found {
			fm, err := db.hydrate(ctx, r.id, s, ids)
			if err != nil {
				return err
			}
			hits = append(hits, hit{handle: r.handle, fields: fm})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}
