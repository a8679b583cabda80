package graphlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/graphlite/internal/store"
	glerr "github.com/roach88/graphlite/pkg/errors"
)

// Connection links an edge to a node. Outgoing is true when the node is
// the edge's source, false when it is the target and nil when the
// connection is undirected.
type Connection struct {
	EdgeHandle string
	NodeHandle string
	Outgoing   *bool
}

func (c Connection) String() string {
	switch {
	case c.Outgoing == nil:
		return fmt.Sprintf("%s -- %s", c.NodeHandle, c.EdgeHandle)
	case *c.Outgoing:
		return fmt.Sprintf("%s -> %s", c.NodeHandle, c.EdgeHandle)
	default:
		return fmt.Sprintf("%s <- %s", c.NodeHandle, c.EdgeHandle)
	}
}

// Bool returns a pointer to b, for Connect.
func Bool(b bool) *bool { return &b }

// endpoints returns the source and target outgoing values of a two-node
// connection.
func endpoints(directed bool) (source, target *bool) {
	if directed {
		return Bool(true), Bool(false)
	}
	return nil, nil
}

func encodeOutgoing(outgoing *bool) any {
	switch {
	case outgoing == nil:
		return nil
	case *outgoing:
		return 1
	default:
		return 0
	}
}

// Connect links an edge to a node. Each edge and node pair is connected at
// most once; a second Connect, or an unknown handle, fails with
// store.constraint.conflict and writes nothing.
func (db *DB) Connect(ctx context.Context, edgeHandle, nodeHandle string, outgoing *bool) (*Connection, error) {
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		return db.store.InsertOrAbort(ctx, "Connection", store.Row{
			"id":         uuid.NewString(),
			"edgeHandle": edgeHandle,
			"nodeHandle": nodeHandle,
			"outgoing":   encodeOutgoing(outgoing),
		})
	})
	if err != nil {
		db.logger.Info("connect failed",
			slog.String("edge", edgeHandle),
			slog.String("node", nodeHandle),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &Connection{EdgeHandle: edgeHandle, NodeHandle: nodeHandle, Outgoing: outgoing}, nil
}

// ConnectDirected links an edge to two distinct nodes. When directed, the
// source gets Outgoing true and the target false; otherwise both are
// undirected.
func (db *DB) ConnectDirected(ctx context.Context, edgeHandle, sourceHandle, targetHandle string, directed bool) ([]Connection, error) {
	return db.connectPair(ctx, sourceHandle, targetHandle, directed, func(ctx context.Context, node string, outgoing *bool) (*Connection, error) {
		return db.Connect(ctx, edgeHandle, node, outgoing)
	})
}

// ConnectOrReplace links an edge to a node, replacing an existing
// connection of the pair.
func (db *DB) ConnectOrReplace(ctx context.Context, edgeHandle, nodeHandle string, outgoing *bool) (*Connection, error) {
	var out *Connection
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		if _, err := db.Disconnect(ctx, edgeHandle, nodeHandle); err != nil {
			return err
		}
		c, err := db.Connect(ctx, edgeHandle, nodeHandle, outgoing)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConnectOrReplaceDirected is ConnectDirected over ConnectOrReplace.
func (db *DB) ConnectOrReplaceDirected(ctx context.Context, edgeHandle, sourceHandle, targetHandle string, directed bool) ([]Connection, error) {
	return db.connectPair(ctx, sourceHandle, targetHandle, directed, func(ctx context.Context, node string, outgoing *bool) (*Connection, error) {
		return db.ConnectOrReplace(ctx, edgeHandle, node, outgoing)
	})
}

// GetOrConnect returns the connection of the pair, creating it when absent.
// An existing connection is returned as stored, whatever outgoing says.
func (db *DB) GetOrConnect(ctx context.Context, edgeHandle, nodeHandle string, outgoing *bool) (*Connection, error) {
	var out *Connection
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		c, err := db.FindConnection(ctx, edgeHandle, nodeHandle)
		if err != nil {
			return err
		}
		if c == nil {
			c, err = db.Connect(ctx, edgeHandle, nodeHandle, outgoing)
		}
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrConnectDirected is ConnectDirected over GetOrConnect.
func (db *DB) GetOrConnectDirected(ctx context.Context, edgeHandle, sourceHandle, targetHandle string, directed bool) ([]Connection, error) {
	return db.connectPair(ctx, sourceHandle, targetHandle, directed, func(ctx context.Context, node string, outgoing *bool) (*Connection, error) {
		return db.GetOrConnect(ctx, edgeHandle, node, outgoing)
	})
}

func (db *DB) connectPair(ctx context.Context, source, target string, directed bool,
	connect func(ctx context.Context, node string, outgoing *bool) (*Connection, error)) ([]Connection, error) {
	if source == target {
		return nil, glerr.New(glerr.CodeGraphConnectionInvalid,
			fmt.Sprintf("cannot connect node %q to itself", source), glerr.FieldHandle(source))
	}
	srcOut, dstOut := endpoints(directed)

	var out []Connection
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		a, err := connect(ctx, source, srcOut)
		if err != nil {
			return err
		}
		b, err := connect(ctx, target, dstOut)
		if err != nil {
			return err
		}
		out = []Connection{*a, *b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindConnection returns the connection of an edge and node pair, or nil.
func (db *DB) FindConnection(ctx context.Context, edgeHandle, nodeHandle string) (*Connection, error) {
	var outgoing sql.NullBool
	err := db.store.QueryRow(ctx,
		"SELECT outgoing FROM Connection WHERE edgeHandle = ? AND nodeHandle = ?",
		edgeHandle, nodeHandle).Scan(&outgoing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to find connection")
	}
	return &Connection{EdgeHandle: edgeHandle, NodeHandle: nodeHandle, Outgoing: decodeOutgoing(outgoing)}, nil
}

// Disconnect removes the connection of an edge and node pair and reports
// whether it existed.
func (db *DB) Disconnect(ctx context.Context, edgeHandle, nodeHandle string) (bool, error) {
	return db.store.Delete(ctx, "Connection", "edgeHandle = ? AND nodeHandle = ?", edgeHandle, nodeHandle)
}

// GetConnections returns every connection of an element, whether it is the
// edge or the node. The connections are read in one transaction before the
// sequence is returned, so iterating never touches the database.
func (db *DB) GetConnections(ctx context.Context, handle string) (iter.Seq[Connection], error) {
	var conns []Connection
	err := db.store.Transaction(ctx, func(ctx context.Context) error {
		rows, err := db.store.Query(ctx,
			"SELECT edgeHandle, nodeHandle, outgoing FROM Connection "+
				"WHERE edgeHandle = ? OR nodeHandle = ? ORDER BY edgeHandle, nodeHandle",
			handle, handle)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				c        Connection
				outgoing sql.NullBool
			)
			if err := rows.Scan(&c.EdgeHandle, &c.NodeHandle, &outgoing); err != nil {
				return glerr.Wrap(err, glerr.CodeStoreDatabaseFailure, "failed to scan connection")
			}
			c.Outgoing = decodeOutgoing(outgoing)
			conns = append(conns, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return func(yield func(Connection) bool) {
		for _, c := range conns {
			if !yield(c) {
				return
			}
		}
	}, nil
}

func decodeOutgoing(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return Bool(v.Bool)
}
