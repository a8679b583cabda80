// Package store is the SQLite driver layer under graphlite.
//
// It owns the connection, the global tables (Schema, Field, Element,
// Connection) and the transaction model:
//
//   - Transaction is reentrant. A transaction started inside another one
//     joins it, and only the outermost call commits or rolls back. The
//     active *sql.Tx travels in the context.
//   - Savepoint opens a nested rollback scope inside the current
//     transaction. Failing work inside it is undone without poisoning the
//     outer transaction.
//   - Every statement issued with a context that carries a transaction
//     runs on that transaction.
//
// # Database Configuration
//
//   - WAL journal (configurable)
//   - synchronous=NORMAL
//   - busy_timeout, 5 seconds by default
//   - foreign_keys=ON, required for cascading deletes of field values
//     and connections
//   - a single open connection, so SQLite never reports SQLITE_BUSY to
//     ourselves
//
// Two drivers are supported: github.com/mattn/go-sqlite3 ("sqlite3", the
// default) and modernc.org/sqlite ("sqlite", no cgo). Both ship the FTS4
// and R-tree modules the field layout relies on.
package store
