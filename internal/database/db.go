// Package database is the transactional persistence boundary. Queries runs
// against either a pgx pool or an open transaction via the DBTX interface,
// so the service layer composes multi-statement operations atomically.
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoRowsAffected is returned by Exec-style updates that matched no row.
var ErrNoRowsAffected = errors.New("no rows affected")

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries exposes the data-access methods. Create one per pool for reads,
// or per transaction for atomic write sequences.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}
