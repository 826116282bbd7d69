package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/arunika-pos/api/internal/enum"
)

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	var t Table
	err := q.db.QueryRow(ctx,
		`SELECT id, branch_id, table_number, status, version FROM tables WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.BranchID, &t.TableNumber, &t.Status, &t.Version)
	return t, err
}

type SetTableStatusParams struct {
	ID     uuid.UUID
	Status enum.TableStatus
}

// SetTableStatus flips table occupancy. Callers treat it as a best-effort
// side effect: a failure is reported as a warning, never rolled into the
// order transaction.
func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE tables SET status = $2, version = version + 1 WHERE id = $1`,
		arg.ID, arg.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
