package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/arunika-pos/api/internal/enum"
)

type InsertOrderEventParams struct {
	OrderID   uuid.UUID
	EventType enum.EventType
	Payload   []byte
}

// InsertOrderEvent appends an outbox row. Written in the same transaction
// as the state change it announces, so an event exists iff the change
// committed.
func (q *Queries) InsertOrderEvent(ctx context.Context, arg InsertOrderEventParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_events (order_id, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id`,
		arg.OrderID, arg.EventType, arg.Payload,
	).Scan(&id)
	return id, err
}

// PendingOrderEvents returns undispatched outbox rows, oldest first,
// locking them against concurrent dispatcher instances.
func (q *Queries) PendingOrderEvents(ctx context.Context, limit int32) ([]OrderEvent, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, event_type, payload, created_at, dispatched_at
		FROM order_events
		WHERE dispatched_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OrderEvent
	for rows.Next() {
		var e OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.EventType, &e.Payload, &e.CreatedAt, &e.DispatchedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (q *Queries) MarkOrderEventDispatched(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE order_events SET dispatched_at = now() WHERE id = $1`,
		id,
	)
	return err
}
