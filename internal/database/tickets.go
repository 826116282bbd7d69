package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arunika-pos/api/internal/enum"
)

type CreateKitchenTicketParams struct {
	OrderID  uuid.UUID
	BranchID uuid.UUID
	Station  enum.Station
	Priority int32
}

// CreateKitchenTicket inserts a QUEUED ticket for one station of an order.
// The (order_id, station) unique constraint makes outbox redelivery
// idempotent: a conflicting insert returns pgx.ErrNoRows and the caller
// skips the duplicate.
func (q *Queries) CreateKitchenTicket(ctx context.Context, arg CreateKitchenTicketParams) (KitchenTicket, error) {
	var t KitchenTicket
	err := q.db.QueryRow(ctx, `
		INSERT INTO kitchen_tickets (order_id, branch_id, station, priority)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, station) DO NOTHING
		RETURNING id, order_id, branch_id, station, status, priority, created_at`,
		arg.OrderID, arg.BranchID, arg.Station, arg.Priority,
	).Scan(&t.ID, &t.OrderID, &t.BranchID, &t.Station, &t.Status, &t.Priority, &t.CreatedAt)
	return t, err
}

type CreateKitchenTicketItemParams struct {
	TicketID    uuid.UUID
	OrderItemID uuid.UUID
	Name        string
	Quantity    int32
	Notes       pgtype.Text
}

func (q *Queries) CreateKitchenTicketItem(ctx context.Context, arg CreateKitchenTicketItemParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO kitchen_ticket_items (ticket_id, order_item_id, name, quantity, notes)
		VALUES ($1, $2, $3, $4, $5)`,
		arg.TicketID, arg.OrderItemID, arg.Name, arg.Quantity, arg.Notes,
	)
	return err
}

func (q *Queries) ListKitchenTicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]KitchenTicket, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, branch_id, station, status, priority, created_at
		FROM kitchen_tickets WHERE order_id = $1 ORDER BY station`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []KitchenTicket
	for rows.Next() {
		var t KitchenTicket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.BranchID, &t.Station, &t.Status, &t.Priority, &t.CreatedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
