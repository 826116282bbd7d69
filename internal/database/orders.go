package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arunika-pos/api/internal/enum"
)

const orderColumns = `id, branch_id, order_number, order_number_seq, idempotency_key,
	table_id, customer_id, order_type, status,
	subtotal, tax, service_charge, discount_total, total,
	version, created_by, terminal_id, notes, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.BranchID, &o.OrderNumber, &o.OrderNumberSeq, &o.IdempotencyKey,
		&o.TableID, &o.CustomerID, &o.OrderType, &o.Status,
		&o.Subtotal, &o.Tax, &o.ServiceCharge, &o.DiscountTotal, &o.Total,
		&o.Version, &o.CreatedBy, &o.TerminalID, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// NextOrderNumber returns the next branch-scoped sequence value. It must be
// called inside the transaction that inserts the order; the unique
// constraint on (branch_id, order_number_seq) backstops concurrent readers
// that observe the same MAX.
func (q *Queries) NextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_number_seq), 0) + 1 FROM orders WHERE branch_id = $1`,
		branchID,
	).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	BranchID       uuid.UUID
	OrderNumber    string
	OrderNumberSeq int32
	IdempotencyKey string
	TableID        pgtype.UUID
	CustomerID     pgtype.UUID
	OrderType      enum.OrderType
	Status         enum.OrderStatus
	Subtotal       int64
	Tax            int64
	ServiceCharge  int64
	DiscountTotal  int64
	Total          int64
	CreatedBy      uuid.UUID
	TerminalID     string
	Notes          pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (
			branch_id, order_number, order_number_seq, idempotency_key,
			table_id, customer_id, order_type, status,
			subtotal, tax, service_charge, discount_total, total,
			created_by, terminal_id, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+orderColumns,
		arg.BranchID, arg.OrderNumber, arg.OrderNumberSeq, arg.IdempotencyKey,
		arg.TableID, arg.CustomerID, arg.OrderType, arg.Status,
		arg.Subtotal, arg.Tax, arg.ServiceCharge, arg.DiscountTotal, arg.Total,
		arg.CreatedBy, arg.TerminalID, arg.Notes,
	)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	VariantID  pgtype.UUID
	Name       string
	Quantity   int32
	UnitPrice  int64
	ItemTotal  int64
	Station    enum.Station
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, variant_id, name, quantity, unit_price, item_total, station, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, order_id, menu_item_id, variant_id, name, quantity, unit_price, item_total, status, station, notes, created_at`,
		arg.OrderID, arg.MenuItemID, arg.VariantID, arg.Name, arg.Quantity, arg.UnitPrice, arg.ItemTotal, arg.Station, arg.Notes,
	).Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.VariantID, &it.Name, &it.Quantity, &it.UnitPrice,
		&it.ItemTotal, &it.Status, &it.Station, &it.Notes, &it.CreatedAt)
	return it, err
}

type CreateOrderItemModifierParams struct {
	OrderItemID uuid.UUID
	Name        string
	Price       int64
}

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	var m OrderItemModifier
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_item_modifiers (order_item_id, name, price)
		VALUES ($1, $2, $3)
		RETURNING id, order_item_id, name, price`,
		arg.OrderItemID, arg.Name, arg.Price,
	).Scan(&m.ID, &m.OrderItemID, &m.Name, &m.Price)
	return m, err
}

type GetOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	)
	return scanOrder(row)
}

type ListOrdersParams struct {
	BranchID  uuid.UUID
	Status    pgtype.Text
	OrderType pgtype.Text
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE branch_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR order_type = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		arg.BranchID, arg.Status, arg.OrderType, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type GetOrderByIdempotencyKeyParams struct {
	BranchID       uuid.UUID
	IdempotencyKey string
}

func (q *Queries) GetOrderByIdempotencyKey(ctx context.Context, arg GetOrderByIdempotencyKeyParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE branch_id = $1 AND idempotency_key = $2`,
		arg.BranchID, arg.IdempotencyKey,
	)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row for the remainder of the
// transaction. Item appends take this lock so that two concurrent appends
// serialize their read-recompute-write cycles.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`,
		id,
	)
	return scanOrder(row)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, variant_id, name, quantity, unit_price, item_total, status, station, notes, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.VariantID, &it.Name, &it.Quantity,
			&it.UnitPrice, &it.ItemTotal, &it.Status, &it.Station, &it.Notes, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *Queries) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_item_id, name, price FROM order_item_modifiers WHERE order_item_id = $1 ORDER BY id`,
		orderItemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.Name, &m.Price); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, payment_method, amount, status, reference_number, processed_by, processed_at
		FROM payments WHERE order_id = $1 ORDER BY processed_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.PaymentMethod, &p.Amount, &p.Status,
			&p.ReferenceNumber, &p.ProcessedBy, &p.ProcessedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor, reason, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hist []OrderStatusHistory
	for rows.Next() {
		var h OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.FromStatus, &h.ToStatus, &h.Actor, &h.Reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		hist = append(hist, h)
	}
	return hist, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	NewStatus  enum.OrderStatus
	PrevStatus enum.OrderStatus
	Version    int32
}

// UpdateOrderStatus is a compare-and-set: the write only lands if the row
// still carries the status and version the caller read. pgx.ErrNoRows
// signals a lost race, never a silent overwrite.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND status = $3 AND version = $4
		RETURNING `+orderColumns,
		arg.ID, arg.NewStatus, arg.PrevStatus, arg.Version,
	)
	return scanOrder(row)
}

type UpdateOrderTotalsParams struct {
	ID            uuid.UUID
	Subtotal      int64
	Tax           int64
	ServiceCharge int64
	DiscountTotal int64
	Total         int64
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders
		SET subtotal = $2, tax = $3, service_charge = $4, discount_total = $5, total = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Subtotal, arg.Tax, arg.ServiceCharge, arg.DiscountTotal, arg.Total,
	)
	return scanOrder(row)
}

type InsertStatusHistoryParams struct {
	OrderID    uuid.UUID
	FromStatus pgtype.Text
	ToStatus   enum.OrderStatus
	Actor      uuid.UUID
	Reason     pgtype.Text
}

func (q *Queries) InsertStatusHistory(ctx context.Context, arg InsertStatusHistoryParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		arg.OrderID, arg.FromStatus, arg.ToStatus, arg.Actor, arg.Reason,
	)
	return err
}
