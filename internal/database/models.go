package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arunika-pos/api/internal/enum"
)

// All monetary fields are BIGINT minor currency units (e.g. rupiah).

type Order struct {
	ID             uuid.UUID
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
	Version        int32
	CreatedBy      uuid.UUID
	TerminalID     string
	Notes          pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	VariantID  pgtype.UUID
	Name       string
	Quantity   int32
	UnitPrice  int64
	ItemTotal  int64
	Status     enum.OrderItemStatus
	Station    enum.Station
	Notes      pgtype.Text
	CreatedAt  time.Time
}

type OrderItemModifier struct {
	ID          uuid.UUID
	OrderItemID uuid.UUID
	Name        string
	Price       int64
}

// OrderStatusHistory rows are append-only: one per realized transition,
// including the NULL -> DRAFT creation row.
type OrderStatusHistory struct {
	ID         int64
	OrderID    uuid.UUID
	FromStatus pgtype.Text
	ToStatus   enum.OrderStatus
	Actor      uuid.UUID
	Reason     pgtype.Text
	CreatedAt  time.Time
}

type Table struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	TableNumber string
	Status      enum.TableStatus
	Version     int32
}

type Payment struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	PaymentMethod   string
	Amount          int64
	Status          enum.PaymentStatus
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
	ProcessedAt     time.Time
}

// OrderEvent is an outbox row; DispatchedAt is set once the kitchen
// dispatcher has acted on it.
type OrderEvent struct {
	ID           int64
	OrderID      uuid.UUID
	EventType    enum.EventType
	Payload      []byte
	CreatedAt    time.Time
	DispatchedAt pgtype.Timestamptz
}

type KitchenTicket struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	BranchID  uuid.UUID
	Station   enum.Station
	Status    enum.TicketStatus
	Priority  int32
	CreatedAt time.Time
}

type KitchenTicketItem struct {
	ID          uuid.UUID
	TicketID    uuid.UUID
	OrderItemID uuid.UUID
	Name        string
	Quantity    int32
	Notes       pgtype.Text
}

type User struct {
	ID           uuid.UUID
	BranchID     uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
