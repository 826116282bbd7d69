package enum

// ── Group A: State machines (CHECK constrained in DB) ──

// OrderStatus is the closed order state machine. Transitions between
// statuses are governed by the service layer's transition table.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "DRAFT"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusServed    OrderStatus = "SERVED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusServed, OrderStatusCompleted,
		OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderItemStatus is the per-item kitchen lifecycle, independent of the
// order-level state machine.
type OrderItemStatus string

const (
	OrderItemStatusPending   OrderItemStatus = "PENDING"
	OrderItemStatusPreparing OrderItemStatus = "PREPARING"
	OrderItemStatusReady     OrderItemStatus = "READY"
	OrderItemStatusServed    OrderItemStatus = "SERVED"
)

// TableStatus is the occupancy state of a dining table.
type TableStatus string

const (
	TableStatusAvailable TableStatus = "AVAILABLE"
	TableStatusOccupied  TableStatus = "OCCUPIED"
	TableStatusReserved  TableStatus = "RESERVED"
	TableStatusCleaning  TableStatus = "CLEANING"
)

// TicketStatus is the kitchen ticket lifecycle.
type TicketStatus string

const (
	TicketStatusQueued    TicketStatus = "QUEUED"
	TicketStatusPreparing TicketStatus = "PREPARING"
	TicketStatusDone      TicketStatus = "DONE"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

type OrderType string

const (
	OrderTypeDineIn   OrderType = "DINE_IN"
	OrderTypeTakeaway OrderType = "TAKEAWAY"
	OrderTypeDelivery OrderType = "DELIVERY"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Group B: Configurable labels (no DB constraint) ──

// Station is a kitchen preparation area. Menu items carry a station and
// kitchen tickets are grouped by it.
type Station string

const (
	StationGrill    Station = "GRILL"
	StationBeverage Station = "BEVERAGE"
	StationRice     Station = "RICE"
	StationDessert  Station = "DESSERT"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// EventType labels rows in the order_events outbox.
type EventType string

const (
	EventOrderConfirmed EventType = "order.confirmed"
)
