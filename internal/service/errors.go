package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arunika-pos/api/internal/enum"
)

// Errors returned by the order service. Validation errors are surfaced to
// the caller before any mutation is attempted.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrInvalidOrderType  = errors.New("invalid order_type")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID = errors.New("invalid menu_item_id")
	ErrInvalidVariantID  = errors.New("invalid variant_id")
	ErrInvalidTableID    = errors.New("invalid table_id")
	ErrNegativeModifier  = errors.New("modifier price must be >= 0")
	ErrMenuItemNotFound  = errors.New("menu item not found in branch")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrVariantMismatch   = errors.New("variant does not belong to menu item")
	ErrOrderNotFound     = errors.New("order not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrOrderNotEditable  = errors.New("order items can only change while DRAFT or CONFIRMED")
	ErrConflict          = errors.New("order changed concurrently, re-fetch and retry")
)

// UnavailableItemError reports every unavailable menu item or variant in a
// request. The whole request is rejected; nothing is written.
type UnavailableItemError struct {
	Names []string
}

func (e *UnavailableItemError) Error() string {
	return "items unavailable: " + strings.Join(e.Names, ", ")
}

// InvalidTransitionError names both statuses of a rejected transition.
type InvalidTransitionError struct {
	From enum.OrderStatus
	To   enum.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// StoreError wraps a failure of the transactional store. The cause stays
// reachable through errors.Is/As (a storage timeout surfaces as
// context.DeadlineExceeded through the wrap), but its message is never
// shown to end users.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
