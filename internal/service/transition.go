package service

import "github.com/arunika-pos/api/internal/enum"

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// DRAFT is the only initial state; COMPLETED and CANCELLED are terminal.
var allowedTransitions = map[enum.OrderStatus][]enum.OrderStatus{
	enum.OrderStatusDraft:     {enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
	enum.OrderStatusConfirmed: {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusServed},
	enum.OrderStatusServed:    {enum.OrderStatusCompleted},
	enum.OrderStatusCompleted: {},
	enum.OrderStatusCancelled: {},
}

// IsValidTransition reports whether from -> to is in the transition table.
func IsValidTransition(from, to enum.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks the table and returns an
// *InvalidTransitionError naming both statuses when the edge is missing.
// The engine consults this before every status write; no call site
// bypasses it.
func ValidateTransition(from, to enum.OrderStatus) error {
	if !IsValidTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
