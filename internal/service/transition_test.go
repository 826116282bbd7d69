package service

import (
	"errors"
	"testing"

	"github.com/arunika-pos/api/internal/enum"
)

func TestValidTransitions(t *testing.T) {
	valid := []struct{ from, to enum.OrderStatus }{
		{enum.OrderStatusDraft, enum.OrderStatusConfirmed},
		{enum.OrderStatusDraft, enum.OrderStatusCancelled},
		{enum.OrderStatusConfirmed, enum.OrderStatusPreparing},
		{enum.OrderStatusConfirmed, enum.OrderStatusCancelled},
		{enum.OrderStatusPreparing, enum.OrderStatusReady},
		{enum.OrderStatusPreparing, enum.OrderStatusCancelled},
		{enum.OrderStatusReady, enum.OrderStatusServed},
		{enum.OrderStatusServed, enum.OrderStatusCompleted},
	}
	for _, tc := range valid {
		if err := ValidateTransition(tc.from, tc.to); err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
	}
}

func TestInvalidTransitionsExhaustive(t *testing.T) {
	all := []enum.OrderStatus{
		enum.OrderStatusDraft, enum.OrderStatusConfirmed, enum.OrderStatusPreparing,
		enum.OrderStatusReady, enum.OrderStatusServed, enum.OrderStatusCompleted,
		enum.OrderStatusCancelled,
	}
	// Every (from, to) pair not explicitly allowed must be rejected with a
	// typed error naming both statuses.
	for _, from := range all {
		for _, to := range all {
			if IsValidTransition(from, to) {
				continue
			}
			err := ValidateTransition(from, to)
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Fatalf("%s -> %s: got %v, want InvalidTransitionError", from, to, err)
			}
			if ite.From != from || ite.To != to {
				t.Errorf("%s -> %s: error carries %s -> %s", from, to, ite.From, ite.To)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []enum.OrderStatus{enum.OrderStatusCompleted, enum.OrderStatusCancelled} {
		if len(allowedTransitions[terminal]) != 0 {
			t.Errorf("%s must have no outgoing transitions", terminal)
		}
	}
}

func TestReadyCannotGoBackToPreparing(t *testing.T) {
	err := ValidateTransition(enum.OrderStatusReady, enum.OrderStatusPreparing)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
}
