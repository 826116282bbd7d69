package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/arunika-pos/api/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service errors onto HTTP statuses:
// validation 400, not found 404, transition/conflict 409, unavailable
// items 422, everything else 500 with the cause logged but not leaked.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var unavailable *service.UnavailableItemError
	if errors.As(err, &unavailable) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":             "items unavailable",
			"unavailable_items": unavailable.Names,
		})
		return
	}

	var transition *service.InvalidTransitionError
	if errors.As(err, &transition) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": transition.Error(),
			"from":  string(transition.From),
			"to":    string(transition.To),
		})
		return
	}

	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrTableNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrOrderNotEditable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrInvalidVariantID) ||
		errors.Is(err, service.ErrInvalidTableID) ||
		errors.Is(err, service.ErrNegativeModifier) ||
		errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrVariantNotFound) ||
		errors.Is(err, service.ErrVariantMismatch)
}
