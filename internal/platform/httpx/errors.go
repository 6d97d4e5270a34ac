package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/stockline-erp/stockline/internal/shared"
)

// RespondError maps domain errors onto the response envelope. Expected,
// user-correctable conditions keep their message; anything else becomes a
// generic 500 so storage details never leak.
func RespondError(w http.ResponseWriter, err error) {
	var short *shared.ShortageError
	var guard *shared.ReferentialGuardError
	var invalid validator.ValidationErrors

	switch {
	case errors.As(err, &short):
		JSON(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{
			Message:   short.Error(),
			Available: &short.Available,
			Required:  &short.Required,
			Shortage:  &short.Shortage,
		}})
	case errors.As(err, &guard):
		JSON(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{Message: guard.Error()}})
	case errors.Is(err, shared.ErrNotFound):
		JSON(w, http.StatusNotFound, Envelope{Error: &ErrorBody{Message: shared.UserSafeMessage(err)}})
	case errors.Is(err, shared.ErrDuplicate):
		JSON(w, http.StatusConflict, Envelope{Error: &ErrorBody{Message: shared.UserSafeMessage(err)}})
	case errors.As(err, &invalid), errors.Is(err, shared.ErrInvalidInput):
		JSON(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{Message: err.Error()}})
	case errors.Is(err, shared.ErrIdempotencyConflict):
		JSON(w, http.StatusConflict, Envelope{Error: &ErrorBody{Message: err.Error()}})
	default:
		JSON(w, http.StatusInternalServerError, Envelope{Error: &ErrorBody{Message: "internal error"}})
	}
}

// BadRequest renders a plain invalid-input response.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, Envelope{Error: &ErrorBody{Message: message}})
}

// NotFound renders a plain not-found response.
func NotFound(w http.ResponseWriter, message string) {
	JSON(w, http.StatusNotFound, Envelope{Error: &ErrorBody{Message: message}})
}
