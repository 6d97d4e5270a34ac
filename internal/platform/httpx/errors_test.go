package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockline-erp/stockline/internal/shared"
)

func respond(t *testing.T, err error) (int, Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	RespondError(rec, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestRespondErrorShortageCarriesNumbers(t *testing.T) {
	code, env := respond(t, &shared.ShortageError{
		ProductID: 1, WarehouseID: 100, Available: 5, Required: 8, Shortage: 3,
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.False(t, env.Success)
	require.NotNil(t, env.Error.Available)
	require.Equal(t, int64(5), *env.Error.Available)
	require.Equal(t, int64(8), *env.Error.Required)
	require.Equal(t, int64(3), *env.Error.Shortage)
}

func TestRespondErrorNotFound(t *testing.T) {
	code, env := respond(t, &shared.NotFoundError{Entity: "product", ID: 42})
	require.Equal(t, http.StatusNotFound, code)
	require.Contains(t, env.Error.Message, "product")
}

func TestRespondErrorDuplicateConflicts(t *testing.T) {
	code, _ := respond(t, &shared.DuplicateError{Entity: "category", Name: "Hardware"})
	require.Equal(t, http.StatusConflict, code)
}

func TestRespondErrorReferentialGuard(t *testing.T) {
	code, env := respond(t, &shared.ReferentialGuardError{Entity: "warehouse", ReferencedBy: "stock rows", Count: 2})
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, env.Error.Message, "warehouse")
}

func TestRespondErrorInvalidInput(t *testing.T) {
	code, _ := respond(t, fmt.Errorf("%w: quantity must be positive", shared.ErrInvalidInput))
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRespondErrorUnknownHidesDetail(t *testing.T) {
	code, env := respond(t, errors.New("pq: connection refused"))
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "internal error", env.Error.Message)
}
