package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Jahb/WedDataManagement/internal/service"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps ledger errors onto the statuses the original API used:
// missing entities are 404, business failures 412, transport timeouts 504 and
// everything else 422.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNoSuchUser),
		errors.Is(err, service.ErrNoSuchItem),
		errors.Is(err, service.ErrNoSuchOrder):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientStock):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusUnprocessableEntity
	}
}

// amountParam parses an integer path value; amounts are whole cents.
func amountParam(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}
