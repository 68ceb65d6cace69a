package http

import (
	"errors"
	"net/http"

	"github.com/Jahb/WedDataManagement/internal/service"
)

// PaymentHandler exposes the credit ledger's CRUD surface. The barrier-guarded
// operations behave exactly as they do over the broker; a duplicate pay or
// cancel reports done with a duplicate marker.
type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /create_user", h.CreateUser)
	mux.HandleFunc("GET /find_user/{user_id}", h.FindUser)
	mux.HandleFunc("POST /add_funds/{user_id}/{amount}", h.AddFunds)
	mux.HandleFunc("POST /pay/{user_id}/{order_id}/{amount}", h.Pay)
	mux.HandleFunc("POST /cancel/{user_id}/{order_id}", h.Cancel)
	mux.HandleFunc("POST /status/{order_id}", h.Status)
}

func (h *PaymentHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := h.svc.CreateUser(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (h *PaymentHandler) FindUser(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.FindUser(r.Context(), r.PathValue("user_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, acc)
}

func (h *PaymentHandler) AddFunds(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.svc.AddCredit(r.Context(), r.PathValue("user_id"), amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	err = h.svc.ReserveCredit(r.Context(), r.PathValue("user_id"), r.PathValue("order_id"), amount)
	if errors.Is(err, service.ErrAlreadyProcessed) {
		respondJSON(w, http.StatusOK, map[string]bool{"done": true, "duplicate": true})
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.svc.ReleaseCredit(r.Context(), r.PathValue("user_id"), r.PathValue("order_id"))
	if errors.Is(err, service.ErrAlreadyProcessed) {
		respondJSON(w, http.StatusOK, map[string]bool{"done": true, "duplicate": true})
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	paid, err := h.svc.PaymentStatus(r.Context(), r.PathValue("order_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"paid": paid})
}
