package http

import (
	"errors"
	"net/http"

	"github.com/Jahb/WedDataManagement/internal/service"
)

// OrderHandler exposes cart CRUD and checkout. Checkout outcomes map to three
// distinct shapes: success, a retryable business rejection, and the fatal
// compensation failure that needs an operator.
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /create/{user_id}", h.CreateOrder)
	mux.HandleFunc("DELETE /remove/{order_id}", h.RemoveOrder)
	mux.HandleFunc("POST /addItem/{order_id}/{item_id}", h.AddItem)
	mux.HandleFunc("DELETE /removeItem/{order_id}/{item_id}", h.RemoveItem)
	mux.HandleFunc("GET /find/{order_id}", h.FindOrder)
	mux.HandleFunc("POST /checkout/{order_id}", h.Checkout)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.svc.CreateOrder(r.Context(), r.PathValue("user_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"order_id": orderID})
}

func (h *OrderHandler) RemoveOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveOrder(r.Context(), r.PathValue("order_id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AddItem(r.Context(), r.PathValue("order_id"), r.PathValue("item_id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveItem(r.Context(), r.PathValue("order_id"), r.PathValue("item_id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *OrderHandler) FindOrder(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.FindOrder(r.Context(), r.PathValue("order_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Checkout(r.Context(), r.PathValue("order_id"))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]any{"done": true, "state": state})
	case errors.Is(err, service.ErrCompensationFailed):
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"state": state,
			"fatal": true,
		})
	case errors.Is(err, service.ErrCheckoutRejected):
		respondJSON(w, http.StatusPreconditionFailed, map[string]any{
			"error": err.Error(),
			"state": state,
		})
	default:
		respondJSON(w, statusFor(err), map[string]any{
			"error": err.Error(),
			"state": state,
		})
	}
}
