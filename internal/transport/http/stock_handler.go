package http

import (
	"net/http"

	"github.com/Jahb/WedDataManagement/internal/service"
)

// StockHandler exposes the stock ledger's CRUD surface.
type StockHandler struct {
	svc service.StockService
}

func NewStockHandler(svc service.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

func (h *StockHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /item/create/{price}", h.CreateItem)
	mux.HandleFunc("GET /find/{item_id}", h.FindItem)
	mux.HandleFunc("POST /add/{item_id}/{amount}", h.AddStock)
	mux.HandleFunc("POST /subtract/{item_id}/{amount}", h.RemoveStock)
}

func (h *StockHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	price, err := amountParam(r, "price")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	itemID, err := h.svc.CreateItem(r.Context(), price)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"item_id": itemID})
}

func (h *StockHandler) FindItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.FindItem(r.Context(), r.PathValue("item_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *StockHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.svc.AddStock(r.Context(), r.PathValue("item_id"), amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}

func (h *StockHandler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	amount, err := amountParam(r, "amount")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.svc.RemoveStock(r.Context(), r.PathValue("item_id"), amount); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"done": true})
}
