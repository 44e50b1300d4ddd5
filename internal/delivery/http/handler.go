package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ecomworks/inventory-service/internal/entity"
	"github.com/ecomworks/inventory-service/internal/repository"
	"github.com/ecomworks/inventory-service/internal/service"
)

// Handler exposes the command layer over HTTP.
type Handler struct {
	inventory *service.InventoryService
}

func NewHandler(inventory *service.InventoryService) *Handler {
	return &Handler{inventory: inventory}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/items", h.handleListItems)
	mux.HandleFunc("POST /api/items", h.handleCreateItem)
	mux.HandleFunc("GET /api/items/{id}", h.handleGetItem)
	mux.HandleFunc("PATCH /api/items/{id}", h.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", h.handleDeleteItem)
	mux.HandleFunc("GET /api/items/{id}/price", h.handleGetPrice)
	mux.HandleFunc("PUT /api/items/{id}/price", h.handleSetPrice)
	mux.HandleFunc("POST /api/reservations", h.handleReserve)
	mux.HandleFunc("POST /api/releases", h.handleRelease)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var spec service.CreateItemSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.inventory.CreateItem(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type updateItemRequest struct {
	Title       *string  `json:"title"`
	Brand       *string  `json:"brand"`
	Description *string  `json:"description"`
	Images      []string `json:"images"`
	Categories  []string `json:"categories"`
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.inventory.UpdateItem(r.Context(), r.PathValue("id"), entity.ItemChanges{
		Title:       req.Title,
		Brand:       req.Brand,
		Description: req.Description,
		Images:      req.Images,
		Categories:  req.Categories,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.inventory.GetLatestPrice(r.Context(), r.PathValue("id"), r.URL.Query().Get("currency"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, price)
}

type setPriceRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

func (h *Handler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.inventory.SetPrice(r.Context(), r.PathValue("id"), req.Amount, req.Currency); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reservationLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Currency  string `json:"currency,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type reservationRequest struct {
	UserID string            `json:"user_id"`
	Items  []reservationLine `json:"items"`
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	lines := make([]entity.ReservationLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = entity.ReservationLine{ProductID: item.ProductID, Quantity: item.Quantity, Currency: item.Currency}
	}

	err := h.inventory.ReserveItems(r.Context(), entity.ReservationRequest{
		UserID: req.UserID,
		Lines:  lines,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	lines := make([]entity.ReleaseLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = entity.ReleaseLine{ProductID: item.ProductID, Quantity: item.Quantity, Reason: item.Reason}
	}

	err := h.inventory.ReleaseItems(r.Context(), entity.ReleaseRequest{
		UserID: req.UserID,
		Lines:  lines,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses: bad input and
// missing entities are 4xx, a rejected reservation is a 409 carrying the
// failure list, and a storage outage is 503.
func writeError(w http.ResponseWriter, err error) {
	var rejected *entity.ReservationRejectedError
	var notFound *repository.NotFoundError

	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "reservation rejected",
			"failures": rejected.Failures,
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":       "not found",
			"missing_ids": notFound.IDs,
		})
	case errors.Is(err, entity.ErrInvalidSpec):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, repository.ErrStorageUnavailable):
		slog.Error("Storage unavailable", "err", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("Unhandled error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
