package cart

import (
	"log/slog"
	"net/http"

	"github.com/nexusmart/shop/internal/auth"
	"github.com/nexusmart/shop/internal/respond"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	var req addItemRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.service.AddItem(r.Context(), caller.UserID, req.ProductID, quantity)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, cart, "Item added to cart")
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	summary, err := h.service.GetCart(r.Context(), caller.UserID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, summary, "Cart fetched successfully")
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), caller.UserID, r.PathValue("productId"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, cart, "Item removed from cart")
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.service.Clear(r.Context(), caller.UserID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, cart, "Cart cleared successfully")
}
