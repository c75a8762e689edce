package orders

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/nexusmart/shop/internal/auth"
	"github.com/nexusmart/shop/internal/respond"
)

const idempotencyHeader = "Idempotency-Key"

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

type placeOrderRequest struct {
	Address string `json:"address"`
}

func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	var req placeOrderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	placement, err := h.service.PlaceOrder(r.Context(), PlaceOrderRequest{
		CustomerID:     caller.UserID,
		CustomerEmail:  caller.Email,
		Address:        req.Address,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyHeader)),
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	if placement.Replayed {
		respond.JSON(w, h.logger, http.StatusOK, placement.Order, "Order already placed")
		return
	}
	respond.JSON(w, h.logger, http.StatusCreated, placement.Order, "Order placed successfully", placement.Warnings...)
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.Caller(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), caller.UserID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	h.logger.Info("orders listed", "customer_id", caller.UserID, "count", len(orders))
	respond.JSON(w, h.logger, http.StatusOK, orders, "Orders fetched successfully")
}
