// Package email is a development mail sink. It validates and logs messages
// instead of delivering them.
package email

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/nexusmart/shop/internal/apperr"
	"github.com/nexusmart/shop/internal/respond"
)

type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	var details []apperr.Detail
	if _, err := mail.ParseAddress(req.To); err != nil {
		details = append(details, apperr.Detail{Field: "to", Message: "must be a valid email address"})
	}
	if strings.TrimSpace(req.Subject) == "" {
		details = append(details, apperr.Detail{Field: "subject", Message: "is required"})
	}
	if len(details) > 0 {
		respond.Error(w, h.logger, apperr.InvalidInput("invalid email", details...))
		return
	}

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject, "body_bytes", len(req.Body))
	respond.JSON(w, h.logger, http.StatusOK, sendResponse{Status: "sent"}, "Email accepted")
}
