package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nexusmart/shop/internal/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       any             `json:"data"`
	Message    string          `json:"message"`
	Errors     []apperr.Detail `json:"errors,omitempty"`
}

// JSON writes a success envelope. Details may report degraded side effects of
// an otherwise successful call.
func JSON(w http.ResponseWriter, logger *slog.Logger, status int, data any, message string, details ...apperr.Detail) {
	write(w, logger, status, Envelope{
		Success:    status < http.StatusBadRequest,
		StatusCode: status,
		Data:       data,
		Message:    message,
		Errors:     details,
	})
}

// Error writes a failure envelope for err. Errors outside the apperr taxonomy
// are logged and hidden behind a generic message.
func Error(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		logger.Error("request failed", "error", err)
		write(w, logger, http.StatusInternalServerError, Envelope{
			StatusCode: http.StatusInternalServerError,
			Message:    "internal server error",
		})
		return
	}

	status := appErr.Kind.HTTPStatus()
	write(w, logger, status, Envelope{
		StatusCode: status,
		Message:    appErr.Message,
		Errors:     appErr.Details,
	})
}

func write(w http.ResponseWriter, logger *slog.Logger, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return apperr.InvalidInput("request body too large")
	case errors.Is(err, io.EOF):
		return apperr.InvalidInput("request body is required")
	default:
		return apperr.InvalidInput("invalid request body")
	}
}
