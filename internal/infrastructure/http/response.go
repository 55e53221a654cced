package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
	"priceoracle-service/internal/infrastructure/logx"

	"go.uber.org/zap"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

// statusFor maps application and domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrBadRequest),
		errors.Is(err, domain.ErrUnknownAssetClass),
		errors.Is(err, domain.ErrEmptySymbol):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrNotFound),
		errors.Is(err, domain.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAllSourcesFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logx.WithFields(r.Context()).Error("http.internal_error", zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}
