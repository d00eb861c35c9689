package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fjod/farmfresh/internal/domain"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Message: message, Code: code})
}

// handleServiceError converts a service error into a status, code and message.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
	)

	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		httpStatus, code = http.StatusNotFound, "not_found"
	case domain.ErrInvalidInput:
		httpStatus, code = http.StatusBadRequest, "invalid_input"
	case domain.ErrOutOfStock:
		httpStatus, code = http.StatusBadRequest, "out_of_stock"
	case domain.ErrEmptyCart:
		httpStatus, code = http.StatusBadRequest, "empty_cart"
	case domain.ErrInvalidAddress:
		httpStatus, code = http.StatusBadRequest, "invalid_address"
	case domain.ErrDuplicateCategory:
		httpStatus, code = http.StatusBadRequest, "duplicate_category"
	case domain.ErrConflict:
		httpStatus, code = http.StatusConflict, "conflict"
	case domain.ErrUnauthorized:
		httpStatus, code = http.StatusUnauthorized, "unauthorized"
	case domain.ErrForbidden:
		httpStatus, code = http.StatusForbidden, "forbidden"
	default:
		httpStatus, code = http.StatusInternalServerError, "internal_error"
	}

	respondError(w, httpStatus, code, domain.MessageOf(err))
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func respondInvalidJSON(w http.ResponseWriter) {
	respondError(w, http.StatusBadRequest, "invalid_input", "Invalid JSON body")
}
