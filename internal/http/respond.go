package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error     string              `json:"error"`
	Code      string              `json:"code"`
	Details   []domain.FieldError `json:"details,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, req *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code, RequestID: chimiddleware.GetReqID(req.Context())})
}

// writeDomainError maps a service error onto the HTTP error taxonomy.
// Unclassified errors are logged and answered with a generic 500.
func (r *Router) writeDomainError(w http.ResponseWriter, req *http.Request, err error) {
	reqID := chimiddleware.GetReqID(req.Context())

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:     verr.Error(),
			Code:      "VALIDATION_ERROR",
			Details:   verr.Fields,
			RequestID: reqID,
		})
		return
	}

	var derr *domain.Error
	if errors.As(err, &derr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrValidation):
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: derr.Message, Code: derr.Code, RequestID: reqID})
		return
	}

	r.logger.Error("request failed", "error", err, "path", req.URL.Path, "request_id", reqID)
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:     domain.PublicMessage(err),
		Code:      "INTERNAL_ERROR",
		RequestID: reqID,
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeError(w, req, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON")
		return false
	}
	return true
}
