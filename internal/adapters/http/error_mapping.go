package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrComplaintNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAlreadyClosed):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and a client-safe message. Details of
// server-side failures are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := http.StatusText(status)
	switch status {
	case http.StatusBadRequest:
		message = err.Error()
	case http.StatusNotFound:
		message = domain.ErrComplaintNotFound.Error()
	case http.StatusConflict:
		message = domain.ErrAlreadyClosed.Error()
	case http.StatusInternalServerError:
		message = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: message})
}
