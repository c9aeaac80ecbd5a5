package api

import (
	"errors"
	"net/http"

	"tabschema/internal/middleware"
	"tabschema/internal/schema"
)

// requestError carries a client-facing status for malformed requests.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// httpStatusFromError maps service errors to HTTP status codes.
func httpStatusFromError(err error) int {
	var notFound *schema.TableNotFoundError
	var reqErr *requestError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &reqErr):
		return reqErr.status
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the common {"code", "message"} shape.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	body := map[string]interface{}{
		"code":       status,
		"message":    err.Error(),
		"request_id": middleware.RequestIDFromContext(r.Context()),
	}
	var notFound *schema.TableNotFoundError
	if errors.As(err, &notFound) {
		body["available"] = notFound.Available
	}
	writeJSON(w, status, body)
}
