package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"
	"project-ledger-api/internal/view"
)

// maxJSONBody bounds JSON request bodies. Attachments travel inline, so it is generous.
const maxJSONBody = 16 << 20

// errorStatus maps an error onto its HTTP status and error code.
func errorStatus(err error) (int, string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, view.ErrUnauthenticated):
		return http.StatusUnauthorized, "AUTHENTICATION_REQUIRED"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrDuplicateIdentity):
		return http.StatusConflict, "DUPLICATE_IDENTITY"
	case errors.Is(err, view.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeError answers with the status and code for err. Server-side failures are logged and
// their details kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err,
		)
		message = http.StatusText(status)
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		message = verr.Error()
	}
	auth.SendErrorResponse(w, message, code, status)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// clientIP is the remote host without port. Forwarding headers are ignored since they are
// trivially spoofed.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
