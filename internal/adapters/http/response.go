package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campushq/certificate-service/internal/domain"
)

type errorBody struct {
	Code                  string `json:"code"`
	Message               string `json:"message"`
	ExistingCertificateID string `json:"existing_certificate_id,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// writeDomainError maps domain sentinels to transport status codes. A duplicate
// issuance is the one enriched case: the response carries the identifier of the
// certificate that already exists so clients can link straight to it.
func writeDomainError(w http.ResponseWriter, err error) {
	var dup *domain.DuplicateError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Code:                  "ALREADY_EXISTS",
			Message:               dup.Error(),
			ExistingCertificateID: dup.CertificateID,
		}})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "not allowed for this certificate")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many verification requests")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrGenerationFailed):
		writeError(w, http.StatusInternalServerError, "GENERATION_FAILED", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
