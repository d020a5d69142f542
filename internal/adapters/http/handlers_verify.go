package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleVerify is the public lookup behind the QR code on every certificate.
// No authentication; the response never distinguishes missing from revoked.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Verify(r.Context(), chi.URLParam(r, "certificateID"), clientOrigin(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusNotFound
	}
	writeJSON(w, status, res)
}
