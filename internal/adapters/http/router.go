package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campushq/certificate-service/internal/application"
	"github.com/campushq/certificate-service/internal/ports"
)

// Handler wires the certificate service onto chi. Verification is public;
// everything under /certificates/v1 requires a bearer token.
type Handler struct {
	svc       *application.Service
	verifier  ports.TokenVerifier
	logger    *slog.Logger
	readiness func(ctx context.Context) error
}

func NewHandler(svc *application.Service, verifier ports.TokenVerifier, logger *slog.Logger, readiness func(ctx context.Context) error) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, verifier: verifier, logger: logger, readiness: readiness}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(loggingMiddleware(h.logger))

	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyz)

	r.Get("/verify/v1/{certificateID}", h.handleVerify)

	r.Route("/certificates/v1", func(r chi.Router) {
		r.Use(authMiddleware(h.verifier))
		r.Post("/", h.handleIssue)
		r.Post("/batch", h.handleIssueBatch)
		r.Get("/event/{eventID}", h.handleListByEvent)
		r.Get("/{certificateID}", h.handleGet)
		r.Get("/{certificateID}/download", h.handleDownload)
		r.Post("/{certificateID}/accept", h.handleAccept)
		r.Post("/{certificateID}/revoke", h.handleRevoke)
		r.Post("/{certificateID}/regenerate", h.handleRegenerate)
	})

	return r
}
