package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"attest/internal/platform/middleware"
	"attest/internal/verify"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the interface for verification.
type Service interface {
	Verify(ctx context.Context, credentialID uint64) (*verify.Result, error)
}

// Handler handles the public verification endpoint.
type Handler struct {
	logger   *slog.Logger
	verifier Service
}

// New creates a new verification Handler.
func New(verifier Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		verifier: verifier,
	}
}

// Register registers the verification route. The endpoint is public: anyone
// holding a credential id may check it.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{id}", h.handleVerify)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := chi.URLParam(r, "id")
	credentialID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || credentialID == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "credential id must be a positive integer"))
		return
	}

	result, err := h.verifier.Verify(ctx, credentialID)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", middleware.GetRequestID(ctx),
			"credential_id", credentialID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
