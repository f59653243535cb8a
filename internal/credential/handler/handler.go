package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"attest/internal/credential/models"
	"attest/internal/ledger/txnbuild"
	"attest/internal/platform/middleware"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service defines the interface for credential lifecycle operations.
type Service interface {
	Issue(ctx context.Context, operator string, req models.IssueRequest) (*models.IssueResult, error)
	Transfer(ctx context.Context, operator string, credentialID uint64, holderAddress string) (*models.TransferResult, error)
	Revoke(ctx context.Context, operator string, credentialID uint64) (*models.RevokeResult, error)
	BuildOptIn(ctx context.Context, credentialID uint64, address string) (*txnbuild.Group, error)
	SubmitOptIn(ctx context.Context, credentialID uint64, address string, signedTxn []byte) (*models.OptInResult, error)
	Get(ctx context.Context, credentialID uint64) (*models.Credential, error)
	List(ctx context.Context, filter *models.RecordFilter) ([]*models.Record, error)
}

// Handler handles credential lifecycle endpoints.
type Handler struct {
	logger     *slog.Logger
	credential Service
}

// New creates a new credential Handler.
func New(credential Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		credential: credential,
	}
}

// Register registers the operator-facing routes. The router passed here must
// already enforce operator authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.handleIssue)
	r.Get("/credentials", h.handleList)
	r.Get("/credentials/{id}", h.handleGet)
	r.Post("/credentials/{id}/transfer", h.handleTransfer)
	r.Post("/credentials/{id}/revoke", h.handleRevoke)
}

// RegisterPublic registers the holder-facing opt-in route, which carries its
// own signature instead of an operator token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/credentials/{id}/optin", h.handleOptInBuild)
	r.Post("/credentials/{id}/optin", h.handleOptIn)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator := middleware.GetOperator(ctx)

	var req models.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode issue request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.credential.Issue(ctx, operator, req)
	if err != nil {
		h.logError(ctx, "issue credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

type transferRequest struct {
	HolderAddress string `json:"holder_address"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator := middleware.GetOperator(ctx)

	credentialID, err := credentialIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.credential.Transfer(ctx, operator, credentialID, req.HolderAddress)
	if err != nil {
		h.logError(ctx, "transfer credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator := middleware.GetOperator(ctx)

	credentialID, err := credentialIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.credential.Revoke(ctx, operator, credentialID)
	if err != nil {
		h.logError(ctx, "revoke credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleOptInBuild hands the holder's wallet the unsigned opt-in group it
// must sign and post back.
func (h *Handler) handleOptInBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := credentialIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	address := r.URL.Query().Get("address")
	if address == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "address query parameter is required"))
		return
	}

	group, err := h.credential.BuildOptIn(ctx, credentialID, address)
	if err != nil {
		h.logError(ctx, "opt-in build failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, group)
}

type optInRequest struct {
	Address   string `json:"address"`
	SignedTxn string `json:"signed_txn"`
}

func (h *Handler) handleOptIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := credentialIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req optInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	signedTxn, err := base64.StdEncoding.DecodeString(req.SignedTxn)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "signed_txn must be base64"))
		return
	}

	result, err := h.credential.SubmitOptIn(ctx, credentialID, req.Address, signedTxn)
	if err != nil {
		h.logError(ctx, "opt-in submission failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := credentialIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credential, err := h.credential.Get(ctx, credentialID)
	if err != nil {
		h.logError(ctx, "get credential failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, credential)
}

type listResponse struct {
	Credentials []*models.Record `json:"credentials"`
	Count       int              `json:"count"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := &models.RecordFilter{
		ShortCode: r.URL.Query().Get("short_code"),
		IssuedBy:  r.URL.Query().Get("issued_by"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "offset must be a non-negative integer"))
			return
		}
		filter.Offset = offset
	}

	records, err := h.credential.List(ctx, filter)
	if err != nil {
		h.logError(ctx, "list credentials failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Credentials: records, Count: len(records)})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
}

func credentialIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	credentialID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || credentialID == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "credential id must be a positive integer")
	}
	return credentialID, nil
}
