// Package service implements the credential lifecycle authority. It decides
// which state transitions are legal given current on-ledger state, drives the
// transaction builder and external signer to execute them, and never reports
// a transition as done before observing ledger confirmation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"attest/internal/audit"
	"attest/internal/credential/metrics"
	"attest/internal/credential/models"
	"attest/internal/credential/store"
	"attest/internal/ledger"
	"attest/internal/ledger/txnbuild"
	"attest/internal/pending"
	"attest/internal/platform/middleware"
	"attest/internal/signer"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

const defaultConfirmationRounds = 10

type Option func(*Service)

// Service is the lifecycle authority for one institution's credentials.
// All mutating operations require the configured admin operator; state
// preconditions are always checked against live ledger state, never a cache.
type Service struct {
	ledger  ledger.Client
	builder *txnbuild.Builder
	signer  signer.Signer
	store   store.Store
	pending pending.Tracker
	auditor *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	admin              string
	confirmationRounds uint64
}

func NewService(lc ledger.Client, builder *txnbuild.Builder, sg signer.Signer, st store.Store, admin string, opts ...Option) *Service {
	svc := &Service{
		ledger:             lc,
		builder:            builder,
		signer:             sg,
		store:              st,
		admin:              admin,
		confirmationRounds: defaultConfirmationRounds,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.pending == nil {
		svc.pending = pending.NewMemory(0)
	}
	return svc
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditor sets the audit publisher for the service.
func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithPendingTracker sets the in-flight transaction tracker.
func WithPendingTracker(t pending.Tracker) Option {
	return func(s *Service) {
		s.pending = t
	}
}

// WithConfirmationRounds bounds how many rounds a submitted transaction may
// wait for confirmation before the operation reports a timeout.
func WithConfirmationRounds(rounds uint64) Option {
	return func(s *Service) {
		if rounds > 0 {
			s.confirmationRounds = rounds
		}
	}
}

// Issue mints a new credential token held and controlled by the authority.
func (s *Service) Issue(ctx context.Context, operator string, req models.IssueRequest) (*models.IssueResult, error) {
	start := time.Now()
	if err := s.requireAdmin(operator); err != nil {
		s.recordFailure("issue", err)
		return nil, err
	}
	if err := req.Validate(); err != nil {
		s.recordFailure("issue", err)
		return nil, err
	}

	pending, txID, err := s.execute(ctx, "issue", func(ctx context.Context) (*txnbuild.Group, error) {
		return s.builder.Issue(ctx, txnbuild.IssueSpec{
			UnitName:  req.ShortCode,
			AssetName: req.Name,
			URL:       req.MetadataURI,
		})
	})
	if err != nil {
		s.recordFailure("issue", err)
		return nil, err
	}
	if pending.AssetIndex == 0 {
		err := dErrors.New(dErrors.CodeInternal, "confirmed issuance carries no asset id")
		s.recordFailure("issue", err)
		return nil, err
	}

	record := &models.Record{
		CredentialID: pending.AssetIndex,
		Name:         req.Name,
		ShortCode:    req.ShortCode,
		MetadataURI:  req.MetadataURI,
		IssuedBy:     operator,
		IssueTxID:    txID,
		IssuedAt:     time.Now(),
		LastTxID:     txID,
		LastAction:   "issued",
		UpdatedAt:    time.Now(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		// The token exists on ledger regardless; losing the registry row is
		// recoverable, failing the request after confirmation is not.
		s.logger.Error("issuance confirmed but registry save failed",
			"credential_id", pending.AssetIndex,
			"tx_id", txID,
			"error", err,
		)
	}

	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialIssued,
		CredentialID: fmt.Sprintf("%d", pending.AssetIndex),
		AssetID:      pending.AssetIndex,
		Actor:        operator,
		TxID:         txID,
	})
	s.recordSuccess("issue", start)
	s.logger.Info("credential issued",
		"credential_id", pending.AssetIndex,
		"short_code", req.ShortCode,
		"tx_id", txID,
		"confirmed_round", pending.ConfirmedRound,
	)

	return &models.IssueResult{
		CredentialID:   pending.AssetIndex,
		TxID:           txID,
		ConfirmedRound: pending.ConfirmedRound,
	}, nil
}

// Transfer assigns a minted credential to a holder who has already opted in.
func (s *Service) Transfer(ctx context.Context, operator string, credentialID uint64, holderAddress string) (*models.TransferResult, error) {
	start := time.Now()
	if err := s.requireAdmin(operator); err != nil {
		s.recordFailure("transfer", err)
		return nil, err
	}
	if !ledger.IsValidAddress(holderAddress) {
		err := dErrors.New(dErrors.CodeInvalidInput, "holder address is not a valid ledger address")
		s.recordFailure("transfer", err)
		return nil, err
	}

	state, _, err := s.resolveState(ctx, credentialID)
	if err != nil {
		s.recordFailure("transfer", err)
		return nil, err
	}
	if state != models.StateMinted {
		err := dErrors.New(dErrors.CodeWrongState,
			fmt.Sprintf("credential %d is %s, only minted credentials can be assigned", credentialID, state))
		s.recordFailure("transfer", err)
		return nil, err
	}

	// Fail fast with a precise error instead of an opaque ledger rejection.
	if err := s.checkOptedIn(ctx, credentialID, holderAddress); err != nil {
		s.recordFailure("transfer", err)
		return nil, err
	}

	release, err := s.beginPending(ctx, credentialID)
	if err != nil {
		s.recordFailure("transfer", err)
		return nil, err
	}
	defer release()

	_, txID, err := s.execute(ctx, "transfer", func(ctx context.Context) (*txnbuild.Group, error) {
		return s.builder.Transfer(ctx, credentialID, holderAddress)
	})
	if err != nil {
		err = s.mapTransferRejection(err)
		s.recordFailure("transfer", err)
		return nil, err
	}

	if err := s.store.RecordAction(ctx, credentialID, "transferred", txID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Error("transfer confirmed but registry update failed",
			"credential_id", credentialID, "error", err)
	}

	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialTransferred,
		CredentialID: fmt.Sprintf("%d", credentialID),
		AssetID:      credentialID,
		Actor:        operator,
		Recipient:    holderAddress,
		TxID:         txID,
	})
	s.recordSuccess("transfer", start)
	s.logger.Info("credential transferred",
		"credential_id", credentialID,
		"holder", holderAddress,
		"tx_id", txID,
	)

	return &models.TransferResult{
		CredentialID: credentialID,
		OwnerAddress: holderAddress,
		TxID:         txID,
	}, nil
}

// Revoke permanently invalidates a credential. The freeze, clawback, and
// revocation marker land in one atomic group; there is no way back.
func (s *Service) Revoke(ctx context.Context, operator string, credentialID uint64) (*models.RevokeResult, error) {
	start := time.Now()
	if err := s.requireAdmin(operator); err != nil {
		s.recordFailure("revoke", err)
		return nil, err
	}

	state, holder, err := s.resolveState(ctx, credentialID)
	if err != nil {
		s.recordFailure("revoke", err)
		return nil, err
	}
	if state == models.StateRevoked {
		err := dErrors.New(dErrors.CodeWrongState,
			fmt.Sprintf("credential %d is already revoked", credentialID))
		s.recordFailure("revoke", err)
		return nil, err
	}

	release, err := s.beginPending(ctx, credentialID)
	if err != nil {
		s.recordFailure("revoke", err)
		return nil, err
	}
	defer release()

	_, txID, err := s.execute(ctx, "revoke", func(ctx context.Context) (*txnbuild.Group, error) {
		return s.builder.Revoke(ctx, credentialID, holder)
	})
	if err != nil {
		s.recordFailure("revoke", err)
		return nil, err
	}

	if err := s.store.RecordAction(ctx, credentialID, "revoked", txID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Error("revocation confirmed but registry update failed",
			"credential_id", credentialID, "error", err)
	}

	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionCredentialRevoked,
		CredentialID: fmt.Sprintf("%d", credentialID),
		AssetID:      credentialID,
		Actor:        operator,
		TxID:         txID,
	})
	s.recordSuccess("revoke", start)
	s.logger.Info("credential revoked",
		"credential_id", credentialID,
		"previous_state", state,
		"tx_id", txID,
	)

	return &models.RevokeResult{CredentialID: credentialID, TxID: txID}, nil
}

// BuildOptIn returns the unsigned opt-in group a holder wallet must sign
// before the credential can be transferred to it.
func (s *Service) BuildOptIn(ctx context.Context, credentialID uint64, address string) (*txnbuild.Group, error) {
	if !ledger.IsValidAddress(address) {
		err := dErrors.New(dErrors.CodeInvalidInput, "address is not a valid ledger address")
		s.recordFailure("opt_in", err)
		return nil, err
	}
	if _, err := s.ledger.AssetByID(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("credential %d does not exist", credentialID))
		} else {
			err = mapLedgerError(err)
		}
		s.recordFailure("opt_in", err)
		return nil, err
	}
	return s.builder.OptIn(ctx, credentialID, address)
}

// SubmitOptIn broadcasts a holder-signed opt-in transaction. The holder signs
// outside this service; we only relay it and wait for confirmation so the
// caller learns when a transfer becomes possible.
func (s *Service) SubmitOptIn(ctx context.Context, credentialID uint64, address string, signedTxn []byte) (*models.OptInResult, error) {
	start := time.Now()
	if len(signedTxn) == 0 {
		err := dErrors.New(dErrors.CodeInvalidInput, "signed transaction is required")
		s.recordFailure("opt_in", err)
		return nil, err
	}
	if !ledger.IsValidAddress(address) {
		err := dErrors.New(dErrors.CodeInvalidInput, "address is not a valid ledger address")
		s.recordFailure("opt_in", err)
		return nil, err
	}
	if _, err := s.ledger.AssetByID(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("credential %d does not exist", credentialID))
		}
		s.recordFailure("opt_in", err)
		return nil, err
	}

	txID, err := s.ledger.Submit(ctx, [][]byte{signedTxn})
	if err != nil {
		err = mapLedgerError(err)
		s.recordFailure("opt_in", err)
		return nil, err
	}
	if _, err := s.awaitConfirmation(ctx, txID); err != nil {
		s.recordFailure("opt_in", err)
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		Action:       audit.ActionOptInSubmitted,
		CredentialID: fmt.Sprintf("%d", credentialID),
		AssetID:      credentialID,
		Actor:        address,
		TxID:         txID,
	})
	s.recordSuccess("opt_in", start)
	s.logger.Info("opt-in confirmed", "credential_id", credentialID, "address", address, "tx_id", txID)

	return &models.OptInResult{CredentialID: credentialID, Address: address, TxID: txID}, nil
}

// Get returns the credential's current view, combining the local registry
// record with live ledger state.
func (s *Service) Get(ctx context.Context, credentialID uint64) (*models.Credential, error) {
	record, err := s.ledger.AssetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("credential %d does not exist", credentialID))
		}
		return nil, mapLedgerError(err)
	}

	state, holder, err := s.resolveState(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	credential := &models.Credential{
		ID:            credentialID,
		Name:          record.Params.Name,
		ShortCode:     record.Params.UnitName,
		MetadataURI:   record.Params.URL,
		OwnerAddress:  holder,
		IssuerAddress: s.builder.Authority(),
		State:         state,
		TotalUnits:    record.Params.Total,
	}
	if local, err := s.store.FindByID(ctx, credentialID); err == nil {
		credential.IssuedAt = local.IssuedAt
	}
	return credential, nil
}

// List returns registry records, newest first.
func (s *Service) List(ctx context.Context, filter *models.RecordFilter) ([]*models.Record, error) {
	return s.store.List(ctx, filter)
}

// execute runs the build-sign-submit-confirm pipeline for one lifecycle
// intent. A stale validity window rejection rebuilds the group with fresh
// parameters and retries exactly once; every other failure surfaces as is.
func (s *Service) execute(ctx context.Context, operation string, build func(context.Context) (*txnbuild.Group, error)) (*ledger.PendingTransaction, string, error) {
	for attempt := 0; ; attempt++ {
		group, err := build(ctx)
		if err != nil {
			return nil, "", err
		}

		signed, err := s.signer.Sign(ctx, group)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeSignerDeclined) && s.metrics != nil {
				s.metrics.IncrementSignerDeclines()
			}
			return nil, "", err
		}

		txID, err := s.ledger.Submit(ctx, signed)
		if err != nil {
			var reject *ledger.RejectError
			if errors.As(err, &reject) && reject.Stale() && attempt == 0 {
				s.logger.Warn("validity window expired, rebuilding with fresh parameters",
					"operation", operation)
				if s.metrics != nil {
					s.metrics.IncrementStaleParamRetries()
				}
				continue
			}
			return nil, "", mapLedgerError(err)
		}

		pendingTxn, err := s.awaitConfirmation(ctx, txID)
		if err != nil {
			return nil, "", err
		}
		return pendingTxn, txID, nil
	}
}

func (s *Service) awaitConfirmation(ctx context.Context, txID string) (*ledger.PendingTransaction, error) {
	waitStart := time.Now()
	pendingTxn, err := s.ledger.AwaitConfirmation(ctx, txID, s.confirmationRounds)
	if s.metrics != nil {
		s.metrics.ObserveConfirmationWait(time.Since(waitStart).Seconds())
	}
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return pendingTxn, nil
}

// resolveState derives the credential's lifecycle state purely from ledger
// observations, and reports the current holder address.
func (s *Service) resolveState(ctx context.Context, credentialID uint64) (models.State, string, error) {
	authority := s.builder.Authority()

	if _, err := s.ledger.AssetByID(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("credential %d does not exist", credentialID))
		}
		return "", "", mapLedgerError(err)
	}

	revoked, err := s.ledger.RevocationFlag(ctx, s.builder.AppID(), credentialID)
	if err != nil {
		return "", "", mapLedgerError(err)
	}
	if revoked {
		return models.StateRevoked, authority, nil
	}

	account, err := s.ledger.AccountByAddress(ctx, authority)
	if err != nil {
		return "", "", mapLedgerError(err)
	}
	if holding, ok := account.Holding(credentialID); ok && holding.Amount > 0 {
		return models.StateMinted, authority, nil
	}

	holder, err := s.findHolder(ctx, credentialID)
	if err != nil {
		return "", "", err
	}
	return models.StateAssigned, holder, nil
}

// findHolder locates the account currently holding the single unit.
func (s *Service) findHolder(ctx context.Context, credentialID uint64) (string, error) {
	balances, err := s.ledger.AssetBalances(ctx, credentialID)
	if err != nil {
		return "", mapLedgerError(err)
	}
	for _, balance := range balances {
		if balance.Amount > 0 {
			return balance.Address, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInternal,
		fmt.Sprintf("credential %d has no holder on ledger", credentialID))
}

// checkOptedIn verifies the target account pre-registered a holding for the
// asset. The ledger enforces this anyway; checking first turns an opaque
// rejection into an actionable error.
func (s *Service) checkOptedIn(ctx context.Context, credentialID uint64, address string) error {
	account, err := s.ledger.AccountByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotOptedIn,
				fmt.Sprintf("account %s is unknown to the ledger, opt in before transfer", address))
		}
		return mapLedgerError(err)
	}
	if _, ok := account.Holding(credentialID); !ok {
		return dErrors.New(dErrors.CodeNotOptedIn,
			fmt.Sprintf("account %s has not opted in to credential %d", address, credentialID))
	}
	return nil
}

func (s *Service) beginPending(ctx context.Context, credentialID uint64) (func(), error) {
	key := fmt.Sprintf("%d", credentialID)
	if err := s.pending.Begin(ctx, key, ""); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("credential %d has a transaction in flight", credentialID))
		}
		return nil, err
	}
	return func() {
		if err := s.pending.End(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("failed to clear pending marker", "credential_id", credentialID, "error", err)
		}
	}, nil
}

func (s *Service) requireAdmin(operator string) error {
	if operator == "" || operator != s.admin {
		return dErrors.New(dErrors.CodeUnauthorized, "operator is not the credential authority admin")
	}
	return nil
}

// mapTransferRejection recognizes the ledger's own missing-opt-in rejection
// for the race where the holder opted out between pre-check and submit.
func (s *Service) mapTransferRejection(err error) error {
	var reject *ledger.RejectError
	if errors.As(err, &reject) {
		msg := strings.ToLower(reject.Message)
		if strings.Contains(msg, "optin") || strings.Contains(msg, "opted in") || strings.Contains(msg, "asset holding") {
			return dErrors.Wrap(err, dErrors.CodeNotOptedIn, "holder has not opted in to the credential")
		}
	}
	return err
}

func mapLedgerError(err error) error {
	var reject *ledger.RejectError
	if errors.As(err, &reject) {
		return dErrors.Wrap(err, dErrors.CodeLedgerRejected, reject.Message)
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger operation failed")
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("failed to emit audit event", "action", event.Action, "error", err)
	}
}

func (s *Service) recordSuccess(operation string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementOperation(operation)
	s.metrics.ObserveOperationLatency(operation, time.Since(start).Seconds())
}

func (s *Service) recordFailure(operation string, err error) {
	if s.metrics == nil {
		return
	}
	code := string(dErrors.CodeInternal)
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		code = string(domainErr.Code)
	}
	s.metrics.IncrementOperationFailed(operation, code)
}
