// Package verify implements independent credential verification. Given only
// a credential id, it evaluates authenticity from public ledger state; it
// needs no access to the issuer's registry or keys, so any party running it
// against the same ledger reaches the same verdict.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"attest/internal/ledger"
	verifymetrics "attest/internal/verify/metrics"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

// Status is the verification verdict for a credential id.
type Status string

const (
	// StatusValid means the token exists, was issued by the known authority,
	// and has not been revoked.
	StatusValid Status = "valid"
	// StatusRevoked means the token was genuine but is no longer honored.
	// Distinct from invalid: the credential did exist.
	StatusRevoked Status = "revoked"
	// StatusInvalid means no such token exists, or its control roles do not
	// belong to the known authority.
	StatusInvalid Status = "invalid"
)

// Result carries the verdict plus the descriptive fields a verifier shows.
// Descriptive fields are only populated for valid and revoked credentials.
type Result struct {
	CredentialID uint64 `json:"credential_id"`
	Status       Status `json:"status"`
	Name         string `json:"name,omitempty"`
	ShortCode    string `json:"short_code,omitempty"`
	MetadataURI  string `json:"metadata_uri,omitempty"`
	OwnerAddress string `json:"owner_address,omitempty"`
	CheckedAt    string `json:"checked_at"`
}

// Service evaluates credential authenticity against one well-known authority
// address. It is stateless; concurrent Verify calls need no coordination.
type Service struct {
	ledger    ledger.Client
	appID     uint64
	authority string
	logger    *slog.Logger
	metrics   *verifymetrics.Metrics
}

type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *verifymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a verification service trusting the given registry
// application. The authority address is derived from the application id, the
// single value a verifier must be configured with.
func NewService(lc ledger.Client, appID uint64, opts ...Option) *Service {
	svc := &Service{
		ledger:    lc,
		appID:     appID,
		authority: ledger.AppAddress(appID),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Authority returns the address every genuine credential's control roles
// must carry.
func (s *Service) Authority() string {
	return s.authority
}

// Verify evaluates the credential id against public ledger state. Network
// failures surface as errors; everything else resolves to a verdict.
func (s *Service) Verify(ctx context.Context, credentialID uint64) (*Result, error) {
	start := time.Now()
	result, err := s.verify(ctx, credentialID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementVerificationErrors()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementVerifications(string(result.Status))
		s.metrics.ObserveVerificationLatency(time.Since(start).Seconds())
	}
	return result, nil
}

func (s *Service) verify(ctx context.Context, credentialID uint64) (*Result, error) {
	checkedAt := time.Now().UTC().Format(time.RFC3339)

	record, err := s.ledger.AssetByID(ctx, credentialID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &Result{CredentialID: credentialID, Status: StatusInvalid, CheckedAt: checkedAt}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cannot reach ledger to verify credential")
	}

	// A token whose control roles drifted from the authority was either never
	// issued by it or has been tampered with; both are invalid.
	if !CheckControlAddresses(record, s.authority) {
		s.logger.Warn("credential failed control address check",
			"credential_id", credentialID,
			"manager", record.Params.Manager,
			"freeze", record.Params.Freeze,
			"clawback", record.Params.Clawback,
		)
		return &Result{CredentialID: credentialID, Status: StatusInvalid, CheckedAt: checkedAt}, nil
	}

	// Revocation state and holder lookup hit different backends; fetch them
	// concurrently.
	var (
		revoked bool
		owner   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		revoked, err = s.ledger.RevocationFlag(gctx, s.appID, credentialID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "cannot read revocation state")
		}
		return nil
	})
	g.Go(func() error {
		owner = s.resolveOwner(gctx, credentialID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		CredentialID: credentialID,
		Name:         record.Params.Name,
		ShortCode:    record.Params.UnitName,
		MetadataURI:  record.Params.URL,
		CheckedAt:    checkedAt,
	}
	if revoked {
		result.Status = StatusRevoked
		return result, nil
	}

	result.Status = StatusValid
	result.OwnerAddress = owner
	return result, nil
}

// resolveOwner finds the current holder. Best effort: a missing indexer
// degrades the result to no owner field rather than failing verification.
func (s *Service) resolveOwner(ctx context.Context, credentialID uint64) string {
	balances, err := s.ledger.AssetBalances(ctx, credentialID)
	if err != nil {
		s.logger.Debug("owner lookup unavailable", "credential_id", credentialID, "error", err)
		return ""
	}
	for _, balance := range balances {
		if balance.Amount > 0 {
			return balance.Address
		}
	}
	return ""
}

// CheckControlAddresses reports whether all three control roles of the asset
// belong to the authority. This is the trust anchor of verification and is
// deliberately a pure function over a snapshot record.
func CheckControlAddresses(record *ledger.AssetRecord, authority string) bool {
	if record == nil || authority == "" {
		return false
	}
	params := record.Params
	return params.Manager == authority &&
		params.Freeze == authority &&
		params.Clawback == authority
}
