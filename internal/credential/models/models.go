// Package models defines the credential domain types shared by the service,
// store, and handler layers.
package models

import (
	"time"

	dErrors "attest/pkg/domain-errors"
)

// State is the lifecycle position of a credential, derived from public
// ledger state rather than stored locally.
type State string

const (
	// StateMinted means the token exists and is still held by the authority.
	StateMinted State = "minted"
	// StateAssigned means the token balance sits with a holder account.
	StateAssigned State = "assigned"
	// StateRevoked is terminal: frozen, clawed back, and flagged on ledger.
	StateRevoked State = "revoked"
)

// Credential is the central entity: one single-unit token on the ledger
// representing one issued academic credential.
type Credential struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	ShortCode     string    `json:"short_code"`
	MetadataURI   string    `json:"metadata_uri,omitempty"`
	OwnerAddress  string    `json:"owner_address"`
	IssuerAddress string    `json:"issuer_address"`
	State         State     `json:"state"`
	TotalUnits    uint64    `json:"total_units"`
	IssuedAt      time.Time `json:"issued_at"`
}

// IssueRequest carries the operator's intent to mint a new credential.
type IssueRequest struct {
	Name        string `json:"name"`
	ShortCode   string `json:"short_code"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

const (
	maxShortCodeLen = 8
	maxNameLen      = 32
	maxURILen       = 96
)

// Validate checks the request against ledger field limits.
func (r IssueRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len(r.Name) > maxNameLen {
		return dErrors.New(dErrors.CodeInvalidInput, "name must be at most 32 bytes")
	}
	if r.ShortCode == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "short_code is required")
	}
	if len(r.ShortCode) > maxShortCodeLen {
		return dErrors.New(dErrors.CodeInvalidInput, "short_code must be at most 8 bytes")
	}
	if len(r.MetadataURI) > maxURILen {
		return dErrors.New(dErrors.CodeInvalidInput, "metadata_uri must be at most 96 bytes")
	}
	return nil
}

// IssueResult reports a confirmed issuance.
type IssueResult struct {
	CredentialID   uint64 `json:"credential_id"`
	TxID           string `json:"tx_id"`
	ConfirmedRound uint64 `json:"confirmed_round"`
}

// TransferResult reports a confirmed assignment to a holder.
type TransferResult struct {
	CredentialID uint64 `json:"credential_id"`
	OwnerAddress string `json:"owner_address"`
	TxID         string `json:"tx_id"`
}

// RevokeResult reports a confirmed revocation.
type RevokeResult struct {
	CredentialID uint64 `json:"credential_id"`
	TxID         string `json:"tx_id"`
}

// OptInResult reports a confirmed holder opt-in.
type OptInResult struct {
	CredentialID uint64 `json:"credential_id"`
	Address      string `json:"address"`
	TxID         string `json:"tx_id"`
}

// Record is the registry's local row for an issued credential. The ledger is
// authoritative for state; the record exists for listing and correlation.
type Record struct {
	CredentialID uint64    `json:"credential_id"`
	Name         string    `json:"name"`
	ShortCode    string    `json:"short_code"`
	MetadataURI  string    `json:"metadata_uri,omitempty"`
	IssuedBy     string    `json:"issued_by"`
	IssueTxID    string    `json:"issue_tx_id"`
	IssuedAt     time.Time `json:"issued_at"`
	LastTxID     string    `json:"last_tx_id"`
	LastAction   string    `json:"last_action"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecordFilter narrows registry listings.
type RecordFilter struct {
	ShortCode string
	IssuedBy  string
	Limit     int
	Offset    int
}
