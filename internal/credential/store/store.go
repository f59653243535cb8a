// Package store persists the issuance registry. The registry is a local
// index for listing and correlation; the ledger remains authoritative for
// credential state.
package store

import (
	"context"

	"attest/internal/credential/models"
)

type Store interface {
	Save(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, credentialID uint64) (*models.Record, error)
	List(ctx context.Context, filter *models.RecordFilter) ([]*models.Record, error)
	RecordAction(ctx context.Context, credentialID uint64, action, txID string) error
}
