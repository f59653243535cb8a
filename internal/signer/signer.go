// Package signer abstracts custody of the institution's ledger key. The
// service never sees key material: it hands a transaction group to a signer
// and gets back wire-format signed transactions, one per operation.
package signer

import (
	"context"

	"attest/internal/ledger/txnbuild"
)

// Signer signs the authority-controlled operations of a transaction group.
//
// Implementations return the signed transactions in operation order, covering
// every index listed in the group's AuthorityIndexes. A signer may refuse:
// refusal is reported with domain code signer_declined and must not be
// retried automatically.
type Signer interface {
	Sign(ctx context.Context, group *txnbuild.Group) ([][]byte, error)

	// Healthy reports whether the signing backend is reachable.
	Healthy(ctx context.Context) error
}
