// Package ledger provides read and submit access to an Algorand-style ledger
// node. The ledger itself is an external dependency: this package consumes its
// HTTP API and never re-implements consensus or state.
package ledger

// AssetParams are the on-ledger parameters of a token. The three control
// roles (Manager, Freeze, Clawback) are the trust anchor for credentials:
// all of them must point at the authority address.
type AssetParams struct {
	Creator       string `json:"creator"`
	Manager       string `json:"manager"`
	Reserve       string `json:"reserve"`
	Freeze        string `json:"freeze"`
	Clawback      string `json:"clawback"`
	Name          string `json:"name"`
	UnitName      string `json:"unit-name"`
	URL           string `json:"url"`
	MetadataHash  string `json:"metadata-hash,omitempty"`
	Total         uint64 `json:"total"`
	Decimals      uint32 `json:"decimals"`
	DefaultFrozen bool   `json:"default-frozen"`
}

// AssetRecord is a token as reported by the node.
type AssetRecord struct {
	ID     uint64      `json:"index"`
	Params AssetParams `json:"params"`
}

// AssetHolding is one account's position in a token.
type AssetHolding struct {
	AssetID uint64 `json:"asset-id"`
	Amount  uint64 `json:"amount"`
	Frozen  bool   `json:"is-frozen"`
}

// AssetBalance is a holding annotated with its owning address, as reported by
// the indexer's balances endpoint.
type AssetBalance struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
	Frozen  bool   `json:"is-frozen"`
}

// AccountRecord is an account as reported by the node.
type AccountRecord struct {
	Address string         `json:"address"`
	Amount  uint64         `json:"amount"`
	Assets  []AssetHolding `json:"assets"`
}

// Holding returns the account's holding of the given asset, if registered.
func (a *AccountRecord) Holding(assetID uint64) (AssetHolding, bool) {
	for _, h := range a.Assets {
		if h.AssetID == assetID {
			return h, true
		}
	}
	return AssetHolding{}, false
}

// SuggestedParams are the network parameters a transaction must carry. They
// change every round, so they are fetched fresh per build and never cached.
type SuggestedParams struct {
	Fee         uint64 `json:"fee"`
	MinFee      uint64 `json:"min-fee"`
	FirstValid  uint64 `json:"first-valid"`
	LastValid   uint64 `json:"last-valid"`
	LastRound   uint64 `json:"last-round"`
	GenesisID   string `json:"genesis-id"`
	GenesisHash string `json:"genesis-hash"`
}

// PendingTransaction is the node's view of a submitted transaction.
// ConfirmedRound is zero until the transaction lands; PoolError is set when
// the node dropped it from the pool.
type PendingTransaction struct {
	ConfirmedRound uint64 `json:"confirmed-round"`
	PoolError      string `json:"pool-error"`
	AssetIndex     uint64 `json:"asset-index"`
}

// Confirmed reports whether the transaction has landed in a block.
func (p *PendingTransaction) Confirmed() bool {
	return p.ConfirmedRound > 0
}
