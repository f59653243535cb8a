// Package txnbuild assembles the transaction groups behind each credential
// lifecycle operation. The groups are typed intents: the signer turns them
// into wire-format signed transactions, this package only decides what each
// group must contain.
package txnbuild

import (
	"context"
	"encoding/base64"
	"fmt"

	"attest/internal/ledger"
	dErrors "attest/pkg/domain-errors"
)

// OpType identifies the kind of ledger operation an intent describes.
type OpType string

const (
	OpAssetCreate   OpType = "asset-create"
	OpAssetClawback OpType = "asset-clawback"
	OpAssetFreeze   OpType = "asset-freeze"
	OpAssetOptIn    OpType = "asset-opt-in"
	OpAppCall       OpType = "app-call"
)

// Ledger limits on asset naming fields.
const (
	maxUnitNameLen  = 8
	maxAssetNameLen = 32
	maxURLLen       = 96
)

// Operation is a single unsigned transaction intent inside a group.
// Only the fields relevant to its Type are set.
type Operation struct {
	Type   OpType `json:"type"`
	Sender string `json:"sender"`

	// asset-create
	AssetParams *ledger.AssetParams `json:"asset-params,omitempty"`

	// asset-clawback, asset-freeze, asset-opt-in
	AssetID       uint64 `json:"asset-id,omitempty"`
	Target        string `json:"target,omitempty"`
	Receiver      string `json:"receiver,omitempty"`
	Amount        uint64 `json:"amount,omitempty"`
	FreezeHolding bool   `json:"freeze-holding,omitempty"`

	// app-call
	AppID  uint64   `json:"app-id,omitempty"`
	Method string   `json:"method,omitempty"`
	Args   []string `json:"args,omitempty"`
	Boxes  []string `json:"boxes,omitempty"`
}

// Group is an atomic set of operations sharing one validity window.
// AuthorityIndexes lists the operations the institutional signer must sign;
// the rest are signed by the holder out of band.
type Group struct {
	Operations       []Operation            `json:"operations"`
	AuthorityIndexes []int                  `json:"authority-indexes"`
	Params           ledger.SuggestedParams `json:"params"`
}

// ParamsSource supplies fresh network parameters. Each built group fetches
// its own so the validity window starts at build time, not client startup.
type ParamsSource interface {
	SuggestedParams(ctx context.Context) (ledger.SuggestedParams, error)
}

// IssueSpec describes the token minted for a new credential.
type IssueSpec struct {
	UnitName     string
	AssetName    string
	URL          string
	MetadataHash []byte
}

func (s IssueSpec) validate() error {
	if s.AssetName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "asset name is required")
	}
	if len(s.AssetName) > maxAssetNameLen {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("asset name exceeds %d bytes", maxAssetNameLen))
	}
	if len(s.UnitName) > maxUnitNameLen {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unit name exceeds %d bytes", maxUnitNameLen))
	}
	if len(s.URL) > maxURLLen {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("url exceeds %d bytes", maxURLLen))
	}
	if len(s.MetadataHash) != 0 && len(s.MetadataHash) != 32 {
		return dErrors.New(dErrors.CodeInvalidInput, "metadata hash must be 32 bytes")
	}
	return nil
}

// Builder assembles lifecycle transaction groups for one registry application.
type Builder struct {
	params    ParamsSource
	appID     uint64
	authority string
}

// NewBuilder creates a builder for the given registry application. The
// authority address is the application's escrow account, derived from its id.
func NewBuilder(params ParamsSource, appID uint64) *Builder {
	return &Builder{
		params:    params,
		appID:     appID,
		authority: ledger.AppAddress(appID),
	}
}

// Authority returns the escrow address holding every control role.
func (b *Builder) Authority() string {
	return b.authority
}

// AppID returns the registry application id the builder targets.
func (b *Builder) AppID() uint64 {
	return b.appID
}

// Issue builds the group minting a credential token: a single-unit,
// zero-decimal, default-frozen asset with every control role pointed at the
// authority escrow.
func (b *Builder) Issue(ctx context.Context, spec IssueSpec) (*Group, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	params, err := b.params.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}

	assetParams := &ledger.AssetParams{
		Total:         1,
		Decimals:      0,
		DefaultFrozen: true,
		UnitName:      spec.UnitName,
		Name:          spec.AssetName,
		URL:           spec.URL,
		Manager:       b.authority,
		Reserve:       b.authority,
		Freeze:        b.authority,
		Clawback:      b.authority,
	}
	if len(spec.MetadataHash) > 0 {
		assetParams.MetadataHash = base64.StdEncoding.EncodeToString(spec.MetadataHash)
	}

	return &Group{
		Operations: []Operation{
			{Type: OpAssetCreate, Sender: b.authority, AssetParams: assetParams},
		},
		AuthorityIndexes: []int{0},
		Params:           params,
	}, nil
}

// Transfer builds the group moving a credential token from the authority
// escrow to its holder. Default-frozen assets move only by clawback, so the
// transfer is a clawback from the escrow's own reserve.
func (b *Builder) Transfer(ctx context.Context, assetID uint64, recipient string) (*Group, error) {
	if assetID == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "asset id is required")
	}
	if !ledger.IsValidAddress(recipient) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient address is not a valid ledger address")
	}
	params, err := b.params.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}

	return &Group{
		Operations: []Operation{
			{
				Type:     OpAssetClawback,
				Sender:   b.authority,
				AssetID:  assetID,
				Target:   b.authority,
				Receiver: recipient,
				Amount:   1,
			},
		},
		AuthorityIndexes: []int{0},
		Params:           params,
	}, nil
}

// Revoke builds the atomic group invalidating an assigned credential: freeze
// the holder's holding, claw the token back to the escrow, and record a
// permanent revocation marker in the application's box storage. All three
// commit together or not at all.
func (b *Builder) Revoke(ctx context.Context, assetID uint64, holder string) (*Group, error) {
	if assetID == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "asset id is required")
	}
	if !ledger.IsValidAddress(holder) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder address is not a valid ledger address")
	}
	params, err := b.params.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}

	boxKey := base64.StdEncoding.EncodeToString(ledger.RevocationBoxKey(assetID))
	return &Group{
		Operations: []Operation{
			{
				Type:          OpAssetFreeze,
				Sender:        b.authority,
				AssetID:       assetID,
				Target:        holder,
				FreezeHolding: true,
			},
			{
				Type:     OpAssetClawback,
				Sender:   b.authority,
				AssetID:  assetID,
				Target:   holder,
				Receiver: b.authority,
				Amount:   1,
			},
			{
				Type:   OpAppCall,
				Sender: b.authority,
				AppID:  b.appID,
				Method: "set_revoked",
				Args:   []string{encodeUint64Arg(assetID)},
				Boxes:  []string{boxKey},
			},
		},
		AuthorityIndexes: []int{0, 1, 2},
		Params:           params,
	}, nil
}

// OptIn builds the group by which a holder account accepts a zero-balance
// holding of the asset. The holder signs it, not the authority.
func (b *Builder) OptIn(ctx context.Context, assetID uint64, account string) (*Group, error) {
	if assetID == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "asset id is required")
	}
	if !ledger.IsValidAddress(account) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account address is not a valid ledger address")
	}
	params, err := b.params.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}

	return &Group{
		Operations: []Operation{
			{
				Type:     OpAssetOptIn,
				Sender:   account,
				AssetID:  assetID,
				Receiver: account,
				Amount:   0,
			},
		},
		AuthorityIndexes: nil,
		Params:           params,
	}, nil
}

func encodeUint64Arg(v uint64) string {
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return base64.StdEncoding.EncodeToString(buf)
}
