package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/ledger"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

const testAppID = uint64(7)

// fakeLedger serves canned ledger state to the verifier.
type fakeLedger struct {
	asset       *ledger.AssetRecord
	assetErr    error
	revoked     bool
	revokedErr  error
	balances    []ledger.AssetBalance
	balancesErr error
}

func (f *fakeLedger) SuggestedParams(_ context.Context) (ledger.SuggestedParams, error) {
	return ledger.SuggestedParams{}, nil
}

func (f *fakeLedger) Submit(_ context.Context, _ [][]byte) (string, error) {
	return "", errors.New("not supported")
}

func (f *fakeLedger) AwaitConfirmation(_ context.Context, _ string, _ uint64) (*ledger.PendingTransaction, error) {
	return nil, errors.New("not supported")
}

func (f *fakeLedger) AssetByID(_ context.Context, _ uint64) (*ledger.AssetRecord, error) {
	if f.assetErr != nil {
		return nil, f.assetErr
	}
	return f.asset, nil
}

func (f *fakeLedger) AccountByAddress(_ context.Context, _ string) (*ledger.AccountRecord, error) {
	return nil, sentinel.ErrNotFound
}

func (f *fakeLedger) AssetBalances(_ context.Context, _ uint64) ([]ledger.AssetBalance, error) {
	return f.balances, f.balancesErr
}

func (f *fakeLedger) RevocationFlag(_ context.Context, _, _ uint64) (bool, error) {
	return f.revoked, f.revokedErr
}

func (f *fakeLedger) Health(_ context.Context) error { return nil }

func newVerifier(lc ledger.Client) *Service {
	return NewService(lc, testAppID,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func authorityAsset(authority string) *ledger.AssetRecord {
	return &ledger.AssetRecord{
		ID: 101,
		Params: ledger.AssetParams{
			Creator:  authority,
			Manager:  authority,
			Freeze:   authority,
			Clawback: authority,
			Name:     "BSc Computer Science",
			UnitName: "BSC-CS",
			URL:      "ipfs://QmTestDocumentHash",
			Total:    1,
		},
	}
}

func TestVerifyUnknownCredentialIsInvalid(t *testing.T) {
	verifier := newVerifier(&fakeLedger{assetErr: sentinel.ErrNotFound})

	result, err := verifier.Verify(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, result.Status)
	assert.Empty(t, result.Name, "invalid results carry no descriptive fields")
	assert.NotEmpty(t, result.CheckedAt)
}

func TestVerifyForeignTokenIsInvalid(t *testing.T) {
	// Token exists but its control roles belong to someone else entirely.
	imposter := ledger.AppAddress(666)
	verifier := newVerifier(&fakeLedger{asset: authorityAsset(imposter)})

	result, err := verifier.Verify(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, result.Status)
}

func TestVerifyDriftedRoleIsInvalid(t *testing.T) {
	authority := ledger.AppAddress(testAppID)
	asset := authorityAsset(authority)
	asset.Params.Clawback = ledger.AppAddress(666)
	verifier := newVerifier(&fakeLedger{asset: asset})

	result, err := verifier.Verify(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, result.Status)
}

func TestVerifyRevokedCredential(t *testing.T) {
	authority := ledger.AppAddress(testAppID)
	verifier := newVerifier(&fakeLedger{asset: authorityAsset(authority), revoked: true})

	result, err := verifier.Verify(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, result.Status)
	// Revoked is distinct from invalid: the credential did exist, so the
	// descriptive fields are still shown.
	assert.Equal(t, "BSc Computer Science", result.Name)
	assert.Equal(t, "BSC-CS", result.ShortCode)
	assert.Empty(t, result.OwnerAddress)
}

func TestVerifyValidCredentialWithOwner(t *testing.T) {
	authority := ledger.AppAddress(testAppID)
	holder := ledger.AppAddress(999)
	verifier := newVerifier(&fakeLedger{
		asset: authorityAsset(authority),
		balances: []ledger.AssetBalance{
			{Address: authority, Amount: 0},
			{Address: holder, Amount: 1, Frozen: true},
		},
	})

	result, err := verifier.Verify(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, StatusValid, result.Status)
	assert.Equal(t, holder, result.OwnerAddress)
	assert.Equal(t, "ipfs://QmTestDocumentHash", result.MetadataURI)
}

func TestVerifyOwnerLookupDegradesGracefully(t *testing.T) {
	authority := ledger.AppAddress(testAppID)
	verifier := newVerifier(&fakeLedger{
		asset:       authorityAsset(authority),
		balancesErr: errors.New("indexer not configured"),
	})

	result, err := verifier.Verify(context.Background(), 101)
	require.NoError(t, err)
	assert.Equal(t, StatusValid, result.Status)
	assert.Empty(t, result.OwnerAddress)
}

func TestVerifyLedgerOutageIsAnError(t *testing.T) {
	verifier := newVerifier(&fakeLedger{assetErr: errors.New("connection refused")})

	_, err := verifier.Verify(context.Background(), 101)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestVerifyRevocationReadFailureIsAnError(t *testing.T) {
	authority := ledger.AppAddress(testAppID)
	verifier := newVerifier(&fakeLedger{
		asset:      authorityAsset(authority),
		revokedErr: errors.New("box read failed"),
	})

	_, err := verifier.Verify(context.Background(), 101)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestCheckControlAddresses(t *testing.T) {
	authority := ledger.AppAddress(testAppID)
	other := ledger.AppAddress(666)

	tests := []struct {
		name      string
		record    *ledger.AssetRecord
		authority string
		want      bool
	}{
		{"all roles match", authorityAsset(authority), authority, true},
		{"nil record", nil, authority, false},
		{"empty authority", authorityAsset(authority), "", false},
		{"wrong manager", func() *ledger.AssetRecord {
			a := authorityAsset(authority)
			a.Params.Manager = other
			return a
		}(), authority, false},
		{"wrong freeze", func() *ledger.AssetRecord {
			a := authorityAsset(authority)
			a.Params.Freeze = other
			return a
		}(), authority, false},
		{"wrong clawback", func() *ledger.AssetRecord {
			a := authorityAsset(authority)
			a.Params.Clawback = other
			return a
		}(), authority, false},
		{"empty roles", &ledger.AssetRecord{ID: 101}, authority, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckControlAddresses(tt.record, tt.authority))
		})
	}
}
