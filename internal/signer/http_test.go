package signer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/ledger"
	"attest/internal/ledger/txnbuild"
	dErrors "attest/pkg/domain-errors"
)

func testGroup() *txnbuild.Group {
	return &txnbuild.Group{
		Operations: []txnbuild.Operation{
			{Type: txnbuild.OpAssetCreate, Sender: "AUTH"},
		},
		AuthorityIndexes: []int{0},
	}
}

func TestRemoteSignerSign(t *testing.T) {
	blob := []byte{0xde, 0xad, 0xbe, 0xef}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sign", r.URL.Path)

		var req signRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Group.Operations, 1)

		json.NewEncoder(w).Encode(signResponse{
			Signed: []string{base64.StdEncoding.EncodeToString(blob)},
		})
	}))
	defer srv.Close()

	s, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	signed, err := s.Sign(context.Background(), testGroup())
	require.NoError(t, err)
	require.Len(t, signed, 1)
	assert.Equal(t, blob, signed[0])
}

func TestRemoteSignerConveysValidityWindow(t *testing.T) {
	group := testGroup()
	group.Params = ledger.SuggestedParams{
		Fee:        1000,
		MinFee:     1000,
		FirstValid: 5000,
		LastValid:  6000,
		LastRound:  5000,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req signRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, uint64(5000), req.Group.Params.FirstValid)
		assert.Equal(t, uint64(6000), req.Group.Params.LastValid)

		json.NewEncoder(w).Encode(signResponse{
			Signed: []string{base64.StdEncoding.EncodeToString([]byte{0x01})},
		})
	}))
	defer srv.Close()

	s, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), group)
	require.NoError(t, err)
}

func TestRemoteSignerDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(signError{
			Error:       "declined",
			Description: "operator rejected the request",
		})
	}))
	defer srv.Close()

	s, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), testGroup())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerDeclined), "got %v", err)
}

func TestRemoteSignerUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), testGroup())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable), "got %v", err)
}

func TestRemoteSignerUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // connection refused from here on

	s, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), testGroup())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable), "got %v", err)
}

func TestRemoteSignerRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(signResponse{Signed: nil})
	}))
	defer srv.Close()

	s, err := NewRemote(RemoteConfig{URL: srv.URL})
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), testGroup())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable), "got %v", err)
}

func TestNewRemoteRequiresURL(t *testing.T) {
	_, err := NewRemote(RemoteConfig{})
	assert.Error(t, err)
}
