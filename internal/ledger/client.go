package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"attest/internal/ledger/tracer"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

// Client is the read/submit boundary to the ledger. The node serializes all
// writes; this client holds no uncommitted state of its own, so any call can
// be cancelled without local rollback.
type Client interface {
	// SuggestedParams fetches current network parameters. Results must not be
	// cached across calls: parameters change every round.
	SuggestedParams(ctx context.Context) (SuggestedParams, error)

	// Submit broadcasts a signed transaction group and returns the id of its
	// first transaction.
	Submit(ctx context.Context, signedGroup [][]byte) (string, error)

	// AwaitConfirmation blocks until the transaction confirms, the node drops
	// it from the pool, maxRounds pass, or ctx is cancelled.
	AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*PendingTransaction, error)

	// AssetByID returns the token's parameters, or sentinel.ErrNotFound.
	AssetByID(ctx context.Context, assetID uint64) (*AssetRecord, error)

	// AccountByAddress returns the account's state, or sentinel.ErrNotFound.
	AccountByAddress(ctx context.Context, address string) (*AccountRecord, error)

	// AssetBalances lists the accounts holding the asset (indexer-backed).
	AssetBalances(ctx context.Context, assetID uint64) ([]AssetBalance, error)

	// RevocationFlag reads the application's persistent revocation marker for
	// the given asset. An absent box means not revoked.
	RevocationFlag(ctx context.Context, appID, assetID uint64) (bool, error)

	// Health checks node reachability.
	Health(ctx context.Context) error
}

// RejectError is returned when the node explicitly declines a transaction,
// as opposed to being unreachable.
type RejectError struct {
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("ledger rejected transaction: %s", e.Message)
}

// Stale reports whether the rejection was caused by an expired validity
// window, which is safe to retry once with freshly fetched parameters.
func (e *RejectError) Stale() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "txn dead") ||
		strings.Contains(msg, "outside of valid") ||
		strings.Contains(msg, "expired")
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NodeConfig configures a NodeClient.
type NodeConfig struct {
	NodeURL      string
	NodeToken    string
	IndexerURL   string
	IndexerToken string
	Timeout      time.Duration
	HTTPClient   HTTPDoer
	Tracer       tracer.Tracer
}

// NodeClient talks to an algod-compatible node (and indexer) over HTTP.
type NodeClient struct {
	nodeURL      string
	nodeToken    string
	indexerURL   string
	indexerToken string
	client       HTTPDoer
	tracer       tracer.Tracer
}

// NewNodeClient builds a ledger client from the given configuration.
func NewNodeClient(cfg NodeConfig) (*NodeClient, error) {
	if cfg.NodeURL == "" {
		return nil, fmt.Errorf("node URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	tr := cfg.Tracer
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &NodeClient{
		nodeURL:      strings.TrimRight(cfg.NodeURL, "/"),
		nodeToken:    cfg.NodeToken,
		indexerURL:   strings.TrimRight(cfg.IndexerURL, "/"),
		indexerToken: cfg.IndexerToken,
		client:       httpClient,
		tracer:       tr,
	}, nil
}

func (c *NodeClient) SuggestedParams(ctx context.Context) (SuggestedParams, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanParams)
	var params SuggestedParams
	err := c.getJSON(ctx, c.nodeURL+"/v2/transactions/params", c.nodeToken, &params)
	span.End(err)
	if err != nil {
		return SuggestedParams{}, err
	}
	// The node reports only the last round; derive the validity window the
	// way the reference wallets do.
	params.FirstValid = params.LastRound
	params.LastValid = params.LastRound + 1000
	if params.Fee < params.MinFee {
		params.Fee = params.MinFee
	}
	return params, nil
}

func (c *NodeClient) Submit(ctx context.Context, signedGroup [][]byte) (string, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanSubmit,
		tracer.Int64(tracer.AttrGroupSize, int64(len(signedGroup))))

	body := bytes.Join(signedGroup, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.nodeURL+"/v2/transactions", bytes.NewReader(body))
	if err != nil {
		span.End(err)
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-binary")
	c.authorize(req, c.nodeToken)

	resp, err := c.client.Do(req)
	if err != nil {
		err = mapTransportError(err)
		span.End(err)
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeUnavailable, "read node response")
		span.End(err)
		return "", err
	}

	if resp.StatusCode == http.StatusBadRequest {
		reject := &RejectError{Message: nodeMessage(raw)}
		span.End(reject)
		return "", reject
	}
	if resp.StatusCode != http.StatusOK {
		err = dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("node returned status %d", resp.StatusCode))
		span.End(err)
		return "", err
	}

	var out struct {
		TxID string `json:"txId"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "decode submit response")
		span.End(err)
		return "", err
	}
	span.SetAttributes(tracer.String(tracer.AttrTxID, out.TxID))
	span.End(nil)
	return out.TxID, nil
}

func (c *NodeClient) AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*PendingTransaction, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanConfirm, tracer.String(tracer.AttrTxID, txID))

	pending, err := c.awaitConfirmation(ctx, txID, maxRounds)
	span.End(err)
	return pending, err
}

func (c *NodeClient) awaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*PendingTransaction, error) {
	var status struct {
		LastRound uint64 `json:"last-round"`
	}
	if err := c.getJSON(ctx, c.nodeURL+"/v2/status", c.nodeToken, &status); err != nil {
		return nil, err
	}

	deadline := status.LastRound + maxRounds
	round := status.LastRound
	for {
		var pending PendingTransaction
		url := fmt.Sprintf("%s/v2/transactions/pending/%s", c.nodeURL, txID)
		if err := c.getJSON(ctx, url, c.nodeToken, &pending); err != nil {
			return nil, err
		}
		if pending.Confirmed() {
			return &pending, nil
		}
		if pending.PoolError != "" {
			return nil, &RejectError{Message: pending.PoolError}
		}
		if round >= deadline {
			return nil, dErrors.New(dErrors.CodeTimeout,
				fmt.Sprintf("transaction %s not confirmed within %d rounds", txID, maxRounds))
		}

		var next struct {
			LastRound uint64 `json:"last-round"`
		}
		waitURL := fmt.Sprintf("%s/v2/status/wait-for-block-after/%d", c.nodeURL, round)
		if err := c.getJSON(ctx, waitURL, c.nodeToken, &next); err != nil {
			return nil, err
		}
		round = next.LastRound
	}
}

func (c *NodeClient) AssetByID(ctx context.Context, assetID uint64) (*AssetRecord, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanAssetLookup,
		tracer.Int64(tracer.AttrAssetID, int64(assetID)))
	var record AssetRecord
	err := c.getJSON(ctx, fmt.Sprintf("%s/v2/assets/%d", c.nodeURL, assetID), c.nodeToken, &record)
	span.End(err)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *NodeClient) AccountByAddress(ctx context.Context, address string) (*AccountRecord, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanAccountLookup)
	var record AccountRecord
	err := c.getJSON(ctx, c.nodeURL+"/v2/accounts/"+url.PathEscape(address), c.nodeToken, &record)
	span.End(err)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *NodeClient) AssetBalances(ctx context.Context, assetID uint64) ([]AssetBalance, error) {
	if c.indexerURL == "" {
		return nil, dErrors.New(dErrors.CodeUnavailable, "indexer not configured")
	}
	ctx, span := c.tracer.Start(ctx, tracer.SpanBalanceLookup,
		tracer.Int64(tracer.AttrAssetID, int64(assetID)))
	var out struct {
		Balances []AssetBalance `json:"balances"`
	}
	url := fmt.Sprintf("%s/v2/assets/%d/balances", c.indexerURL, assetID)
	err := c.getJSON(ctx, url, c.indexerToken, &out)
	span.End(err)
	if err != nil {
		return nil, err
	}
	return out.Balances, nil
}

// RevocationBoxKey is the application box name holding the revocation marker
// for an asset: a fixed prefix plus the big-endian asset id.
func RevocationBoxKey(assetID uint64) []byte {
	key := make([]byte, 0, 8+8)
	key = append(key, []byte("revoked:")...)
	key = binary.BigEndian.AppendUint64(key, assetID)
	return key
}

func (c *NodeClient) RevocationFlag(ctx context.Context, appID, assetID uint64) (bool, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanRevocationFlag,
		tracer.Int64(tracer.AttrAssetID, int64(assetID)))

	name := base64.StdEncoding.EncodeToString(RevocationBoxKey(assetID))
	boxURL := fmt.Sprintf("%s/v2/applications/%d/box?name=b64:%s", c.nodeURL, appID, url.QueryEscape(name))

	var box struct {
		Value string `json:"value"`
	}
	err := c.getJSON(ctx, boxURL, c.nodeToken, &box)
	if errors.Is(err, sentinel.ErrNotFound) {
		span.SetAttributes(tracer.Bool(tracer.AttrRevoked, false))
		span.End(nil)
		return false, nil
	}
	if err != nil {
		span.End(err)
		return false, err
	}

	value, err := base64.StdEncoding.DecodeString(box.Value)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "decode revocation box value")
		span.End(err)
		return false, err
	}
	revoked := len(value) > 0 && value[len(value)-1] == 1
	span.SetAttributes(tracer.Bool(tracer.AttrRevoked, revoked))
	span.End(nil)
	return revoked, nil
}

func (c *NodeClient) Health(ctx context.Context) error {
	var status struct {
		LastRound uint64 `json:"last-round"`
	}
	return c.getJSON(ctx, c.nodeURL+"/v2/status", c.nodeToken, &status)
}

func (c *NodeClient) getJSON(ctx context.Context, url, token string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.authorize(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "read node response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return &RejectError{Message: nodeMessage(raw)}
	case resp.StatusCode != http.StatusOK:
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("node returned status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode node response")
	}
	return nil
}

func (c *NodeClient) authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("X-Algo-API-Token", token)
	}
}

func nodeMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger node timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger node unreachable")
}
