package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"attest/internal/ledger/txnbuild"
	dErrors "attest/pkg/domain-errors"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteConfig configures a RemoteSigner.
type RemoteConfig struct {
	URL        string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// RemoteSigner forwards transaction groups to an external signing service
// over HTTP. The service holds the institution's key and may present each
// group to an operator for approval, so calls can block until a human acts.
type RemoteSigner struct {
	url    string
	client HTTPDoer
}

// NewRemote builds a signer client from the given configuration.
func NewRemote(cfg RemoteConfig) (*RemoteSigner, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("signer URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteSigner{
		url:    strings.TrimRight(cfg.URL, "/"),
		client: client,
	}, nil
}

type signRequest struct {
	Group *txnbuild.Group `json:"group"`
}

type signResponse struct {
	Signed []string `json:"signed"`
}

type signError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

func (s *RemoteSigner) Sign(ctx context.Context, group *txnbuild.Group) ([][]byte, error) {
	body, err := json.Marshal(signRequest{Group: group})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode sign request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/v1/sign", bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build sign request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "signing service timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "signing service unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "read signer response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusConflict:
		return nil, dErrors.New(dErrors.CodeSignerDeclined, declineMessage(raw))
	default:
		return nil, dErrors.New(dErrors.CodeSignerUnavailable,
			fmt.Sprintf("signing service returned status %d", resp.StatusCode))
	}

	var out signResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "decode signer response")
	}
	if len(out.Signed) != len(group.Operations) {
		return nil, dErrors.New(dErrors.CodeSignerUnavailable,
			fmt.Sprintf("signer returned %d transactions for a group of %d", len(out.Signed), len(group.Operations)))
	}

	signed := make([][]byte, len(out.Signed))
	for i, encoded := range out.Signed {
		blob, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "decode signed transaction")
		}
		signed[i] = blob
	}
	return signed, nil
}

func (s *RemoteSigner) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("signing service returned status %d", resp.StatusCode)
	}
	return nil
}

func declineMessage(raw []byte) string {
	var body signError
	if err := json.Unmarshal(raw, &body); err == nil && body.Description != "" {
		return body.Description
	}
	return "operator declined to sign the transaction group"
}

var _ Signer = (*RemoteSigner)(nil)
