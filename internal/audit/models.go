package audit

import "time"

// Action names a credential lifecycle transition.
type Action string

const (
	ActionCredentialIssued      Action = "credential_issued"
	ActionCredentialTransferred Action = "credential_transferred"
	ActionCredentialRevoked     Action = "credential_revoked"
	ActionOptInSubmitted        Action = "opt_in_submitted"
)

// Event is one audit trail entry. CredentialID keys the event stream so a
// credential's full history lands in order on a single partition.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	CredentialID string    `json:"credential_id"`
	AssetID      uint64    `json:"asset_id,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	Recipient    string    `json:"recipient,omitempty"`
	TxID         string    `json:"tx_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}
