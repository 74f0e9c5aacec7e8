package disbursement

import "github.com/builder-faucet/builder_faucet/internal/verification"

// Request is one incoming payout request from a builder.
type Request struct {
	BuilderID      string `json:"builder_id"`
	WalletAddress  string `json:"wallet_address"`
	GithubUsername string `json:"github_username"`
	Channel        string `json:"channel"`
}

// Result is the outcome returned to the caller. It is never persisted.
type Result struct {
	RequestID    string               `json:"request_id"`
	Status       string               `json:"status"`
	Message      string               `json:"message"`
	TxHash       *string              `json:"tx_hash"`
	Verification verification.Verdict `json:"verification"`
}

// Result statuses.
const (
	StatusApproved = "approved"
	StatusDenied   = "denied"
)
