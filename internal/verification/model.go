package verification

// Verdict is the outcome of one eligibility check. Numeric fields are
// attached whenever known, even when verification fails, so operators can
// see how far a request got.
type Verdict struct {
	WalletAddress  string  `json:"wallet_address"`
	Verified       bool    `json:"verified"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
	GithubUserID   *int64  `json:"github_user_id,omitempty"`
	RepoCount      *int    `json:"repo_count,omitempty"`
	AccountAgeDays *int    `json:"account_age_days,omitempty"`
}

// VerifyRequest is the wire form of a verification call.
type VerifyRequest struct {
	WalletAddress  string `json:"wallet_address"`
	GithubUsername string `json:"github_username"`
	RequesterID    string `json:"requester_id,omitempty"`
	Channel        string `json:"channel,omitempty"`
}

// RecordPayoutRequest is the wire form of a payout acknowledgement.
type RecordPayoutRequest struct {
	GithubUserID int64 `json:"github_user_id"`
}
