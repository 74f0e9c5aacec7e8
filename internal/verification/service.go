package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/builder-faucet/builder_faucet/internal/github"
	"github.com/builder-faucet/builder_faucet/internal/payouts"
)

const (
	minAccountAgeDays = 30
	baseConfidence    = 0.7
	repoConfidence    = 0.05
)

// IdentityLookup resolves a username to a GitHub profile.
type IdentityLookup interface {
	Lookup(ctx context.Context, username string) (github.User, error)
}

// Service runs the eligibility gates for faucet payouts. Each gate is a hard
// requirement; the first failing gate decides the verdict.
type Service struct {
	identities IdentityLookup
	store      payouts.Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewService builds a verification service.
func NewService(identities IdentityLookup, store payouts.Store, logger *slog.Logger) *Service {
	return &Service{
		identities: identities,
		store:      store,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Verify checks a builder's GitHub account and payout cooldown. A failed
// gate yields verified=false with confidence 0; errors are folded into the
// verdict reason, never returned raw to callers.
func (s *Service) Verify(ctx context.Context, githubUsername, walletAddress string) Verdict {
	verdict := Verdict{WalletAddress: walletAddress}

	user, err := s.identities.Lookup(ctx, githubUsername)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrUserNotFound):
			verdict.Reason = fmt.Sprintf("GitHub account not found: %s", githubUsername)
		case errors.Is(err, github.ErrUnreachable):
			verdict.Reason = fmt.Sprintf("Failed to reach GitHub API: %v", err)
		default:
			verdict.Reason = fmt.Sprintf("GitHub lookup failed: %v", err)
		}
		return verdict
	}

	verdict.GithubUserID = &user.ID
	repoCount := user.PublicRepos
	verdict.RepoCount = &repoCount

	if repoCount < 1 {
		verdict.Reason = "No public repositories"
		return verdict
	}

	// A profile without a creation timestamp skips the age gate; age stays
	// unreported rather than failing the request.
	if user.CreatedAt != nil {
		ageDays := int(s.now().Sub(user.CreatedAt.UTC()).Hours() / 24)
		verdict.AccountAgeDays = &ageDays
		if ageDays < minAccountAgeDays {
			verdict.Reason = fmt.Sprintf("Account too new (%d days, need %d+)", ageDays, minAccountAgeDays)
			return verdict
		}
	}

	decision, err := s.store.MayCollect(ctx, user.ID)
	if err != nil {
		s.logger.Error("payout history lookup failed", "github_user_id", user.ID, "error", err)
		verdict.Reason = "Payout history unavailable, try again later"
		return verdict
	}
	if !decision.Allowed {
		verdict.Reason = decision.Reason
		return verdict
	}

	verdict.Verified = true
	verdict.Confidence = confidence(repoCount)
	verdict.Reason = "All verification checks passed"
	return verdict
}

// RecordPayout stamps the user's last payout at the current instant.
func (s *Service) RecordPayout(ctx context.Context, githubUserID int64) error {
	return s.store.RecordPayout(ctx, githubUserID, s.now())
}

// confidence grows with public activity and saturates at 1.0.
func confidence(repoCount int) float64 {
	score := baseConfidence + repoConfidence*float64(repoCount)
	if score > 1.0 {
		return 1.0
	}
	return score
}
