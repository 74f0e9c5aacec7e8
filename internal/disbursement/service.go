package disbursement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/builder-faucet/builder_faucet/internal/verification"
)

const recordTimeout = 10 * time.Second

var (
	// ErrVerificationDenied indicates the verifier rejected the request.
	ErrVerificationDenied = errors.New("verification denied")
	// ErrTransferFailed indicates the on-chain transfer did not complete.
	ErrTransferFailed = errors.New("transfer failed")
)

// Verifier is the disburser-side contract of the verification service.
type Verifier interface {
	Verify(ctx context.Context, req verification.VerifyRequest) (verification.Verdict, error)
	RecordPayout(ctx context.Context, githubUserID int64) error
}

// Transferrer submits a single on-chain transfer and waits for confirmation.
type Transferrer interface {
	Transfer(ctx context.Context, toAddress string, amount decimal.Decimal) (string, error)
}

// Service coordinates the verify-then-transfer handshake. The ordering is
// the contract: no transfer without a prior positive verdict, no payout
// record without a confirmed transfer.
type Service struct {
	verifier Verifier
	treasury Transferrer
	amount   decimal.Decimal
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*identityLock
}

// NewService builds a disbursement coordinator paying the fixed amount.
func NewService(verifier Verifier, treasury Transferrer, amount decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{
		verifier: verifier,
		treasury: treasury,
		amount:   amount,
		logger:   logger,
		locks:    make(map[string]*identityLock),
	}
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// lockIdentity serializes the verify-transfer-record span per GitHub
// username, so two concurrent requests for one identity cannot both pass the
// cooldown gate before either payout is recorded. Distinct identities do not
// contend. The returned func releases the lock and drops it once idle.
func (s *Service) lockIdentity(username string) func() {
	key := strings.ToLower(strings.TrimSpace(username))

	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &identityLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// Disburse verifies the builder and, if approved, pays out exactly once.
// On denial the returned result still embeds the verdict so callers see the
// reason.
func (s *Service) Disburse(ctx context.Context, req Request) (Result, error) {
	unlock := s.lockIdentity(req.GithubUsername)
	defer unlock()

	verdict, err := s.verifier.Verify(ctx, verification.VerifyRequest{
		WalletAddress:  req.WalletAddress,
		GithubUsername: req.GithubUsername,
		RequesterID:    req.BuilderID,
		Channel:        req.Channel,
	})
	if err != nil {
		return Result{}, fmt.Errorf("verify wallet: %w", err)
	}

	requestID := uuid.NewString()

	if !verdict.Verified {
		return Result{
			RequestID:    requestID,
			Status:       StatusDenied,
			Message:      fmt.Sprintf("Verification failed: %s", verdict.Reason),
			Verification: verdict,
		}, fmt.Errorf("%w: %s", ErrVerificationDenied, verdict.Reason)
	}

	txHash, err := s.treasury.Transfer(ctx, req.WalletAddress, s.amount)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	// The payout already happened on-chain; a lost rate-limit record is
	// preferable to overturning it, so a recording failure is logged and
	// swallowed.
	if verdict.GithubUserID != nil {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := s.verifier.RecordPayout(recordCtx, *verdict.GithubUserID); err != nil {
			s.logger.Warn("failed to record payout",
				"github_user_id", *verdict.GithubUserID, "tx_hash", txHash, "error", err)
		}
	}

	return Result{
		RequestID:    requestID,
		Status:       StatusApproved,
		Message:      "Disbursement submitted to BSC testnet",
		TxHash:       &txHash,
		Verification: verdict,
	}, nil
}
