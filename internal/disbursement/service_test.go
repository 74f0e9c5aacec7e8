package disbursement

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/builder-faucet/builder_faucet/internal/github"
	"github.com/builder-faucet/builder_faucet/internal/logging"
	"github.com/builder-faucet/builder_faucet/internal/payouts"
	"github.com/builder-faucet/builder_faucet/internal/verification"
)

type fakeVerifier struct {
	verdict   verification.Verdict
	verifyErr error
	recordErr error

	recorded []int64
	calls    *[]string
}

func (f *fakeVerifier) Verify(context.Context, verification.VerifyRequest) (verification.Verdict, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, "verify")
	}
	return f.verdict, f.verifyErr
}

func (f *fakeVerifier) RecordPayout(_ context.Context, githubUserID int64) error {
	if f.calls != nil {
		*f.calls = append(*f.calls, "record")
	}
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, githubUserID)
	return nil
}

type fakeTreasury struct {
	txHash string
	err    error
	calls  *[]string
	count  int
}

func (f *fakeTreasury) Transfer(context.Context, string, decimal.Decimal) (string, error) {
	if f.calls != nil {
		*f.calls = append(*f.calls, "transfer")
	}
	f.count++
	if f.err != nil {
		return "", f.err
	}
	return f.txHash, nil
}

func approvedVerdict() verification.Verdict {
	id := int64(1001)
	return verification.Verdict{
		WalletAddress: "0xABC",
		Verified:      true,
		Confidence:    0.95,
		Reason:        "All verification checks passed",
		GithubUserID:  &id,
	}
}

func deniedVerdict(reason string) verification.Verdict {
	return verification.Verdict{WalletAddress: "0xABC", Reason: reason}
}

var testRequest = Request{
	BuilderID:      "builder-17",
	WalletAddress:  "0xABC",
	GithubUsername: "alice",
	Channel:        "discord",
}

func TestDisburseApproved(t *testing.T) {
	var calls []string
	verifier := &fakeVerifier{verdict: approvedVerdict(), calls: &calls}
	treasury := &fakeTreasury{txHash: "0xdeadbeef", calls: &calls}
	svc := NewService(verifier, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	result, err := svc.Disburse(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}

	if result.Status != StatusApproved {
		t.Fatalf("expected approved status, got %s", result.Status)
	}
	if result.TxHash == nil || *result.TxHash != "0xdeadbeef" {
		t.Fatalf("expected tx hash, got %v", result.TxHash)
	}
	if result.RequestID == "" {
		t.Fatal("expected a fresh request id")
	}
	if len(verifier.recorded) != 1 || verifier.recorded[0] != 1001 {
		t.Fatalf("expected payout recorded for 1001, got %v", verifier.recorded)
	}

	// Ordering is the contract: verify, then transfer, then record.
	want := []string{"verify", "transfer", "record"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}
}

func TestDisburseDeniedNeverTransfers(t *testing.T) {
	var calls []string
	verifier := &fakeVerifier{verdict: deniedVerdict("Account too new (10 days, need 30+)"), calls: &calls}
	treasury := &fakeTreasury{txHash: "0xdeadbeef", calls: &calls}
	svc := NewService(verifier, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	result, err := svc.Disburse(context.Background(), testRequest)
	if !errors.Is(err, ErrVerificationDenied) {
		t.Fatalf("expected ErrVerificationDenied, got %v", err)
	}
	if treasury.count != 0 {
		t.Fatal("transfer must never run after a negative verdict")
	}
	if result.Status != StatusDenied {
		t.Fatalf("expected denied status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "Account too new") {
		t.Fatalf("expected denial reason in message, got %q", result.Message)
	}
	if result.Verification.Reason != "Account too new (10 days, need 30+)" {
		t.Fatalf("expected embedded verdict, got %+v", result.Verification)
	}
}

func TestDisburseTransferFailure(t *testing.T) {
	verifier := &fakeVerifier{verdict: approvedVerdict()}
	treasury := &fakeTreasury{err: errors.New("insufficient funds for gas")}
	svc := NewService(verifier, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	_, err := svc.Disburse(context.Background(), testRequest)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if len(verifier.recorded) != 0 {
		t.Fatal("payout must not be recorded when the transfer fails")
	}
}

func TestDisburseRecordingFailureIsSwallowed(t *testing.T) {
	verifier := &fakeVerifier{verdict: approvedVerdict(), recordErr: errors.New("record-payout timed out")}
	treasury := &fakeTreasury{txHash: "0xdeadbeef"}
	svc := NewService(verifier, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	result, err := svc.Disburse(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("recording failure must not surface, got %v", err)
	}
	if result.Status != StatusApproved || result.TxHash == nil {
		t.Fatalf("expected approved result with tx hash, got %+v", result)
	}
}

func TestDisburseVerifierUnreachable(t *testing.T) {
	verifier := &fakeVerifier{verifyErr: errors.New("verification service unreachable")}
	treasury := &fakeTreasury{txHash: "0xdeadbeef"}
	svc := NewService(verifier, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	_, err := svc.Disburse(context.Background(), testRequest)
	if err == nil {
		t.Fatal("expected error when the verifier is unreachable")
	}
	if treasury.count != 0 {
		t.Fatal("transfer must not run without a verdict")
	}
}

type staticLookup struct {
	user github.User
}

func (l staticLookup) Lookup(context.Context, string) (github.User, error) {
	return l.user, nil
}

// serviceVerifier adapts the in-process verification service to the
// coordinator's contract, bypassing the HTTP hop.
type serviceVerifier struct {
	svc *verification.Service
}

func (v serviceVerifier) Verify(ctx context.Context, req verification.VerifyRequest) (verification.Verdict, error) {
	return v.svc.Verify(ctx, req.GithubUsername, req.WalletAddress), nil
}

func (v serviceVerifier) RecordPayout(ctx context.Context, githubUserID int64) error {
	return v.svc.RecordPayout(ctx, githubUserID)
}

type slowTreasury struct {
	delay time.Duration
	count atomic.Int32
}

func (f *slowTreasury) Transfer(context.Context, string, decimal.Decimal) (string, error) {
	time.Sleep(f.delay)
	f.count.Add(1)
	return "0xdeadbeef", nil
}

func TestDisburseConcurrentSameIdentitySingleTransfer(t *testing.T) {
	created := time.Now().UTC().AddDate(0, 0, -400)
	lookup := staticLookup{user: github.User{ID: 1001, Login: "alice", PublicRepos: 5, CreatedAt: &created}}
	verifySvc := verification.NewService(lookup, payouts.NewMemoryStore(), logging.Discard())

	treasury := &slowTreasury{delay: 50 * time.Millisecond}
	svc := NewService(serviceVerifier{svc: verifySvc}, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	var (
		wg       sync.WaitGroup
		approved atomic.Int32
		denied   atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Disburse(context.Background(), testRequest)
			switch {
			case err == nil && result.Status == StatusApproved:
				approved.Add(1)
			case errors.Is(err, ErrVerificationDenied):
				if !strings.Contains(result.Verification.Reason, "Rate limited") {
					t.Errorf("expected rate limited denial, got %q", result.Verification.Reason)
				}
				denied.Add(1)
			default:
				t.Errorf("unexpected outcome: result=%+v err=%v", result, err)
			}
		}()
	}
	wg.Wait()

	if got := treasury.count.Load(); got != 1 {
		t.Fatalf("expected exactly one on-chain transfer inside the cooldown window, got %d", got)
	}
	if approved.Load() != 1 || denied.Load() != 1 {
		t.Fatalf("expected one approval and one rate limited denial, got approved=%d denied=%d",
			approved.Load(), denied.Load())
	}
}

func TestDisburseSkipsRecordWithoutUserID(t *testing.T) {
	verdict := approvedVerdict()
	verdict.GithubUserID = nil
	verifier := &fakeVerifier{verdict: verdict}
	treasury := &fakeTreasury{txHash: "0xdeadbeef"}
	svc := NewService(verifier, treasury, decimal.RequireFromString("0.3"), logging.Discard())

	result, err := svc.Disburse(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	if result.Status != StatusApproved {
		t.Fatalf("expected approved status, got %s", result.Status)
	}
	if len(verifier.recorded) != 0 {
		t.Fatal("expected no record call without a github user id")
	}
}
