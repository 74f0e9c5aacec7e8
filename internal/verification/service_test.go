package verification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/builder-faucet/builder_faucet/internal/github"
	"github.com/builder-faucet/builder_faucet/internal/logging"
	"github.com/builder-faucet/builder_faucet/internal/payouts"
)

type fakeLookup struct {
	user github.User
	err  error
}

func (f fakeLookup) Lookup(context.Context, string) (github.User, error) {
	return f.user, f.err
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(lookup IdentityLookup, store payouts.Store) *Service {
	svc := NewService(lookup, store, logging.Discard())
	svc.now = func() time.Time { return testNow }
	return svc
}

func userAgedDays(id int64, repos, ageDays int) github.User {
	created := testNow.AddDate(0, 0, -ageDays)
	return github.User{ID: id, Login: "builder", PublicRepos: repos, CreatedAt: &created}
}

func TestVerifyAllChecksPass(t *testing.T) {
	svc := newTestService(fakeLookup{user: userAgedDays(1001, 5, 400)}, payouts.NewMemoryStore())

	verdict := svc.Verify(context.Background(), "alice", "0xABC0000000000000000000000000000000000001")
	if !verdict.Verified {
		t.Fatalf("expected verified verdict, got reason %q", verdict.Reason)
	}
	if verdict.Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95, got %v", verdict.Confidence)
	}
	if verdict.Reason != "All verification checks passed" {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
	if verdict.GithubUserID == nil || *verdict.GithubUserID != 1001 {
		t.Fatalf("expected github user id 1001, got %v", verdict.GithubUserID)
	}
	if verdict.AccountAgeDays == nil || *verdict.AccountAgeDays != 400 {
		t.Fatalf("expected account age 400, got %v", verdict.AccountAgeDays)
	}
}

func TestVerifyConfidenceCap(t *testing.T) {
	cases := []struct {
		repos int
		want  float64
	}{
		{repos: 1, want: 0.75},
		{repos: 6, want: 1.0},
		{repos: 100, want: 1.0},
	}
	for _, tc := range cases {
		svc := newTestService(fakeLookup{user: userAgedDays(1, tc.repos, 365)}, payouts.NewMemoryStore())
		verdict := svc.Verify(context.Background(), "builder", "0xABC")
		if verdict.Confidence != tc.want {
			t.Fatalf("repos=%d: expected confidence %v, got %v", tc.repos, tc.want, verdict.Confidence)
		}
	}
}

func TestConfidenceFloor(t *testing.T) {
	if got := confidence(0); got != 0.7 {
		t.Fatalf("expected base confidence 0.7, got %v", got)
	}
}

func TestVerifyAccountTooNew(t *testing.T) {
	svc := newTestService(fakeLookup{user: userAgedDays(2002, 3, 10)}, payouts.NewMemoryStore())

	verdict := svc.Verify(context.Background(), "bob", "0xABC")
	if verdict.Verified {
		t.Fatal("expected denial for a 10 day old account")
	}
	if verdict.Reason != "Account too new (10 days, need 30+)" {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
	if verdict.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %v", verdict.Confidence)
	}
	if verdict.RepoCount == nil || *verdict.RepoCount != 3 {
		t.Fatalf("expected repo count on failed verdict, got %v", verdict.RepoCount)
	}
}

func TestVerifyNoRepositories(t *testing.T) {
	svc := newTestService(fakeLookup{user: userAgedDays(3003, 0, 365)}, payouts.NewMemoryStore())

	verdict := svc.Verify(context.Background(), "lurker", "0xABC")
	if verdict.Verified {
		t.Fatal("expected denial without public repositories")
	}
	if verdict.Reason != "No public repositories" {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
}

func TestVerifyMissingCreationDateSkipsAgeGate(t *testing.T) {
	user := github.User{ID: 4004, Login: "ghost", PublicRepos: 2}
	svc := newTestService(fakeLookup{user: user}, payouts.NewMemoryStore())

	verdict := svc.Verify(context.Background(), "ghost", "0xABC")
	if !verdict.Verified {
		t.Fatalf("expected verification to pass without a creation date, got %q", verdict.Reason)
	}
	if verdict.AccountAgeDays != nil {
		t.Fatalf("expected unknown account age, got %v", *verdict.AccountAgeDays)
	}
}

func TestVerifyUserNotFound(t *testing.T) {
	svc := newTestService(fakeLookup{err: github.ErrUserNotFound}, payouts.NewMemoryStore())

	verdict := svc.Verify(context.Background(), "nosuchuser", "0xABC")
	if verdict.Verified {
		t.Fatal("expected denial for unknown user")
	}
	if !strings.Contains(verdict.Reason, "not found") {
		t.Fatalf("expected not-found reason, got %q", verdict.Reason)
	}
	if verdict.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %v", verdict.Confidence)
	}
	if verdict.GithubUserID != nil {
		t.Fatalf("expected no github user id, got %v", *verdict.GithubUserID)
	}
}

func TestVerifyLookupUnreachable(t *testing.T) {
	svc := newTestService(fakeLookup{err: github.ErrUnreachable}, payouts.NewMemoryStore())

	verdict := svc.Verify(context.Background(), "alice", "0xABC")
	if verdict.Verified {
		t.Fatal("expected denial when GitHub is unreachable")
	}
	if !strings.Contains(verdict.Reason, "Failed to reach GitHub API") {
		t.Fatalf("expected network failure reason, got %q", verdict.Reason)
	}
}

func TestVerifyRateLimited(t *testing.T) {
	store := payouts.NewMemoryStoreAt(func() time.Time { return testNow })
	if err := store.RecordPayout(context.Background(), 1001, testNow.Add(-2*time.Hour)); err != nil {
		t.Fatalf("record payout: %v", err)
	}
	svc := newTestService(fakeLookup{user: userAgedDays(1001, 5, 400)}, store)

	verdict := svc.Verify(context.Background(), "alice", "0xABC")
	if verdict.Verified {
		t.Fatal("expected rate limited denial")
	}
	if !strings.Contains(verdict.Reason, "Rate limited") {
		t.Fatalf("expected rate limited reason, got %q", verdict.Reason)
	}
	// Observability fields stay attached even when the rate gate fails.
	if verdict.GithubUserID == nil || verdict.RepoCount == nil || verdict.AccountAgeDays == nil {
		t.Fatalf("expected numeric fields on rate limited verdict: %+v", verdict)
	}
}

func TestRecordPayoutEnforcesNextVerify(t *testing.T) {
	ctx := context.Background()
	store := payouts.NewMemoryStoreAt(func() time.Time { return testNow })
	svc := newTestService(fakeLookup{user: userAgedDays(1001, 5, 400)}, store)

	if verdict := svc.Verify(ctx, "alice", "0xABC"); !verdict.Verified {
		t.Fatalf("expected initial verification to pass, got %q", verdict.Reason)
	}
	if err := svc.RecordPayout(ctx, 1001); err != nil {
		t.Fatalf("record payout: %v", err)
	}
	if verdict := svc.Verify(ctx, "alice", "0xABC"); verdict.Verified {
		t.Fatal("expected rate limit to block the second verification")
	}
}
