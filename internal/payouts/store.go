package payouts

import (
	"context"
	"fmt"
	"time"
)

// CooldownWindow is the minimum spacing between payouts to one GitHub user.
const CooldownWindow = 24 * time.Hour

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed    bool
	Reason     string
	LastPayout time.Time
}

// Store persists the last successful payout time per GitHub user ID. It keeps
// exactly one row per user; RecordPayout replaces any prior row. Timestamps
// come from the UTC wall clock, so a backward clock adjustment can re-enable
// early collection. That trade-off is accepted rather than corrected.
type Store interface {
	// MayCollect reports whether the user is outside the cooldown window.
	MayCollect(ctx context.Context, githubUserID int64) (Decision, error)
	// RecordPayout upserts the last payout timestamp for the user.
	RecordPayout(ctx context.Context, githubUserID int64, at time.Time) error
}

// decide applies the cooldown window to a recorded payout time.
func decide(lastPayout, now time.Time) Decision {
	elapsed := now.Sub(lastPayout)
	if elapsed >= CooldownWindow {
		return Decision{Allowed: true, LastPayout: lastPayout}
	}

	elapsedHours := elapsed.Hours()
	remainingHours := (CooldownWindow - elapsed).Hours()
	return Decision{
		Allowed: false,
		Reason: fmt.Sprintf(
			"Rate limited. Last payout was %.1fh ago. Try again in %.1f hours",
			elapsedHours, remainingHours,
		),
		LastPayout: lastPayout,
	}
}
