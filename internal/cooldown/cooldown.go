// Package cooldown enforces minimum intervals between repeat actions
// (point earning, redemption, rating edits) and the manually granted
// relaxation bypasses that override them once.
package cooldown

import (
	"errors"
	"math"
	"time"
)

// ErrActive is the sentinel matched by errors.Is; callers needing the
// remaining minutes unwrap to ActiveError.
var ErrActive = errors.New("cooldown_active")

// ActiveError reports how long the caller must wait. It is an expected
// condition, surfaced as information rather than a failure.
type ActiveError struct {
	RemainingMinutes int
}

func (e *ActiveError) Error() string { return "cooldown_active" }

func (e *ActiveError) Is(target error) bool { return target == ErrActive }

// PolicyKind names one cooldown-gated action.
type PolicyKind string

const (
	PolicyPointEarn  PolicyKind = "point_earn"
	PolicyRedemption PolicyKind = "redemption"
	PolicyRatingEdit PolicyKind = "rating_edit"
)

// RemainingMinutes returns whole minutes left in the window, rounded up
// so a user inside the window is never told "0 minutes remaining".
// A nil last event means no cooldown.
func RemainingMinutes(lastEventAt *time.Time, windowMinutes int, now time.Time) int {
	if lastEventAt == nil || windowMinutes <= 0 {
		return 0
	}
	elapsed := now.Sub(*lastEventAt)
	remaining := time.Duration(windowMinutes)*time.Minute - elapsed
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}
