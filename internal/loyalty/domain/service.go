package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"

	"github.com/digiget/digiget/internal/geo"
)

type CheckInRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	// OperationID is the client-generated idempotency key for this
	// attempt; retries reuse it so the point cannot double-apply.
	OperationID string   `json:"operation_id"`
	Fix         *geo.Fix `json:"fix"`
}

type CheckInResult struct {
	Status         VisitStatus `json:"status"`
	NewBalance     int64       `json:"new_balance"`
	DistanceMeters float64     `json:"distance_meters"`
	// Message carries the user-facing hint from the radius check (low
	// GPS confidence, out of range), empty when there is nothing to say.
	Message string `json:"message,omitempty"`
	// Duplicate is true when the operation id was already applied and
	// this call changed nothing.
	Duplicate bool `json:"duplicate,omitempty"`
	VisitID   snowflake.ID `json:"visit_id,omitempty"`
}

type RedeemRequest struct {
	CustomerID   snowflake.ID `json:"customer_id"`
	OperationID  string       `json:"operation_id"`
	PointsNeeded int64        `json:"points_needed"`
}

type RedeemResult struct {
	NewBalance      int64 `json:"new_balance"`
	RewardsRedeemed int64 `json:"rewards_redeemed"`
	Duplicate       bool  `json:"duplicate,omitempty"`
}

type AdjustRequest struct {
	CustomerID  snowflake.ID `json:"customer_id"`
	OperationID string       `json:"operation_id"`
	// Delta may be negative; the balance is floored at zero by the
	// insufficient-points check.
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
	// ActorID identifies the owner performing the override.
	ActorID snowflake.ID `json:"-"`
}

type AdjustResult struct {
	NewBalance int64 `json:"new_balance"`
	Duplicate  bool  `json:"duplicate,omitempty"`
}

// Service implements the proximity-gated loyalty flows: customer
// self check-in, reward redemption, manual adjustment, and pending-visit
// approval. The shop scope comes from the request context.
type Service interface {
	// CheckIn verifies proximity and cooldown, then either awards one
	// point atomically (approved) or records a pending visit for owner
	// review (outside radius).
	CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error)

	// Redeem zeroes the balance against a reward, enforcing the 24h
	// redemption cooldown and the points precondition.
	Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error)

	// AdjustPoints is the owner-side manual override. It writes an
	// explicitly labelled adjustment entry, never a silent balance edit.
	AdjustPoints(ctx context.Context, req AdjustRequest) (*AdjustResult, error)

	// ApproveVisit promotes a pending visit, awarding its point with the
	// same atomicity as an in-radius check-in.
	ApproveVisit(ctx context.Context, visitID, approverID snowflake.ID) (*CheckInResult, error)

	// RejectVisit closes a pending visit without awarding anything.
	RejectVisit(ctx context.Context, visitID, approverID snowflake.ID) error

	ListVisits(ctx context.Context, status VisitStatus, limit int) ([]Visit, error)

	// GrantRelaxation records a one-shot cooldown bypass for an account.
	GrantRelaxation(ctx context.Context, customerID, actorID snowflake.ID, policy string) error
}
