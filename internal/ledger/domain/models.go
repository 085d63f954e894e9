package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryKind classifies one loyalty balance change.
type EntryKind string

const (
	KindPointAdded     EntryKind = "point_added"
	KindRewardRedeemed EntryKind = "reward_redeemed"
	// KindPointsAdjusted is the explicit manual-override kind used by
	// owner-side adjustments; it is never written by check-in flows.
	KindPointsAdjusted EntryKind = "points_adjusted"
)

// AccountKind distinguishes customer loyalty accounts from staff accounts.
type AccountKind string

const (
	AccountCustomer AccountKind = "customer"
	AccountEmployee AccountKind = "employee"
)

// Entry is one immutable loyalty ledger record. Entries are append-only
// and are only ever bulk-erased by an explicit data deletion request.
type Entry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_loyalty_tx_operation,priority:1" json:"shop_id"`
	AccountKind AccountKind  `gorm:"type:text;not null;uniqueIndex:ux_loyalty_tx_operation,priority:2" json:"account_kind"`
	AccountID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_loyalty_tx_operation,priority:3" json:"account_id"`
	// OperationID is the client-generated idempotency key; retries of a
	// partially acknowledged operation cannot double-apply.
	OperationID  string    `gorm:"type:text;not null;uniqueIndex:ux_loyalty_tx_operation,priority:4" json:"operation_id"`
	Kind         EntryKind `gorm:"type:text;not null;index" json:"kind"`
	Delta        int64     `gorm:"not null" json:"delta"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	OccurredAt   time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "loyalty_transactions" }
