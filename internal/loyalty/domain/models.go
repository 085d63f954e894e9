package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// VisitStatus tracks whether a check-in earned its point immediately or
// is waiting on owner approval.
type VisitStatus string

const (
	VisitPending  VisitStatus = "pending"
	VisitApproved VisitStatus = "approved"
	VisitRejected VisitStatus = "rejected"
)

// Visit is one customer check-in attempt that passed validation.
// Approved visits carry a ledger entry; pending ones record the attempt
// and wait for the owner to promote or reject them.
type Visit struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID         snowflake.ID `gorm:"not null;index:idx_visits_shop_status,priority:1" json:"shop_id"`
	CustomerID     snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Status         VisitStatus  `gorm:"type:text;not null;index:idx_visits_shop_status,priority:2" json:"status"`
	DistanceMeters float64      `gorm:"not null" json:"distance_meters"`
	Latitude       float64      `gorm:"not null" json:"latitude"`
	Longitude      float64      `gorm:"not null" json:"longitude"`
	AccuracyMeters float64      `gorm:"not null" json:"accuracy_meters"`
	// OperationID ties the visit to the ledger entry written when it is
	// approved, so a retried approval cannot double-award.
	OperationID string       `gorm:"type:text;not null" json:"operation_id"`
	ResolvedBy  snowflake.ID `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Visit) TableName() string { return "customer_visits" }
