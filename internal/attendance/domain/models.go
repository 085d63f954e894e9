package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryStatus tracks whether a clock-in inside the shop radius was
// auto-approved or is waiting on the owner.
type EntryStatus string

const (
	StatusApproved EntryStatus = "approved"
	StatusPending  EntryStatus = "pending"
	StatusRejected EntryStatus = "rejected"
)

// ClockEntry is one staff shift record. An open entry has no clock-out
// time yet; payroll only counts closed, approved entries.
type ClockEntry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID     snowflake.ID `gorm:"not null;index:idx_clock_entries_shop,priority:1;uniqueIndex:ux_clock_entries_operation,priority:1" json:"shop_id"`
	EmployeeID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_clock_entries_operation,priority:2" json:"employee_id"`
	// OperationID dedupes retried clock-in submissions.
	OperationID    string      `gorm:"type:text;not null;uniqueIndex:ux_clock_entries_operation,priority:3" json:"operation_id"`
	Status         EntryStatus `gorm:"type:text;not null;index:idx_clock_entries_shop,priority:2" json:"status"`
	ClockInAt      time.Time   `gorm:"not null;index" json:"clock_in_at"`
	ClockOutAt     *time.Time  `json:"clock_out_at,omitempty"`
	DistanceMeters float64     `gorm:"not null" json:"distance_meters"`
	Latitude       float64     `gorm:"not null" json:"latitude"`
	Longitude      float64     `gorm:"not null" json:"longitude"`
	AccuracyMeters float64     `gorm:"not null" json:"accuracy_meters"`
	ResolvedBy     snowflake.ID `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ClockEntry) TableName() string { return "clock_entries" }

// Hours returns the shift length, zero while the entry is still open.
func (e ClockEntry) Hours() float64 {
	if e.ClockOutAt == nil {
		return 0
	}
	return e.ClockOutAt.Sub(e.ClockInAt).Hours()
}
