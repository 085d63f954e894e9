// Package audit records owner-side override actions (manual point
// adjustments, cooldown relaxations, visit approvals) so every bypass
// of the normal rules has a reviewable trail.
package audit

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionPointsAdjusted    = "points_adjusted"
	ActionRelaxationGranted = "relaxation_granted"
	ActionVisitApproved     = "visit_approved"
	ActionVisitRejected     = "visit_rejected"
	ActionShiftApproved     = "shift_approved"
	ActionShiftRejected     = "shift_rejected"
	ActionDataErased        = "data_erased"
)

// Log is one recorded override action.
type Log struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ShopID     snowflake.ID      `gorm:"not null;index" json:"shop_id"`
	ActorID    snowflake.ID      `gorm:"not null" json:"actor_id"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	TargetKind string            `gorm:"type:text;not null" json:"target_kind"`
	TargetID   snowflake.ID      `gorm:"not null" json:"target_id"`
	Detail     datatypes.JSONMap `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Log) TableName() string { return "audit_logs" }

// Recorder appends audit entries. Record never fails the caller's
// operation; a lost audit row is logged, not propagated.
type Recorder struct {
	genID *snowflake.Node
	log   *zap.Logger
}

func NewRecorder(genID *snowflake.Node, log *zap.Logger) *Recorder {
	return &Recorder{genID: genID, log: log.Named("audit")}
}

// Record writes one entry on the given handle. Pass the surrounding
// transaction when the audited action must not commit without its trail.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry *Log) {
	entry.ID = r.genID.Generate()
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Error("audit write failed",
			zap.String("action", entry.Action),
			zap.Int64("shop_id", entry.ShopID.Int64()),
			zap.Error(err),
		)
	}
}

// List returns a shop's audit trail, newest first.
func (r *Recorder) List(ctx context.Context, db *gorm.DB, shopID snowflake.ID, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []Log
	err := db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
