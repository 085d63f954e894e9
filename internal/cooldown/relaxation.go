package cooldown

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// relaxationValidity bounds how long an unconsumed grant can be used.
const relaxationValidity = time.Hour

// AccountKind distinguishes loyalty accounts from staff accounts.
type AccountKind string

const (
	AccountCustomer AccountKind = "customer"
	AccountEmployee AccountKind = "employee"
)

// Relaxation is a manually granted, one-shot cooldown bypass.
type Relaxation struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID      snowflake.ID `gorm:"not null;index:idx_relaxations_lookup,priority:1" json:"shop_id"`
	AccountKind AccountKind  `gorm:"type:text;not null;index:idx_relaxations_lookup,priority:2" json:"account_kind"`
	AccountID   snowflake.ID `gorm:"not null;index:idx_relaxations_lookup,priority:3" json:"account_id"`
	PolicyKind  PolicyKind   `gorm:"type:text;not null;index:idx_relaxations_lookup,priority:4" json:"policy_kind"`
	GrantedBy   snowflake.ID `gorm:"not null" json:"granted_by"`
	GrantedAt   time.Time    `gorm:"not null" json:"granted_at"`
	ConsumedAt  *time.Time   `json:"consumed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Relaxation) TableName() string { return "cooldown_relaxations" }

// Store persists relaxation grants.
type Store struct{}

func NewStore() *Store { return &Store{} }

// Grant records a new bypass for an account and policy.
func (s *Store) Grant(ctx context.Context, db *gorm.DB, grant *Relaxation) error {
	return db.WithContext(ctx).Create(grant).Error
}

// FindActive returns the newest unconsumed grant still inside its
// validity window, or nil.
func (s *Store) FindActive(ctx context.Context, db *gorm.DB, shopID snowflake.ID, kind AccountKind, accountID snowflake.ID, policy PolicyKind, now time.Time) (*Relaxation, error) {
	var grant Relaxation
	err := db.WithContext(ctx).
		Where("shop_id = ? AND account_kind = ? AND account_id = ? AND policy_kind = ?", shopID, kind, accountID, policy).
		Where("consumed_at IS NULL").
		Where("granted_at > ?", now.Add(-relaxationValidity)).
		Order("granted_at desc").
		Limit(1).
		Find(&grant).Error
	if err != nil {
		return nil, err
	}
	if grant.ID == 0 {
		return nil, nil
	}
	return &grant, nil
}

// Consume marks a grant used. It must run inside the same transaction
// as the write it unlocks; the guarded update keeps two concurrent
// consumers from sharing one grant.
func (s *Store) Consume(ctx context.Context, tx *gorm.DB, grantID snowflake.ID, now time.Time) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&Relaxation{}).
		Where("id = ? AND consumed_at IS NULL", grantID).
		Update("consumed_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// List returns grants for a shop, newest first, for the audit surface.
func (s *Store) List(ctx context.Context, db *gorm.DB, shopID snowflake.ID, limit int) ([]Relaxation, error) {
	if limit <= 0 {
		limit = 50
	}
	var grants []Relaxation
	err := db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("granted_at desc").
		Limit(limit).
		Find(&grants).Error
	return grants, err
}

// Prune deletes consumed grants and unconsumed grants past their
// validity window plus a retention margin.
func (s *Store) Prune(ctx context.Context, db *gorm.DB, now time.Time, retention time.Duration) (int64, error) {
	result := db.WithContext(ctx).
		Where("consumed_at IS NOT NULL AND consumed_at < ?", now.Add(-retention)).
		Or("consumed_at IS NULL AND granted_at < ?", now.Add(-relaxationValidity).Add(-retention)).
		Delete(&Relaxation{})
	return result.RowsAffected, result.Error
}
