package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a phone-number loyalty account scoped to one shop.
// CurrentPoints is only ever mutated together with a ledger entry;
// LifetimePoints never decreases.
type Customer struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID          snowflake.ID `gorm:"not null;index;uniqueIndex:ux_customers_shop_phone,priority:1" json:"shop_id"`
	Phone           string       `gorm:"type:text;not null;uniqueIndex:ux_customers_shop_phone,priority:2" json:"phone"`
	Name            string       `gorm:"type:text" json:"name,omitempty"`
	CurrentPoints   int64        `gorm:"not null;default:0" json:"current_points"`
	LifetimePoints  int64        `gorm:"not null;default:0" json:"lifetime_points"`
	TotalVisits     int64        `gorm:"not null;default:0" json:"total_visits"`
	RewardsRedeemed int64        `gorm:"not null;default:0" json:"rewards_redeemed"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
