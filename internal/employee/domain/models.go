package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Employee is a staff member of one shop. Clock-in is authenticated by a
// 4-digit PIN stored as a bcrypt hash; the plaintext is only ever shown
// once at issuance and delivered by email.
type Employee struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID       snowflake.ID `gorm:"not null;index:ux_employees_shop_email,unique" json:"shop_id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Email        string       `gorm:"type:text;not null;index:ux_employees_shop_email,unique" json:"email"`
	Phone        string       `gorm:"type:text" json:"phone,omitempty"`
	HourlyRate   float64      `gorm:"not null;default:0" json:"hourly_rate"`
	PINHash      string       `gorm:"column:pin_hash;type:text;not null" json:"-"`
	PINExpiresAt time.Time    `gorm:"column:pin_expires_at;not null" json:"pin_expires_at"`
	Active       bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Employee) TableName() string { return "employees" }
