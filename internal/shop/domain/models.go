package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Shop is one tenant site: a registered coordinate plus the acceptance
// radius used for staff clock-in. Customer self check-in uses the wider
// CustomerRadiusMeters. The location is read-only to check-in flows.
type Shop struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerUserID          snowflake.ID `gorm:"not null;index" json:"owner_user_id"`
	Name                 string       `gorm:"type:text;not null" json:"name"`
	Slug                 string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Latitude             float64      `gorm:"not null" json:"latitude"`
	Longitude            float64      `gorm:"not null" json:"longitude"`
	RadiusMeters         float64      `gorm:"not null;default:50" json:"radius_meters"`
	CustomerRadiusMeters float64      `gorm:"not null;default:200" json:"customer_radius_meters"`
	// Address is display-only, filled from reverse geocoding; it never
	// affects check-in decisions.
	Address   string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Shop) TableName() string { return "shops" }

// AllowedRadii are the staff clock-in radii a shop may configure.
var AllowedRadii = []float64{30, 50, 100}

func ValidRadius(radius float64) bool {
	for _, allowed := range AllowedRadii {
		if radius == allowed {
			return true
		}
	}
	return false
}
