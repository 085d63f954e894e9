package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidShop   = errors.New("invalid_shop")
	ErrInvalidTitle  = errors.New("invalid_title")
	ErrInvalidWindow = errors.New("invalid_window")
	ErrNotFound      = errors.New("offer_not_found")
)

// Status is an offer's lifecycle state. Expiry is applied lazily on
// read and swept by the scheduler so listings stay cheap.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Offer is a time-boxed flash promotion shown to a shop's customers.
type Offer struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID      snowflake.ID `gorm:"not null;index:idx_offers_shop_status,priority:1" json:"shop_id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Status      Status       `gorm:"type:text;not null;index:idx_offers_shop_status,priority:2" json:"status"`
	StartsAt    time.Time    `gorm:"not null" json:"starts_at"`
	EndsAt      time.Time    `gorm:"not null;index" json:"ends_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Offer) TableName() string { return "offers" }

type CreateRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// Service manages flash offers for the shop in the request context.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Offer, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Offer, error)
	// ListLive returns offers currently visible to customers: active,
	// inside their window.
	ListLive(ctx context.Context) ([]Offer, error)
	ListAll(ctx context.Context, limit int) ([]Offer, error)
	Cancel(ctx context.Context, id snowflake.ID) error
	// ExpireDue sweeps offers whose window has passed; the scheduler
	// calls it periodically across all shops.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
