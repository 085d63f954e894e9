package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidShop  = errors.New("invalid_shop")
	ErrInvalidStars = errors.New("invalid_stars")
	ErrNotFound     = errors.New("rating_not_found")
)

// Rating is one customer's review of a shop. A customer holds at most
// one rating per shop; edits are cooldown-gated so scores cannot be
// flapped minute to minute.
type Rating struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ShopID     snowflake.ID `gorm:"not null;uniqueIndex:ux_ratings_shop_customer,priority:1" json:"shop_id"`
	CustomerID snowflake.ID `gorm:"not null;uniqueIndex:ux_ratings_shop_customer,priority:2" json:"customer_id"`
	Stars      int          `gorm:"not null" json:"stars"`
	Comment    string       `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Rating) TableName() string { return "ratings" }

// Summary aggregates a shop's ratings for display.
type Summary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// Service manages customer ratings. The shop scope comes from the
// request context.
type Service interface {
	// Rate creates the customer's rating or updates it, enforcing the
	// edit cooldown on updates. Relaxation grants bypass it once.
	Rate(ctx context.Context, customerID snowflake.ID, stars int, comment string) (*Rating, error)
	GetForCustomer(ctx context.Context, customerID snowflake.ID) (*Rating, error)
	Summarize(ctx context.Context) (*Summary, error)
	List(ctx context.Context, limit int) ([]Rating, error)
}
