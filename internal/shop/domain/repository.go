package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository defines the persistence contract for shops.
type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, shop *Shop) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Shop, error)
	FindBySlug(ctx context.Context, tx *gorm.DB, slug string) (*Shop, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) ([]Shop, error)
	Save(ctx context.Context, tx *gorm.DB, shop *Shop) error
}
