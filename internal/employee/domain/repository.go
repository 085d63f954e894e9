package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository defines the persistence contract for employees.
type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, employee *Employee) error
	FindByID(ctx context.Context, tx *gorm.DB, shopID, id snowflake.ID) (*Employee, error)
	ListByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, activeOnly bool) ([]Employee, error)
	ListPINExpiring(ctx context.Context, tx *gorm.DB, before time.Time) ([]Employee, error)
	Save(ctx context.Context, tx *gorm.DB, employee *Employee) error
}
