package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, shopID, id snowflake.ID) (*Customer, error)
	FindByPhone(ctx context.Context, db *gorm.DB, shopID snowflake.ID, phone string) (*Customer, error)
	// FindByIDForUpdate row-locks the account inside the caller's
	// transaction; check-in and redemption use it to serialize writers.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, shopID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, shopID snowflake.ID, limit int, afterID snowflake.ID) ([]*Customer, error)
	Save(ctx context.Context, tx *gorm.DB, customer *Customer) error
	Delete(ctx context.Context, tx *gorm.DB, shopID, id snowflake.ID) error
}
