package db

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digiget/digiget/pkg/rls"
)

// TenantTransaction runs fn in a transaction pinned to one shop. On
// Postgres the shop id is also installed as the row-level security
// tenant, so the policies in the schema enforce isolation underneath
// the application checks. Other dialects carry the application checks
// alone.
func TenantTransaction(ctx context.Context, conn *gorm.DB, shopID snowflake.ID, fn func(tx *gorm.DB) error) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := rls.WithTenant(tx, shopID.Int64()); err != nil {
				return err
			}
		}
		return fn(tx)
	})
}
