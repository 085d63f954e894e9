package rls

import (
	"fmt"

	"gorm.io/gorm"
)

// WithTenant scopes the current transaction to one shop for Postgres
// row-level security policies.
func WithTenant(tx *gorm.DB, shopID int64) error {
	return tx.Exec(
		"SET LOCAL app.current_shop_id = ?",
		fmt.Sprintf("%d", shopID),
	).Error
}
