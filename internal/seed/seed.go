// Package seed bootstraps a demo shop so a fresh install is explorable
// without signing up first.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	authdomain "github.com/digiget/digiget/internal/auth/domain"
	"github.com/digiget/digiget/internal/auth/password"
	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
)

const (
	demoOwnerEmail    = "demo@digiget.uk"
	demoOwnerPassword = "demo-digiget"
	demoOwnerDisplay  = "Demo Owner"
	demoShopName      = "Demo Espresso Bar"
	demoShopSlug      = "demo-espresso-bar"
	demoEmployeePIN   = "1234"
)

// EnsureDemoShop creates the demo owner, shop, barista and one loyalty
// customer. It is idempotent and safe to run on every startup.
func EnsureDemoShop(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := ensureOwner(ctx, tx, node)
		if err != nil {
			return err
		}
		shop, err := ensureShop(ctx, tx, node, owner.ID)
		if err != nil {
			return err
		}
		if err := ensureEmployee(ctx, tx, node, shop.ID); err != nil {
			return err
		}
		return ensureCustomer(ctx, tx, node, shop.ID)
	})
}

func ensureOwner(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*authdomain.User, error) {
	var user authdomain.User
	if err := tx.WithContext(ctx).Where("email = ?", demoOwnerEmail).Limit(1).Find(&user).Error; err != nil {
		return nil, err
	}
	if user.ID != 0 {
		return &user, nil
	}

	hashed, err := password.Hash(demoOwnerPassword)
	if err != nil {
		return nil, err
	}
	user = authdomain.User{
		ID:           node.Generate(),
		Email:        demoOwnerEmail,
		DisplayName:  demoOwnerDisplay,
		PasswordHash: hashed,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureShop(ctx context.Context, tx *gorm.DB, node *snowflake.Node, ownerID snowflake.ID) (*shopdomain.Shop, error) {
	var shop shopdomain.Shop
	if err := tx.WithContext(ctx).Where("slug = ?", demoShopSlug).Limit(1).Find(&shop).Error; err != nil {
		return nil, err
	}
	if shop.ID != 0 {
		return &shop, nil
	}

	// Manchester city centre.
	shop = shopdomain.Shop{
		ID:                   node.Generate(),
		OwnerUserID:          ownerID,
		Name:                 demoShopName,
		Slug:                 demoShopSlug,
		Latitude:             53.4808,
		Longitude:            -2.2426,
		RadiusMeters:         50,
		CustomerRadiusMeters: 200,
		Address:              "Market Street, Manchester",
	}
	if err := tx.WithContext(ctx).Create(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func ensureEmployee(ctx context.Context, tx *gorm.DB, node *snowflake.Node, shopID snowflake.ID) error {
	var employee employeedomain.Employee
	if err := tx.WithContext(ctx).
		Where("shop_id = ? AND email = ?", shopID, "barista@digiget.uk").
		Limit(1).
		Find(&employee).Error; err != nil {
		return err
	}
	if employee.ID != 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoEmployeePIN), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(&employeedomain.Employee{
		ID:           node.Generate(),
		ShopID:       shopID,
		Name:         "Demo Barista",
		Email:        "barista@digiget.uk",
		HourlyRate:   12.21,
		PINHash:      string(hash),
		PINExpiresAt: time.Now().UTC().AddDate(0, 0, 90),
		Active:       true,
	}).Error
}

func ensureCustomer(ctx context.Context, tx *gorm.DB, node *snowflake.Node, shopID snowflake.ID) error {
	var customer customerdomain.Customer
	if err := tx.WithContext(ctx).
		Where("shop_id = ? AND phone = ?", shopID, "+447700900123").
		Limit(1).
		Find(&customer).Error; err != nil {
		return err
	}
	if customer.ID != 0 {
		return nil
	}

	return tx.WithContext(ctx).Create(&customerdomain.Customer{
		ID:     node.Generate(),
		ShopID: shopID,
		Phone:  "+447700900123",
		Name:   "Demo Customer",
	}).Error
}
