package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/digiget/digiget/internal/customer/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, shop_id, phone, name, current_points, lifetime_points, total_visits, rewards_redeemed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.ShopID,
		customer.Phone,
		customer.Name,
		customer.CurrentPoints,
		customer.LifetimePoints,
		customer.TotalVisits,
		customer.RewardsRedeemed,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, shopID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("shop_id = ? AND id = ?", shopID, id).
		Limit(1).
		Find(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, shopID snowflake.ID, phone string) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("shop_id = ? AND phone = ?", shopID, phone).
		Limit(1).
		Find(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, shopID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("shop_id = ? AND id = ?", shopID, id).
		Limit(1).
		Find(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, shopID snowflake.ID, limit int, afterID snowflake.ID) ([]*domain.Customer, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("shop_id = ?", shopID)
	if afterID != 0 {
		stmt = stmt.Where("id > ?", afterID)
	}

	var customers []*domain.Customer
	err := stmt.Order("id asc").Limit(limit).Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, customer *domain.Customer) error {
	return tx.WithContext(ctx).Save(customer).Error
}

func (r *repo) Delete(ctx context.Context, tx *gorm.DB, shopID, id snowflake.ID) error {
	return tx.WithContext(ctx).
		Where("shop_id = ? AND id = ?", shopID, id).
		Delete(&domain.Customer{}).Error
}
