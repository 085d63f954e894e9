package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/shop/domain"
)

type repository struct{}

// Provide returns the gorm-backed shop repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, shop *domain.Shop) error {
	return tx.WithContext(ctx).Create(shop).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Shop, error) {
	var shop domain.Shop
	if err := tx.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&shop).Error; err != nil {
		return nil, err
	}
	if shop.ID == 0 {
		return nil, nil
	}
	return &shop, nil
}

func (r *repository) FindBySlug(ctx context.Context, tx *gorm.DB, slug string) (*domain.Shop, error) {
	var shop domain.Shop
	if err := tx.WithContext(ctx).Where("slug = ?", slug).Limit(1).Find(&shop).Error; err != nil {
		return nil, err
	}
	if shop.ID == 0 {
		return nil, nil
	}
	return &shop, nil
}

func (r *repository) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) ([]domain.Shop, error) {
	var shops []domain.Shop
	if err := tx.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("id ASC").
		Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *repository) Save(ctx context.Context, tx *gorm.DB, shop *domain.Shop) error {
	return tx.WithContext(ctx).Save(shop).Error
}
