package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/employee/domain"
)

type repository struct{}

// Provide returns the gorm-backed employee repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, employee *domain.Employee) error {
	return tx.WithContext(ctx).Create(employee).Error
}

func (r *repository) FindByID(ctx context.Context, tx *gorm.DB, shopID, id snowflake.ID) (*domain.Employee, error) {
	var employee domain.Employee
	if err := tx.WithContext(ctx).
		Where("shop_id = ? AND id = ?", shopID, id).
		Limit(1).
		Find(&employee).Error; err != nil {
		return nil, err
	}
	if employee.ID == 0 {
		return nil, nil
	}
	return &employee, nil
}

func (r *repository) ListByShop(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, activeOnly bool) ([]domain.Employee, error) {
	query := tx.WithContext(ctx).Where("shop_id = ?", shopID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var employees []domain.Employee
	if err := query.Order("id ASC").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repository) ListPINExpiring(ctx context.Context, tx *gorm.DB, before time.Time) ([]domain.Employee, error) {
	var employees []domain.Employee
	if err := tx.WithContext(ctx).
		Where("active = ? AND pin_expires_at <= ?", true, before).
		Order("pin_expires_at ASC").
		Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repository) Save(ctx context.Context, tx *gorm.DB, employee *domain.Employee) error {
	return tx.WithContext(ctx).Save(employee).Error
}
