package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/cooldown"
	"github.com/digiget/digiget/internal/rating/domain"
	"github.com/digiget/digiget/internal/shopcontext"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Relaxations *cooldown.Store
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      *config.Config
	Log         *zap.Logger
}

type service struct {
	db          *gorm.DB
	relaxations *cooldown.Store
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         *config.Config
	log         *zap.Logger
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		relaxations: p.Relaxations,
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		log:         p.Log.Named("rating.service"),
	}
}

func (s *service) Rate(ctx context.Context, customerID snowflake.ID, stars int, comment string) (*domain.Rating, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	if stars < 1 || stars > 5 {
		return nil, domain.ErrInvalidStars
	}

	now := s.clock.Now().UTC()
	var rating *domain.Rating

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.find(ctx, tx, shopID, customerID)
		if err != nil {
			return err
		}

		if existing == nil {
			rating = &domain.Rating{
				ID:         s.genID.Generate(),
				ShopID:     shopID,
				CustomerID: customerID,
				Stars:      stars,
				Comment:    comment,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			return tx.WithContext(ctx).Create(rating).Error
		}

		// Edits are gated on the last edit time, not the original
		// creation, so one rating cannot be rewritten inside the window.
		remaining := cooldown.RemainingMinutes(&existing.UpdatedAt, s.cfg.RatingEditCooldownMinutes, now)
		if remaining > 0 {
			grant, err := s.relaxations.FindActive(ctx, tx, shopID, cooldown.AccountCustomer, customerID, cooldown.PolicyRatingEdit, now)
			if err != nil {
				return err
			}
			consumed := false
			if grant != nil {
				consumed, err = s.relaxations.Consume(ctx, tx, grant.ID, now)
				if err != nil {
					return err
				}
			}
			if !consumed {
				return &cooldown.ActiveError{RemainingMinutes: remaining}
			}
		}

		existing.Stars = stars
		existing.Comment = comment
		existing.UpdatedAt = now
		rating = existing
		return tx.WithContext(ctx).Save(existing).Error
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func (s *service) GetForCustomer(ctx context.Context, customerID snowflake.ID) (*domain.Rating, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	rating, err := s.find(ctx, s.db, shopID, customerID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		return nil, domain.ErrNotFound
	}
	return rating, nil
}

func (s *service) Summarize(ctx context.Context) (*domain.Summary, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	var summary domain.Summary
	err := s.db.WithContext(ctx).
		Model(&domain.Rating{}).
		Where("shop_id = ?", shopID).
		Select("COUNT(*) AS count, COALESCE(AVG(stars), 0) AS average").
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *service) List(ctx context.Context, limit int) ([]domain.Rating, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	if limit <= 0 {
		limit = 50
	}

	var ratings []domain.Rating
	err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("updated_at desc").
		Limit(limit).
		Find(&ratings).Error
	return ratings, err
}

func (s *service) find(ctx context.Context, tx *gorm.DB, shopID, customerID snowflake.ID) (*domain.Rating, error) {
	var rating domain.Rating
	if err := tx.WithContext(ctx).
		Where("shop_id = ? AND customer_id = ?", shopID, customerID).
		Limit(1).
		Find(&rating).Error; err != nil {
		return nil, err
	}
	if rating.ID == 0 {
		return nil, nil
	}
	return &rating, nil
}
