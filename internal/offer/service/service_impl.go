package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/offer/domain"
	"github.com/digiget/digiget/internal/shopcontext"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

type service struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		genID: p.GenID,
		clock: p.Clock,
		log:   p.Log.Named("offer.service"),
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Offer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	now := s.clock.Now().UTC()
	startsAt := req.StartsAt
	if startsAt.IsZero() {
		startsAt = now
	}
	if !req.EndsAt.After(startsAt) {
		return nil, domain.ErrInvalidWindow
	}

	status := domain.StatusActive
	if startsAt.After(now) {
		status = domain.StatusScheduled
	}

	offer := &domain.Offer{
		ID:          s.genID.Generate(),
		ShopID:      shopID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		StartsAt:    startsAt,
		EndsAt:      req.EndsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}

	s.log.Info("offer created",
		zap.Int64("shop_id", shopID.Int64()),
		zap.Int64("offer_id", offer.ID.Int64()),
		zap.Time("ends_at", offer.EndsAt),
	)
	return offer, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Offer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	var offer domain.Offer
	if err := s.db.WithContext(ctx).
		Where("shop_id = ? AND id = ?", shopID, id).
		Limit(1).
		Find(&offer).Error; err != nil {
		return nil, err
	}
	if offer.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &offer, nil
}

func (s *service) ListLive(ctx context.Context) ([]domain.Offer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	now := s.clock.Now().UTC()
	var offers []domain.Offer
	err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Where("status IN ?", []domain.Status{domain.StatusActive, domain.StatusScheduled}).
		Where("starts_at <= ? AND ends_at > ?", now, now).
		Order("ends_at asc").
		Find(&offers).Error
	return offers, err
}

func (s *service) ListAll(ctx context.Context, limit int) ([]domain.Offer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	if limit <= 0 {
		limit = 50
	}

	var offers []domain.Offer
	err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at desc").
		Limit(limit).
		Find(&offers).Error
	return offers, err
}

func (s *service) Cancel(ctx context.Context, id snowflake.ID) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidShop
	}

	result := s.db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("shop_id = ? AND id = ? AND status IN ?", shopID, id,
			[]domain.Status{domain.StatusActive, domain.StatusScheduled}).
		Updates(map[string]interface{}{
			"status":     domain.StatusCancelled,
			"updated_at": s.clock.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpireDue runs shop-agnostic: it is a maintenance sweep, not a
// tenant-scoped operation.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("status IN ? AND ends_at <= ?",
			[]domain.Status{domain.StatusActive, domain.StatusScheduled}, now).
		Updates(map[string]interface{}{
			"status":     domain.StatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.log.Info("offers expired", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
