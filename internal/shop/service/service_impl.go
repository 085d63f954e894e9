package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/geo"
	"github.com/digiget/digiget/internal/geocode"
	"github.com/digiget/digiget/internal/observability/logger"
	"github.com/digiget/digiget/internal/shop/domain"
	"github.com/digiget/digiget/pkg/db"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   *config.Config
	Log      *zap.Logger
	Geocoder geocode.Client `optional:"true"`
}

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	cfg      *config.Config
	log      *zap.Logger
	geocoder geocode.Client
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		cfg:      p.Config,
		log:      p.Log.Named("shop.service"),
		geocoder: p.Geocoder,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Shop, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if !geo.IsValidCoordinate(req.Latitude, req.Longitude) {
		return nil, domain.ErrInvalidCoordinate
	}

	radius := req.RadiusMeters
	if radius == 0 {
		radius = 50
	}
	if !domain.ValidRadius(radius) {
		return nil, domain.ErrInvalidRadius
	}

	customerRadius := req.CustomerRadiusMeters
	if customerRadius == 0 {
		customerRadius = s.cfg.CustomerRadiusMeters
	}
	if customerRadius < radius {
		return nil, domain.ErrInvalidRadius
	}

	now := s.clock.Now().UTC()
	shop := &domain.Shop{
		ID:                   s.genID.Generate(),
		OwnerUserID:          req.OwnerUserID,
		Name:                 name,
		Slug:                 slug.Make(name),
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		RadiusMeters:         radius,
		CustomerRadiusMeters: customerRadius,
		Address:              s.resolveAddress(ctx, req.Latitude, req.Longitude),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Insert(ctx, s.db, shop); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugExists
		}
		return nil, err
	}

	s.log.Info("shop created",
		zap.Int64("shop_id", shop.ID.Int64()),
		zap.String("slug", shop.Slug),
		zap.Float64("radius_meters", shop.RadiusMeters),
	)
	return shop, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Shop, error) {
	shop, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, domain.ErrNotFound
	}
	return shop, nil
}

func (s *service) GetBySlug(ctx context.Context, slugName string) (*domain.Shop, error) {
	shop, err := s.repo.FindBySlug(ctx, s.db, slugName)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, domain.ErrNotFound
	}
	return shop, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]domain.Shop, error) {
	return s.repo.ListByOwner(ctx, s.db, ownerID)
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Shop, error) {
	shop, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	moved := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		shop.Name = name
	}
	if req.Latitude != nil {
		shop.Latitude = *req.Latitude
		moved = true
	}
	if req.Longitude != nil {
		shop.Longitude = *req.Longitude
		moved = true
	}
	if moved && !geo.IsValidCoordinate(shop.Latitude, shop.Longitude) {
		return nil, domain.ErrInvalidCoordinate
	}
	if req.RadiusMeters != nil {
		if !domain.ValidRadius(*req.RadiusMeters) {
			return nil, domain.ErrInvalidRadius
		}
		shop.RadiusMeters = *req.RadiusMeters
	}
	if req.CustomerRadiusMeters != nil {
		if *req.CustomerRadiusMeters < shop.RadiusMeters {
			return nil, domain.ErrInvalidRadius
		}
		shop.CustomerRadiusMeters = *req.CustomerRadiusMeters
	}

	if moved {
		shop.Address = s.resolveAddress(ctx, shop.Latitude, shop.Longitude)
	}
	shop.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Save(ctx, s.db, shop); err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *service) resolveAddress(ctx context.Context, lat, lon float64) string {
	if s.geocoder == nil {
		return ""
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	address, err := s.geocoder.ReverseGeocode(lookupCtx, lat, lon)
	if err != nil {
		// Address display is best-effort; the shop is still usable without it.
		logger.FromContext(ctx).Warn("reverse geocode failed", zap.Error(err))
		return ""
	}
	return address
}
