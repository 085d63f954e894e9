package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidCoordinate = errors.New("invalid_coordinate")
	ErrInvalidRadius     = errors.New("invalid_radius")
	ErrSlugExists        = errors.New("slug_exists")
	ErrNotFound          = errors.New("shop_not_found")
)

type CreateRequest struct {
	OwnerUserID snowflake.ID `json:"-"`
	Name        string       `json:"name"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	// RadiusMeters must be one of AllowedRadii; zero means the default 50.
	RadiusMeters         float64 `json:"radius_meters"`
	CustomerRadiusMeters float64 `json:"customer_radius_meters"`
}

type UpdateRequest struct {
	Name                 *string  `json:"name"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	RadiusMeters         *float64 `json:"radius_meters"`
	CustomerRadiusMeters *float64 `json:"customer_radius_meters"`
}

// Service manages shop registration and settings.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Shop, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Shop, error)
	GetBySlug(ctx context.Context, slug string) (*Shop, error)
	ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]Shop, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Shop, error)
}
