package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidShop  = errors.New("invalid_shop")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrEmailExists  = errors.New("email_exists")
	ErrNotFound     = errors.New("employee_not_found")
	ErrInactive     = errors.New("employee_inactive")
	ErrPINMismatch  = errors.New("pin_mismatch")
	ErrPINExpired   = errors.New("pin_expired")
)

type CreateRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	HourlyRate float64 `json:"hourly_rate"`
}

// Created carries the one-time plaintext PIN alongside the stored employee.
type Created struct {
	Employee *Employee `json:"employee"`
	PIN      string    `json:"pin"`
}

// Service manages staff records and PIN credentials. The shop scope comes
// from the request context.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Created, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Employee, error)
	List(ctx context.Context, activeOnly bool) ([]Employee, error)
	// VerifyPIN checks an employee's PIN, rejecting expired or inactive
	// credentials. It never reveals which part of the check failed beyond
	// the returned sentinel.
	VerifyPIN(ctx context.Context, id snowflake.ID, pin string) (*Employee, error)
	// ReissuePIN rotates the PIN, resets its expiry and emails the new
	// plaintext to the employee.
	ReissuePIN(ctx context.Context, id snowflake.ID) (*Created, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}
