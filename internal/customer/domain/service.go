package domain

import (
	"context"
	"errors"
)

type EnrollCustomerRequest struct {
	Phone string
	Name  string
	Email string
}

type GetCustomerRequest struct {
	ID string
}

type LookupByPhoneRequest struct {
	Phone string
}

type ListCustomerRequest struct {
	PageSize  int
	PageToken string
}

type ListCustomerResponse struct {
	Customers     []Customer `json:"customers"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

type Service interface {
	Enroll(context.Context, EnrollCustomerRequest) (Customer, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	LookupByPhone(context.Context, LookupByPhoneRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	// DeleteData erases the account and its ledger in one transaction,
	// honoring an explicit "delete my data" request.
	DeleteData(context.Context, GetCustomerRequest) error
}

var (
	ErrInvalidShop  = errors.New("invalid_shop")
	ErrInvalidPhone = errors.New("invalid_phone")
	ErrInvalidID    = errors.New("invalid_id")
	ErrPhoneExists  = errors.New("phone_exists")
	ErrNotFound     = errors.New("not_found")
)
