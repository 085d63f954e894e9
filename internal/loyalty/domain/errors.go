package domain

import "errors"

var (
	ErrInvalidShop         = errors.New("invalid_shop")
	ErrLocationUnavailable = errors.New("location_unavailable")
	ErrInvalidCoordinates  = errors.New("invalid_coordinates")
	ErrInsufficientPoints  = errors.New("insufficient_points")
	ErrInvalidOperationID  = errors.New("invalid_operation_id")
	ErrInvalidPoints       = errors.New("invalid_points")
	ErrVisitNotFound       = errors.New("visit_not_found")
	ErrVisitResolved       = errors.New("visit_already_resolved")
)
