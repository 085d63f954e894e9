package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/digiget/digiget/internal/geo"
)

var (
	ErrInvalidShop         = errors.New("invalid_shop")
	ErrInvalidOperationID  = errors.New("invalid_operation_id")
	ErrLocationUnavailable = errors.New("location_unavailable")
	ErrInvalidCoordinates  = errors.New("invalid_coordinates")
	ErrAlreadyClockedIn    = errors.New("already_clocked_in")
	ErrNotClockedIn        = errors.New("not_clocked_in")
	ErrEntryNotFound       = errors.New("clock_entry_not_found")
	ErrEntryResolved       = errors.New("clock_entry_already_resolved")
)

type ClockInRequest struct {
	EmployeeID  snowflake.ID `json:"employee_id"`
	PIN         string       `json:"pin"`
	OperationID string       `json:"operation_id"`
	Fix         *geo.Fix     `json:"fix"`
}

type ClockInResult struct {
	EntryID        snowflake.ID `json:"entry_id"`
	Status         EntryStatus  `json:"status"`
	DistanceMeters float64      `json:"distance_meters"`
	Message        string       `json:"message,omitempty"`
	Duplicate      bool         `json:"duplicate,omitempty"`
}

type ClockOutRequest struct {
	EmployeeID snowflake.ID `json:"employee_id"`
	PIN        string       `json:"pin"`
	Fix        *geo.Fix     `json:"fix"`
}

// Service handles staff shift tracking. Clock-in is PIN-authenticated
// and proximity-gated against the shop's configured staff radius;
// out-of-radius clock-ins are recorded as pending for owner review.
type Service interface {
	ClockIn(ctx context.Context, req ClockInRequest) (*ClockInResult, error)
	ClockOut(ctx context.Context, req ClockOutRequest) (*ClockEntry, error)
	ApproveEntry(ctx context.Context, entryID, approverID snowflake.ID) error
	RejectEntry(ctx context.Context, entryID, approverID snowflake.ID) error
	OpenEntry(ctx context.Context, employeeID snowflake.ID) (*ClockEntry, error)
	ListEntries(ctx context.Context, employeeID snowflake.ID, from, to time.Time) ([]ClockEntry, error)
}
