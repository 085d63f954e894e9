package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service appends and reads loyalty ledger entries. Append takes the
// caller's transaction handle so the entry lands atomically with the
// balance mutation it records.
type Service interface {
	// Append inserts an entry, generating its ID. It reports false when
	// an entry with the same (shop, account, operation) already exists,
	// in which case nothing was written.
	Append(ctx context.Context, tx *gorm.DB, entry *Entry) (bool, error)

	// Latest returns the newest entry of any of the given kinds for an
	// account, or nil.
	Latest(ctx context.Context, db *gorm.DB, shopID snowflake.ID, accountKind AccountKind, accountID snowflake.ID, kinds ...EntryKind) (*Entry, error)

	// ListForAccount returns entries newest first.
	ListForAccount(ctx context.Context, db *gorm.DB, shopID snowflake.ID, accountKind AccountKind, accountID snowflake.ID, limit int) ([]Entry, error)

	// DeriveBalance sums deltas for an account; used to cross-check the
	// stored balance, never to serve reads.
	DeriveBalance(ctx context.Context, db *gorm.DB, shopID snowflake.ID, accountKind AccountKind, accountID snowflake.ID) (int64, error)

	// EraseAccount removes every entry for an account. Only valid as
	// part of an explicit data deletion request.
	EraseAccount(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, accountKind AccountKind, accountID snowflake.ID) error
}

var (
	ErrInvalidShop        = errors.New("invalid_shop")
	ErrInvalidAccount     = errors.New("invalid_account")
	ErrInvalidKind        = errors.New("invalid_kind")
	ErrInvalidDelta       = errors.New("invalid_delta")
	ErrInvalidOperationID = errors.New("invalid_operation_id")
	ErrInvalidOccurredAt  = errors.New("invalid_occurred_at")
)
