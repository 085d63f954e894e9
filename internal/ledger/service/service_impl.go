package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
	obsmetrics "github.com/digiget/digiget/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, entry *ledgerdomain.Entry) (bool, error) {
	if entry == nil || entry.ShopID == 0 {
		return false, ledgerdomain.ErrInvalidShop
	}
	if entry.AccountID == 0 || !validAccountKind(entry.AccountKind) {
		return false, ledgerdomain.ErrInvalidAccount
	}
	if !validKind(entry.Kind) {
		return false, ledgerdomain.ErrInvalidKind
	}
	if entry.Delta == 0 {
		return false, ledgerdomain.ErrInvalidDelta
	}
	entry.OperationID = strings.TrimSpace(entry.OperationID)
	if entry.OperationID == "" {
		return false, ledgerdomain.ErrInvalidOperationID
	}
	if entry.OccurredAt.IsZero() {
		return false, ledgerdomain.ErrInvalidOccurredAt
	}

	entry.ID = s.genID.Generate()
	entry.CreatedAt = time.Now().UTC()

	result := tx.WithContext(ctx).Exec(
		`INSERT INTO loyalty_transactions (
			id, shop_id, account_kind, account_id, operation_id, kind, delta, balance_after, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (shop_id, account_kind, account_id, operation_id) DO NOTHING`,
		entry.ID,
		entry.ShopID,
		string(entry.AccountKind),
		entry.AccountID,
		entry.OperationID,
		string(entry.Kind),
		entry.Delta,
		entry.BalanceAfter,
		entry.OccurredAt.UTC(),
		entry.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		s.log.Debug("ledger entry deduplicated",
			zap.String("operation_id", entry.OperationID),
			zap.String("account_id", entry.AccountID.String()),
		)
		return false, nil
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerEntry(string(entry.Kind))
	}
	return true, nil
}

func (s *Service) Latest(ctx context.Context, db *gorm.DB, shopID snowflake.ID, accountKind ledgerdomain.AccountKind, accountID snowflake.ID, kinds ...ledgerdomain.EntryKind) (*ledgerdomain.Entry, error) {
	stmt := db.WithContext(ctx).
		Where("shop_id = ? AND account_kind = ? AND account_id = ?", shopID, accountKind, accountID)
	if len(kinds) > 0 {
		stmt = stmt.Where("kind IN ?", kinds)
	}

	var entry ledgerdomain.Entry
	err := stmt.Order("occurred_at desc, id desc").Limit(1).Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (s *Service) ListForAccount(ctx context.Context, db *gorm.DB, shopID snowflake.ID, accountKind ledgerdomain.AccountKind, accountID snowflake.ID, limit int) ([]ledgerdomain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []ledgerdomain.Entry
	err := db.WithContext(ctx).
		Where("shop_id = ? AND account_kind = ? AND account_id = ?", shopID, accountKind, accountID).
		Order("occurred_at desc, id desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *Service) DeriveBalance(ctx context.Context, db *gorm.DB, shopID snowflake.ID, accountKind ledgerdomain.AccountKind, accountID snowflake.ID) (int64, error) {
	var balance *int64
	err := db.WithContext(ctx).
		Model(&ledgerdomain.Entry{}).
		Select("SUM(delta)").
		Where("shop_id = ? AND account_kind = ? AND account_id = ?", shopID, accountKind, accountID).
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return *balance, nil
}

func (s *Service) EraseAccount(ctx context.Context, tx *gorm.DB, shopID snowflake.ID, accountKind ledgerdomain.AccountKind, accountID snowflake.ID) error {
	if shopID == 0 {
		return ledgerdomain.ErrInvalidShop
	}
	if accountID == 0 {
		return ledgerdomain.ErrInvalidAccount
	}
	return tx.WithContext(ctx).
		Where("shop_id = ? AND account_kind = ? AND account_id = ?", shopID, accountKind, accountID).
		Delete(&ledgerdomain.Entry{}).Error
}

func validKind(kind ledgerdomain.EntryKind) bool {
	switch kind {
	case ledgerdomain.KindPointAdded, ledgerdomain.KindRewardRedeemed, ledgerdomain.KindPointsAdjusted:
		return true
	default:
		return false
	}
}

func validAccountKind(kind ledgerdomain.AccountKind) bool {
	switch kind {
	case ledgerdomain.AccountCustomer, ledgerdomain.AccountEmployee:
		return true
	default:
		return false
	}
}
