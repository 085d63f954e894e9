package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/attendance/domain"
	"github.com/digiget/digiget/internal/audit"
	"github.com/digiget/digiget/internal/clock"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	"github.com/digiget/digiget/internal/geo"
	"github.com/digiget/digiget/internal/observability/metrics"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
	"github.com/digiget/digiget/internal/shopcontext"
	"github.com/digiget/digiget/pkg/db"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Employees employeedomain.Service
	Shops     shopdomain.Service
	Audit     *audit.Recorder
	GenID     *snowflake.Node
	Clock     clock.Clock
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

type service struct {
	db        *gorm.DB
	employees employeedomain.Service
	shops     shopdomain.Service
	audit     *audit.Recorder
	genID     *snowflake.Node
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:        p.DB,
		employees: p.Employees,
		shops:     p.Shops,
		audit:     p.Audit,
		genID:     p.GenID,
		clock:     p.Clock,
		log:       p.Log.Named("attendance.service"),
		metrics:   p.Metrics,
	}
}

func (s *service) ClockIn(ctx context.Context, req domain.ClockInRequest) (*domain.ClockInResult, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	if req.OperationID == "" {
		return nil, domain.ErrInvalidOperationID
	}
	if req.Fix == nil {
		return nil, domain.ErrLocationUnavailable
	}
	if !req.Fix.Valid() {
		return nil, domain.ErrInvalidCoordinates
	}

	employee, err := s.employees.VerifyPIN(ctx, req.EmployeeID, req.PIN)
	if err != nil {
		return nil, err
	}

	site, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	decision := geo.CheckWithinRadius(req.Fix, geo.Coordinate{
		Latitude:  site.Latitude,
		Longitude: site.Longitude,
	}, site.RadiusMeters)

	now := s.clock.Now().UTC()
	result := &domain.ClockInResult{
		DistanceMeters: decision.DistanceMeters,
		Message:        decision.Message,
	}

	err = db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		open, err := s.openEntry(ctx, tx, shopID, employee.ID)
		if err != nil {
			return err
		}
		if open != nil {
			if open.OperationID == req.OperationID {
				result.EntryID = open.ID
				result.Status = open.Status
				result.Duplicate = true
				return nil
			}
			return domain.ErrAlreadyClockedIn
		}

		entry := &domain.ClockEntry{
			ID:             s.genID.Generate(),
			ShopID:         shopID,
			EmployeeID:     employee.ID,
			OperationID:    req.OperationID,
			ClockInAt:      now,
			DistanceMeters: decision.DistanceMeters,
			Latitude:       req.Fix.Latitude,
			Longitude:      req.Fix.Longitude,
			AccuracyMeters: req.Fix.AccuracyMeters,
			CreatedAt:      now,
		}
		if decision.Within {
			entry.Status = domain.StatusApproved
			entry.ResolvedAt = &now
		} else {
			entry.Status = domain.StatusPending
		}

		if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				result.Duplicate = true
				return nil
			}
			return err
		}
		result.EntryID = entry.ID
		result.Status = entry.Status
		return nil
	})
	if err != nil {
		s.recordClockIn("rejected")
		return nil, err
	}

	s.recordClockIn(string(result.Status))
	s.log.Info("staff clock-in",
		zap.Int64("shop_id", shopID.Int64()),
		zap.Int64("employee_id", employee.ID.Int64()),
		zap.String("status", string(result.Status)),
		zap.Float64("distance_meters", result.DistanceMeters),
	)
	return result, nil
}

func (s *service) ClockOut(ctx context.Context, req domain.ClockOutRequest) (*domain.ClockEntry, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	employee, err := s.employees.VerifyPIN(ctx, req.EmployeeID, req.PIN)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var closed *domain.ClockEntry
	err = db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		open, err := s.openEntry(ctx, tx, shopID, employee.ID)
		if err != nil {
			return err
		}
		if open == nil {
			return domain.ErrNotClockedIn
		}

		open.ClockOutAt = &now
		if err := tx.WithContext(ctx).Save(open).Error; err != nil {
			return err
		}
		closed = open
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *service) ApproveEntry(ctx context.Context, entryID, approverID snowflake.ID) error {
	return s.resolveEntry(ctx, entryID, approverID, domain.StatusApproved, audit.ActionShiftApproved)
}

func (s *service) RejectEntry(ctx context.Context, entryID, approverID snowflake.ID) error {
	return s.resolveEntry(ctx, entryID, approverID, domain.StatusRejected, audit.ActionShiftRejected)
}

func (s *service) resolveEntry(ctx context.Context, entryID, approverID snowflake.ID, status domain.EntryStatus, action string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidShop
	}

	now := s.clock.Now().UTC()
	return db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		var entry domain.ClockEntry
		if err := tx.WithContext(ctx).
			Where("shop_id = ? AND id = ?", shopID, entryID).
			Limit(1).
			Find(&entry).Error; err != nil {
			return err
		}
		if entry.ID == 0 {
			return domain.ErrEntryNotFound
		}
		if entry.Status != domain.StatusPending {
			return domain.ErrEntryResolved
		}

		entry.Status = status
		entry.ResolvedBy = approverID
		entry.ResolvedAt = &now
		if err := tx.WithContext(ctx).Save(&entry).Error; err != nil {
			return err
		}

		s.audit.Record(ctx, tx, &audit.Log{
			ShopID:     shopID,
			ActorID:    approverID,
			Action:     action,
			TargetKind: "clock_entry",
			TargetID:   entry.ID,
			CreatedAt:  now,
		})
		return nil
	})
}

func (s *service) OpenEntry(ctx context.Context, employeeID snowflake.ID) (*domain.ClockEntry, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	return s.openEntry(ctx, s.db, shopID, employeeID)
}

func (s *service) ListEntries(ctx context.Context, employeeID snowflake.ID, from, to time.Time) ([]domain.ClockEntry, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	query := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Where("clock_in_at >= ? AND clock_in_at < ?", from, to)
	if employeeID != 0 {
		query = query.Where("employee_id = ?", employeeID)
	}

	var entries []domain.ClockEntry
	err := query.Order("clock_in_at asc").Find(&entries).Error
	return entries, err
}

func (s *service) openEntry(ctx context.Context, tx *gorm.DB, shopID, employeeID snowflake.ID) (*domain.ClockEntry, error) {
	var entry domain.ClockEntry
	if err := tx.WithContext(ctx).
		Where("shop_id = ? AND employee_id = ? AND clock_out_at IS NULL AND status <> ?", shopID, employeeID, domain.StatusRejected).
		Order("clock_in_at desc").
		Limit(1).
		Find(&entry).Error; err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (s *service) recordClockIn(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCheckIn("employee", outcome)
	}
}
