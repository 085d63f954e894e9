// Package scheduler runs the background sweeps that keep derived state
// honest: expiring flash offers, pruning spent cooldown bypasses,
// warning staff about PINs that are about to lapse and nudging owners
// about last week's payroll.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/digiget/digiget/internal/auth/domain"
	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/cooldown"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	"github.com/digiget/digiget/internal/observability/metrics"
	offerdomain "github.com/digiget/digiget/internal/offer/domain"
	"github.com/digiget/digiget/internal/payroll"
	email "github.com/digiget/digiget/internal/providers/email"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
	"github.com/digiget/digiget/internal/shopcontext"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Offers      offerdomain.Service
	Employees   employeedomain.Repository
	Relaxations *cooldown.Store
	Payroll     payroll.Service
	Clock       clock.Clock
	Email       email.Provider   `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
	Config      Config           `optional:"true"`
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	offers      offerdomain.Service
	employees   employeedomain.Repository
	relaxations *cooldown.Store
	payroll     payroll.Service
	email       email.Provider
	metrics     *metrics.Metrics

	lastDaily  time.Time
	lastWeekly time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Offers == nil || p.Employees == nil || p.Relaxations == nil || p.Payroll == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler"),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		offers:      p.Offers,
		employees:   p.Employees,
		relaxations: p.Relaxations,
		payroll:     p.Payroll,
		email:       p.Email,
		metrics:     p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	s.metrics.RecordJobRun(name)
	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}

	s.metrics.RecordJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
		)
		return nil
	}
	s.log.Warn("job failed", zap.String("job", name), zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every job that is due at the current tick. Frequent
// jobs run on each call; the daily and weekly jobs gate themselves on
// the calendar so restarts never double-send reminder emails within a
// day.
func (s *Scheduler) RunOnce(parent context.Context) error {
	now := s.clock.Now()
	var err error

	err = errors.Join(err, s.runJob(parent, "expire_offers", s.expireOffersJob))

	if !sameDay(s.lastDaily, now) {
		s.lastDaily = now
		err = errors.Join(err, s.runJob(parent, "prune_relaxations", s.pruneRelaxationsJob))
		err = errors.Join(err, s.runJob(parent, "pin_reminders", s.pinRemindersJob))
	}

	if now.Weekday() == s.cfg.PayrollReminderDay && !sameDay(s.lastWeekly, now) {
		s.lastWeekly = now
		err = errors.Join(err, s.runJob(parent, "payroll_reminders", s.payrollRemindersJob))
	}

	return err
}

// RunForever loops RunOnce until the context is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) expireOffersJob(ctx context.Context) error {
	swept, err := s.offers.ExpireDue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if swept > 0 {
		s.log.Info("expired offers", zap.Int64("count", swept))
	}
	return nil
}

func (s *Scheduler) pruneRelaxationsJob(ctx context.Context) error {
	pruned, err := s.relaxations.Prune(ctx, s.db, s.clock.Now(), s.cfg.RelaxationRetention)
	if err != nil {
		return err
	}
	if pruned > 0 {
		s.log.Info("pruned cooldown relaxations", zap.Int64("count", pruned))
	}
	return nil
}

// pinRemindersJob emails active staff whose PIN lapses inside the
// reminder window. It repeats daily until the PIN is reissued.
func (s *Scheduler) pinRemindersJob(ctx context.Context) error {
	if s.email == nil {
		return nil
	}
	now := s.clock.Now()
	expiring, err := s.employees.ListPINExpiring(ctx, s.db, now.Add(s.cfg.PINReminderWindow))
	if err != nil {
		return err
	}
	if len(expiring) == 0 {
		return nil
	}

	names, err := s.shopNames(ctx, expiring)
	if err != nil {
		return err
	}

	var jobErr error
	for _, employee := range expiring {
		data := map[string]any{
			"name":       employee.Name,
			"shop_name":  names[employee.ShopID],
			"expires_at": employee.PINExpiresAt.Format("2 January 2006"),
		}
		if err := s.email.SendTemplate(ctx, []string{employee.Email}, "pin_expiry", data); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Warn("pin reminder email failed",
				zap.String("employee_id", employee.ID.String()),
				zap.Error(err),
			)
		}
	}
	return jobErr
}

// payrollRemindersJob emails each owner whose shop had shifts last week
// that the payroll summary is ready. The period is the seven days
// ending at the most recent reminder-day midnight.
func (s *Scheduler) payrollRemindersJob(ctx context.Context) error {
	if s.email == nil {
		return nil
	}
	now := s.clock.Now()
	to := startOfDay(now)
	from := to.AddDate(0, 0, -7)

	var shops []shopdomain.Shop
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&shops).Error; err != nil {
		return err
	}

	var jobErr error
	for _, shop := range shops {
		shopCtx := shopcontext.WithShopID(ctx, shop.ID)
		report, err := s.payroll.Summarize(shopCtx, from, to)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		if len(report.Rows) == 0 {
			continue
		}

		var owner authdomain.User
		if err := s.db.WithContext(ctx).
			Where("id = ?", shop.OwnerUserID).
			Limit(1).
			Find(&owner).Error; err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		if owner.ID == 0 {
			continue
		}

		name := owner.DisplayName
		if name == "" {
			name = owner.Email
		}
		data := map[string]any{
			"name":      name,
			"shop_name": shop.Name,
			"period":    fmt.Sprintf("%s to %s", from.Format("2 January"), to.AddDate(0, 0, -1).Format("2 January 2006")),
		}
		if err := s.email.SendTemplate(ctx, []string{owner.Email}, "payroll_reminder", data); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Warn("payroll reminder email failed",
				zap.String("shop_id", shop.ID.String()),
				zap.Error(err),
			)
		}
	}
	return jobErr
}

func (s *Scheduler) shopNames(ctx context.Context, employees []employeedomain.Employee) (map[snowflake.ID]string, error) {
	ids := make([]snowflake.ID, 0, len(employees))
	seen := make(map[snowflake.ID]struct{}, len(employees))
	for _, employee := range employees {
		if _, ok := seen[employee.ShopID]; ok {
			continue
		}
		seen[employee.ShopID] = struct{}{}
		ids = append(ids, employee.ShopID)
	}

	var shops []shopdomain.Shop
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&shops).Error; err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(shops))
	for _, shop := range shops {
		names[shop.ID] = shop.Name
	}
	return names, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
