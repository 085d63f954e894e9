package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/audit"
	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/cooldown"
	customerdomain "github.com/digiget/digiget/internal/customer/domain"
	"github.com/digiget/digiget/internal/geo"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
	"github.com/digiget/digiget/internal/liveevents"
	"github.com/digiget/digiget/internal/loyalty/domain"
	"github.com/digiget/digiget/internal/observability/logger"
	"github.com/digiget/digiget/internal/observability/metrics"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
	"github.com/digiget/digiget/internal/shopcontext"
	"github.com/digiget/digiget/pkg/db"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Customers   customerdomain.Repository
	Ledger      ledgerdomain.Service
	Shops       shopdomain.Service
	Relaxations *cooldown.Store
	Audit       *audit.Recorder
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      *config.Config
	Log         *zap.Logger
	Hub         *liveevents.Hub  `optional:"true"`
	Locker      *redislock.Client `optional:"true"`
	Metrics     *metrics.Metrics  `optional:"true"`
}

type service struct {
	db          *gorm.DB
	customers   customerdomain.Repository
	ledger      ledgerdomain.Service
	shops       shopdomain.Service
	relaxations *cooldown.Store
	audit       *audit.Recorder
	genID       *snowflake.Node
	clock       clock.Clock
	cfg         *config.Config
	log         *zap.Logger
	hub         *liveevents.Hub
	locker      *redislock.Client
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		customers:   p.Customers,
		ledger:      p.Ledger,
		shops:       p.Shops,
		relaxations: p.Relaxations,
		audit:       p.Audit,
		genID:       p.GenID,
		clock:       p.Clock,
		cfg:         p.Config,
		log:         p.Log.Named("loyalty.service"),
		hub:         p.Hub,
		locker:      p.Locker,
		metrics:     p.Metrics,
	}
}

func (s *service) CheckIn(ctx context.Context, req domain.CheckInRequest) (*domain.CheckInResult, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	operationID := strings.TrimSpace(req.OperationID)
	if operationID == "" {
		return nil, domain.ErrInvalidOperationID
	}
	if req.Fix == nil {
		return nil, domain.ErrLocationUnavailable
	}

	site, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !req.Fix.Valid() {
		return nil, domain.ErrInvalidCoordinates
	}

	decision := geo.CheckWithinRadius(req.Fix, geo.Coordinate{
		Latitude:  site.Latitude,
		Longitude: site.Longitude,
	}, site.CustomerRadiusMeters)

	release := s.obtainLock(ctx, shopID, req.CustomerID)
	defer release()

	now := s.clock.Now().UTC()
	result := &domain.CheckInResult{
		DistanceMeters: decision.DistanceMeters,
		Message:        decision.Message,
	}

	err = db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		customer, err := s.customers.FindByIDForUpdate(ctx, tx, shopID, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}

		// The cooldown is measured against the latest committed entry,
		// inside the row lock, so two concurrent check-ins cannot both
		// pass the read-then-decide gate.
		latest, err := s.ledger.Latest(ctx, tx, shopID, ledgerdomain.AccountCustomer, customer.ID, ledgerdomain.KindPointAdded)
		if err != nil {
			return err
		}
		if latest != nil && latest.OperationID == operationID {
			result.Status = domain.VisitApproved
			result.Duplicate = true
			result.NewBalance = customer.CurrentPoints
			return nil
		}
		if err := s.enforceCooldown(ctx, tx, shopID, customer.ID,
			cooldown.PolicyPointEarn, s.cfg.PointCooldownMinutes, now, latest); err != nil {
			return err
		}

		visit := &domain.Visit{
			ID:             s.genID.Generate(),
			ShopID:         shopID,
			CustomerID:     customer.ID,
			DistanceMeters: decision.DistanceMeters,
			Latitude:       req.Fix.Latitude,
			Longitude:      req.Fix.Longitude,
			AccuracyMeters: req.Fix.AccuracyMeters,
			OperationID:    operationID,
			CreatedAt:      now,
		}

		if !decision.Within {
			visit.Status = domain.VisitPending
			if err := tx.WithContext(ctx).Create(visit).Error; err != nil {
				return err
			}
			result.Status = domain.VisitPending
			result.NewBalance = customer.CurrentPoints
			result.VisitID = visit.ID
			return nil
		}

		awarded, err := s.awardPoint(ctx, tx, customer, operationID, now)
		if err != nil {
			return err
		}
		if !awarded {
			result.Status = domain.VisitApproved
			result.Duplicate = true
			result.NewBalance = customer.CurrentPoints
			return nil
		}

		visit.Status = domain.VisitApproved
		visit.ResolvedAt = &now
		if err := tx.WithContext(ctx).Create(visit).Error; err != nil {
			return err
		}
		result.Status = domain.VisitApproved
		result.NewBalance = customer.CurrentPoints
		result.VisitID = visit.ID
		return nil
	})
	if err != nil {
		s.recordCheckIn("customer", "rejected")
		return nil, err
	}

	s.recordCheckIn("customer", string(result.Status))
	if result.Status == domain.VisitApproved && !result.Duplicate {
		s.publish(liveevents.BalanceEvent{
			ShopID:       shopID,
			AccountKind:  string(ledgerdomain.AccountCustomer),
			AccountID:    req.CustomerID,
			Kind:         string(ledgerdomain.KindPointAdded),
			Delta:        1,
			BalanceAfter: result.NewBalance,
			OccurredAt:   now,
		})
	}
	return result, nil
}

func (s *service) Redeem(ctx context.Context, req domain.RedeemRequest) (*domain.RedeemResult, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	operationID := strings.TrimSpace(req.OperationID)
	if operationID == "" {
		return nil, domain.ErrInvalidOperationID
	}
	if req.PointsNeeded <= 0 {
		return nil, domain.ErrInvalidPoints
	}

	release := s.obtainLock(ctx, shopID, req.CustomerID)
	defer release()

	now := s.clock.Now().UTC()
	result := &domain.RedeemResult{}

	err := db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		customer, err := s.customers.FindByIDForUpdate(ctx, tx, shopID, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		if customer.CurrentPoints < req.PointsNeeded {
			return domain.ErrInsufficientPoints
		}

		latest, err := s.ledger.Latest(ctx, tx, shopID, ledgerdomain.AccountCustomer, customer.ID, ledgerdomain.KindRewardRedeemed)
		if err != nil {
			return err
		}
		if latest != nil && latest.OperationID == operationID {
			result.Duplicate = true
			result.NewBalance = customer.CurrentPoints
			result.RewardsRedeemed = customer.RewardsRedeemed
			return nil
		}
		if err := s.enforceCooldown(ctx, tx, shopID, customer.ID,
			cooldown.PolicyRedemption, s.cfg.RedemptionCooldownMinutes, now, latest); err != nil {
			return err
		}

		// Redemption zeroes the balance; the entry records the reward
		// cost, so the stored balance is authoritative, not the delta sum.
		inserted, err := s.ledger.Append(ctx, tx, &ledgerdomain.Entry{
			ShopID:       shopID,
			AccountKind:  ledgerdomain.AccountCustomer,
			AccountID:    customer.ID,
			OperationID:  operationID,
			Kind:         ledgerdomain.KindRewardRedeemed,
			Delta:        -req.PointsNeeded,
			BalanceAfter: 0,
			OccurredAt:   now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			result.Duplicate = true
			result.NewBalance = customer.CurrentPoints
			result.RewardsRedeemed = customer.RewardsRedeemed
			return nil
		}

		customer.CurrentPoints = 0
		customer.RewardsRedeemed++
		customer.UpdatedAt = now
		if err := s.customers.Save(ctx, tx, customer); err != nil {
			return err
		}

		result.NewBalance = customer.CurrentPoints
		result.RewardsRedeemed = customer.RewardsRedeemed
		return nil
	})
	if err != nil {
		s.recordRedemption("rejected")
		return nil, err
	}

	s.recordRedemption("redeemed")
	if !result.Duplicate {
		s.publish(liveevents.BalanceEvent{
			ShopID:       shopID,
			AccountKind:  string(ledgerdomain.AccountCustomer),
			AccountID:    req.CustomerID,
			Kind:         string(ledgerdomain.KindRewardRedeemed),
			Delta:        -req.PointsNeeded,
			BalanceAfter: result.NewBalance,
			OccurredAt:   now,
		})
	}
	return result, nil
}

func (s *service) AdjustPoints(ctx context.Context, req domain.AdjustRequest) (*domain.AdjustResult, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	operationID := strings.TrimSpace(req.OperationID)
	if operationID == "" {
		return nil, domain.ErrInvalidOperationID
	}
	if req.Delta == 0 {
		return nil, domain.ErrInvalidPoints
	}

	release := s.obtainLock(ctx, shopID, req.CustomerID)
	defer release()

	now := s.clock.Now().UTC()
	result := &domain.AdjustResult{}

	err := db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		customer, err := s.customers.FindByIDForUpdate(ctx, tx, shopID, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}

		newBalance := customer.CurrentPoints + req.Delta
		if newBalance < 0 {
			return domain.ErrInsufficientPoints
		}

		inserted, err := s.ledger.Append(ctx, tx, &ledgerdomain.Entry{
			ShopID:       shopID,
			AccountKind:  ledgerdomain.AccountCustomer,
			AccountID:    customer.ID,
			OperationID:  operationID,
			Kind:         ledgerdomain.KindPointsAdjusted,
			Delta:        req.Delta,
			BalanceAfter: newBalance,
			OccurredAt:   now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			result.Duplicate = true
			result.NewBalance = customer.CurrentPoints
			return nil
		}

		customer.CurrentPoints = newBalance
		if req.Delta > 0 {
			customer.LifetimePoints += req.Delta
		}
		customer.UpdatedAt = now
		if err := s.customers.Save(ctx, tx, customer); err != nil {
			return err
		}

		s.audit.Record(ctx, tx, &audit.Log{
			ShopID:     shopID,
			ActorID:    req.ActorID,
			Action:     audit.ActionPointsAdjusted,
			TargetKind: "customer",
			TargetID:   customer.ID,
			Detail: datatypes.JSONMap{
				"delta":  req.Delta,
				"reason": req.Reason,
			},
			CreatedAt: now,
		})

		result.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		s.publish(liveevents.BalanceEvent{
			ShopID:       shopID,
			AccountKind:  string(ledgerdomain.AccountCustomer),
			AccountID:    req.CustomerID,
			Kind:         string(ledgerdomain.KindPointsAdjusted),
			Delta:        req.Delta,
			BalanceAfter: result.NewBalance,
			OccurredAt:   now,
		})
	}
	return result, nil
}

func (s *service) ApproveVisit(ctx context.Context, visitID, approverID snowflake.ID) (*domain.CheckInResult, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	now := s.clock.Now().UTC()
	result := &domain.CheckInResult{Status: domain.VisitApproved}
	var customerID snowflake.ID

	err := db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		visit, err := s.findVisit(ctx, tx, shopID, visitID)
		if err != nil {
			return err
		}
		if visit.Status != domain.VisitPending {
			return domain.ErrVisitResolved
		}

		customer, err := s.customers.FindByIDForUpdate(ctx, tx, shopID, visit.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		customerID = customer.ID

		// The visit's own operation id keys the award, so a retried
		// approval cannot grant a second point.
		awarded, err := s.awardPoint(ctx, tx, customer, visit.OperationID, now)
		if err != nil {
			return err
		}
		result.Duplicate = !awarded
		result.NewBalance = customer.CurrentPoints
		result.DistanceMeters = visit.DistanceMeters
		result.VisitID = visit.ID

		visit.Status = domain.VisitApproved
		visit.ResolvedBy = approverID
		visit.ResolvedAt = &now
		if err := tx.WithContext(ctx).Save(visit).Error; err != nil {
			return err
		}

		s.audit.Record(ctx, tx, &audit.Log{
			ShopID:     shopID,
			ActorID:    approverID,
			Action:     audit.ActionVisitApproved,
			TargetKind: "visit",
			TargetID:   visit.ID,
			Detail: datatypes.JSONMap{
				"customer_id":     visit.CustomerID.String(),
				"distance_meters": visit.DistanceMeters,
			},
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		s.publish(liveevents.BalanceEvent{
			ShopID:       shopID,
			AccountKind:  string(ledgerdomain.AccountCustomer),
			AccountID:    customerID,
			Kind:         string(ledgerdomain.KindPointAdded),
			Delta:        1,
			BalanceAfter: result.NewBalance,
			OccurredAt:   now,
		})
	}
	return result, nil
}

func (s *service) RejectVisit(ctx context.Context, visitID, approverID snowflake.ID) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidShop
	}

	now := s.clock.Now().UTC()
	return db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		visit, err := s.findVisit(ctx, tx, shopID, visitID)
		if err != nil {
			return err
		}
		if visit.Status != domain.VisitPending {
			return domain.ErrVisitResolved
		}

		visit.Status = domain.VisitRejected
		visit.ResolvedBy = approverID
		visit.ResolvedAt = &now
		if err := tx.WithContext(ctx).Save(visit).Error; err != nil {
			return err
		}

		s.audit.Record(ctx, tx, &audit.Log{
			ShopID:     shopID,
			ActorID:    approverID,
			Action:     audit.ActionVisitRejected,
			TargetKind: "visit",
			TargetID:   visit.ID,
			CreatedAt:  now,
		})
		return nil
	})
}

func (s *service) ListVisits(ctx context.Context, status domain.VisitStatus, limit int) ([]domain.Visit, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	if limit <= 0 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var visits []domain.Visit
	err := query.Order("created_at desc").Limit(limit).Find(&visits).Error
	return visits, err
}

func (s *service) GrantRelaxation(ctx context.Context, customerID, actorID snowflake.ID, policy string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidShop
	}

	kind := cooldown.PolicyKind(policy)
	switch kind {
	case cooldown.PolicyPointEarn, cooldown.PolicyRedemption, cooldown.PolicyRatingEdit:
	default:
		return fmt.Errorf("unknown_policy_kind: %s", policy)
	}

	now := s.clock.Now().UTC()
	return db.TenantTransaction(ctx, s.db, shopID, func(tx *gorm.DB) error {
		if err := s.relaxations.Grant(ctx, tx, &cooldown.Relaxation{
			ID:          s.genID.Generate(),
			ShopID:      shopID,
			AccountKind: cooldown.AccountCustomer,
			AccountID:   customerID,
			PolicyKind:  kind,
			GrantedBy:   actorID,
			GrantedAt:   now,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		s.audit.Record(ctx, tx, &audit.Log{
			ShopID:     shopID,
			ActorID:    actorID,
			Action:     audit.ActionRelaxationGranted,
			TargetKind: "customer",
			TargetID:   customerID,
			Detail:     datatypes.JSONMap{"policy": policy},
			CreatedAt:  now,
		})
		return nil
	})
}

// enforceCooldown fails with CooldownActiveError when the account is
// still inside the window for the given policy, unless an unconsumed
// relaxation grant exists, which is consumed on the spot.
func (s *service) enforceCooldown(ctx context.Context, tx *gorm.DB, shopID, accountID snowflake.ID, policy cooldown.PolicyKind, windowMinutes int, now time.Time, latest *ledgerdomain.Entry) error {
	var lastAt *time.Time
	if latest != nil {
		lastAt = &latest.OccurredAt
	}
	remaining := cooldown.RemainingMinutes(lastAt, windowMinutes, now)
	if remaining == 0 {
		return nil
	}

	grant, err := s.relaxations.FindActive(ctx, tx, shopID, cooldown.AccountCustomer, accountID, policy, now)
	if err != nil {
		return err
	}
	if grant != nil {
		consumed, err := s.relaxations.Consume(ctx, tx, grant.ID, now)
		if err != nil {
			return err
		}
		if consumed {
			logger.FromContext(ctx).Info("cooldown bypassed by relaxation",
				zap.Int64("account_id", accountID.Int64()),
				zap.String("policy", string(policy)),
			)
			return nil
		}
	}
	return &cooldown.ActiveError{RemainingMinutes: remaining}
}

// awardPoint applies the one-point award atomically: currentPoints,
// lifetimePoints and totalVisits move together with the ledger entry.
// It reports false when the operation id was already applied.
func (s *service) awardPoint(ctx context.Context, tx *gorm.DB, customer *customerdomain.Customer, operationID string, now time.Time) (bool, error) {
	newBalance := customer.CurrentPoints + 1
	inserted, err := s.ledger.Append(ctx, tx, &ledgerdomain.Entry{
		ShopID:       customer.ShopID,
		AccountKind:  ledgerdomain.AccountCustomer,
		AccountID:    customer.ID,
		OperationID:  operationID,
		Kind:         ledgerdomain.KindPointAdded,
		Delta:        1,
		BalanceAfter: newBalance,
		OccurredAt:   now,
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	customer.CurrentPoints = newBalance
	customer.LifetimePoints++
	customer.TotalVisits++
	customer.UpdatedAt = now
	if err := s.customers.Save(ctx, tx, customer); err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) findVisit(ctx context.Context, tx *gorm.DB, shopID, visitID snowflake.ID) (*domain.Visit, error) {
	var visit domain.Visit
	if err := tx.WithContext(ctx).
		Where("shop_id = ? AND id = ?", shopID, visitID).
		Limit(1).
		Find(&visit).Error; err != nil {
		return nil, err
	}
	if visit.ID == 0 {
		return nil, domain.ErrVisitNotFound
	}
	return &visit, nil
}

// obtainLock takes a short advisory lock per account when Redis is
// available. The row lock inside the transaction is the real guarantee;
// this only spares the database contention from stampeding retries.
func (s *service) obtainLock(ctx context.Context, shopID, customerID snowflake.ID) func() {
	if s.locker == nil {
		return func() {}
	}
	key := fmt.Sprintf("loyalty:%d:%d", shopID, customerID)
	lock, err := s.locker.Obtain(ctx, key, 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err != nil {
		return func() {}
	}
	return func() { _ = lock.Release(context.WithoutCancel(ctx)) }
}

func (s *service) publish(event liveevents.BalanceEvent) {
	if s.metrics != nil {
		s.metrics.RecordLedgerEntry(event.Kind)
	}
	if s.hub != nil {
		s.hub.Publish(event)
	}
}

func (s *service) recordCheckIn(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordCheckIn(kind, outcome)
	}
}

func (s *service) recordRedemption(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRedemption(outcome)
	}
}
