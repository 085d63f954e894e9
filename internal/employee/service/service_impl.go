package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/employee/domain"
	"github.com/digiget/digiget/internal/observability/logger"
	"github.com/digiget/digiget/internal/providers/email"
	"github.com/digiget/digiget/internal/shopcontext"
	"github.com/digiget/digiget/pkg/db"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Repo   domain.Repository
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config *config.Config
	Log    *zap.Logger
	Email  email.Provider `optional:"true"`
}

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
	cfg   *config.Config
	log   *zap.Logger
	email email.Provider
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
		cfg:   p.Config,
		log:   p.Log.Named("employee.service"),
		email: p.Email,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Created, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	address := strings.TrimSpace(strings.ToLower(req.Email))
	if address == "" || !strings.Contains(address, "@") {
		return nil, domain.ErrInvalidEmail
	}

	pin, hash, err := s.issuePIN()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	employee := &domain.Employee{
		ID:           s.genID.Generate(),
		ShopID:       shopID,
		Name:         name,
		Email:        address,
		Phone:        strings.TrimSpace(req.Phone),
		HourlyRate:   req.HourlyRate,
		PINHash:      hash,
		PINExpiresAt: now.AddDate(0, 0, s.cfg.PINValidityDays),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, employee); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}

	s.deliverPIN(ctx, employee, pin)
	s.log.Info("employee created",
		zap.Int64("shop_id", shopID.Int64()),
		zap.Int64("employee_id", employee.ID.Int64()),
	)
	return &domain.Created{Employee: employee, PIN: pin}, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Employee, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	employee, err := s.repo.FindByID(ctx, s.db, shopID, id)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, domain.ErrNotFound
	}
	return employee, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidShop
	}
	return s.repo.ListByShop(ctx, s.db, shopID, activeOnly)
}

func (s *service) VerifyPIN(ctx context.Context, id snowflake.ID, pin string) (*domain.Employee, error) {
	employee, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !employee.Active {
		return nil, domain.ErrInactive
	}
	if !s.clock.Now().Before(employee.PINExpiresAt) {
		return nil, domain.ErrPINExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(employee.PINHash), []byte(pin)); err != nil {
		return nil, domain.ErrPINMismatch
	}
	return employee, nil
}

func (s *service) ReissuePIN(ctx context.Context, id snowflake.ID) (*domain.Created, error) {
	employee, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !employee.Active {
		return nil, domain.ErrInactive
	}

	pin, hash, err := s.issuePIN()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	employee.PINHash = hash
	employee.PINExpiresAt = now.AddDate(0, 0, s.cfg.PINValidityDays)
	employee.UpdatedAt = now
	if err := s.repo.Save(ctx, s.db, employee); err != nil {
		return nil, err
	}

	s.deliverPIN(ctx, employee, pin)
	return &domain.Created{Employee: employee, PIN: pin}, nil
}

func (s *service) Deactivate(ctx context.Context, id snowflake.ID) error {
	employee, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	employee.Active = false
	employee.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Save(ctx, s.db, employee)
}

// issuePIN generates a random 4-digit PIN and its bcrypt hash. Leading
// zeros are preserved.
func (s *service) issuePIN() (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", "", err
	}
	pin := fmt.Sprintf("%04d", n.Int64())
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return pin, string(hash), nil
}

func (s *service) deliverPIN(ctx context.Context, employee *domain.Employee, pin string) {
	if s.email == nil {
		return
	}
	data := map[string]interface{}{
		"Name":      employee.Name,
		"PIN":       pin,
		"ExpiresAt": employee.PINExpiresAt.Format("2 January 2006"),
	}
	if err := s.email.SendTemplate(ctx, []string{employee.Email}, "pin_delivery", data); err != nil {
		logger.FromContext(ctx).Warn("pin email delivery failed",
			zap.Int64("employee_id", employee.ID.Int64()),
			zap.Error(err),
		)
	}
}
