package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/digiget/digiget/internal/customer/domain"
	ledgerdomain "github.com/digiget/digiget/internal/ledger/domain"
	"github.com/digiget/digiget/internal/providers/email"
	"github.com/digiget/digiget/internal/shopcontext"
	pkgdb "github.com/digiget/digiget/pkg/db"
	"github.com/digiget/digiget/pkg/db/pagination"
	"github.com/digiget/digiget/pkg/phone"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	LedgerSvc ledgerdomain.Service
	Email     email.Provider `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	ledgerSvc ledgerdomain.Service
	email     email.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("customer.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		ledgerSvc: p.LedgerSvc,
		email:     p.Email,
	}
}

func (s *Service) Enroll(ctx context.Context, req domain.EnrollCustomerRequest) (domain.Customer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return domain.Customer{}, domain.ErrInvalidShop
	}

	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		return domain.Customer{}, domain.ErrInvalidPhone
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		ShopID:    shopID,
		Phone:     normalized,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrPhoneExists
		}
		return domain.Customer{}, err
	}

	if s.email != nil && strings.Contains(req.Email, "@") {
		if err := s.email.SendTemplate(ctx, []string{strings.TrimSpace(req.Email)}, "welcome", map[string]any{
			"name": customer.Name,
		}); err != nil {
			s.log.Warn("welcome email failed", zap.Error(err))
		}
	}

	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return domain.Customer{}, domain.ErrInvalidShop
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, shopID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) LookupByPhone(ctx context.Context, req domain.LookupByPhoneRequest) (domain.Customer, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return domain.Customer{}, domain.ErrInvalidShop
	}

	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		return domain.Customer{}, domain.ErrInvalidPhone
	}

	item, err := s.repo.FindByPhone(ctx, s.db, shopID, normalized)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return domain.ListCustomerResponse{}, domain.ErrInvalidShop
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	limit := page.Limit()
	afterID, err := page.Cursor()
	if err != nil {
		return domain.ListCustomerResponse{}, domain.ErrInvalidID
	}

	items, err := s.repo.List(ctx, s.db, shopID, limit+1, afterID)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	resp := domain.ListCustomerResponse{}
	items, resp.NextPageToken = pagination.NextToken(items, limit, func(c *domain.Customer) snowflake.ID {
		return c.ID
	})
	resp.Customers = make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Customers = append(resp.Customers, *item)
	}
	return resp, nil
}

func (s *Service) DeleteData(ctx context.Context, req domain.GetCustomerRequest) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return domain.ErrInvalidShop
	}

	id, err := parseID(req.ID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, shopID, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if err := s.ledgerSvc.EraseAccount(ctx, tx, shopID, ledgerdomain.AccountCustomer, id); err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM customer_visits WHERE shop_id = ? AND customer_id = ?`, shopID, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM ratings WHERE shop_id = ? AND customer_id = ?`, shopID, id).Error; err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, shopID, id)
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
