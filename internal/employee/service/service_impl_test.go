package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	"github.com/digiget/digiget/internal/employee/domain"
	"github.com/digiget/digiget/internal/employee/repository"
	"github.com/digiget/digiget/internal/shopcontext"
)

func newTestService(t *testing.T, fake *clock.FakeClock) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Employee{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:     db,
		Repo:   repository.Provide(),
		GenID:  node,
		Clock:  fake,
		Config: &config.Config{PINValidityDays: 90},
		Log:    zap.NewNop(),
	})
}

func shopCtx(shopID snowflake.ID) context.Context {
	return shopcontext.WithShopID(context.Background(), shopID)
}

func TestCreateIssuesFourDigitPIN(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopCtx(100)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Name:       "Priya Shah",
		Email:      "priya@example.co.uk",
		HourlyRate: 12.50,
	})
	require.NoError(t, err)
	assert.Len(t, created.PIN, 4)
	assert.NotContains(t, created.Employee.PINHash, created.PIN)
	assert.Equal(t, fake.Now().AddDate(0, 0, 90), created.Employee.PINExpiresAt)
}

func TestVerifyPIN(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopCtx(100)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Priya Shah", Email: "priya@example.co.uk"})
	require.NoError(t, err)

	verified, err := svc.VerifyPIN(ctx, created.Employee.ID, created.PIN)
	require.NoError(t, err)
	assert.Equal(t, created.Employee.ID, verified.ID)

	_, err = svc.VerifyPIN(ctx, created.Employee.ID, "0000X")
	assert.ErrorIs(t, err, domain.ErrPINMismatch)
}

func TestVerifyPINExpired(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopCtx(100)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Priya Shah", Email: "priya@example.co.uk"})
	require.NoError(t, err)

	fake.Advance(91 * 24 * time.Hour)
	_, err = svc.VerifyPIN(ctx, created.Employee.ID, created.PIN)
	assert.ErrorIs(t, err, domain.ErrPINExpired)
}

func TestVerifyPINInactive(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopCtx(100)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Priya Shah", Email: "priya@example.co.uk"})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, created.Employee.ID))

	_, err = svc.VerifyPIN(ctx, created.Employee.ID, created.PIN)
	assert.ErrorIs(t, err, domain.ErrInactive)
}

func TestReissuePINRotatesCredential(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopCtx(100)

	created, err := svc.Create(ctx, domain.CreateRequest{Name: "Priya Shah", Email: "priya@example.co.uk"})
	require.NoError(t, err)

	fake.Advance(60 * 24 * time.Hour)
	reissued, err := svc.ReissuePIN(ctx, created.Employee.ID)
	require.NoError(t, err)
	assert.Equal(t, fake.Now().AddDate(0, 0, 90), reissued.Employee.PINExpiresAt)

	if reissued.PIN != created.PIN {
		_, err = svc.VerifyPIN(ctx, created.Employee.ID, created.PIN)
		assert.ErrorIs(t, err, domain.ErrPINMismatch)
	}
	_, err = svc.VerifyPIN(ctx, created.Employee.ID, reissued.PIN)
	assert.NoError(t, err)
}

func TestListScopedToShop(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	_, err := svc.Create(shopCtx(100), domain.CreateRequest{Name: "Priya Shah", Email: "priya@example.co.uk"})
	require.NoError(t, err)
	_, err = svc.Create(shopCtx(200), domain.CreateRequest{Name: "Tom Reed", Email: "tom@example.co.uk"})
	require.NoError(t, err)

	employees, err := svc.List(shopCtx(100), false)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Priya Shah", employees[0].Name)
}
