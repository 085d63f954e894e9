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
	"github.com/digiget/digiget/internal/offer/domain"
	"github.com/digiget/digiget/internal/shopcontext"
)

func newTestService(t *testing.T, fake *clock.FakeClock) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Offer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: db, GenID: node, Clock: fake, Log: zap.NewNop()})
}

func TestCreateAndListLive(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopcontext.WithShopID(context.Background(), 100)

	offer, err := svc.Create(ctx, domain.CreateRequest{
		Title:  "2 for 1 flat whites",
		EndsAt: fake.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, offer.Status)

	live, err := svc.ListLive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
}

func TestScheduledOfferNotLiveUntilStart(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopcontext.WithShopID(context.Background(), 100)

	offer, err := svc.Create(ctx, domain.CreateRequest{
		Title:    "happy hour",
		StartsAt: fake.Now().Add(time.Hour),
		EndsAt:   fake.Now().Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, offer.Status)

	live, err := svc.ListLive(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)

	fake.Advance(90 * time.Minute)
	live, err = svc.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopcontext.WithShopID(context.Background(), 100)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Title:  "bad window",
		EndsAt: fake.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestExpireDue(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopcontext.WithShopID(context.Background(), 100)

	offer, err := svc.Create(ctx, domain.CreateRequest{
		Title:  "2 for 1 flat whites",
		EndsAt: fake.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)

	fake.Advance(3 * time.Hour)
	expired, err := svc.ExpireDue(context.Background(), fake.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	reloaded, err := svc.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, reloaded.Status)

	live, err := svc.ListLive(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestCancel(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := shopcontext.WithShopID(context.Background(), 100)

	offer, err := svc.Create(ctx, domain.CreateRequest{
		Title:  "2 for 1 flat whites",
		EndsAt: fake.Now().Add(2 * time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, offer.ID))
	assert.ErrorIs(t, svc.Cancel(ctx, offer.ID), domain.ErrNotFound)
}
