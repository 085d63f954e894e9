package service

import (
	"context"
	"errors"
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
	"github.com/digiget/digiget/internal/cooldown"
	"github.com/digiget/digiget/internal/rating/domain"
	"github.com/digiget/digiget/internal/shopcontext"
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	fake  *clock.FakeClock
	node  *snowflake.Node
	store *cooldown.Store
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Rating{}, &cooldown.Relaxation{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := cooldown.NewStore()
	svc := New(Params{
		DB:          db,
		Relaxations: store,
		GenID:       node,
		Clock:       fake,
		Config:      &config.Config{RatingEditCooldownMinutes: 1440},
		Log:         zap.NewNop(),
	})

	return &fixture{
		svc:   svc,
		db:    db,
		fake:  fake,
		node:  node,
		store: store,
		ctx:   shopcontext.WithShopID(context.Background(), 100),
	}
}

func TestRateCreates(t *testing.T) {
	f := newFixture(t)

	rating, err := f.svc.Rate(f.ctx, 7, 5, "brilliant haircut")
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Stars)
}

func TestRateRejectsInvalidStars(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rate(f.ctx, 7, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidStars)
	_, err = f.svc.Rate(f.ctx, 7, 6, "")
	assert.ErrorIs(t, err, domain.ErrInvalidStars)
}

func TestEditInsideCooldownBlocked(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rate(f.ctx, 7, 5, "brilliant")
	require.NoError(t, err)

	f.fake.Advance(2 * time.Hour)
	_, err = f.svc.Rate(f.ctx, 7, 2, "changed my mind")
	require.ErrorIs(t, err, cooldown.ErrActive)

	var active *cooldown.ActiveError
	require.True(t, errors.As(err, &active))
	assert.Equal(t, 22*60, active.RemainingMinutes)

	rating, err := f.svc.GetForCustomer(f.ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Stars)
}

func TestEditAfterCooldown(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rate(f.ctx, 7, 5, "brilliant")
	require.NoError(t, err)

	f.fake.Advance(25 * time.Hour)
	rating, err := f.svc.Rate(f.ctx, 7, 3, "service slipped")
	require.NoError(t, err)
	assert.Equal(t, 3, rating.Stars)
}

func TestEditWithRelaxation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rate(f.ctx, 7, 5, "brilliant")
	require.NoError(t, err)

	require.NoError(t, f.store.Grant(context.Background(), f.db, &cooldown.Relaxation{
		ID:          f.node.Generate(),
		ShopID:      100,
		AccountKind: cooldown.AccountCustomer,
		AccountID:   7,
		PolicyKind:  cooldown.PolicyRatingEdit,
		GrantedBy:   f.node.Generate(),
		GrantedAt:   f.fake.Now(),
	}))

	f.fake.Advance(10 * time.Minute)
	rating, err := f.svc.Rate(f.ctx, 7, 4, "second thoughts")
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Stars)

	// One-shot grant: the next edit is blocked again.
	f.fake.Advance(10 * time.Minute)
	_, err = f.svc.Rate(f.ctx, 7, 1, "")
	assert.ErrorIs(t, err, cooldown.ErrActive)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Rate(f.ctx, 7, 5, "")
	require.NoError(t, err)
	_, err = f.svc.Rate(f.ctx, 8, 2, "")
	require.NoError(t, err)

	summary, err := f.svc.Summarize(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.InDelta(t, 3.5, summary.Average, 0.001)
}
