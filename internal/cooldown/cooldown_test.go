package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/digiget/digiget/internal/clock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRemainingMinutes_NoLastEvent(t *testing.T) {
	now := time.Now().UTC()
	assert.Zero(t, RemainingMinutes(nil, 30, now))
	assert.Zero(t, RemainingMinutes(nil, 1440, now))
}

func TestRemainingMinutes_CountsDownAndHitsZero(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	last := fake.Now()

	assert.Equal(t, 30, RemainingMinutes(&last, 30, fake.Now()))

	fake.Advance(10 * time.Minute)
	assert.Equal(t, 20, RemainingMinutes(&last, 30, fake.Now()))

	fake.Advance(19 * time.Minute)
	assert.Equal(t, 1, RemainingMinutes(&last, 30, fake.Now()))

	fake.Advance(time.Minute)
	assert.Zero(t, RemainingMinutes(&last, 30, fake.Now()))

	fake.Advance(time.Hour)
	assert.Zero(t, RemainingMinutes(&last, 30, fake.Now()))
}

func TestRemainingMinutes_RoundsFractionsUp(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	last := fake.Now()

	// 12 seconds left in the window must read as 1 minute, never 0.
	fake.Advance(29*time.Minute + 48*time.Second)
	assert.Equal(t, 1, RemainingMinutes(&last, 30, fake.Now()))

	// Mid-window fractions round up too.
	fake2 := clock.NewFakeClock(last)
	fake2.Advance(10*time.Minute + 30*time.Second)
	assert.Equal(t, 20, RemainingMinutes(&last, 30, fake2.Now()))
}

func openRelaxationDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Relaxation{}))
	return db
}

func TestRelaxationStore_FindActiveAndConsume(t *testing.T) {
	db := openRelaxationDB(t)
	store := NewStore()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	shopID := node.Generate()
	accountID := node.Generate()

	grant := &Relaxation{
		ID:          node.Generate(),
		ShopID:      shopID,
		AccountKind: AccountCustomer,
		AccountID:   accountID,
		PolicyKind:  PolicyPointEarn,
		GrantedBy:   node.Generate(),
		GrantedAt:   now.Add(-10 * time.Minute),
		CreatedAt:   now.Add(-10 * time.Minute),
	}
	require.NoError(t, store.Grant(ctx, db, grant))

	found, err := store.FindActive(ctx, db, shopID, AccountCustomer, accountID, PolicyPointEarn, now)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, grant.ID, found.ID)

	// Wrong policy kind does not match.
	found, err = store.FindActive(ctx, db, shopID, AccountCustomer, accountID, PolicyRedemption, now)
	require.NoError(t, err)
	assert.Nil(t, found)

	// Consumption is one-shot.
	ok, err := store.Consume(ctx, db, grant.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, db, grant.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err = store.FindActive(ctx, db, shopID, AccountCustomer, accountID, PolicyPointEarn, now)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRelaxationStore_ExpiredGrantIgnored(t *testing.T) {
	db := openRelaxationDB(t)
	store := NewStore()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	shopID := node.Generate()
	accountID := node.Generate()

	require.NoError(t, store.Grant(ctx, db, &Relaxation{
		ID:          node.Generate(),
		ShopID:      shopID,
		AccountKind: AccountCustomer,
		AccountID:   accountID,
		PolicyKind:  PolicyPointEarn,
		GrantedBy:   node.Generate(),
		GrantedAt:   now.Add(-2 * time.Hour),
	}))

	found, err := store.FindActive(ctx, db, shopID, AccountCustomer, accountID, PolicyPointEarn, now)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRelaxationStore_Prune(t *testing.T) {
	db := openRelaxationDB(t)
	store := NewStore()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	consumed := now.Add(-40 * 24 * time.Hour)

	require.NoError(t, store.Grant(ctx, db, &Relaxation{
		ID:          node.Generate(),
		ShopID:      node.Generate(),
		AccountKind: AccountCustomer,
		AccountID:   node.Generate(),
		PolicyKind:  PolicyPointEarn,
		GrantedBy:   node.Generate(),
		GrantedAt:   consumed,
		ConsumedAt:  &consumed,
	}))
	require.NoError(t, store.Grant(ctx, db, &Relaxation{
		ID:          node.Generate(),
		ShopID:      node.Generate(),
		AccountKind: AccountCustomer,
		AccountID:   node.Generate(),
		PolicyKind:  PolicyPointEarn,
		GrantedBy:   node.Generate(),
		GrantedAt:   now.Add(-5 * time.Minute),
	}))

	pruned, err := store.Prune(ctx, db, now, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	var count int64
	require.NoError(t, db.Model(&Relaxation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
