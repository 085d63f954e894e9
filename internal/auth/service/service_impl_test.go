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

	"github.com/digiget/digiget/internal/auth/domain"
	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
)

func newTestService(t *testing.T, fake *clock.FakeClock) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:     db,
		GenID:  node,
		Clock:  fake,
		Config: &config.Config{SessionTTLHours: 720},
		Log:    zap.NewNop(),
	})
}

func TestRegisterAndLogin(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterRequest{
		Email:    "Owner@Example.co.uk",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.co.uk", user.Email)
	assert.NotContains(t, user.PasswordHash, "correct horse")

	result, err := svc.Login(ctx, domain.LoginRequest{
		Email:    "owner@example.co.uk",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RawToken)
	assert.Equal(t, fake.Now().Add(720*time.Hour), result.ExpiresAt)
}

func TestLoginWrongPassword(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "owner@example.co.uk", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.RegisterRequest{Email: "owner@example.co.uk", Password: "other password"})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestAuthenticate(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)

	session, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	_, err = svc.Authenticate(ctx, "bogus-token")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthenticateExpired(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)

	fake.Advance(721 * time.Hour)
	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLogoutRevokesSession(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, domain.LoginRequest{Email: "owner@example.co.uk", Password: "correct horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.RawToken))
	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked)
}
