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

	"github.com/digiget/digiget/internal/attendance/domain"
	"github.com/digiget/digiget/internal/audit"
	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	employeerepo "github.com/digiget/digiget/internal/employee/repository"
	employeeservice "github.com/digiget/digiget/internal/employee/service"
	"github.com/digiget/digiget/internal/geo"
	shopdomain "github.com/digiget/digiget/internal/shop/domain"
	shoprepo "github.com/digiget/digiget/internal/shop/repository"
	shopservice "github.com/digiget/digiget/internal/shop/service"
	"github.com/digiget/digiget/internal/shopcontext"
)

const (
	siteLat = 53.4808
	siteLng = -2.2426
)

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	fake  *clock.FakeClock
	shop  *shopdomain.Shop
	staff *employeedomain.Created
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&shopdomain.Shop{},
		&employeedomain.Employee{},
		&domain.ClockEntry{},
		&audit.Log{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	cfg := &config.Config{CustomerRadiusMeters: 200, PINValidityDays: 90}
	log := zap.NewNop()

	shops := shopservice.New(shopservice.Params{
		DB:     db,
		Repo:   shoprepo.Provide(),
		GenID:  node,
		Clock:  fake,
		Config: cfg,
		Log:    log,
	})
	shop, err := shops.Create(context.Background(), shopdomain.CreateRequest{
		OwnerUserID:  node.Generate(),
		Name:         "Market Street Barbers",
		Latitude:     siteLat,
		Longitude:    siteLng,
		RadiusMeters: 50,
	})
	require.NoError(t, err)

	employees := employeeservice.New(employeeservice.Params{
		DB:     db,
		Repo:   employeerepo.Provide(),
		GenID:  node,
		Clock:  fake,
		Config: cfg,
		Log:    log,
	})

	ctx := shopcontext.WithShopID(context.Background(), shop.ID)
	staff, err := employees.Create(ctx, employeedomain.CreateRequest{
		Name:       "Priya Shah",
		Email:      "priya@example.co.uk",
		HourlyRate: 12.50,
	})
	require.NoError(t, err)

	svc := New(Params{
		DB:        db,
		Employees: employees,
		Shops:     shops,
		Audit:     audit.NewRecorder(node, log),
		GenID:     node,
		Clock:     fake,
		Log:       log,
	})

	return &fixture{svc: svc, db: db, fake: fake, shop: shop, staff: staff, ctx: ctx}
}

func nearFix() *geo.Fix {
	return &geo.Fix{
		Coordinate:     geo.Coordinate{Latitude: siteLat, Longitude: -2.2429},
		AccuracyMeters: 15,
	}
}

func farFix() *geo.Fix {
	return &geo.Fix{
		Coordinate:     geo.Coordinate{Latitude: 53.4828, Longitude: siteLng},
		AccuracyMeters: 15,
	}
}

func TestClockInApproved(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         nearFix(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, result.Status)
	assert.InDelta(t, 20, result.DistanceMeters, 5)
}

func TestClockInWrongPIN(t *testing.T) {
	f := newFixture(t)

	wrong := "0000"
	if f.staff.PIN == wrong {
		wrong = "0001"
	}
	_, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         wrong,
		OperationID: "shift-1",
		Fix:         nearFix(),
	})
	assert.ErrorIs(t, err, employeedomain.ErrPINMismatch)
}

func TestClockInOutsideRadiusIsPending(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         farFix(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, result.Status)
	assert.Contains(t, result.Message, "within 50m")
}

func TestClockInTwiceRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         nearFix(),
	})
	require.NoError(t, err)

	_, err = f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-2",
		Fix:         nearFix(),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyClockedIn)
}

func TestClockInRetrySameOperationIsDuplicate(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         nearFix(),
	})
	require.NoError(t, err)

	retry, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         nearFix(),
	})
	require.NoError(t, err)
	assert.True(t, retry.Duplicate)
	assert.Equal(t, first.EntryID, retry.EntryID)
}

func TestClockOutClosesShift(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         nearFix(),
	})
	require.NoError(t, err)

	f.fake.Advance(8 * time.Hour)
	entry, err := f.svc.ClockOut(f.ctx, domain.ClockOutRequest{
		EmployeeID: f.staff.Employee.ID,
		PIN:        f.staff.PIN,
	})
	require.NoError(t, err)
	require.NotNil(t, entry.ClockOutAt)
	assert.InDelta(t, 8, entry.Hours(), 0.01)

	open, err := f.svc.OpenEntry(f.ctx, f.staff.Employee.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestClockOutWithoutOpenShift(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ClockOut(f.ctx, domain.ClockOutRequest{
		EmployeeID: f.staff.Employee.ID,
		PIN:        f.staff.PIN,
	})
	assert.ErrorIs(t, err, domain.ErrNotClockedIn)
}

func TestApprovePendingEntry(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ClockIn(f.ctx, domain.ClockInRequest{
		EmployeeID:  f.staff.Employee.ID,
		PIN:         f.staff.PIN,
		OperationID: "shift-1",
		Fix:         farFix(),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveEntry(f.ctx, result.EntryID, f.shop.OwnerUserID))

	err = f.svc.ApproveEntry(f.ctx, result.EntryID, f.shop.OwnerUserID)
	assert.ErrorIs(t, err, domain.ErrEntryResolved)

	entries, err := f.svc.ListEntries(f.ctx, f.staff.Employee.ID,
		f.fake.Now().Add(-time.Hour), f.fake.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusApproved, entries[0].Status)
}
