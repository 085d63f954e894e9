package payroll

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
	"github.com/digiget/digiget/internal/clock"
	"github.com/digiget/digiget/internal/config"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	employeerepo "github.com/digiget/digiget/internal/employee/repository"
	employeeservice "github.com/digiget/digiget/internal/employee/service"
	"github.com/digiget/digiget/internal/shopcontext"
)

func newFixture(t *testing.T) (Service, *gorm.DB, *employeedomain.Created, context.Context, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&employeedomain.Employee{}, &attendancedomain.ClockEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	employees := employeeservice.New(employeeservice.Params{
		DB:     db,
		Repo:   employeerepo.Provide(),
		GenID:  node,
		Clock:  fake,
		Config: &config.Config{PINValidityDays: 90},
		Log:    zap.NewNop(),
	})

	ctx := shopcontext.WithShopID(context.Background(), 100)
	staff, err := employees.Create(ctx, employeedomain.CreateRequest{
		Name:       "Priya Shah",
		Email:      "priya@example.co.uk",
		HourlyRate: 12.50,
	})
	require.NoError(t, err)

	svc := New(Params{DB: db, Employees: employees, Log: zap.NewNop()})
	return svc, db, staff, ctx, fake
}

func addShift(t *testing.T, db *gorm.DB, employeeID snowflake.ID, status attendancedomain.EntryStatus, start time.Time, hours float64) {
	t.Helper()
	entry := attendancedomain.ClockEntry{
		ID:          snowflake.ID(start.UnixNano()),
		ShopID:      100,
		EmployeeID:  employeeID,
		OperationID: start.String(),
		Status:      status,
		ClockInAt:   start,
		CreatedAt:   start,
	}
	if hours > 0 {
		end := start.Add(time.Duration(hours * float64(time.Hour)))
		entry.ClockOutAt = &end
	}
	require.NoError(t, db.Create(&entry).Error)
}

func TestSummarize(t *testing.T) {
	svc, db, staff, ctx, fake := newFixture(t)
	start := fake.Now()

	addShift(t, db, staff.Employee.ID, attendancedomain.StatusApproved, start, 8)
	addShift(t, db, staff.Employee.ID, attendancedomain.StatusApproved, start.Add(24*time.Hour), 4.5)
	addShift(t, db, staff.Employee.ID, attendancedomain.StatusPending, start.Add(48*time.Hour), 6)

	report, err := svc.Summarize(ctx, start.Add(-time.Hour), start.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, 2, row.Shifts)
	assert.InDelta(t, 12.5, row.Hours, 0.001)
	assert.InDelta(t, 156.25, row.Pay, 0.001)
	assert.Equal(t, 1, row.PendingCount)
	assert.InDelta(t, 156.25, report.Total, 0.001)
}

func TestSummarizeExcludesOutOfRange(t *testing.T) {
	svc, db, staff, ctx, fake := newFixture(t)
	start := fake.Now()

	addShift(t, db, staff.Employee.ID, attendancedomain.StatusApproved, start.Add(-48*time.Hour), 8)

	report, err := svc.Summarize(ctx, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 0, report.Rows[0].Shifts)
}

func TestSummarizeRejectsInvertedRange(t *testing.T) {
	svc, _, _, ctx, fake := newFixture(t)

	_, err := svc.Summarize(ctx, fake.Now(), fake.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestExportXLSX(t *testing.T) {
	svc, db, staff, ctx, fake := newFixture(t)
	start := fake.Now()
	addShift(t, db, staff.Employee.ID, attendancedomain.StatusApproved, start, 8)

	data, err := svc.ExportXLSX(ctx, start.Add(-time.Hour), start.Add(24*time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Payroll", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Priya Shah", name)

	pay, err := f.GetCellValue("Payroll", "E2")
	require.NoError(t, err)
	assert.Equal(t, "100", pay)
}
