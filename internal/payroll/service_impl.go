// Package payroll summarizes approved staff shifts into hours and pay,
// and exports the summary as a spreadsheet for the shop owner.
package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	attendancedomain "github.com/digiget/digiget/internal/attendance/domain"
	employeedomain "github.com/digiget/digiget/internal/employee/domain"
	"github.com/digiget/digiget/internal/shopcontext"
)

var (
	ErrInvalidShop  = errors.New("invalid_shop")
	ErrInvalidRange = errors.New("invalid_range")
)

// EmployeeHours is one staff member's totals for a reporting period.
type EmployeeHours struct {
	EmployeeID   int64   `json:"employee_id,string"`
	Name         string  `json:"name"`
	HourlyRate   float64 `json:"hourly_rate"`
	Shifts       int     `json:"shifts"`
	Hours        float64 `json:"hours"`
	Pay          float64 `json:"pay"`
	PendingCount int     `json:"pending_count,omitempty"`
}

// Report is the payroll summary for one shop and period.
type Report struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Rows  []EmployeeHours `json:"rows"`
	Total float64         `json:"total"`
}

type Service interface {
	// Summarize totals hours and pay from closed, approved clock
	// entries in [from, to). Pending entries are counted but not paid.
	Summarize(ctx context.Context, from, to time.Time) (*Report, error)
	// ExportXLSX renders the summary as a spreadsheet.
	ExportXLSX(ctx context.Context, from, to time.Time) ([]byte, error)
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Employees employeedomain.Service
	Log       *zap.Logger
}

type service struct {
	db        *gorm.DB
	employees employeedomain.Service
	log       *zap.Logger
}

func New(p Params) Service {
	return &service{
		db:        p.DB,
		employees: p.Employees,
		log:       p.Log.Named("payroll.service"),
	}
}

func (s *service) Summarize(ctx context.Context, from, to time.Time) (*Report, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok {
		return nil, ErrInvalidShop
	}
	if !to.After(from) {
		return nil, ErrInvalidRange
	}

	staff, err := s.employees.List(ctx, false)
	if err != nil {
		return nil, err
	}

	var entries []attendancedomain.ClockEntry
	if err := s.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Where("clock_in_at >= ? AND clock_in_at < ?", from, to).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	byEmployee := make(map[int64]*EmployeeHours, len(staff))
	order := make([]int64, 0, len(staff))
	for _, employee := range staff {
		id := employee.ID.Int64()
		byEmployee[id] = &EmployeeHours{
			EmployeeID: id,
			Name:       employee.Name,
			HourlyRate: employee.HourlyRate,
		}
		order = append(order, id)
	}

	for _, entry := range entries {
		row := byEmployee[entry.EmployeeID.Int64()]
		if row == nil {
			continue
		}
		if entry.Status == attendancedomain.StatusPending {
			row.PendingCount++
			continue
		}
		if entry.Status != attendancedomain.StatusApproved || entry.ClockOutAt == nil {
			continue
		}
		row.Shifts++
		row.Hours += entry.Hours()
	}

	report := &Report{From: from, To: to}
	for _, id := range order {
		row := byEmployee[id]
		row.Pay = row.Hours * row.HourlyRate
		report.Total += row.Pay
		report.Rows = append(report.Rows, *row)
	}
	return report, nil
}

func (s *service) ExportXLSX(ctx context.Context, from, to time.Time) ([]byte, error) {
	report, err := s.Summarize(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Payroll"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Employee", "Hourly Rate", "Shifts", "Hours", "Pay", "Pending Shifts"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, row := range report.Rows {
		rowNo := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNo), row.Name)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNo), row.HourlyRate)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNo), row.Shifts)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", rowNo), row.Hours)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", rowNo), row.Pay)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", rowNo), row.PendingCount)
	}

	totalRow := len(report.Rows) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), report.Total)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
