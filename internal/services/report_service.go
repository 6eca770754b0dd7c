package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidDateRange = errors.New("invalid date range")

// maxReportDays bounds a sales report so one request cannot scan years of invoices.
const maxReportDays = 366

type ReportService interface {
	GetDashboard(ctx context.Context, tenantID int64) (*models.DashboardSummary, error)
	GetSalesReport(ctx context.Context, tenantID int64, from, to time.Time) (*models.SalesReport, error)
	ExportSalesReport(ctx context.Context, tenantID int64, from, to time.Time, w io.Writer) error
}

type reportService struct {
	reportRepo repositories.ReportRepository
	now        func() time.Time
}

// NewReportService creates a new instance of ReportService.
func NewReportService(reportRepo repositories.ReportRepository) ReportService {
	return &reportService{reportRepo: reportRepo, now: time.Now}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetDashboard gathers the independent counters concurrently. The first failing
// query cancels the others.
func (s *reportService) GetDashboard(ctx context.Context, tenantID int64) (*models.DashboardSummary, error) {
	now := s.now()
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	summary := &models.DashboardSummary{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := s.reportRepo.GetSalesTotals(gctx, tenantID, today, tomorrow)
		summary.SalesToday, summary.InvoicesToday = total, count
		return err
	})
	g.Go(func() error {
		total, _, err := s.reportRepo.GetSalesTotals(gctx, tenantID, monthStart(now), tomorrow)
		summary.SalesThisMonth = total
		return err
	})
	g.Go(func() (err error) {
		summary.OpenOrders, err = s.reportRepo.CountOpenOrders(gctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		summary.KitchenBacklog, err = s.reportRepo.CountKitchenBacklog(gctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		summary.OccupiedTables, err = s.reportRepo.CountOccupiedTables(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return summary, nil
}

// GetSalesReport covers the calendar days from..to inclusive.
func (s *reportService) GetSalesReport(ctx context.Context, tenantID int64, from, to time.Time) (*models.SalesReport, error) {
	from, to = startOfDay(from), startOfDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", ErrInvalidDateRange)
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return nil, fmt.Errorf("%w: at most %d days per report", ErrInvalidDateRange, maxReportDays)
	}
	end := to.AddDate(0, 0, 1)
	report := &models.SalesReport{From: from, To: to}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.Daily, err = s.reportRepo.GetDailySales(gctx, tenantID, from, end)
		return err
	})
	g.Go(func() (err error) {
		report.Products, err = s.reportRepo.GetProductSales(gctx, tenantID, from, end)
		return err
	})
	g.Go(func() (err error) {
		report.Methods, err = s.reportRepo.GetPaymentMethodSales(gctx, tenantID, from, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build sales report: %w", err)
	}

	report.Total = decimal.Zero
	for _, d := range report.Daily {
		report.Total = report.Total.Add(d.Total)
	}
	return report, nil
}

// ExportSalesReport writes the report as a workbook with one sheet per breakdown.
func (s *reportService) ExportSalesReport(ctx context.Context, tenantID int64, from, to time.Time, w io.Writer) error {
	report, err := s.GetSalesReport(ctx, tenantID, from, to)
	if err != nil {
		return err
	}

	f, err := newStyledSheet("Daily", []string{"Date", "Invoices", "Total"})
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	defer f.Close()

	for i, d := range report.Daily {
		row := []interface{}{d.Date, d.InvoiceCount, d.Total.InexactFloat64()}
		if err := f.SetSheetRow("Daily", fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write daily row: %w", err)
		}
	}
	totalRow := []interface{}{"Total", nil, report.Total.InexactFloat64()}
	if err := f.SetSheetRow("Daily", fmt.Sprintf("A%d", len(report.Daily)+2), &totalRow); err != nil {
		return fmt.Errorf("failed to write total row: %w", err)
	}

	if err := addSheet(f, "Products", []string{"Product", "Unit", "Quantity", "Total"}, len(report.Products), func(i int) []interface{} {
		p := report.Products[i]
		return []interface{}{p.ProductName, p.Unit, p.Quantity.InexactFloat64(), p.Total.InexactFloat64()}
	}); err != nil {
		return err
	}
	if err := addSheet(f, "Payment methods", []string{"Method", "Payments", "Total"}, len(report.Methods), func(i int) []interface{} {
		m := report.Methods[i]
		return []interface{}{m.Method, m.Count, m.Total.InexactFloat64()}
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
