package services

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeReportRepo struct {
	mu     sync.Mutex
	ranges [][2]time.Time
	daily  []models.DailySales
	// blockBacklog makes CountKitchenBacklog wait until its context is done.
	blockBacklog   bool
	failOpenOrders bool
	backlogStopped error
}

func (f *fakeReportRepo) GetSalesTotals(_ context.Context, tenantID int64, from, to time.Time) (decimal.Decimal, int, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, [2]time.Time{from, to})
	f.mu.Unlock()
	if to.Sub(from) <= 24*time.Hour {
		return dec("40.00"), 3, nil
	}
	return dec("910.50"), 57, nil
}

func (f *fakeReportRepo) CountOpenOrders(_ context.Context, tenantID int64) (int, error) {
	if f.failOpenOrders {
		return 0, assert.AnError
	}
	return 2, nil
}

func (f *fakeReportRepo) CountKitchenBacklog(ctx context.Context, tenantID int64) (int, error) {
	if !f.blockBacklog {
		return 5, nil
	}
	select {
	case <-ctx.Done():
		f.mu.Lock()
		f.backlogStopped = ctx.Err()
		f.mu.Unlock()
		return 0, ctx.Err()
	case <-time.After(5 * time.Second):
		return 5, nil
	}
}

func (f *fakeReportRepo) CountOccupiedTables(_ context.Context, tenantID int64) (int, error) {
	return 1, nil
}

func (f *fakeReportRepo) GetDailySales(_ context.Context, tenantID int64, from, to time.Time) ([]models.DailySales, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, [2]time.Time{from, to})
	f.mu.Unlock()
	return f.daily, nil
}

func (f *fakeReportRepo) GetProductSales(_ context.Context, tenantID int64, from, to time.Time) ([]models.ProductSales, error) {
	return []models.ProductSales{
		{ProductID: 10, ProductName: "Burger", Unit: models.UnitUnit, Quantity: dec("3"), Total: dec("37.50")},
	}, nil
}

func (f *fakeReportRepo) GetPaymentMethodSales(_ context.Context, tenantID int64, from, to time.Time) ([]models.PaymentMethodSales, error) {
	return []models.PaymentMethodSales{{Method: models.PaymentCash, Count: 2, Total: dec("37.50")}}, nil
}

func newReportFixture(now time.Time) (*fakeReportRepo, *reportService) {
	repo := &fakeReportRepo{daily: []models.DailySales{
		{Date: "2026-03-01", InvoiceCount: 2, Total: dec("25.00")},
		{Date: "2026-03-02", InvoiceCount: 1, Total: dec("12.50")},
	}}
	return repo, &reportService{reportRepo: repo, now: func() time.Time { return now }}
}

func TestGetDashboard(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	repo, svc := newReportFixture(now)

	summary, err := svc.GetDashboard(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "40.00", summary.SalesToday.StringFixed(2))
	assert.Equal(t, 3, summary.InvoicesToday)
	assert.Equal(t, "910.50", summary.SalesThisMonth.StringFixed(2))
	assert.Equal(t, 2, summary.OpenOrders)
	assert.Equal(t, 5, summary.KitchenBacklog)
	assert.Equal(t, 1, summary.OccupiedTables)

	tomorrow := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.ElementsMatch(t, [][2]time.Time{
		{time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), tomorrow},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), tomorrow},
	}, repo.ranges)
}

func TestGetDashboard_FailureCancelsPendingQueries(t *testing.T) {
	repo, svc := newReportFixture(time.Now())
	repo.failOpenOrders = true
	repo.blockBacklog = true

	start := time.Now()
	_, err := svc.GetDashboard(context.Background(), 1)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, repo.backlogStopped, context.Canceled)
}

func TestGetDashboard_RequestDeadlineReachesQueries(t *testing.T) {
	repo, svc := newReportFixture(time.Now())
	repo.blockBacklog = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := svc.GetDashboard(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, repo.backlogStopped, context.DeadlineExceeded)
}

func TestGetSalesReport(t *testing.T) {
	repo, svc := newReportFixture(time.Now())
	from := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	report, err := svc.GetSalesReport(context.Background(), 1, from, to)
	require.NoError(t, err)
	assert.Equal(t, "37.50", report.Total.StringFixed(2))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), report.From)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), report.To)
	require.Len(t, report.Products, 1)
	require.Len(t, report.Methods, 1)

	require.Len(t, repo.ranges, 1)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), repo.ranges[0][1])
}

func TestGetSalesReport_InvalidRange(t *testing.T) {
	_, svc := newReportFixture(time.Now())
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.GetSalesReport(context.Background(), 1, day, day.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.GetSalesReport(context.Background(), 1, day, day.AddDate(0, 0, maxReportDays+1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.GetSalesReport(context.Background(), 1, day, day)
	assert.NoError(t, err)
}

func TestExportSalesReport(t *testing.T) {
	_, svc := newReportFixture(time.Now())
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportSalesReport(context.Background(), 1, day, day.AddDate(0, 0, 1), &buf))

	wb, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Daily", "Products", "Payment methods"}, wb.GetSheetList())

	rows, err := wb.GetRows("Daily")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2026-03-01", "2", "25"}, rows[1])
	assert.Equal(t, "Total", rows[3][0])
}
