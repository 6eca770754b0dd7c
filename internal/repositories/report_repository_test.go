package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportRepoMock(t *testing.T) (ReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReportRepository(db), mock
}

func TestGetSalesTotalsCountsPaidInvoicesOnly(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(total), 0), COUNT(*) FROM invoices`)).
		WithArgs(int64(1), models.InvoiceStatusPaid, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"sum", "count"}).AddRow("157.40", 3))

	total, count, err := repo.GetSalesTotals(context.Background(), 1, from, to)
	require.NoError(t, err)
	assert.Equal(t, "157.4", total.String())
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountKitchenBacklog(t *testing.T) {
	repo, mock := newReportRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_items WHERE tenant_id = $1 AND status = ANY($2)`)).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountKitchenBacklog(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCountOpenOrdersMapsErrors(t *testing.T) {
	repo, mock := newReportRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders`)).
		WillReturnError(assert.AnError)

	_, err := repo.CountOpenOrders(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDatabaseError)
}

func TestGetDailySales(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)

	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY DATE(issued_at)`)).
		WithArgs(int64(1), models.InvoiceStatusPaid, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count", "sum"}).
			AddRow("2026-03-01", 2, "40.00").
			AddRow("2026-03-02", 1, "12.50"))

	daily, err := repo.GetDailySales(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, "2026-03-01", daily[0].Date)
	assert.Equal(t, 2, daily[0].InvoiceCount)
	assert.Equal(t, "12.5", daily[1].Total.String())
}

func TestGetProductAndPaymentMethodSales(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM invoice_items ii`)).
		WithArgs(int64(1), models.InvoiceStatusPaid, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "unit", "qty", "sum"}).
			AddRow(int64(10), "Burger", models.UnitUnit, "3", "37.50").
			AddRow(int64(12), "Cheese", models.UnitKg, "0.250", "2.10"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM invoice_payments p`)).
		WithArgs(int64(1), models.InvoiceStatusPaid, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"method", "count", "sum"}).
			AddRow("card", 1, "30.00").
			AddRow("cash", 2, "9.60"))

	products, err := repo.GetProductSales(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Burger", products[0].ProductName)
	assert.Equal(t, "0.25", products[1].Quantity.String())

	methods, err := repo.GetPaymentMethodSales(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "cash", methods[1].Method)
	assert.Equal(t, 2, methods[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
