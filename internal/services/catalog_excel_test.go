package services

import (
	"bytes"
	"context"
	"testing"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/plans"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseProductRows(t *testing.T) {
	rows := [][]string{
		{"Name", "Price", "Unit", "SKU", "Active"},
		{"Burger", "12.50", "unit", "B-1", "yes"},
		{"Cheese", "8,40", "KG", "", ""},
		{},
		{"", "3", "unit"},
		{"Water", "1", "litre"},
		{"Gift", "-1", "unit"},
		{"Mint", "0.5", "lb", "", "no"},
	}

	parsed, skipped, err := parseProductRows(rows)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, "Burger", parsed[0].name)
	require.NotNil(t, parsed[0].sku)
	assert.Equal(t, "B-1", *parsed[0].sku)
	assert.Equal(t, 2, parsed[0].line)

	assert.Nil(t, parsed[1].sku)
	assert.Equal(t, models.UnitKg, parsed[1].unit)
	assert.Equal(t, "8.40", parsed[1].price.StringFixed(2))
	assert.True(t, parsed[1].isActive, "blank active defaults to true")

	assert.False(t, parsed[2].isActive)

	require.Len(t, skipped, 3)
	assert.Equal(t, 5, skipped[0].Row)
	assert.Equal(t, 6, skipped[1].Row)
	assert.Equal(t, 7, skipped[2].Row)
}

func TestParseProductRows_BadHeader(t *testing.T) {
	_, _, err := parseProductRows([][]string{{"Name", "Price"}})
	assert.ErrorIs(t, err, ErrImportFile)

	_, _, err = parseProductRows(nil)
	assert.ErrorIs(t, err, ErrImportFile)
}

func TestExportThenImportProducts(t *testing.T) {
	db, mock := newTxMock(t)
	source := &fakeCatalogRepo{products: map[int64]models.Product{
		1: {ID: 1, TenantID: 1, Name: "Burger", SKU: strPtr("B-1"), CategoryName: strPtr("Mains"), Price: dec("12.50"), Unit: models.UnitUnit, IsActive: true, SendsToKitchen: true},
	}}
	exporter := NewCatalogService(source, newFakeTenantRepo("basic"), plans.Default(), db)

	var buf bytes.Buffer
	require.NoError(t, exporter.ExportProducts(context.Background(), 1, &buf))

	wb, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	rows, err := wb.GetRows(productSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, productColumns, rows[0])
	assert.Equal(t, "B-1", rows[1][0])

	target := &fakeCatalogRepo{products: map[int64]models.Product{
		7: {ID: 7, TenantID: 1, Name: "Burger (old)", SKU: strPtr("B-1"), Price: dec("10"), Unit: models.UnitUnit},
	}}
	importer := NewCatalogService(target, newFakeTenantRepo("basic"), plans.Default(), db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	result, err := importer.ImportProducts(context.Background(), 1, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Skipped)

	updated := target.products[7]
	assert.Equal(t, "Burger", updated.Name)
	assert.Equal(t, "12.50", updated.Price.StringFixed(2))
	assert.True(t, updated.SendsToKitchen)
	require.Len(t, target.categories, 1)
	assert.Equal(t, "Mains", target.categories[0].Name)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, target.categories[0].ID, *updated.CategoryID)
}

func TestImportProducts_PlanLimitSkipsNewRows(t *testing.T) {
	db, mock := newTxMock(t)
	tenants := newFakeTenantRepo("basic")
	tenants.usage.Products = 100
	repo := &fakeCatalogRepo{products: map[int64]models.Product{}}
	svc := NewCatalogService(repo, tenants, plans.Default(), db)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Name", "Unit", "Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Tea", "unit", 1.5}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	mock.ExpectBegin()
	mock.ExpectCommit()
	result, err := svc.ImportProducts(context.Background(), 1, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 2, result.Skipped[0].Row)
	assert.Empty(t, repo.products)
}

func TestImportProducts_NotAWorkbook(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogRepo{}, newFakeTenantRepo("basic"), plans.Default(), nil)
	_, err := svc.ImportProducts(context.Background(), 1, bytes.NewReader([]byte("name,price\nTea,1")))
	assert.ErrorIs(t, err, ErrImportFile)
}

func strPtr(s string) *string { return &s }
