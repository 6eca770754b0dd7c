package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const productSheet = "Products"

var productColumns = []string{"SKU", "Name", "Category", "Unit", "Price", "Active", "Sends to kitchen", "Description"}

var ErrImportFile = errors.New("invalid import file")

// ImportRowError reports a spreadsheet row that was skipped. Row is 1-based as shown in Excel.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a product import.
type ImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Skipped []ImportRowError `json:"skipped"`
}

func boolCell(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func parseBoolCell(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "si", "sí":
		return true
	case "no", "n", "false", "0":
		return false
	}
	return fallback
}

// newStyledSheet creates a workbook whose first sheet is named sheet and carries a bold header row.
func newStyledSheet(sheet string, header []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, err
	}
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		f.Close()
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		f.Close()
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// ExportProducts writes the whole catalog of the tenant as an xlsx workbook.
func (s *catalogService) ExportProducts(ctx context.Context, tenantID int64, w io.Writer) error {
	products, _, err := s.catalogRepo.GetProducts(ctx, tenantID, models.ProductFilters{})
	if err != nil {
		return fmt.Errorf("failed to load products for export: %w", err)
	}

	f, err := newStyledSheet(productSheet, productColumns)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	defer f.Close()

	for i, p := range products {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			utils.StringValue(p.SKU),
			p.Name,
			utils.StringValue(p.CategoryName),
			p.Unit,
			p.Price.InexactFloat64(),
			boolCell(p.IsActive),
			boolCell(p.SendsToKitchen),
			utils.StringValue(p.Description),
		}
		if err := f.SetSheetRow(productSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write product row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type importRow struct {
	line           int
	sku            *string
	name           string
	category       string
	unit           string
	price          decimal.Decimal
	isActive       bool
	sendsToKitchen bool
	description    *string
}

// parseProductRows maps the sheet by header names so columns may come in any order.
func parseProductRows(rows [][]string) ([]importRow, []ImportRowError, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: the sheet is empty", ErrImportFile)
	}
	index := map[string]int{}
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "unit", "price"} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %q", ErrImportFile, required)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parsed []importRow
	var skipped []ImportRowError
	for n, row := range rows[1:] {
		line := n + 2
		name := cell(row, "name")
		if name == "" && cell(row, "sku") == "" && cell(row, "price") == "" {
			continue
		}
		if name == "" {
			skipped = append(skipped, ImportRowError{Row: line, Message: "name is required"})
			continue
		}
		unit := strings.ToLower(cell(row, "unit"))
		if !models.IsValidUnit(unit) {
			skipped = append(skipped, ImportRowError{Row: line, Message: fmt.Sprintf("unknown unit %q", unit)})
			continue
		}
		price, err := decimal.NewFromString(strings.ReplaceAll(cell(row, "price"), ",", "."))
		if err != nil || price.IsNegative() {
			skipped = append(skipped, ImportRowError{Row: line, Message: "price must be a non-negative number"})
			continue
		}
		parsed = append(parsed, importRow{
			line:           line,
			sku:            utils.NewNullString(cell(row, "sku")),
			name:           name,
			category:       cell(row, "category"),
			unit:           unit,
			price:          utils.RoundMoney(price),
			isActive:       parseBoolCell(cell(row, "active"), true),
			sendsToKitchen: parseBoolCell(cell(row, "sends to kitchen"), true),
			description:    utils.NewNullString(cell(row, "description")),
		})
	}
	return parsed, skipped, nil
}

// ImportProducts upserts products from the first sheet of an xlsx workbook. Rows match
// existing products by SKU, else by name. Unknown categories are created. Invalid rows
// are reported and skipped; everything else is applied in one transaction.
func (s *catalogService) ImportProducts(ctx context.Context, tenantID int64, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrImportFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFile, err)
	}
	parsed, skipped, err := parseProductRows(rows)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Skipped: skipped}
	if result.Skipped == nil {
		result.Skipped = []ImportRowError{}
	}

	categories, err := s.catalogRepo.GetCategories(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[strings.ToLower(c.Name)] = c.ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range parsed {
		var categoryID *int64
		if row.category != "" {
			id, ok := categoryIDs[strings.ToLower(row.category)]
			if !ok {
				category := &models.Category{TenantID: tenantID, Name: row.category}
				if _, err := s.catalogRepo.CreateCategory(ctx, tx, category); err != nil {
					return nil, fmt.Errorf("row %d: failed to create category: %w", row.line, err)
				}
				id = category.ID
				categoryIDs[strings.ToLower(row.category)] = id
			}
			categoryID = &id
		}

		existing, err := s.catalogRepo.FindProductForImport(ctx, tx, tenantID, row.sku, row.name)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("row %d: failed to look up product: %w", row.line, err)
		}

		if existing != nil {
			existing.CategoryID = categoryID
			existing.Name = row.name
			if row.sku != nil {
				existing.SKU = row.sku
			}
			existing.Unit = row.unit
			existing.Price = row.price
			existing.IsActive = row.isActive
			existing.SendsToKitchen = row.sendsToKitchen
			if row.description != nil {
				existing.Description = row.description
			}
			if err := s.catalogRepo.UpdateProduct(ctx, tx, existing); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return nil, fmt.Errorf("row %d: %w", row.line, ErrProductSKUExists)
				}
				return nil, fmt.Errorf("row %d: failed to update product: %w", row.line, err)
			}
			result.Updated++
			continue
		}

		if err := s.guard.check(ctx, tx, tenantID, plans.ResourceProducts); err != nil {
			if errors.Is(err, ErrPlanLimitReached) {
				result.Skipped = append(result.Skipped, ImportRowError{Row: row.line, Message: err.Error()})
				continue
			}
			return nil, err
		}
		product := &models.Product{
			TenantID:       tenantID,
			CategoryID:     categoryID,
			Name:           row.name,
			SKU:            row.sku,
			Description:    row.description,
			Price:          row.price,
			Unit:           row.unit,
			IsActive:       row.isActive,
			SendsToKitchen: row.sendsToKitchen,
		}
		if _, err := s.catalogRepo.CreateProduct(ctx, tx, product); err != nil {
			return nil, fmt.Errorf("row %d: failed to create product: %w", row.line, err)
		}
		result.Created++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import transaction: %w", err)
	}
	return result, nil
}

// addSheet appends a sheet with a header row and n data rows produced by row.
func addSheet(f *excelize.File, name string, header []string, n int, row func(i int) []interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", name, err)
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &head); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", name, err)
	}
	for i := 0; i < n; i++ {
		values := row(i)
		if err := f.SetSheetRow(name, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, name, err)
		}
	}
	return nil
}
