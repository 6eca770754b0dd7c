package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"
)

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrTableNameExists = errors.New("table name already exists")
	ErrTableOccupied   = errors.New("table is occupied")
)

type CreateTableRequest struct {
	Name  string `json:"name" binding:"required,max=60"`
	Seats int    `json:"seats" binding:"omitempty,gt=0,lte=100"`
}

type UpdateTableRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=60"`
	Seats *int    `json:"seats" binding:"omitempty,gt=0,lte=100"`
}

type TableService interface {
	CreateTable(ctx context.Context, tenantID int64, req CreateTableRequest) (*models.DiningTable, error)
	GetTableByID(ctx context.Context, tenantID, id int64) (*models.DiningTable, error)
	GetTables(ctx context.Context, tenantID int64) ([]models.DiningTable, error)
	UpdateTable(ctx context.Context, tenantID, id int64, req UpdateTableRequest) (*models.DiningTable, error)
	DeleteTable(ctx context.Context, tenantID, id int64) error
}

type tableService struct {
	tableRepo repositories.TableRepository
	guard     *planGuard
	db        *sql.DB
}

// NewTableService creates a new instance of TableService.
func NewTableService(tableRepo repositories.TableRepository, tenantRepo repositories.TenantRepository, catalog *plans.Catalog, db *sql.DB) TableService {
	return &tableService{tableRepo: tableRepo, guard: newPlanGuard(tenantRepo, catalog), db: db}
}

func (s *tableService) CreateTable(ctx context.Context, tenantID int64, req CreateTableRequest) (*models.DiningTable, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: table name cannot be empty", ErrValidation)
	}
	seats := req.Seats
	if seats == 0 {
		seats = 4
	}
	if err := s.guard.check(ctx, s.db, tenantID, plans.ResourceTables); err != nil {
		return nil, err
	}
	table := &models.DiningTable{TenantID: tenantID, Name: name, Seats: seats, Status: models.TableStatusFree}
	if _, err := s.tableRepo.CreateTable(ctx, s.db, table); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrTableNameExists
		}
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return table, nil
}

func (s *tableService) GetTableByID(ctx context.Context, tenantID, id int64) (*models.DiningTable, error) {
	table, err := s.tableRepo.GetTableByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return table, nil
}

func (s *tableService) GetTables(ctx context.Context, tenantID int64) ([]models.DiningTable, error) {
	tables, err := s.tableRepo.GetTables(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	return tables, nil
}

func (s *tableService) UpdateTable(ctx context.Context, tenantID, id int64, req UpdateTableRequest) (*models.DiningTable, error) {
	table, err := s.GetTableByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: table name cannot be empty", ErrValidation)
		}
		table.Name = name
	}
	if req.Seats != nil {
		table.Seats = *req.Seats
	}
	if err := s.tableRepo.UpdateTable(ctx, s.db, table); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrTableNameExists
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to update table: %w", err)
	}
	return table, nil
}

func (s *tableService) DeleteTable(ctx context.Context, tenantID, id int64) error {
	table, err := s.GetTableByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if table.Status == models.TableStatusOccupied {
		return ErrTableOccupied
	}
	err = s.tableRepo.DeleteTable(ctx, s.db, tenantID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrInUse):
		return ErrTableOccupied
	case errors.Is(err, repositories.ErrNotFound):
		return ErrTableNotFound
	}
	return fmt.Errorf("failed to delete table: %w", err)
}
