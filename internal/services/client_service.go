package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"
)

// --- Custom Service Errors for Client ---
var (
	ErrClientNotFound       = errors.New("client not found")
	ErrClientDocumentExists = errors.New("a client with this document number already exists")
	ErrClientInUse          = errors.New("client cannot be deleted as invoices reference them")
)

// --- Client DTOs ---
type CreateClientRequest struct {
	FullName       string  `json:"full_name" binding:"required,max=150"`
	DocumentNumber *string `json:"document_number" binding:"omitempty,max=40"`
	Phone          *string `json:"phone" binding:"omitempty,max=40"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Address        *string `json:"address"`
	Notes          *string `json:"notes"`
}

type UpdateClientRequest struct {
	FullName       *string `json:"full_name" binding:"omitempty,max=150"`
	DocumentNumber *string `json:"document_number" binding:"omitempty,max=40"`
	Phone          *string `json:"phone" binding:"omitempty,max=40"`
	Email          *string `json:"email" binding:"omitempty,email"`
	Address        *string `json:"address"`
	Notes          *string `json:"notes"`
}

// --- ClientService Interface ---
type ClientService interface {
	CreateClient(ctx context.Context, tenantID int64, req CreateClientRequest) (*models.Client, error)
	GetClientByID(ctx context.Context, tenantID, clientID int64) (*models.Client, error)
	GetClients(ctx context.Context, tenantID int64, page, pageSize int, search string) ([]models.Client, int, error)
	UpdateClient(ctx context.Context, tenantID, clientID int64, req UpdateClientRequest) (*models.Client, error)
	DeleteClient(ctx context.Context, tenantID, clientID int64) error
}

// --- clientService Implementation ---
type clientService struct {
	clientRepo  repositories.ClientRepository
	invoiceRepo repositories.InvoiceRepository
	db          *sql.DB
}

// NewClientService creates a new instance of ClientService.
func NewClientService(clientRepo repositories.ClientRepository, invoiceRepo repositories.InvoiceRepository, db *sql.DB) ClientService {
	return &clientService{clientRepo: clientRepo, invoiceRepo: invoiceRepo, db: db}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	return utils.NewNullString(*s)
}

func (s *clientService) CreateClient(ctx context.Context, tenantID int64, req CreateClientRequest) (*models.Client, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name cannot be empty", ErrValidation)
	}
	client := &models.Client{
		TenantID:       tenantID,
		FullName:       name,
		DocumentNumber: trimmed(req.DocumentNumber),
		Phone:          trimmed(req.Phone),
		Email:          trimmed(req.Email),
		Address:        trimmed(req.Address),
		Notes:          req.Notes,
	}
	if _, err := s.clientRepo.CreateClient(ctx, s.db, client); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrClientDocumentExists
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *clientService) GetClientByID(ctx context.Context, tenantID, clientID int64) (*models.Client, error) {
	client, err := s.clientRepo.GetClientByID(ctx, s.db, tenantID, clientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

func (s *clientService) GetClients(ctx context.Context, tenantID int64, page, pageSize int, search string) ([]models.Client, int, error) {
	clients, total, err := s.clientRepo.GetClients(ctx, tenantID, search, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get clients: %w", err)
	}
	return clients, total, nil
}

func (s *clientService) UpdateClient(ctx context.Context, tenantID, clientID int64, req UpdateClientRequest) (*models.Client, error) {
	client, err := s.GetClientByID(ctx, tenantID, clientID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty", ErrValidation)
		}
		client.FullName = name
	}
	if req.DocumentNumber != nil {
		client.DocumentNumber = trimmed(req.DocumentNumber)
	}
	if req.Phone != nil {
		client.Phone = trimmed(req.Phone)
	}
	if req.Email != nil {
		client.Email = trimmed(req.Email)
	}
	if req.Address != nil {
		client.Address = trimmed(req.Address)
	}
	if req.Notes != nil {
		client.Notes = req.Notes
	}

	if err := s.clientRepo.UpdateClient(ctx, s.db, client); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrClientDocumentExists
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

// DeleteClient refuses clients that appear on invoices.
func (s *clientService) DeleteClient(ctx context.Context, tenantID, clientID int64) error {
	referenced, err := s.invoiceRepo.IsClientReferenced(ctx, tenantID, clientID)
	if err != nil {
		return fmt.Errorf("failed to check client invoices: %w", err)
	}
	if referenced {
		return ErrClientInUse
	}
	err = s.clientRepo.DeleteClient(ctx, s.db, tenantID, clientID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrInUse):
		return ErrClientInUse
	case errors.Is(err, repositories.ErrNotFound):
		return ErrClientNotFound
	}
	return fmt.Errorf("failed to delete client: %w", err)
}
