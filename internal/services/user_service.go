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

// --- User DTOs ---

type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,min=3,max=80"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name"`
	Role     string  `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// --- UserService Interface ---
type UserService interface {
	CreateUser(ctx context.Context, tenantID int64, req CreateUserRequest) (*models.User, error)
	GetUsers(ctx context.Context, tenantID int64) ([]models.User, error)
	UpdateUser(ctx context.Context, tenantID, actorID, userID int64, req UpdateUserRequest) (*models.User, error)
	ResetPassword(ctx context.Context, tenantID, userID int64, req ResetPasswordRequest) error
}

type userService struct {
	authRepo repositories.AuthRepository
	guard    *planGuard
	db       *sql.DB
}

// NewUserService creates a new instance of UserService.
func NewUserService(authRepo repositories.AuthRepository, tenantRepo repositories.TenantRepository, catalog *plans.Catalog, db *sql.DB) UserService {
	return &userService{authRepo: authRepo, guard: newPlanGuard(tenantRepo, catalog), db: db}
}

func (s *userService) CreateUser(ctx context.Context, tenantID int64, req CreateUserRequest) (*models.User, error) {
	if !models.IsValidTenantRole(req.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}
	if err := s.guard.check(ctx, s.db, tenantID, plans.ResourceUsers); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		TenantID: &tenantID,
		Username: strings.TrimSpace(req.Username),
		FullName: req.FullName,
		Role:     req.Role,
	}
	if _, err := s.authRepo.CreateUser(ctx, s.db, user, hashed); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *userService) GetUsers(ctx context.Context, tenantID int64) ([]models.User, error) {
	users, err := s.authRepo.GetUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (s *userService) getTenantUser(ctx context.Context, tenantID, userID int64) (*models.User, error) {
	user, _, err := s.authRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.TenantID == nil || *user.TenantID != tenantID {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser changes role, name or active flag. Admins cannot demote or
// deactivate themselves, so a tenant never loses its last way in by accident.
func (s *userService) UpdateUser(ctx context.Context, tenantID, actorID, userID int64, req UpdateUserRequest) (*models.User, error) {
	user, err := s.getTenantUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.Role != nil {
		if !models.IsValidTenantRole(*req.Role) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *req.Role)
		}
		if userID == actorID && *req.Role != user.Role {
			return nil, fmt.Errorf("%w: cannot change your own role", ErrForbidden)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		if userID == actorID && !*req.IsActive {
			return nil, fmt.Errorf("%w: cannot deactivate your own account", ErrForbidden)
		}
		if *req.IsActive && !user.IsActive {
			if err := s.guard.check(ctx, s.db, tenantID, plans.ResourceUsers); err != nil {
				return nil, err
			}
		}
		user.IsActive = *req.IsActive
	}

	if err := s.authRepo.UpdateUser(ctx, s.db, user); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userService) ResetPassword(ctx context.Context, tenantID, userID int64, req ResetPasswordRequest) error {
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.authRepo.UpdatePassword(ctx, s.db, tenantID, userID, hashed); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}
