package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// --- Custom Service Errors ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTokenGeneration    = errors.New("failed to generate token")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest DTO
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse DTO
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

// --- AuthService Interface ---
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
	EnsureSuperadmin(ctx context.Context, username, password string) error
}

// --- authService Implementation ---
type authService struct {
	authRepo repositories.AuthRepository
	db       *sql.DB
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(authRepo repositories.AuthRepository, db *sql.DB) AuthService {
	return &authService{authRepo: authRepo, db: db}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *authService) issueTokens(user *models.User, withRefresh bool) (*AuthResponse, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID, user.Username, user.Role, user.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	resp := &AuthResponse{User: user, AccessToken: accessToken}
	if withRefresh {
		refreshToken, err := utils.GenerateRefreshToken(user.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
		}
		resp.RefreshToken = refreshToken
	}
	return resp, nil
}

// Login checks the credentials and issues an access/refresh token pair.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, storedHashedPassword, tenantActive, err := s.authRepo.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHashedPassword), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !tenantActive {
		return nil, ErrTenantInactive
	}
	return s.issueTokens(user, true)
}

// Refresh exchanges a refresh token for a new access token. Role and tenant are
// reloaded so changes made by an admin apply from the next refresh.
func (s *authService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	claims, err := utils.ValidateToken(req.RefreshToken, utils.TokenTypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	user, tenantActive, err := s.authRepo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("failed to load user for refresh: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !tenantActive {
		return nil, ErrTenantInactive
	}
	return s.issueTokens(user, false)
}

func (s *authService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, _, err := s.authRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return user, nil
}

// EnsureSuperadmin creates the platform superadmin on first start. An existing
// account with that username is left untouched.
func (s *authService) EnsureSuperadmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: superadmin username and password are required", ErrValidation)
	}
	existing, _, _, err := s.authRepo.FindUserByUsername(ctx, username)
	if err == nil {
		if existing.Role != models.RoleSuperadmin {
			return fmt.Errorf("%w: username %q belongs to a tenant user", ErrUsernameExists, username)
		}
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to look up superadmin: %w", err)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	user := &models.User{Username: username, Role: models.RoleSuperadmin}
	if _, err := s.authRepo.CreateUser(ctx, s.db, user, hashed); err != nil {
		return fmt.Errorf("failed to create superadmin: %w", err)
	}
	utils.LogInfo("Superadmin account created", map[string]interface{}{"username": username})
	return nil
}
