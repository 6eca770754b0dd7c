package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"
)

// AuthRepository defines the database operations on users.
type AuthRepository interface {
	CreateUser(ctx context.Context, executor SQLExecutor, user *models.User, hashedPassword string) (int64, error)
	// FindUserByUsername returns the user, their password hash and whether their tenant is active.
	FindUserByUsername(ctx context.Context, username string) (*models.User, string, bool, error)
	FindUserByID(ctx context.Context, userID int64) (*models.User, bool, error)
	GetUsersByTenant(ctx context.Context, tenantID int64) ([]models.User, error)
	UpdateUser(ctx context.Context, executor SQLExecutor, user *models.User) error
	UpdatePassword(ctx context.Context, executor SQLExecutor, tenantID, userID int64, hashedPassword string) error
}

type authRepository struct {
	db *sql.DB
}

// NewAuthRepository creates a new instance of AuthRepository.
func NewAuthRepository(db *sql.DB) AuthRepository {
	return &authRepository{db: db}
}

const userSelect = `SELECT u.id, u.tenant_id, u.username, u.password_hash, u.full_name, u.role, u.is_active,
	       u.created_at, u.updated_at, COALESCE(t.is_active, TRUE) AS tenant_active
	FROM users u
	LEFT JOIN tenants t ON u.tenant_id = t.id`

func scanUser(row scanner, user *models.User, tenantActive *bool) error {
	var tenantID sql.NullInt64
	err := row.Scan(&user.ID, &tenantID, &user.Username, &user.PasswordHash, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, tenantActive)
	if err != nil {
		return err
	}
	if tenantID.Valid {
		user.TenantID = &tenantID.Int64
	}
	return nil
}

// CreateUser inserts a new active user.
func (r *authRepository) CreateUser(ctx context.Context, executor SQLExecutor, user *models.User, hashedPassword string) (int64, error) {
	query := `INSERT INTO users (tenant_id, username, password_hash, full_name, role, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query, user.TenantID, user.Username, hashedPassword, user.FullName, user.Role, now).Scan(&user.ID)
	if err != nil {
		return 0, mapDBError(err, "creating user")
	}
	user.IsActive = true
	user.CreatedAt, user.UpdatedAt = now, now
	return user.ID, nil
}

func (r *authRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, string, bool, error) {
	user := &models.User{}
	var tenantActive bool
	if err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.username = $1`, username), user, &tenantActive); err != nil {
		return nil, "", false, mapDBError(err, "finding user by username "+username)
	}
	hash := user.PasswordHash
	user.PasswordHash = ""
	return user, hash, tenantActive, nil
}

func (r *authRepository) FindUserByID(ctx context.Context, userID int64) (*models.User, bool, error) {
	user := &models.User{}
	var tenantActive bool
	if err := scanUser(r.db.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, userID), user, &tenantActive); err != nil {
		return nil, false, mapDBError(err, fmt.Sprintf("finding user by ID %d", userID))
	}
	user.PasswordHash = ""
	return user, tenantActive, nil
}

func (r *authRepository) GetUsersByTenant(ctx context.Context, tenantID int64) ([]models.User, error) {
	users := []models.User{}
	rows, err := r.db.QueryContext(ctx, userSelect+` WHERE u.tenant_id = $1 ORDER BY u.username`, tenantID)
	if err != nil {
		return nil, mapDBError(err, "querying users")
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		var tenantActive bool
		if err := scanUser(rows, &u, &tenantActive); err != nil {
			return nil, mapDBError(err, "scanning user")
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating user rows")
	}
	return users, nil
}

// UpdateUser writes full name, role and active flag. The tenant filter keeps
// admins from touching users of another restaurant.
func (r *authRepository) UpdateUser(ctx context.Context, executor SQLExecutor, user *models.User) error {
	query := `UPDATE users SET full_name = $1, role = $2, is_active = $3, updated_at = $4
	          WHERE id = $5 AND tenant_id = $6`
	user.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, query, user.FullName, user.Role, user.IsActive, user.UpdatedAt, user.ID, user.TenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating user ID %d", user.ID))
	}
	return expectOneRow(result, "user update")
}

func (r *authRepository) UpdatePassword(ctx context.Context, executor SQLExecutor, tenantID, userID int64, hashedPassword string) error {
	result, err := executor.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
		hashedPassword, time.Now(), userID, tenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating password of user ID %d", userID))
	}
	return expectOneRow(result, "password update")
}
