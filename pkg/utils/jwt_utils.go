package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	tokenIssuer = "restaurant-pos-backend"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

var (
	jwtMu           sync.RWMutex
	jwtSecretKey    = []byte("change-me-in-production")
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// ConfigureJWT sets the signing secret and token lifetimes. Zero durations keep the defaults.
func ConfigureJWT(secret string, accessTTL, refreshTTL time.Duration) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	if secret != "" {
		jwtSecretKey = []byte(secret)
	}
	if accessTTL > 0 {
		accessTokenTTL = accessTTL
	}
	if refreshTTL > 0 {
		refreshTokenTTL = refreshTTL
	}
}

// Claims defines the JWT claims structure.
// TenantID is nil for the superadmin.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func signClaims(claims *Claims, ttl time.Duration) (string, error) {
	jwtMu.RLock()
	key := jwtSecretKey
	jwtMu.RUnlock()

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// GenerateAccessToken creates a new JWT access token.
func GenerateAccessToken(userID int64, username, role string, tenantID *int64) (string, error) {
	jwtMu.RLock()
	ttl := accessTokenTTL
	jwtMu.RUnlock()

	signed, err := signClaims(&Claims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		TenantID:  tenantID,
		TokenType: TokenTypeAccess,
	}, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken creates a new JWT refresh token. Only the user id is carried;
// role and tenant are reloaded from the database on refresh.
func GenerateRefreshToken(userID int64) (string, error) {
	jwtMu.RLock()
	ttl := refreshTokenTTL
	jwtMu.RUnlock()

	signed, err := signClaims(&Claims{UserID: userID, TokenType: TokenTypeRefresh}, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT token string of the expected type.
func ValidateToken(tokenString, expectedType string) (*Claims, error) {
	jwtMu.RLock()
	key := jwtSecretKey
	jwtMu.RUnlock()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
