package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	ConfigureJWT("utils-test-secret", time.Minute, time.Hour)
	tenantID := int64(4)

	access, err := GenerateAccessToken(9, "ana", "cashier", &tenantID)
	require.NoError(t, err)
	claims, err := ValidateToken(access, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.UserID)
	assert.Equal(t, "cashier", claims.Role)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, tenantID, *claims.TenantID)

	_, err = ValidateToken(access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	refresh, err := GenerateRefreshToken(9)
	require.NoError(t, err)
	claims, err = ValidateToken(refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)

	_, err = ValidateToken(access+"x", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ConfigureJWT("another-secret", 0, 0)
	_, err = ValidateToken(access, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	ConfigureJWT("utils-test-secret", 0, 0)
}

func TestMoney(t *testing.T) {
	d := decimal.RequireFromString
	assert.Equal(t, "10.13", RoundMoney(d("10.125")).String())
	assert.Equal(t, "-10.13", RoundMoney(d("-10.125")).String())
	assert.True(t, MoneyEqual(d("25.00"), d("24.99")))
	assert.True(t, MoneyEqual(d("25.00"), d("25.01")))
	assert.False(t, MoneyEqual(d("25.00"), d("24.98")))
}

func TestValidationDetails(t *testing.T) {
	type payload struct {
		Name string `validate:"required"`
		Qty  int    `validate:"min=1"`
	}
	err := validator.New().Struct(payload{Qty: 0})
	details := ValidationDetails(err)
	assert.Equal(t, "required", details["payload.Name"])
	assert.Equal(t, "min=1", details["payload.Qty"])

	details = ValidationDetails(errors.New("unexpected EOF"))
	assert.Equal(t, "unexpected EOF", details["body"])
}

func TestStringHelpers(t *testing.T) {
	assert.Nil(t, NewNullString("  "))
	require.NotNil(t, NewNullString("sku-1"))
	assert.Equal(t, "", StringValue(nil))

	v, err := OptionalInt64("")
	assert.NoError(t, err)
	assert.Nil(t, v)
	v, err = OptionalInt64("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), *v)
	_, err = OptionalInt64("1x")
	assert.Error(t, err)
}
