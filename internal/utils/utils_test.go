package utils

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("s3cret", "tenant-a", "user-1", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = ValidateJWT("other", token)
	assert.Error(t, err)
}

func TestValidateJWT_RequiresTenant(t *testing.T) {
	token, err := GenerateJWT("s3cret", "", "user-1", time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT("s3cret", token)
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestGenerateDefaultCode(t *testing.T) {
	now := time.UnixMilli(1760601600000)
	code, err := GenerateDefaultCode("SKU", now)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^SKU-1760601600000-[0-9a-f]{4}$`), code)
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFound(ErrProductNotFound, "product %s not found", "p1"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.True(t, IsDomainError(err))
	assert.ErrorIs(t, err, ErrProductNotFound)

	plain := errors.New("dial tcp: refused")
	assert.Equal(t, ErrorKind(""), KindOf(plain))
	assert.False(t, IsDomainError(plain))
	assert.True(t, IsDomainError(Configuration(ErrStoreNotReady, "run migrations")))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 101)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 50, p.Limit)
	assert.Equal(t, 3, p.TotalPages)

	assert.Equal(t, 0, NewPagination(1, 10, 0).TotalPages)
}
