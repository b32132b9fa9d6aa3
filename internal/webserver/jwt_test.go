package webserver

import (
	"testing"

	"github.com/stockpile-io/stockpile/config"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.AppConfig {
	cfg := *config.DefaultAppConfig
	cfg.Web.Secret = "test-secret"
	cfg.Web.JwtExpire = 60
	return &cfg
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	user := &domain.SysUser{
		ID:       12345,
		Username: "clerk",
		Email:    "clerk@example.com",
		Role:     domain.RoleUser,
	}

	tokenStr, err := CreateToken(cfg, user, TokenAccess)
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := ParseToken(cfg, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), claims.UID)
	assert.Equal(t, "clerk", claims.Username)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, TokenAccess, claims.Typ)
}

func TestRefreshTokenCarriesType(t *testing.T) {
	cfg := testConfig()
	user := &domain.SysUser{ID: 1, Username: "root", Role: domain.RoleAdmin}

	tokenStr, err := CreateToken(cfg, user, TokenRefresh)
	require.NoError(t, err)

	claims, err := ParseToken(cfg, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, claims.Typ)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	user := &domain.SysUser{ID: 1, Username: "root", Role: domain.RoleAdmin}

	tokenStr, err := CreateToken(cfg, user, TokenAccess)
	require.NoError(t, err)

	other := testConfig()
	other.Web.Secret = "different-secret"
	_, err = ParseToken(other, tokenStr)
	assert.Error(t, err)
}
