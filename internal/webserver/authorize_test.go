package webserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doAuthorized(t *testing.T, pol policy.Policy, method string, caller *policy.Caller) error {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		c.Set(ctxKeyCaller, *caller)
	}

	handler := Authorize(pol)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return handler(c)
}

func TestAuthorizeDeniesUnauthenticated(t *testing.T) {
	err := doAuthorized(t, policy.AdminWriteAnyRead, http.MethodGet, nil)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestAuthorizeDeniesUserWrites(t *testing.T) {
	user := policy.Caller{ID: 2, Username: "clerk", Role: domain.RoleUser, Authenticated: true}

	assert.NoError(t, doAuthorized(t, policy.AdminWriteAnyRead, http.MethodGet, &user))

	err := doAuthorized(t, policy.AdminWriteAnyRead, http.MethodPost, &user)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)

	err = doAuthorized(t, policy.AdminOnly, http.MethodGet, &user)
	assert.Error(t, err, "sales surface is closed to non-admins even for reads")
}

func TestAuthorizeAllowsAdmin(t *testing.T) {
	admin := policy.Caller{ID: 1, Username: "root", Role: domain.RoleAdmin, Authenticated: true}

	assert.NoError(t, doAuthorized(t, policy.AdminOnly, http.MethodPost, &admin))
	assert.NoError(t, doAuthorized(t, policy.AdminOnly, http.MethodDelete, &admin))
	assert.NoError(t, doAuthorized(t, policy.AdminWriteAnyRead, http.MethodPut, &admin))
}
