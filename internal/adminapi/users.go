package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/webserver"
	"github.com/stockpile-io/stockpile/pkg/common"
)

type registerPayload struct {
	Username  string `json:"username" validate:"required,min=1,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required"`
	Role      string `json:"role" validate:"omitempty,oneof=admin user"`
}

type tokenPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshPayload struct {
	Refresh string `json:"refresh" validate:"required"`
}

// registerAuthRoutes registers account and token endpoints. Registration and
// token issuance are public; the profile endpoint requires a valid token.
func registerAuthRoutes() {
	webserver.PubPOST("/auth/register", registerUser)
	webserver.PubPOST("/auth/token", obtainToken)
	webserver.PubPOST("/auth/token/refresh", refreshToken)
	webserver.ApiGET("/auth/me", currentUser)
}

func registerUser(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.Password != payload.Password2 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Password fields didn't match.",
			map[string]string{"password": "Password fields didn't match."})
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	var exists int64
	GetDB(c).Model(&domain.SysUser{}).Where("email = ?", email).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "USER_EXISTS", "Email already registered", nil)
	}

	role := domain.RoleUser
	if payload.Role != "" {
		role = strings.ToLower(payload.Role)
	}

	user := domain.SysUser{
		ID:        common.UUIDint64(),
		Username:  strings.TrimSpace(payload.Username),
		Email:     email,
		Password:  common.Sha256HashWithSalt(payload.Password, common.GetSecretSalt()),
		Role:      role,
		Status:    common.ENABLED,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := GetDB(c).Create(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", err.Error())
	}

	return ok(c, user)
}

func obtainToken(c echo.Context) error {
	var payload tokenPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse credentials", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email))

	var user domain.SysUser
	if err := GetDB(c).Where("email = ?", email).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	hashed := common.Sha256HashWithSalt(payload.Password, common.GetSecretSalt())
	if user.Password != hashed || !strings.EqualFold(user.Status, common.ENABLED) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}

	access, err := webserver.CreateToken(appctx.Config(), &user, webserver.TokenAccess)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}
	refresh, err := webserver.CreateToken(appctx.Config(), &user, webserver.TokenRefresh)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}

	GetDB(c).Model(&domain.SysUser{}).Where("id = ?", user.ID).Update("last_login", time.Now())

	return ok(c, map[string]string{
		"access":  access,
		"refresh": refresh,
	})
}

func refreshToken(c echo.Context) error {
	var payload refreshPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	claims, err := webserver.ParseToken(appctx.Config(), payload.Refresh)
	if err != nil || claims.Typ != webserver.TokenRefresh {
		return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Refresh token is invalid or expired", nil)
	}

	var user domain.SysUser
	if err := GetDB(c).Where("id = ?", claims.UID).First(&user).Error; err != nil {
		return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Account no longer exists", nil)
	}

	access, err := webserver.CreateToken(appctx.Config(), &user, webserver.TokenAccess)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}

	return ok(c, map[string]string{"access": access})
}

func currentUser(c echo.Context) error {
	caller := currentCaller(c)
	if !caller.Authenticated {
		return permissionDenied(c)
	}

	var user domain.SysUser
	if err := GetDB(c).Where("id = ?", caller.ID).First(&user).Error; err != nil {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	}
	return ok(c, user)
}
