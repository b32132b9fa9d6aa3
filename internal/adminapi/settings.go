package adminapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/internal/webserver"
)

type settingPayload struct {
	Type  string `json:"type" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// registerSettingsRoutes registers system settings endpoints (admin only).
func registerSettingsRoutes() {
	acl := webserver.Authorize(policy.AdminOnly)
	webserver.ApiGET("/settings", listSettings, acl)
	webserver.ApiPUT("/settings", updateSetting, acl)
}

func listSettings(c echo.Context) error {
	var rows []domain.SysConfig
	if err := GetDB(c).Order("sort ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}
	return ok(c, rows)
}

func updateSetting(c echo.Context) error {
	var payload settingPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse setting parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var cfg domain.SysConfig
	err := GetDB(c).Where("type = ? AND name = ?", payload.Type, payload.Name).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SETTING_NOT_FOUND", "Setting not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query setting", err.Error())
	}

	cfg.Value = payload.Value
	cfg.UpdatedAt = time.Now()
	if err := GetDB(c).Save(&cfg).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update setting", err.Error())
	}

	appctx.SettingsMgr().Invalidate()
	writeOprLog(c, "setting_update", payload.Type+"."+payload.Name)
	return ok(c, cfg)
}
