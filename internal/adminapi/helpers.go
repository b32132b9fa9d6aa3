package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stockpile-io/stockpile/internal/app"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/inventory"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/internal/webserver"
	"github.com/stockpile-io/stockpile/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	appctx *app.Application
	ledger *inventory.Service
)

// InitRouter wires all REST routes. Call after webserver.Init.
func InitRouter(a *app.Application, svc *inventory.Service) {
	appctx = a
	ledger = svc

	registerAuthRoutes()
	registerCategoryRoutes()
	registerProductRoutes()
	registerSaleRoutes()
	registerSettingsRoutes()
	registerDashboardRoutes()
	registerDbmsRoutes()
}

// GetDB returns the request-scoped gorm handle.
func GetDB(c echo.Context) *gorm.DB {
	return webserver.DB(c)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"code": 0,
		"data": data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"code":     0,
		"items":    rows,
		"total":    total,
		"page":     page,
		"per_page": pageSize,
	})
}

// parsePagination reads page/perPage query params with sane bounds.
func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize = 20
	perPage := c.QueryParam("perPage")
	if perPage == "" {
		perPage = c.QueryParam("pageSize")
	}
	if ps, err := strconv.Atoi(perPage); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// sortColumn maps the sort query param through a whitelist to avoid SQL
// injection; falls back to def.
func sortColumn(c echo.Context, allowed map[string]string, def string) string {
	field := strings.TrimSpace(c.QueryParam("sort"))
	if col, ok := allowed[field]; ok && col != "" {
		return col
	}
	return def
}

func sortOrder(c echo.Context, def string) string {
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		return def
	}
	return order
}

func handleValidationError(c echo.Context, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", fields)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
}

func permissionDenied(c echo.Context) error {
	return fail(c, http.StatusForbidden, "PERMISSION_DENIED",
		"You do not have permission to perform this action.", nil)
}

// writeOprLog records an admin mutation in the operation audit log.
func writeOprLog(c echo.Context, action, desc string) {
	caller := webserver.GetCaller(c)
	entry := domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   caller.Username,
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if err := GetDB(c).Create(&entry).Error; err != nil {
		zap.L().Warn("failed to write operation log", zap.Error(err))
	}
}

func currentCaller(c echo.Context) policy.Caller {
	return webserver.GetCaller(c)
}
