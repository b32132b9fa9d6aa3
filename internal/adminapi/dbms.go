package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/internal/webserver"
)

// DBMSTableInfo represents table metadata
type DBMSTableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// browsableTables whitelists the tables exposed by the read-only browser.
var browsableTables = map[string]interface{}{
	domain.SysConfig{}.TableName(): &domain.SysConfig{},
	domain.SysUser{}.TableName():   &domain.SysUser{},
	domain.SysOprLog{}.TableName(): &domain.SysOprLog{},
	domain.Category{}.TableName():  &domain.Category{},
	domain.Product{}.TableName():   &domain.Product{},
	domain.Sale{}.TableName():      &domain.Sale{},
}

// registerDbmsRoutes registers the admin-only read-only table browser.
func registerDbmsRoutes() {
	acl := webserver.Authorize(policy.AdminOnly)
	webserver.ApiGET("/dbms/tables", listTables, acl)
	webserver.ApiGET("/dbms/tables/:name/rows", browseTableRows, acl)
}

func listTables(c echo.Context) error {
	infos := make([]DBMSTableInfo, 0, len(browsableTables))
	for name, model := range browsableTables {
		var count int64
		if err := GetDB(c).Model(model).Count(&count).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query tables", err.Error())
		}
		infos = append(infos, DBMSTableInfo{Name: name, RowCount: count})
	}
	return ok(c, infos)
}

func browseTableRows(c echo.Context) error {
	name := c.Param("name")
	if _, allowed := browsableTables[name]; !allowed {
		return fail(c, http.StatusNotFound, "TABLE_NOT_FOUND", "Unknown table", nil)
	}

	page, pageSize := parsePagination(c)

	var total int64
	if err := GetDB(c).Table(name).Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query table", err.Error())
	}

	var rows []map[string]interface{}
	if err := GetDB(c).Table(name).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query table", err.Error())
	}

	// Never expose password hashes through the browser.
	if name == (domain.SysUser{}).TableName() {
		for _, row := range rows {
			delete(row, "password")
		}
	}

	return paged(c, rows, total, page, pageSize)
}
