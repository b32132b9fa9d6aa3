package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/internal/webserver"
	"github.com/stockpile-io/stockpile/pkg/common"
)

type categoryPayload struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty"`
}

type categoryUpdatePayload struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

// registerCategoryRoutes registers category CRUD endpoints. Reads are open
// to any authenticated caller, writes require admin.
func registerCategoryRoutes() {
	acl := webserver.Authorize(policy.AdminWriteAnyRead)
	webserver.ApiGET("/categories", listCategories, acl)
	webserver.ApiGET("/categories/:id", getCategory, acl)
	webserver.ApiPOST("/categories", createCategory, acl)
	webserver.ApiPUT("/categories/:id", updateCategory, acl)
	webserver.ApiDELETE("/categories/:id", deleteCategory, acl)
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Category{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("name ILIKE ? OR description ILIKE ?", "%"+q+"%", "%"+q+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?",
				"%"+strings.ToLower(q)+"%", "%"+strings.ToLower(q)+"%")
		}
	}

	sortCol := sortColumn(c, map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}, "name")
	order := sortOrder(c, "ASC")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var rows []domain.Category
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	return ok(c, cat)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	payload.Name = strings.TrimSpace(payload.Name)

	var exists int64
	GetDB(c).Model(&domain.Category{}).Where("name = ?", payload.Name).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	}

	cat := domain.Category{
		ID:          common.UUIDint64(),
		Name:        payload.Name,
		Description: payload.Description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := GetDB(c).Create(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}

	writeOprLog(c, "category_create", cat.Name)
	return ok(c, cat)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var payload categoryUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name != cat.Name {
			var exists int64
			GetDB(c).Model(&domain.Category{}).Where("name = ? AND id != ?", name, id).Count(&exists)
			if exists > 0 {
				return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
			}
			cat.Name = name
		}
	}
	if payload.Description != nil {
		cat.Description = *payload.Description
	}
	cat.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&cat).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}

	writeOprLog(c, "category_update", cat.Name)
	return ok(c, cat)
}

// deleteCategory removes a category and, through the FK constraint, its
// products.
func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Category{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}

	writeOprLog(c, "category_delete", cat.Name)
	return ok(c, map[string]interface{}{"id": id})
}
