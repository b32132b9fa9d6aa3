package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/internal/webserver"
	"github.com/stockpile-io/stockpile/pkg/common"
)

type productPayload struct {
	Name        string          `json:"name" validate:"required,min=1,max=255"`
	Category    int64           `json:"category,string" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Quantity    *int            `json:"quantity" validate:"omitempty,min=0"`
	Description string          `json:"description"`
	Image       string          `json:"image" validate:"omitempty,max=1024"`
}

type productUpdatePayload struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Category    *int64           `json:"category,string"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity" validate:"omitempty,min=0"`
	Description *string          `json:"description"`
	Image       *string          `json:"image" validate:"omitempty,max=1024"`
}

type stockAdjustPayload struct {
	Quantity *json.Number `json:"quantity"`
}

// registerProductRoutes registers product CRUD endpoints plus the low-stock
// listing and the admin stock adjustment.
func registerProductRoutes() {
	acl := webserver.Authorize(policy.AdminWriteAnyRead)
	webserver.ApiGET("/products", listProducts, acl)
	webserver.ApiGET("/products/low_stock", listLowStockProducts, acl)
	webserver.ApiGET("/products/:id", getProduct, acl)
	webserver.ApiPOST("/products", createProduct, acl)
	webserver.ApiPUT("/products/:id", updateProduct, acl)
	webserver.ApiDELETE("/products/:id", deleteProduct, acl)
	// The adjustment enforces its own admin check in the handler, on top of
	// whatever the containing route group allows.
	webserver.ApiPOST("/products/:id/update_stock", updateProductStock, acl)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	threshold := appctx.SettingsMgr().StockThreshold()

	db := GetDB(c).Model(&domain.Product{}).
		Joins("LEFT JOIN categories ON categories.id = products.category_id")

	if cat := strings.TrimSpace(c.QueryParam("category")); cat != "" {
		db = db.Where("products.category_id = ?", cat)
	}
	switch strings.ToLower(strings.TrimSpace(c.QueryParam("is_low_stock"))) {
	case "true", "1":
		db = db.Where("products.quantity <= ?", threshold)
	case "false", "0":
		db = db.Where("products.quantity > ?", threshold)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
			db = db.Where("products.name ILIKE ? OR products.description ILIKE ? OR categories.name ILIKE ?",
				"%"+q+"%", "%"+q+"%", "%"+q+"%")
		} else {
			like := "%" + strings.ToLower(q) + "%"
			db = db.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(categories.name) LIKE ?",
				like, like, like)
		}
	}

	sortCol := sortColumn(c, map[string]string{
		"name":       "products.name",
		"price":      "products.price",
		"quantity":   "products.quantity",
		"created_at": "products.created_at",
	}, "products.name")
	order := sortOrder(c, "ASC")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	decorateProducts(c, rows, threshold)
	return paged(c, rows, total, page, pageSize)
}

// listLowStockProducts serves the dedicated low-stock listing. The threshold
// here is a fixed operational constant, not the configurable setting.
func listLowStockProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	products, err := ledger.LowStockProducts(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	total := int64(len(products))
	start := (page - 1) * pageSize
	if start > len(products) {
		start = len(products)
	}
	end := start + pageSize
	if end > len(products) {
		end = len(products)
	}
	rows := products[start:end]

	decorateProducts(c, rows, appctx.SettingsMgr().StockThreshold())
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	rows := []domain.Product{p}
	decorateProducts(c, rows, appctx.SettingsMgr().StockThreshold())
	return ok(c, rows[0])
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.Price.IsNegative() {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must not be negative", nil)
	}

	var cat domain.Category
	if err := GetDB(c).Where("id = ?", payload.Category).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Category does not exist", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	quantity := 0
	if payload.Quantity != nil {
		quantity = *payload.Quantity
	}

	p := domain.Product{
		ID:          common.UUIDint64(),
		Name:        strings.TrimSpace(payload.Name),
		CategoryID:  cat.ID,
		Price:       payload.Price,
		Quantity:    quantity,
		Description: payload.Description,
		Image:       strings.TrimSpace(payload.Image),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := GetDB(c).Create(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}

	writeOprLog(c, "product_create", p.Name)
	rows := []domain.Product{p}
	decorateProducts(c, rows, appctx.SettingsMgr().StockThreshold())
	return ok(c, rows[0])
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	if payload.Category != nil {
		var cat domain.Category
		if err := GetDB(c).Where("id = ?", *payload.Category).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Category does not exist", nil)
		} else if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
		}
		p.CategoryID = cat.ID
	}
	if payload.Name != nil {
		p.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Price != nil {
		if payload.Price.IsNegative() {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must not be negative", nil)
		}
		p.Price = *payload.Price
	}
	if payload.Quantity != nil {
		p.Quantity = *payload.Quantity
	}
	if payload.Description != nil {
		p.Description = *payload.Description
	}
	if payload.Image != nil {
		p.Image = strings.TrimSpace(*payload.Image)
	}
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}

	writeOprLog(c, "product_update", p.Name)
	rows := []domain.Product{p}
	decorateProducts(c, rows, appctx.SettingsMgr().StockThreshold())
	return ok(c, rows[0])
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Product{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}

	writeOprLog(c, "product_delete", p.Name)
	return ok(c, map[string]interface{}{"id": id})
}

// updateProductStock sets the quantity directly, bypassing the sale path.
// Admin is re-checked here regardless of the route group's policy; negative
// values are accepted as an explicit administrative override.
func updateProductStock(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	if !currentCaller(c).IsAdmin() {
		return permissionDenied(c)
	}

	var payload stockAdjustPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse parameters", nil)
	}
	if payload.Quantity == nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "This field is required.",
			map[string]string{"quantity": "This field is required."})
	}
	quantity, err := payload.Quantity.Int64()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Must be an integer.",
			map[string]string{"quantity": "Must be an integer."})
	}

	p, err := ledger.AdjustStock(c.Request().Context(), id, int(quantity))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to adjust stock", err.Error())
	}

	writeOprLog(c, "stock_adjust", p.Name)
	rows := []domain.Product{*p}
	decorateProducts(c, rows, appctx.SettingsMgr().StockThreshold())
	return ok(c, rows[0])
}

// decorateProducts fills the derived category_name and is_low_stock fields.
func decorateProducts(c echo.Context, rows []domain.Product, threshold int) {
	if len(rows) == 0 {
		return
	}

	ids := make([]int64, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].CategoryID)
	}

	var cats []domain.Category
	GetDB(c).Where("id IN ?", ids).Find(&cats)
	names := make(map[int64]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}

	for i := range rows {
		rows[i].CategoryName = names[rows[i].CategoryID]
		rows[i].IsLowStock = rows[i].LowStock(threshold)
	}
}
