package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/inventory"
	"github.com/stockpile-io/stockpile/internal/policy"
	"github.com/stockpile-io/stockpile/internal/webserver"
)

type salePayload struct {
	Product   int64            `json:"product,string" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	SaleDate  *time.Time       `json:"sale_date"`
}

type saleUpdatePayload struct {
	Product   *int64           `json:"product,string"`
	Quantity  *int             `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	SaleDate  *time.Time       `json:"sale_date"`
}

type saleCSVRow struct {
	ID         int64  `csv:"id"`
	Product    string `csv:"product"`
	Quantity   int    `csv:"quantity"`
	UnitPrice  string `csv:"unit_price"`
	TotalPrice string `csv:"total_price"`
	SaleDate   string `csv:"sale_date"`
	CreatedBy  string `csv:"created_by"`
}

// registerSaleRoutes registers sale endpoints. All of them are admin-only.
func registerSaleRoutes() {
	acl := webserver.Authorize(policy.AdminOnly)
	webserver.ApiGET("/sales", listSales, acl)
	webserver.ApiGET("/sales/export", exportSales, acl)
	webserver.ApiGET("/sales/:id", getSale, acl)
	webserver.ApiPOST("/sales", createSale, acl)
	webserver.ApiPUT("/sales/:id", updateSale, acl)
	webserver.ApiDELETE("/sales/:id", deleteSale, acl)
}

// saleListQuery applies the sale filters shared by listing and export.
func saleListQuery(c echo.Context) (*gorm.DB, error) {
	db := GetDB(c).Model(&domain.Sale{})

	if pid := strings.TrimSpace(c.QueryParam("product")); pid != "" {
		db = db.Where("product_id = ?", pid)
	}
	if uid := strings.TrimSpace(c.QueryParam("created_by")); uid != "" {
		db = db.Where("created_by_id = ?", uid)
	}
	if start := strings.TrimSpace(c.QueryParam("start")); start != "" {
		t, err := dateparse.ParseAny(start)
		if err != nil {
			return nil, errors.New("invalid start date")
		}
		db = db.Where("sale_date >= ?", t)
	}
	if end := strings.TrimSpace(c.QueryParam("end")); end != "" {
		t, err := dateparse.ParseAny(end)
		if err != nil {
			return nil, errors.New("invalid end date")
		}
		db = db.Where("sale_date <= ?", t)
	}
	return db, nil
}

func listSales(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db, err := saleListQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	sortCol := sortColumn(c, map[string]string{
		"sale_date":   "sale_date",
		"quantity":    "quantity",
		"total_price": "total_price",
	}, "sale_date")
	order := sortOrder(c, "DESC")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}

	var rows []domain.Sale
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}

	decorateSales(c, rows)
	return paged(c, rows, total, page, pageSize)
}

func getSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sale ID", nil)
	}

	var sale domain.Sale
	if err := GetDB(c).Where("id = ?", id).First(&sale).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SALE_NOT_FOUND", "Sale not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sale", err.Error())
	}

	rows := []domain.Sale{sale}
	decorateSales(c, rows)
	return ok(c, rows[0])
}

func createSale(c echo.Context) error {
	var payload salePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse sale parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.UnitPrice != nil && payload.UnitPrice.IsNegative() {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unit price must not be negative", nil)
	}

	sale, err := ledger.CreateSale(c.Request().Context(), inventory.CreateSaleInput{
		ProductID: payload.Product,
		Quantity:  payload.Quantity,
		UnitPrice: payload.UnitPrice,
		SaleDate:  payload.SaleDate,
		CreatedBy: currentCaller(c).ID,
	})
	if err != nil {
		return failSaleError(c, err)
	}

	writeOprLog(c, "sale_create", sale.TotalPrice.StringFixed(2))
	rows := []domain.Sale{*sale}
	decorateSales(c, rows)
	return ok(c, rows[0])
}

func updateSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sale ID", nil)
	}

	var payload saleUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse sale parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	sale, err := ledger.UpdateSale(c.Request().Context(), id, inventory.UpdateSaleInput{
		ProductID: payload.Product,
		Quantity:  payload.Quantity,
		UnitPrice: payload.UnitPrice,
		SaleDate:  payload.SaleDate,
	})
	if err != nil {
		return failSaleError(c, err)
	}

	writeOprLog(c, "sale_update", sale.TotalPrice.StringFixed(2))
	rows := []domain.Sale{*sale}
	decorateSales(c, rows)
	return ok(c, rows[0])
}

func deleteSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sale ID", nil)
	}

	if err := ledger.DeleteSale(c.Request().Context(), id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SALE_NOT_FOUND", "Sale not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete sale", err.Error())
	}

	writeOprLog(c, "sale_delete", c.Param("id"))
	return ok(c, map[string]interface{}{"id": id})
}

// exportSales streams the filtered sales as CSV.
func exportSales(c echo.Context) error {
	db, err := saleListQuery(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}

	var sales []domain.Sale
	if err := db.Order("sale_date DESC").Find(&sales).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}
	decorateSales(c, sales)

	rows := make([]saleCSVRow, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, saleCSVRow{
			ID:         s.ID,
			Product:    s.ProductName,
			Quantity:   s.Quantity,
			UnitPrice:  s.UnitPrice.StringFixed(2),
			TotalPrice: s.TotalPrice.StringFixed(2),
			SaleDate:   s.SaleDate.Format(time.RFC3339),
			CreatedBy:  s.CreatedByUsername,
		})
	}

	data, err := gocsv.MarshalString(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render CSV", err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="sales.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(data))
}

func failSaleError(c echo.Context, err error) error {
	if ise, isStock := inventory.AsInsufficientStock(err); isStock {
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", ise.Error(),
			map[string]interface{}{"available": ise.Available})
	}
	if errors.Is(err, inventory.ErrInvalidQuantity) || errors.Is(err, inventory.ErrNegativeUnitPrice) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Referenced record not found", nil)
	}
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process sale", err.Error())
}

// decorateSales fills the derived product_name and created_by_username
// fields.
func decorateSales(c echo.Context, rows []domain.Sale) {
	if len(rows) == 0 {
		return
	}

	productIDs := make([]int64, 0, len(rows))
	userIDs := make([]int64, 0, len(rows))
	for i := range rows {
		productIDs = append(productIDs, rows[i].ProductID)
		userIDs = append(userIDs, rows[i].CreatedByID)
	}

	var products []domain.Product
	GetDB(c).Where("id IN ?", productIDs).Find(&products)
	productNames := make(map[int64]string, len(products))
	for _, p := range products {
		productNames[p.ID] = p.Name
	}

	var users []domain.SysUser
	GetDB(c).Where("id IN ?", userIDs).Find(&users)
	usernames := make(map[int64]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	for i := range rows {
		rows[i].ProductName = productNames[rows[i].ProductID]
		rows[i].CreatedByUsername = usernames[rows[i].CreatedByID]
	}
}
