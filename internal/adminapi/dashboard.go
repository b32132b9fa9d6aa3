package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/webserver"
)

// registerDashboardRoutes registers the summary endpoint, readable by any
// authenticated caller.
func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard/summary", dashboardSummary)
}

func dashboardSummary(c echo.Context) error {
	db := GetDB(c)
	threshold := appctx.SettingsMgr().StockThreshold()

	var categoryCount, productCount, saleCount, lowStockCount int64
	db.Model(&domain.Category{}).Count(&categoryCount)
	db.Model(&domain.Product{}).Count(&productCount)
	db.Model(&domain.Sale{}).Count(&saleCount)
	db.Model(&domain.Product{}).Where("quantity <= ?", threshold).Count(&lowStockCount)

	var sales []domain.Sale
	since := time.Now().AddDate(0, 0, -30)
	if err := db.Where("sale_date >= ?", since).Find(&sales).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}

	revenue := decimal.Zero
	totals := make([]float64, 0, len(sales))
	for _, s := range sales {
		revenue = revenue.Add(s.TotalPrice)
		v, _ := s.TotalPrice.Float64()
		totals = append(totals, v)
	}

	meanSale := 0.0
	if len(totals) > 0 {
		meanSale, _ = stats.Mean(totals)
	}

	return ok(c, map[string]interface{}{
		"categories":       categoryCount,
		"products":         productCount,
		"sales":            saleCount,
		"low_stock":        lowStockCount,
		"revenue_30d":      revenue.StringFixed(2),
		"mean_sale_30d":    meanSale,
		"stock_threshold":  threshold,
		"window_start_utc": since.UTC().Format(time.RFC3339),
	})
}
