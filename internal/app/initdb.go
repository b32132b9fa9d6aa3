package app

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const superEmail = "admin@stockpile.local"
	const defaultPassword = "stockpile"

	hashedPassword := common.Sha256HashWithSalt(defaultPassword, common.GetSecretSalt())

	var user domain.SysUser
	err := a.gormDB.Where("email = ?", superEmail).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysUser{
			ID:        common.UUIDint64(),
			Username:  superUsername,
			Email:     superEmail,
			Password:  hashedPassword,
			Role:      domain.RoleAdmin,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin account", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query default admin account", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(user.Password) == ""
	resetRole := !user.IsAdmin()
	resetStatus := !strings.EqualFold(user.Status, common.ENABLED)

	if !resetPassword && !resetRole && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysUser{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair default admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default admin account",
		zap.String("email", superEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole),
		zap.Bool("statusEnabled", resetStatus))
}

type settingSchema struct {
	Key         string
	Default     string
	Description string
}

// defaultSettings are seeded into sys_config when missing.
var defaultSettings = []settingSchema{
	{Key: "system.stock_threshold", Default: "5", Description: "Quantity at or below which a product is flagged low-stock"},
	{Key: "system.low_stock_notify", Default: common.ENABLED, Description: "Publish low-stock notifications"},
	{Key: "system.oprlog_retention_days", Default: "365", Description: "Retention of operation log entries in days"},
}

func (a *Application) checkSettings() {
	for sortid, schema := range defaultSettings {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}

		category := parts[0]
		name := parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)

		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}

// checkCatalog seeds a small demo catalog; debug mode only.
func (a *Application) checkCatalog() {
	defaultCategories := []domain.Category{
		{Name: "widgets", Description: "Demo widget category"},
		{Name: "services", Description: "Demo service category"},
	}

	categoryIDs := map[string]int64{}
	for _, cat := range defaultCategories {
		var existing domain.Category
		err := a.gormDB.Where("name = ?", cat.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cat.ID = common.UUIDint64()
			cat.CreatedAt = time.Now()
			cat.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&cat).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("name", cat.Name), zap.Error(err))
				continue
			}
			categoryIDs[cat.Name] = cat.ID
			zap.L().Info("initialized default category", zap.String("name", cat.Name))
		} else if err == nil {
			categoryIDs[cat.Name] = existing.ID
		}
	}

	defaultProducts := []struct {
		Name     string
		Category string
		Price    string
		Quantity int
	}{
		{Name: "demo-widget-basic", Category: "widgets", Price: "9.99", Quantity: 100},
		{Name: "demo-widget-pro", Category: "widgets", Price: "24.50", Quantity: 50},
		{Name: "demo-addon-support", Category: "services", Price: "49.95", Quantity: 200},
	}

	for _, p := range defaultProducts {
		catID, okCat := categoryIDs[p.Category]
		if !okCat {
			continue
		}
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("name = ?", p.Name).Count(&count)
		if count == 0 {
			price, _ := decimal.NewFromString(p.Price)
			product := domain.Product{
				ID:         common.UUIDint64(),
				Name:       p.Name,
				CategoryID: catID,
				Price:      price,
				Quantity:   p.Quantity,
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}
			if err := a.gormDB.Create(&product).Error; err != nil {
				zap.L().Error("failed to create default product", zap.String("name", p.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized default product", zap.String("name", p.Name))
			}
		}
	}
}
