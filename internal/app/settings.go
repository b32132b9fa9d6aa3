package app

import (
	"sync"

	"github.com/spf13/cast"
	"github.com/stockpile-io/stockpile/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultStockThreshold is used when the setting row is missing or unreadable.
const DefaultStockThreshold = 5

// SettingsManager reads sys_config values through a process-local cache.
// The cache is filled lazily and dropped wholesale on Invalidate, which the
// settings API calls after every write.
type SettingsManager struct {
	db    *gorm.DB
	mu    sync.RWMutex
	cache map[string]string
}

func NewSettingsManager(db *gorm.DB) *SettingsManager {
	return &SettingsManager{
		db:    db,
		cache: make(map[string]string),
	}
}

// Invalidate drops all cached values.
func (m *SettingsManager) Invalidate() {
	m.mu.Lock()
	m.cache = make(map[string]string)
	m.mu.Unlock()
}

// GetString returns the configured value, or "" when the row is absent.
func (m *SettingsManager) GetString(category, name string) string {
	key := category + "." + name

	m.mu.RLock()
	if v, hit := m.cache[key]; hit {
		m.mu.RUnlock()
		return v
	}
	m.mu.RUnlock()

	var cfg domain.SysConfig
	if err := m.db.Where("type = ? and name = ?", category, name).First(&cfg).Error; err != nil {
		zap.L().Debug("config value not found",
			zap.String("type", category),
			zap.String("name", name),
			zap.Error(err))
		return ""
	}

	m.mu.Lock()
	m.cache[key] = cfg.Value
	m.mu.Unlock()
	return cfg.Value
}

func (m *SettingsManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

func (m *SettingsManager) GetBool(category, name string) bool {
	v := m.GetString(category, name)
	return cast.ToBool(v) || v == "enabled"
}

// StockThreshold returns the configurable low-stock threshold used for the
// is_low_stock attribute. Falls back to DefaultStockThreshold when the
// setting is missing or not a positive integer.
func (m *SettingsManager) StockThreshold() int {
	v := m.GetString("system", "stock_threshold")
	if v == "" {
		return DefaultStockThreshold
	}
	n := cast.ToInt(v)
	if n <= 0 {
		return DefaultStockThreshold
	}
	return n
}
