package app

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/internal/inventory"
	"github.com/stockpile-io/stockpile/pkg/metrics"
	"go.uber.org/zap"
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc))

	if _, err := a.sched.AddFunc("@every 30s", a.collectSystemStats); err != nil {
		zap.L().Error("failed to schedule system monitor", zap.Error(err))
	}

	if _, err := a.sched.AddFunc("@daily", a.purgeOprLogs); err != nil {
		zap.L().Error("failed to schedule oprlog purge", zap.Error(err))
	}

	if _, err := a.sched.AddFunc("@hourly", a.sweepLowStock); err != nil {
		zap.L().Error("failed to schedule low-stock sweep", zap.Error(err))
	}
}

func (a *Application) collectSystemStats() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics.RecordValue(metrics.SystemCpu, percents[0])
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.RecordValue(metrics.SystemMem, vm.UsedPercent)
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			metrics.RecordValue(metrics.ProcessRss, float64(info.RSS))
		}
	}
}

func (a *Application) purgeOprLogs() {
	retentionDays := a.GetSettingsInt64Value("system", "oprlog_retention_days")
	if retentionDays <= 0 {
		retentionDays = 365
	}

	cutoff := time.Now().AddDate(0, 0, -int(retentionDays))
	result := a.gormDB.Where("opt_time < ?", cutoff).Delete(&domain.SysOprLog{})
	if result.Error != nil {
		zap.L().Error("oprlog purge failed", zap.Error(result.Error))
		return
	}
	if result.RowsAffected > 0 {
		zap.L().Info("purged operation logs",
			zap.Int64("removed", result.RowsAffected),
			zap.Time("cutoff", cutoff))
	}
}

// sweepLowStock republishes low-stock events for products that remain at or
// below the configured threshold, so a notification missed at mutation time
// is not lost for good.
func (a *Application) sweepLowStock() {
	if !a.GetSettingsBoolValue("system", "low_stock_notify") {
		return
	}

	threshold := a.settingsMgr.StockThreshold()
	var products []domain.Product
	if err := a.gormDB.Where("quantity <= ?", threshold).Find(&products).Error; err != nil {
		zap.L().Error("low-stock sweep query failed", zap.Error(err))
		return
	}

	for _, p := range products {
		a.bus.Publish(inventory.TopicLowStock, inventory.LowStockEvent{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Threshold: threshold,
		})
	}

	if len(products) > 0 {
		zap.L().Info("low-stock sweep completed", zap.Int("flagged", len(products)))
	}
}
