package metrics

import (
	"path/filepath"
	"time"

	"github.com/nakabonne/tstorage"
)

// Metric names recorded by the service.
const (
	ApiRequest   = "api_request"
	SaleCreated  = "sale_created"
	SaleAmount   = "sale_amount"
	LowStockHits = "low_stock_hits"
	SystemCpu    = "system_cpu"
	SystemMem    = "system_mem"
	ProcessRss   = "process_rss"
)

var storage tstorage.Storage

// InitMetrics opens the embedded time-series store under workdir/data/metrics.
func InitMetrics(workdir string) error {
	var err error
	storage, err = tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(24*time.Hour),
	)
	return err
}

// RecordValue writes a single datapoint for metric at the current time.
func RecordValue(metric string, value float64) {
	if storage == nil {
		return
	}
	_ = storage.InsertRows([]tstorage.Row{
		{
			Metric: metric,
			DataPoint: tstorage.DataPoint{
				Timestamp: time.Now().Unix(),
				Value:     value,
			},
		},
	})
}

// Incr records a counter-style datapoint of 1.
func Incr(metric string) {
	RecordValue(metric, 1)
}

// Select returns datapoints for metric between start and end (unix seconds).
func Select(metric string, start, end int64) ([]*tstorage.DataPoint, error) {
	if storage == nil {
		return nil, nil
	}
	points, err := storage.Select(metric, nil, start, end)
	if err == tstorage.ErrNoDataPoints {
		return nil, nil
	}
	return points, err
}

// Close flushes and closes the store.
func Close() error {
	if storage == nil {
		return nil
	}
	return storage.Close()
}
