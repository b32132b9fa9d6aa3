package inventory

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stockpile-io/stockpile/pkg/metrics"
	"go.uber.org/zap"
)

// TopicLowStock is published whenever a mutation leaves a product at or
// below the configured stock threshold.
const TopicLowStock = "product.low_stock"

// LowStockListThreshold is the fixed operational threshold used by the
// dedicated low-stock listing, independent of the configurable
// system.stock_threshold setting used by the is_low_stock attribute.
const LowStockListThreshold = 5

// LowStockEvent is the payload published on TopicLowStock.
type LowStockEvent struct {
	ProductID int64
	Name      string
	Quantity  int
	Threshold int
}

// SettingsReader supplies the process-wide low-stock threshold.
type SettingsReader interface {
	StockThreshold() int
}

// Publisher is the event-bus surface the ledger needs.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Service is the stock ledger. It is the only component that mutates
// cross-entity state: a sale touches both the sale record and the product.
type Service struct {
	store    Store
	settings SettingsReader
	bus      Publisher
}

// NewService creates a new stock ledger service
func NewService(store Store, settings SettingsReader, bus Publisher) *Service {
	return &Service{store: store, settings: settings, bus: bus}
}

// Store exposes the underlying store for query-surface callers.
func (s *Service) Store() Store { return s.store }

// Threshold returns the configured low-stock threshold.
func (s *Service) Threshold() int { return s.settings.StockThreshold() }

// CreateSaleInput carries the caller-supplied fields for a new sale.
// UnitPrice nil means snapshot the product price.
type CreateSaleInput struct {
	ProductID int64
	Quantity  int
	UnitPrice *decimal.Decimal
	SaleDate  *time.Time
	CreatedBy int64
}

// UpdateSaleInput carries amendable sale fields. Nil pointers leave the
// field untouched. Amendments never re-apply stock.
type UpdateSaleInput struct {
	ProductID *int64
	Quantity  *int
	UnitPrice *decimal.Decimal
	SaleDate  *time.Time
}

// CreateSale validates, decrements stock and records the sale as one atomic
// unit. The product row is locked for the duration of the transaction so
// concurrent sales against the same product serialize; either the decrement
// and the sale record both happen, or neither does.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput) (*domain.Sale, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, ErrNegativeUnitPrice
	}

	var sale *domain.Sale
	var lowStock *LowStockEvent

	err := s.store.InTx(ctx, func(tx Store) error {
		product, err := tx.Products().GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		if in.Quantity > product.Quantity {
			return &InsufficientStockError{Available: product.Quantity}
		}

		unitPrice := product.Price
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}

		product.Quantity -= in.Quantity
		if err := tx.Products().Save(ctx, product); err != nil {
			return errors.Wrap(err, "decrement product stock")
		}

		saleDate := time.Now()
		if in.SaleDate != nil {
			saleDate = *in.SaleDate
		}

		sale = &domain.Sale{
			ProductID:   product.ID,
			Quantity:    in.Quantity,
			UnitPrice:   unitPrice,
			SaleDate:    saleDate,
			CreatedByID: in.CreatedBy,
		}
		sale.RecalcTotal()

		if err := tx.Sales().Create(ctx, sale); err != nil {
			return errors.Wrap(err, "create sale record")
		}

		if threshold := s.settings.StockThreshold(); product.LowStock(threshold) {
			lowStock = &LowStockEvent{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  product.Quantity,
				Threshold: threshold,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Incr(metrics.SaleCreated)
	total, _ := sale.TotalPrice.Float64()
	metrics.RecordValue(metrics.SaleAmount, total)

	zap.L().Info("sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", sale.ProductID),
		zap.Int("quantity", sale.Quantity),
		zap.String("total_price", sale.TotalPrice.StringFixed(2)),
	)

	s.publishLowStock(lowStock)
	return sale, nil
}

// UpdateSale amends an existing sale. TotalPrice is recomputed on every
// save; product stock is never touched here, only CreateSale decrements.
func (s *Service) UpdateSale(ctx context.Context, id int64, in UpdateSaleInput) (*domain.Sale, error) {
	if in.Quantity != nil && *in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, ErrNegativeUnitPrice
	}

	sale, err := s.store.Sales().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.ProductID != nil {
		if _, err := s.store.Products().GetByID(ctx, *in.ProductID); err != nil {
			return nil, err
		}
		sale.ProductID = *in.ProductID
	}
	if in.Quantity != nil {
		sale.Quantity = *in.Quantity
	}
	if in.UnitPrice != nil {
		sale.UnitPrice = *in.UnitPrice
	}
	if in.SaleDate != nil {
		sale.SaleDate = *in.SaleDate
	}
	sale.RecalcTotal()

	if err := s.store.Sales().Save(ctx, sale); err != nil {
		return nil, errors.Wrap(err, "update sale record")
	}
	return sale, nil
}

// DeleteSale removes a sale record. Stock consumed by the sale is not
// restored.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if _, err := s.store.Sales().GetByID(ctx, id); err != nil {
		return err
	}
	return s.store.Sales().Delete(ctx, id)
}

// AdjustStock sets a product's quantity to an admin-supplied value,
// bypassing the sale path: no sale record, no price computation. Negative
// values are accepted as an explicit administrative override.
func (s *Service) AdjustStock(ctx context.Context, productID int64, quantity int) (*domain.Product, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.Quantity = quantity
	if err := s.store.Products().UpdateQuantity(ctx, productID, quantity); err != nil {
		return nil, errors.Wrap(err, "adjust product stock")
	}

	zap.L().Info("stock adjusted",
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity),
	)

	if threshold := s.settings.StockThreshold(); product.LowStock(threshold) {
		s.publishLowStock(&LowStockEvent{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  product.Quantity,
			Threshold: threshold,
		})
	}
	return product, nil
}

// LowStockProducts returns the products at or below the fixed operational
// threshold used by the dedicated listing endpoint.
func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.Products().ListBelow(ctx, LowStockListThreshold)
	if err != nil {
		return nil, err
	}
	metrics.Incr(metrics.LowStockHits)
	return products, nil
}

func (s *Service) publishLowStock(ev *LowStockEvent) {
	if ev == nil || s.bus == nil {
		return
	}
	s.bus.Publish(TopicLowStock, *ev)
}
