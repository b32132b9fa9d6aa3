package inventory

import (
	"context"

	"github.com/stockpile-io/stockpile/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository handles product data access.
type ProductRepository interface {
	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetForUpdate retrieves a product with a row lock. Only meaningful
	// inside a Store.InTx scope; the lock is held until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)

	// Save persists all fields of an existing product
	Save(ctx context.Context, p *domain.Product) error

	// UpdateQuantity sets the quantity column directly
	UpdateQuantity(ctx context.Context, id int64, quantity int) error

	// ListBelow returns products with quantity at or below threshold
	ListBelow(ctx context.Context, threshold int) ([]domain.Product, error)
}

// SaleRepository handles sale data access.
type SaleRepository interface {
	// Create inserts a new sale record
	Create(ctx context.Context, sale *domain.Sale) error

	// GetByID retrieves a sale by ID
	GetByID(ctx context.Context, id int64) (*domain.Sale, error)

	// Save persists all fields of an existing sale
	Save(ctx context.Context, sale *domain.Sale) error

	// Delete removes a sale record
	Delete(ctx context.Context, id int64) error
}

// Store bundles the inventory repositories with a transactional scope. The
// stock check and decrement in CreateSale must observe a single atomic unit
// per product, which InTx provides.
type Store interface {
	Products() ProductRepository
	Sales() SaleRepository

	// InTx runs fn inside one serializing transaction. The Store passed to
	// fn is bound to that transaction.
	InTx(ctx context.Context, fn func(s Store) error) error
}

// GormStore is the GORM implementation of Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Products() ProductRepository { return &gormProductRepo{db: s.db} }
func (s *GormStore) Sales() SaleRepository       { return &gormSaleRepo{db: s.db} }

func (s *GormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

type gormProductRepo struct {
	db *gorm.DB
}

func (r *gormProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormProductRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormProductRepo) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gormProductRepo) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *gormProductRepo) ListBelow(ctx context.Context, threshold int) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("quantity <= ?", threshold).
		Order("quantity ASC").
		Find(&products).Error
	return products, err
}

type gormSaleRepo struct {
	db *gorm.DB
}

func (r *gormSaleRepo) Create(ctx context.Context, sale *domain.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *gormSaleRepo) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	var sale domain.Sale
	err := r.db.WithContext(ctx).First(&sale, id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *gormSaleRepo) Save(ctx context.Context, sale *domain.Sale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *gormSaleRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Sale{}, id).Error
}
