package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockpile-io/stockpile/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore is an in-memory Store. A single mutex serializes InTx scopes the
// way the row lock serializes transactions against the real database.
type memStore struct {
	mu     sync.Mutex
	data   *memData
	inTx   bool
	nextID int64
}

type memData struct {
	products map[int64]*domain.Product
	sales    map[int64]*domain.Sale
}

func newMemStore() *memStore {
	return &memStore{
		data: &memData{
			products: make(map[int64]*domain.Product),
			sales:    make(map[int64]*domain.Sale),
		},
		nextID: 1,
	}
}

func (m *memStore) addProduct(p domain.Product) *domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.nextID
		m.nextID++
	}
	cp := p
	m.data.products[cp.ID] = &cp
	return &cp
}

func (m *memStore) product(id int64) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.data.products[id]
}

func (m *memStore) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.sales)
}

func (m *memStore) Products() ProductRepository { return &memProductRepo{store: m} }
func (m *memStore) Sales() SaleRepository       { return &memSaleRepo{store: m} }

func (m *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memStore{data: m.data, inTx: true, nextID: m.nextID}
	err := fn(tx)
	m.nextID = tx.nextID
	return err
}

// lock is a no-op inside a transaction scope, where the InTx mutex is
// already held.
func (m *memStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

type memProductRepo struct {
	store *memStore
}

func (r *memProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	defer r.store.lock()()
	p, ok := r.store.data.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *memProductRepo) Save(ctx context.Context, p *domain.Product) error {
	defer r.store.lock()()
	cp := *p
	r.store.data.products[cp.ID] = &cp
	return nil
}

func (r *memProductRepo) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	defer r.store.lock()()
	p, ok := r.store.data.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Quantity = quantity
	return nil
}

func (r *memProductRepo) ListBelow(ctx context.Context, threshold int) ([]domain.Product, error) {
	defer r.store.lock()()
	var out []domain.Product
	for _, p := range r.store.data.products {
		if p.Quantity <= threshold {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memSaleRepo struct {
	store *memStore
}

func (r *memSaleRepo) Create(ctx context.Context, sale *domain.Sale) error {
	defer r.store.lock()()
	if sale.ID == 0 {
		sale.ID = r.store.nextID
		r.store.nextID++
	}
	cp := *sale
	r.store.data.sales[cp.ID] = &cp
	return nil
}

func (r *memSaleRepo) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	defer r.store.lock()()
	s, ok := r.store.data.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSaleRepo) Save(ctx context.Context, sale *domain.Sale) error {
	defer r.store.lock()()
	cp := *sale
	r.store.data.sales[cp.ID] = &cp
	return nil
}

func (r *memSaleRepo) Delete(ctx context.Context, id int64) error {
	defer r.store.lock()()
	delete(r.store.data.sales, id)
	return nil
}

type fixedSettings struct {
	threshold int
}

func (f fixedSettings) StockThreshold() int { return f.threshold }

// recordingBus collects published events.
type recordingBus struct {
	mu     sync.Mutex
	events []LowStockEvent
}

func (b *recordingBus) Publish(topic string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, arg := range args {
		if ev, ok := arg.(LowStockEvent); ok {
			b.events = append(b.events, ev)
		}
	}
}

func (b *recordingBus) all() []LowStockEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LowStockEvent(nil), b.events...)
}

func newTestService(threshold int) (*Service, *memStore, *recordingBus) {
	store := newMemStore()
	bus := &recordingBus{}
	return NewService(store, fixedSettings{threshold: threshold}, bus), store, bus
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateSaleDecrementsStockAndSnapshotsPrice(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{
		ProductID: p.ID,
		Quantity:  2,
		CreatedBy: 42,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, store.product(p.ID).Quantity)
	assert.True(t, sale.UnitPrice.Equal(price("10.00")), "unit price snapshots the product price")
	assert.True(t, sale.TotalPrice.Equal(price("20.00")), "total is quantity times unit price")
	assert.Equal(t, int64(42), sale.CreatedByID)
	assert.False(t, sale.SaleDate.IsZero())
}

func TestCreateSaleRejectsOversell(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 8})

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 20})
	require.Error(t, err)

	ise, ok := AsInsufficientStock(err)
	require.True(t, ok)
	assert.Equal(t, 8, ise.Available)
	assert.Equal(t, "Not enough stock available. Only 8 units left.", err.Error())

	assert.Equal(t, 8, store.product(p.ID).Quantity, "stock unchanged on rejection")
	assert.Equal(t, 0, store.saleCount(), "no sale record on rejection")
}

func TestCreateSaleValidatesInput(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: -3})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	neg := price("-1.00")
	_, err = svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 1, UnitPrice: &neg})
	assert.ErrorIs(t, err, ErrNegativeUnitPrice)

	assert.Equal(t, 10, store.product(p.ID).Quantity)
}

func TestCreateSaleUnitPriceOverride(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	override := price("7.50")
	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{
		ProductID: p.ID,
		Quantity:  4,
		UnitPrice: &override,
	})
	require.NoError(t, err)
	assert.True(t, sale.UnitPrice.Equal(price("7.50")))
	assert.True(t, sale.TotalPrice.Equal(price("30.00")))
}

func TestCreateSalePublishesLowStockEvent(t *testing.T) {
	svc, store, bus := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 6})

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	events := bus.all()
	require.Len(t, events, 1)
	assert.Equal(t, p.ID, events[0].ProductID)
	assert.Equal(t, 4, events[0].Quantity)
	assert.Equal(t, 5, events[0].Threshold)
}

func TestCreateSaleAboveThresholdPublishesNothing(t *testing.T) {
	svc, store, bus := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 20})

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Empty(t, bus.all())
}

func TestUpdateSaleRecalculatesTotalWithoutTouchingStock(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 8, store.product(p.ID).Quantity)

	qty := 5
	updated, err := svc.UpdateSale(context.Background(), sale.ID, UpdateSaleInput{Quantity: &qty})
	require.NoError(t, err)

	assert.Equal(t, 5, updated.Quantity)
	assert.True(t, updated.TotalPrice.Equal(price("50.00")))
	assert.Equal(t, 8, store.product(p.ID).Quantity, "amendments never re-apply stock")

	newPrice := price("3.00")
	updated, err = svc.UpdateSale(context.Background(), sale.ID, UpdateSaleInput{UnitPrice: &newPrice})
	require.NoError(t, err)
	assert.True(t, updated.TotalPrice.Equal(price("15.00")), "total follows every save")
	assert.Equal(t, 8, store.product(p.ID).Quantity)
}

func TestUpdateSaleRejectsUnknownProduct(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	missing := int64(99999)
	_, err = svc.UpdateSale(context.Background(), sale.ID, UpdateSaleInput{ProductID: &missing})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteSaleDoesNotRestoreStock(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSale(context.Background(), sale.ID))
	assert.Equal(t, 0, store.saleCount())
	assert.Equal(t, 7, store.product(p.ID).Quantity)

	assert.ErrorIs(t, svc.DeleteSale(context.Background(), sale.ID), gorm.ErrRecordNotFound)
}

func TestAdjustStockAcceptsNegativeValues(t *testing.T) {
	svc, store, bus := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	updated, err := svc.AdjustStock(context.Background(), p.ID, -3)
	require.NoError(t, err)

	assert.Equal(t, -3, updated.Quantity)
	assert.Equal(t, -3, store.product(p.ID).Quantity)

	events := bus.all()
	require.Len(t, events, 1)
	assert.Equal(t, -3, events[0].Quantity)
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(5)
	_, err := svc.AdjustStock(context.Background(), 12345, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLowStockListingUsesFixedThreshold(t *testing.T) {
	// The configurable threshold is deliberately higher than the fixed
	// listing threshold; the listing must ignore it.
	svc, store, _ := newTestService(10)
	store.addProduct(domain.Product{Name: "at-threshold", Price: price("1.00"), Quantity: LowStockListThreshold})
	store.addProduct(domain.Product{Name: "above-threshold", Price: price("1.00"), Quantity: LowStockListThreshold + 1})
	store.addProduct(domain.Product{Name: "empty", Price: price("1.00"), Quantity: 0})

	products, err := svc.LowStockProducts(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"at-threshold", "empty"}, names)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	const stock = 50
	const buyers = 80

	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: stock})

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSale(context.Background(), CreateSaleInput{ProductID: p.ID, Quantity: 1})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			_, ok := AsInsufficientStock(err)
			require.True(t, ok, "unexpected error: %v", err)
			rejected++
		}
	}

	assert.Equal(t, stock, succeeded, "every unit sold exactly once")
	assert.Equal(t, buyers-stock, rejected)
	assert.Equal(t, 0, store.product(p.ID).Quantity)
	assert.Equal(t, stock, store.saleCount())
}

func TestCreateSaleHonorsExplicitSaleDate(t *testing.T) {
	svc, store, _ := newTestService(5)
	p := store.addProduct(domain.Product{Name: "widget", Price: price("10.00"), Quantity: 10})

	when := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{
		ProductID: p.ID,
		Quantity:  1,
		SaleDate:  &when,
	})
	require.NoError(t, err)
	assert.True(t, sale.SaleDate.Equal(when))
}
