package service

import (
	"context"
	"math"
	"sync"
	"time"

	"supply-service/internal/models"
)

// fakeStore is an in-memory implementation of the store ports, with the
// same serialization contract the postgres store provides: TransitionOrder
// and ApplyReview are atomic read-validate-write sections.
type fakeStore struct {
	mu          sync.Mutex
	suppliers   map[string]*models.Supplier
	vendors     map[string]*models.Vendor
	materials   map[string][]models.Material
	orders      map[int64]*models.Order
	items       map[int64][]models.OrderItem
	history     map[int64][]models.StatusHistoryEntry
	reviews     []models.Review
	nextOrderID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		suppliers: make(map[string]*models.Supplier),
		vendors:   make(map[string]*models.Vendor),
		materials: make(map[string][]models.Material),
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]models.OrderItem),
		history:   make(map[int64][]models.StatusHistoryEntry),
	}
}

func (f *fakeStore) GetSupplierByID(_ context.Context, id string) (*models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.suppliers[id]
	if !ok {
		return nil, models.ErrSupplierNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) GetVendorByID(_ context.Context, id string) (*models.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vendors[id]
	if !ok {
		return nil, models.ErrVendorNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeStore) GetSuppliers(_ context.Context) ([]models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Supplier, 0, len(f.suppliers))
	for _, s := range f.suppliers {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) GetMaterialsBySupplier(_ context.Context, supplierID string) ([]models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Material(nil), f.materials[supplierID]...), nil
}

func (f *fakeStore) GetAvailableMaterials(_ context.Context) (map[string][]models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]models.Material)
	for id, items := range f.materials {
		for _, m := range items {
			if m.IsAvailable {
				out[id] = append(out[id], m)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextOrderID++
	order.ID = f.nextOrderID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	copied := *order
	f.orders[order.ID] = &copied
	for i := range items {
		items[i].OrderID = order.ID
		items[i].ID = int64(i + 1)
	}
	f.items[order.ID] = append([]models.OrderItem(nil), items...)
	f.history[order.ID] = []models.StatusHistoryEntry{{
		OrderID: order.ID, Status: order.Status, Note: "order created", CreatedAt: time.Now(),
	}}
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeStore) GetOrderHistory(_ context.Context, orderID int64) ([]models.StatusHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.StatusHistoryEntry(nil), f.history[orderID]...), nil
}

func (f *fakeStore) GetOrdersByVendor(_ context.Context, vendorID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.VendorID == vendorID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrdersBySupplier(_ context.Context, supplierID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.SupplierID == supplierID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) TransitionOrder(_ context.Context, orderID int64, from, to models.OrderStatus, note string) (models.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return "", models.ErrOrderNotFound
	}
	if o.Status != from {
		return o.Status, models.ErrInvalidTransition
	}

	o.Status = to
	if to.IsPaid() {
		o.PaymentStatus = models.PaymentStatusPaid
	} else {
		o.PaymentStatus = models.PaymentStatusUnpaid
	}
	o.UpdatedAt = time.Now()
	f.history[orderID] = append(f.history[orderID], models.StatusHistoryEntry{
		OrderID: orderID, Status: to, Note: note, CreatedAt: time.Now(),
	})
	return to, nil
}

func (f *fakeStore) ApplyReview(_ context.Context, review *models.Review) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.suppliers[review.SupplierID]
	if !ok {
		return 0, 0, models.ErrSupplierNotFound
	}

	review.ID = int64(len(f.reviews) + 1)
	review.CreatedAt = time.Now()
	f.reviews = append(f.reviews, *review)

	newCount := s.RatingCount + 1
	newAverage := math.Round((s.RatingAverage*float64(s.RatingCount)+float64(review.Rating))/float64(newCount)*10) / 10
	s.RatingAverage = newAverage
	s.RatingCount = newCount
	return newAverage, newCount, nil
}

// fakeLocker grants at most one holder per order id.
type fakeLocker struct {
	mu     sync.Mutex
	locked map[int64]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locked: make(map[int64]bool)}
}

func (l *fakeLocker) AcquireOrderLock(_ context.Context, orderID int64, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked[orderID] {
		return false, nil
	}
	l.locked[orderID] = true
	return true, nil
}

func (l *fakeLocker) ReleaseOrderLock(_ context.Context, orderID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, orderID)
	return nil
}

// fakeEvents records published events in order.
type fakeEvents struct {
	mu     sync.Mutex
	events []interface{}
}

func (e *fakeEvents) PublishOrderEvent(_ context.Context, _ int64, event interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) PublishReviewSubmitted(_ context.Context, event *models.ReviewSubmittedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) byType(eventType string) []interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []interface{}
	for _, ev := range e.events {
		if typeOf(ev) == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func typeOf(event interface{}) string {
	switch e := event.(type) {
	case *models.OrderRequestSentEvent:
		return e.EventType
	case *models.OrderDecisionEvent:
		return e.EventType
	case *models.PaymentEvent:
		return e.EventType
	case *models.OrderShippingEvent:
		return e.EventType
	case *models.OrderCancelledEvent:
		return e.EventType
	case *models.ReviewSubmittedEvent:
		return e.EventType
	}
	return ""
}

// fakeCache is an in-memory rating cache.
type fakeCache struct {
	mu      sync.Mutex
	ratings map[string][2]float64 // average, count
}

func newFakeCache() *fakeCache {
	return &fakeCache{ratings: make(map[string][2]float64)}
}

func (c *fakeCache) GetSupplierRating(_ context.Context, supplierID string) (float64, int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.ratings[supplierID]
	if !ok {
		return 0, 0, false, nil
	}
	return r[0], int(r[1]), true, nil
}

func (c *fakeCache) SetSupplierRating(_ context.Context, supplierID string, average float64, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ratings[supplierID] = [2]float64{average, float64(count)}
	return nil
}
