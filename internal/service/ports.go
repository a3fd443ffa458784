package service

import (
	"context"
	"time"

	"supply-service/internal/models"
)

// The services depend on narrow ports rather than the concrete store so
// the lifecycle and rating logic can be exercised without a database.
// *store.Store satisfies all three store ports.

// OrderStore is the persistence surface of the lifecycle manager.
type OrderStore interface {
	GetSupplierByID(ctx context.Context, id string) (*models.Supplier, error)
	GetMaterialsBySupplier(ctx context.Context, supplierID string) ([]models.Material, error)
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrderHistory(ctx context.Context, orderID int64) ([]models.StatusHistoryEntry, error)
	GetOrdersByVendor(ctx context.Context, vendorID string) ([]models.Order, error)
	GetOrdersBySupplier(ctx context.Context, supplierID string) ([]models.Order, error)
	TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus, note string) (models.OrderStatus, error)
}

// DiscoveryStore is the read-only surface of the discovery engine.
type DiscoveryStore interface {
	GetVendorByID(ctx context.Context, id string) (*models.Vendor, error)
	GetSuppliers(ctx context.Context) ([]models.Supplier, error)
	GetAvailableMaterials(ctx context.Context) (map[string][]models.Material, error)
}

// ReviewStore is the persistence surface of the rating aggregator.
// ApplyReview must serialize concurrent calls for one supplier.
type ReviewStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ApplyReview(ctx context.Context, review *models.Review) (newAverage float64, newCount int, err error)
}

// OrderLocker provides the per-order mutual-exclusion scope around a
// transition's read-validate-write sequence.
type OrderLocker interface {
	AcquireOrderLock(ctx context.Context, orderID int64, ttl time.Duration) (bool, error)
	ReleaseOrderLock(ctx context.Context, orderID int64) error
}

// RatingCache is the advisory rating snapshot read by discovery.
type RatingCache interface {
	GetSupplierRating(ctx context.Context, supplierID string) (average float64, count int, found bool, err error)
	SetSupplierRating(ctx context.Context, supplierID string, average float64, count int) error
}

// EventLog appends domain events to the durable event topic, from which
// the notify worker fans out to live connections.
type EventLog interface {
	PublishOrderEvent(ctx context.Context, orderID int64, event interface{}) error
	PublishReviewSubmitted(ctx context.Context, event *models.ReviewSubmittedEvent) error
}
