package models

import (
	"database/sql"
	"time"
)

// Supplier represents a business offering raw materials.
type Supplier struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Address       string          `db:"address" json:"address,omitempty"`
	Lat           sql.NullFloat64 `db:"lat" json:"-"`
	Lng           sql.NullFloat64 `db:"lng" json:"-"`
	IsVerified    bool            `db:"is_verified" json:"is_verified"`
	RatingAverage float64         `db:"rating_average" json:"rating_average"`
	RatingCount   int             `db:"rating_count" json:"rating_count"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// HasLocation reports whether the supplier has coordinates on file.
// Suppliers without a location are not discoverable.
func (s *Supplier) HasLocation() bool {
	return s.Lat.Valid && s.Lng.Valid
}

// Vendor represents a buyer searching for and ordering materials.
type Vendor struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Lat       sql.NullFloat64 `db:"lat" json:"-"`
	Lng       sql.NullFloat64 `db:"lng" json:"-"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// HasLocation reports whether the vendor has coordinates on file.
func (v *Vendor) HasLocation() bool {
	return v.Lat.Valid && v.Lng.Valid
}

// Material is a priced, quantified product listed by a supplier.
type Material struct {
	ID                   int64     `db:"id" json:"id"`
	SupplierID           string    `db:"supplier_id" json:"supplier_id"`
	Name                 string    `db:"name" json:"name"`
	Description          string    `db:"description" json:"description,omitempty"`
	Category             string    `db:"category" json:"category,omitempty"`
	Price                int64     `db:"price" json:"price"`
	Quantity             int       `db:"quantity" json:"quantity"`
	Unit                 string    `db:"unit" json:"unit"`
	IsAvailable          bool      `db:"is_available" json:"is_available"`
	MinimumOrderQuantity int       `db:"minimum_order_quantity" json:"minimum_order_quantity"`
	DeliveryTimeDays     int       `db:"delivery_time_days" json:"delivery_time_days"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// Order represents one vendor-to-supplier purchase.
type Order struct {
	ID                   int64       `db:"id" json:"id"`
	VendorID             string      `db:"vendor_id" json:"vendor_id"`
	SupplierID           string      `db:"supplier_id" json:"supplier_id"`
	TotalAmount          int64       `db:"total_amount" json:"total_amount"`
	Status               OrderStatus `db:"status" json:"status"`
	PaymentStatus        string      `db:"payment_status" json:"payment_status"`
	DeliveryAddress      string      `db:"delivery_address" json:"delivery_address,omitempty"`
	DeliveryInstructions string      `db:"delivery_instructions" json:"delivery_instructions,omitempty"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order. LineTotal is always
// UnitPrice * Quantity; the service computes it, clients never supply it.
type OrderItem struct {
	ID         int64  `db:"id" json:"id"`
	OrderID    int64  `db:"order_id" json:"order_id"`
	MaterialID int64  `db:"material_id" json:"material_id"`
	Name       string `db:"name" json:"name"`
	Quantity   int    `db:"quantity" json:"quantity"`
	UnitPrice  int64  `db:"unit_price" json:"unit_price"`
	LineTotal  int64  `db:"line_total" json:"line_total"`
}

// StatusHistoryEntry is one append-only record of an order transition.
type StatusHistoryEntry struct {
	ID        int64       `db:"id" json:"id"`
	OrderID   int64       `db:"order_id" json:"order_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Note      string      `db:"note" json:"note,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Review is one vendor's feedback on one completed order. Immutable.
type Review struct {
	ID         int64     `db:"id" json:"id"`
	VendorID   string    `db:"vendor_id" json:"vendor_id"`
	SupplierID string    `db:"supplier_id" json:"supplier_id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	IsTrusted  bool      `db:"is_trusted" json:"is_trusted"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Payment statuses
const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

// Review comment length bounds
const (
	ReviewCommentMinLen = 10
	ReviewCommentMaxLen = 500
)
