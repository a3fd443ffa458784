package models

import "time"

// Event types. These names cross the boundary to live clients and the
// event topic; they are part of the external contract.
const (
	EventOrderRequestSent = "order_request_sent"
	EventOrderApproved    = "order_approved"
	EventOrderRejected    = "order_rejected"
	EventPaymentConfirmed = "payment_confirmed"
	EventPaymentDone      = "payment_done"
	EventOrderDispatched  = "order_dispatched"
	EventOrderDelivered   = "order_delivered"
	EventOrderCancelled   = "order_cancelled"
	EventReviewSubmitted  = "review_submitted"
)

// BaseEvent contains common fields for all events. RecipientID names the
// user whose live connections should receive the fan-out.
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	RecipientID string    `json:"recipient_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderRequestSentEvent published when a vendor creates an order.
type OrderRequestSentEvent struct {
	BaseEvent
	OrderID     int64       `json:"order_id"`
	VendorID    string      `json:"vendor_id"`
	SupplierID  string      `json:"supplier_id"`
	TotalAmount int64       `json:"total_amount"`
	Items       []OrderItem `json:"items"`
}

// OrderDecisionEvent published for approve/reject outcomes.
type OrderDecisionEvent struct {
	BaseEvent
	OrderID  int64  `json:"order_id"`
	VendorID string `json:"vendor_id"`
	Notes    string `json:"notes,omitempty"`
}

// PaymentEvent published once payment is recorded (both sides get one).
type PaymentEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	Amount  int64 `json:"amount"`
}

// OrderShippingEvent published on dispatch and delivery.
type OrderShippingEvent struct {
	BaseEvent
	OrderID    int64     `json:"order_id"`
	SupplierID string    `json:"supplier_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderCancelledEvent published when a vendor cancels.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// ReviewSubmittedEvent published after a rating update commits.
type ReviewSubmittedEvent struct {
	BaseEvent
	SupplierID string  `json:"supplier_id"`
	Review     Review  `json:"review"`
	NewAverage float64 `json:"new_average"`
	NewCount   int     `json:"new_count"`
}
