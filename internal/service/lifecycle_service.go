package service

import (
	"context"
	"fmt"
	"time"

	"supply-service/internal/models"
	"supply-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const transitionLockTTL = 10 * time.Second

// LifecycleService owns the order state machine. Every status change goes
// through Transition, which validates the edge, the actor, and ownership
// before any write.
type LifecycleService struct {
	store  OrderStore
	locker OrderLocker
	events EventLog
	logger *zap.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(store OrderStore, locker OrderLocker, events EventLog) *LifecycleService {
	return &LifecycleService{
		store:  store,
		locker: locker,
		events: events,
		logger: util.GetLogger(),
	}
}

// CreateOrderRequest represents a vendor's purchase request
type CreateOrderRequest struct {
	VendorID             string             `json:"vendor_id" binding:"required"`
	SupplierID           string             `json:"supplier_id" binding:"required"`
	Items                []OrderItemRequest `json:"items" binding:"required,min=1"`
	DeliveryAddress      string             `json:"delivery_address"`
	DeliveryInstructions string             `json:"delivery_instructions"`
}

// OrderItemRequest represents one requested line
type OrderItemRequest struct {
	MaterialID int64 `json:"material_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required,min=1"`
}

// Create validates the request against the supplier's current catalog,
// persists the order with status Requested, and notifies the supplier.
func (s *LifecycleService) Create(ctx context.Context, req *CreateOrderRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "LifecycleService.Create")
	defer span.End()

	if _, err := s.store.GetSupplierByID(ctx, req.SupplierID); err != nil {
		util.OrdersFailedTotal.WithLabelValues("supplier_not_found").Inc()
		return nil, nil, err
	}

	items, totalAmount, err := s.buildOrderItems(ctx, req)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, nil, err
	}

	order := &models.Order{
		VendorID:             req.VendorID,
		SupplierID:           req.SupplierID,
		TotalAmount:          totalAmount,
		Status:               models.StatusRequested,
		PaymentStatus:        models.PaymentStatusUnpaid,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryInstructions: req.DeliveryInstructions,
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("vendor_id", order.VendorID),
		zap.String("supplier_id", order.SupplierID),
		zap.Int64("total_amount", order.TotalAmount))

	event := &models.OrderRequestSentEvent{
		BaseEvent:   newBaseEvent(models.EventOrderRequestSent, order.SupplierID),
		OrderID:     order.ID,
		VendorID:    order.VendorID,
		SupplierID:  order.SupplierID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	}
	if err := s.events.PublishOrderEvent(ctx, order.ID, event); err != nil {
		s.logger.Error("Failed to publish order_request_sent", zap.Error(err))
	}

	return order, items, nil
}

// buildOrderItems checks each requested line against the supplier catalog
// and prices it. All validation happens before any write.
func (s *LifecycleService) buildOrderItems(ctx context.Context, req *CreateOrderRequest) ([]models.OrderItem, int64, error) {
	catalog, err := s.store.GetMaterialsBySupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[int64]*models.Material, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var total int64
	for _, line := range req.Items {
		material, ok := byID[line.MaterialID]
		if !ok || !material.IsAvailable {
			return nil, 0, fmt.Errorf("material %d: %w", line.MaterialID, models.ErrMaterialUnavailable)
		}
		if line.Quantity <= 0 || line.Quantity < material.MinimumOrderQuantity {
			return nil, 0, fmt.Errorf("material %d requires at least %d: %w",
				line.MaterialID, material.MinimumOrderQuantity, models.ErrMinimumQuantity)
		}

		lineTotal := material.Price * int64(line.Quantity)
		items = append(items, models.OrderItem{
			MaterialID: material.ID,
			Name:       material.Name,
			Quantity:   line.Quantity,
			UnitPrice:  material.Price,
			LineTotal:  lineTotal,
		})
		total += lineTotal
	}

	return items, total, nil
}

// Transition applies one edge of the state machine on behalf of an actor.
// Re-applying a transition that already happened is a no-op success, so a
// client retrying after a dropped acknowledgement stays safe.
func (s *LifecycleService) Transition(ctx context.Context, orderID int64, actorID string, role models.Role, target models.OrderStatus, note string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "LifecycleService.Transition")
	defer span.End()

	acquired, err := s.locker.AcquireOrderLock(ctx, orderID, transitionLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !acquired {
		util.OrderTransitionsRejected.WithLabelValues("conflict").Inc()
		return nil, models.ErrTransitionConflict
	}
	defer func() {
		if err := s.locker.ReleaseOrderLock(ctx, orderID); err != nil {
			s.logger.Warn("Failed to release order lock",
				zap.Int64("order_id", orderID), zap.Error(err))
		}
	}()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		util.OrderTransitionsRejected.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if !s.ownsOrder(order, actorID, role) {
		// Acting on someone else's order looks identical to a missing one.
		util.OrderTransitionsRejected.WithLabelValues("not_owner").Inc()
		return nil, models.ErrOrderNotFound
	}

	if order.Status == target {
		s.logger.Info("Transition already applied, no-op",
			zap.Int64("order_id", orderID), zap.String("status", string(target)))
		return order, nil
	}

	if !models.ActorAllowed(order.Status, target, role) {
		util.OrderTransitionsRejected.WithLabelValues("invalid_edge").Inc()
		return nil, fmt.Errorf("%s -> %s by %s: %w", order.Status, target, role, models.ErrInvalidTransition)
	}

	current, err := s.store.TransitionOrder(ctx, orderID, order.Status, target, note)
	if err != nil {
		// A concurrent caller may have applied the same transition first;
		// that still counts as success for this caller.
		if current == target {
			order.Status = target
			return order, nil
		}
		util.OrderTransitionsRejected.WithLabelValues("race_lost").Inc()
		return nil, err
	}

	order.Status = target
	if target.IsPaid() {
		order.PaymentStatus = models.PaymentStatusPaid
	}

	util.OrderTransitionsTotal.WithLabelValues(string(target)).Inc()
	s.logger.Info("Order transitioned",
		zap.Int64("order_id", orderID),
		zap.String("status", string(target)),
		zap.String("actor_role", string(role)))

	s.publishTransitionEvents(ctx, order, note)
	return order, nil
}

func (s *LifecycleService) ownsOrder(order *models.Order, actorID string, role models.Role) bool {
	switch role {
	case models.RoleVendor:
		return order.VendorID == actorID
	case models.RoleSupplier:
		return order.SupplierID == actorID
	case models.RoleSystem:
		return true
	}
	return false
}

// publishTransitionEvents appends the counter-party notification for the
// order's new status to the event log. Best effort: the state change has
// already durably committed.
func (s *LifecycleService) publishTransitionEvents(ctx context.Context, order *models.Order, note string) {
	var events []interface{}

	switch order.Status {
	case models.StatusApproved:
		events = append(events, &models.OrderDecisionEvent{
			BaseEvent: newBaseEvent(models.EventOrderApproved, order.VendorID),
			OrderID:   order.ID,
			VendorID:  order.VendorID,
			Notes:     note,
		})
	case models.StatusRejected:
		events = append(events, &models.OrderDecisionEvent{
			BaseEvent: newBaseEvent(models.EventOrderRejected, order.VendorID),
			OrderID:   order.ID,
			VendorID:  order.VendorID,
			Notes:     note,
		})
	case models.StatusPaid:
		events = append(events,
			&models.PaymentEvent{
				BaseEvent: newBaseEvent(models.EventPaymentConfirmed, order.SupplierID),
				OrderID:   order.ID,
				Amount:    order.TotalAmount,
			},
			&models.PaymentEvent{
				BaseEvent: newBaseEvent(models.EventPaymentDone, order.VendorID),
				OrderID:   order.ID,
				Amount:    order.TotalAmount,
			})
	case models.StatusDispatched:
		events = append(events, &models.OrderShippingEvent{
			BaseEvent:  newBaseEvent(models.EventOrderDispatched, order.VendorID),
			OrderID:    order.ID,
			SupplierID: order.SupplierID,
			OccurredAt: time.Now(),
		})
	case models.StatusDelivered:
		events = append(events, &models.OrderShippingEvent{
			BaseEvent:  newBaseEvent(models.EventOrderDelivered, order.VendorID),
			OrderID:    order.ID,
			SupplierID: order.SupplierID,
			OccurredAt: time.Now(),
		})
	case models.StatusCancelled:
		events = append(events, &models.OrderCancelledEvent{
			BaseEvent: newBaseEvent(models.EventOrderCancelled, order.SupplierID),
			OrderID:   order.ID,
			Reason:    note,
		})
	}

	for _, event := range events {
		if err := s.events.PublishOrderEvent(ctx, order.ID, event); err != nil {
			s.logger.Error("Failed to publish transition event",
				zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
}

// RecordPayment records the external payment assertion and moves the
// order to Paid on the vendor's behalf. The asserted amount must equal
// the order total; signature verification happens upstream.
func (s *LifecycleService) RecordPayment(ctx context.Context, orderID int64, vendorID string, amount int64, paymentRef string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "LifecycleService.RecordPayment")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.VendorID != vendorID {
		return nil, models.ErrOrderNotFound
	}
	if amount != order.TotalAmount {
		util.OrderTransitionsRejected.WithLabelValues("amount_mismatch").Inc()
		return nil, fmt.Errorf("asserted %d, order total %d: %w",
			amount, order.TotalAmount, models.ErrPaymentAmountMismatch)
	}

	note := fmt.Sprintf("payment recorded (ref %s)", paymentRef)
	return s.Transition(ctx, orderID, vendorID, models.RoleVendor, models.StatusPaid, note)
}

// GetOrder retrieves an order with its items and status history
func (s *LifecycleService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, []models.StatusHistoryEntry, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	history, err := s.store.GetOrderHistory(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	return order, items, history, nil
}

// ListVendorOrders retrieves a vendor's orders for its dashboard
func (s *LifecycleService) ListVendorOrders(ctx context.Context, vendorID string) ([]models.Order, error) {
	return s.store.GetOrdersByVendor(ctx, vendorID)
}

// ListSupplierOrders retrieves a supplier's orders for its dashboard
func (s *LifecycleService) ListSupplierOrders(ctx context.Context, supplierID string) ([]models.Order, error) {
	return s.store.GetOrdersBySupplier(ctx, supplierID)
}

func newBaseEvent(eventType, recipientID string) models.BaseEvent {
	return models.BaseEvent{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		RecipientID: recipientID,
		Timestamp:   time.Now(),
	}
}
