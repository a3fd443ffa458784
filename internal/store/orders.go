package store

import (
	"context"
	"database/sql"
	"fmt"

	"supply-service/internal/models"
)

// CreateOrder persists a new order, its items, and the first history entry
// in a single transaction. The order arrives with status Requested and a
// pre-computed total; item line totals are written as given.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (vendor_id, supplier_id, total_amount, status, payment_status, delivery_address, delivery_instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.VendorID, order.SupplierID, order.TotalAmount,
		order.Status, order.PaymentStatus,
		order.DeliveryAddress, order.DeliveryInstructions)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, material_id, name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			items[i].OrderID, items[i].MaterialID, items[i].Name,
			items[i].Quantity, items[i].UnitPrice, items[i].LineTotal)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_status_history (order_id, status, note) VALUES ($1, $2, $3)",
		order.ID, order.Status, "order created")
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrderHistory retrieves the append-only status history for an order
func (s *Store) GetOrderHistory(ctx context.Context, orderID int64) ([]models.StatusHistoryEntry, error) {
	var history []models.StatusHistoryEntry
	err := s.db.SelectContext(ctx, &history,
		"SELECT * FROM order_status_history WHERE order_id = $1 ORDER BY id", orderID)
	return history, err
}

// GetOrdersByVendor retrieves a vendor's orders, newest first
func (s *Store) GetOrdersByVendor(ctx context.Context, vendorID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE vendor_id = $1 ORDER BY created_at DESC", vendorID)
	return orders, err
}

// GetOrdersBySupplier retrieves a supplier's orders, newest first
func (s *Store) GetOrdersBySupplier(ctx context.Context, supplierID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE supplier_id = $1 ORDER BY created_at DESC", supplierID)
	return orders, err
}

// TransitionOrder applies a validated status change and its history entry
// as one atomic unit. The row is locked FOR UPDATE and the update is
// conditional on the expected current status, so a losing concurrent
// caller observes the new state instead of clobbering it. Returns the
// status the row actually held under the lock.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, from, to models.OrderStatus, note string) (models.OrderStatus, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var current models.OrderStatus
	err = tx.GetContext(ctx, &current,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if err == sql.ErrNoRows {
		return "", models.ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock order: %w", err)
	}

	if current != from {
		return current, models.ErrInvalidTransition
	}

	paymentStatus := models.PaymentStatusUnpaid
	if to.IsPaid() {
		paymentStatus = models.PaymentStatusPaid
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, payment_status = $2, updated_at = NOW() WHERE id = $3 AND status = $4",
		to, paymentStatus, orderID, from)
	if err != nil {
		return current, fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return current, models.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_status_history (order_id, status, note) VALUES ($1, $2, $3)",
		orderID, to, note)
	if err != nil {
		return current, fmt.Errorf("failed to append history entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return current, err
	}
	return to, nil
}
