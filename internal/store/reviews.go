package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"supply-service/internal/models"
)

// ApplyReview inserts the review and folds its rating into the supplier's
// running (average, count) pair in one transaction. The supplier row is
// locked FOR UPDATE so concurrent submissions for the same supplier
// serialize; the count never undercounts applied reviews.
func (s *Store) ApplyReview(ctx context.Context, review *models.Review) (newAverage float64, newCount int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	var current struct {
		Average float64 `db:"rating_average"`
		Count   int     `db:"rating_count"`
	}
	err = tx.GetContext(ctx, &current,
		"SELECT rating_average, rating_count FROM suppliers WHERE id = $1 FOR UPDATE",
		review.SupplierID)
	if err == sql.ErrNoRows {
		return 0, 0, models.ErrSupplierNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to lock supplier: %w", err)
	}

	err = tx.GetContext(ctx, review, `
		INSERT INTO reviews (vendor_id, supplier_id, order_id, rating, comment, is_trusted)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		review.VendorID, review.SupplierID, review.OrderID,
		review.Rating, review.Comment, review.IsTrusted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert review: %w", err)
	}

	newCount = current.Count + 1
	newAverage = Round1((current.Average*float64(current.Count) + float64(review.Rating)) / float64(newCount))

	_, err = tx.ExecContext(ctx,
		"UPDATE suppliers SET rating_average = $1, rating_count = $2, updated_at = NOW() WHERE id = $3",
		newAverage, newCount, review.SupplierID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to update supplier rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return newAverage, newCount, nil
}

// GetReviewsBySupplier retrieves a supplier's reviews, newest first
func (s *Store) GetReviewsBySupplier(ctx context.Context, supplierID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE supplier_id = $1 ORDER BY created_at DESC", supplierID)
	return reviews, err
}

// Round1 rounds to one decimal place, the precision the rating contract
// fixes for supplier averages.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
