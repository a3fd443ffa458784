package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"supply-service/internal/models"
	"supply-service/internal/util"

	"go.uber.org/zap"
)

// ReviewService is the rating aggregator: the single writer of supplier
// ratings. Serialization of concurrent submissions for one supplier is
// the store's contract (ApplyReview).
type ReviewService struct {
	store  ReviewStore
	cache  RatingCache
	events EventLog
	logger *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store ReviewStore, cache RatingCache, events EventLog) *ReviewService {
	return &ReviewService{
		store:  store,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// SubmitReviewRequest is one vendor's feedback on one order.
type SubmitReviewRequest struct {
	VendorID   string `json:"vendor_id" binding:"required"`
	SupplierID string `json:"supplier_id" binding:"required"`
	OrderID    int64  `json:"order_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment" binding:"required"`
	IsTrusted  bool   `json:"is_trusted"`
}

// Submit validates and applies a review, returning the supplier's updated
// (average, count). All validation happens before any write.
func (s *ReviewService) Submit(ctx context.Context, req *SubmitReviewRequest) (*models.Review, float64, int, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.Submit")
	defer span.End()

	if req.Rating < 1 || req.Rating > 5 {
		util.ReviewsRejectedTotal.WithLabelValues("invalid_rating").Inc()
		return nil, 0, 0, models.ErrInvalidRating
	}
	if n := utf8.RuneCountInString(req.Comment); n < models.ReviewCommentMinLen || n > models.ReviewCommentMaxLen {
		util.ReviewsRejectedTotal.WithLabelValues("invalid_length").Inc()
		return nil, 0, 0, models.ErrInvalidReviewLength
	}

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		util.ReviewsRejectedTotal.WithLabelValues("order_not_found").Inc()
		return nil, 0, 0, err
	}
	if order.VendorID != req.VendorID || order.SupplierID != req.SupplierID {
		util.ReviewsRejectedTotal.WithLabelValues("not_owner").Inc()
		return nil, 0, 0, models.ErrOrderNotFound
	}
	if !order.Status.Reviewable() {
		util.ReviewsRejectedTotal.WithLabelValues("not_reviewable").Inc()
		return nil, 0, 0, fmt.Errorf("order %d is %s: %w",
			order.ID, order.Status, models.ErrOrderNotReviewable)
	}

	review := &models.Review{
		VendorID:   req.VendorID,
		SupplierID: req.SupplierID,
		OrderID:    req.OrderID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		IsTrusted:  req.IsTrusted,
	}

	newAverage, newCount, err := s.store.ApplyReview(ctx, review)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to apply review: %w", err)
	}

	util.ReviewsSubmittedTotal.Inc()
	s.logger.Info("Review applied",
		zap.String("supplier_id", req.SupplierID),
		zap.Int("rating", req.Rating),
		zap.Float64("new_average", newAverage),
		zap.Int("new_count", newCount))

	// Cache refresh and fan-out are best effort; the rating has already
	// durably committed.
	if err := s.cache.SetSupplierRating(ctx, req.SupplierID, newAverage, newCount); err != nil {
		s.logger.Warn("Failed to refresh rating cache",
			zap.String("supplier_id", req.SupplierID), zap.Error(err))
	}

	for _, recipient := range []string{req.SupplierID, req.VendorID} {
		event := &models.ReviewSubmittedEvent{
			BaseEvent:  newBaseEvent(models.EventReviewSubmitted, recipient),
			SupplierID: req.SupplierID,
			Review:     *review,
			NewAverage: newAverage,
			NewCount:   newCount,
		}
		if err := s.events.PublishReviewSubmitted(ctx, event); err != nil {
			s.logger.Error("Failed to publish review_submitted", zap.Error(err))
		}
	}

	return review, newAverage, newCount, nil
}
