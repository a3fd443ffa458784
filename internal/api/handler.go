package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"supply-service/internal/models"
	"supply-service/internal/service"
	"supply-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	lifecycle *service.LifecycleService
	discovery *service.DiscoveryService
	reviews   *service.ReviewService
	ws        *WSHandler
}

// NewHandler creates a new HTTP handler
func NewHandler(
	lifecycle *service.LifecycleService,
	discovery *service.DiscoveryService,
	reviews *service.ReviewService,
	ws *WSHandler,
) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		discovery: discovery,
		reviews:   reviews,
		ws:        ws,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", h.ws.Attach)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/vendors/:id/orders", h.listVendorOrders)
		v1.GET("/suppliers/:id/orders", h.listSupplierOrders)

		v1.POST("/orders/:id/approve", h.transitionTo(models.StatusApproved))
		v1.POST("/orders/:id/reject", h.transitionTo(models.StatusRejected))
		v1.POST("/orders/:id/dispatch", h.transitionTo(models.StatusDispatched))
		v1.POST("/orders/:id/deliver", h.transitionTo(models.StatusDelivered))
		v1.POST("/orders/:id/cancel", h.transitionTo(models.StatusCancelled))
		v1.POST("/orders/:id/payment", h.recordPayment)

		v1.GET("/suppliers/search", h.searchSuppliers)
		v1.POST("/reviews", h.submitReview)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// identity extracts the caller's identity as asserted by the upstream
// identity provider; the core trusts it as given.
func identity(c *gin.Context) (string, models.Role, bool) {
	userID := c.GetHeader("X-User-ID")
	role, ok := models.ParseRole(c.GetHeader("X-User-Role"))
	// The system role is internal to the delivery worker; it never
	// arrives over HTTP.
	if userID == "" || !ok || role == models.RoleSystem {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid identity headers"})
		return "", "", false
	}
	return userID, role, true
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, items, err := h.lifecycle.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
		"items": items,
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, items, history, err := h.lifecycle.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"items":   items,
		"history": history,
	})
}

func (h *Handler) listVendorOrders(c *gin.Context) {
	orders, err := h.lifecycle.ListVendorOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listSupplierOrders(c *gin.Context) {
	orders, err := h.lifecycle.ListSupplierOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type transitionRequest struct {
	Note string `json:"note"`
}

// transitionTo builds the handler for one lifecycle action route.
func (h *Handler) transitionTo(target models.OrderStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		actorID, role, ok := identity(c)
		if !ok {
			return
		}

		var req transitionRequest
		_ = c.ShouldBindJSON(&req) // body is optional

		order, err := h.lifecycle.Transition(c.Request.Context(), orderID, actorID, role, target, req.Note)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

type paymentRequest struct {
	Amount     int64  `json:"amount" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
}

// recordPayment handles the external payment assertion
func (h *Handler) recordPayment(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	actorID, role, ok := identity(c)
	if !ok {
		return
	}
	if role != models.RoleVendor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only vendors record payments"})
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.lifecycle.RecordPayment(c.Request.Context(), orderID, actorID, req.Amount, req.PaymentRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// searchSuppliers handles supplier discovery
func (h *Handler) searchSuppliers(c *gin.Context) {
	params := service.SearchParams{
		VendorID:     c.Query("vendor_id"),
		Query:        c.Query("q"),
		VerifiedOnly: c.Query("verified_only") == "true",
	}
	if params.VendorID == "" {
		// Fall back to the identity header for dashboard calls.
		params.VendorID = c.GetHeader("X-User-ID")
	}
	if v := c.Query("max_distance_km"); v != "" {
		params.MaxDistanceKm, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.Query("min_rating"); v != "" {
		params.MinRating, _ = strconv.ParseFloat(v, 64)
	}

	result, err := h.discovery.Search(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// submitReview handles review submission
func (h *Handler) submitReview(c *gin.Context) {
	var req service.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	review, newAverage, newCount, err := h.reviews.Submit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"review":      review,
		"new_average": newAverage,
		"new_count":   newCount,
	})
}

func orderIDParam(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return 0, false
	}
	return orderID, true
}

// respondError maps the domain error taxonomy to HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMaterialUnavailable),
		errors.Is(err, models.ErrMinimumQuantity),
		errors.Is(err, models.ErrInvalidRating),
		errors.Is(err, models.ErrInvalidReviewLength),
		errors.Is(err, models.ErrPaymentAmountMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrOrderNotReviewable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrTransitionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})

	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrSupplierNotFound),
		errors.Is(err, models.ErrVendorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, models.ErrVendorLocationMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "details": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
