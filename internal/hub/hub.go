package hub

import (
	"encoding/json"
	"sync"
	"time"

	"supply-service/internal/models"
	"supply-service/internal/util"

	"go.uber.org/zap"
)

// Sink is one live connection's outbound side. Send must not block;
// it reports whether the payload was accepted.
type Sink interface {
	Send(data []byte) bool
}

// Envelope is the wire frame pushed to live connections.
type Envelope struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type registration struct {
	userID string
	role   models.Role
}

// Hub is the connection registry: it maps a logical user identity to the
// set of live connections currently associated with it. Owned by the
// service root and injected into whatever needs to emit; never a global.
type Hub struct {
	mu       sync.RWMutex
	byUser   map[string]map[Sink]struct{}
	registry map[Sink]registration
	logger   *zap.Logger
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		byUser:   make(map[string]map[Sink]struct{}),
		registry: make(map[Sink]registration),
		logger:   util.GetLogger(),
	}
}

// Register associates a live connection with a user identity.
func (h *Hub) Register(userID string, role models.Role, sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[Sink]struct{})
	}
	h.byUser[userID][sink] = struct{}{}
	h.registry[sink] = registration{userID: userID, role: role}

	util.ActiveConnections.Inc()
	h.logger.Debug("Connection registered",
		zap.String("user_id", userID),
		zap.String("role", string(role)))
}

// Unregister removes a connection. Safe to call twice.
func (h *Hub) Unregister(sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reg, ok := h.registry[sink]
	if !ok {
		return
	}
	delete(h.registry, sink)
	if conns := h.byUser[reg.userID]; conns != nil {
		delete(conns, sink)
		if len(conns) == 0 {
			delete(h.byUser, reg.userID)
		}
	}

	util.ActiveConnections.Dec()
	h.logger.Debug("Connection unregistered", zap.String("user_id", reg.userID))
}

// Emit delivers an event to every live connection of userID, at most once,
// best effort. No registered connection means the event is dropped; the
// durable state change behind it has already been persisted, so a
// reconnecting client recovers by refreshing.
func (h *Hub) Emit(userID, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		h.logger.Error("Failed to marshal event envelope",
			zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	sinks := make([]Sink, 0, len(h.byUser[userID]))
	for sink := range h.byUser[userID] {
		sinks = append(sinks, sink)
	}
	h.mu.RUnlock()

	if len(sinks) == 0 {
		util.NotificationsDroppedTotal.WithLabelValues("no_connection").Inc()
		return
	}

	for _, sink := range sinks {
		if sink.Send(data) {
			util.NotificationsSentTotal.WithLabelValues(event).Inc()
		} else {
			util.NotificationsDroppedTotal.WithLabelValues("slow_client").Inc()
		}
	}
}

// ConnectionCount reports the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}
