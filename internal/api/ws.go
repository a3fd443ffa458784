package api

import (
	"net/http"

	"supply-service/internal/hub"
	"supply-service/internal/models"
	"supply-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin enforcement belongs to the gateway in front of this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler attaches dashboard websocket connections to the hub.
type WSHandler struct {
	hub *hub.Hub
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{hub: h}
}

// Attach upgrades the request and registers the connection under the
// caller's identity. Identity comes from the upstream provider via query
// parameters, trusted as given.
func (h *WSHandler) Attach(c *gin.Context) {
	userID := c.Query("user_id")
	role, ok := models.ParseRole(c.Query("role"))
	if userID == "" || !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and role are required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		util.GetLogger().Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	hub.NewSession(h.hub, conn, userID, role)
}
