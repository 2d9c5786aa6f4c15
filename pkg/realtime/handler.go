package realtime

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pulseboard/pulse/pkg/middleware"
	"github.com/pulseboard/pulse/pkg/observability"
)

// ControlMessage is what a subscriber sends to manage topic memberships.
type ControlMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`
}

// Handler upgrades authenticated requests to websocket subscriptions.
type Handler struct {
	hub      *Hub
	logger   *observability.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler bound to a hub.
func NewHandler(hub *Hub, logger *observability.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards are served from other origins; auth happens via
			// the API key, not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /api/v1/realtime. The connection starts subscribed
// to the tenant's own event topic; control messages adjust memberships.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	conn := NewConn(uuid.New().String(), tenant.ID, ws)
	h.hub.Register(conn)
	if err := h.hub.Subscribe(conn.ID(), TenantTopic(tenant.ID)); err != nil {
		h.logger.WithError(err).Error("initial subscription failed")
		h.hub.Remove(conn.ID())
		ws.Close()
		return
	}

	go conn.writePump(h.logger)
	go conn.readPump(h.hub, h.logger, func(msg ControlMessage) {
		h.handleControl(conn, msg)
	})
}

func (h *Handler) handleControl(conn *Conn, msg ControlMessage) {
	if !h.topicAllowed(conn.TenantID(), msg.Topic) {
		h.logger.WithFields(map[string]interface{}{
			"connection_id": conn.ID(),
			"topic":         msg.Topic,
		}).Warn("subscription to foreign topic refused")
		return
	}

	switch msg.Action {
	case "subscribe":
		if err := h.hub.Subscribe(conn.ID(), msg.Topic); err != nil {
			h.logger.WithError(err).Debug("subscribe after disconnect ignored")
		}
	case "unsubscribe":
		h.hub.Unsubscribe(conn.ID(), msg.Topic)
	}
}

// topicAllowed keeps tenants inside their own namespace: the tenant event
// topic must match the authenticated tenant, and dashboard or filter topics
// must carry the tenant id as their first path segment.
func (h *Handler) topicAllowed(tenantID, topic string) bool {
	switch {
	case topic == TenantTopic(tenantID):
		return true
	case strings.HasPrefix(topic, "dashboard:"+tenantID+"/"):
		return true
	case strings.HasPrefix(topic, "filter:"+tenantID+"/"):
		return true
	default:
		return false
	}
}
