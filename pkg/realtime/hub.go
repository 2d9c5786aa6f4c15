package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pulseboard/pulse/pkg/event"
	"github.com/pulseboard/pulse/pkg/observability"
)

// Message is the envelope pushed to subscribers.
type Message struct {
	Type      string      `json:"type"` // "event" or "metric"
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// MetricUpdate is the payload of a "metric" message.
type MetricUpdate struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// TenantTopic returns the topic carrying all of a tenant's events.
func TenantTopic(tenantID string) string { return "tenant:" + tenantID }

// DashboardTopic returns the topic for one dashboard's derived updates.
func DashboardTopic(dashboardID string) string { return "dashboard:" + dashboardID }

// FilterTopic returns a topic keyed by an arbitrary filter descriptor.
func FilterTopic(descriptor string) string { return "filter:" + descriptor }

// Hub maintains topic memberships and pushes newly ingested events and
// metric updates to connected subscribers. Delivery is best-effort: no
// persistence, no replay, no delivery confirmation. A subscriber that falls
// behind has messages dropped rather than slowing publishers; a reconnecting
// client re-fetches state through the aggregation endpoints.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Conn // topic -> connection id -> conn
	conns  map[string]*Conn

	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub. Metrics may be nil in tests.
func NewHub(logger *observability.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		topics:  make(map[string]map[string]*Conn),
		conns:   make(map[string]*Conn),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SubscribersActive.Inc()
	}
}

// Remove drops a connection from the hub and from all topics it joined.
// Called when the subscriber's transport closes.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	conn, existed := h.conns[connID]
	delete(h.conns, connID)
	for topic, members := range h.topics {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()

	if existed {
		conn.closeSend()
		if h.metrics != nil {
			h.metrics.SubscribersActive.Dec()
		}
	}
}

// Subscribe joins a connection to a topic. Idempotent; subscribing an
// unknown connection is a no-op error.
func (h *Hub) Subscribe(connID, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return fmt.Errorf("unknown connection %s", connID)
	}
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[string]*Conn)
		h.topics[topic] = members
	}
	members[connID] = conn
	return nil
}

// Unsubscribe removes a connection from a topic. Idempotent.
func (h *Hub) Unsubscribe(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.topics[topic]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
}

// PublishEvent delivers a newly ingested event to the tenant's subscribers.
func (h *Hub) PublishEvent(tenantID string, e event.Event) {
	h.publish(TenantTopic(tenantID), Message{
		Type:      "event",
		Topic:     TenantTopic(tenantID),
		Payload:   e,
		Timestamp: time.Now(),
	})
	if h.metrics != nil {
		h.metrics.FanoutMessagesTotal.WithLabelValues("event").Inc()
	}
}

// PublishMetric delivers a derived metric update to the tenant's subscribers.
func (h *Hub) PublishMetric(tenantID, name string, value float64) {
	h.publish(TenantTopic(tenantID), Message{
		Type:      "metric",
		Topic:     TenantTopic(tenantID),
		Payload:   MetricUpdate{Name: name, Value: value},
		Timestamp: time.Now(),
	})
	if h.metrics != nil {
		h.metrics.FanoutMessagesTotal.WithLabelValues("metric").Inc()
	}
}

// PublishTo delivers a message to an arbitrary topic (dashboard, filter).
func (h *Hub) PublishTo(topic string, msg Message) {
	msg.Topic = topic
	h.publish(topic, msg)
}

func (h *Hub) publish(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Warn("failed to marshal fan-out message")
		return
	}

	h.mu.RLock()
	members := make([]*Conn, 0, len(h.topics[topic]))
	for _, conn := range h.topics[topic] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	for _, conn := range members {
		if !conn.trySend(data) && h.metrics != nil {
			h.metrics.FanoutDroppedTotal.Inc()
		}
	}
}

// SubscriberCount reports the member count of a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Shutdown removes every connection, closing their send channels so the
// write pumps exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*Conn)
	h.topics = make(map[string]map[string]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.closeSend()
	}
}
