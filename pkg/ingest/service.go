package ingest

import (
	"context"
	"time"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/async"
	"github.com/pulseboard/pulse/pkg/cache"
	"github.com/pulseboard/pulse/pkg/event"
	"github.com/pulseboard/pulse/pkg/eventstore"
	"github.com/pulseboard/pulse/pkg/middleware"
	"github.com/pulseboard/pulse/pkg/observability"
	"github.com/pulseboard/pulse/pkg/realtime"
)

// RequestMeta is server-observed request metadata attached to every event.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service is the ingestion gateway: validate everything, write durably,
// then feed the caches and the fan-out hub. The durable write happens on
// the request path and its failure fails the request; the cache push and
// hub publish are best-effort side effects that run after the write, so a
// reader that sees an event in the cache or on the live stream can always
// find it in the store.
type Service struct {
	store   *eventstore.Store
	recent  *cache.Recent
	hub     *realtime.Hub
	limiter *middleware.EventRateLimiter
	logger  *observability.Logger
	metrics *observability.Metrics

	maxBatchSize   int
	publishTimeout time.Duration
}

// NewService wires the ingestion pipeline. recent, hub, limiter and metrics
// may each be nil, disabling that side effect.
func NewService(store *eventstore.Store, recent *cache.Recent, hub *realtime.Hub,
	limiter *middleware.EventRateLimiter, logger *observability.Logger,
	metrics *observability.Metrics, maxBatchSize int, publishTimeout time.Duration) *Service {
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	return &Service{
		store:          store,
		recent:         recent,
		hub:            hub,
		limiter:        limiter,
		logger:         logger,
		metrics:        metrics,
		maxBatchSize:   maxBatchSize,
		publishTimeout: publishTimeout,
	}
}

// Ingest validates and persists a batch for one tenant. The batch is
// atomic: any invalid event rejects the whole request and nothing is
// written.
func (s *Service) Ingest(ctx context.Context, tenantID string, events []event.Event, meta RequestMeta) (*api.IngestAck, error) {
	if len(events) == 0 {
		return nil, api.NewClientInputError("events", "batch must contain at least one event")
	}
	if len(events) > s.maxBatchSize {
		s.reject("batch_too_large", len(events))
		return nil, api.NewClientInputError("events", "batch exceeds maximum size")
	}

	now := time.Now()
	if err := event.NormalizeBatch(events, now); err != nil {
		s.reject("invalid", len(events))
		return nil, err
	}
	for i := range events {
		events[i].TenantID = tenantID
		events[i].IPAddress = meta.IPAddress
		events[i].UserAgent = meta.UserAgent
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, tenantID, len(events)); err != nil {
			s.reject("rate_limited", len(events))
			return nil, err
		}
	}

	writeStart := time.Now()
	if err := s.store.Append(ctx, events); err != nil {
		return nil, api.NewExecutionError("failed to persist events: " + err.Error())
	}
	if s.metrics != nil {
		s.metrics.StoreWriteDuration.Observe(time.Since(writeStart).Seconds())
		s.metrics.EventsIngestedTotal.WithLabelValues(tenantID).Add(float64(len(events)))
		s.metrics.IngestBatchSize.Observe(float64(len(events)))
	}

	s.fanOut(ctx, tenantID, events)

	return &api.IngestAck{Accepted: len(events), ReceivedAt: now}, nil
}

// fanOut pushes persisted events to the recent cache and the realtime hub.
// Detached from the request context so a client disconnect after the
// durable write cannot cancel the side effects.
func (s *Service) fanOut(ctx context.Context, tenantID string, events []event.Event) {
	if s.recent != nil {
		batch := make([]event.Event, len(events))
		copy(batch, events)
		async.SafeGoDetached(ctx, s.logger, s.publishTimeout, "recent cache push", func(ctx context.Context) error {
			for _, e := range batch {
				if err := s.recent.Push(ctx, tenantID, e); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if s.hub != nil {
		batch := make([]event.Event, len(events))
		copy(batch, events)
		async.SafeGoDetached(ctx, s.logger, s.publishTimeout, "realtime publish", func(context.Context) error {
			for _, e := range batch {
				s.hub.PublishEvent(tenantID, e)
			}
			return nil
		})
	}
}

// Recent serves the latest events for a tenant, cache first with a store
// fallback when the cache is cold or unavailable.
func (s *Service) Recent(ctx context.Context, tenantID string, limit int) ([]event.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	if s.recent != nil {
		events, err := s.recent.List(ctx, tenantID, limit)
		if err != nil {
			s.logger.WithError(err).Warn("recent cache read failed, falling back to store")
		} else if len(events) > 0 {
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.WithLabelValues("recent").Inc()
			}
			return events, nil
		}
	}
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.WithLabelValues("recent").Inc()
	}

	events, err := s.store.RecentEvents(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Service) reject(reason string, n int) {
	if s.metrics != nil {
		s.metrics.EventsRejectedTotal.WithLabelValues(reason).Add(float64(n))
	}
}
