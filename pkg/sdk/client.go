package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/pulse/pkg/event"
	"github.com/pulseboard/pulse/pkg/observability"
)

const (
	defaultBatchSize     = 20
	defaultFlushInterval = 10 * time.Second
	defaultMaxRetries    = 3
)

type clientState int

const (
	stateActive clientState = iota
	stateDraining
	stateDestroyed
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Endpoint      string // base URL of the ingestion service
	APIKey        string
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	QueueStore    QueueStore
	HTTPClient    *http.Client
	Logger        *observability.Logger
	Clock         func() time.Time
}

// Client buffers events locally and delivers them in batches. Recording
// calls never block on the network and never surface delivery errors;
// transient failures are retried on later flushes, and events that exhaust
// their retry budget are dropped.
//
// Clients are owned by the caller; create one per credential rather than
// sharing a package-level instance.
type Client struct {
	opts Options

	mu        sync.Mutex
	queue     []QueuedEvent
	state     clientState
	online    bool
	userID    string
	sessionID string

	stopTicker chan struct{}
	tickerDone chan struct{}
}

// New creates a client and restores any persisted queue snapshot, so
// events recorded before a crash or offline shutdown are replayed.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.QueueStore == nil {
		opts.QueueStore = newMemoryQueueStore()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Client{
		opts:       opts,
		online:     true,
		userID:     "anon:" + uuid.NewString(),
		sessionID:  uuid.NewString(),
		stopTicker: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}

	restored, err := opts.QueueStore.Load()
	if err != nil {
		opts.Logger.WithError(err).Warn("failed to restore queue snapshot")
	}
	c.queue = restored

	go c.flushLoop()
	return c, nil
}

func (c *Client) flushLoop() {
	defer close(c.tickerDone)
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Flush(context.Background()); err != nil {
				c.opts.Logger.WithError(err).Debug("periodic flush failed")
			}
		case <-c.stopTicker:
			return
		}
	}
}

// Track records an event. Never blocks on delivery; after Close it is a
// no-op.
func (c *Client) Track(name string, props map[string]event.Value) {
	c.mu.Lock()
	if c.state != stateActive {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, QueuedEvent{Event: event.Event{
		ID:         uuid.NewString(),
		UserID:     c.userID,
		SessionID:  c.sessionID,
		Name:       name,
		Properties: props,
		Timestamp:  c.opts.Clock(),
		Platform:   event.PlatformWeb,
	}})
	c.snapshotLocked()
	shouldFlush := len(c.queue) >= c.opts.BatchSize && c.online
	c.mu.Unlock()

	if shouldFlush {
		go func() {
			if err := c.Flush(context.Background()); err != nil {
				c.opts.Logger.WithError(err).Debug("batch-size flush failed")
			}
		}()
	}
}

// Page records a page view. Host environments hook their navigation
// callback to this method.
func (c *Client) Page(path string) {
	c.Track("page_view", map[string]event.Value{"path": event.String(path)})
}

// Identify attaches a known user id to subsequent events.
func (c *Client) Identify(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive || userID == "" {
		return
	}
	c.userID = userID
}

// SetOnline updates the connectivity state supplied by the host
// environment. Going offline suppresses delivery while recording
// continues; coming back online triggers an immediate flush.
func (c *Client) SetOnline(online bool) {
	c.mu.Lock()
	wasOffline := !c.online
	c.online = online
	c.mu.Unlock()

	if online && wasOffline {
		go func() {
			if err := c.Flush(context.Background()); err != nil {
				c.opts.Logger.WithError(err).Debug("reconnect flush failed")
			}
		}()
	}
}

// Flush delivers the pending queue as one batch. The queue is taken and
// cleared atomically; on transient failure the batch is requeued at the
// front with retry counts incremented, and events past the retry ceiling
// are dropped. Non-retryable rejections drop the batch.
func (c *Client) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateDestroyed || !c.online || len(c.queue) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.queue
	c.queue = nil
	c.snapshotLocked()
	c.mu.Unlock()

	err := c.send(ctx, batch)
	if err == nil {
		return nil
	}

	if !isTransient(err) {
		c.opts.Logger.WithError(err).Warn("batch rejected, dropping events")
		return err
	}

	// Requeue at the front so delivery order is preserved relative to
	// events recorded during the attempt.
	var retained []QueuedEvent
	dropped := 0
	for _, qe := range batch {
		qe.RetryCount++
		if qe.RetryCount > c.opts.MaxRetries {
			dropped++
			continue
		}
		retained = append(retained, qe)
	}
	if dropped > 0 {
		c.opts.Logger.WithField("dropped", dropped).Warn("events exceeded retry budget")
	}

	c.mu.Lock()
	c.queue = append(retained, c.queue...)
	c.snapshotLocked()
	c.mu.Unlock()
	return err
}

// transportError marks failures worth retrying.
type transportError struct {
	msg string
}

func (e *transportError) Error() string { return e.msg }

func isTransient(err error) bool {
	_, ok := err.(*transportError)
	return ok
}

type batchPayload struct {
	Events []event.Event `json:"events"`
}

func (c *Client) newBatchRequest(ctx context.Context, batch []QueuedEvent) (*http.Request, error) {
	events := make([]event.Event, len(batch))
	for i, qe := range batch {
		events[i] = qe.Event
	}
	body, err := json.Marshal(batchPayload{Events: events})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.Endpoint+"/api/v1/events/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.opts.APIKey)
	return req, nil
}

func (c *Client) send(ctx context.Context, batch []QueuedEvent) error {
	req, err := c.newBatchRequest(ctx, batch)
	if err != nil {
		return err
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return &transportError{msg: "delivery failed: " + err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &transportError{msg: fmt.Sprintf("delivery failed with status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("batch rejected with status %d", resp.StatusCode)
	}
}

// beacon issues the teardown request and walks away: the response status is
// never classified because the client is gone before anything could act on
// it. This is the closest Go gets to a page-unload beacon.
func (c *Client) beacon(ctx context.Context, batch []QueuedEvent) {
	req, err := c.newBatchRequest(ctx, batch)
	if err != nil {
		return
	}
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		c.opts.Logger.WithError(err).Debug("final beacon send failed")
		return
	}
	resp.Body.Close()
}

// Close drains the client: the final batch is sent fire-and-forget the way
// a page-unload beacon would be, the flush loop stops, and the client
// becomes permanently inert.
func (c *Client) Close(ctx context.Context) {
	c.mu.Lock()
	if c.state != stateActive {
		c.mu.Unlock()
		return
	}
	c.state = stateDraining
	batch := c.queue
	c.queue = nil
	online := c.online
	c.mu.Unlock()

	close(c.stopTicker)
	<-c.tickerDone

	if online && len(batch) > 0 {
		c.beacon(ctx, batch)
		batch = nil
	}

	// Whatever could not be attempted stays in the snapshot so the next
	// client instance replays it.
	if err := c.opts.QueueStore.Save(batch); err != nil {
		c.opts.Logger.WithError(err).Debug("failed to persist queue snapshot")
	}

	c.mu.Lock()
	c.state = stateDestroyed
	c.mu.Unlock()
}

// Reset discards identity and pending state: new anonymous user and
// session ids, queue and persisted snapshot dropped.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return
	}
	c.userID = "anon:" + uuid.NewString()
	c.sessionID = uuid.NewString()
	c.queue = nil
	if err := c.opts.QueueStore.Clear(); err != nil {
		c.opts.Logger.WithError(err).Debug("failed to clear queue snapshot")
	}
}

// Pending reports the number of queued events.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// snapshotLocked persists the queue. Failures are logged and swallowed:
// persistence is an offline-survival enhancement, not a delivery
// guarantee.
func (c *Client) snapshotLocked() {
	if err := c.opts.QueueStore.Save(c.queue); err != nil {
		c.opts.Logger.WithError(err).Debug("failed to persist queue snapshot")
	}
}
