package ingest

import (
	"net/http"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/event"
	"github.com/pulseboard/pulse/pkg/httputil"
	"github.com/pulseboard/pulse/pkg/middleware"
	"github.com/pulseboard/pulse/pkg/observability"
)

// Handlers exposes the ingestion gateway over HTTP.
type Handlers struct {
	service *Service
	logger  *observability.Logger
}

// NewHandlers creates HTTP handlers for the ingestion endpoints.
func NewHandlers(service *Service, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type batchRequest struct {
	Events []event.Event `json:"events"`
}

// IngestSingle handles POST /api/v1/events: one event wrapped into a batch
// of one. Bodies from navigator.sendBeacon arrive without a JSON
// content-type, so the body is parsed regardless of the header.
func (h *Handlers) IngestSingle(w http.ResponseWriter, r *http.Request) {
	var e event.Event
	if err := httputil.ParseJSON(r, &e); err != nil {
		httputil.WriteAPIError(w, api.NewClientInputError("body", "invalid JSON body"))
		return
	}
	h.ingest(w, r, []event.Event{e})
}

// IngestBatch handles POST /api/v1/events/batch.
func (h *Handlers) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteAPIError(w, api.NewClientInputError("body", "invalid JSON body"))
		return
	}
	h.ingest(w, r, req.Events)
}

func (h *Handlers) ingest(w http.ResponseWriter, r *http.Request, events []event.Event) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return
	}

	meta := RequestMeta{
		IPAddress: httputil.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	ack, err := h.service.Ingest(r.Context(), tenant.ID, events, meta)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteAccepted(w, ack)
}

// Recent handles GET /api/v1/events/recent.
func (h *Handlers) Recent(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 50)
	if err != nil {
		httputil.WriteAPIError(w, api.NewClientInputError("limit", "limit must be an integer"))
		return
	}

	events, err := h.service.Recent(r.Context(), tenant.ID, limit)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"events": events})
}
