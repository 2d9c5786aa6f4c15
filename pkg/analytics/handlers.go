package analytics

import (
	"net/http"
	"time"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/httputil"
	"github.com/pulseboard/pulse/pkg/middleware"
	"github.com/pulseboard/pulse/pkg/observability"
)

// Handlers exposes the aggregation service over HTTP.
type Handlers struct {
	service *Service
	logger  *observability.Logger
}

// NewHandlers creates HTTP handlers for the analytics endpoints.
func NewHandlers(service *Service, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

func (h *Handlers) resolve(w http.ResponseWriter, r *http.Request) (string, DateRange, bool) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return "", DateRange{}, false
	}
	rng, err := ResolveRange(httputil.ParseQueryString(r, "range", "7d"), time.Now())
	if err != nil {
		httputil.WriteAPIError(w, err)
		return "", DateRange{}, false
	}
	return tenant.ID, rng, true
}

// Overview handles GET /api/v1/analytics/overview.
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	tenantID, rng, ok := h.resolve(w, r)
	if !ok {
		return
	}
	overview, err := h.service.Overview(r.Context(), tenantID, rng)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteSuccess(w, overview)
}

// DailyActiveUsers handles GET /api/v1/analytics/dau.
func (h *Handlers) DailyActiveUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, rng, ok := h.resolve(w, r)
	if !ok {
		return
	}
	series, err := h.service.DailyActiveUsers(r.Context(), tenantID, rng)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"series": series})
}

type funnelRequest struct {
	Steps []string `json:"steps"`
	Range string   `json:"range"`
}

// Funnel handles POST /api/v1/analytics/funnel.
func (h *Handlers) Funnel(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return
	}
	var req funnelRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteAPIError(w, api.NewClientInputError("body", "invalid JSON body"))
		return
	}
	rng, err := ResolveRange(req.Range, time.Now())
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	steps, err := h.service.Funnel(r.Context(), tenant.ID, req.Steps, rng)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"steps": steps})
}

// Retention handles GET /api/v1/analytics/retention.
func (h *Handlers) Retention(w http.ResponseWriter, r *http.Request) {
	tenantID, rng, ok := h.resolve(w, r)
	if !ok {
		return
	}
	cohorts, err := h.service.Retention(r.Context(), tenantID, rng)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if cohorts == nil {
		cohorts = []RetentionCohort{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"cohorts": cohorts})
}

// TopPages handles GET /api/v1/analytics/pages.
func (h *Handlers) TopPages(w http.ResponseWriter, r *http.Request) {
	tenantID, rng, ok := h.resolve(w, r)
	if !ok {
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", 10)
	if err != nil {
		httputil.WriteAPIError(w, api.NewClientInputError("limit", "limit must be an integer"))
		return
	}
	pages, err := h.service.TopPages(r.Context(), tenantID, rng, limit)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if pages == nil {
		pages = []PageCount{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"pages": pages})
}

// Realtime handles GET /api/v1/analytics/realtime.
func (h *Handlers) Realtime(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return
	}
	snap, err := h.service.RealtimeSnapshot(r.Context(), tenant.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteSuccess(w, snap)
}
