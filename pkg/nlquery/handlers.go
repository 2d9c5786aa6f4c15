package nlquery

import (
	"net/http"

	"github.com/pulseboard/pulse/pkg/api"
	"github.com/pulseboard/pulse/pkg/httputil"
	"github.com/pulseboard/pulse/pkg/middleware"
	"github.com/pulseboard/pulse/pkg/observability"
)

// Handlers exposes the query service over HTTP.
type Handlers struct {
	service *Service
	history *History
	logger  *observability.Logger
}

// NewHandlers creates HTTP handlers for the query endpoints.
func NewHandlers(service *Service, history *History, logger *observability.Logger) *Handlers {
	return &Handlers{service: service, history: history, logger: logger}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/v1/query.
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return
	}

	var req askRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteAPIError(w, api.NewClientInputError("body", "invalid JSON body"))
		return
	}

	answer, err := h.service.Answer(r.Context(), tenant.ID, req.Question)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteSuccess(w, answer)
}

// HistoryList handles GET /api/v1/query/history.
func (h *Handlers) HistoryList(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		httputil.WriteAPIError(w, api.NewAuthenticationError("authentication required"))
		return
	}
	if h.history == nil {
		httputil.WriteSuccess(w, map[string]interface{}{"records": []Record{}})
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 20)
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	records, err := h.history.Recent(r.Context(), tenant.ID, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to load query history")
		httputil.WriteAPIError(w, api.NewExecutionError("failed to load query history"))
		return
	}
	if records == nil {
		records = []Record{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"records": records})
}
