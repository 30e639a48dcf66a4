package http

import (
	"net/http"

	"github.com/rs/zerolog"
)

type Handlers struct {
	Deals     *DealHandler
	Documents *DocumentHandler
}

// NewRouter mounts the API. Every route is rate limited per client and
// access logged.
func NewRouter(h Handlers, limiter *RateLimiter, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	routes := map[string]http.HandlerFunc{
		"/api/dashboard/stats":    h.Deals.DashboardStats,
		"/api/deals/recent":       h.Deals.RecentDeals,
		"/api/deals":              h.Deals.Deals,
		"/api/properties":         h.Deals.CreateProperty,
		"/api/deals/{id}/upload":  h.Documents.Upload,
		"/api/deals/{id}/analyze": h.Deals.AnalyzeDeal,
		"/api/deals/{id}/results": h.Deals.DealResults,
		"/healthz":                healthz,
	}
	for pattern, handler := range routes {
		mux.Handle(pattern, RateLimitMiddleware(limiter, handler))
	}

	return AccessLogMiddleware(log, mux)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
