package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smarthealth/quotekit"
	"github.com/smarthealth/quotekit/infrastructure/api/middleware"
	"github.com/smarthealth/quotekit/infrastructure/api/v1/dto"
)

// StatusRouter reports the vector index state.
type StatusRouter struct {
	client *quotekit.Client
	logger *slog.Logger
}

// NewStatusRouter creates a new StatusRouter.
func NewStatusRouter(client *quotekit.Client) *StatusRouter {
	return &StatusRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for status endpoints.
func (r *StatusRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/status", r.Status)

	return router
}

// Status handles GET /api/v1/index/status.
func (r *StatusRouter) Status(w http.ResponseWriter, req *http.Request) {
	stats := r.client.Quotes.Stats()

	if !stats.Loaded() {
		middleware.WriteJSON(w, http.StatusOK, dto.StatusResponse{
			Status:  "not_ready",
			Message: "index not loaded; run the ingest command and check INDEX_DIR",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.StatusResponse{
		Status:        "ready",
		Count:         stats.Count(),
		Dimension:     stats.Dimension(),
		MetadataCount: stats.MetadataCount(),
	})
}
