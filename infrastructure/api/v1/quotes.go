package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/smarthealth/quotekit"
	"github.com/smarthealth/quotekit/infrastructure/api/middleware"
	"github.com/smarthealth/quotekit/infrastructure/api/v1/dto"
)

// QuotesRouter serves the audit log of recently served quotes.
type QuotesRouter struct {
	client *quotekit.Client
	logger *slog.Logger
}

// NewQuotesRouter creates a new QuotesRouter.
func NewQuotesRouter(client *quotekit.Client) *QuotesRouter {
	return &QuotesRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for the audit endpoints.
func (r *QuotesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)

	return router
}

// List handles GET /api/v1/quotes?limit=n.
func (r *QuotesRouter) List(w http.ResponseWriter, req *http.Request) {
	store := r.client.Store()
	if store == nil {
		middleware.WriteJSON(w, http.StatusOK, dto.AuditedQuotesResponse{Quotes: []dto.AuditedQuote{}})
		return
	}

	limit := 20
	if raw := req.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	quotes, err := store.Recent(req.Context(), limit)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	entries := make([]dto.AuditedQuote, len(quotes))
	for i, q := range quotes {
		entries[i] = dto.AuditedQuote{
			ID:           q.ID,
			CreatedAt:    q.CreatedAt,
			Age:          q.Age,
			Location:     q.Location,
			SumInsured:   q.SumInsured,
			PaymentMode:  q.PaymentMode,
			TotalPayable: q.TotalPayable,
			ExampleCount: q.ExampleCount,
			Degraded:     q.Degraded,
			Reconciled:   q.Reconciled,
		}
	}

	middleware.WriteJSON(w, http.StatusOK, dto.AuditedQuotesResponse{Quotes: entries})
}
