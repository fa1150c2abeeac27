package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/optica-erp/optica-backend/internal/adjustments"
	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/masterdata/branches"
	"github.com/optica-erp/optica-backend/internal/masterdata/categories"
	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/observability"
	"github.com/optica-erp/optica-backend/internal/reporting"
	"github.com/optica-erp/optica-backend/internal/sales"
	"github.com/optica-erp/optica-backend/internal/shipments"
	"github.com/optica-erp/optica-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	BranchesHandler    *branches.Handler
	CategoriesHandler  *categories.Handler
	ProductsHandler    *products.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	AdjustmentsHandler *adjustments.Handler
	ShipmentsHandler   *shipments.Handler
	ReportingHandler   *reporting.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/branches", params.BranchesHandler.MountRoutes)
	r.Route("/categories", params.CategoriesHandler.MountRoutes)
	r.Route("/products", params.ProductsHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/adjustments", params.AdjustmentsHandler.MountRoutes)
	r.Route("/shipments", params.ShipmentsHandler.MountRoutes)
	r.Route("/reports", params.ReportingHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
