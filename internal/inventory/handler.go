package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/optica-erp/optica-backend/internal/platform/httpx"
	"github.com/optica-erp/optica-backend/internal/shared"
)

// Handler serves read-only inventory endpoints. All writes go through the domain
// workflows (sales, adjustments, shipments); there is no direct quantity endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.stockLevels)
	r.Get("/movements", h.movements)
}

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("branch_id is required"))
		return
	}
	levels, err := h.service.StockLevels(r.Context(), branchID)
	if err != nil {
		h.logger.Error("stock levels", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock": levels})
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{Context: MovementContext(r.URL.Query().Get("context"))}
	if v, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64); err == nil {
		filter.ProductID = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64); err == nil {
		filter.BranchID = v
	}
	if v, err := time.Parse(time.RFC3339, r.URL.Query().Get("from")); err == nil {
		filter.From = v
	}
	if v, err := time.Parse(time.RFC3339, r.URL.Query().Get("to")); err == nil {
		filter.To = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = v
	}

	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}
