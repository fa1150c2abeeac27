package reporting

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/optica-erp/optica-backend/internal/platform/httpx"
	"github.com/optica-erp/optica-backend/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/low-stock", h.lowStock)
	r.Get("/writeoff-loss", h.writeoffLoss)
	r.Get("/dashboard", h.dashboard)
}

func queryPeriod(r *http.Request) Period {
	var p Period
	if v, err := time.Parse(time.RFC3339, r.URL.Query().Get("from")); err == nil {
		p.From = v
	}
	if v, err := time.Parse(time.RFC3339, r.URL.Query().Get("to")); err == nil {
		p.To = v
	}
	return p
}

func queryBranch(r *http.Request) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	return v
}

func requireManager(r *http.Request) error {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		return shared.ErrForbidden
	}
	if actor.Role != shared.RoleAdmin && actor.Role != shared.RoleManager {
		return shared.ErrForbidden
	}
	return nil
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.LowStock(r.Context(), queryBranch(r))
	if err != nil {
		h.logger.Error("low stock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"low_stock": list})
}

func (h *Handler) writeoffLoss(w http.ResponseWriter, r *http.Request) {
	if err := requireManager(r); err != nil {
		httpx.RespondError(w, err)
		return
	}
	loss, err := h.service.WriteoffLoss(r.Context(), queryBranch(r), queryPeriod(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"writeoff_loss": loss})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context(), queryBranch(r), queryPeriod(r))
	if err != nil {
		h.logger.Error("dashboard report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
