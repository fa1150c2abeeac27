package sales

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
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Post("/", h.create)
	r.Post("/{id}/cancel", h.cancel)
	r.Get("/kpi", h.kpi)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	sale, err := h.service.CreateSale(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("create sale rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid sale id"))
		return
	}
	sale, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid sale id"))
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListSalesRequest{Status: Status(r.URL.Query().Get("status"))}
	if v, err := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64); err == nil {
		req.BranchID = v
	}
	if v, err := time.Parse(time.RFC3339, r.URL.Query().Get("date_from")); err == nil {
		req.DateFrom = &v
	}
	if v, err := time.Parse(time.RFC3339, r.URL.Query().Get("date_to")); err == nil {
		req.DateTo = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		req.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		req.Offset = v
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": list, "total": total})
}

func (h *Handler) kpi(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	now := time.Now().UTC()
	month, year := int(now.Month()), now.Year()
	if v, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil {
		month = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		year = v
	}
	userID := actor.UserID
	if v, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64); err == nil && (actor.Role == shared.RoleAdmin || actor.Role == shared.RoleManager) {
		userID = v
	}
	entries, err := h.service.KPI(r.Context(), userID, month, year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"kpi": entries})
}
