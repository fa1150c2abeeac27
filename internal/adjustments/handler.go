package adjustments

import (
	"log/slog"
	"net/http"
	"strconv"

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
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/direct/{branchID}", h.directAdjust)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req CreateAdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	adj, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("create adjustment rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adj)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid adjustment id"))
		return
	}
	adj, err := h.service.Approve(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid adjustment id"))
		return
	}
	var body struct {
		Note string `json:"note"`
	}
	_ = httpx.DecodeJSON(r, &body)
	adj, err := h.service.Reject(r.Context(), actor, id, body.Note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) directAdjust(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid branch id"))
		return
	}
	var req DirectAdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	applied, err := h.service.DirectAdjust(r.Context(), actor, branchID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prev_qty": applied.PrevQty, "new_qty": applied.NewQty})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid adjustment id"))
		return
	}
	adj, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, adj)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListAdjustmentsRequest{Status: Status(r.URL.Query().Get("status"))}
	if v, err := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64); err == nil {
		req.BranchID = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		req.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		req.Offset = v
	}
	list, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list adjustments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": list})
}
