package branches

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
	r.Get("/branches", h.list)
	r.Get("/branches/{id}", h.show)
	r.Post("/branches", h.create)
	r.Put("/branches/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list branches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branches": list})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid branch id"))
		return
	}
	branch, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var branch Branch
	if err := httpx.DecodeJSON(r, &branch); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	created, err := h.service.Create(r.Context(), branch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid branch id"))
		return
	}
	var branch Branch
	if err := httpx.DecodeJSON(r, &branch); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	if err := h.service.Update(r.Context(), id, branch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
