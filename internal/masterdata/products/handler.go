package products

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mdshared "github.com/optica-erp/optica-backend/internal/masterdata/shared"
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
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.show)
	r.Get("/products/{id}/prices", h.priceHistory)
	r.Post("/products", h.create)
	r.Put("/products/{id}/prices", h.updatePricing)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := mdshared.ListFilters{
		Page:    mdshared.DefaultPage,
		Limit:   mdshared.DefaultLimit,
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort_by"),
		SortDir: r.URL.Query().Get("sort_dir"),
		Status:  r.URL.Query().Get("status"),
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if categoryID, err := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64); err == nil {
		filters.CategoryID = &categoryID
	}

	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   list,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid product id"))
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) priceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid product id"))
		return
	}
	history, err := h.service.PriceHistory(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	product, err := h.service.Create(r.Context(), Product{
		Code:       req.Code,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Unit:       req.Unit,
		SalePrice:  req.SalePrice,
		CostPrice:  req.CostPrice,
		MinStock:   req.MinStock,
	}, req.BranchIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updatePricing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Validationf("invalid product id"))
		return
	}
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req UpdatePricingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("invalid request body"))
		return
	}
	if err := h.service.UpdatePricing(r.Context(), id, req.SalePrice, req.CostPrice, actor.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
