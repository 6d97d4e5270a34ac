package exchanges

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockline-erp/stockline/internal/platform/httpx"
	"github.com/stockline-erp/stockline/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes wires the exchange CRUD surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type exchangeRequest struct {
	WarehouseID      int64  `json:"warehouseId" validate:"required,gt=0"`
	SourceProductID  int64  `json:"sourceProductId" validate:"required,gt=0"`
	SourceCategoryID int64  `json:"sourceCategoryId" validate:"required,gt=0"`
	DestProductID    int64  `json:"destProductId" validate:"required,gt=0"`
	DestCategoryID   int64  `json:"destCategoryId" validate:"required,gt=0"`
	Quantity         int64  `json:"quantity" validate:"required,gt=0"`
	Remark           string `json:"remark"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CreateInput, bool) {
	var req exchangeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return CreateInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return CreateInput{}, false
	}
	return CreateInput{
		WarehouseID:      req.WarehouseID,
		SourceProductID:  req.SourceProductID,
		SourceCategoryID: req.SourceCategoryID,
		DestProductID:    req.DestProductID,
		DestCategoryID:   req.DestCategoryID,
		Quantity:         req.Quantity,
		Remark:           req.Remark,
		IdempotencyKey:   r.Header.Get("Idempotency-Key"),
	}, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	exchanges, total, err := h.service.List(r.Context(), page, limit, q.Get("search"))
	if err != nil {
		h.logger.Error("list exchanges failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if exchanges == nil {
		exchanges = []Exchange{}
	}
	httpx.Page(w, exchanges, shared.NewPagination(page, limit, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	e, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create exchange failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, e)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	e, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update exchange failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, e)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete exchange failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"deleted": id})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid ID")
		return 0, false
	}
	return id, true
}
