package purchases

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockline-erp/stockline/internal/platform/httpx"
	"github.com/stockline-erp/stockline/internal/shared"
	"github.com/stockline-erp/stockline/internal/stock"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes wires the purchase CRUD surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// MountReturnRoutes wires the purchase-return CRUD surface.
func (h *Handler) MountReturnRoutes(r chi.Router) {
	r.Get("/", h.listReturns)
	r.Post("/", h.createReturn)
	r.Get("/{id}", h.showReturn)
	r.Put("/{id}", h.updateReturn)
	r.Delete("/{id}", h.deleteReturn)
}

type purchaseRequest struct {
	SupplierName string           `json:"supplierName" validate:"required"`
	TransportID  int64            `json:"transportId"`
	Remark       string           `json:"remark"`
	Items        []stock.LineItem `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CreateInput, bool) {
	var req purchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return CreateInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return CreateInput{}, false
	}
	return CreateInput{
		SupplierName:   req.SupplierName,
		TransportID:    req.TransportID,
		Remark:         req.Remark,
		Items:          req.Items,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit, search := listParams(r)
	purchases, total, err := h.service.List(r.Context(), page, limit, search)
	if err != nil {
		h.logger.Error("list purchases failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if purchases == nil {
		purchases = []Purchase{}
	}
	httpx.Page(w, purchases, shared.NewPagination(page, limit, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, p)
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
	p, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update purchase failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete purchase failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"deleted": id})
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	page, limit, search := listParams(r)
	returns, total, err := h.service.ListReturns(r.Context(), page, limit, search)
	if err != nil {
		h.logger.Error("list purchase returns failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if returns == nil {
		returns = []Return{}
	}
	httpx.Page(w, returns, shared.NewPagination(page, limit, total))
}

func (h *Handler) showReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ret, err := h.service.GetReturn(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, ret)
}

func (h *Handler) createReturn(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	ret, err := h.service.CreateReturn(r.Context(), input)
	if err != nil {
		h.logger.Error("create purchase return failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, ret)
}

func (h *Handler) updateReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	ret, err := h.service.UpdateReturn(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update purchase return failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, ret)
}

func (h *Handler) deleteReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteReturn(r.Context(), id); err != nil {
		h.logger.Error("delete purchase return failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"deleted": id})
}

func listParams(r *http.Request) (page, limit int, search string) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	return page, limit, q.Get("search")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.BadRequest(w, "invalid ID")
		return 0, false
	}
	return id, true
}
