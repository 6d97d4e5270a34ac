package sales

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
	logger         *slog.Logger
	service        *Service
	validate       *validator.Validate
	exportRowLimit int
}

func NewHandler(logger *slog.Logger, service *Service, exportRowLimit int) *Handler {
	if exportRowLimit <= 0 {
		exportRowLimit = 10000
	}
	return &Handler{logger: logger, service: service, validate: validator.New(), exportRowLimit: exportRowLimit}
}

// MountRoutes wires the sale CRUD surface plus the Excel export.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/export", h.export)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// MountReturnRoutes wires the sale-return CRUD surface.
func (h *Handler) MountReturnRoutes(r chi.Router) {
	r.Get("/", h.listReturns)
	r.Post("/", h.createReturn)
	r.Get("/{id}", h.showReturn)
	r.Put("/{id}", h.updateReturn)
	r.Delete("/{id}", h.deleteReturn)
}

type saleRequest struct {
	CustomerID  int64            `json:"customerId" validate:"required,gt=0"`
	TransportID int64            `json:"transportId"`
	Remark      string           `json:"remark"`
	Items       []stock.LineItem `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CreateInput, bool) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid request body")
		return CreateInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return CreateInput{}, false
	}
	return CreateInput{
		CustomerID:     req.CustomerID,
		TransportID:    req.TransportID,
		Remark:         req.Remark,
		Items:          req.Items,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit, search := listParams(r)
	sales, total, err := h.service.List(r.Context(), page, limit, search)
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	httpx.Page(w, sales, shared.NewPagination(page, limit, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, sale)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create sale failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, sale)
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
	sale, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.logger.Error("update sale failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, sale)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete sale failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, map[string]any{"deleted": id})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.ListAll(r.Context(), h.exportRowLimit)
	if err != nil {
		h.logger.Error("export sales failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	workbook, err := BuildWorkbook(sales)
	if err != nil {
		h.logger.Error("build sales workbook failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename=`+stock.ExportFilename("sales"))
	if err := workbook.Write(w); err != nil {
		h.logger.Error("write sales workbook failed", slog.Any("error", err))
	}
}

func (h *Handler) listReturns(w http.ResponseWriter, r *http.Request) {
	page, limit, search := listParams(r)
	returns, total, err := h.service.ListReturns(r.Context(), page, limit, search)
	if err != nil {
		h.logger.Error("list sale returns failed", slog.Any("error", err))
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
		h.logger.Error("create sale return failed", slog.Any("error", err))
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
		h.logger.Error("update sale return failed", slog.Any("error", err), slog.Int64("id", id))
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
		h.logger.Error("delete sale return failed", slog.Any("error", err), slog.Int64("id", id))
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
