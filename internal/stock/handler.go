package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockline-erp/stockline/internal/platform/httpx"
	"github.com/stockline-erp/stockline/internal/shared"
)

// Handler wires the stock grid endpoints.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	exportRowLimit int
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, service *Service, exportRowLimit int) *Handler {
	if exportRowLimit <= 0 {
		exportRowLimit = 10000
	}
	return &Handler{logger: logger, service: service, exportRowLimit: exportRowLimit}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export", h.export)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}
	warehouseID, _ := strconv.ParseInt(q.Get("warehouseId"), 10, 64)
	categoryID, _ := strconv.ParseInt(q.Get("categoryId"), 10, 64)

	filters := ListFilters{
		Page:        page,
		Limit:       limit,
		Search:      q.Get("search"),
		WarehouseID: warehouseID,
		CategoryID:  categoryID,
	}
	entries, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list stock failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []EntryView{}
	}
	httpx.Page(w, entries, shared.NewPagination(page, limit, total))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListAll(r.Context(), h.exportRowLimit)
	if err != nil {
		h.logger.Error("export stock failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	workbook, err := BuildWorkbook(entries)
	if err != nil {
		h.logger.Error("build stock workbook failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename=`+ExportFilename("stock"))
	if err := workbook.Write(w); err != nil {
		h.logger.Error("write stock workbook failed", slog.Any("error", err))
	}
}
