package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"flowboard/internal/domain"
	"flowboard/internal/query"
	"flowboard/internal/service"
)

type boardHandler struct {
	boards *service.BoardService
	logger *zap.Logger
}

type idResponse struct {
	BoardID string `json:"boardId"`
}

// UsageResponse reports backend usage. Available is false when the backend
// cannot estimate it.
type UsageResponse struct {
	Available bool    `json:"available"`
	Used      int64   `json:"used"`
	Quota     int64   `json:"quota"`
	Percent   float64 `json:"percent"`
}

func (h *boardHandler) health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GET /boards?q=&sort=&order=
func (h *boardHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy, err := query.ParseSortKey(q.Get("sort"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := query.ParseOrder(q.Get("order"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.boards.ListBoards(r.Context(), query.Options{Search: q.Get("q"), SortBy: sortBy, Order: order})
	if err != nil {
		h.fail(w, "list boards", err)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

// POST /boards
func (h *boardHandler) save(w http.ResponseWriter, r *http.Request) {
	var req service.SaveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.boards.Save(r.Context(), req)
	if err != nil {
		h.fail(w, "save board", err)
		return
	}
	status := http.StatusOK
	if req.BoardID == "" {
		status = http.StatusCreated
	}
	h.respondJSON(w, status, idResponse{BoardID: id})
}

// GET /boards/{boardID}
func (h *boardHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "boardID")
	board, err := h.boards.GetBoard(r.Context(), id)
	if err != nil {
		h.fail(w, "get board", err)
		return
	}
	if board == nil {
		h.fail(w, "get board", &domain.NotFoundError{ID: id})
		return
	}
	h.respondJSON(w, http.StatusOK, board)
}

// GET /boards/{boardID}/graph
func (h *boardHandler) graph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "boardID")
	g, err := h.boards.Load(r.Context(), id)
	if err != nil {
		h.fail(w, "load board", err)
		return
	}
	if g == nil {
		h.fail(w, "load board", &domain.NotFoundError{ID: id})
		return
	}
	h.respondJSON(w, http.StatusOK, g)
}

// DELETE /boards/{boardID}
func (h *boardHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.boards.DeleteBoard(r.Context(), chi.URLParam(r, "boardID")); err != nil {
		h.fail(w, "delete board", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /boards/{boardID}/export
func (h *boardHandler) export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "boardID")
	text, err := h.boards.ExportBoardAsJSON(r.Context(), id)
	if err != nil {
		h.fail(w, "export board", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}

// POST /boards/import?name=&description=
func (h *boardHandler) importBoard(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	q := r.URL.Query()
	id, err := h.boards.ImportBoardFromJSON(r.Context(), string(body), q.Get("name"), q.Get("description"))
	if err != nil {
		h.fail(w, "import board", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, idResponse{BoardID: id})
}

// POST /boards/{boardID}/merge-preview
// Returns the posted document's graph with ids renamed to fit the board.
func (h *boardHandler) mergePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "boardID")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	target, err := h.boards.Load(r.Context(), id)
	if err != nil {
		h.fail(w, "merge preview", err)
		return
	}
	if target == nil {
		h.fail(w, "merge preview", &domain.NotFoundError{ID: id})
		return
	}
	existing := make(map[string]domain.Node, len(target.Nodes))
	for _, n := range target.Nodes {
		existing[n.ID] = n
	}

	g, err := h.boards.MergeImport(r.Context(), string(body), existing)
	if err != nil {
		h.fail(w, "merge preview", err)
		return
	}
	h.respondJSON(w, http.StatusOK, g)
}

// GET /boards/name-exists?name=&exclude=
func (h *boardHandler) nameExists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	exists, err := h.boards.IsBoardNameExists(r.Context(), name, q.Get("exclude"))
	if err != nil {
		h.fail(w, "check board name", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// POST /boards/cleanup?days=
func (h *boardHandler) cleanup(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = n
	}
	deleted, err := h.boards.CleanupOldBoards(r.Context(), days)
	if err != nil {
		h.fail(w, "cleanup boards", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// GET /storage/usage
func (h *boardHandler) storageUsage(w http.ResponseWriter, r *http.Request) {
	u, err := h.boards.StorageUsage(r.Context())
	if err != nil {
		h.fail(w, "storage usage", err)
		return
	}
	h.respondJSON(w, http.StatusOK, NewUsageResponse(u))
}

// GET /save-status
func (h *boardHandler) saveStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.boards.SaveStatus())
}

// NewUsageResponse converts a usage estimate; nil means unavailable.
func NewUsageResponse(u *domain.Usage) UsageResponse {
	if u == nil {
		return UsageResponse{}
	}
	resp := UsageResponse{Available: true, Used: u.Used, Quota: u.Quota}
	if u.Quota > 0 {
		resp.Percent = float64(u.Used) / float64(u.Quota) * 100
	}
	return resp
}

// ── responses ────────────────────────────────────────────────

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSchema):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *boardHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	}
	h.respondError(w, status, err.Error())
}

func (h *boardHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *boardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
