package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/attendance-bridge/internal/domain"
	"github.com/shaiso/attendance-bridge/internal/oplog"
)

// ListLogs возвращает журнальные записи, свежие первыми.
// GET /api/v1/logs?status=fail&limit=50
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	status := domain.LogStatus(r.URL.Query().Get("status"))

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.logRepo.List(r.Context(), status, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]LogResponse, len(entries))
	for i, e := range entries {
		result[i] = LogFromDomain(e)
	}

	List(w, result, len(result))
}

// GetLog возвращает журнальную запись по ID.
// GET /api/v1/logs/{id}
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid log entry id")
		return
	}

	e, err := h.logRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "log entry not found") {
		return
	}

	Success(w, LogFromDomain(*e))
}

// RetryLog повторяет обработку записи из сохранённого состояния.
// POST /api/v1/logs/{id}/retry
func (h *Handler) RetryLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid log entry id")
		return
	}

	e, err := h.oplog.Retry(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "log entry not found") {
		return
	}

	Success(w, LogFromDomain(*e))
}

// PurgeLogs запускает retention-свип вручную.
// POST /api/v1/logs/purge
func (h *Handler) PurgeLogs(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}

	retention := oplog.DefaultRetention
	if req.RetentionHours > 0 {
		retention = time.Duration(req.RetentionHours) * time.Hour
	}

	purged, err := h.oplog.PurgeSuccessfulOlderThan(r.Context(), retention)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, PurgeResponse{Purged: purged})
}
