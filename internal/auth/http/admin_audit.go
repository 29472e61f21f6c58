package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/service"
	"github.com/smartclassroom/authd/pkg/httpx"
)

// AuditLogsHandler exposes the audit trail to administrators.
type AuditLogsHandler struct {
	AuditQueryService *service.AuditQueryService
}

func (h *AuditLogsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseAuditQuery(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, total, err := h.AuditQueryService.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := AuditLogListResponse{Entries: make([]AuditLogResponse, 0, len(entries)), Total: total}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, AuditLogResponse{
			ID:        e.ID,
			Action:    e.Action,
			Category:  e.Category,
			UserID:    e.UserID,
			Username:  e.Username,
			Success:   e.Success,
			IPAddress: e.IPAddress,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AuditLogsHandler) HandleActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.AuditQueryService.Actions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]string{"actions": actions})
}

func parseAuditQuery(r *http.Request) (domain.AuditQuery, error) {
	values := r.URL.Query()
	q := domain.AuditQuery{Action: values.Get("action")}

	if v := values.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.AuditQuery{}, errInvalidQuery("user_id")
		}
		q.UserID = &id
	}
	if v := values.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.AuditQuery{}, errInvalidQuery("from")
		}
		q.DateFrom = &t
	}
	if v := values.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.AuditQuery{}, errInvalidQuery("to")
		}
		q.DateTo = &t
	}
	if v := values.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if v := values.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			q.Offset = n
		}
	}
	return q, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid query parameter: " + string(e) }
