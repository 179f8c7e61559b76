// Package handler exposes the audit trail over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "audittrail/pkg/domain-errors"
	audit "audittrail/pkg/platform/audit"
	"audittrail/pkg/platform/httputil"
	"audittrail/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// TrailReader returns the records of one bound entity. Satisfied by *lifecycle.Registry.
type TrailReader interface {
	AuditRecords(ctx context.Context, entity audit.Auditable) ([]audit.Record, error)
}

// RecentReader lists the newest records across all entities. Satisfied by the audit stores.
type RecentReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Record, error)
}

type Handler struct {
	trails TrailReader
	recent RecentReader
	logger *slog.Logger
}

func New(trails TrailReader, recent RecentReader, logger *slog.Logger) *Handler {
	return &Handler{trails: trails, recent: recent, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit-records", h.HandleListRecords)
}

// HandleListRecords returns the trail of one entity when auditable_type and
// auditable_id are given, otherwise the most recent records.
func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	q := r.URL.Query()

	auditableType := strings.TrimSpace(q.Get("auditable_type"))
	auditableID := strings.TrimSpace(q.Get("auditable_id"))

	var (
		records []audit.Record
		err     error
	)
	switch {
	case auditableType != "" && auditableID != "":
		records, err = h.trails.AuditRecords(ctx, audit.Ref{Type: auditableType, ID: auditableID})
	case auditableType != "" || auditableID != "":
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "auditable_type and auditable_id must be given together"))
		return
	default:
		limit, perr := parseLimit(q.Get("limit"))
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		records, err = h.recent.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit records failed", "error", err, "request_id", requestID,
			"auditable_type", auditableType, "auditable_id", auditableID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &RecordListResponse{Records: ToRecordResponses(records)})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and "+strconv.Itoa(maxLimit))
	}
	return limit, nil
}

type RecordResponse struct {
	ID            string    `json:"id"`
	AuditableType string    `json:"auditable_type"`
	AuditableID   string    `json:"auditable_id"`
	PrincipalID   *string   `json:"principal_id"`
	PrincipalIP   *string   `json:"principal_ip"`
	Action        string    `json:"action"`
	CreatedAt     time.Time `json:"created_at"`
}

type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
}

// ToRecordResponses maps records to their wire form, preserving order.
func ToRecordResponses(records []audit.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordResponse{
			ID:            rec.ID.String(),
			AuditableType: rec.AuditableType,
			AuditableID:   rec.AuditableID,
			PrincipalID:   rec.PrincipalID,
			PrincipalIP:   rec.PrincipalIP,
			Action:        rec.Action.String(),
			CreatedAt:     rec.CreatedAt,
		})
	}
	return out
}
