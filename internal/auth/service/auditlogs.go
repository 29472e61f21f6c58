package service

import (
	"context"

	"github.com/smartclassroom/authd/internal/auth/domain"
	"github.com/smartclassroom/authd/internal/auth/store"
)

// AuditQueryService exposes read access to the audit trail for the admin
// surface. Writes only ever go through the audit logger.
type AuditQueryService struct {
	Store store.Store
}

// List returns the matching entries plus the total count ignoring paging.
func (s *AuditQueryService) List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditLogEntry, int, error) {
	entries, err := s.Store.AuditLogs().ListAuditLogs(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.AuditLogs().CountAuditLogs(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Actions returns every distinct action recorded, for filter dropdowns.
func (s *AuditQueryService) Actions(ctx context.Context) ([]string, error) {
	return s.Store.AuditLogs().ListDistinctActions(ctx)
}
