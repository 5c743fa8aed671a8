package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const (
	auditLogsTable = "audit_logs"

	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

type auditLogRepository struct {
	client *supabase.Client
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(client *supabase.Client) AuditLogRepository {
	return &auditLogRepository{client: client}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	// Audit rows are written with the service key so that users cannot forge them.
	if _, err := r.client.Insert(supabase.WithUserToken(ctx, ""), auditLogsTable, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	offset := max(filter.Offset, 0)

	// Fetch limit+1 to detect if there are more results
	query := supabase.Filter{
		"select": "*",
		"order":  "timestamp.desc",
		"limit":  strconv.Itoa(limit + 1),
		"offset": strconv.Itoa(offset),
	}
	if filter.Action != "" {
		query["action"] = supabase.Eq(filter.Action)
	}
	if filter.UserID != "" {
		query["user->>id"] = supabase.Eq(filter.UserID)
	}

	body, err := r.client.Query(ctx, auditLogsTable, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	logs, err := decodeList[models.AuditLog](body, "audit logs")
	if err != nil {
		return nil, err
	}

	hasMore := len(logs) > limit
	if hasMore {
		logs = logs[:limit]
	}

	return &models.AuditLogPage{Logs: logs, HasMore: hasMore}, nil
}
