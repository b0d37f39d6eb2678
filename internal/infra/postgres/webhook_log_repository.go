package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
)

// WebhookLogRepository is the PostgreSQL implementation of webhook.LogRepository.
// The webhook_logs table is append-only.
type WebhookLogRepository struct {
	db *DB
}

// NewWebhookLogRepository creates a new WebhookLogRepository.
func NewWebhookLogRepository(db *DB) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

var _ webhook.LogRepository = (*WebhookLogRepository)(nil)

// Append inserts a dispatch log entry.
func (r *WebhookLogRepository) Append(ctx context.Context, entry *webhook.DispatchLog) error {
	query := `
		INSERT INTO webhook_logs (
			id, webhook_id, user_id, event_type, event_id,
			request_payload, response_payload, status_code, error_message,
			processing_time_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	requestPayload, err := toJSONB(entry.RequestPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}
	responsePayload, err := toJSONB(entry.ResponsePayload)
	if err != nil {
		return fmt.Errorf("failed to marshal response payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		entry.ID.String(),
		entry.WebhookID.String(),
		entry.UserID.String(),
		entry.EventType,
		nullString(entry.EventID),
		requestPayload,
		responsePayload,
		entry.StatusCode,
		nullString(entry.ErrorMessage),
		entry.ProcessingTimeMs,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append webhook log: %w", err)
	}

	return nil
}

// List retrieves dispatch log entries for a user, newest first, with the
// total count for pagination.
func (r *WebhookLogRepository) List(ctx context.Context, filter webhook.LogFilter) ([]*webhook.DispatchLog, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID.String()}
	argPos := 2

	if filter.WebhookID != nil {
		conditions = append(conditions, fmt.Sprintf("webhook_id = $%d", argPos))
		args = append(args, filter.WebhookID.String())
		argPos++
	}
	if filter.EventType != nil {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argPos))
		args = append(args, *filter.EventType)
		argPos++
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM webhook_logs` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count webhook logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, webhook_id, user_id, event_type, event_id,
			request_payload, response_payload, status_code, error_message,
			processing_time_ms, created_at
		FROM webhook_logs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	defer rows.Close()

	var result []*webhook.DispatchLog
	for rows.Next() {
		entry, err := scanWebhookLog(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate webhook logs: %w", err)
	}

	return result, total, nil
}

func scanWebhookLog(row scanner) (*webhook.DispatchLog, error) {
	var (
		idStr, webhookIDStr, userIDStr string
		eventType                      string
		eventID                        sql.NullString
		requestRaw, responseRaw        []byte
		statusCode                     int
		errMsg                         sql.NullString
		processingTimeMs               int64
		createdAt                      time.Time
	)

	err := row.Scan(
		&idStr, &webhookIDStr, &userIDStr, &eventType, &eventID,
		&requestRaw, &responseRaw, &statusCode, &errMsg,
		&processingTimeMs, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhook log: %w", err)
	}

	id, err := shared.ParseID(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log id: %w", err)
	}
	webhookID, err := shared.ParseID(webhookIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook id: %w", err)
	}
	userID, err := shared.ParseID(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var requestPayload, responsePayload map[string]any
	if err := fromJSONB(requestRaw, &requestPayload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request payload: %w", err)
	}
	if err := fromJSONB(responseRaw, &responsePayload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response payload: %w", err)
	}

	return &webhook.DispatchLog{
		ID:               id,
		WebhookID:        webhookID,
		UserID:           userID,
		EventType:        eventType,
		EventID:          nullStringValue(eventID),
		RequestPayload:   requestPayload,
		ResponsePayload:  responsePayload,
		StatusCode:       statusCode,
		ErrorMessage:     nullStringValue(errMsg),
		ProcessingTimeMs: processingTimeMs,
		CreatedAt:        createdAt,
	}, nil
}
