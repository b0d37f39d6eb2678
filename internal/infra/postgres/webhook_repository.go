package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/platewire/api/pkg/domain/shared"
	"github.com/platewire/api/pkg/domain/webhook"
)

// WebhookRepository is the PostgreSQL implementation of webhook.Repository.
type WebhookRepository struct {
	db *DB
}

// NewWebhookRepository creates a new WebhookRepository.
func NewWebhookRepository(db *DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

var _ webhook.Repository = (*WebhookRepository)(nil)

const webhookColumns = `
	id, user_id, name, description, secret_key, endpoint_url,
	source_type, source_provider, destination_type, destination_provider,
	event_types, is_active, created_at, updated_at
`

// Create inserts a new webhook.
func (r *WebhookRepository) Create(ctx context.Context, w *webhook.Webhook) error {
	query := `
		INSERT INTO webhooks (
			id, user_id, name, description, secret_key, endpoint_url,
			source_type, source_provider, destination_type, destination_provider,
			event_types, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		w.ID().String(),
		w.UserID().String(),
		w.Name(),
		nullString(w.Description()),
		w.SecretKey(),
		nullString(w.EndpointURL()),
		w.SourceType().String(),
		nullString(w.SourceProvider()),
		w.DestinationType().String(),
		nullString(w.DestinationProvider()),
		pq.Array(w.EventTypes()),
		w.IsActive(),
		w.CreatedAt(),
		w.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: webhook already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// GetByID retrieves a webhook scoped to its owner.
func (r *WebhookRepository) GetByID(ctx context.Context, id webhook.ID, userID shared.ID) (*webhook.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1 AND user_id = $2`

	row := r.db.QueryRowContext(ctx, query, id.String(), userID.String())
	w, err := scanWebhook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webhook.ErrWebhookNotFound
		}
		return nil, err
	}
	return w, nil
}

// GetBySecret resolves a webhook by its secret key regardless of owner.
func (r *WebhookRepository) GetBySecret(ctx context.Context, secretKey string) (*webhook.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE secret_key = $1`

	row := r.db.QueryRowContext(ctx, query, secretKey)
	w, err := scanWebhook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webhook.ErrInvalidSecret
		}
		return nil, err
	}
	return w, nil
}

// List retrieves webhooks matching the filter.
func (r *WebhookRepository) List(ctx context.Context, filter webhook.Filter) ([]*webhook.Webhook, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filter.UserID.String())
		argPos++
	}
	if filter.SourceType != nil {
		conditions = append(conditions, fmt.Sprintf("source_type = $%d", argPos))
		args = append(args, filter.SourceType.String())
		argPos++
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *filter.IsActive)
		argPos++
	}

	query := `SELECT ` + webhookColumns + ` FROM webhooks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var result []*webhook.Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhooks: %w", err)
	}

	return result, nil
}

// Update persists changes to an existing webhook.
func (r *WebhookRepository) Update(ctx context.Context, w *webhook.Webhook) error {
	query := `
		UPDATE webhooks SET
			name = $1,
			description = $2,
			secret_key = $3,
			endpoint_url = $4,
			event_types = $5,
			is_active = $6,
			updated_at = $7
		WHERE id = $8 AND user_id = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		w.Name(),
		nullString(w.Description()),
		w.SecretKey(),
		nullString(w.EndpointURL()),
		pq.Array(w.EventTypes()),
		w.IsActive(),
		w.UpdatedAt(),
		w.ID().String(),
		w.UserID().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrWebhookNotFound
	}

	return nil
}

// Delete removes a webhook scoped to its owner.
func (r *WebhookRepository) Delete(ctx context.Context, id webhook.ID, userID shared.ID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM webhooks WHERE id = $1 AND user_id = $2`,
		id.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrWebhookNotFound
	}

	return nil
}

func scanWebhook(row scanner) (*webhook.Webhook, error) {
	var (
		idStr, userIDStr     string
		name                 string
		description          sql.NullString
		secretKey            string
		endpointURL          sql.NullString
		sourceType           string
		sourceProvider       sql.NullString
		destType             string
		destProvider         sql.NullString
		eventTypes           pq.StringArray
		isActive             bool
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&idStr, &userIDStr, &name, &description, &secretKey, &endpointURL,
		&sourceType, &sourceProvider, &destType, &destProvider,
		&eventTypes, &isActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.ParseID(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook id: %w", err)
	}
	userID, err := shared.ParseID(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	return webhook.Reconstruct(
		id, userID,
		name, nullStringValue(description), secretKey, nullStringValue(endpointURL),
		webhook.EndpointType(sourceType), nullStringValue(sourceProvider),
		webhook.EndpointType(destType), nullStringValue(destProvider),
		[]string(eventTypes),
		isActive,
		createdAt, updatedAt,
	), nil
}
