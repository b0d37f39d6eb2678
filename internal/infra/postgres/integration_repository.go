package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platewire/api/pkg/domain/integration"
	"github.com/platewire/api/pkg/domain/shared"
)

// IntegrationRepository is the PostgreSQL implementation of integration.Repository.
type IntegrationRepository struct {
	db *DB
}

// NewIntegrationRepository creates a new IntegrationRepository.
func NewIntegrationRepository(db *DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

var _ integration.Repository = (*IntegrationRepository)(nil)

const integrationColumns = `
	id, user_id, type, provider, credentials_encrypted, environment,
	is_active, webhook_url, settings, created_at, updated_at
`

// Create inserts a new integration.
func (r *IntegrationRepository) Create(ctx context.Context, i *integration.Integration) error {
	query := `
		INSERT INTO integrations (
			id, user_id, type, provider, credentials_encrypted, environment,
			is_active, webhook_url, settings, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	settings, err := toJSONB(i.Settings())
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		i.ID().String(),
		i.UserID().String(),
		i.Type().String(),
		i.Provider(),
		nullString(i.CredentialsEncrypted()),
		string(i.Environment()),
		i.IsActive(),
		nullString(i.WebhookURL()),
		settings,
		i.CreatedAt(),
		i.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: integration already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create integration: %w", err)
	}

	return nil
}

// GetByID retrieves an integration scoped to its owner.
func (r *IntegrationRepository) GetByID(ctx context.Context, id, userID integration.ID) (*integration.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE id = $1 AND user_id = $2`

	row := r.db.QueryRowContext(ctx, query, id.String(), userID.String())
	return scanIntegration(row)
}

// FindActive resolves the single active integration for (userID, type, provider).
func (r *IntegrationRepository) FindActive(ctx context.Context, userID integration.ID, t integration.Type, provider string) (*integration.Integration, error) {
	query := `
		SELECT ` + integrationColumns + `
		FROM integrations
		WHERE user_id = $1 AND type = $2 AND provider = $3 AND is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, userID.String(), t.String(), provider)
	return scanIntegration(row)
}

// List retrieves integrations matching the filter.
func (r *IntegrationRepository) List(ctx context.Context, filter integration.Filter) ([]*integration.Integration, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filter.UserID.String())
		argPos++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filter.Type.String())
		argPos++
	}

	query := `SELECT ` + integrationColumns + ` FROM integrations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var result []*integration.Integration
	for rows.Next() {
		i, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate integrations: %w", err)
	}

	return result, nil
}

// Update persists changes to an existing integration.
func (r *IntegrationRepository) Update(ctx context.Context, i *integration.Integration) error {
	query := `
		UPDATE integrations SET
			credentials_encrypted = $1,
			environment = $2,
			is_active = $3,
			webhook_url = $4,
			settings = $5,
			updated_at = $6
		WHERE id = $7 AND user_id = $8
	`

	settings, err := toJSONB(i.Settings())
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		nullString(i.CredentialsEncrypted()),
		string(i.Environment()),
		i.IsActive(),
		nullString(i.WebhookURL()),
		settings,
		i.UpdatedAt(),
		i.ID().String(),
		i.UserID().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return integration.ErrIntegrationNotFound
	}

	return nil
}

// Delete removes an integration scoped to its owner.
func (r *IntegrationRepository) Delete(ctx context.Context, id, userID integration.ID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM integrations WHERE id = $1 AND user_id = $2`,
		id.String(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return integration.ErrIntegrationNotFound
	}

	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row scanner) (*integration.Integration, error) {
	var (
		idStr, userIDStr     string
		typeStr, provider    string
		credentials          sql.NullString
		environment          string
		isActive             bool
		webhookURL           sql.NullString
		settingsRaw          []byte
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&idStr, &userIDStr, &typeStr, &provider, &credentials, &environment,
		&isActive, &webhookURL, &settingsRaw, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, fmt.Errorf("failed to scan integration: %w", err)
	}

	id, err := shared.ParseID(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid integration id: %w", err)
	}
	userID, err := shared.ParseID(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	var settings map[string]any
	if err := fromJSONB(settingsRaw, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return integration.Reconstruct(
		id, userID,
		integration.Type(typeStr),
		provider,
		nullStringValue(credentials),
		integration.Environment(environment),
		isActive,
		nullStringValue(webhookURL),
		settings,
		createdAt, updatedAt,
	), nil
}
