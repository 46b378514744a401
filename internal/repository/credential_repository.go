package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CredentialRepositoryInterface exposes tenant-level dispatch credential overrides.
type CredentialRepositoryInterface interface {
	GetDispatchKey(ctx context.Context, tenantID string) (string, error)
}

// CredentialRepository is the concrete implementation
type CredentialRepository struct {
	DB *sql.DB
}

// GetDispatchKey returns "" when the tenant has no override.
func (r *CredentialRepository) GetDispatchKey(ctx context.Context, tenantID string) (string, error) {
	query := `
		SELECT api_key
		FROM tenant_dispatch_credentials
		WHERE tenant_id = $1
	`
	var key string
	if err := r.DB.QueryRowContext(ctx, query, tenantID).Scan(&key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lookup dispatch credential: %w", err)
	}
	return strings.TrimSpace(key), nil
}

// SetDispatchKey upserts a tenant override.
func (r *CredentialRepository) SetDispatchKey(ctx context.Context, tenantID, apiKey string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO tenant_dispatch_credentials (tenant_id, api_key, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = NOW()
	`, tenantID, apiKey)
	if err != nil {
		return fmt.Errorf("save dispatch credential: %w", err)
	}
	return nil
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)
