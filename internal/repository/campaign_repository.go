package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

// ErrStaleVersion means the row changed after the caller read it.
var ErrStaleVersion = errors.New("campaign was modified concurrently")

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, tenantID string, id int64) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, tenantID string, offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateProgress(ctx context.Context, tenantID string, id int64, p model.CampaignProgress) (*model.Campaign, error)
	UpdateProgressIfVersion(ctx context.Context, tenantID string, id, version int64, p model.CampaignProgress) (*model.Campaign, error)
	ListActive(ctx context.Context, limit int) ([]*model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, tenant_id, name, phone_number_id, agent_id, status,
	total_recipients, processed_recipients, version, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.PhoneNumberID, &c.AgentID, &c.Status,
		&c.TotalRecipients, &c.ProcessedRecipients, &c.Version, &c.Metadata,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign mirror ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now().UTC()
	if c.Status == "" {
		c.Status = model.CampaignProcessing
	}
	if c.Metadata.SchemaVersion == 0 {
		c.Metadata.SchemaVersion = model.MetadataSchemaVersion
	}
	query := `
		INSERT INTO voice_campaigns
			(tenant_id, name, phone_number_id, agent_id, status, total_recipients,
			 processed_recipients, version, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9)
		RETURNING id, version
	`
	err := r.DB.QueryRowContext(ctx, query,
		c.TenantID, c.Name, c.PhoneNumberID, c.AgentID, c.Status,
		c.TotalRecipients, c.ProcessedRecipients, c.Metadata, c.CreatedAt,
	).Scan(&c.ID, &c.Version)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// GetByID never distinguishes "missing" from "owned by another tenant".
func (r *CampaignRepository) GetByID(ctx context.Context, tenantID string, id int64) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM voice_campaigns WHERE id=$1 AND tenant_id=$2`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, tenantID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE tenant_id=$1`
	args := []any{tenantID}
	if status != "" {
		where += ` AND status=$2`
		args = append(args, status)
	}

	query := `SELECT ` + campaignColumns + ` FROM voice_campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM voice_campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}
	return campaigns, total, nil
}

// UpdateProgress overwrites the derived fields and bumps the version.
func (r *CampaignRepository) UpdateProgress(ctx context.Context, tenantID string, id int64, p model.CampaignProgress) (*model.Campaign, error) {
	query := `
		UPDATE voice_campaigns
		SET status=$1, total_recipients=$2, processed_recipients=$3, version=version+1, updated_at=NOW()
		WHERE id=$4 AND tenant_id=$5
		RETURNING ` + campaignColumns
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, p.Status, p.TotalRecipients, p.ProcessedRecipients, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("update campaign progress: %w", err)
	}
	return c, nil
}

// UpdateProgressIfVersion applies the write only if nobody wrote since version was read.
func (r *CampaignRepository) UpdateProgressIfVersion(ctx context.Context, tenantID string, id, version int64, p model.CampaignProgress) (*model.Campaign, error) {
	query := `
		UPDATE voice_campaigns
		SET status=$1, total_recipients=$2, processed_recipients=$3, version=version+1, updated_at=NOW()
		WHERE id=$4 AND tenant_id=$5 AND version=$6
		RETURNING ` + campaignColumns
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, p.Status, p.TotalRecipients, p.ProcessedRecipients, id, tenantID, version))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update campaign progress: %w", err)
	}
	if _, getErr := r.GetByID(ctx, tenantID, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStaleVersion
}

// ListActive returns non-terminal remote-managed campaigns across tenants, oldest first.
func (r *CampaignRepository) ListActive(ctx context.Context, limit int) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM voice_campaigns
		WHERE status IN ('pending', 'processing') AND COALESCE(metadata->>'remote_campaign_id', '') <> ''
		ORDER BY id ASC LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}
	defer rows.Close()

	var out []*model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
