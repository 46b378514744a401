// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignPending    CampaignStatus = "pending"
	CampaignProcessing CampaignStatus = "processing"
	CampaignCompleted  CampaignStatus = "completed"
	CampaignCancelled  CampaignStatus = "cancelled"
	CampaignFailed     CampaignStatus = "failed"
)

// Terminal reports whether no further progress will occur.
func (s CampaignStatus) Terminal() bool {
	switch s {
	case CampaignCompleted, CampaignCancelled, CampaignFailed:
		return true
	}
	return false
}

// ParseCampaignStatus maps a remote status string onto the local lifecycle.
// The dispatch service uses a few synonyms; anything unknown is treated as processing.
func ParseCampaignStatus(raw string) CampaignStatus {
	switch raw {
	case "pending", "scheduled", "queued":
		return CampaignPending
	case "processing", "in_progress", "running", "dispatching":
		return CampaignProcessing
	case "completed", "finished", "done":
		return CampaignCompleted
	case "cancelled", "canceled":
		return CampaignCancelled
	case "failed", "error":
		return CampaignFailed
	}
	return CampaignProcessing
}

// Campaign is the local mirror of a remote voice campaign.
type Campaign struct {
	ID                  int64            `db:"id" json:"id"`
	TenantID            string           `db:"tenant_id" json:"tenant_id"`
	Name                string           `db:"name" json:"name"`
	PhoneNumberID       string           `db:"phone_number_id" json:"phone_number_id"`
	AgentID             string           `db:"agent_id" json:"agent_id"`
	Status              CampaignStatus   `db:"status" json:"status"`
	TotalRecipients     int              `db:"total_recipients" json:"total_recipients"`
	ProcessedRecipients int              `db:"processed_recipients" json:"processed_recipients"`
	Version             int64            `db:"version" json:"version"`
	Metadata            CampaignMetadata `db:"metadata" json:"metadata"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           *time.Time       `db:"updated_at" json:"updated_at,omitempty"`
}

// RemoteID returns the dispatch correlation id, empty for legacy records.
func (c *Campaign) RemoteID() string {
	return c.Metadata.RemoteCampaignID
}

// CampaignProgress holds the fields the reconciler and canceller may overwrite.
type CampaignProgress struct {
	Status              CampaignStatus
	TotalRecipients     int
	ProcessedRecipients int
}
