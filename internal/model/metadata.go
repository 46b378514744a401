package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const MetadataSchemaVersion = 1

// CampaignMetadata is stored as a JSONB column. The recipient snapshot is
// written once at submission and only read afterwards.
type CampaignMetadata struct {
	SchemaVersion     int                `json:"schema_version"`
	RemoteCampaignID  string             `json:"remote_campaign_id,omitempty"`
	PhoneProvider     string             `json:"phone_provider,omitempty"`
	Agents            []RoutingAgent     `json:"agents,omitempty"`
	AgentName         string             `json:"agent_name,omitempty"`
	PhoneNumberLabel  string             `json:"phone_number_label,omitempty"`
	ScheduledAt       *time.Time         `json:"scheduled_at,omitempty"`
	CampaignType      string             `json:"campaign_type,omitempty"`
	Dispatch          *DispatchOptions   `json:"dispatch,omitempty"`
	RetryOf           int64              `json:"retry_of,omitempty"`
	PartialSubmission *PartialSubmission `json:"partial_submission,omitempty"`
	Recipients        []RecipientInput   `json:"recipients,omitempty"`
}

// PartialSubmission records where a chunked submission stopped.
type PartialSubmission struct {
	FailedChunk int    `json:"failed_chunk"`
	Unsubmitted int    `json:"unsubmitted"`
	Error       string `json:"error"`
}

// Value implements driver.Valuer. It returns a string so lib/pq sends it as
// text rather than bytea.
func (m CampaignMetadata) Value() (driver.Value, error) {
	if m.SchemaVersion == 0 {
		m.SchemaVersion = MetadataSchemaVersion
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode campaign metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and empty columns decode to a zero value.
func (m *CampaignMetadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = CampaignMetadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("campaign metadata: unsupported column type")
	}
	if len(raw) == 0 {
		*m = CampaignMetadata{}
		return nil
	}
	var decoded CampaignMetadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode campaign metadata: %w", err)
	}
	*m = decoded
	return nil
}

// SnapshotVariables indexes the snapshot by phone number.
func (m CampaignMetadata) SnapshotVariables() map[string]map[string]string {
	out := make(map[string]map[string]string, len(m.Recipients))
	for _, r := range m.Recipients {
		if _, seen := out[r.PhoneNumber]; seen {
			continue
		}
		out[r.PhoneNumber] = r.Variables
	}
	return out
}
