package model

import "time"

// RoutingAgent binds a voice agent to the originating number it calls from.
type RoutingAgent struct {
	AgentID         string `json:"agent_id"`
	PhoneNumberID   string `json:"phone_number_id"`
	AgentName       string `json:"agent_name,omitempty"`
	PhoneNumberName string `json:"phone_number_name,omitempty"`
}

// TimeWindow restricts dispatch to a recurring weekly window.
// Days use 1=Monday .. 7=Sunday. Times are "HH:MM".
type TimeWindow struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek []int  `json:"days_of_week"`
	Timezone   string `json:"timezone"`
}

// DispatchOptions are forwarded to the dispatch service with every chunk.
type DispatchOptions struct {
	AMDEnabled  bool        `json:"amd_enabled"`
	AMDTimeout  int         `json:"amd_timeout"`
	Concurrency int         `json:"concurrency"`
	TimeWindow  *TimeWindow `json:"time_window,omitempty"`
}

// SubmitCampaignRequest is the input to the campaign submitter.
type SubmitCampaignRequest struct {
	Name          string           `json:"name"`
	Agents        []RoutingAgent   `json:"agents"`
	Recipients    []RecipientInput `json:"recipients"`
	ScheduledAt   *time.Time       `json:"scheduled_at,omitempty"`
	PhoneProvider string           `json:"phone_provider,omitempty"`
	CampaignType  string           `json:"campaign_type,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	Dispatch      DispatchOptions  `json:"dispatch"`
}

// PriorityCallRequest submits a single immediate call without a mirror record.
type PriorityCallRequest struct {
	Agents        []RoutingAgent  `json:"agents"`
	Recipient     RecipientInput  `json:"recipient"`
	PhoneProvider string          `json:"phone_provider,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Dispatch      DispatchOptions `json:"dispatch"`
}

// TenantContext is resolved by the upstream auth layer and trusted as-is.
type TenantContext struct {
	TenantID string
	UserID   string
	Role     string
}
