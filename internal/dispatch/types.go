package dispatch

// Wire types for the remote call-dispatch service.

type Agent struct {
	AgentID       string `json:"agent_id"`
	PhoneNumberID string `json:"phone_number_id"`
}

type Recipient struct {
	PhoneNumber string            `json:"phone_number"`
	Variables   map[string]string `json:"variables,omitempty"`
}

type TimeWindow struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek []int  `json:"days_of_week"`
	Timezone   string `json:"timezone"`
}

type SubmitRequest struct {
	Tenant            string      `json:"tenant"`
	Agents            []Agent     `json:"agents"`
	CampaignID        string      `json:"campaignId"`
	Concurrency       int         `json:"concurrency"`
	Recipients        []Recipient `json:"recipients"`
	AMD               bool        `json:"amd"`
	AMDTimeout        int         `json:"amd_timeout,omitempty"`
	TimeWindow        *TimeWindow `json:"time_window,omitempty"`
	ScheduledTimeUnix *int64      `json:"scheduled_time_unix,omitempty"`
	PhoneProvider     string      `json:"phone_provider,omitempty"`
	Priority          bool        `json:"priority,omitempty"`
}

type SubmitResponse struct {
	Enqueued int    `json:"enqueued"`
	Status   string `json:"status,omitempty"`
}

type RecipientStatus struct {
	PhoneNumber    string `json:"phone_number"`
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type StatusResponse struct {
	Status               string            `json:"status"`
	TotalCallsScheduled  int               `json:"total_calls_scheduled"`
	TotalCallsDispatched int               `json:"total_calls_dispatched"`
	Recipients           []RecipientStatus `json:"recipients"`
	PhoneProvider        string            `json:"phone_provider,omitempty"`
	AgentName            string            `json:"agent_name,omitempty"`
	ScheduledTimeUnix    *int64            `json:"scheduled_time_unix,omitempty"`
}

type CancelResponse struct {
	Status               string `json:"status"`
	TotalCallsDispatched int    `json:"total_calls_dispatched"`
}
