package model

type RecipientStatus string

const (
	RecipientPending    RecipientStatus = "pending"
	RecipientInitiated  RecipientStatus = "initiated"
	RecipientVoicemail  RecipientStatus = "voicemail"
	RecipientInProgress RecipientStatus = "in_progress"
	RecipientCompleted  RecipientStatus = "completed"
	RecipientFailed     RecipientStatus = "failed"
	RecipientCancelled  RecipientStatus = "cancelled"
)

// RecipientInput is a recipient as submitted: phone plus per-call variables.
type RecipientInput struct {
	PhoneNumber string            `json:"phone_number"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// Recipient is the remote view of one call target after reconciliation.
type Recipient struct {
	PhoneNumber    string          `json:"phone_number"`
	Status         RecipientStatus `json:"status"`
	ConversationID string          `json:"conversation_id,omitempty"`
}
