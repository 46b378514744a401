// internal/errors/errors.go
package appErrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotRemoteManaged is returned when a campaign has no remote correlation id.
// Legacy records created outside the dispatch flow hit this; it is not a fault.
var ErrNotRemoteManaged = errors.New("campaign is not managed by the dispatch service")

// ErrNothingToRetry means every recipient of the campaign already completed.
var ErrNothingToRetry = errors.New("nothing to retry: all recipients completed")

// ErrNoValidRecipients is matched via errors.Is on the ValidationError
// produced by NewNoValidRecipients.
var ErrNoValidRecipients = errors.New("no valid recipients")

// ErrCampaignNotFound is returned for a missing campaign or one owned by another tenant.
type ErrCampaignNotFound struct {
	CampaignID int64
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// NewCampaignNotFound is the helper constructor.
func NewCampaignNotFound(id int64) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ValidationError rejects a request before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func NewNoValidRecipients() error {
	return &ValidationError{
		Field:   "recipients",
		Message: "no valid recipients after normalization",
		cause:   ErrNoValidRecipients,
	}
}

// RemoteServiceError carries a non-2xx or malformed response from the dispatch service.
type RemoteServiceError struct {
	Operation  string
	StatusCode int
	Message    string
	Payload    json.RawMessage
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("dispatch %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("dispatch %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// NewRemoteServiceError extracts a message from the remote body when it has one.
func NewRemoteServiceError(operation string, status int, body []byte) *RemoteServiceError {
	e := &RemoteServiceError{Operation: operation, StatusCode: status, Message: "unexpected response from dispatch service"}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return e
	}
	if json.Valid(body) {
		e.Payload = json.RawMessage(body)
		var parsed struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		if err := json.Unmarshal(body, &parsed); err == nil {
			switch {
			case parsed.Error != "":
				e.Message = parsed.Error
			case parsed.Message != "":
				e.Message = parsed.Message
			case parsed.Detail != "":
				e.Message = parsed.Detail
			}
		}
		return e
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	e.Message = trimmed
	return e
}

// AlreadyTerminalError is returned when cancelling a finished campaign.
type AlreadyTerminalError struct {
	CampaignID int64
	Status     string
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("campaign %d is already %s", e.CampaignID, e.Status)
}

// MissingCredentialError is a configuration error, never retryable.
type MissingCredentialError struct {
	TenantID string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no dispatch credential configured for tenant %q and no global fallback", e.TenantID)
}

// PartialSubmissionError reports chunks accepted before a later chunk failed.
type PartialSubmissionError struct {
	CampaignID      int64
	CorrelationID   string
	Enqueued        int
	SubmittedPhones []string
	FailedChunk     int
	Unsubmitted     int
	Cause           error
}

func (e *PartialSubmissionError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d recipients were enqueued (%d not submitted): %v",
		e.FailedChunk, len(e.SubmittedPhones), e.Unsubmitted, e.Cause)
}

func (e *PartialSubmissionError) Unwrap() error {
	return e.Cause
}
