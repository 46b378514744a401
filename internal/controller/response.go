// internal/controller/response.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

type envelope struct {
	Success    bool           `json:"success"`
	Data       any            `json:"data,omitempty"`
	Pagination map[string]int `json:"pagination,omitempty"`
	Error      *apiError      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, envelope{Error: &apiError{Code: "bad_request", Message: message}})
}

// classify maps the error taxonomy onto an HTTP status and error body.
func classify(err error) (int, *apiError) {
	var (
		validation *appErrors.ValidationError
		notFound   *appErrors.ErrCampaignNotFound
		terminal   *appErrors.AlreadyTerminalError
		partial    *appErrors.PartialSubmissionError
		remote     *appErrors.RemoteServiceError
		missing    *appErrors.MissingCredentialError
	)
	switch {
	case errors.As(err, &validation):
		code := "validation_error"
		if errors.Is(err, appErrors.ErrNoValidRecipients) {
			code = "no_valid_recipients"
		}
		return http.StatusBadRequest, &apiError{Code: code, Message: validation.Message, Field: validation.Field}
	case errors.As(err, &notFound):
		return http.StatusNotFound, &apiError{Code: "not_found", Message: err.Error()}
	case errors.As(err, &terminal):
		return http.StatusConflict, &apiError{Code: "already_terminal", Message: err.Error(), Details: map[string]string{"status": terminal.Status}}
	case errors.Is(err, appErrors.ErrNotRemoteManaged):
		return http.StatusUnprocessableEntity, &apiError{Code: "not_remote_managed", Message: err.Error()}
	case errors.As(err, &partial):
		status := http.StatusBadGateway
		if errors.As(err, &remote) && remote.StatusCode >= 400 {
			status = remote.StatusCode
		}
		return status, &apiError{Code: "partial_submission", Message: err.Error(), Details: map[string]any{
			"campaign_id":      partial.CampaignID,
			"correlation_id":   partial.CorrelationID,
			"enqueued":         partial.Enqueued,
			"failed_chunk":     partial.FailedChunk,
			"unsubmitted":      partial.Unsubmitted,
			"submitted_phones": partial.SubmittedPhones,
		}}
	case errors.As(err, &remote):
		status := http.StatusBadGateway
		if remote.StatusCode >= 400 && remote.StatusCode <= 599 {
			status = remote.StatusCode
		}
		e := &apiError{Code: "remote_service_error", Message: remote.Message}
		if len(remote.Payload) > 0 {
			e.Details = remote.Payload
		}
		return status, e
	case errors.As(err, &missing):
		return http.StatusInternalServerError, &apiError{Code: "missing_credential", Message: err.Error()}
	}
	return http.StatusInternalServerError, &apiError{Code: "internal_error", Message: "internal server error"}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, envelope{Error: body})
}
