// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/handler"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/service"
)

// Defaults applied when a request omits the dispatch tuning fields.
const (
	DefaultAMDTimeout  = 20
	DefaultConcurrency = 10
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *zap.Logger
}

type dispatchBody struct {
	AMDEnabled  *bool             `json:"amd_enabled"`
	AMDTimeout  *int              `json:"amd_timeout"`
	Concurrency *int              `json:"concurrency"`
	TimeWindow  *model.TimeWindow `json:"time_window"`
}

func (b dispatchBody) options() model.DispatchOptions {
	opts := model.DispatchOptions{
		AMDTimeout:  DefaultAMDTimeout,
		Concurrency: DefaultConcurrency,
		TimeWindow:  b.TimeWindow,
	}
	if b.AMDEnabled != nil {
		opts.AMDEnabled = *b.AMDEnabled
	}
	if b.AMDTimeout != nil {
		opts.AMDTimeout = *b.AMDTimeout
	}
	if b.Concurrency != nil {
		opts.Concurrency = *b.Concurrency
	}
	return opts
}

type routingBody struct {
	Agents []model.RoutingAgent `json:"agents"`
	// Single-agent shorthand, used when agents is empty.
	AgentID       string `json:"agent_id"`
	PhoneNumberID string `json:"phone_number_id"`
}

func (b routingBody) agents() []model.RoutingAgent {
	if len(b.Agents) > 0 || (b.AgentID == "" && b.PhoneNumberID == "") {
		return b.Agents
	}
	return []model.RoutingAgent{{AgentID: b.AgentID, PhoneNumberID: b.PhoneNumberID}}
}

func (c *CampaignController) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func tenant(w http.ResponseWriter, r *http.Request) (model.TenantContext, bool) {
	tc, ok := handler.TenantFrom(r.Context())
	if !ok || tc.TenantID == "" {
		writeJSON(w, http.StatusUnauthorized, envelope{Error: &apiError{Code: "unauthorized", Message: "missing tenant"}})
		return model.TenantContext{}, false
	}
	return tc, true
}

func campaignID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(w, "invalid campaign id")
		return 0, false
	}
	return id, true
}

// SubmitCampaign handles POST /campaigns.
func (c *CampaignController) SubmitCampaign(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}

	var body struct {
		routingBody
		dispatchBody
		Name          string                 `json:"name"`
		Recipients    []model.RecipientInput `json:"recipients"`
		ScheduledAt   *time.Time             `json:"scheduled_at"`
		PhoneProvider string                 `json:"phone_provider"`
		CampaignType  string                 `json:"campaign_type"`
		CorrelationID string                 `json:"correlation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}

	result, err := c.CampaignService.Submit(r.Context(), tc, model.SubmitCampaignRequest{
		Name:          body.Name,
		Agents:        body.agents(),
		Recipients:    body.Recipients,
		ScheduledAt:   body.ScheduledAt,
		PhoneProvider: body.PhoneProvider,
		CampaignType:  body.CampaignType,
		CorrelationID: body.CorrelationID,
		Dispatch:      body.options(),
	})
	if err != nil {
		var partial *appErrors.PartialSubmissionError
		if errors.As(err, &partial) && result != nil {
			status, apiErr := classify(err)
			writeJSON(w, status, envelope{Data: result, Error: apiErr})
			return
		}
		writeError(w, c.log(), err)
		return
	}
	writeData(w, http.StatusCreated, result)
}

// SubmitPriorityCall handles POST /campaigns/priority.
func (c *CampaignController) SubmitPriorityCall(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}

	var body struct {
		routingBody
		dispatchBody
		Recipient     model.RecipientInput `json:"recipient"`
		PhoneProvider string               `json:"phone_provider"`
		CorrelationID string               `json:"correlation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}

	result, err := c.CampaignService.SubmitPriority(r.Context(), tc, model.PriorityCallRequest{
		Agents:        body.agents(),
		Recipient:     body.Recipient,
		PhoneProvider: body.PhoneProvider,
		CorrelationID: body.CorrelationID,
		Dispatch:      body.options(),
	})
	if err != nil {
		writeError(w, c.log(), err)
		return
	}
	writeData(w, http.StatusAccepted, result)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}

	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" {
		switch model.CampaignStatus(status) {
		case model.CampaignPending, model.CampaignProcessing, model.CampaignCompleted, model.CampaignCancelled, model.CampaignFailed:
		default:
			badRequest(w, "unknown status filter "+strconv.Quote(status))
			return
		}
	}

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), tc, page, pageSize, status)
	if err != nil {
		writeError(w, c.log(), err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: campaigns, Pagination: pagination})
}

// GetCampaign returns the mirror record only.
func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	campaign, err := c.CampaignService.GetCampaign(r.Context(), tc, id)
	if err != nil {
		writeError(w, c.log(), err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

// CampaignStatus reconciles against the dispatch service and returns the fresh view.
func (c *CampaignController) CampaignStatus(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	result, err := c.CampaignService.Reconcile(r.Context(), tc, id)
	if err != nil {
		writeError(w, c.log(), err)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	campaign, err := c.CampaignService.Cancel(r.Context(), tc, id)
	if err != nil {
		writeError(w, c.log(), err)
		return
	}
	writeData(w, http.StatusOK, campaign)
}

// RetryCampaign starts a new campaign for the recipients that did not complete.
// The body is optional.
func (c *CampaignController) RetryCampaign(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant(w, r)
	if !ok {
		return
	}
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	var body service.RetryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid body")
		return
	}

	result, err := c.CampaignService.Retry(r.Context(), tc, id, body)
	switch {
	case errors.Is(err, appErrors.ErrNothingToRetry):
		writeData(w, http.StatusOK, map[string]any{
			"original_campaign_id": id,
			"nothing_to_retry":     true,
			"message":              err.Error(),
		})
		return
	case err != nil:
		var partial *appErrors.PartialSubmissionError
		if errors.As(err, &partial) && result != nil {
			status, apiErr := classify(err)
			writeJSON(w, status, envelope{Data: result, Error: apiErr})
			return
		}
		writeError(w, c.log(), err)
		return
	}
	writeData(w, http.StatusCreated, result)
}
