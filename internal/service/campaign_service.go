// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/voicecampaign-backend/internal/dispatch"
	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
	"github.com/unclebandit/voicecampaign-backend/internal/repository"
)

// ChunkSize is the number of recipients sent per remote submission.
const ChunkSize = 5000

// Dispatcher is the remote call-dispatch service.
type Dispatcher interface {
	Submit(ctx context.Context, req dispatch.SubmitRequest) (*dispatch.SubmitResponse, error)
	Status(ctx context.Context, tenantID, campaignID string) (*dispatch.StatusResponse, error)
	Cancel(ctx context.Context, tenantID, campaignID string) (*dispatch.CancelResponse, error)
}

// RecipientStore caches the last reconciled recipient list per campaign,
// tagged with the mirror version it was observed at.
type RecipientStore interface {
	Save(ctx context.Context, tenantID string, campaignID, version int64, recipients []model.Recipient) error
	Load(ctx context.Context, tenantID string, campaignID int64) (recipients []model.Recipient, version int64, ok bool, err error)
}

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	Dispatcher   Dispatcher
	Recipients   RecipientStore // optional
	Queue        queue.Queue    // optional
	Logger       *zap.Logger

	// ChunkSize overrides the default chunk size when > 0.
	ChunkSize int
	// NewCorrelationID overrides uuid generation in tests.
	NewCorrelationID func() string
}

// SubmitCampaignResult is returned by Submit and Retry.
type SubmitCampaignResult struct {
	Campaign      *model.Campaign `json:"campaign"`
	CorrelationID string          `json:"correlation_id"`
	Enqueued      int             `json:"enqueued"`
	Chunks        int             `json:"chunks"`
}

// PriorityCallResult is returned by SubmitPriority.
type PriorityCallResult struct {
	CorrelationID string `json:"correlation_id"`
	Enqueued      int    `json:"enqueued"`
	Status        string `json:"status,omitempty"`
}

func (s *CampaignService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *CampaignService) chunkSize() int {
	if s.ChunkSize > 0 {
		return s.ChunkSize
	}
	return ChunkSize
}

func (s *CampaignService) correlationID(supplied string) string {
	if id := strings.TrimSpace(supplied); id != "" {
		return id
	}
	if s.NewCorrelationID != nil {
		return s.NewCorrelationID()
	}
	return uuid.NewString()
}

func (s *CampaignService) publish(eventType queue.EventType, c *model.Campaign) {
	if s.Queue == nil || c == nil {
		return
	}
	err := s.Queue.Publish(queue.TopicCampaignEvents, queue.CampaignEvent{
		Type:       eventType,
		TenantID:   c.TenantID,
		CampaignID: c.ID,
		Status:     c.Status,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log().Warn("failed to publish campaign event",
			zap.String("type", string(eventType)),
			zap.Int64("campaign_id", c.ID),
			zap.Error(err),
		)
	}
}

func toDispatchAgents(agents []model.RoutingAgent) []dispatch.Agent {
	out := make([]dispatch.Agent, len(agents))
	for i, a := range agents {
		out[i] = dispatch.Agent{AgentID: a.AgentID, PhoneNumberID: a.PhoneNumberID}
	}
	return out
}

func toDispatchRecipients(in []model.RecipientInput) []dispatch.Recipient {
	out := make([]dispatch.Recipient, len(in))
	for i, r := range in {
		out[i] = dispatch.Recipient{PhoneNumber: r.PhoneNumber, Variables: r.Variables}
	}
	return out
}

func baseSubmitRequest(tenantID, correlationID string, agents []model.RoutingAgent, opts model.DispatchOptions, provider string) dispatch.SubmitRequest {
	req := dispatch.SubmitRequest{
		Tenant:        tenantID,
		Agents:        toDispatchAgents(agents),
		CampaignID:    correlationID,
		Concurrency:   opts.Concurrency,
		AMD:           opts.AMDEnabled,
		AMDTimeout:    opts.AMDTimeout,
		PhoneProvider: provider,
	}
	if w := opts.TimeWindow; w != nil && w.StartTime != "" {
		req.TimeWindow = &dispatch.TimeWindow{
			StartTime:  w.StartTime,
			EndTime:    w.EndTime,
			DaysOfWeek: w.DaysOfWeek,
			Timezone:   w.Timezone,
		}
	}
	return req
}

// Submit validates, normalizes and sends the recipients in sequential chunks
// under one correlation id, then writes the mirror record.
func (s *CampaignService) Submit(ctx context.Context, tc model.TenantContext, req model.SubmitCampaignRequest) (*SubmitCampaignResult, error) {
	return s.submit(ctx, tc, req, 0)
}

func (s *CampaignService) submit(ctx context.Context, tc model.TenantContext, req model.SubmitCampaignRequest, retryOf int64) (*SubmitCampaignResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, appErrors.NewValidation("name", "campaign name is required")
	}
	if err := validateAgents(req.Agents); err != nil {
		return nil, err
	}
	if err := ValidateDispatchOptions(req.Dispatch); err != nil {
		return nil, err
	}
	recipients := NormalizeRecipients(req.Recipients)
	if len(recipients) == 0 {
		return nil, appErrors.NewNoValidRecipients()
	}

	correlationID := s.correlationID(req.CorrelationID)
	base := baseSubmitRequest(tc.TenantID, correlationID, req.Agents, req.Dispatch, req.PhoneProvider)
	if req.ScheduledAt != nil {
		unix := req.ScheduledAt.Unix()
		base.ScheduledTimeUnix = &unix
	}

	logger := s.log().With(zap.String("tenant", tc.TenantID), zap.String("correlation_id", correlationID))
	size := s.chunkSize()
	result := &SubmitCampaignResult{CorrelationID: correlationID}
	firstStatus := ""
	submitted := 0
	var chunkErr error
	failedChunk := 0

	for start := 0; start < len(recipients); start += size {
		end := min(start+size, len(recipients))
		chunkReq := base
		chunkReq.Recipients = toDispatchRecipients(recipients[start:end])

		resp, err := s.Dispatcher.Submit(ctx, chunkReq)
		if err != nil {
			chunkErr = err
			failedChunk = result.Chunks + 1
			break
		}
		if result.Chunks == 0 {
			firstStatus = resp.Status
		}
		result.Chunks++
		result.Enqueued += resp.Enqueued
		submitted = end
		logger.Debug("chunk submitted", zap.Int("chunk", result.Chunks), zap.Int("size", end-start), zap.Int("enqueued", resp.Enqueued))
	}

	if chunkErr != nil && submitted == 0 {
		logger.Warn("campaign submission rejected", zap.Error(chunkErr))
		return nil, chunkErr
	}

	status := model.CampaignProcessing
	if firstStatus != "" {
		status = model.ParseCampaignStatus(firstStatus)
	}
	meta := model.CampaignMetadata{
		SchemaVersion:    model.MetadataSchemaVersion,
		RemoteCampaignID: correlationID,
		PhoneProvider:    req.PhoneProvider,
		Agents:           req.Agents,
		AgentName:        req.Agents[0].AgentName,
		PhoneNumberLabel: req.Agents[0].PhoneNumberName,
		ScheduledAt:      req.ScheduledAt,
		CampaignType:     req.CampaignType,
		Dispatch:         &req.Dispatch,
		RetryOf:          retryOf,
		Recipients:       recipients[:submitted],
	}
	if chunkErr != nil {
		meta.PartialSubmission = &model.PartialSubmission{
			FailedChunk: failedChunk,
			Unsubmitted: len(recipients) - submitted,
			Error:       chunkErr.Error(),
		}
	}

	campaign := &model.Campaign{
		TenantID:        tc.TenantID,
		Name:            strings.TrimSpace(req.Name),
		PhoneNumberID:   req.Agents[0].PhoneNumberID,
		AgentID:         req.Agents[0].AgentID,
		Status:          status,
		TotalRecipients: submitted,
		Metadata:        meta,
	}
	if err := s.CampaignRepo.Create(ctx, campaign); err != nil {
		logger.Error("remote campaign accepted but mirror write failed", zap.Int("enqueued", result.Enqueued), zap.Error(err))
		return nil, fmt.Errorf("record campaign %s: %w", correlationID, err)
	}
	result.Campaign = campaign
	s.publish(queue.EventSubmitted, campaign)

	if chunkErr != nil {
		phones := make([]string, submitted)
		for i, r := range recipients[:submitted] {
			phones[i] = r.PhoneNumber
		}
		logger.Warn("campaign partially submitted",
			zap.Int64("campaign_id", campaign.ID),
			zap.Int("failed_chunk", failedChunk),
			zap.Int("enqueued", result.Enqueued),
			zap.Error(chunkErr),
		)
		return result, &appErrors.PartialSubmissionError{
			CampaignID:      campaign.ID,
			CorrelationID:   correlationID,
			Enqueued:        result.Enqueued,
			SubmittedPhones: phones,
			FailedChunk:     failedChunk,
			Unsubmitted:     len(recipients) - submitted,
			Cause:           chunkErr,
		}
	}

	logger.Info("campaign submitted",
		zap.Int64("campaign_id", campaign.ID),
		zap.Int("recipients", len(recipients)),
		zap.Int("chunks", result.Chunks),
		zap.Int("enqueued", result.Enqueued),
	)
	return result, nil
}

// SubmitPriority sends one immediate call. No mirror record is written.
func (s *CampaignService) SubmitPriority(ctx context.Context, tc model.TenantContext, req model.PriorityCallRequest) (*PriorityCallResult, error) {
	if err := validateAgents(req.Agents); err != nil {
		return nil, err
	}
	if err := ValidateDispatchOptions(req.Dispatch); err != nil {
		return nil, err
	}
	recipients := NormalizeRecipients([]model.RecipientInput{req.Recipient})
	if len(recipients) == 0 {
		return nil, appErrors.NewNoValidRecipients()
	}

	correlationID := s.correlationID(req.CorrelationID)
	submitReq := baseSubmitRequest(tc.TenantID, correlationID, req.Agents, req.Dispatch, req.PhoneProvider)
	submitReq.Recipients = toDispatchRecipients(recipients)
	submitReq.Priority = true

	resp, err := s.Dispatcher.Submit(ctx, submitReq)
	if err != nil {
		return nil, err
	}
	s.log().Info("priority call submitted", zap.String("tenant", tc.TenantID), zap.String("correlation_id", correlationID))
	return &PriorityCallResult{CorrelationID: correlationID, Enqueued: resp.Enqueued, Status: resp.Status}, nil
}

// ListCampaigns fetches a tenant's campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, tc model.TenantContext, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, tc.TenantID, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return campaigns, pagination, nil
}

// GetCampaign returns the mirror record without contacting the dispatch service.
func (s *CampaignService) GetCampaign(ctx context.Context, tc model.TenantContext, id int64) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, tc.TenantID, id)
}
