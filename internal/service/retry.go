package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

// RetryRequest optionally carries the recipient statuses the caller last saw.
type RetryRequest struct {
	Name       string            `json:"name,omitempty"`
	Recipients []model.Recipient `json:"recipients,omitempty"`
}

type RetryResult struct {
	OriginalCampaignID int64 `json:"original_campaign_id"`
	Retried            int   `json:"retried"`
	*SubmitCampaignResult
}

// PlanRetry returns every recipient that did not complete, carrying its
// original variables from the snapshot. Phones are normalized before the
// lookup; unknown phones get an empty map and duplicates are planned once.
func PlanRetry(snapshot []model.RecipientInput, recipients []model.Recipient) ([]model.RecipientInput, error) {
	vars := model.CampaignMetadata{Recipients: snapshot}.SnapshotVariables()
	seen := make(map[string]bool, len(recipients))
	var out []model.RecipientInput
	for _, r := range recipients {
		phone := NormalizePhone(r.PhoneNumber)
		if phone == "" || r.Status == model.RecipientCompleted || seen[phone] {
			continue
		}
		seen[phone] = true
		v, ok := vars[phone]
		if !ok || v == nil {
			v = map[string]string{}
		}
		out = append(out, model.RecipientInput{PhoneNumber: phone, Variables: v})
	}
	if len(out) == 0 {
		return nil, appErrors.ErrNothingToRetry
	}
	return out, nil
}

func (s *CampaignService) latestRecipients(ctx context.Context, tc model.TenantContext, c *model.Campaign) ([]model.Recipient, error) {
	if s.Recipients != nil {
		cached, version, ok, err := s.Recipients.Load(ctx, tc.TenantID, c.ID)
		switch {
		case err != nil:
			s.log().Warn("recipient cache unavailable", zap.Int64("campaign_id", c.ID), zap.Error(err))
		case ok && version >= c.Version:
			return cached, nil
		case ok:
			// The mirror moved on (e.g. a cancellation) after this list was cached.
			s.log().Debug("cached recipients are stale",
				zap.Int64("campaign_id", c.ID),
				zap.Int64("cached_version", version),
				zap.Int64("version", c.Version),
			)
		}
	}
	res, err := s.Reconcile(ctx, tc, c.ID)
	if err != nil {
		return nil, err
	}
	return res.Recipients, nil
}

// Retry starts a new campaign for the recipients of a finished campaign that
// did not complete. The original campaign is left untouched.
func (s *CampaignService) Retry(ctx context.Context, tc model.TenantContext, id int64, req RetryRequest) (*RetryResult, error) {
	c, err := s.CampaignRepo.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.Terminal() {
		return nil, appErrors.NewValidation("status", "campaign is still %s; only finished campaigns can be retried", c.Status)
	}

	recipients := req.Recipients
	if len(recipients) == 0 {
		if recipients, err = s.latestRecipients(ctx, tc, c); err != nil {
			return nil, err
		}
	}

	planned, err := PlanRetry(c.Metadata.Recipients, recipients)
	if err != nil {
		return nil, err
	}

	agents := c.Metadata.Agents
	if len(agents) == 0 {
		agents = []model.RoutingAgent{{AgentID: c.AgentID, PhoneNumberID: c.PhoneNumberID}}
	}
	opts := model.DispatchOptions{AMDTimeout: 20, Concurrency: 10}
	if c.Metadata.Dispatch != nil {
		opts = *c.Metadata.Dispatch
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = c.Name + " (retry)"
	}

	submitted, err := s.submit(ctx, tc, model.SubmitCampaignRequest{
		Name:          name,
		Agents:        agents,
		Recipients:    planned,
		PhoneProvider: c.Metadata.PhoneProvider,
		CampaignType:  c.Metadata.CampaignType,
		Dispatch:      opts,
	}, c.ID)
	var out *RetryResult
	if submitted != nil {
		out = &RetryResult{OriginalCampaignID: c.ID, Retried: len(planned), SubmitCampaignResult: submitted}
	}
	return out, err
}
