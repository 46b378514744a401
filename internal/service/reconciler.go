package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/voicecampaign-backend/internal/dispatch"
	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
	"github.com/unclebandit/voicecampaign-backend/internal/repository"
)

// ReconcileResult is the refreshed mirror plus the remote recipient list,
// which is returned to the caller but never stored in the mirror.
type ReconcileResult struct {
	Campaign      *model.Campaign   `json:"campaign"`
	Recipients    []model.Recipient `json:"recipients"`
	PhoneProvider string            `json:"phone_provider,omitempty"`
	AgentName     string            `json:"agent_name,omitempty"`
	ScheduledAt   *time.Time        `json:"scheduled_at,omitempty"`
	// Stale is set when a newer write (e.g. a cancellation) landed while the
	// remote status was being fetched; the fetched progress was discarded.
	Stale bool `json:"stale,omitempty"`
}

func progressFromStatus(st *dispatch.StatusResponse) model.CampaignProgress {
	p := model.CampaignProgress{
		Status:              model.ParseCampaignStatus(st.Status),
		TotalRecipients:     st.TotalCallsScheduled,
		ProcessedRecipients: st.TotalCallsDispatched,
	}
	if p.ProcessedRecipients > p.TotalRecipients {
		p.ProcessedRecipients = p.TotalRecipients
	}
	return p
}

func recipientsFromStatus(st *dispatch.StatusResponse) []model.Recipient {
	out := make([]model.Recipient, len(st.Recipients))
	for i, r := range st.Recipients {
		out[i] = model.Recipient{
			PhoneNumber:    r.PhoneNumber,
			Status:         model.RecipientStatus(r.Status),
			ConversationID: r.ConversationID,
		}
	}
	return out
}

func sameProgress(c *model.Campaign, p model.CampaignProgress) bool {
	return c.Status == p.Status &&
		c.TotalRecipients == p.TotalRecipients &&
		c.ProcessedRecipients == p.ProcessedRecipients
}

// Reconcile overwrites the mirror's progress with the dispatch service's view.
// It is safe to call repeatedly; an unchanged remote state causes no write.
func (s *CampaignService) Reconcile(ctx context.Context, tc model.TenantContext, id int64) (*ReconcileResult, error) {
	c, err := s.CampaignRepo.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	remoteID := c.RemoteID()
	if remoteID == "" {
		return nil, appErrors.ErrNotRemoteManaged
	}

	st, err := s.Dispatcher.Status(ctx, tc.TenantID, remoteID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		Campaign:      c,
		Recipients:    recipientsFromStatus(st),
		PhoneProvider: st.PhoneProvider,
		AgentName:     st.AgentName,
	}
	if st.ScheduledTimeUnix != nil && *st.ScheduledTimeUnix > 0 {
		at := time.Unix(*st.ScheduledTimeUnix, 0).UTC()
		result.ScheduledAt = &at
	}

	logger := s.log().With(zap.String("tenant", tc.TenantID), zap.Int64("campaign_id", id))
	progress := progressFromStatus(st)
	if !sameProgress(c, progress) {
		updated, err := s.CampaignRepo.UpdateProgressIfVersion(ctx, tc.TenantID, id, c.Version, progress)
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			logger.Info("discarding stale reconciliation", zap.Int64("read_version", c.Version))
			current, getErr := s.CampaignRepo.GetByID(ctx, tc.TenantID, id)
			if getErr != nil {
				return nil, getErr
			}
			result.Campaign = current
			result.Stale = true
			return result, nil
		case err != nil:
			return nil, err
		}
		result.Campaign = updated
		if updated.Status != c.Status {
			s.publish(queue.EventReconciled, updated)
		}
	}

	if s.Recipients != nil {
		if err := s.Recipients.Save(ctx, tc.TenantID, id, result.Campaign.Version, result.Recipients); err != nil {
			logger.Warn("failed to cache reconciled recipients", zap.Error(err))
		}
	}
	return result, nil
}
