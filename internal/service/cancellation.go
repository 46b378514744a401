package service

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
)

// Cancel stops a running campaign on the dispatch service and mirrors the
// remote echo. The unconditional write bumps the version, so a reconciliation
// that read the campaign before this point cannot overwrite the result.
func (s *CampaignService) Cancel(ctx context.Context, tc model.TenantContext, id int64) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, tc.TenantID, id)
	if err != nil {
		return nil, err
	}
	remoteID := c.RemoteID()
	if remoteID == "" {
		return nil, appErrors.ErrNotRemoteManaged
	}
	if c.Status.Terminal() {
		return nil, &appErrors.AlreadyTerminalError{CampaignID: c.ID, Status: string(c.Status)}
	}

	// Pollers stop tracking the campaign before the remote call goes out.
	s.publish(queue.EventCancelRequested, c)

	resp, err := s.Dispatcher.Cancel(ctx, tc.TenantID, remoteID)
	if err != nil {
		s.log().Warn("cancel rejected by dispatch service",
			zap.String("tenant", tc.TenantID),
			zap.Int64("campaign_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	progress := model.CampaignProgress{
		Status:              model.CampaignCancelled,
		TotalRecipients:     c.TotalRecipients,
		ProcessedRecipients: resp.TotalCallsDispatched,
	}
	if resp.Status != "" {
		progress.Status = model.ParseCampaignStatus(resp.Status)
	}
	if progress.ProcessedRecipients > progress.TotalRecipients {
		progress.TotalRecipients = progress.ProcessedRecipients
	}

	updated, err := s.CampaignRepo.UpdateProgress(ctx, tc.TenantID, id, progress)
	if err != nil {
		return nil, err
	}
	s.log().Info("campaign cancelled",
		zap.String("tenant", tc.TenantID),
		zap.Int64("campaign_id", id),
		zap.String("status", string(updated.Status)),
	)
	s.publish(queue.EventCancelled, updated)
	return updated, nil
}
