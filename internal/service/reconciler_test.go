package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/voicecampaign-backend/internal/dispatch"
	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
)

func seedRemote(repo *MockCampaignRepo, status model.CampaignStatus, total, processed int) *model.Campaign {
	return repo.Seed(model.Campaign{
		TenantID:            "tenant-a",
		Name:                "Collections",
		Status:              status,
		TotalRecipients:     total,
		ProcessedRecipients: processed,
		Metadata: model.CampaignMetadata{
			RemoteCampaignID: "corr-1",
			Recipients: []model.RecipientInput{
				{PhoneNumber: "+1", Variables: map[string]string{"name": "A"}},
				{PhoneNumber: "+2", Variables: map[string]string{"name": "B"}},
				{PhoneNumber: "+3", Variables: map[string]string{"name": "C"}},
			},
		},
	})
}

func remoteStatus(status string, scheduled, dispatched int) *dispatch.StatusResponse {
	return &dispatch.StatusResponse{
		Status:               status,
		TotalCallsScheduled:  scheduled,
		TotalCallsDispatched: dispatched,
		PhoneProvider:        "twilio",
		AgentName:            "Ana",
		Recipients: []dispatch.RecipientStatus{
			{PhoneNumber: "+1", Status: "completed", ConversationID: "conv-1"},
			{PhoneNumber: "+2", Status: "failed"},
			{PhoneNumber: "+3", Status: "in_progress"},
		},
	}
}

func TestReconcileNotRemoteManaged(t *testing.T) {
	repo := NewMockCampaignRepo()
	legacy := repo.Seed(model.Campaign{TenantID: "tenant-a", Name: "legacy", Status: model.CampaignProcessing})
	d := &MockDispatcher{}

	_, err := newService(repo, d).Reconcile(context.Background(), tenantA, legacy.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotRemoteManaged)
	assert.Zero(t, d.StatusCalls)
}

func TestReconcileOverwritesFromRemote(t *testing.T) {
	repo := NewMockCampaignRepo()
	c := seedRemote(repo, model.CampaignPending, 3, 0)
	events := &RecordingQueue{}
	store := &MockRecipientStore{}
	d := &MockDispatcher{StatusResp: remoteStatus("completed", 3, 3)}
	svc := newService(repo, d)
	svc.Queue = events
	svc.Recipients = store

	res, err := svc.Reconcile(context.Background(), tenantA, c.ID)
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, model.CampaignCompleted, res.Campaign.Status)
	assert.Equal(t, 3, res.Campaign.TotalRecipients)
	assert.Equal(t, 3, res.Campaign.ProcessedRecipients)
	assert.Equal(t, "twilio", res.PhoneProvider)
	require.Len(t, res.Recipients, 3)
	assert.Equal(t, model.RecipientFailed, res.Recipients[1].Status)
	assert.Equal(t, "conv-1", res.Recipients[0].ConversationID)

	stored, _ := repo.GetByID(context.Background(), "tenant-a", c.ID)
	assert.Equal(t, model.CampaignCompleted, stored.Status)
	assert.Len(t, stored.Metadata.Recipients, 3, "snapshot is untouched")
	assert.Equal(t, []queue.EventType{queue.EventReconciled}, events.Types())

	cached, version, ok, _ := store.Load(context.Background(), "tenant-a", c.ID)
	assert.True(t, ok)
	assert.Equal(t, res.Recipients, cached)
	assert.Equal(t, res.Campaign.Version, version)
}

func TestReconcileClampsProcessed(t *testing.T) {
	repo := NewMockCampaignRepo()
	c := seedRemote(repo, model.CampaignProcessing, 3, 0)
	d := &MockDispatcher{StatusResp: remoteStatus("processing", 3, 7)}

	res, err := newService(repo, d).Reconcile(context.Background(), tenantA, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Campaign.ProcessedRecipients)
}

func TestReconcileIsIdempotent(t *testing.T) {
	repo := NewMockCampaignRepo()
	c := seedRemote(repo, model.CampaignPending, 3, 0)
	d := &MockDispatcher{StatusResp: remoteStatus("processing", 3, 2)}
	svc := newService(repo, d)

	first, err := svc.Reconcile(context.Background(), tenantA, c.ID)
	require.NoError(t, err)
	writes := repo.Writes()

	second, err := svc.Reconcile(context.Background(), tenantA, c.ID)
	require.NoError(t, err)

	assert.Equal(t, writes, repo.Writes(), "unchanged remote state must not write")
	assert.Equal(t, first.Campaign.Status, second.Campaign.Status)
	assert.Equal(t, first.Campaign.TotalRecipients, second.Campaign.TotalRecipients)
	assert.Equal(t, first.Campaign.ProcessedRecipients, second.Campaign.ProcessedRecipients)
	assert.Equal(t, first.Campaign.Version, second.Campaign.Version)
}

func TestReconcileRemoteErrorLeavesMirror(t *testing.T) {
	repo := NewMockCampaignRepo()
	c := seedRemote(repo, model.CampaignProcessing, 3, 1)
	remoteErr := &appErrors.RemoteServiceError{Operation: "status", StatusCode: http.StatusBadGateway, Message: "upstream"}
	d := &MockDispatcher{StatusErr: remoteErr}

	_, err := newService(repo, d).Reconcile(context.Background(), tenantA, c.ID)
	assert.ErrorIs(t, err, remoteErr)

	stored, _ := repo.GetByID(context.Background(), "tenant-a", c.ID)
	assert.Equal(t, *c, *stored)
	assert.Zero(t, repo.Writes())
}

func TestReconcileDiscardsStaleRead(t *testing.T) {
	repo := NewMockCampaignRepo()
	c := seedRemote(repo, model.CampaignProcessing, 3, 1)
	d := &MockDispatcher{StatusResp: remoteStatus("processing", 3, 2)}
	// A cancellation lands while the status request is in flight.
	d.StatusHook = func() {
		_, err := repo.UpdateProgress(context.Background(), "tenant-a", c.ID, model.CampaignProgress{
			Status: model.CampaignCancelled, TotalRecipients: 3, ProcessedRecipients: 1,
		})
		require.NoError(t, err)
	}

	res, err := newService(repo, d).Reconcile(context.Background(), tenantA, c.ID)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, model.CampaignCancelled, res.Campaign.Status)

	stored, _ := repo.GetByID(context.Background(), "tenant-a", c.ID)
	assert.Equal(t, model.CampaignCancelled, stored.Status)
	assert.Equal(t, 1, stored.ProcessedRecipients)
}

func TestReconcileOtherTenant(t *testing.T) {
	repo := NewMockCampaignRepo()
	c := seedRemote(repo, model.CampaignProcessing, 3, 1)
	d := &MockDispatcher{StatusResp: remoteStatus("completed", 3, 3)}

	_, err := newService(repo, d).Reconcile(context.Background(), model.TenantContext{TenantID: "tenant-b"}, c.ID)
	var notFound *appErrors.ErrCampaignNotFound
	assert.ErrorAs(t, err, &notFound)
	assert.Zero(t, d.StatusCalls)
}
