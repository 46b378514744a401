// Package worker drives periodic reconciliation of running campaigns.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
	"github.com/unclebandit/voicecampaign-backend/internal/service"
)

const (
	defaultInterval = 5 * time.Second
	activeBatch     = 500
	// cancelHold keeps a campaign out of the poll set after a cancel request
	// long enough for the cancellation write to land.
	cancelHold = time.Minute
)

// Reconciler is implemented by service.CampaignService.
type Reconciler interface {
	Reconcile(ctx context.Context, tc model.TenantContext, id int64) (*service.ReconcileResult, error)
}

// ActiveLister returns campaigns that are not yet terminal.
type ActiveLister interface {
	ListActive(ctx context.Context, limit int) ([]*model.Campaign, error)
}

type key struct {
	tenant string
	id     int64
}

// Worker reconciles tracked campaigns on a fixed interval until they reach a
// terminal status or a cancellation is requested.
type Worker struct {
	Reconciler Reconciler
	Campaigns  ActiveLister
	Interval   time.Duration
	Logger     *zap.Logger

	mu         sync.Mutex
	tracked    map[key]struct{}
	cancelling map[key]time.Time
	now        func() time.Time
}

// Constructor
func NewWorker(reconciler Reconciler, campaigns ActiveLister, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Reconciler: reconciler,
		Campaigns:  campaigns,
		Interval:   interval,
		Logger:     logger,
		tracked:    make(map[key]struct{}),
		cancelling: make(map[key]time.Time),
		now:        time.Now,
	}
}

// HandleEvent updates the poll set from a campaign lifecycle event.
func (w *Worker) HandleEvent(e queue.CampaignEvent) error {
	k := key{tenant: e.TenantID, id: e.CampaignID}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch e.Type {
	case queue.EventSubmitted:
		if !e.Status.Terminal() {
			w.tracked[k] = struct{}{}
		}
	case queue.EventCancelRequested:
		delete(w.tracked, k)
		w.cancelling[k] = w.now()
	case queue.EventCancelled:
		delete(w.tracked, k)
		delete(w.cancelling, k)
	case queue.EventReconciled:
		if e.Status.Terminal() {
			delete(w.tracked, k)
		}
	}
	return nil
}

// Tracked reports whether a campaign is in the poll set.
func (w *Worker) Tracked(tenantID string, id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tracked[key{tenant: tenantID, id: id}]
	return ok
}

// sweepCancelling drops holds older than cancelHold. A cancel the remote
// rejected never produces a cancelled event, so its hold is only cleared here.
func (w *Worker) sweepCancelling() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	for k, at := range w.cancelling {
		if now.Sub(at) >= cancelHold {
			delete(w.cancelling, k)
		}
	}
}

func (w *Worker) seed(ctx context.Context) {
	w.sweepCancelling()
	if w.Campaigns == nil {
		return
	}
	active, err := w.Campaigns.ListActive(ctx, activeBatch)
	if err != nil {
		w.Logger.Warn("failed to list active campaigns", zap.Error(err))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range active {
		k := key{tenant: c.TenantID, id: c.ID}
		if _, held := w.cancelling[k]; held {
			continue
		}
		w.tracked[k] = struct{}{}
	}
}

func (w *Worker) snapshot() []key {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := make([]key, 0, len(w.tracked))
	for k := range w.tracked {
		keys = append(keys, k)
	}
	return keys
}

func (w *Worker) untrack(k key) {
	w.mu.Lock()
	delete(w.tracked, k)
	w.mu.Unlock()
}

// Tick runs one reconciliation pass over the poll set.
func (w *Worker) Tick(ctx context.Context) {
	w.seed(ctx)
	for _, k := range w.snapshot() {
		if ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		_, stillTracked := w.tracked[k]
		w.mu.Unlock()
		if !stillTracked {
			continue
		}

		res, err := w.Reconciler.Reconcile(ctx, model.TenantContext{TenantID: k.tenant}, k.id)
		var notFound *appErrors.ErrCampaignNotFound
		switch {
		case errors.Is(err, appErrors.ErrNotRemoteManaged), errors.As(err, &notFound):
			w.untrack(k)
		case err != nil:
			w.Logger.Warn("reconcile failed", zap.String("tenant", k.tenant), zap.Int64("campaign_id", k.id), zap.Error(err))
		case res.Campaign.Status.Terminal():
			w.Logger.Info("campaign finished",
				zap.String("tenant", k.tenant),
				zap.Int64("campaign_id", k.id),
				zap.String("status", string(res.Campaign.Status)),
			)
			w.untrack(k)
		}
	}
}

// Start polls until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Logger.Info("reconcile worker started", zap.Duration("interval", w.Interval))
	for {
		w.Tick(ctx)
		select {
		case <-ctx.Done():
			w.Logger.Info("reconcile worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}
