package queue

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

// TopicCampaignEvents carries campaign lifecycle events.
const TopicCampaignEvents = "campaign_events"

type EventType string

const (
	EventSubmitted       EventType = "campaign.submitted"
	EventReconciled      EventType = "campaign.reconciled"
	EventCancelRequested EventType = "campaign.cancel_requested"
	EventCancelled       EventType = "campaign.cancelled"
)

// CampaignEvent is published whenever the mirror of a campaign changes hands.
type CampaignEvent struct {
	Type       EventType            `json:"type"`
	TenantID   string               `json:"tenant_id"`
	CampaignID int64                `json:"campaign_id"`
	Status     model.CampaignStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

type Handler func(event CampaignEvent) error

// Queue interface
type Queue interface {
	Publish(topic string, event CampaignEvent) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue delivers events in-process with bounded retry.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]Handler
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		logger:     logger,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

// job wraps an event with retry info
type job struct {
	event      CampaignEvent
	retryCount int
}

// Publish sends an event to all subscribers
func (q *InMemoryQueue) Publish(topic string, event CampaignEvent) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.processJob(handler, job{event: event})
	}
	return nil
}

// processJob handles retries with linear backoff
func (q *InMemoryQueue) processJob(handler Handler, j job) {
	defer q.wg.Done()
	for {
		err := handler(j.event)
		if err == nil {
			return
		}

		j.retryCount++
		q.logger.Warn("event handler failed",
			zap.String("type", string(j.event.Type)),
			zap.Int64("campaign_id", j.event.CampaignID),
			zap.Int("attempt", j.retryCount),
			zap.Error(err),
		)
		if j.retryCount > q.maxRetries {
			q.logger.Error("event permanently failed", zap.Int64("campaign_id", j.event.CampaignID))
			return
		}
		time.Sleep(time.Duration(j.retryCount) * q.backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every in-flight delivery has finished.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
