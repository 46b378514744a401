package service_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/unclebandit/voicecampaign-backend/internal/dispatch"
	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
	"github.com/unclebandit/voicecampaign-backend/internal/repository"
	"github.com/unclebandit/voicecampaign-backend/internal/service"
)

// MockCampaignRepo is a tenant-scoped in-memory mirror store with versions.
type MockCampaignRepo struct {
	mu        sync.Mutex
	nextID    int64
	campaigns map[int64]model.Campaign
	writes    int
}

func NewMockCampaignRepo() *MockCampaignRepo {
	return &MockCampaignRepo{campaigns: map[int64]model.Campaign{}}
}

func (m *MockCampaignRepo) Seed(c model.Campaign) *model.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	if c.Version == 0 {
		c.Version = 1
	}
	m.campaigns[c.ID] = c
	return &c
}

func (m *MockCampaignRepo) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.writes++
	c.ID = m.nextID
	c.Version = 1
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = *c
	return nil
}

func (m *MockCampaignRepo) GetByID(_ context.Context, tenantID string, id int64) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return &c, nil
}

func (m *MockCampaignRepo) ListCampaigns(_ context.Context, tenantID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []*model.Campaign
	for _, c := range m.campaigns {
		if c.TenantID != tenantID || (status != "" && string(c.Status) != status) {
			continue
		}
		c := c
		filtered = append(filtered, &c)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].ID > filtered[j].ID })
	total := len(filtered)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := min(offset+limit, total)
	return filtered[offset:end], total, nil
}

func (m *MockCampaignRepo) apply(tenantID string, id int64, version int64, p model.CampaignProgress) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if version != 0 && c.Version != version {
		return nil, repository.ErrStaleVersion
	}
	c.Status = p.Status
	c.TotalRecipients = p.TotalRecipients
	c.ProcessedRecipients = p.ProcessedRecipients
	c.Version++
	now := time.Now()
	c.UpdatedAt = &now
	m.campaigns[id] = c
	m.writes++
	return &c, nil
}

func (m *MockCampaignRepo) UpdateProgress(_ context.Context, tenantID string, id int64, p model.CampaignProgress) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(tenantID, id, 0, p)
}

func (m *MockCampaignRepo) UpdateProgressIfVersion(_ context.Context, tenantID string, id, version int64, p model.CampaignProgress) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(tenantID, id, version, p)
}

func (m *MockCampaignRepo) ListActive(_ context.Context, limit int) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Campaign
	for _, c := range m.campaigns {
		if !c.Status.Terminal() && c.RemoteID() != "" {
			c := c
			out = append(out, &c)
		}
	}
	return out, nil
}

var _ repository.CampaignRepositoryInterface = (*MockCampaignRepo)(nil)

// MockDispatcher records calls and returns canned responses.
type MockDispatcher struct {
	mu          sync.Mutex
	SubmitCalls []dispatch.SubmitRequest
	SubmitFunc  func(call int, req dispatch.SubmitRequest) (*dispatch.SubmitResponse, error)
	StatusResp  *dispatch.StatusResponse
	StatusErr   error
	StatusHook  func()
	StatusCalls int
	CancelResp  *dispatch.CancelResponse
	CancelErr   error
	CancelCalls int
	OnCancel    func()
}

func (d *MockDispatcher) Submit(_ context.Context, req dispatch.SubmitRequest) (*dispatch.SubmitResponse, error) {
	d.mu.Lock()
	d.SubmitCalls = append(d.SubmitCalls, req)
	call := len(d.SubmitCalls)
	fn := d.SubmitFunc
	d.mu.Unlock()
	if fn != nil {
		return fn(call, req)
	}
	return &dispatch.SubmitResponse{Enqueued: len(req.Recipients), Status: "processing"}, nil
}

func (d *MockDispatcher) Status(_ context.Context, _, _ string) (*dispatch.StatusResponse, error) {
	d.mu.Lock()
	d.StatusCalls++
	hook := d.StatusHook
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	if d.StatusErr != nil {
		return nil, d.StatusErr
	}
	return d.StatusResp, nil
}

func (d *MockDispatcher) Cancel(_ context.Context, _, _ string) (*dispatch.CancelResponse, error) {
	d.mu.Lock()
	d.CancelCalls++
	d.mu.Unlock()
	if d.OnCancel != nil {
		d.OnCancel()
	}
	if d.CancelErr != nil {
		return nil, d.CancelErr
	}
	return d.CancelResp, nil
}

var _ service.Dispatcher = (*MockDispatcher)(nil)

// RecordingQueue keeps every published event in order.
type RecordingQueue struct {
	mu     sync.Mutex
	Events []queue.CampaignEvent
}

func (q *RecordingQueue) Publish(_ string, e queue.CampaignEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Events = append(q.Events, e)
	return nil
}

func (q *RecordingQueue) Subscribe(string, queue.Handler) error { return nil }

func (q *RecordingQueue) Types() []queue.EventType {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]queue.EventType, len(q.Events))
	for i, e := range q.Events {
		out[i] = e.Type
	}
	return out
}

// MockRecipientStore is an in-memory RecipientStore.
type MockRecipientStore struct {
	mu   sync.Mutex
	data map[string]cachedList
}

type cachedList struct {
	version    int64
	recipients []model.Recipient
}

func storeKey(tenantID string, id int64) string {
	return tenantID + "/" + strconv.FormatInt(id, 10)
}

func (s *MockRecipientStore) Save(_ context.Context, tenantID string, id, version int64, r []model.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string]cachedList{}
	}
	s.data[storeKey(tenantID, id)] = cachedList{version: version, recipients: r}
	return nil
}

func (s *MockRecipientStore) Load(_ context.Context, tenantID string, id int64) ([]model.Recipient, int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[storeKey(tenantID, id)]
	return e.recipients, e.version, ok, nil
}

var _ service.RecipientStore = (*MockRecipientStore)(nil)

var tenantA = model.TenantContext{TenantID: "tenant-a", UserID: "u1", Role: "admin"}

func validDispatch() model.DispatchOptions {
	return model.DispatchOptions{AMDEnabled: true, AMDTimeout: 20, Concurrency: 10}
}

func agents() []model.RoutingAgent {
	return []model.RoutingAgent{{AgentID: "agent-1", PhoneNumberID: "pn-1", AgentName: "Ana"}}
}

func newService(repo *MockCampaignRepo, d *MockDispatcher) *service.CampaignService {
	return &service.CampaignService{CampaignRepo: repo, Dispatcher: d}
}
