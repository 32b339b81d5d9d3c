package requests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/internal/shared"
)

type mockRepo struct {
	mu       sync.Mutex
	requests map[int64]Request
	nextID   int64

	insertErr error
	inserts   atomic.Int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: make(map[int64]Request), nextID: 1}
}

func (m *mockRepo) Insert(ctx context.Context, req Request) (Request, error) {
	m.inserts.Add(1)
	if m.insertErr != nil {
		return Request{}, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.nextID
	req.Status = StatusNew
	m.nextID++
	m.requests[req.ID] = req
	return req, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, shared.ErrNotFound
	}
	return req, nil
}

func (m *mockRepo) List(ctx context.Context, filters ListFilters) ([]Request, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, req := range m.requests {
		out = append(out, req)
	}
	return out, len(out), nil
}

func (m *mockRepo) Assign(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return shared.ErrNotFound
	}
	req.AssignedTo = &userID
	req.Status = StatusInProgress
	m.requests[id] = req
	return nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return shared.ErrNotFound
	}
	req.Status = status
	m.requests[id] = req
	return nil
}

type mockIdem struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockIdem() *mockIdem {
	return &mockIdem{seen: make(map[string]bool)}
}

func (m *mockIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[key] = true
	return nil
}

func (m *mockIdem) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

type mockNotifier struct {
	received atomic.Int64
	assigned atomic.Int64
}

func (m *mockNotifier) RequestReceived(ctx context.Context, req Request) {
	m.received.Add(1)
}

func (m *mockNotifier) RequestAssigned(ctx context.Context, assigneeID, requestID int64) {
	m.assigned.Add(1)
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newTestService(repo *mockRepo) (*Service, *mockNotifier) {
	notifier := &mockNotifier{}
	return NewService(repo, newMockIdem(), notifier, &mockAudit{}, nil), notifier
}

func TestSubmitPersistsAndNotifies(t *testing.T) {
	repo := newMockRepo()
	svc, notifier := newTestService(repo)

	stored, err := svc.Submit(context.Background(), "tok-1", validSupportForm())
	require.NoError(t, err)
	assert.Equal(t, StatusNew, stored.Status)
	assert.Equal(t, "Al Noor Tower", stored.FacilityName)
	assert.Equal(t, int64(1), notifier.received.Load())
}

func TestSubmitRejectsInvalidForm(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), "tok-1", NewForm())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, int64(0), repo.inserts.Load())
}

func TestSubmitReplayIsIgnored(t *testing.T) {
	repo := newMockRepo()
	svc, notifier := newTestService(repo)

	_, err := svc.Submit(context.Background(), "tok-1", validSupportForm())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "tok-1", validSupportForm())
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, int64(1), repo.inserts.Load())
	assert.Equal(t, int64(1), notifier.received.Load())
}

func TestSubmitRequiresToken(t *testing.T) {
	svc, _ := newTestService(newMockRepo())
	_, err := svc.Submit(context.Background(), "", validSupportForm())
	require.Error(t, err)
}

func TestSubmitReleasesTokenOnRepoFailure(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = errors.New("connection reset")
	svc, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), "tok-1", validSupportForm())
	require.Error(t, err)

	// The transient failure must not burn the token.
	repo.insertErr = nil
	_, err = svc.Submit(context.Background(), "tok-1", validSupportForm())
	assert.NoError(t, err)
}

func TestAssignRecordsAudit(t *testing.T) {
	repo := newMockRepo()
	audit := &mockAudit{}
	svc := NewService(repo, newMockIdem(), nil, audit, nil)

	stored, err := svc.Submit(context.Background(), "tok-1", validSupportForm())
	require.NoError(t, err)

	require.NoError(t, svc.Assign(context.Background(), 9, stored.ID, 4))
	got, err := svc.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, int64(4), *got.AssignedTo)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditRequestAssigned, audit.logs[0].Action)
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	svc, _ := newTestService(newMockRepo())
	err := svc.UpdateStatus(context.Background(), 1, Status("archived"))
	require.Error(t, err)
}
