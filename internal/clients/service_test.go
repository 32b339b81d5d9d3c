package clients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

type memoryRepo struct {
	rows   map[int64]Client
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]Client), nextID: 1}
}

func (m *memoryRepo) Insert(ctx context.Context, c Client) (Client, error) {
	c.ID = m.nextID
	m.nextID++
	m.rows[c.ID] = c
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, input Input) error {
	c, ok := m.rows[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Name = input.Name
	c.Phone = input.Phone
	m.rows[id] = c
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Client, error) {
	c, ok := m.rows[id]
	if !ok {
		return Client{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Client, int, error) {
	var out []Client
	for _, c := range m.rows {
		if filters.AgentID > 0 && (c.AgentID == nil || *c.AgentID != filters.AgentID) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) AssignAgent(ctx context.Context, id int64, agentID *int64) error {
	c, ok := m.rows[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.AgentID = agentID
	m.rows[id] = c
	return nil
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), nil, Input{Name: "X"})
	require.Error(t, err)

	c, err := svc.Create(context.Background(), nil, Input{Name: "Fahad Al Harbi", Phone: "0551234567"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
}

func TestAgentsOnlySeeTheirOwnBook(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	agentA := &authz.Principal{ID: 1, Role: authz.RoleAgent, Active: true}
	agentB := &authz.Principal{ID: 2, Role: authz.RoleAgent, Active: true}
	manager := &authz.Principal{ID: 3, Role: authz.RoleManager, Active: true}

	_, err := svc.Create(context.Background(), agentA, Input{Name: "Client A", Phone: "0550000001"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), agentB, Input{Name: "Client B", Phone: "0550000002"})
	require.NoError(t, err)

	own, _, err := svc.List(context.Background(), agentA, ListFilters{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Client A", own[0].Name)

	all, _, err := svc.List(context.Background(), manager, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAssignAgentZeroUnassigns(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	c, err := svc.Create(context.Background(), &authz.Principal{ID: 1, Role: authz.RoleAgent, Active: true},
		Input{Name: "Client", Phone: "0550000003"})
	require.NoError(t, err)

	require.NoError(t, svc.AssignAgent(context.Background(), c.ID, 9))
	got, _ := svc.Get(context.Background(), c.ID)
	require.NotNil(t, got.AgentID)
	assert.Equal(t, int64(9), *got.AgentID)

	require.NoError(t, svc.AssignAgent(context.Background(), c.ID, 0))
	got, _ = svc.Get(context.Background(), c.ID)
	assert.Nil(t, got.AgentID)
}
