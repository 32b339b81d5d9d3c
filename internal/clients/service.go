package clients

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/atrium-realty/atrium/internal/authz"
)

// Service handles client directory logic. Agents are scoped to their own
// book; managers and above see everything.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// scopeFilters narrows the query to the actor's own clients when the actor
// is an agent.
func scopeFilters(actor *authz.Principal, filters ListFilters) ListFilters {
	if actor != nil && actor.Role == authz.RoleAgent {
		filters.AgentID = actor.ID
	}
	return filters
}

// Create stores a new client record. Agents own what they create.
func (s *Service) Create(ctx context.Context, actor *authz.Principal, input Input) (Client, error) {
	if err := s.validate.Struct(input); err != nil {
		return Client{}, err
	}
	c := Client{
		Name:  input.Name,
		Phone: input.Phone,
		Email: input.Email,
		City:  input.City,
		Notes: input.Notes,
	}
	if actor != nil && actor.Role == authz.RoleAgent {
		c.AgentID = &actor.ID
	}
	return s.repo.Insert(ctx, c)
}

// Update replaces the editable fields.
func (s *Service) Update(ctx context.Context, id int64, input Input) error {
	if err := s.validate.Struct(input); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, input)
}

// Get fetches one client record.
func (s *Service) Get(ctx context.Context, id int64) (Client, error) {
	return s.repo.Get(ctx, id)
}

// List returns the directory page visible to the actor.
func (s *Service) List(ctx context.Context, actor *authz.Principal, filters ListFilters) ([]Client, int, error) {
	return s.repo.List(ctx, scopeFilters(actor, filters))
}

// AssignAgent hands a client to an agent; zero unassigns.
func (s *Service) AssignAgent(ctx context.Context, id, agentID int64) error {
	if agentID <= 0 {
		return s.repo.AssignAgent(ctx, id, nil)
	}
	return s.repo.AssignAgent(ctx, id, &agentID)
}
