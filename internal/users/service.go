package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/shared"
)

// ErrNotManageable indicates the actor's role does not sit above the target
// role in the hierarchy.
var ErrNotManageable = errors.New("users: role not manageable by actor")

// ErrSelfChange indicates an actor tried to change their own role or
// status.
var ErrSelfChange = errors.New("users: cannot change own account")

// RepositoryPort defines data access methods for the directory.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	UpdateRole(ctx context.Context, id int64, role authz.Role) error
	SetActive(ctx context.Context, id int64, active bool) error
	ReplaceOverrides(ctx context.Context, id int64, permissions []string) error
}

// AuditPort records directory changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator flushes resolved identity snapshots after a change that
// affects what an account may do.
type Invalidator interface {
	Invalidate()
}

// Service handles staff directory business logic.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, invalidator: invalidator, logger: logger}
}

// List returns directory entries.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// ChangeRole moves an account to a new role. The actor must sit strictly
// above both the target's current role and the new one, so nobody can
// promote past their own level or touch a peer.
func (s *Service) ChangeRole(ctx context.Context, actor *authz.Principal, targetID int64, newRole authz.Role) error {
	if actor == nil {
		return ErrNotManageable
	}
	if actor.ID == targetID {
		return ErrSelfChange
	}
	if _, ok := authz.ParseRole(string(newRole)); !ok {
		return fmt.Errorf("users: unknown role %q", newRole)
	}
	target, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !authz.CanManageRole(actor.Role, target.Role) || !authz.CanManageRole(actor.Role, newRole) {
		return ErrNotManageable
	}
	if target.Role == newRole {
		return nil
	}
	if err := s.repo.UpdateRole(ctx, targetID, newRole); err != nil {
		return err
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   shared.AuditRoleChanged,
		Entity:   "user",
		EntityID: strconv.FormatInt(targetID, 10),
		Meta:     map[string]any{"from": target.Role, "to": newRole},
	})
	s.flush()
	return nil
}

// SetActive activates or deactivates an account.
func (s *Service) SetActive(ctx context.Context, actor *authz.Principal, targetID int64, active bool) error {
	if actor == nil {
		return ErrNotManageable
	}
	if actor.ID == targetID {
		return ErrSelfChange
	}
	target, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !authz.CanManageRole(actor.Role, target.Role) {
		return ErrNotManageable
	}
	if target.IsActive == active {
		return nil
	}
	if err := s.repo.SetActive(ctx, targetID, active); err != nil {
		return err
	}
	action := shared.AuditUserDeactivated
	if active {
		action = shared.AuditUserActivated
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(targetID, 10),
	})
	s.flush()
	return nil
}

// SetOverrides replaces an account's extra permissions. Unknown permission
// names are rejected rather than silently stored.
func (s *Service) SetOverrides(ctx context.Context, actor *authz.Principal, targetID int64, permissions []string) error {
	if actor == nil {
		return ErrNotManageable
	}
	known := authz.AllPermissions()
	for _, perm := range permissions {
		if !slices.Contains(known, perm) {
			return fmt.Errorf("users: unknown permission %q", perm)
		}
	}
	target, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if !authz.CanManageRole(actor.Role, target.Role) {
		return ErrNotManageable
	}
	if err := s.repo.ReplaceOverrides(ctx, targetID, permissions); err != nil {
		return err
	}
	s.recordAudit(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   shared.AuditOverridesChanged,
		Entity:   "user",
		EntityID: strconv.FormatInt(targetID, 10),
		Meta:     map[string]any{"permissions": permissions},
	})
	s.flush()
	return nil
}

func (s *Service) recordAudit(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit directory change", slog.Any("error", err))
	}
}

func (s *Service) flush() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}
