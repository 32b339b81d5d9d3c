package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/atrium-realty/atrium/internal/shared"
)

// ErrDuplicateSubmission indicates a submit replay: the same form token was
// already processed or is in flight. Callers treat it as a no-op, not a
// failure.
var ErrDuplicateSubmission = errors.New("requests: submission already processed")

// idempotencyModule namespaces intake tokens in the shared key store.
const idempotencyModule = "requests"

// IdempotencyPort guards against replayed submission tokens.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Notifier is told about request lifecycle events so staff can be alerted.
// The notifications module provides the implementation.
type Notifier interface {
	RequestReceived(ctx context.Context, req Request)
	RequestAssigned(ctx context.Context, assigneeID, requestID int64)
}

// AuditPort records staff actions on requests.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles intake submission and staff workflow.
type Service struct {
	repo     RepositoryPort
	idem     IdempotencyPort
	notifier Notifier
	audit    AuditPort
	logger   *slog.Logger
	inflight singleflight.Group
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, idem IdempotencyPort, notifier Notifier, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, idem: idem, notifier: notifier, audit: audit, logger: logger}
}

// Submit validates and persists an intake form. It is not re-entrant per
// token: a second submit while one is in flight joins the first via
// singleflight, and a replay after completion hits the idempotency store.
func (s *Service) Submit(ctx context.Context, token string, form *Form) (Request, error) {
	if token == "" {
		return Request{}, errors.New("requests: submission token required")
	}
	if verr := form.Validate(); verr != nil {
		return Request{}, verr
	}

	result, err, joined := s.inflight.Do(token, func() (any, error) {
		return s.submit(ctx, token, form)
	})
	if err != nil {
		return Request{}, err
	}
	if joined {
		// A concurrent duplicate rode along on the original submit.
		return result.(Request), ErrDuplicateSubmission
	}
	return result.(Request), nil
}

func (s *Service) submit(ctx context.Context, token string, form *Form) (Request, error) {
	if err := s.idem.CheckAndInsert(ctx, token, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return Request{}, ErrDuplicateSubmission
		}
		return Request{}, err
	}

	values := form.Values()
	req := Request{
		Token:         token,
		Service:       values[FieldService],
		PropertyUsage: values[FieldPropertyUsage],
		PropertyType:  values[FieldPropertyType],
		FacilityName:  values[FieldFacilityName],
		ActivityType:  values[FieldActivityType],
		Name:          values[FieldName],
		Phone:         values[FieldPhone],
		Email:         values[FieldEmail],
		ContactMethod: values[FieldContactMethod],
		City:          values[FieldCity],
		Notes:         values[FieldNotes],
	}
	stored, err := s.repo.Insert(ctx, req)
	if err != nil {
		// Release the token so the visitor can retry after a transient failure.
		if delErr := s.idem.Delete(ctx, token); delErr != nil && s.logger != nil {
			s.logger.Warn("release submission token", slog.Any("error", delErr))
		}
		return Request{}, err
	}
	if s.notifier != nil {
		s.notifier.RequestReceived(ctx, stored)
	}
	return stored, nil
}

// Get fetches a single request for the staff detail view.
func (s *Service) Get(ctx context.Context, id int64) (Request, error) {
	return s.repo.Get(ctx, id)
}

// List returns requests for the staff dashboard.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Request, int, error) {
	return s.repo.List(ctx, filters)
}

// Assign hands a request to a staff member and records the action.
func (s *Service) Assign(ctx context.Context, actorID, requestID, assigneeID int64) error {
	if err := s.repo.Assign(ctx, requestID, assigneeID); err != nil {
		return err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   shared.AuditRequestAssigned,
			Entity:   "property_request",
			EntityID: strconv.FormatInt(requestID, 10),
			Meta:     map[string]any{"assignee_id": assigneeID},
		}); err != nil && s.logger != nil {
			s.logger.Warn("audit request assignment", slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		s.notifier.RequestAssigned(ctx, assigneeID, requestID)
	}
	return nil
}

// UpdateStatus transitions a request's workflow status.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) error {
	switch status {
	case StatusNew, StatusInProgress, StatusClosed:
	default:
		return fmt.Errorf("requests: unknown status %q", status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
