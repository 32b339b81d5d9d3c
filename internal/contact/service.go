package contact

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// Notifier is told about new messages so staff can be alerted.
type Notifier interface {
	ContactReceived(ctx context.Context, name, subject string, messageID int64)
}

// Service handles contact message logic.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, validate: validator.New()}
}

// Submit validates and stores a public message.
func (s *Service) Submit(ctx context.Context, input Input) (Message, error) {
	if err := s.validate.Struct(input); err != nil {
		return Message{}, err
	}
	m, err := s.repo.Insert(ctx, Message{
		Name:    input.Name,
		Phone:   input.Phone,
		Email:   input.Email,
		Subject: input.Subject,
		Body:    input.Body,
	})
	if err != nil {
		return Message{}, err
	}
	if s.notifier != nil {
		s.notifier.ContactReceived(ctx, m.Name, m.Subject, m.ID)
	}
	return m, nil
}

// Get fetches one message.
func (s *Service) Get(ctx context.Context, id int64) (Message, error) {
	return s.repo.Get(ctx, id)
}

// List returns the staff inbox page.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Message, int, error) {
	return s.repo.List(ctx, filters)
}

// MarkHandled stamps a message.
func (s *Service) MarkHandled(ctx context.Context, id, staffID int64) error {
	return s.repo.MarkHandled(ctx, id, staffID)
}
