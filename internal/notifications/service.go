package notifications

import (
	"context"
	"log/slog"

	"github.com/atrium-realty/atrium/internal/authz"
)

// Mailer delivers email copies of fan-out notifications. The jobs client
// satisfies it; nil disables email.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// Service handles inbox logic and fan-out.
type Service struct {
	repo   RepositoryPort
	mailer Mailer
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{repo: repo, mailer: mailer, logger: logger}
}

// Notify stores a notification for one user.
func (s *Service) Notify(ctx context.Context, n Notification) (Notification, error) {
	return s.repo.Insert(ctx, n)
}

// NotifyRoles fans a notification out to every active user holding one of
// the roles. Failures on individual rows are logged and skipped so one bad
// recipient does not drop the rest.
func (s *Service) NotifyRoles(ctx context.Context, roles []authz.Role, template Notification) {
	ids, err := s.repo.ActiveUserIDsByRoles(ctx, roles)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("resolve notification recipients", slog.Any("error", err))
		}
		return
	}
	for _, id := range ids {
		n := template
		n.UserID = id
		if _, err := s.repo.Insert(ctx, n); err != nil && s.logger != nil {
			s.logger.Warn("store notification", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
}

// ListForUser returns a user's inbox page.
func (s *Service) ListForUser(ctx context.Context, userID int64, filters ListFilters) ([]Notification, int, error) {
	return s.repo.ListForUser(ctx, userID, filters)
}

// UnreadCount returns the badge count.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead stamps one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead clears the badge.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}
