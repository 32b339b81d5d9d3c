package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/requests"
)

// staffRoles receive operational fan-out alerts.
var staffRoles = []authz.Role{authz.RoleSuperAdmin, authz.RoleAdmin, authz.RoleManager}

// Alerts adapts the notification service to the intake modules' notifier
// ports and mirrors each alert to the office inbox.
type Alerts struct {
	service     *Service
	mailer      Mailer
	officeEmail string
	logger      *slog.Logger
}

// NewAlerts builds the adapter. officeEmail may be empty to disable the
// email mirror.
func NewAlerts(service *Service, mailer Mailer, officeEmail string, logger *slog.Logger) *Alerts {
	return &Alerts{service: service, mailer: mailer, officeEmail: officeEmail, logger: logger}
}

// RequestReceived alerts managers about a new service request.
func (a *Alerts) RequestReceived(ctx context.Context, req requests.Request) {
	title := "New service request"
	body := fmt.Sprintf("%s submitted a %s request for %s property.", req.Name, req.Service, req.PropertyUsage)
	a.service.NotifyRoles(ctx, staffRoles, Notification{
		Kind:  KindRequestReceived,
		Title: title,
		Body:  body,
		Link:  fmt.Sprintf("/dashboard/requests/%d", req.ID),
	})
	a.mirror(ctx, title, body+"\nPhone: "+req.Phone)
}

// ContactReceived alerts managers about a new contact message.
func (a *Alerts) ContactReceived(ctx context.Context, name, subject string, messageID int64) {
	title := "New contact message"
	body := fmt.Sprintf("%s wrote: %s", name, subject)
	a.service.NotifyRoles(ctx, staffRoles, Notification{
		Kind:  KindContactMessage,
		Title: title,
		Body:  body,
		Link:  fmt.Sprintf("/dashboard/contact/%d", messageID),
	})
	a.mirror(ctx, title, body)
}

// RequestAssigned tells the assignee a request landed on their desk.
func (a *Alerts) RequestAssigned(ctx context.Context, assigneeID, requestID int64) {
	if _, err := a.service.Notify(ctx, Notification{
		UserID: assigneeID,
		Kind:   KindRequestAssigned,
		Title:  "Request assigned to you",
		Body:   "A service request was assigned to you.",
		Link:   fmt.Sprintf("/dashboard/requests/%d", requestID),
	}); err != nil && a.logger != nil {
		a.logger.Warn("notify assignee", slog.Any("error", err))
	}
}

func (a *Alerts) mirror(ctx context.Context, subject, body string) {
	if a.mailer == nil || a.officeEmail == "" {
		return
	}
	if err := a.mailer.SendMail(ctx, a.officeEmail, subject, body); err != nil && a.logger != nil {
		a.logger.Warn("mirror alert to office inbox", slog.Any("error", err))
	}
}

var _ requests.Notifier = (*Alerts)(nil)
