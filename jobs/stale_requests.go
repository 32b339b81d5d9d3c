package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atrium-realty/atrium/internal/authz"
	"github.com/atrium-realty/atrium/internal/notifications"
	"github.com/atrium-realty/atrium/internal/requests"
)

const (
	// TaskRequestsStaleScan nags managers about untouched service requests.
	TaskRequestsStaleScan = "requests:stale_scan"

	// defaultStaleAfter is how long a request may sit in "new" before the
	// reminder fires.
	defaultStaleAfter = 48 * time.Hour
)

// StaleScanPayload carries the staleness threshold.
type StaleScanPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewStaleScanTask constructs the periodic scan task.
func NewStaleScanTask(olderThan time.Duration) (*asynq.Task, error) {
	if olderThan <= 0 {
		olderThan = defaultStaleAfter
	}
	body, err := json.Marshal(StaleScanPayload{OlderThanHours: int(olderThan.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRequestsStaleScan, body, asynq.Queue(QueueDefault)), nil
}

// StaleRequestLister is the slice of the requests repository the scan
// needs.
type StaleRequestLister interface {
	ListStaleNew(ctx context.Context, olderThan time.Duration) ([]requests.Request, error)
}

// NewStaleScanHandler builds the handler with its dependencies bound.
func NewStaleScanHandler(repo StaleRequestLister, alerts *notifications.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StaleScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		olderThan := time.Duration(payload.OlderThanHours) * time.Hour
		if olderThan <= 0 {
			olderThan = defaultStaleAfter
		}

		stale, err := repo.ListStaleNew(ctx, olderThan)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		alerts.NotifyRoles(ctx, []authz.Role{authz.RoleSuperAdmin, authz.RoleAdmin, authz.RoleManager},
			notifications.Notification{
				Kind:  notifications.KindRequestReceived,
				Title: "Requests awaiting triage",
				Body:  fmt.Sprintf("%d service requests have been waiting for more than %d hours.", len(stale), payload.OlderThanHours),
				Link:  "/dashboard/requests?status=new",
			})
		logger.Info("stale request reminder sent", slog.Int("count", len(stale)))
		return nil
	}
}
