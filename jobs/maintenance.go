package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atrium-realty/atrium/internal/shared"
)

const (
	// TaskMaintenanceCleanup prunes consumed intake tokens.
	TaskMaintenanceCleanup = "maintenance:cleanup"

	// idempotencyRetention keeps tokens long enough to swallow very late
	// replays without growing the table forever.
	idempotencyRetention = 7 * 24 * time.Hour
)

// MaintenanceCleanupPayload carries scheduling metadata.
type MaintenanceCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewMaintenanceCleanupTask constructs the nightly cleanup task.
func NewMaintenanceCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(MaintenanceCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaintenanceCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewMaintenanceCleanupHandler builds the handler with its dependencies
// bound.
func NewMaintenanceCleanupHandler(idem *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MaintenanceCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := idem.Cleanup(ctx, idempotencyRetention); err != nil {
			return err
		}
		logger.Info("idempotency cleanup done")
		return nil
	}
}
