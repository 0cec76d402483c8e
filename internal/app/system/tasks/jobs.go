// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/fie-storage/fiestorage/internal/app/store/activity"
	"go.uber.org/zap"
)

// ActivityPruneJob creates a job that deletes activity events older than
// the retention window. A zero retention disables pruning; callers should
// not register the job in that case.
func ActivityPruneJob(store *activity.Store, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "activity-prune",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().Add(-retention)
			deleted, err := store.Prune(ctx, cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("pruned old activity events",
					zap.Int64("deleted", deleted),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}
