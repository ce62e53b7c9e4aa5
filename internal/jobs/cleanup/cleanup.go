package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
)

const defaultRetention = 24 * time.Hour

type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]mediasvc.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type ReferenceChecker interface {
	ReferencedKeys(ctx context.Context, keys []string) (map[string]struct{}, error)
}

// Report summarizes one sweep.
type Report struct {
	Scanned int
	Deleted int
	Failed  int
}

// Job removes blobs that no row references anymore. Objects younger than
// the retention window are left alone so uploads whose row is not yet
// committed survive.
type Job struct {
	storage   ObjectStore
	refs      ReferenceChecker
	prefixes  []string
	retention time.Duration
	dryRun    bool
	now       func() time.Time
	logger    *zap.Logger
}

func NewOrphanSweepJob(storage ObjectStore, refs ReferenceChecker, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = defaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		storage:   storage,
		refs:      refs,
		prefixes:  mediasvc.ManagedPrefixes(),
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// DryRun makes Run report orphans without deleting them.
func (j *Job) DryRun(enabled bool) {
	j.dryRun = enabled
}

func (j *Job) Run(ctx context.Context) (Report, error) {
	var report Report
	if j.storage == nil || j.refs == nil {
		return report, nil
	}

	cutoff := j.now().Add(-j.retention)
	for _, prefix := range j.prefixes {
		objects, err := j.storage.List(ctx, prefix)
		if err != nil {
			return report, fmt.Errorf("list objects under %s: %w", prefix, err)
		}

		candidates := make([]string, 0, len(objects))
		for _, obj := range objects {
			report.Scanned++
			if obj.LastModified.After(cutoff) {
				continue
			}
			candidates = append(candidates, obj.Key)
		}
		if len(candidates) == 0 {
			continue
		}

		referenced, err := j.refs.ReferencedKeys(ctx, candidates)
		if err != nil {
			return report, fmt.Errorf("resolve referenced keys: %w", err)
		}

		for _, key := range candidates {
			if _, ok := referenced[key]; ok {
				continue
			}
			if j.dryRun {
				j.logger.Info("orphan blob found", zap.String("object_key", key))
				report.Deleted++
				continue
			}
			if err := j.storage.Delete(ctx, key); err != nil {
				j.logger.Warn("failed to delete orphan blob", zap.Error(err), zap.String("object_key", key))
				report.Failed++
				continue
			}
			report.Deleted++
		}
	}

	j.logger.Info("orphan sweep completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", j.dryRun),
	)
	return report, nil
}
