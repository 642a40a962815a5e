// Package postcommit drives the fixed-order effect dispatch named in
// spec.md section 4.H: file cache refresh, plugin cache invalidation,
// commit-stream emission, active-version cache update -- in that order,
// on every dispatch; a step with no work pending returns without
// touching its cache.
// Failures are retried a bounded number of times with exponential
// backoff; exhaustion surfaces a diagnostic ExecutorError without
// rolling back the commit that already landed.
package postcommit

import (
	"context"
	"time"

	"github.com/anthropics/lix/internal/errs"
	"github.com/anthropics/lix/internal/model"
)

// Caches is the narrow surface the dispatcher needs from the engine's
// in-memory caches; a real engine wires its file/plugin/version caches
// in here, tests wire a recording double.
type Caches interface {
	RefreshFileCache(ctx context.Context, targets []model.FileCacheTarget) error
	InvalidateInstalledPlugins(ctx context.Context) error
	EmitCommitStream(ctx context.Context, changes []model.StateCommitStreamChange) error
	SetActiveVersion(ctx context.Context, versionID string) error
}

const (
	maxAttempts  = 3
	baseBackoff  = 10 * time.Millisecond
)

// effect names a dispatch step for diagnostics and for the watermark
// table reconcile reads and writes.
type effect struct {
	id  string
	run func(context.Context) error
}

// Dispatch runs the four effects in fixed order. The first exhausted
// effect stops the sweep and is returned as an ExecutorError; effects
// before it have already applied and are not undone.
func Dispatch(ctx context.Context, c Caches, req model.PlanRequirements, eff model.PlanEffects) *errs.ExecutorError {
	steps := []effect{
		{
			id: "file_cache_refresh",
			run: func(ctx context.Context) error {
				if !req.ShouldRefreshFileCache {
					return nil
				}
				return c.RefreshFileCache(ctx, eff.FileCacheRefreshTargets)
			},
		},
		{
			id: "plugin_cache_invalidate",
			run: func(ctx context.Context) error {
				if !req.ShouldInvalidateInstalledPluginsCache {
					return nil
				}
				return c.InvalidateInstalledPlugins(ctx)
			},
		},
		{
			id: "commit_stream_emit",
			run: func(ctx context.Context) error {
				if len(eff.StateCommitStreamChanges) == 0 {
					return nil
				}
				return c.EmitCommitStream(ctx, eff.StateCommitStreamChanges)
			},
		},
		{
			id: "active_version_update",
			run: func(ctx context.Context) error {
				if !eff.HasNextActiveVersionID {
					return nil
				}
				return c.SetActiveVersion(ctx, eff.NextActiveVersionID)
			},
		},
	}

	for _, s := range steps {
		if err := runWithRetry(ctx, s.run); err != nil {
			return errs.NewPostCommitError(s.id, maxAttempts, err)
		}
	}
	return nil
}

func runWithRetry(ctx context.Context, run func(context.Context) error) error {
	var lastErr error
	backoff := baseBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = run(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return lastErr
}
