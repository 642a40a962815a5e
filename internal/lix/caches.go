package lix

import (
	"context"
	"sync"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/postcommit"
	"github.com/anthropics/lix/internal/value"
)

// engineCaches is the default postcommit.Caches backing a lix.Engine:
// the file and installed-plugins caches are in-memory (single-cell per
// spec.md section 5), the commit stream is durable on the backend, and
// active-version writes go straight to lix_active_version.
type engineCaches struct {
	b backend.Backend

	mu                sync.Mutex
	freshFileTargets  map[model.FileCacheTarget]bool
	installedPlugins  bool // true once (re-)loaded since the last invalidation
}

func newEngineCaches(b backend.Backend) *engineCaches {
	return &engineCaches{b: b, freshFileTargets: map[model.FileCacheTarget]bool{}}
}

func (c *engineCaches) RefreshFileCache(ctx context.Context, targets []model.FileCacheTarget) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		c.freshFileTargets[t] = true
	}
	return nil
}

func (c *engineCaches) InvalidateInstalledPlugins(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.installedPlugins = false
	return nil
}

func (c *engineCaches) EmitCommitStream(ctx context.Context, changes []model.StateCommitStreamChange) error {
	_, err := postcommit.AppendCommitStream(ctx, c.b, changes)
	return err
}

func (c *engineCaches) SetActiveVersion(ctx context.Context, versionID string) error {
	_, err := c.b.Execute(ctx, `UPDATE lix_active_version SET version_id = ? WHERE id = 1`,
		[]value.Value{value.Text(versionID)})
	return err
}
