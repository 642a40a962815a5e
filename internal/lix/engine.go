// Package lix is the top-level engine: open_lix/OpenLixConfig, and the
// single execute(sql, params) entry point wiring parser -> planner ->
// plancache -> executor -> postcommit, serialized per session per
// spec.md section 5.
package lix

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/bootstrap"
	"github.com/anthropics/lix/internal/errs"
	"github.com/anthropics/lix/internal/executor"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/plancache"
	"github.com/anthropics/lix/internal/planner"
	"github.com/anthropics/lix/internal/postcommit"
	"github.com/anthropics/lix/internal/value"
)

// OpenLixConfig configures one Engine. Backend is required; PlanCacheSize
// is the plan cache's capacity (plancache.New's default if <= 0).
type OpenLixConfig struct {
	Backend      backend.Backend
	PlanCacheSize int
}

// Engine is the single synchronous-looking entry point a caller drives:
// every call to Execute runs to completion (commit and post-commit
// effects included) or returns a diagnostic error; there is no
// background work left in flight across calls.
type Engine struct {
	b      backend.Backend
	cache  *plancache.Cache
	boot   *bootstrap.Sequencer
	caches *engineCaches

	// mu enforces spec.md section 5's session-level serialization: one
	// logical session drives at most one execute call at a time.
	mu sync.Mutex
}

// OpenLix runs the bootstrap sequence against cfg.Backend and returns a
// ready Engine, after a reconcile pass over the effect watermarks (see
// reconcile).
func OpenLix(ctx context.Context, cfg OpenLixConfig) (*Engine, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("lix: OpenLixConfig.Backend is required")
	}

	e := &Engine{
		b:      cfg.Backend,
		cache:  plancache.New(cfg.PlanCacheSize),
		boot:   &bootstrap.Sequencer{},
		caches: newEngineCaches(cfg.Backend),
	}

	if err := e.boot.RunAgainst(ctx, e.b); err != nil {
		return nil, fmt.Errorf("lix: bootstrap: %w", err)
	}
	if err := postcommit.EnsureWatermarkTable(ctx, e.b); err != nil {
		return nil, fmt.Errorf("lix: bootstrap watermark table: %w", err)
	}
	if _, err := e.b.Execute(ctx, postcommit.CreateCommitStreamTableSQL, nil); err != nil {
		return nil, fmt.Errorf("lix: bootstrap commit stream table: %w", err)
	}

	if err := e.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("lix: reconcile: %w", err)
	}

	return e, nil
}

// reconcile finds the effects whose watermark is behind the current
// commit-stream tail (postcommit.Reconcile) and advances each of those
// watermarks to the tail. It does not re-run any effect: work a prior
// process left undispatched is not replayed. It runs only from OpenLix.
func (e *Engine) reconcile(ctx context.Context) error {
	lastChangeID, err := postcommit.LastChangeID(ctx, e.b)
	if err != nil {
		return err
	}
	pending, err := postcommit.Reconcile(ctx, e.b, lastChangeID)
	if err != nil {
		return err
	}
	for _, effectID := range pending {
		if err := postcommit.RecordWatermark(ctx, e.b, effectID, lastChangeID); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the engine's backend.
func (e *Engine) Close() error {
	return e.b.Close()
}

// Execute parses sql as a script of one or more statements, plans,
// executes, and dispatches post-commit effects, returning the rows the
// plan's ResultContract says the last statement produces.
//
// If post-commit dispatch fails after the commit has already landed,
// Execute still returns the committed rows alongside the diagnostic
// error: the data is durable even though a cache/projection refresh did
// not happen. No later Execute call retries the failed effect, and there
// is no background sweep; the effect watermarks are left unadvanced
// until the next OpenLix reconcile, which does not re-run it either.
func (e *Engine) Execute(ctx context.Context, sql string, params []value.Value) (value.QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.boot.IsLatched() {
		return value.QueryResult{}, errs.NewLixError("NOT_READY", "engine not ready", "bootstrap sequence still in flight")
	}

	topLevel, err := parser.ParseScript(sql)
	if err != nil {
		pe := errs.WrapPlannerError(errs.PlannerParse, err)
		return value.QueryResult{}, pe.AsLixError()
	}

	plan, err := planner.Plan(ctx, e.b, topLevel, params)
	if err != nil {
		if pe, ok := err.(*errs.PlannerError); ok {
			return value.QueryResult{}, pe.AsLixError()
		}
		return value.QueryResult{}, errs.Wrap("plan", err)
	}

	if cached, ok := e.cache.Get(plan.Fingerprint); ok {
		plan = cached
	} else {
		e.cache.Put(plan)
	}

	result, execErr := executor.Run(ctx, e.b, plan)
	if execErr != nil {
		return value.QueryResult{}, execErr
	}

	if pcErr := postcommit.Dispatch(ctx, e.caches, plan.Requirements, result.Effects); pcErr != nil {
		return result.Rows, pcErr
	}

	if err := e.recordWatermarks(ctx); err != nil {
		return result.Rows, err
	}

	return result.Rows, nil
}

// recordWatermarks advances every effect's watermark to the current
// commit-stream tail after a fully successful dispatch, so a later
// crash-restart's reconcile pass does not mistake already-applied
// effects for carry-over work.
func (e *Engine) recordWatermarks(ctx context.Context) error {
	lastChangeID, err := postcommit.LastChangeID(ctx, e.b)
	if err != nil || lastChangeID == "" {
		return err
	}
	for _, effectID := range postcommit.EffectIDs {
		if err := postcommit.RecordWatermark(ctx, e.b, effectID, lastChangeID); err != nil {
			return err
		}
	}
	return nil
}
