package postcommit

import (
	"context"
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// WatermarkTableName is the table backing the reconciliation design
// resolved for spec.md section 9's open question: rather than a
// dedicated pending-effects queue, each effect kind records the last
// commit-stream change_id it successfully applied. A crash between
// commit and dispatch leaves the commit durable and the watermark
// stale; Reconcile reports such stale effects. Nothing in this package
// replays the commit-stream rows newer than a stale watermark.
const WatermarkTableName = "lix_effect_watermark"

// CreateWatermarkTableSQL is idempotent.
const CreateWatermarkTableSQL = `CREATE TABLE IF NOT EXISTS ` + WatermarkTableName + ` (
	effect_id TEXT PRIMARY KEY,
	last_applied_change_id TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// EffectIDs lists every dispatch step, in Dispatch's fixed order, for
// which a watermark row is tracked.
var EffectIDs = []string{
	"file_cache_refresh",
	"plugin_cache_invalidate",
	"commit_stream_emit",
	"active_version_update",
}

// EnsureWatermarkTable creates the reconciliation table if it is missing.
func EnsureWatermarkTable(ctx context.Context, b backend.Backend) error {
	_, err := b.Execute(ctx, CreateWatermarkTableSQL, nil)
	return err
}

// RecordWatermark advances effectID's watermark to changeID after a
// successful dispatch step that touched the commit stream up to and
// including that change.
func RecordWatermark(ctx context.Context, b backend.Backend, effectID, changeID string) error {
	sql := fmt.Sprintf(`INSERT INTO %s (effect_id, last_applied_change_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(effect_id) DO UPDATE SET last_applied_change_id = excluded.last_applied_change_id, updated_at = excluded.updated_at`,
		sqltext.QuoteIdent(WatermarkTableName))
	_, err := b.Execute(ctx, sql, []value.Value{
		value.Text(effectID),
		value.Text(changeID),
		value.Text(sqltext.Timestamp()),
	})
	return err
}

// Watermark reads effectID's last applied change_id, "" if no row exists
// yet (a never-dispatched effect).
func Watermark(ctx context.Context, b backend.Backend, effectID string) (string, error) {
	sql := fmt.Sprintf(`SELECT last_applied_change_id FROM %s WHERE effect_id = ?`, sqltext.QuoteIdent(WatermarkTableName))
	res, err := b.Execute(ctx, sql, []value.Value{value.Text(effectID)})
	if err != nil {
		return "", err
	}
	if len(res.Rows) == 0 {
		return "", nil
	}
	return res.Rows[0][0].T, nil
}

// Reconcile compares each effect's watermark against the latest
// commit-stream change_id lastChangeID observed at startup. An effect
// whose watermark is behind (or missing) has pending carry-over work;
// Reconcile reports which effect ids need a redrive so the caller can
// replay PlanEffects derived from the commit-stream rows newer than the
// stale watermark, in Dispatch's fixed order.
func Reconcile(ctx context.Context, b backend.Backend, lastChangeID string) ([]string, error) {
	if lastChangeID == "" {
		return nil, nil
	}
	var pending []string
	for _, id := range EffectIDs {
		wm, err := Watermark(ctx, b, id)
		if err != nil {
			return nil, err
		}
		if wm != lastChangeID {
			pending = append(pending, id)
		}
	}
	return pending, nil
}
