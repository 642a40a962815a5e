package postcommit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
)

func openTestBackend(t *testing.T) *backend.SqliteBackend {
	t.Helper()
	b, err := backend.OpenSqlite(filepath.Join(t.TempDir(), "lix.db"))
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	ctx := context.Background()
	if err := EnsureWatermarkTable(ctx, b); err != nil {
		t.Fatalf("EnsureWatermarkTable: %v", err)
	}
	if _, err := b.Execute(ctx, CreateCommitStreamTableSQL, nil); err != nil {
		t.Fatalf("create commit stream table: %v", err)
	}
	return b
}

func TestAppendCommitStreamThenLastChangeID(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	changes := []model.StateCommitStreamChange{
		{ChangeID: "c1", SchemaKey: "k1", FileID: "f1", VersionID: "v1", EntityID: "e1", Op: model.OpInsert, CreatedAt: "t1"},
		{ChangeID: "c2", SchemaKey: "k1", FileID: "f1", VersionID: "v1", EntityID: "e2", Op: model.OpInsert, CreatedAt: "t2"},
	}
	last, err := AppendCommitStream(ctx, b, changes)
	if err != nil {
		t.Fatalf("AppendCommitStream: %v", err)
	}
	if last != "c2" {
		t.Errorf("AppendCommitStream returned %q, want c2", last)
	}

	got, err := LastChangeID(ctx, b)
	if err != nil {
		t.Fatalf("LastChangeID: %v", err)
	}
	if got != "c2" {
		t.Errorf("LastChangeID() = %q, want c2", got)
	}
}

func TestLastChangeIDEmptyStream(t *testing.T) {
	b := openTestBackend(t)
	got, err := LastChangeID(context.Background(), b)
	if err != nil {
		t.Fatalf("LastChangeID: %v", err)
	}
	if got != "" {
		t.Errorf("LastChangeID() on empty stream = %q, want empty", got)
	}
}

func TestRecordWatermarkThenRead(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	if err := RecordWatermark(ctx, b, "commit_stream_emit", "c5"); err != nil {
		t.Fatalf("RecordWatermark: %v", err)
	}
	got, err := Watermark(ctx, b, "commit_stream_emit")
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if got != "c5" {
		t.Errorf("Watermark() = %q, want c5", got)
	}

	if err := RecordWatermark(ctx, b, "commit_stream_emit", "c6"); err != nil {
		t.Fatalf("RecordWatermark (update): %v", err)
	}
	got, err = Watermark(ctx, b, "commit_stream_emit")
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if got != "c6" {
		t.Errorf("Watermark() after re-record = %q, want c6 (upsert)", got)
	}
}

func TestWatermarkMissingEffectReturnsEmpty(t *testing.T) {
	b := openTestBackend(t)
	got, err := Watermark(context.Background(), b, "never_recorded")
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if got != "" {
		t.Errorf("Watermark() for an unrecorded effect = %q, want empty", got)
	}
}

func TestReconcileNoPendingWorkWhenNoCommitsYet(t *testing.T) {
	b := openTestBackend(t)
	pending, err := Reconcile(context.Background(), b, "")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Reconcile with no commit-stream history = %v, want none pending", pending)
	}
}

func TestReconcileReportsEveryEffectPendingWhenNoWatermarksRecorded(t *testing.T) {
	b := openTestBackend(t)
	pending, err := Reconcile(context.Background(), b, "c1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(pending) != 4 {
		t.Errorf("Reconcile() = %v, want all 4 effects pending with no watermarks recorded", pending)
	}
}

func TestReconcileOmitsEffectsCaughtUpToLastChangeID(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	for _, id := range []string{"file_cache_refresh", "plugin_cache_invalidate", "commit_stream_emit", "active_version_update"} {
		if err := RecordWatermark(ctx, b, id, "c1"); err != nil {
			t.Fatalf("RecordWatermark(%s): %v", id, err)
		}
	}

	pending, err := Reconcile(ctx, b, "c1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Reconcile() = %v, want none pending once every watermark matches lastChangeID", pending)
	}

	pending, err = Reconcile(ctx, b, "c2")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(pending) != 4 {
		t.Errorf("Reconcile() with a newer lastChangeID = %v, want all 4 effects behind", pending)
	}
}
