package postcommit

import (
	"fmt"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"

	"context"
)

// CommitStreamTable physically backs the state_commit_stream surface's
// outward feed: every StateCommitStreamChange a dispatch emits is
// appended here, which is also what Reconcile compares effect
// watermarks against on the next open.
const CommitStreamTable = "lix_commit_stream"

const CreateCommitStreamTableSQL = `CREATE TABLE IF NOT EXISTS ` + CommitStreamTable + ` (
	ordinal INTEGER PRIMARY KEY AUTOINCREMENT,
	change_id TEXT NOT NULL,
	schema_key TEXT NOT NULL,
	file_id TEXT NOT NULL,
	version_id TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	op TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// AppendCommitStream persists changes in order, returning the change_id
// of the last row appended (the empty string if changes is empty).
func AppendCommitStream(ctx context.Context, b backend.Backend, changes []model.StateCommitStreamChange) (string, error) {
	if len(changes) == 0 {
		return "", nil
	}
	sql := fmt.Sprintf(`INSERT INTO %s (change_id, schema_key, file_id, version_id, entity_id, op, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sqltext.QuoteIdent(CommitStreamTable))
	var last string
	for _, c := range changes {
		if _, err := b.Execute(ctx, sql, []value.Value{
			value.Text(c.ChangeID),
			value.Text(c.SchemaKey),
			value.Text(c.FileID),
			value.Text(c.VersionID),
			value.Text(c.EntityID),
			value.Text(c.Op.String()),
			value.Text(c.CreatedAt),
		}); err != nil {
			return "", err
		}
		last = c.ChangeID
	}
	return last, nil
}

// LastChangeID reports the most recently appended change_id, "" if the
// stream is empty.
func LastChangeID(ctx context.Context, b backend.Backend) (string, error) {
	sql := fmt.Sprintf(`SELECT change_id FROM %s ORDER BY ordinal DESC LIMIT 1`, sqltext.QuoteIdent(CommitStreamTable))
	res, err := b.Execute(ctx, sql, nil)
	if err != nil {
		return "", err
	}
	if len(res.Rows) == 0 {
		return "", nil
	}
	return res.Rows[0][0].T, nil
}
