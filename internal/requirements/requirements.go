// Package requirements derives PlanRequirements and PlanEffects from a
// set of rewritten statements and their collected mutations, per spec.md
// section 4.E.
package requirements

import (
	"sort"
	"strings"

	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/sqltext"
)

// filePluginSchemaKeys names the schema_keys this repository treats as
// file-producing plugins, for should_refresh_file_cache derivation. A
// real deployment would read this from the plugin registry; tests pin a
// fixed set through Derive's filePluginSchemaKeys argument (nil selects
// this default).
//
// lix_file/lix_directory are the fixed schema_keys the filesystem
// surface's rewrite rule stamps onto file/directory entities
// (internal/rewrite/filesystem.go); they belong here for the same
// reason a plugin's schema_key does, since by the time Derive sees the
// rewritten statements the filesystem surface's own table name no
// longer carries a lix_file/lix_directory prefix to key off of.
var defaultFilePluginSchemaKeys = map[string]bool{
	"lix_plugin_text_lines": true,
	"lix_plugin_json_v2":    true,
	"lix_file":              true,
	"lix_directory":         true,
}

// pluginInstallationSchemaKey is the schema_key writes to which flag the
// installed-plugins cache for invalidation.
const pluginInstallationSchemaKey = "lix_installed_plugin"

// Derive computes PlanRequirements and PlanEffects for one execute call
// from its final rewritten statements and every MutationRow detected
// along the way.
func Derive(statements []*parser.Statement, mutations []model.MutationRow, filePluginSchemaKeys map[string]bool) (model.PlanRequirements, model.PlanEffects) {
	if filePluginSchemaKeys == nil {
		filePluginSchemaKeys = defaultFilePluginSchemaKeys
	}

	req := model.PlanRequirements{ReadOnlyQuery: allQueries(statements)}

	fileTargets := map[model.FileCacheTarget]bool{}
	invalidatePlugins := false
	for _, stmt := range statements {
		if stmt.Kind == parser.KindSelect {
			continue
		}
		if isFilesystemSurface(stmt.Table) {
			req.ShouldRefreshFileCache = true
		}
		if stmt.Table == pluginInstallationSchemaKey {
			invalidatePlugins = true
		}
	}
	for _, m := range mutations {
		if filePluginSchemaKeys[m.SchemaKey] {
			req.ShouldRefreshFileCache = true
			fileTargets[model.FileCacheTarget{VersionID: m.VersionID, FileID: m.FileID}] = true
		}
		if m.SchemaKey == pluginInstallationSchemaKey {
			invalidatePlugins = true
		}
	}
	req.ShouldInvalidateInstalledPluginsCache = invalidatePlugins

	effects := model.PlanEffects{
		StateCommitStreamChanges: commitStreamChanges(mutations),
	}
	for t := range fileTargets {
		effects.FileCacheRefreshTargets = append(effects.FileCacheRefreshTargets, t)
	}
	sort.Slice(effects.FileCacheRefreshTargets, func(i, j int) bool {
		a, b := effects.FileCacheRefreshTargets[i], effects.FileCacheRefreshTargets[j]
		if a.VersionID != b.VersionID {
			return a.VersionID < b.VersionID
		}
		return a.FileID < b.FileID
	})

	for _, stmt := range statements {
		if stmt.Table == "lix_active_version" && stmt.Kind != parser.KindSelect {
			if id, ok := activeVersionIDFrom(stmt); ok {
				effects.NextActiveVersionID = id
				effects.HasNextActiveVersionID = true
			}
		}
	}

	return req, effects
}

func allQueries(statements []*parser.Statement) bool {
	for _, s := range statements {
		if !isQuery(s) {
			return false
		}
	}
	return true
}

// isQuery reports whether a statement only reads. Structurally modeled
// SELECTs are always queries; an expression-only SELECT with no FROM
// clause (e.g. "SELECT 1 + 1") falls through the parser as KindOther
// passthrough, so it is recognized here by its raw leading keyword --
// other KindOther passthroughs (CREATE, INSERT-shaped PRAGMA, etc.) are
// not assumed read-only.
func isQuery(s *parser.Statement) bool {
	if s.Kind == parser.KindSelect {
		return true
	}
	if s.Kind != parser.KindOther {
		return false
	}
	trimmed := strings.TrimSpace(s.Raw)
	return hasCaseInsensitivePrefix(trimmed, "select") || hasCaseInsensitivePrefix(trimmed, "explain")
}

func hasCaseInsensitivePrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

func isFilesystemSurface(table string) bool {
	return strings.HasPrefix(table, "lix_file") || strings.HasPrefix(table, "lix_directory")
}

// commitStreamChanges derives StateCommitStreamChanges from MutationRows,
// ordered by (version_id, schema_key, entity_id) per spec.md section 4.E.
func commitStreamChanges(mutations []model.MutationRow) []model.StateCommitStreamChange {
	changes := make([]model.StateCommitStreamChange, 0, len(mutations))
	ts := sqltext.Timestamp()
	for _, m := range mutations {
		changes = append(changes, model.StateCommitStreamChange{
			ChangeID:  m.EntityID + "/" + m.SchemaKey + "/" + m.VersionID, // stable per-mutation identity for dedup/logging
			SchemaKey: m.SchemaKey,
			FileID:    m.FileID,
			VersionID: m.VersionID,
			EntityID:  m.EntityID,
			Op:        m.Op,
			CreatedAt: ts,
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if a.VersionID != b.VersionID {
			return a.VersionID < b.VersionID
		}
		if a.SchemaKey != b.SchemaKey {
			return a.SchemaKey < b.SchemaKey
		}
		return a.EntityID < b.EntityID
	})
	return changes
}

// activeVersionIDFrom extracts the version id an active_version write
// sets, from either an UPDATE's assignment or an INSERT's column list.
func activeVersionIDFrom(stmt *parser.Statement) (string, bool) {
	for _, a := range stmt.Assignments {
		if a.Column == "version_id" && a.Value != nil && a.Value.Op == "literal" {
			return a.Value.Literal.T, true
		}
	}
	for i, c := range stmt.InsertColumns {
		if c == "version_id" && i < len(stmt.InsertValues) && stmt.InsertValues[i].Op == "literal" {
			return stmt.InsertValues[i].Literal.T, true
		}
	}
	return "", false
}
