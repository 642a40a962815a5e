// Package textlines is the built-in in-process double for the
// "text lines" file-format plugin named in spec.md section 8: it treats
// a file's bytes as a sequence of newline-terminated lines, each line an
// entity addressed by its positional index, and is exercised directly by
// tests in place of loading a compiled WASM module.
package textlines

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/lix/internal/plugin"
)

const (
	// SchemaKey identifies entities this plugin produces.
	SchemaKey     = "lix_plugin_text_lines"
	SchemaVersion = "1"
)

// Plugin implements plugin.Instance over newline-delimited text.
type Plugin struct{}

// New returns the text-lines plugin instance.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Key() string { return SchemaKey }

// DetectChanges diffs before (nil means "no prior file") against after
// line by line. Every line whose content differs from its counterpart
// in before (or that has no counterpart) becomes an upsert; every line
// present in before beyond after's length becomes a tombstone.
func (p *Plugin) DetectChanges(before *plugin.File, after plugin.File) ([]plugin.EntityChange, error) {
	afterLines := splitLines(after.Data)
	var beforeLines []string
	if before != nil {
		beforeLines = splitLines(before.Data)
	}

	var changes []plugin.EntityChange
	for i, line := range afterLines {
		if i >= len(beforeLines) || beforeLines[i] != line {
			changes = append(changes, plugin.EntityChange{
				EntityID:        lineEntityID(i),
				SchemaKey:       SchemaKey,
				SchemaVersion:   SchemaVersion,
				SnapshotContent: line,
				HasSnapshot:     true,
			})
		}
	}
	for i := len(afterLines); i < len(beforeLines); i++ {
		changes = append(changes, plugin.EntityChange{
			EntityID:      lineEntityID(i),
			SchemaKey:     SchemaKey,
			SchemaVersion: SchemaVersion,
			HasSnapshot:   false,
		})
	}
	return changes, nil
}

// ApplyChanges folds changes onto seed's existing lines (by index) and
// concatenates the result back into bytes, in index order. A tombstoned
// index is simply omitted; indexes are never renumbered.
func (p *Plugin) ApplyChanges(seed plugin.File, changes []plugin.EntityChange) ([]byte, error) {
	lines := map[int]string{}
	for i, line := range splitLines(seed.Data) {
		lines[i] = line
	}

	maxIndex := -1
	for i := range lines {
		if i > maxIndex {
			maxIndex = i
		}
	}

	for _, c := range changes {
		if c.SchemaKey != SchemaKey {
			continue
		}
		idx, err := lineIndex(c.EntityID)
		if err != nil {
			return nil, fmt.Errorf("textlines: %w", err)
		}
		if !c.HasSnapshot {
			delete(lines, idx)
			continue
		}
		lines[idx] = c.SnapshotContent
		if idx > maxIndex {
			maxIndex = idx
		}
	}

	var b strings.Builder
	for i := 0; i <= maxIndex; i++ {
		if line, ok := lines[i]; ok {
			b.WriteString(line)
		}
	}
	return []byte(b.String()), nil
}

func lineEntityID(i int) string {
	return "line-" + strconv.Itoa(i)
}

func lineIndex(entityID string) (int, error) {
	rest := strings.TrimPrefix(entityID, "line-")
	if rest == entityID {
		return 0, fmt.Errorf("malformed line entity id %q", entityID)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("malformed line entity id %q: %w", entityID, err)
	}
	return n, nil
}

// splitLines splits data into lines, each retaining its own terminator
// ("\n" or "\r\n"); a final unterminated fragment is its own line. An
// empty input yields zero lines.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
