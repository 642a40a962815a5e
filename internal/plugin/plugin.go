// Package plugin narrows the WASM plugin ABI described in spec.md
// section 8 to two operations: detecting entity changes in a file's
// bytes, and re-serializing entities back to file bytes. A real
// deployment loads a compiled WASM module behind this interface; the
// textlines subpackage is an in-process implementation exercised by its
// own tests. No other package of this repository calls a plugin.
package plugin

// File is the raw byte payload a plugin operates over, identified by the
// owning file_id.
type File struct {
	ID   string
	Path string
	Data []byte
}

// EntityChange is one entity a plugin detected inside a File's bytes.
type EntityChange struct {
	EntityID        string
	SchemaKey       string
	SchemaVersion   string
	SnapshotContent string
	HasSnapshot     bool // false marks a tombstone (entity removed)
}

// Instance is a loaded plugin ready to detect or apply changes. Plugins
// are stateless across calls: every DetectChanges/ApplyChanges call is
// self-contained given the file bytes passed in.
type Instance interface {
	Key() string
	// DetectChanges compares before (nil on first detection) against
	// after and returns the entity changes needed to go from before to
	// after.
	DetectChanges(before *File, after File) ([]EntityChange, error)
	// ApplyChanges reconstructs file bytes by folding changes onto seed.
	ApplyChanges(seed File, changes []EntityChange) ([]byte, error)
}

// Loader resolves a plugin_key to a runnable Instance. This repository
// has no Loader implementation: there is no WASM-backed loader, and
// textlines.Plugin implements Instance but not Loader.
type Loader interface {
	Load(pluginKey string) (Instance, error)
}
