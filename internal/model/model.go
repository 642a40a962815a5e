// Package model holds the shared data-model types that flow between the
// rewrite engine, the requirements/effects deriver, the execution
// planner, the executor, and the post-commit dispatcher: everything named
// in spec.md section 3 past the raw Value/Statement types.
package model

import "github.com/anthropics/lix/internal/value"

// SchemaRegistration is collected during rewrite when a write touches a
// stored-schema-bearing surface; it drives lazy per-schema materialized
// table creation.
type SchemaRegistration struct {
	SchemaKey     string
	SchemaVersion string
}

// MutationOp tags the kind of change a MutationRow represents.
type MutationOp int

const (
	OpInsert MutationOp = iota
	OpUpdate
	OpDelete
)

func (o MutationOp) String() string {
	switch o {
	case OpInsert:
		return "Insert"
	case OpUpdate:
		return "Update"
	case OpDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// MutationRow is a detected mutation tuple surfaced to post-processing.
type MutationRow struct {
	EntityID  string
	SchemaKey string
	FileID    string
	VersionID string
	PluginKey string
	// Snapshot holds the new snapshot content; IsTombstone marks a
	// deletion (Snapshot is then meaningless).
	Snapshot    value.Value
	IsTombstone bool
	Op          MutationOp
}

// PostprocessKind tags a PostprocessPlan's variant.
type PostprocessKind int

const (
	PostprocessNone PostprocessKind = iota
	PostprocessVtableUpdate
	PostprocessVtableDelete
)

// PostprocessPlan is a tagged union: VtableUpdate{schema_key,
// explicit_writer_key?, writer_key_assignment_present} or
// VtableDelete{schema_key, effective_scope_fallback,
// effective_scope_selection_sql?}. At most one per plan.
type PostprocessPlan struct {
	Kind PostprocessKind

	SchemaKey string

	// VtableUpdate fields.
	ExplicitWriterKey          string
	WriterKeyAssignmentPresent bool

	// VtableDelete fields.
	EffectiveScopeFallback       string
	EffectiveScopeSelectionSQL   string
	HasEffectiveScopeSelectionSQL bool
}

// UpdateValidationPlan is a predicate checked after execution to reject
// updates that violate primary-key or scope constraints.
type UpdateValidationPlan struct {
	Description string
	// Check runs against the backend after the primary statements execute
	// and returns a violation message, or "" if the update is valid.
	Check func() (string, error)
}

// PlanRequirements. Invariant: ReadOnlyQuery implies !ShouldRefreshFileCache
// unless a read refreshes a working projection first.
type PlanRequirements struct {
	ReadOnlyQuery                       bool
	ShouldRefreshFileCache              bool
	ShouldInvalidateInstalledPluginsCache bool
}

// StateCommitStreamChange is one row of the ordered outward-facing feed
// of committed changes.
type StateCommitStreamChange struct {
	ChangeID  string
	SchemaKey string
	FileID    string
	VersionID string
	EntityID  string
	Op        MutationOp
	CreatedAt string
}

// FileCacheTarget identifies one (version_id, file_id) pair whose file
// cache needs refreshing after commit.
type FileCacheTarget struct {
	VersionID string
	FileID    string
}

// PlanEffects collects everything the post-commit dispatcher must apply.
type PlanEffects struct {
	StateCommitStreamChanges []StateCommitStreamChange
	NextActiveVersionID      string
	HasNextActiveVersionID   bool
	FileCacheRefreshTargets  []FileCacheTarget
}

// ResultContract tags what shape of result the final top-level statement
// produces.
type ResultContract int

const (
	ResultSelect ResultContract = iota
	ResultDmlNoReturning
	ResultDmlReturning
	ResultOther
)

// PreparedStatement is dialect-appropriate SQL text with params aligned
// 1:1 to its placeholder occurrences after binding.
type PreparedStatement struct {
	SQL    string
	Params []value.Value
}

// PlannedStatementSet is immutable once emitted.
type PlannedStatementSet struct {
	Statements []PreparedStatement
}

// ExecutionPlan is assembled per execute call; optionally memoized by
// Fingerprint; destroyed after commit.
type ExecutionPlan struct {
	Preprocess     PlannedStatementSet
	ResultContract ResultContract
	Requirements   PlanRequirements
	Effects        PlanEffects
	Fingerprint    string

	// Registrations and Postprocess/Mutations/UpdateValidations ride
	// along with the plan so the executor can create materialized tables,
	// run the single postprocess followup, and validate updates, without
	// re-deriving them from the rewritten statements.
	Registrations     []SchemaRegistration
	Postprocess       *PostprocessPlan
	Mutations         []MutationRow
	UpdateValidations []UpdateValidationPlan
}
