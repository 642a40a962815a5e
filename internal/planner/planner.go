// Package planner assembles the ExecutionPlan from a rewritten statement
// script, per spec.md section 4.F: prepared statements, result contract,
// requirements, effects, and fingerprint, validated before the plan
// leaves the planner.
package planner

import (
	"context"
	"strings"

	"github.com/anthropics/lix/internal/backend"
	"github.com/anthropics/lix/internal/errs"
	"github.com/anthropics/lix/internal/model"
	"github.com/anthropics/lix/internal/parser"
	"github.com/anthropics/lix/internal/requirements"
	"github.com/anthropics/lix/internal/rewrite"
	"github.com/anthropics/lix/internal/sqltext"
	"github.com/anthropics/lix/internal/value"
)

// Plan parses nothing itself: it takes the already-parsed top-level
// statements of a script plus the script's own parameter list, runs each
// through the rewrite engine, binds placeholders once over the full
// rewritten statement set, and assembles the validated ExecutionPlan.
func Plan(ctx context.Context, b backend.Backend, topLevel []*parser.Statement, params []value.Value) (*model.ExecutionPlan, error) {
	var finalStmts []*parser.Statement
	var registrations []model.SchemaRegistration
	var mutations []model.MutationRow
	var updateValidations []model.UpdateValidationPlan
	var postprocess *model.PostprocessPlan

	for _, stmt := range topLevel {
		out, err := rewrite.Rewrite(ctx, b, stmt)
		if err != nil {
			return nil, errs.WrapPlannerError(errs.PlannerPreprocess, err)
		}
		finalStmts = append(finalStmts, out.Statements...)
		registrations = append(registrations, out.Registrations...)
		mutations = append(mutations, out.Mutations...)
		updateValidations = append(updateValidations, out.UpdateValidations...)
		if out.Postprocess != nil {
			if postprocess != nil {
				return nil, errs.NewPlannerError(errs.PlannerInvariant, "at most one postprocess plan is allowed per execution plan")
			}
			postprocess = out.Postprocess
		}
	}

	if len(finalStmts) == 0 {
		return nil, errs.NewPlannerError(errs.PlannerInvariant, "execution plan must contain at least one statement")
	}

	var ph sqltext.Placeholder = sqltext.SqlitePlaceholder
	if b.Dialect() == backend.Postgres {
		ph = sqltext.PostgresPlaceholder
	}

	bound, err := parser.BindOnce(finalStmts, params, ph)
	if err != nil {
		return nil, errs.WrapPlannerError(errs.PlannerBindOnce, err)
	}

	prepared := make([]model.PreparedStatement, len(bound))
	texts := make([]string, len(bound))
	for i, bs := range bound {
		prepared[i] = model.PreparedStatement{SQL: bs.SQL, Params: bs.UsedParams}
		texts[i] = bs.SQL
	}

	req, effects := requirements.Derive(finalStmts, mutations, nil)

	plan := &model.ExecutionPlan{
		Preprocess:        model.PlannedStatementSet{Statements: prepared},
		ResultContract:    resultContract(finalStmts[len(finalStmts)-1]),
		Requirements:      req,
		Effects:           effects,
		Fingerprint:       Fingerprint(texts, params, registrations, postprocess),
		Registrations:     registrations,
		Postprocess:       postprocess,
		Mutations:         mutations,
		UpdateValidations: updateValidations,
	}

	if err := validate(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func resultContract(last *parser.Statement) model.ResultContract {
	switch last.Kind {
	case parser.KindSelect:
		return model.ResultSelect
	case parser.KindInsert, parser.KindUpdate, parser.KindDelete:
		return model.ResultDmlNoReturning
	default:
		// an expression-only SELECT is carried as KindOther passthrough
		if f := strings.Fields(strings.ToLower(last.Raw)); len(f) > 0 && f[0] == "select" {
			return model.ResultSelect
		}
		return model.ResultOther
	}
}

// validate checks the four invariants spec.md section 4.F requires to
// hold before a plan leaves the planner.
func validate(plan *model.ExecutionPlan) error {
	if len(plan.Preprocess.Statements) == 0 {
		return errs.NewPlannerError(errs.PlannerInvariant, "non-empty prepared statements required")
	}
	if plan.Postprocess != nil {
		if len(plan.Preprocess.Statements) != 1 {
			return errs.NewPlannerError(errs.PlannerInvariant, "a plan with a postprocess must contain exactly one prepared statement")
		}
		if len(plan.Mutations) != 0 {
			return errs.NewPlannerError(errs.PlannerInvariant, "a plan with a postprocess must carry no mutation rows")
		}
	}
	if plan.Requirements.ReadOnlyQuery && plan.Postprocess != nil {
		return errs.NewPlannerError(errs.PlannerInvariant, "a read-only plan must not carry a postprocess")
	}
	return nil
}
