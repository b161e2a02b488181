package dc

import (
	"fmt"
	"strings"

	"github.com/limaJavier/dccheck/pkg/milp"

	"github.com/samber/lo"
)

// DefaultTolerance absorbs the feasibility tolerances external solvers apply to rows and integrality
const DefaultTolerance = 1e-5

// maxReportedViolations keeps verification errors readable on large models
const maxReportedViolations = 5

// verifySolution evaluates every row and domain of the model against the solver's assignment
func verifySolution(model *milp.Model, solution milp.Solution, tolerance float64) error {
	if len(solution) != model.NumVariables() {
		return fmt.Errorf("%w: solution has %d values for %d variables", milp.ErrSolverFailure, len(solution), model.NumVariables())
	}

	violations := model.Violations(solution, tolerance)
	if len(violations) == 0 {
		return nil
	}

	reported := lo.Map(violations[:min(len(violations), maxReportedViolations)], func(v milp.Violation, _ int) string {
		return v.String()
	})
	return fmt.Errorf("%w: reported feasible assignment breaks %d rows or domains: %v", milp.ErrSolverFailure, len(violations), strings.Join(reported, "; "))
}
