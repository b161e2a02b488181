package milp

import (
	"context"
	"fmt"
)

const glpkPath = "glpsol"

type glpkSolver struct{}

func NewGlpkSolver() Solver {
	return &glpkSolver{}
}

func (solver *glpkSolver) Name() string { return "glpk" }

// Solve runs glpsol on the LP file. Only the status is reported: the solution is left nil, so verdicts are not verified against the model
func (solver *glpkSolver) Solve(ctx context.Context, model *Model, options SolveOptions) (Result, error) {
	work, err := newWorkspace(model, options.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer work.remove()

	args := []string{"--lp", work.modelFile}
	if limit := effectiveTimeLimit(ctx, options.TimeLimit); limit > 0 {
		args = append(args, "--tmlim", seconds(limit))
	}

	run, err := execute(ctx, solver.Name(), getExecutablePath("glpk", glpkPath), args...)
	if err != nil {
		return Result{}, err
	}
	result := Result{Output: run.stdout}
	if run.timedOut {
		result.Status = StatusTimedOut
		return result, nil
	}

	result.Status = parseGlpkStatus(run.stdout, model.hasBinaries())
	if result.Status == StatusError || (result.Status == StatusUnknown && run.exitCode != 0) {
		return result, fmt.Errorf("%w: an error occurred during glpk execution: exit code %d : %v", ErrSolverFailure, run.exitCode, run.stdout+run.stderr)
	}
	return result, nil
}

// parseGlpkStatus looks for the final status messages glpsol prints to the standard output.
// With integer columns the LP relaxation's optimum is only an intermediate step
func parseGlpkStatus(output string, integer bool) Status {
	switch {
	case containsAny(output, "PROBLEM HAS NO INTEGER FEASIBLE SOLUTION", "PROBLEM HAS NO PRIMAL FEASIBLE SOLUTION", "LP HAS NO PRIMAL FEASIBLE SOLUTION"):
		return StatusInfeasible
	case containsAny(output, "TIME LIMIT EXCEEDED"):
		return StatusTimedOut
	case containsAny(output, "INTEGER OPTIMAL SOLUTION FOUND"):
		return StatusFeasible
	case !integer && containsAny(output, "OPTIMAL LP SOLUTION FOUND"):
		return StatusFeasible
	case containsAny(output, "ERROR"):
		return StatusError
	default:
		return StatusUnknown
	}
}
