package milp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const cbcPath = "cbc"

type cbcSolver struct{}

func NewCbcSolver() Solver {
	return &cbcSolver{}
}

func (solver *cbcSolver) Name() string { return "cbc" }

func (solver *cbcSolver) Solve(ctx context.Context, model *Model, options SolveOptions) (Result, error) {
	work, err := newWorkspace(model, options.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer work.remove()

	solutionFile := work.path("model.sol")
	args := []string{work.modelFile}
	if limit := effectiveTimeLimit(ctx, options.TimeLimit); limit > 0 {
		args = append(args, "sec", seconds(limit))
	}
	args = append(args, "solve", "solu", solutionFile)

	run, err := execute(ctx, solver.Name(), getExecutablePath("cbc", cbcPath), args...)
	if err != nil {
		return Result{}, err
	}
	result := Result{Output: run.stdout}
	if run.timedOut {
		result.Status = StatusTimedOut
		return result, nil
	} else if run.exitCode != 0 {
		return result, fmt.Errorf("%w: an error occurred during cbc execution: exit code %d : %v", ErrSolverFailure, run.exitCode, run.stderr)
	}

	file, err := os.Open(solutionFile)
	if err != nil {
		// Cbc does not write a solution file when the model cannot be read
		return result, fmt.Errorf("%w: cbc did not produce a solution file: %v : %v", ErrSolverFailure, err, run.stdout)
	}
	defer file.Close()

	status, values, err := parseCbcSolution(file)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrSolverFailure, err)
	}
	result.Status = status
	if status == StatusFeasible {
		result.Solution = work.names.SolutionFromValues(values)
	}
	return result, nil
}

// parseCbcSolution reads a Cbc solution file: a status line followed by one "index name value reduced-cost" line per nonzero column
func parseCbcSolution(reader io.Reader) (Status, map[string]float64, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return StatusUnknown, nil, fmt.Errorf("error reading cbc solution: %w", err)
		}
		return StatusUnknown, nil, fmt.Errorf("empty cbc solution")
	}

	status := cbcStatus(scanner.Text())
	values := make(map[string]float64)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == "**" { // Marks values that break integrality or bounds
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return status, nil, fmt.Errorf("invalid value in cbc solution: %v", err)
		}
		values[fields[1]] = value
	}
	if err := scanner.Err(); err != nil {
		return status, nil, fmt.Errorf("error reading cbc solution: %w", err)
	}
	return status, values, nil
}

func cbcStatus(line string) Status {
	line = strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(line, "optimal"):
		return StatusFeasible
	case strings.Contains(line, "infeasible"):
		return StatusInfeasible
	case strings.HasPrefix(line, "stopped on time"):
		// A stopped run may still carry a feasible point, but finding one is all the model asks
		if strings.Contains(line, "objective value") && !strings.Contains(line, "no integer solution") {
			return StatusFeasible
		}
		return StatusTimedOut
	case strings.HasPrefix(line, "stopped"):
		return StatusTimedOut
	default:
		return StatusError
	}
}
