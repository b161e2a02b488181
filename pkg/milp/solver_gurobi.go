package milp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

const gurobiPath = "gurobi_cl"

type gurobiSolver struct{}

func NewGurobiSolver() Solver {
	return &gurobiSolver{}
}

func (solver *gurobiSolver) Name() string { return "gurobi" }

func (solver *gurobiSolver) Solve(ctx context.Context, model *Model, options SolveOptions) (Result, error) {
	work, err := newWorkspace(model, options.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer work.remove()

	executable := getExecutablePath("gurobi", gurobiPath)
	solutionFile := work.path("model.sol")
	parameters := make([]string, 0, 2)
	if limit := effectiveTimeLimit(ctx, options.TimeLimit); limit > 0 {
		parameters = append(parameters, "TimeLimit="+seconds(limit))
	}

	run, err := execute(ctx, solver.Name(), executable, append(parameters, "ResultFile="+solutionFile, work.modelFile)...)
	if err != nil {
		return Result{}, err
	}
	result := Result{Output: run.stdout}
	if run.timedOut {
		result.Status = StatusTimedOut
		return result, nil
	} else if run.exitCode != 0 {
		return result, fmt.Errorf("%w: an error occurred during gurobi execution: exit code %d : %v", ErrSolverFailure, run.exitCode, run.stdout+run.stderr)
	}

	result.Status = parseGurobiStatus(run.stdout)
	switch result.Status {
	case StatusFeasible:
		file, err := os.Open(solutionFile)
		if err != nil {
			return result, fmt.Errorf("%w: gurobi did not produce a solution file: %v", ErrSolverFailure, err)
		}
		defer file.Close()
		values, err := parseGurobiSolution(file)
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrSolverFailure, err)
		}
		result.Solution = work.names.SolutionFromValues(values)
	case StatusInfeasible:
		if options.IISPath != "" {
			result.IISPath = solver.writeIIS(ctx, executable, work.modelFile, options.IISPath)
		}
	}
	return result, nil
}

// writeIIS reruns Gurobi so that it computes an irreducible infeasible subsystem; gurobi_cl picks the format from the ".ilp" extension.
// Failures are logged and reported as an empty path: the verdict is already known
func (solver *gurobiSolver) writeIIS(ctx context.Context, executable, modelFile, iisPath string) string {
	if filepath.Ext(iisPath) != ".ilp" {
		iisPath += ".ilp"
	}
	run, err := execute(ctx, solver.Name(), executable, "ResultFile="+iisPath, modelFile)
	if err != nil || run.timedOut || run.exitCode != 0 {
		log.Warningf("failed to compute the irreducible infeasible subsystem: %v", err)
		return ""
	}
	if _, err := os.Stat(iisPath); err != nil {
		log.Warningf("gurobi did not write the irreducible infeasible subsystem to %v", iisPath)
		return ""
	}
	return iisPath
}

// parseGurobiStatus looks for the final status messages gurobi_cl prints to the standard output
func parseGurobiStatus(output string) Status {
	switch {
	case containsAny(output, "Model is infeasible", "Infeasible model", "infeasible or unbounded"):
		return StatusInfeasible
	case containsAny(output, "Time limit reached"):
		if containsAny(output, "Best objective") && !containsAny(output, "Best objective -") {
			return StatusFeasible
		}
		return StatusTimedOut
	case containsAny(output, "Optimal solution found"):
		return StatusFeasible
	case containsAny(output, "Error"):
		return StatusError
	default:
		return StatusUnknown
	}
}

// parseGurobiSolution reads a Gurobi .sol file: comment lines starting with '#' and one "name value" line per column
func parseGurobiSolution(reader io.Reader) (map[string]float64, error) {
	values := make(map[string]float64)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid line in gurobi solution: %q", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value in gurobi solution: %v", err)
		}
		values[fields[0]] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading gurobi solution: %w", err)
	}
	return values, nil
}
