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

const highsPath = "highs"

type highsSolver struct{}

func NewHighsSolver() Solver {
	return &highsSolver{}
}

func (solver *highsSolver) Name() string { return "highs" }

func (solver *highsSolver) Solve(ctx context.Context, model *Model, options SolveOptions) (Result, error) {
	work, err := newWorkspace(model, options.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer work.remove()

	solutionFile := work.path("model.sol")
	args := []string{"--model_file", work.modelFile, "--solution_file", solutionFile}
	if limit := effectiveTimeLimit(ctx, options.TimeLimit); limit > 0 {
		args = append(args, "--time_limit", seconds(limit))
	}

	run, err := execute(ctx, solver.Name(), getExecutablePath("highs", highsPath), args...)
	if err != nil {
		return Result{}, err
	}
	result := Result{Output: run.stdout}
	if run.timedOut {
		result.Status = StatusTimedOut
		return result, nil
	} else if run.exitCode != 0 {
		return result, fmt.Errorf("%w: an error occurred during highs execution: exit code %d : %v", ErrSolverFailure, run.exitCode, run.stderr)
	}

	result.Status = parseHighsStatus(run.stdout)
	if result.Status == StatusFeasible {
		if file, err := os.Open(solutionFile); err == nil {
			defer file.Close()
			values, err := parseHighsSolution(file)
			if err != nil {
				return result, fmt.Errorf("%w: %v", ErrSolverFailure, err)
			}
			result.Solution = work.names.SolutionFromValues(values)
		}
	}
	return result, nil
}

// parseHighsStatus reads the "Model status" line HiGHS prints to the standard output, falling back to the "Status" line of the MIP solving report
func parseHighsStatus(output string) Status {
	report := ""
	for _, line := range strings.Split(output, "\n") {
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "model status") {
			return highsStatus(value)
		}
		if fields := strings.Fields(line); len(fields) > 1 && fields[0] == "Status" && report == "" {
			report = strings.Join(fields[1:], " ")
		}
	}
	if report != "" {
		return highsStatus(report)
	}
	return StatusUnknown
}

func highsStatus(value string) Status {
	switch value = strings.ToLower(strings.TrimSpace(value)); {
	case value == "optimal":
		return StatusFeasible
	case strings.Contains(value, "infeasible"): // Includes "primal infeasible or unbounded": every variable is bounded
		return StatusInfeasible
	case strings.Contains(value, "time limit"):
		return StatusTimedOut
	default:
		return StatusError
	}
}

// parseHighsSolution reads the "# Columns" section of a raw HiGHS solution file
func parseHighsSolution(reader io.Reader) (map[string]float64, error) {
	values := make(map[string]float64)
	scanner := bufio.NewScanner(reader)

	remaining := -1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if remaining < 0 {
			if count, ok := strings.CutPrefix(line, "# Columns "); ok {
				n, err := strconv.Atoi(strings.TrimSpace(count))
				if err != nil {
					return nil, fmt.Errorf("invalid column count in highs solution: %q", line)
				}
				remaining = n
			}
			continue
		}
		if remaining == 0 {
			break
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid column line in highs solution: %q", line)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value in highs solution: %v", err)
		}
		values[fields[0]] = value
		remaining--
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading highs solution: %w", err)
	}
	return values, nil
}
