package milp

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHighs(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		cases := map[string]Status{
			"Model status        : Optimal\n":                        StatusFeasible,
			"Model status        : Infeasible\n":                     StatusInfeasible,
			"Model status        : Primal infeasible or unbounded\n": StatusInfeasible,
			"Model status        : Time limit reached\n":             StatusTimedOut,
			"Model status        : Unknown\n":                        StatusError,
			"Solving report\n  Status            Infeasible\n":       StatusInfeasible,
			"Running HiGHS 1.7.0\nERROR:   Unable to read LP file\n": StatusUnknown,
		}
		for output, want := range cases {
			assert.Equal(t, want, parseHighsStatus(output), output)
		}
	})

	t.Run("Solution", func(t *testing.T) {
		file := strings.Join([]string{
			"Model status", "Optimal", "",
			"# Primal solution values", "Feasible", "Objective 0",
			"# Columns 3", "x 1", "y 2.5", "b 0",
			"# Rows 2", "c_1 4", "fix 1",
		}, "\n")

		values, err := parseHighsSolution(strings.NewReader(file))

		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"x": 1, "y": 2.5, "b": 0}, values)
	})
}

func TestParseCbc(t *testing.T) {
	t.Run("Feasible solution", func(t *testing.T) {
		file := strings.Join([]string{
			"Optimal - objective value 0.00000000",
			"      0 x                      3                       0",
			"**    1 y                    2.5                       0",
		}, "\n")

		status, values, err := parseCbcSolution(strings.NewReader(file))

		require.NoError(t, err)
		assert.Equal(t, StatusFeasible, status)
		assert.Equal(t, map[string]float64{"x": 3, "y": 2.5}, values)
	})

	t.Run("Status line", func(t *testing.T) {
		cases := map[string]Status{
			"Infeasible - objective value 0.00000000":                                     StatusInfeasible,
			"Integer infeasible - objective value 0.00000000":                             StatusInfeasible,
			"Stopped on time - objective value 0.00000000":                                StatusFeasible,
			"Stopped on time (no integer solution - continuous used) - objective value 0": StatusTimedOut,
			"Unbounded - objective value 0":                                               StatusError,
		}
		for line, want := range cases {
			status, _, err := parseCbcSolution(strings.NewReader(line))
			require.NoError(t, err)
			assert.Equal(t, want, status, line)
		}
	})

	t.Run("Empty file", func(t *testing.T) {
		_, _, err := parseCbcSolution(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestParseGlpkStatus(t *testing.T) {
	assert.Equal(t, StatusFeasible, parseGlpkStatus("OPTIMAL LP SOLUTION FOUND\nINTEGER OPTIMAL SOLUTION FOUND\n", true))
	assert.Equal(t, StatusUnknown, parseGlpkStatus("OPTIMAL LP SOLUTION FOUND\n", true))
	assert.Equal(t, StatusFeasible, parseGlpkStatus("OPTIMAL LP SOLUTION FOUND\n", false))
	assert.Equal(t, StatusInfeasible, parseGlpkStatus("OPTIMAL LP SOLUTION FOUND\nPROBLEM HAS NO INTEGER FEASIBLE SOLUTION\n", true))
	assert.Equal(t, StatusInfeasible, parseGlpkStatus("PROBLEM HAS NO PRIMAL FEASIBLE SOLUTION\n", true))
	assert.Equal(t, StatusTimedOut, parseGlpkStatus("OPTIMAL LP SOLUTION FOUND\nTIME LIMIT EXCEEDED; SEARCH TERMINATED\n", true))
}

func TestParseGurobi(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		assert.Equal(t, StatusFeasible, parseGurobiStatus("Optimal solution found (tolerance 1.00e-04)\n"))
		assert.Equal(t, StatusInfeasible, parseGurobiStatus("Model is infeasible\nBest objective -, best bound -, gap -\n"))
		assert.Equal(t, StatusInfeasible, parseGurobiStatus("Infeasible or unbounded model\n"))
		assert.Equal(t, StatusTimedOut, parseGurobiStatus("Time limit reached\nBest objective -, best bound 0.0e+00, gap -\n"))
		assert.Equal(t, StatusFeasible, parseGurobiStatus("Time limit reached\nBest objective 0.000000000000e+00, best bound 0.0e+00, gap 0.0000%\n"))
		assert.Equal(t, StatusUnknown, parseGurobiStatus(""))
	})

	t.Run("Solution", func(t *testing.T) {
		file := "# Solution for model small\n# Objective value = 0\nx 3\ny 2.5\n"

		values, err := parseGurobiSolution(strings.NewReader(file))

		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"x": 3, "y": 2.5}, values)
	})
}

// feasibilityModels returns a small feasible model and an infeasible variant
func feasibilityModels(t *testing.T) (*Model, *Model) {
	t.Helper()
	build := func(rhs float64) *Model {
		model := NewModel("probe")
		x, err := model.MakeVar(0, 10, "x")
		require.NoError(t, err)
		b, err := model.MakeBoolVar("b")
		require.NoError(t, err)
		_, err = model.AddConstraint(NewLinearExpr().Add(x).AddTerm(b, 5), GreaterOrEqual, rhs, "reach")
		require.NoError(t, err)
		return model
	}
	return build(12), build(16)
}

func TestSolvers(t *testing.T) {
	executables := map[string]string{"highs": highsPath, "cbc": cbcPath, "glpk": glpkPath, "gurobi": gurobiPath}
	for _, name := range Solvers() {
		t.Run(name, func(t *testing.T) {
			if _, err := exec.LookPath(executables[name]); err != nil {
				t.Skipf("%v is not installed", executables[name])
			}
			solver, err := NewSolver(name)
			require.NoError(t, err)
			feasible, infeasible := feasibilityModels(t)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			result, err := solver.Solve(ctx, feasible, SolveOptions{WorkDir: t.TempDir()})
			require.NoError(t, err)
			assert.Equal(t, StatusFeasible, result.Status)
			if result.Solution != nil {
				assert.Empty(t, feasible.Violations(result.Solution, 1e-5))
			}

			result, err = solver.Solve(ctx, infeasible, SolveOptions{WorkDir: t.TempDir()})
			require.NoError(t, err)
			assert.Equal(t, StatusInfeasible, result.Status)
		})
	}
}

func TestNewSolver(t *testing.T) {
	_, err := NewSolver("simplex")
	assert.Error(t, err)

	for _, name := range Solvers() {
		solver, err := NewSolver(name)
		require.NoError(t, err)
		assert.Equal(t, name, solver.Name())
	}
}

func TestSolverRegistry(t *testing.T) {
	assert.Equal(t, []string{"cbc", "glpk", "gurobi", "highs"}, Solvers())
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("Model status : Infeasible", "unbounded", "INFEASIBLE"))
	assert.False(t, containsAny("Model status : Optimal", "infeasible", "error"))
	assert.False(t, containsAny("anything"))
}
