package dc

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const networksDirectory = "../../testdata/networks/"

// recordingSolver answers with a fixed result and keeps what it was asked
type recordingSolver struct {
	result  milp.Result
	err     error
	values  map[string]float64 // If set, the answered solution assigns these values by variable name
	calls   int
	model   *milp.Model
	options milp.SolveOptions
}

func (solver *recordingSolver) Name() string { return "recording" }

func (solver *recordingSolver) Solve(ctx context.Context, model *milp.Model, options milp.SolveOptions) (milp.Result, error) {
	solver.calls++
	solver.model = model
	solver.options = options
	result := solver.result
	if solver.values != nil {
		result.Solution = make(milp.Solution, model.NumVariables())
		for name, value := range solver.values {
			if v := model.LookupVar(name); v != nil {
				result.Solution[v.Index()] = value
			}
		}
	}
	return result, solver.err
}

func TestIsControllable(t *testing.T) {
	t.Run("Feasible model is DC", func(t *testing.T) {
		//** Arrange
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusFeasible}}
		checker := NewChecker(solver,
			WithTimeLimit(time.Second),
			WithIISPath("conflict.ilp"),
			WithWorkDir("/tmp"),
		)

		//** Act
		verdict, err := checker.IsControllable(context.Background(), simpleNetwork())

		//** Assert
		require.NoError(t, err)
		assert.True(t, verdict.Controllable)
		assert.Empty(t, verdict.Conflict)
		assert.Equal(t, 1, solver.calls)
		assert.Equal(t, 24, solver.model.NumConstraints())
		assert.Equal(t, milp.SolveOptions{TimeLimit: time.Second, IISPath: "conflict.ilp", WorkDir: "/tmp"}, solver.options)
	})

	t.Run("Reported assignment is verified", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusFeasible}, values: simpleAssignment}

		verdict, err := NewChecker(solver).IsControllable(context.Background(), simpleNetwork())

		require.NoError(t, err)
		assert.True(t, verdict.Controllable)
	})

	t.Run("Broken assignment is a solver failure", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusFeasible}, values: map[string]float64{}}

		_, err := NewChecker(solver).IsControllable(context.Background(), simpleNetwork())

		assert.ErrorIs(t, err, milp.ErrSolverFailure)
	})

	t.Run("Infeasible model is not DC", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusInfeasible, IISPath: "conflict.ilp"}}

		verdict, err := NewChecker(solver, WithIISPath("conflict.ilp")).IsControllable(context.Background(), simpleNetwork())

		require.NoError(t, err)
		assert.Equal(t, Verdict{Controllable: false, Conflict: "conflict.ilp"}, verdict)
	})

	t.Run("Timeouts are not verdicts", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusTimedOut}}

		_, err := NewChecker(solver).IsControllable(context.Background(), simpleNetwork())

		assert.ErrorIs(t, err, milp.ErrTimeout)
	})

	t.Run("Cancelled contexts are timeouts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		solver := &recordingSolver{err: errors.New("killed")}

		_, err := NewChecker(solver).IsControllable(ctx, simpleNetwork())

		assert.ErrorIs(t, err, milp.ErrTimeout)
	})

	t.Run("Solver errors are failures", func(t *testing.T) {
		for _, solver := range []*recordingSolver{
			{result: milp.Result{Status: milp.StatusError}},
			{result: milp.Result{Status: milp.StatusUnknown}},
			{err: errors.New("license expired")},
			{err: milp.ErrSolverFailure},
		} {
			verdict, err := NewChecker(solver).IsControllable(context.Background(), simpleNetwork())

			assert.ErrorIs(t, err, milp.ErrSolverFailure)
			assert.NotErrorIs(t, err, milp.ErrTimeout)
			assert.False(t, verdict.Controllable)
		}
	})

	t.Run("Invalid networks never reach the solver", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusInfeasible}}
		network := stnu.NewNetwork()
		network.AddConstraint(stnu.Contingent("A", "B", 3, 1, "AB"))

		_, err := NewChecker(solver).IsControllable(context.Background(), network)

		assert.ErrorIs(t, err, stnu.ErrInvalidNetwork)
		assert.Zero(t, solver.calls)
	})

	t.Run("Numeric bound is configurable", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusFeasible}}

		_, err := NewChecker(solver, WithMaxNumericBound(5)).IsControllable(context.Background(), simpleNetwork())

		assert.ErrorIs(t, err, stnu.ErrBoundOverflow)
		assert.Zero(t, solver.calls)
	})

	t.Run("Networks without pairs of events are DC", func(t *testing.T) {
		solver := &recordingSolver{result: milp.Result{Status: milp.StatusError}}
		single := stnu.NewNetwork()
		single.AddEvent("A")

		for _, network := range []*stnu.Network{stnu.NewNetwork(), single} {
			verdict, err := NewChecker(solver).IsControllable(context.Background(), network)

			require.NoError(t, err)
			assert.True(t, verdict.Controllable)
		}
		assert.Zero(t, solver.calls)
	})
}

func TestIsControllableWithSolvers(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(networksDirectory, "*"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	executables := map[string]string{"highs": "highs", "cbc": "cbc", "glpk": "glpsol", "gurobi": "gurobi_cl"}
	for _, name := range milp.Solvers() {
		t.Run(name, func(t *testing.T) {
			if _, err := exec.LookPath(executables[name]); err != nil {
				t.Skipf("%v is not installed", executables[name])
			}
			solver, err := milp.NewSolver(name)
			require.NoError(t, err)
			checker := NewChecker(solver, WithWorkDir(t.TempDir()))

			for _, file := range files {
				raw, err := stnu.RawFromFile(file)
				require.NoError(t, err, file)
				network, err := stnu.ProcessRawNetwork(raw)
				require.NoError(t, err, file)

				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				verdict, err := checker.IsControllable(ctx, network)
				cancel()

				require.NoError(t, err, file)
				assert.Equal(t, *raw.Controllable, verdict.Controllable, file)
			}
		})
	}
}

// simplexSolver decides small models in process: it enumerates every assignment of the binaries and
// checks the remaining linear program with gonum's simplex
type simplexSolver struct {
	maxBinaries int
}

func (solver simplexSolver) Name() string { return "simplex" }

func (solver simplexSolver) Solve(ctx context.Context, model *milp.Model, _ milp.SolveOptions) (milp.Result, error) {
	binaries := lo.Filter(model.Variables(), func(v *milp.Variable, _ int) bool { return v.Kind() == milp.Binary })
	if len(binaries) > solver.maxBinaries {
		return milp.Result{Status: milp.StatusError}, fmt.Errorf("%w: %d binaries are too many to enumerate", milp.ErrSolverFailure, len(binaries))
	}

	fixed := make(map[int]float64, len(binaries))
	for mask := 0; mask < 1<<len(binaries); mask++ {
		if ctx.Err() != nil {
			return milp.Result{Status: milp.StatusTimedOut}, nil
		}
		for n, v := range binaries {
			fixed[v.Index()] = float64((mask>>n)&1)
		}

		solution, err := solveRelaxation(model, fixed)
		if errors.Is(err, lp.ErrInfeasible) {
			continue
		} else if err != nil {
			return milp.Result{Status: milp.StatusError}, err
		}
		return milp.Result{Status: milp.StatusFeasible, Solution: solution}, nil
	}
	return milp.Result{Status: milp.StatusInfeasible}, nil
}

// solveRelaxation looks for values of the continuous variables once the binaries are fixed.
// Each continuous v is shifted to y = v - lb >= 0 and every row, domain upper bounds included, becomes
// an equality with its own slack, so the standard form always has full row rank
func solveRelaxation(model *milp.Model, fixed map[int]float64) (milp.Solution, error) {
	variables := model.Variables()
	columns := make(map[int]int)
	for _, v := range variables {
		if _, ok := fixed[v.Index()]; !ok {
			columns[v.Index()] = len(columns)
		}
	}

	type row struct {
		coeffs map[int]float64 // sum(coeffs*y) + slack = rhs
		rhs    float64
	}
	rows := make([]row, 0)
	addRow := func(coeffs map[int]float64, rhs float64) error {
		if len(coeffs) == 0 {
			if rhs < -1e-9 {
				return lp.ErrInfeasible
			}
			return nil
		}
		rows = append(rows, row{coeffs: coeffs, rhs: rhs})
		return nil
	}

	for _, v := range variables {
		if column, ok := columns[v.Index()]; ok {
			addRow(map[int]float64{column: 1}, v.Upper()-v.Lower())
		}
	}
	for _, c := range model.Constraints() {
		coeffs := make(map[int]float64)
		rhs := c.Rhs()
		for _, term := range c.Terms() {
			if value, ok := fixed[term.Var.Index()]; ok {
				rhs -= term.Coeff * value
				continue
			}
			coeffs[columns[term.Var.Index()]] += term.Coeff
			rhs -= term.Coeff * term.Var.Lower()
		}
		negated := lo.MapValues(coeffs, func(coeff float64, _ int) float64 { return -coeff })

		var err error
		switch c.Sense() {
		case milp.LessOrEqual:
			err = addRow(coeffs, rhs)
		case milp.GreaterOrEqual:
			err = addRow(negated, -rhs)
		case milp.Equal:
			if err = addRow(coeffs, rhs); err == nil {
				err = addRow(negated, -rhs)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	width := len(columns) + len(rows)
	a := mat.NewDense(len(rows), width, nil)
	b := make([]float64, len(rows))
	for r, current := range rows {
		sign := 1.0
		if current.rhs < 0 {
			sign = -1
		}
		for column, coeff := range current.coeffs {
			a.Set(r, column, sign*coeff)
		}
		a.Set(r, len(columns)+r, sign)
		b[r] = sign * current.rhs
	}

	_, x, err := lp.Simplex(make([]float64, width), a, b, 1e-10, nil)
	if err != nil {
		return nil, err
	}

	solution := make(milp.Solution, len(variables))
	for _, v := range variables {
		if value, ok := fixed[v.Index()]; ok {
			solution[v.Index()] = value
		} else {
			solution[v.Index()] = v.Lower() + x[columns[v.Index()]]
		}
	}
	return solution, nil
}

func TestIsControllableInProcess(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(networksDirectory, "*"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	checker := NewChecker(simplexSolver{maxBinaries: 12}, WithMaxNumericBound(1000))
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			//** Arrange
			raw, err := stnu.RawFromFile(file)
			require.NoError(t, err)
			network, err := stnu.ProcessRawNetwork(raw)
			require.NoError(t, err)

			//** Act
			verdict, err := checker.IsControllable(context.Background(), network)

			//** Assert
			require.NoError(t, err)
			assert.Equal(t, *raw.Controllable, verdict.Controllable)
		})
	}
}
