package milp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

var (
	ErrSolverFailure = errors.New("solver failure")
	ErrTimeout       = errors.New("solver timed out")
)

type Status int

const (
	StatusUnknown Status = iota
	StatusFeasible
	StatusInfeasible
	StatusTimedOut
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimedOut:
		return "timed-out"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

type SolveOptions struct {
	TimeLimit time.Duration // Zero means no limit other than the context's deadline
	IISPath   string        // If set and the model is infeasible, backends able to do so persist an irreducible infeasible subsystem there
	WorkDir   string        // Directory for temporary files; empty means the system default
}

type Result struct {
	Status   Status
	Solution Solution // Nil when the backend does not report values
	IISPath  string   // Set only when an infeasible subsystem was actually written
	Output   string   // Raw solver output, for diagnostics
}

// Solver is the narrow contract the DC checker consumes: solve a feasibility model and report its status.
// Timeouts and infeasibility are outcomes (nil error); an error is returned only when the solver itself could not run or answer
type Solver interface {
	Name() string
	Solve(ctx context.Context, model *Model, options SolveOptions) (Result, error)
}

var solvers = map[string]func() Solver{
	"highs":  NewHighsSolver,
	"cbc":    NewCbcSolver,
	"glpk":   NewGlpkSolver,
	"gurobi": NewGurobiSolver,
}

// Solvers returns the names of the available backends, sorted
func Solvers() []string {
	names := lo.Keys(solvers)
	slices.Sort(names)
	return names
}

// NewSolver returns the backend registered under the given name
func NewSolver(name string) (Solver, error) {
	constructor, ok := solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q, valid values are %v", name, Solvers())
	}
	return constructor(), nil
}
