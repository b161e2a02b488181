package dc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"

	log "github.com/golang/glog"
)

// Verdict is the outcome of a dynamic controllability check
type Verdict struct {
	Controllable bool
	Conflict     string // Path of the persisted infeasible subsystem; empty when none was written
}

func (verdict Verdict) String() string {
	if verdict.Controllable {
		return "DC"
	}
	return "not DC"
}

// Checker decides dynamic controllability by solving the MILP encoding of a network.
// A Checker holds no per-call state and can be shared by concurrent callers
type Checker struct {
	solver    milp.Solver
	maxBound  float64
	timeLimit time.Duration
	iisPath   string
	workDir   string
	tolerance float64
}

type Option func(checker *Checker)

// WithMaxNumericBound sets the sentinel standing in for infinity; every explicit bound must not exceed it
func WithMaxNumericBound(bound float64) Option {
	return func(checker *Checker) { checker.maxBound = bound }
}

// WithTimeLimit caps the time given to the solver, on top of any context deadline
func WithTimeLimit(limit time.Duration) Option {
	return func(checker *Checker) { checker.timeLimit = limit }
}

// WithIISPath asks the solver to persist an irreducible infeasible subsystem at path when the network is not DC
func WithIISPath(path string) Option {
	return func(checker *Checker) { checker.iisPath = path }
}

func WithWorkDir(directory string) Option {
	return func(checker *Checker) { checker.workDir = directory }
}

// WithTolerance sets the tolerance used to verify the assignments of feasible solutions
func WithTolerance(tolerance float64) Option {
	return func(checker *Checker) { checker.tolerance = tolerance }
}

func NewChecker(solver milp.Solver, opts ...Option) *Checker {
	checker := &Checker{
		solver:    solver,
		maxBound:  DefaultMaxNumericBound,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(checker)
	}
	return checker
}

// IsControllable reports whether the network is dynamically controllable.
// Invalid networks return an error wrapping stnu.ErrInvalidNetwork or stnu.ErrBoundOverflow; solver failures wrap milp.ErrSolverFailure
// and timeouts or cancellations wrap milp.ErrTimeout. None of them is a verdict
func (checker *Checker) IsControllable(ctx context.Context, network *stnu.Network) (Verdict, error) {
	encoding, err := Encode(network, checker.maxBound)
	if err != nil {
		return Verdict{}, err
	}
	if encoding.Model.NumVariables() == 0 {
		// Fewer than two events: nothing to schedule
		return Verdict{Controllable: true}, nil
	}

	start := time.Now()
	result, err := checker.solver.Solve(ctx, encoding.Model, milp.SolveOptions{
		TimeLimit: checker.timeLimit,
		IISPath:   checker.iisPath,
		WorkDir:   checker.workDir,
	})
	log.V(1).Infof("%v answered %v in %v", checker.solver.Name(), result.Status, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return Verdict{}, fmt.Errorf("%w: %v", milp.ErrTimeout, ctx.Err())
		} else if errors.Is(err, milp.ErrSolverFailure) {
			return Verdict{}, err
		}
		return Verdict{}, fmt.Errorf("%w: %v: %v", milp.ErrSolverFailure, checker.solver.Name(), err)
	}

	switch result.Status {
	case milp.StatusFeasible:
		if result.Solution != nil {
			if err := verifySolution(encoding.Model, result.Solution, checker.tolerance); err != nil {
				return Verdict{}, err
			}
		}
		return Verdict{Controllable: true}, nil
	case milp.StatusInfeasible:
		if checker.iisPath != "" && result.IISPath == "" {
			log.Warningf("%v did not persist an infeasible subsystem", checker.solver.Name())
		}
		return Verdict{Controllable: false, Conflict: result.IISPath}, nil
	case milp.StatusTimedOut:
		return Verdict{}, fmt.Errorf("%w: %v gave no answer within the time limit", milp.ErrTimeout, checker.solver.Name())
	default:
		return Verdict{}, fmt.Errorf("%w: %v reported status %v", milp.ErrSolverFailure, checker.solver.Name(), result.Status)
	}
}
