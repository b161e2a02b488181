package milp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/limaJavier/dccheck/internal/config"

	log "github.com/golang/glog"
	"github.com/samber/lo"
)

// ConfigPath points to the configuration file holding the solvers' executable paths; empty means every backend is looked up on PATH
var ConfigPath = ""

func getExecutablePath(solver, fallback string) string {
	if ConfigPath == "" {
		return fallback
	}
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		log.Warningf("cannot load solver paths, using %q: %v", fallback, err)
		return fallback
	}
	return cfg.ExecutablePath(solver, fallback)
}

// effectiveTimeLimit combines the explicit time limit with the context's deadline, returning 0 when neither is set
func effectiveTimeLimit(ctx context.Context, limit time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if limit <= 0 || remaining < limit {
			limit = remaining
		}
	}
	return limit
}

// seconds renders a time limit the way solver command lines expect it (whole seconds, rounded up)
func seconds(limit time.Duration) string {
	return fmt.Sprintf("%d", int64(math.Ceil(limit.Seconds())))
}

type workspace struct {
	directory string
	modelFile string
	names     LPNames
}

// newWorkspace creates a temporary directory and writes the model as an LP file inside it
func newWorkspace(model *Model, workDir string) (*workspace, error) {
	directory, err := os.MkdirTemp(workDir, "dccheck-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %v", err)
	}

	modelFile := filepath.Join(directory, "model.lp")
	file, err := os.Create(modelFile)
	if err != nil {
		os.RemoveAll(directory)
		return nil, fmt.Errorf("failed to create temporary file: %v", err)
	}
	names, err := model.WriteLP(file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.RemoveAll(directory)
		return nil, fmt.Errorf("failed to write LP model to temporary file: %v", err)
	}

	return &workspace{directory: directory, modelFile: modelFile, names: names}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.directory, name)
}

func (w *workspace) remove() {
	if err := os.RemoveAll(w.directory); err != nil {
		log.Warningf("failed to remove temporary directory %s: %v", w.directory, err)
	}
}

type execution struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
}

// execute runs a solver executable. Non-zero exit codes are reported in the execution, not as an error, since several solvers use them to encode statuses
func execute(ctx context.Context, solver string, executable string, args ...string) (execution, error) {
	cmd := exec.CommandContext(ctx, executable, args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	log.V(2).Infof("running %v: %v %v", solver, executable, strings.Join(args, " "))
	err := cmd.Run()

	run := execution{stdout: stdOut.String(), stderr: stdErr.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		run.timedOut = true
		return run, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return run, fmt.Errorf("%w: an error occurred during %v execution: %v : %v", ErrSolverFailure, solver, err.Error(), run.stderr)
	}
	if cmd.ProcessState != nil {
		run.exitCode = cmd.ProcessState.ExitCode()
	}
	return run, nil
}

// containsAny reports whether the text contains any of the given markers, ignoring case
func containsAny(text string, markers ...string) bool {
	lower := strings.ToLower(text)
	return lo.SomeBy(markers, func(marker string) bool { return strings.Contains(lower, strings.ToLower(marker)) })
}
