package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/limaJavier/dccheck/pkg/dc"
	"github.com/limaJavier/dccheck/pkg/milp"
	"github.com/limaJavier/dccheck/pkg/stnu"

	"github.com/fatih/color"
	log "github.com/golang/glog"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

// Exit codes of the check command, following SAT solver conventions
const (
	exitControllable    = 10
	exitNotControllable = 20
	exitTimeout         = 30
)

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		cfg.Check.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: check requires one argument, a network file", cli.ErrUsage)
	}

	settings, err := cfg.settings()
	if err != nil {
		return err
	}
	settings = cfg.apply(settings)

	network, err := stnu.FromFile(args[0])
	if err != nil {
		return err
	}
	solver, err := milp.NewSolver(strings.ToLower(settings.Solver))
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}

	checker := dc.NewChecker(solver,
		dc.WithMaxNumericBound(settings.MaxNumericBound),
		dc.WithTimeLimit(settings.TimeLimit),
		dc.WithIISPath(settings.IISPath),
		dc.WithWorkDir(settings.WorkDir),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	verdict, err := checker.IsControllable(ctx, network)
	colors := newVerdictColors(cc.Out, cfg.NoColor)
	switch {
	case errors.Is(err, milp.ErrTimeout):
		fmt.Fprintf(cc.Out, "%v %v\n", colors.unknown("UNKNOWN"), filepath.Base(args[0]))
		log.Warningf("%v", err)
		return cli.ExitCodeErr(exitTimeout)
	case err != nil:
		return err
	case verdict.Controllable:
		fmt.Fprintf(cc.Out, "%v %v\n", colors.dc("DC"), filepath.Base(args[0]))
		return cli.ExitCodeErr(exitControllable)
	default:
		fmt.Fprintf(cc.Out, "%v %v\n", colors.notDC("NOT DC"), filepath.Base(args[0]))
		if verdict.Conflict != "" {
			fmt.Fprintf(cc.Out, "conflict written to %v\n", verdict.Conflict)
		}
		return cli.ExitCodeErr(exitNotControllable)
	}
}

type verdictColors struct {
	dc, notDC, unknown func(a ...any) string
}

// newVerdictColors colors verdicts only when writing to a terminal
func newVerdictColors(w io.Writer, disabled bool) verdictColors {
	plain := func(a ...any) string { return fmt.Sprint(a...) }
	colors := verdictColors{dc: plain, notDC: plain, unknown: plain}
	if disabled {
		return colors
	}
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return colors
	}

	enable := func(c *color.Color) func(a ...any) string {
		c.EnableColor()
		return c.SprintFunc()
	}
	colors.dc = enable(color.New(color.FgGreen, color.Bold))
	colors.notDC = enable(color.New(color.FgRed, color.Bold))
	colors.unknown = enable(color.New(color.FgYellow))
	return colors
}

func encode(cfg *EncodeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Encode.Parse(cc, args)
	if err != nil {
		cfg.Encode.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: encode requires one argument, a network file", cli.ErrUsage)
	}

	settings, err := cfg.settings()
	if err != nil {
		return err
	}
	if cfg.Bound > 0 {
		settings.MaxNumericBound = cfg.Bound
	}

	network, err := stnu.FromFile(args[0])
	if err != nil {
		return err
	}
	encoding, err := dc.Encode(network, settings.MaxNumericBound)
	if err != nil {
		return err
	}

	out := cc.Out
	if cfg.Out != "" {
		file, err := os.Create(cfg.Out)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if cfg.Stats {
		for _, family := range dc.Families() {
			fmt.Fprintf(out, "%-22v %d\n", family, encoding.Counts[family])
		}
		fmt.Fprintf(out, "%-22v %d\n", "variables", encoding.Model.NumVariables())
		fmt.Fprintf(out, "%-22v %d\n", "constraints", encoding.Model.NumConstraints())
		return nil
	}
	_, err = encoding.Model.WriteLP(out)
	return err
}

func normalize(cfg *NormalizeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Normalize.Parse(cc, args)
	if err != nil {
		cfg.Normalize.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: normalize requires one argument, a network file", cli.ErrUsage)
	}
	if _, err := cfg.settings(); err != nil {
		return err
	}

	raw, err := stnu.RawFromFile(args[0])
	if err != nil {
		return err
	}
	network, err := stnu.ProcessRawNetwork(raw)
	if err != nil {
		return err
	}

	normalized, injected := stnu.Normalize(network)
	log.V(1).Infof("injected %d equality constraints", len(injected))
	return stnu.WriteRawNetwork(cc.Out, stnu.ToRawNetwork(normalized, raw.Name), cfg.YAML)
}
