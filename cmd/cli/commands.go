package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}

	return cli.NewCommandAt(&cfg.Main, "dccheck").
		WithSynopsis("dccheck [opts] command [opts]").
		WithDescription("dccheck decides whether simple temporal networks with uncertainty are dynamically controllable.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return dccheckMain(cfg, cc, args)
		}).
		WithSubs(
			CheckCommand(cfg),
			EncodeCommand(cfg),
			NormalizeCommand(cfg))
}

func dccheckMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		return fmt.Errorf("%w: %q not found", cli.ErrNoSuchCommand, args[0])
	}
	return sub.Run(cc, args[1:])
}

func CheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CheckConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "timeout",
			Aliases:     []string{"t"},
			Description: "time limit given to the solver, e.g. 30s",
			Type:        cli.NamedFuncOpt(durationOpt(&cfg.Timeout), "(duration)"),
		},
		&cli.Opt{
			Name:        "bound",
			Description: "numeric bound standing in for infinity (default 100000)",
			Type:        cli.NamedFuncOpt(boundOpt(&cfg.Bound), "(number)"),
		})

	cmd := cli.NewCommand("check").
		WithAliases("c").
		WithSynopsis("check [-solver name] [-timeout d] [-iis file] network").
		WithDescription("Check the dynamic controllability of a network file. Exits with 10 if it is DC, 20 if it is not and 30 on timeout").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return check(cfg, cc, args)
		})
	cfg.Check = cmd
	return cmd
}

func EncodeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &EncodeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts, &cli.Opt{
		Name:        "bound",
		Description: "numeric bound standing in for infinity (default 100000)",
		Type:        cli.NamedFuncOpt(boundOpt(&cfg.Bound), "(number)"),
	})

	cmd := cli.NewCommand("encode").
		WithAliases("e", "lp").
		WithSynopsis("encode [-o file] [-stats] network").
		WithDescription("Write the MILP encoding of a network in CPLEX LP format").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return encode(cfg, cc, args)
		})
	cfg.Encode = cmd
	return cmd
}

func NormalizeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &NormalizeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}

	cmd := cli.NewCommand("normalize").
		WithAliases("n", "norm").
		WithSynopsis("normalize [-y] network").
		WithDescription("Print a network rewritten so that no contingent link starts at an uncontrollable event and no two share a source").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return normalize(cfg, cc, args)
		})
	cfg.Normalize = cmd
	return cmd
}
