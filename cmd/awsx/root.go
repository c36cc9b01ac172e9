package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var version = "dev"

func getVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

// newRootCmd builds the command tree: one subcommand per service with one
// child per example, plus list, scenario, history and version.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "awsx",
		Short: "Runnable AWS SDK code examples",
		Long: `awsx - AWS SDK code examples

Each example calls one or a handful of AWS APIs and prints the result.
Guided scenarios chain several examples together and ask before
changing anything. Destructive examples are checked by a policy guard.`,
		Example: `  awsx list dynamodb
  awsx dynamodb create-table --table movies
  awsx cloudwatchlogs large-query --log-groups /app/api --start now-24h
  awsx scenario dynamodb-basics
  awsx history --failed`,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate("awsx {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default $HOME/.awsx/config.yaml)")
	pf.StringVarP(&a.flags.region, "region", "r", "", "AWS region")
	pf.StringVar(&a.flags.profile, "profile", "", "shared config profile")
	pf.StringVarP(&a.flags.output, "output", "o", "text", "output format: text, json")
	pf.StringVarP(&a.flags.query, "query", "q", "", "gjson path applied to the output")
	pf.BoolVar(&a.flags.debug, "debug", false, "enable debug logging")
	pf.BoolVarP(&a.flags.yes, "yes", "y", false, "confirm destructive examples and answer prompts with defaults")

	for _, cmd := range a.serviceCommands() {
		root.AddCommand(cmd)
	}
	root.AddCommand(
		newListCmd(a),
		newScenarioCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the awsx version",
		Args:  cobra.NoArgs,
		// Skips configuration entirely.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("awsx %s %s/%s\n", getVersion(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
