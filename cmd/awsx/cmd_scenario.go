package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/awsx/internal/scenario"
	"github.com/yairfalse/awsx/internal/telemetry"
)

// scenarioService is the history and metrics label for scenario runs.
const scenarioService = "scenario"

func newScenarioCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [name]",
		Short: "Run a guided, multi-step scenario",
		Long: `Run a guided scenario. Without a name, lists the available scenarios.

Prompts read from the terminal. With --yes, or when stdin is not a
terminal, every question is answered with its default.`,
		Example: `  awsx scenario
  awsx scenario s3-basics
  awsx scenario sqs-sns-fanout --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := a.clients.Scenarios()
			if len(args) == 0 {
				return a.listScenarios(scenarios)
			}

			sc, ok := scenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q (try awsx scenario)", args[0])
			}
			return a.runScenario(cmd.Context(), args[0], sc)
		},
	}
}

func (a *app) listScenarios(scenarios map[string]scenario.Scenario) error {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, scenarios[name].Description})
	}
	p, err := a.printer()
	if err != nil {
		return err
	}
	return p.Table([]string{"NAME", "DESCRIPTION"}, rows)
}

func (a *app) runScenario(ctx context.Context, name string, sc scenario.Scenario) error {
	if err := a.ensureConnected(ctx); err != nil {
		return err
	}

	log := a.log.With().Str("scenario", name).Logger()

	started := time.Now()
	var state scenario.State
	err := a.tel.Instrument(ctx, scenarioService, name, func(ctx context.Context) error {
		runner := scenario.NewRunner(a.out, a.prompter(), telemetry.WithContext(ctx, log))
		var err error
		state, err = runner.Run(ctx, sc)
		return err
	})
	a.record(scenarioService, name, nil, started, err)

	a.log.Debug().Int("state_keys", len(state)).Dur("elapsed", time.Since(started)).Msg("scenario finished")
	return err
}
