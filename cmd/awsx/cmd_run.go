package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/telemetry"
	"github.com/yairfalse/awsx/policy"
)

// serviceCommands returns one command per registered service.
func (a *app) serviceCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, svc := range a.registry.Services() {
		svcCmd := &cobra.Command{
			Use:   svc,
			Short: fmt.Sprintf("%s examples", svc),
			Args:  cobra.NoArgs,
		}
		for _, e := range a.registry.Service(svc) {
			svcCmd.AddCommand(a.exampleCmd(e))
		}
		cmds = append(cmds, svcCmd)
	}
	return cmds
}

func (a *app) exampleCmd(e example.Example) *cobra.Command {
	short := e.Summary
	if e.Destructive {
		short += " (destructive)"
	}

	var values map[string]*string
	cmd := &cobra.Command{
		Use:   e.Name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := make(example.Input, len(values))
			for name, v := range values {
				in[name] = *v
			}
			return a.runExample(cmd.Context(), e, in)
		},
	}
	values = paramFlags(cmd.Flags(), e.Params)
	return cmd
}

// paramFlags defines one string flag per parameter. Typed parsing happens
// in example.Input so every example reports bad values the same way.
func paramFlags(fs *pflag.FlagSet, params []example.Param) map[string]*string {
	values := make(map[string]*string, len(params))
	for _, p := range params {
		usage := p.Usage
		if p.Required {
			usage += " (required)"
		}
		values[p.Name] = fs.String(p.Name, p.Default, usage)
	}
	return values
}

// runExample validates input, asks the guard, then runs the example inside
// a span and records the outcome.
func (a *app) runExample(ctx context.Context, e example.Example, in example.Input) error {
	if err := e.Validate(in); err != nil {
		return err
	}

	decision, err := a.guard.Evaluate(ctx, policy.Input{
		Service:          e.Service,
		Example:          e.Name,
		Region:           a.cfg.Region,
		Params:           in,
		Destructive:      e.Destructive,
		Confirmed:        a.flags.yes,
		AllowDestructive: a.cfg.Policy.AllowDestructive,
	})
	if err != nil {
		return err
	}
	if !decision.Allow {
		return fmt.Errorf("%s: %w: %s", e.ID(), errDenied, decision.Reason)
	}
	if e.Destructive {
		a.log.Info().Str("example", e.ID()).Str("reason", decision.Reason).Msg("destructive example allowed")
	}

	if err := a.ensureConnected(ctx); err != nil {
		return err
	}

	p, err := a.printer()
	if err != nil {
		return err
	}
	log := a.log.With().Str("example", e.ID()).Logger()

	started := time.Now()
	err = a.tel.Instrument(ctx, e.Service, e.Name, func(ctx context.Context) error {
		return e.Run(ctx, example.NewEnv(p, telemetry.WithContext(ctx, log)), in)
	})
	a.record(e.Service, e.Name, in, started, err)
	if err != nil {
		a.log.Debug().Err(err).Str("example", e.ID()).Dur("elapsed", time.Since(started)).Msg("example failed")
	}
	return err
}

// exampleList renders the registry as rows for list.
func exampleList(examples []example.Example) [][]string {
	rows := make([][]string, 0, len(examples))
	for _, e := range examples {
		summary := e.Summary
		if e.Destructive {
			summary += " (destructive)"
		}
		var required []string
		for _, p := range e.Params {
			if p.Required {
				required = append(required, "--"+p.Name)
			}
		}
		rows = append(rows, []string{e.Service, e.Name, strings.Join(required, " "), summary})
	}
	return rows
}
