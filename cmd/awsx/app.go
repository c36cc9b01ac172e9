package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yairfalse/awsx/internal/awserr"
	"github.com/yairfalse/awsx/internal/config"
	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/examples/aws"
	"github.com/yairfalse/awsx/internal/output"
	"github.com/yairfalse/awsx/internal/scenario"
	"github.com/yairfalse/awsx/internal/telemetry"
	"github.com/yairfalse/awsx/policy"
	"github.com/yairfalse/awsx/storage"
)

// errDenied is returned when the guard policy refuses to run an example.
var errDenied = errors.New("denied by policy")

type globalFlags struct {
	configPath string
	region     string
	profile    string
	output     string
	query      string
	debug      bool
	yes        bool
}

// app holds everything a command needs. It is built before flags are
// parsed; setup fills in the configured services.
type app struct {
	flags globalFlags

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	clients  *aws.Clients
	registry *example.Registry

	// connect resolves AWS credentials and creates the service clients.
	connect   func(ctx context.Context, s aws.Settings) error
	connected bool

	// interactive reports whether prompts can be answered.
	interactive func() bool

	cfg     *config.Config
	log     zerolog.Logger
	tel     *telemetry.Provider
	guard   *policy.Guard
	history *storage.History
}

func newApp(in io.Reader, out, errOut io.Writer) (*app, error) {
	clients := aws.New()
	reg := example.NewRegistry()
	if err := clients.Register(reg); err != nil {
		return nil, fmt.Errorf("register examples: %w", err)
	}

	a := &app{
		in:       in,
		out:      out,
		errOut:   errOut,
		clients:  clients,
		registry: reg,
		connect:  clients.Connect,
		log:      zerolog.Nop(),
	}
	a.interactive = func() bool {
		f, ok := in.(*os.File)
		return ok && scenario.IsInteractive(f)
	}
	return a, nil
}

// setup loads configuration and builds logging, telemetry, the guard and
// run history. Flags override file values.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("region") {
		cfg.Region = a.flags.region
	}
	if flags.Changed("profile") {
		cfg.Profile = a.flags.profile
	}
	if flags.Changed("output") {
		cfg.Output.Format = a.flags.output
	}
	if a.flags.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	a.log = telemetry.NewLogger(a.errOut, cfg.Log.Level)

	a.tel, err = telemetry.NewProvider(ctx, cfg.OTEL, cfg.Metrics)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	a.guard, err = policy.LoadGuard(ctx, cfg.Policy.File)
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		a.history, err = storage.OpenHistory(cfg.History.Path)
		if err != nil {
			// History is a convenience; a locked or unreadable file does
			// not stop the example from running.
			a.log.Warn().Err(err).Str("path", cfg.History.Path).Msg("run history unavailable")
			a.history = nil
		}
	}

	a.log.Debug().
		Str("region", cfg.Region).
		Str("profile", cfg.Profile).
		Str("output", cfg.Output.Format).
		Bool("history", a.history != nil).
		Msg("awsx configured")
	return nil
}

// ensureConnected creates the AWS clients on first use, so offline
// commands never resolve credentials.
func (a *app) ensureConnected(ctx context.Context) error {
	if a.connected {
		return nil
	}
	err := a.connect(ctx, aws.Settings{
		Region:          a.cfg.Region,
		Profile:         a.cfg.Profile,
		MaxAttempts:     a.cfg.MaxAttempts,
		LogsConcurrency: a.cfg.Logs.Concurrency,
		LogsLimit:       int32(a.cfg.Logs.Limit),
	})
	if err != nil {
		return err
	}
	a.connected = true
	a.log.Debug().Str("region", a.clients.Settings.Region).Msg("aws clients ready")
	return nil
}

func (a *app) printer() (*output.Printer, error) {
	format := output.FormatText
	if a.cfg != nil {
		format = output.Format(a.cfg.Output.Format)
	}
	return output.New(a.out, string(format), a.flags.query)
}

func (a *app) prompter() scenario.Prompter {
	if a.flags.yes || !a.interactive() {
		return scenario.NewDefaultPrompter(a.out)
	}
	return scenario.NewLinePrompter(a.in, a.out)
}

// record stores a finished run. Failures are logged, never returned.
func (a *app) record(service, name string, in example.Input, started time.Time, runErr error) {
	if a.history == nil {
		return
	}
	run := storage.Run{
		Service:   service,
		Example:   name,
		Params:    in,
		Region:    a.clients.Settings.Region,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if runErr != nil {
		run.Error = awserr.Describe(runErr)
	}

	run, err := a.history.Record(run)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to record run")
		return
	}
	a.log.Debug().Uint64("run_id", run.ID).Msg("run recorded")

	if removed, err := a.history.Prune(a.cfg.History.Keep); err != nil {
		a.log.Warn().Err(err).Msg("failed to prune run history")
	} else if removed > 0 {
		a.log.Debug().Int("removed", removed).Msg("pruned run history")
	}
}

// close flushes telemetry and releases the history database.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.tel != nil {
		if err := a.tel.Push(ctx); err != nil {
			a.log.Warn().Err(err).Msg("failed to push metrics")
		}
		if err := a.tel.Shutdown(ctx); err != nil {
			a.log.Warn().Err(err).Msg("failed to shut down telemetry")
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close run history")
		}
		a.history = nil
	}
}
