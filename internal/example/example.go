// Package example defines a runnable AWS code example and the registry the
// CLI builds its command tree from.
package example

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/yairfalse/awsx/internal/output"
)

// RunFunc executes one example with already validated input.
type RunFunc func(ctx context.Context, env *Env, in Input) error

// Param describes one command-line parameter of an example.
type Param struct {
	Name     string
	Usage    string
	Default  string
	Required bool
}

// Example is one self-contained call (or short sequence of calls) against
// a single AWS service.
type Example struct {
	Service string
	Name    string
	Summary string
	Params  []Param

	// Destructive examples delete or overwrite resources and are
	// evaluated by the policy guard before they run.
	Destructive bool

	Run RunFunc
}

// ID returns "service/name".
func (e Example) ID() string {
	return e.Service + "/" + e.Name
}

// Param returns the named parameter definition.
func (e Example) Param(name string) (Param, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Validate checks that every required parameter has a value.
func (e Example) Validate(in Input) error {
	for _, p := range e.Params {
		if p.Required && in[p.Name] == "" {
			return fmt.Errorf("%s: %w: --%s", e.ID(), ErrMissingParam, p.Name)
		}
	}
	return nil
}

// Env is what an example gets to talk to the outside world.
type Env struct {
	Printer *output.Printer
	Log     zerolog.Logger
}

// NewEnv creates an environment writing to the given printer.
func NewEnv(p *output.Printer, log zerolog.Logger) *Env {
	return &Env{Printer: p, Log: log}
}

// Print renders v with the configured output format.
func (e *Env) Print(v any) error {
	return e.Printer.Print(v)
}

// Table renders rows under headers.
func (e *Env) Table(headers []string, rows [][]string) error {
	return e.Printer.Table(headers, rows)
}

// Printf writes free-form progress text.
func (e *Env) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Printer.Out, format, args...)
}

// Out returns the raw output writer.
func (e *Env) Out() io.Writer {
	return e.Printer.Out
}
