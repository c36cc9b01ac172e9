// Package scenario runs guided, multi-step CLI demos: print some context,
// ask the operator a question, call AWS, repeat.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ErrAborted is returned when the operator declines a required confirmation.
var ErrAborted = errors.New("scenario aborted by operator")

// State carries values between steps.
type State map[string]any

// String returns the value under key as a string.
func (s State) String(key string) string {
	switch v := s[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value under key as a bool.
func (s State) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// Step is one unit of a scenario.
type Step interface {
	Title() string
	Run(ctx context.Context, r *Runner, s State) error
}

type conditional interface {
	active(s State) bool
}

type tolerant interface {
	continueOnError() bool
}

// Scenario is an ordered list of steps.
type Scenario struct {
	Name        string
	Description string
	Steps       []Step
}

// Runner executes scenarios.
type Runner struct {
	out      io.Writer
	prompter Prompter
	log      zerolog.Logger
}

// NewRunner creates a runner writing to out and asking questions through p.
func NewRunner(out io.Writer, p Prompter, log zerolog.Logger) *Runner {
	return &Runner{out: out, prompter: p, log: log}
}

// Printf writes to the scenario output.
func (r *Runner) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Prompter returns the prompter the runner asks through.
func (r *Runner) Prompter() Prompter {
	return r.prompter
}

// Log returns the runner's logger.
func (r *Runner) Log() zerolog.Logger {
	return r.log
}

// Run executes every step in order and returns the final state. The first
// failing step stops the scenario unless it tolerates errors.
func (r *Runner) Run(ctx context.Context, sc Scenario) (State, error) {
	state := make(State)

	r.Printf("%s\n%s\n", sc.Name, strings.Repeat("-", len(sc.Name)))
	if sc.Description != "" {
		r.Printf("%s\n\n", sc.Description)
	}

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if c, ok := step.(conditional); ok && !c.active(state) {
			r.log.Debug().Int("step", i+1).Str("title", step.Title()).Msg("step skipped")
			continue
		}

		r.log.Debug().Int("step", i+1).Str("title", step.Title()).Msg("step started")
		err := step.Run(ctx, r, state)
		if err == nil {
			continue
		}

		if t, ok := step.(tolerant); ok && t.continueOnError() && !errors.Is(err, ErrAborted) {
			r.log.Warn().Err(err).Str("title", step.Title()).Msg("step failed, continuing")
			r.Printf("  ! %s: %v\n", step.Title(), err)
			continue
		}
		return state, fmt.Errorf("step %d (%s): %w", i+1, step.Title(), err)
	}

	r.Printf("\n%s complete.\n", sc.Name)
	return state, nil
}

// Message prints text. Render, if set, builds the text from state.
type Message struct {
	Text   string
	Render func(State) string
	When   func(State) bool
}

func (m Message) Title() string {
	line, _, _ := strings.Cut(m.Text, "\n")
	if line == "" {
		return "message"
	}
	return line
}

func (m Message) Run(_ context.Context, r *Runner, s State) error {
	text := m.Text
	if m.Render != nil {
		text = m.Render(s)
	}
	r.Printf("%s\n", text)
	return nil
}

func (m Message) active(s State) bool { return m.When == nil || m.When(s) }

// PromptKind selects how a Prompt asks.
type PromptKind int

const (
	PromptText PromptKind = iota
	PromptConfirm
	PromptChoice
)

// Prompt asks the operator and stores the answer under Key: a string for
// PromptText and PromptChoice, a bool for PromptConfirm.
type Prompt struct {
	Key      string
	Question string
	Kind     PromptKind
	Default  string
	Choices  []string

	// Required confirmations abort the scenario when answered "no".
	Required bool
	When     func(State) bool
}

func (p Prompt) Title() string { return p.Question }

func (p Prompt) Run(_ context.Context, r *Runner, s State) error {
	switch p.Kind {
	case PromptConfirm:
		ok, err := r.prompter.Confirm(p.Question, p.Default == "yes" || p.Default == "true")
		if err != nil {
			return err
		}
		s[p.Key] = ok
		if p.Required && !ok {
			return ErrAborted
		}
	case PromptChoice:
		def := 0
		for i, c := range p.Choices {
			if c == p.Default {
				def = i
			}
		}
		idx, err := r.prompter.Choose(p.Question, p.Choices, def)
		if err != nil {
			return err
		}
		s[p.Key] = p.Choices[idx]
	default:
		answer, err := r.prompter.Ask(p.Question, p.Default)
		if err != nil {
			return err
		}
		if answer == "" && p.Required {
			return fmt.Errorf("%s: an answer is required", p.Key)
		}
		s[p.Key] = answer
	}
	return nil
}

func (p Prompt) active(s State) bool { return p.When == nil || p.When(s) }

// Action runs code against the state.
type Action struct {
	Name            string
	Do              func(ctx context.Context, r *Runner, s State) error
	ContinueOnError bool
	When            func(State) bool
}

func (a Action) Title() string { return a.Name }

func (a Action) Run(ctx context.Context, r *Runner, s State) error {
	r.Printf("> %s\n", a.Name)
	return a.Do(ctx, r, s)
}

func (a Action) active(s State) bool    { return a.When == nil || a.When(s) }
func (a Action) continueOnError() bool { return a.ContinueOnError }

// IsSet returns a predicate that is true when key holds true.
func IsSet(key string) func(State) bool {
	return func(s State) bool { return s.Bool(key) }
}
