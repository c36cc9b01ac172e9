package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator questions.
type Prompter interface {
	Ask(question, def string) (string, error)
	Confirm(question string, def bool) (bool, error)
	Choose(question string, choices []string, def int) (int, error)
}

const maxAttempts = 3

// LinePrompter reads line-oriented answers.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a prompter reading from in and writing to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Ask returns the typed answer, or def when the answer is empty.
func (p *LinePrompter) Ask(question, def string) (string, error) {
	if def != "" {
		_, _ = fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		_, _ = fmt.Fprintf(p.out, "%s: ", question)
	}
	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question.
func (p *LinePrompter) Confirm(question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for i := 0; i < maxAttempts; i++ {
		_, _ = fmt.Fprintf(p.out, "%s (%s): ", question, hint)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		_, _ = fmt.Fprintln(p.out, "Please answer yes or no.")
	}
	return false, fmt.Errorf("no valid answer to %q", question)
}

// Choose asks the operator to pick one of choices by number.
func (p *LinePrompter) Choose(question string, choices []string, def int) (int, error) {
	if len(choices) == 0 {
		return 0, errors.New("no choices offered")
	}
	for i := 0; i < maxAttempts; i++ {
		_, _ = fmt.Fprintln(p.out, question)
		for n, c := range choices {
			_, _ = fmt.Fprintf(p.out, "  %d. %s\n", n+1, c)
		}
		_, _ = fmt.Fprintf(p.out, "Choice [%d]: ", def+1)
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(choices) {
			return n - 1, nil
		}
		_, _ = fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(choices))
	}
	return 0, fmt.Errorf("no valid answer to %q", question)
}

// DefaultPrompter answers every question with its default and echoes the
// answer, for unattended runs.
type DefaultPrompter struct {
	out io.Writer
}

// NewDefaultPrompter creates a non-interactive prompter.
func NewDefaultPrompter(out io.Writer) *DefaultPrompter {
	return &DefaultPrompter{out: out}
}

func (p *DefaultPrompter) Ask(question, def string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s: %s\n", question, def)
	return def, nil
}

func (p *DefaultPrompter) Confirm(question string, def bool) (bool, error) {
	answer := "no"
	if def {
		answer = "yes"
	}
	_, _ = fmt.Fprintf(p.out, "%s: %s\n", question, answer)
	return def, nil
}

func (p *DefaultPrompter) Choose(question string, choices []string, def int) (int, error) {
	if def < 0 || def >= len(choices) {
		return 0, errors.New("default choice out of range")
	}
	_, _ = fmt.Fprintf(p.out, "%s: %s\n", question, choices[def])
	return def, nil
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
