// Package policy decides whether an example may run, using Rego.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPolicy allows read-only examples and requires confirmation (or an
// explicit config switch) for destructive ones.
const DefaultPolicy = `package awsx.guard

import rego.v1

default allow := false

allow if not input.destructive

allow if input.allow_destructive

allow if input.confirmed

reason := "read-only example" if {
	not input.destructive
} else := "destructive examples allowed by config" if {
	input.allow_destructive
} else := "confirmed by operator" if {
	input.confirmed
} else := msg if {
	msg := sprintf("%s %s is destructive; rerun with --yes", [input.service, input.example])
}
`

const guardQuery = "data.awsx.guard"

// Input describes the example about to run.
type Input struct {
	Service          string            `json:"service"`
	Example          string            `json:"example"`
	Region           string            `json:"region,omitempty"`
	Params           map[string]string `json:"params,omitempty"`
	Destructive      bool              `json:"destructive"`
	Confirmed        bool              `json:"confirmed"`
	AllowDestructive bool              `json:"allow_destructive"`
}

// Decision is the guard's verdict.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

// Guard evaluates a compiled guard policy.
type Guard struct {
	query  rego.PreparedEvalQuery
	tracer trace.Tracer
}

// NewGuard compiles module. An empty module uses DefaultPolicy.
func NewGuard(ctx context.Context, module string) (*Guard, error) {
	if module == "" {
		module = DefaultPolicy
	}

	prepared, err := rego.New(
		rego.Query(guardQuery),
		rego.Module("guard.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile guard policy: %w", err)
	}

	return &Guard{query: prepared, tracer: otel.Tracer("awsx-policy")}, nil
}

// LoadGuard compiles the policy at path, or DefaultPolicy when path is empty.
func LoadGuard(ctx context.Context, path string) (*Guard, error) {
	if path == "" {
		return NewGuard(ctx, "")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read guard policy: %w", err)
	}
	return NewGuard(ctx, string(data))
}

// Evaluate runs the policy for in.
func (g *Guard) Evaluate(ctx context.Context, in Input) (Decision, error) {
	ctx, span := g.tracer.Start(ctx, "policy.guard.evaluate",
		trace.WithAttributes(
			attribute.String("example.service", in.Service),
			attribute.String("example.name", in.Example),
			attribute.Bool("example.destructive", in.Destructive),
		))
	defer span.End()

	input, err := toMap(in)
	if err != nil {
		return Decision{}, err
	}

	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("evaluate guard policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Reason: "guard policy produced no result"}, nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("guard policy returned %T, want object", results[0].Expressions[0].Value)
	}

	var d Decision
	d.Allow, _ = doc["allow"].(bool)
	d.Reason, _ = doc["reason"].(string)
	span.SetAttributes(attribute.Bool("guard.allow", d.Allow))
	return d, nil
}

// OPA wants plain JSON values as input.
func toMap(in Input) (map[string]any, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal guard input: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal guard input: %w", err)
	}
	return out, nil
}
