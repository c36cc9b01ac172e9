package example

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMissingParam is returned when a required parameter has no value.
var ErrMissingParam = errors.New("missing required parameter")

// now is replaced in tests.
var now = time.Now

// Input holds the raw string value of every parameter of an example.
type Input map[string]string

// String returns the raw value.
func (in Input) String(name string) string {
	return in[name]
}

// Require returns the value or ErrMissingParam.
func (in Input) Require(name string) (string, error) {
	v := in[name]
	if v == "" {
		return "", fmt.Errorf("%w: --%s", ErrMissingParam, name)
	}
	return v, nil
}

// Int parses the value as an integer. Empty means zero.
func (in Input) Int(name string) (int, error) {
	v := in[name]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("--%s: invalid integer %q", name, v)
	}
	return n, nil
}

// Int32 parses the value as a 32-bit integer. Empty means zero.
func (in Input) Int32(name string) (int32, error) {
	v := in[name]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("--%s: invalid integer %q", name, v)
	}
	return int32(n), nil
}

// Float parses the value as a float. Empty means zero.
func (in Input) Float(name string) (float64, error) {
	v := in[name]
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("--%s: invalid number %q", name, v)
	}
	return f, nil
}

// Bool parses the value as a boolean. Empty means false.
func (in Input) Bool(name string) (bool, error) {
	v := in[name]
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("--%s: invalid boolean %q", name, v)
	}
	return b, nil
}

// Duration parses the value with time.ParseDuration. Empty means zero.
func (in Input) Duration(name string) (time.Duration, error) {
	v := in[name]
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("--%s: invalid duration %q", name, v)
	}
	return d, nil
}

// Time parses an absolute RFC 3339 timestamp, "now", or "now-<duration>"
// such as "now-6h". Empty means the zero time.
func (in Input) Time(name string) (time.Time, error) {
	v := strings.TrimSpace(in[name])
	switch {
	case v == "":
		return time.Time{}, nil
	case v == "now":
		return now().UTC(), nil
	case strings.HasPrefix(v, "now-"):
		d, err := time.ParseDuration(strings.TrimPrefix(v, "now-"))
		if err != nil {
			return time.Time{}, fmt.Errorf("--%s: invalid relative time %q", name, v)
		}
		return now().UTC().Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: invalid time %q (want RFC 3339 or now-<duration>)", name, v)
	}
	return t.UTC(), nil
}

// List splits a comma-separated value, dropping empty entries.
func (in Input) List(name string) []string {
	var out []string
	for _, part := range strings.Split(in[name], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Pairs parses "k=v,k2=v2" into a map.
func (in Input) Pairs(name string) (map[string]string, error) {
	items := in.List(name)
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--%s: expected key=value, got %q", name, item)
		}
		out[k] = v
	}
	return out, nil
}
