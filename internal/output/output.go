// Package output renders example results as JSON or plain text.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
)

// Format selects how values are written.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Printer writes values to Out. Query, when set, is a gjson path applied
// to the JSON form of every printed value.
type Printer struct {
	Out    io.Writer
	Format Format
	Query  string
}

// New validates the format and returns a printer.
func New(out io.Writer, format, query string) (*Printer, error) {
	f := Format(strings.ToLower(format))
	if f == "" {
		f = FormatText
	}
	if f != FormatJSON && f != FormatText {
		return nil, fmt.Errorf("invalid output format: %s (must be one of: json, text)", format)
	}
	return &Printer{Out: out, Format: f, Query: query}, nil
}

// Print renders v.
func (p *Printer) Print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	result := gjson.ParseBytes(data)
	if p.Query != "" {
		result = result.Get(p.Query)
		if !result.Exists() {
			return fmt.Errorf("query %q matched nothing", p.Query)
		}
	}

	if p.Format == FormatJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(result.Raw), "", "  "); err != nil {
			return fmt.Errorf("indent output: %w", err)
		}
		buf.WriteByte('\n')
		_, err := p.Out.Write(buf.Bytes())
		return err
	}

	return writeText(p.Out, result)
}

// Table writes aligned columns in text mode and an array of objects in
// JSON mode.
func (p *Printer) Table(headers []string, rows [][]string) error {
	if p.Format == FormatJSON || p.Query != "" {
		objs := make([]map[string]string, 0, len(rows))
		for _, row := range rows {
			obj := make(map[string]string, len(headers))
			for i, h := range headers {
				if i < len(row) {
					obj[strings.ToLower(h)] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		return p.Print(objs)
	}

	w := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func writeText(w io.Writer, r gjson.Result) error {
	switch {
	case r.IsArray():
		var err error
		r.ForEach(func(_, item gjson.Result) bool {
			_, err = fmt.Fprintln(w, textLine(item))
			return err == nil
		})
		return err
	case r.IsObject():
		var lines []string
		r.ForEach(func(key, value gjson.Result) bool {
			lines = append(lines, fmt.Sprintf("%s: %s", key.String(), textLine(value)))
			return true
		})
		_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
		return err
	default:
		_, err := fmt.Fprintln(w, r.String())
		return err
	}
}

// textLine flattens one value onto a single line.
func textLine(r gjson.Result) string {
	switch {
	case r.IsObject():
		var parts []string
		r.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.Null {
				return true
			}
			parts = append(parts, key.String()+"="+textLine(value))
			return true
		})
		sort.Strings(parts)
		return strings.Join(parts, "  ")
	case r.IsArray():
		var parts []string
		r.ForEach(func(_, value gjson.Result) bool {
			parts = append(parts, textLine(value))
			return true
		})
		return strings.Join(parts, ",")
	default:
		return r.String()
	}
}

// Bytes formats a byte count for humans.
func Bytes(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

// Ago formats a timestamp relative to now.
func Ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Count formats an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}
