package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/awsx/internal/output"
	"github.com/yairfalse/awsx/storage"
)

var errNoHistory = errors.New("run history is disabled (history.enabled in the config file)")

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		filter storage.Filter
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded example runs",
		Example: `  awsx history
  awsx history --service dynamodb --limit 5
  awsx history --failed -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.history == nil {
				return errNoHistory
			}
			filter.Limit = limit

			p, err := a.printer()
			if err != nil {
				return err
			}
			runs := a.history.Query(filter)
			if p.Format == output.FormatJSON || p.Query != "" {
				return p.Print(runs)
			}
			return p.Table([]string{"ID", "STARTED", "SERVICE", "EXAMPLE", "DURATION", "RESULT"}, historyRows(runs))
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&limit, "limit", "n", 20, "show at most this many runs (0 for all)")
	fs.StringVar(&filter.Service, "service", "", "only runs of this service")
	fs.StringVar(&filter.Example, "example", "", "only runs of this example")
	fs.BoolVar(&filter.FailedOnly, "failed", false, "only failed runs")
	return cmd
}

func historyRows(runs []storage.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if r.Failed() {
			result = r.Error
		}
		rows = append(rows, []string{
			strconv.FormatUint(r.ID, 10),
			output.Ago(r.StartedAt),
			r.Service,
			r.Example,
			r.Duration.Round(time.Millisecond).String(),
			result,
		})
	}
	return rows
}
