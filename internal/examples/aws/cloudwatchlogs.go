package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/logsquery"
	"github.com/yairfalse/awsx/internal/output"
)

func (c *Clients) logsExamples() []example.Example {
	return []example.Example{
		{
			Service: "cloudwatchlogs",
			Name:    "describe-log-groups",
			Summary: "List log groups",
			Params: []example.Param{
				{Name: "prefix", Usage: "log group name prefix"},
			},
			Run: c.describeLogGroups,
		},
		{
			Service: "cloudwatchlogs",
			Name:    "large-query",
			Summary: "Run an Insights query past the 10,000 row limit by splitting the time range",
			Params: []example.Param{
				{Name: "log-groups", Usage: "comma-separated log group names", Required: true},
				{Name: "query-string", Usage: "Insights query string", Default: "fields @timestamp, @message"},
				{Name: "start", Usage: "range start (RFC 3339 or now-<duration>)", Default: "now-1h"},
				{Name: "end", Usage: "range end (RFC 3339 or now)", Default: "now"},
				{Name: "limit", Usage: "rows per Insights query (max 10000)"},
				{Name: "summary", Usage: "print only the record count and query stats", Default: "false"},
			},
			Run: c.largeQuery,
		},
	}
}

func (c *Clients) describeLogGroups(ctx context.Context, env *example.Env, in example.Input) error {
	input := &cloudwatchlogs.DescribeLogGroupsInput{}
	if prefix := in.String("prefix"); prefix != "" {
		input.LogGroupNamePrefix = aws.String(prefix)
	}

	var rows [][]string
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(c.Logs, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe log groups: %w", err)
		}
		for _, lg := range page.LogGroups {
			retention := "never expire"
			if lg.RetentionInDays != nil {
				retention = strconv.Itoa(int(*lg.RetentionInDays)) + "d"
			}
			rows = append(rows, []string{
				aws.ToString(lg.LogGroupName),
				output.Bytes(aws.ToInt64(lg.StoredBytes)),
				retention,
			})
		}
	}
	return env.Table([]string{"LOG GROUP", "STORED", "RETENTION"}, rows)
}

func (c *Clients) largeQuery(ctx context.Context, env *example.Env, in example.Input) error {
	start, err := in.Time("start")
	if err != nil {
		return err
	}
	end, err := in.Time("end")
	if err != nil {
		return err
	}
	limit, err := in.Int32("limit")
	if err != nil {
		return err
	}
	if limit == 0 {
		limit = c.Settings.LogsLimit
	}
	summary, err := in.Bool("summary")
	if err != nil {
		return err
	}

	q := logsquery.Query{
		LogGroups:   in.List("log-groups"),
		QueryString: in.String("query-string"),
		Start:       start,
		End:         end,
		Limit:       limit,
	}

	began := time.Now()
	records, stats, err := c.logsRunner(env).Run(ctx, q)
	if err != nil {
		var notFound *cwltypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("log group not found: %s", aws.ToString(notFound.Message))
		}
		return fmt.Errorf("large query: %w", err)
	}

	env.Log.Info().
		Int("records", stats.Records).
		Int("queries", stats.Queries).
		Int("splits", stats.Splits).
		Bool("truncated", stats.Truncated).
		Dur("elapsed", time.Since(began)).
		Msg("large query complete")

	if summary {
		return env.Print(map[string]any{
			"records":   stats.Records,
			"queries":   stats.Queries,
			"splits":    stats.Splits,
			"truncated": stats.Truncated,
		})
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := make(map[string]string, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			row[k] = v
		}
		row["@timestamp"] = rec.Timestamp.Format(time.RFC3339Nano)
		rows = append(rows, row)
	}
	return env.Print(rows)
}
