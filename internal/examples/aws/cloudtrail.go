package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) cloudTrailExamples() []example.Example {
	return []example.Example{
		{
			Service: "cloudtrail",
			Name:    "lookup-events",
			Summary: "Look up recent management events",
			Params: []example.Param{
				{Name: "start", Usage: "range start (RFC 3339 or now-<duration>)", Default: "now-24h"},
				{Name: "end", Usage: "range end", Default: "now"},
				{Name: "event-name", Usage: "only events with this name, e.g. CreateBucket"},
				{Name: "max-events", Usage: "stop after this many events", Default: "50"},
			},
			Run: c.lookupEvents,
		},
	}
}

func (c *Clients) lookupEvents(ctx context.Context, env *example.Env, in example.Input) error {
	start, err := in.Time("start")
	if err != nil {
		return err
	}
	end, err := in.Time("end")
	if err != nil {
		return err
	}
	maxEvents, err := in.Int("max-events")
	if err != nil {
		return err
	}

	input := &cloudtrail.LookupEventsInput{StartTime: aws.Time(start), EndTime: aws.Time(end)}
	if name := in.String("event-name"); name != "" {
		input.LookupAttributes = []cttypes.LookupAttribute{{
			AttributeKey:   cttypes.LookupAttributeKeyEventName,
			AttributeValue: aws.String(name),
		}}
	}

	var rows [][]string
	paginator := cloudtrail.NewLookupEventsPaginator(c.CloudTrail, input)
	for paginator.HasMorePages() && (maxEvents <= 0 || len(rows) < maxEvents) {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("lookup events: %w", err)
		}
		for _, e := range page.Events {
			if maxEvents > 0 && len(rows) >= maxEvents {
				break
			}
			rows = append(rows, []string{
				formatTime(e.EventTime),
				aws.ToString(e.EventSource),
				aws.ToString(e.EventName),
				aws.ToString(e.Username),
			})
		}
	}
	return env.Table([]string{"TIME", "SOURCE", "EVENT", "USER"}, rows)
}
