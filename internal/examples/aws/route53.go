package aws

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) route53Examples() []example.Example {
	return []example.Example{
		{
			Service: "route53",
			Name:    "list-hosted-zones",
			Summary: "List hosted zones",
			Run:     c.listHostedZones,
		},
	}
}

func (c *Clients) listHostedZones(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := route53.NewListHostedZonesPaginator(c.Route53, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list hosted zones: %w", err)
		}
		for _, z := range page.HostedZones {
			visibility := "public"
			if z.Config != nil && z.Config.PrivateZone {
				visibility = "private"
			}
			rows = append(rows, []string{
				strings.TrimPrefix(aws.ToString(z.Id), "/hostedzone/"),
				aws.ToString(z.Name),
				visibility,
				strconv.FormatInt(aws.ToInt64(z.ResourceRecordSetCount), 10),
			})
		}
	}
	return env.Table([]string{"ZONE ID", "NAME", "VISIBILITY", "RECORDS"}, rows)
}
