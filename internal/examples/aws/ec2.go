package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) ec2Examples() []example.Example {
	return []example.Example{
		{
			Service: "ec2",
			Name:    "describe-instances",
			Summary: "List instances, optionally filtered by state",
			Params: []example.Param{
				{Name: "state", Usage: "instance state filter, e.g. running"},
			},
			Run: c.describeInstances,
		},
		{
			Service: "ec2",
			Name:    "describe-regions",
			Summary: "List regions available to the account",
			Params: []example.Param{
				{Name: "all", Usage: "include regions not opted in", Default: "false"},
			},
			Run: c.describeRegions,
		},
	}
}

func (c *Clients) describeInstances(ctx context.Context, env *example.Env, in example.Input) error {
	input := &ec2.DescribeInstancesInput{}
	if state := in.String("state"); state != "" {
		input.Filters = []ec2types.Filter{{Name: aws.String("instance-state-name"), Values: []string{state}}}
	}

	var rows [][]string
	paginator := ec2.NewDescribeInstancesPaginator(c.EC2, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe instances: %w", err)
		}
		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				state := ""
				if inst.State != nil {
					state = string(inst.State.Name)
				}
				rows = append(rows, []string{
					aws.ToString(inst.InstanceId),
					nameTag(inst.Tags),
					string(inst.InstanceType),
					state,
					aws.ToString(inst.PrivateIpAddress),
					formatTime(inst.LaunchTime),
				})
			}
		}
	}
	return env.Table([]string{"INSTANCE", "NAME", "TYPE", "STATE", "PRIVATE IP", "LAUNCHED"}, rows)
}

func nameTag(tags []ec2types.Tag) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == "Name" {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

func (c *Clients) describeRegions(ctx context.Context, env *example.Env, in example.Input) error {
	all, err := in.Bool("all")
	if err != nil {
		return err
	}
	out, err := c.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(all)})
	if err != nil {
		return fmt.Errorf("describe regions: %w", err)
	}
	rows := make([][]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		rows = append(rows, []string{aws.ToString(r.RegionName), aws.ToString(r.OptInStatus), aws.ToString(r.Endpoint)})
	}
	return env.Table([]string{"REGION", "OPT-IN", "ENDPOINT"}, rows)
}
