package aws

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) autoScalingExamples() []example.Example {
	return []example.Example{
		{
			Service: "autoscaling",
			Name:    "describe-groups",
			Summary: "List Auto Scaling groups with their capacity",
			Params: []example.Param{
				{Name: "groups", Usage: "comma-separated group names (all when empty)"},
			},
			Run: c.describeGroups,
		},
	}
}

func (c *Clients) describeGroups(ctx context.Context, env *example.Env, in example.Input) error {
	input := &autoscaling.DescribeAutoScalingGroupsInput{AutoScalingGroupNames: in.List("groups")}

	var rows [][]string
	paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(c.AutoScaling, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("describe auto scaling groups: %w", err)
		}
		for _, g := range page.AutoScalingGroups {
			rows = append(rows, []string{
				aws.ToString(g.AutoScalingGroupName),
				strconv.Itoa(int(aws.ToInt32(g.MinSize))),
				strconv.Itoa(int(aws.ToInt32(g.DesiredCapacity))),
				strconv.Itoa(int(aws.ToInt32(g.MaxSize))),
				strconv.Itoa(len(g.Instances)),
			})
		}
	}
	return env.Table([]string{"GROUP", "MIN", "DESIRED", "MAX", "INSTANCES"}, rows)
}
