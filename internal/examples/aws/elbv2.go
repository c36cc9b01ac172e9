package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) elbExamples() []example.Example {
	return []example.Example{
		{
			Service: "elbv2",
			Name:    "describe-load-balancers",
			Summary: "List application, network and gateway load balancers",
			Params: []example.Param{
				{Name: "names", Usage: "comma-separated load balancer names (all when empty)"},
			},
			Run: c.describeLoadBalancers,
		},
	}
}

func (c *Clients) describeLoadBalancers(ctx context.Context, env *example.Env, in example.Input) error {
	input := &elasticloadbalancingv2.DescribeLoadBalancersInput{Names: in.List("names")}

	var rows [][]string
	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(c.ELB, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *elbtypes.LoadBalancerNotFoundException
			if errors.As(err, &notFound) {
				return fmt.Errorf("load balancer not found: %s", aws.ToString(notFound.Message))
			}
			return fmt.Errorf("describe load balancers: %w", err)
		}
		for _, lb := range page.LoadBalancers {
			state := ""
			if lb.State != nil {
				state = string(lb.State.Code)
			}
			rows = append(rows, []string{
				aws.ToString(lb.LoadBalancerName),
				string(lb.Type),
				string(lb.Scheme),
				state,
				aws.ToString(lb.DNSName),
			})
		}
	}
	return env.Table([]string{"NAME", "TYPE", "SCHEME", "STATE", "DNS NAME"}, rows)
}
