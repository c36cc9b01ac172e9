package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	rstypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) redshiftExamples() []example.Example {
	return []example.Example{
		{
			Service: "redshift",
			Name:    "describe-clusters",
			Summary: "List Redshift clusters",
			Params: []example.Param{
				{Name: "cluster", Usage: "only this cluster identifier"},
			},
			Run: c.describeRedshiftClusters,
		},
	}
}

func (c *Clients) describeRedshiftClusters(ctx context.Context, env *example.Env, in example.Input) error {
	input := &redshift.DescribeClustersInput{}
	if id := in.String("cluster"); id != "" {
		input.ClusterIdentifier = aws.String(id)
	}

	var rows [][]string
	paginator := redshift.NewDescribeClustersPaginator(c.Redshift, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *rstypes.ClusterNotFoundFault
			if errors.As(err, &notFound) {
				return fmt.Errorf("cluster %s does not exist", in.String("cluster"))
			}
			return fmt.Errorf("describe redshift clusters: %w", err)
		}
		for _, cl := range page.Clusters {
			endpoint := ""
			if cl.Endpoint != nil {
				endpoint = aws.ToString(cl.Endpoint.Address) + ":" + strconv.Itoa(int(aws.ToInt32(cl.Endpoint.Port)))
			}
			rows = append(rows, []string{
				aws.ToString(cl.ClusterIdentifier),
				aws.ToString(cl.ClusterStatus),
				aws.ToString(cl.NodeType),
				strconv.Itoa(int(aws.ToInt32(cl.NumberOfNodes))),
				endpoint,
			})
		}
	}
	return env.Table([]string{"CLUSTER", "STATUS", "NODE TYPE", "NODES", "ENDPOINT"}, rows)
}
