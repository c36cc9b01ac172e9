package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	mdbtypes "github.com/aws/aws-sdk-go-v2/service/memorydb/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) memoryDBExamples() []example.Example {
	return []example.Example{
		{
			Service: "memorydb",
			Name:    "describe-clusters",
			Summary: "List MemoryDB clusters",
			Params: []example.Param{
				{Name: "cluster", Usage: "only this cluster"},
				{Name: "max-results", Usage: "page size", Default: "100"},
				{Name: "next-token", Usage: "token from a previous page"},
			},
			Run: c.describeMemoryDBClusters,
		},
	}
}

// The MemoryDB model has no paginator, so one page is returned and the
// next token is printed for the caller to pass back.
func (c *Clients) describeMemoryDBClusters(ctx context.Context, env *example.Env, in example.Input) error {
	maxResults, err := in.Int32("max-results")
	if err != nil {
		return err
	}
	input := &memorydb.DescribeClustersInput{MaxResults: aws.Int32(maxResults)}
	if name := in.String("cluster"); name != "" {
		input.ClusterName = aws.String(name)
	}
	if token := in.String("next-token"); token != "" {
		input.NextToken = aws.String(token)
	}

	out, err := c.MemoryDB.DescribeClusters(ctx, input)
	if err != nil {
		var notFound *mdbtypes.ClusterNotFoundFault
		if errors.As(err, &notFound) {
			return fmt.Errorf("cluster %s does not exist", in.String("cluster"))
		}
		return fmt.Errorf("describe memorydb clusters: %w", err)
	}

	rows := make([][]string, 0, len(out.Clusters))
	for _, cl := range out.Clusters {
		endpoint := ""
		if cl.ClusterEndpoint != nil {
			endpoint = aws.ToString(cl.ClusterEndpoint.Address) + ":" + strconv.Itoa(int(cl.ClusterEndpoint.Port))
		}
		rows = append(rows, []string{
			aws.ToString(cl.Name),
			aws.ToString(cl.Status),
			aws.ToString(cl.NodeType),
			strconv.Itoa(int(aws.ToInt32(cl.NumberOfShards))),
			endpoint,
		})
	}
	if err := env.Table([]string{"CLUSTER", "STATUS", "NODE TYPE", "SHARDS", "ENDPOINT"}, rows); err != nil {
		return err
	}
	if out.NextToken != nil {
		env.Log.Info().Str("next_token", aws.ToString(out.NextToken)).Msg("more clusters available; pass --next-token")
	}
	return nil
}
