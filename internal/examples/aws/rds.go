package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/yairfalse/awsx/internal/example"
)

func (c *Clients) rdsExamples() []example.Example {
	return []example.Example{
		{
			Service: "rds",
			Name:    "describe-db-instances",
			Summary: "List DB instances with engine, class and endpoint",
			Params: []example.Param{
				{Name: "instance", Usage: "only this DB instance identifier"},
			},
			Run: c.describeDBInstances,
		},
	}
}

func (c *Clients) describeDBInstances(ctx context.Context, env *example.Env, in example.Input) error {
	input := &rds.DescribeDBInstancesInput{}
	if id := in.String("instance"); id != "" {
		input.DBInstanceIdentifier = aws.String(id)
	}

	var rows [][]string
	paginator := rds.NewDescribeDBInstancesPaginator(c.RDS, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *rdstypes.DBInstanceNotFoundFault
			if errors.As(err, &notFound) {
				return fmt.Errorf("DB instance %s does not exist", in.String("instance"))
			}
			return fmt.Errorf("describe db instances: %w", err)
		}
		for _, db := range page.DBInstances {
			endpoint := ""
			if db.Endpoint != nil {
				endpoint = aws.ToString(db.Endpoint.Address) + ":" + strconv.Itoa(int(aws.ToInt32(db.Endpoint.Port)))
			}
			rows = append(rows, []string{
				aws.ToString(db.DBInstanceIdentifier),
				aws.ToString(db.Engine) + " " + aws.ToString(db.EngineVersion),
				aws.ToString(db.DBInstanceClass),
				aws.ToString(db.DBInstanceStatus),
				endpoint,
			})
		}
	}
	return env.Table([]string{"INSTANCE", "ENGINE", "CLASS", "STATUS", "ENDPOINT"}, rows)
}
