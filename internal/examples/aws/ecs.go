package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/waiter"
)

func (c *Clients) ecsExamples() []example.Example {
	cluster := example.Param{Name: "cluster", Usage: "cluster name or ARN", Required: true}
	return []example.Example{
		{
			Service: "ecs",
			Name:    "create-cluster",
			Summary: "Create a cluster and wait until it is ACTIVE",
			Params: []example.Param{
				cluster,
				{Name: "wait", Usage: "wait for ACTIVE", Default: "true"},
				timeoutParam,
			},
			Run: c.createECSCluster,
		},
		{
			Service: "ecs",
			Name:    "list-clusters",
			Summary: "List cluster ARNs",
			Run:     c.listECSClusters,
		},
		{
			Service: "ecs",
			Name:    "describe-clusters",
			Summary: "Describe clusters with service and task counts",
			Params: []example.Param{
				{Name: "clusters", Usage: "comma-separated cluster names or ARNs", Default: "default"},
			},
			Run: c.describeECSClusters,
		},
		{
			Service:     "ecs",
			Name:        "delete-cluster",
			Summary:     "Delete an empty cluster",
			Params:      []example.Param{cluster},
			Destructive: true,
			Run:         c.deleteECSCluster,
		},
	}
}

func (c *Clients) createECSCluster(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("cluster")
	wait, err := in.Bool("wait")
	if err != nil {
		return err
	}
	opts, err := withTimeout(c.waitOptions(env.Log, []string{"ACTIVE"}, []string{"FAILED", "INACTIVE"}), in)
	if err != nil {
		return err
	}

	out, err := c.ECS.CreateCluster(ctx, &ecs.CreateClusterInput{ClusterName: aws.String(name)})
	if err != nil {
		return fmt.Errorf("create cluster %s: %w", name, err)
	}
	state := aws.ToString(out.Cluster.Status)
	env.Printf("Cluster %s is %s.\n", aws.ToString(out.Cluster.ClusterArn), state)
	if !wait || state == "ACTIVE" {
		return nil
	}

	// New clusters report PROVISIONING while capacity providers attach.
	state, err = waiter.Until(ctx, opts, func(ctx context.Context) (string, error) {
		cl, err := c.ecsCluster(ctx, name)
		if err != nil {
			return "", err
		}
		return aws.ToString(cl.Status), nil
	})
	if err != nil {
		return fmt.Errorf("wait for cluster %s: %w", name, err)
	}
	env.Printf("Cluster %s is %s.\n", name, state)
	return nil
}

func (c *Clients) ecsCluster(ctx context.Context, name string) (ecstypes.Cluster, error) {
	out, err := c.ECS.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: []string{name}})
	if err != nil {
		return ecstypes.Cluster{}, fmt.Errorf("describe cluster %s: %w", name, err)
	}
	if len(out.Clusters) == 0 {
		reason := "MISSING"
		if len(out.Failures) > 0 {
			reason = aws.ToString(out.Failures[0].Reason)
		}
		return ecstypes.Cluster{}, fmt.Errorf("cluster %s: %s", name, reason)
	}
	return out.Clusters[0], nil
}

func (c *Clients) listECSClusters(ctx context.Context, env *example.Env, _ example.Input) error {
	var rows [][]string
	paginator := ecs.NewListClustersPaginator(c.ECS, &ecs.ListClustersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list clusters: %w", err)
		}
		for _, arn := range page.ClusterArns {
			rows = append(rows, []string{arn})
		}
	}
	return env.Table([]string{"CLUSTER ARN"}, rows)
}

func (c *Clients) describeECSClusters(ctx context.Context, env *example.Env, in example.Input) error {
	out, err := c.ECS.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: in.List("clusters")})
	if err != nil {
		return fmt.Errorf("describe clusters: %w", err)
	}
	for _, f := range out.Failures {
		env.Log.Warn().Str("cluster", aws.ToString(f.Arn)).Str("reason", aws.ToString(f.Reason)).Msg("cluster not described")
	}

	rows := make([][]string, 0, len(out.Clusters))
	for _, cl := range out.Clusters {
		rows = append(rows, []string{
			aws.ToString(cl.ClusterName),
			aws.ToString(cl.Status),
			strconv.Itoa(int(cl.ActiveServicesCount)),
			strconv.Itoa(int(cl.RunningTasksCount)),
			strconv.Itoa(int(cl.RegisteredContainerInstancesCount)),
		})
	}
	return env.Table([]string{"CLUSTER", "STATUS", "SERVICES", "RUNNING TASKS", "INSTANCES"}, rows)
}

func (c *Clients) deleteECSCluster(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("cluster")
	_, err := c.ECS.DeleteCluster(ctx, &ecs.DeleteClusterInput{Cluster: aws.String(name)})
	if err != nil {
		var notFound *ecstypes.ClusterNotFoundException
		var inUse *ecstypes.ClusterContainsServicesException
		switch {
		case errors.As(err, &notFound):
			return fmt.Errorf("cluster %s does not exist", name)
		case errors.As(err, &inUse):
			return fmt.Errorf("cluster %s still has services", name)
		}
		return fmt.Errorf("delete cluster %s: %w", name, err)
	}
	env.Printf("Deleted cluster %s.\n", name)
	return nil
}
