package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/waiter"
)

func (c *Clients) eksExamples() []example.Example {
	return []example.Example{
		{
			Service: "eks",
			Name:    "describe-cluster",
			Summary: "Describe a cluster, optionally waiting until it is ACTIVE",
			Params: []example.Param{
				{Name: "cluster", Usage: "cluster name", Required: true},
				{Name: "wait", Usage: "wait for ACTIVE", Default: "false"},
				timeoutParam,
			},
			Run: c.describeEKSCluster,
		},
	}
}

func (c *Clients) eksCluster(ctx context.Context, name string) (*ekstypes.Cluster, error) {
	out, err := c.EKS.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
	if err != nil {
		var notFound *ekstypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("cluster %s does not exist", name)
		}
		return nil, fmt.Errorf("describe cluster %s: %w", name, err)
	}
	return out.Cluster, nil
}

func (c *Clients) describeEKSCluster(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("cluster")
	wait, err := in.Bool("wait")
	if err != nil {
		return err
	}

	if wait {
		opts, err := withTimeout(c.waitOptions(env.Log,
			[]string{string(ekstypes.ClusterStatusActive)},
			[]string{string(ekstypes.ClusterStatusFailed), string(ekstypes.ClusterStatusDeleting)}), in)
		if err != nil {
			return err
		}
		_, err = waiter.Until(ctx, opts, func(ctx context.Context) (string, error) {
			cl, err := c.eksCluster(ctx, name)
			if err != nil {
				return "", err
			}
			return string(cl.Status), nil
		})
		if err != nil {
			return fmt.Errorf("wait for cluster %s: %w", name, err)
		}
	}

	cl, err := c.eksCluster(ctx, name)
	if err != nil {
		return err
	}
	return env.Print(map[string]string{
		"name":     aws.ToString(cl.Name),
		"arn":      aws.ToString(cl.Arn),
		"status":   string(cl.Status),
		"version":  aws.ToString(cl.Version),
		"endpoint": aws.ToString(cl.Endpoint),
		"created":  formatTime(cl.CreatedAt),
	})
}
