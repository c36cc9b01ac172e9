package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediastore"
	mstypes "github.com/aws/aws-sdk-go-v2/service/mediastore/types"

	"github.com/yairfalse/awsx/internal/example"
	"github.com/yairfalse/awsx/internal/waiter"
)

func (c *Clients) mediaStoreExamples() []example.Example {
	container := example.Param{Name: "container", Usage: "container name", Required: true}
	return []example.Example{
		{
			Service: "mediastore",
			Name:    "create-container",
			Summary: "Create a container and wait until it is ACTIVE",
			Params: []example.Param{
				container,
				{Name: "wait", Usage: "wait for ACTIVE", Default: "true"},
				timeoutParam,
			},
			Run: c.createContainer,
		},
		{
			Service: "mediastore",
			Name:    "describe-container",
			Summary: "Show a container's status and endpoint",
			Params:  []example.Param{container},
			Run:     c.describeContainer,
		},
		{
			Service:     "mediastore",
			Name:        "delete-container",
			Summary:     "Delete an empty container",
			Params:      []example.Param{container},
			Destructive: true,
			Run:         c.deleteContainer,
		},
	}
}

func (c *Clients) createContainer(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("container")
	wait, err := in.Bool("wait")
	if err != nil {
		return err
	}
	opts, err := withTimeout(c.waitOptions(env.Log,
		[]string{string(mstypes.ContainerStatusActive)},
		[]string{string(mstypes.ContainerStatusDeleting)}), in)
	if err != nil {
		return err
	}

	_, err = c.MediaStore.CreateContainer(ctx, &mediastore.CreateContainerInput{ContainerName: aws.String(name)})
	if err != nil {
		var inUse *mstypes.ContainerInUseException
		if errors.As(err, &inUse) {
			return fmt.Errorf("container %s already exists", name)
		}
		return fmt.Errorf("create container %s: %w", name, err)
	}
	env.Printf("Creating container %s.\n", name)
	if !wait {
		return nil
	}

	_, err = waiter.Until(ctx, opts, func(ctx context.Context) (string, error) {
		ct, err := c.container(ctx, name)
		if err != nil {
			var notFound *mstypes.ContainerNotFoundException
			if errors.As(err, &notFound) {
				// DescribeContainer can lag behind CreateContainer.
				return "", waiter.Retryable(err)
			}
			return "", err
		}
		return string(ct.Status), nil
	})
	if err != nil {
		return fmt.Errorf("wait for container %s: %w", name, err)
	}

	ct, err := c.container(ctx, name)
	if err != nil {
		return err
	}
	return env.Print(containerView(ct))
}

func (c *Clients) container(ctx context.Context, name string) (*mstypes.Container, error) {
	out, err := c.MediaStore.DescribeContainer(ctx, &mediastore.DescribeContainerInput{ContainerName: aws.String(name)})
	if err != nil {
		var notFound *mstypes.ContainerNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("container %s does not exist: %w", name, err)
		}
		return nil, fmt.Errorf("describe container %s: %w", name, err)
	}
	return out.Container, nil
}

func (c *Clients) describeContainer(ctx context.Context, env *example.Env, in example.Input) error {
	ct, err := c.container(ctx, in.String("container"))
	if err != nil {
		return err
	}
	return env.Print(containerView(ct))
}

func (c *Clients) deleteContainer(ctx context.Context, env *example.Env, in example.Input) error {
	name := in.String("container")
	_, err := c.MediaStore.DeleteContainer(ctx, &mediastore.DeleteContainerInput{ContainerName: aws.String(name)})
	if err != nil {
		var notFound *mstypes.ContainerNotFoundException
		var inUse *mstypes.ContainerInUseException
		switch {
		case errors.As(err, &notFound):
			return fmt.Errorf("container %s does not exist", name)
		case errors.As(err, &inUse):
			return fmt.Errorf("container %s is not empty or is still being created", name)
		}
		return fmt.Errorf("delete container %s: %w", name, err)
	}
	env.Printf("Deleting container %s.\n", name)
	return nil
}

func containerView(ct *mstypes.Container) map[string]string {
	return map[string]string{
		"name":     aws.ToString(ct.Name),
		"arn":      aws.ToString(ct.ARN),
		"status":   string(ct.Status),
		"endpoint": aws.ToString(ct.Endpoint),
		"created":  formatTime(ct.CreationTime),
	}
}
